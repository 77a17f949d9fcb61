package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bobby4fischer/pettrack/internal/db"
	"github.com/bobby4fischer/pettrack/internal/domain"
)

// SQLiteNotificationLogRepo implements NotificationLogRepo using a SQLite database.
type SQLiteNotificationLogRepo struct {
	db db.DBTX
}

// NewSQLiteNotificationLogRepo creates a new SQLiteNotificationLogRepo.
func NewSQLiteNotificationLogRepo(conn db.DBTX) *SQLiteNotificationLogRepo {
	return &SQLiteNotificationLogRepo{db: conn}
}

func (r *SQLiteNotificationLogRepo) Create(ctx context.Context, n *domain.NotificationLog) error {
	query := `INSERT INTO notification_log (id, user_id, sent_at, summary)
		VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.SentAt.Format(time.RFC3339),
		n.Summary,
	)
	if err != nil {
		return fmt.Errorf("inserting notification log: %w", err)
	}
	return nil
}

func (r *SQLiteNotificationLogRepo) LastSentAt(ctx context.Context, userID string) (*time.Time, error) {
	query := `SELECT sent_at FROM notification_log
		WHERE user_id = ? ORDER BY sent_at DESC LIMIT 1`
	var sentStr string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&sentStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading last digest time: %w", err)
	}
	t, err := time.Parse(time.RFC3339, sentStr)
	if err != nil {
		return nil, fmt.Errorf("parsing sent_at: %w", err)
	}
	return &t, nil
}
