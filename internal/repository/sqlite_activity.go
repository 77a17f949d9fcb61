package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bobby4fischer/pettrack/internal/db"
	"github.com/bobby4fischer/pettrack/internal/domain"
)

// SQLiteActivityRepo implements ActivityRepo using a SQLite database.
type SQLiteActivityRepo struct {
	db db.DBTX
}

// NewSQLiteActivityRepo creates a new SQLiteActivityRepo.
func NewSQLiteActivityRepo(conn db.DBTX) *SQLiteActivityRepo {
	return &SQLiteActivityRepo{db: conn}
}

func (r *SQLiteActivityRepo) Create(ctx context.Context, e *domain.ActivityEvent) error {
	query := `INSERT INTO activity_events (id, user_id, kind, context, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.UserID,
		string(e.Kind),
		e.Context,
		e.Timestamp.Format(time.RFC3339),
		e.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting activity event: %w", err)
	}
	return nil
}

func (r *SQLiteActivityRepo) ListRecent(ctx context.Context, userID string, limit int) ([]*domain.ActivityEvent, error) {
	query := `SELECT id, user_id, kind, context, timestamp, created_at
		FROM activity_events WHERE user_id = ? ORDER BY timestamp DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing activity events: %w", err)
	}
	defer rows.Close()

	var events []*domain.ActivityEvent
	for rows.Next() {
		var e domain.ActivityEvent
		var kind, tsStr, createdStr string
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &e.Context, &tsStr, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning activity event: %w", err)
		}
		e.Kind = domain.ActivityKind(kind)
		if e.Timestamp, err = time.Parse(time.RFC3339, tsStr); err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity events: %w", err)
	}
	return events, nil
}
