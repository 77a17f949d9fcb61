package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bobby4fischer/pettrack/internal/db"
	"github.com/bobby4fischer/pettrack/internal/domain"
)

// SQLiteSessionRepo implements SessionRepo using a SQLite database.
type SQLiteSessionRepo struct {
	db db.DBTX
}

// NewSQLiteSessionRepo creates a new SQLiteSessionRepo.
func NewSQLiteSessionRepo(conn db.DBTX) *SQLiteSessionRepo {
	return &SQLiteSessionRepo{db: conn}
}

const sessionColumns = `id, user_id, task_id, type, start_at, end_at, duration_minutes, completed, interruptions, created_at`

func (r *SQLiteSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	query := `INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.UserID,
		nullableString(s.TaskID),
		string(s.Type),
		s.StartAt.Format(time.RFC3339),
		nullableTimeToString(s.EndAt, time.RFC3339),
		s.DurationMinutes,
		boolToInt(s.Completed),
		s.Interruptions,
		s.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepo) GetByID(ctx context.Context, id, userID string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? AND user_id = ?`
	row := r.db.QueryRowContext(ctx, query, id, userID)
	return r.scanSession(row)
}

func (r *SQLiteSessionRepo) FindRunning(ctx context.Context, userID string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE user_id = ? AND completed = 0
		ORDER BY start_at DESC LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, userID)
	return r.scanSession(row)
}

// MarkStopped persists a finalized session, conditional on the row still
// being running. A false return means another request stopped it first.
func (r *SQLiteSessionRepo) MarkStopped(ctx context.Context, s *domain.Session) (bool, error) {
	query := `UPDATE sessions
		SET end_at = ?, duration_minutes = ?, completed = 1
		WHERE id = ? AND user_id = ? AND completed = 0`
	res, err := r.db.ExecContext(ctx, query,
		nullableTimeToString(s.EndAt, time.RFC3339),
		s.DurationMinutes,
		s.ID,
		s.UserID,
	)
	if err != nil {
		return false, fmt.Errorf("stopping session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("stopping session: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteSessionRepo) HasQualifying(ctx context.Context, userID, taskID string, minMinutes int) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM sessions
		WHERE user_id = ? AND task_id = ? AND completed = 1 AND duration_minutes >= ?
	)`
	var exists int
	if err := r.db.QueryRowContext(ctx, query, userID, taskID, minMinutes).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking qualifying session: %w", err)
	}
	return exists == 1, nil
}

func (r *SQLiteSessionRepo) ListRecent(ctx context.Context, userID string, limit int) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE user_id = ? ORDER BY start_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent sessions: %w", err)
	}
	defer rows.Close()
	return r.scanSessions(rows)
}

// scanSession scans a single session from a *sql.Row.
func (r *SQLiteSessionRepo) scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	var taskID, endAt sql.NullString
	var sessType, startStr, createdStr string
	var completed int

	err := row.Scan(
		&s.ID, &s.UserID, &taskID, &sessType, &startStr, &endAt,
		&s.DurationMinutes, &completed, &s.Interruptions, &createdStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return r.populateSession(&s, taskID, sessType, startStr, endAt, completed, createdStr)
}

// scanSessions scans multiple sessions from *sql.Rows.
func (r *SQLiteSessionRepo) scanSessions(rows *sql.Rows) ([]*domain.Session, error) {
	var sessions []*domain.Session
	for rows.Next() {
		var s domain.Session
		var taskID, endAt sql.NullString
		var sessType, startStr, createdStr string
		var completed int

		err := rows.Scan(
			&s.ID, &s.UserID, &taskID, &sessType, &startStr, &endAt,
			&s.DurationMinutes, &completed, &s.Interruptions, &createdStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		session, parseErr := r.populateSession(&s, taskID, sessType, startStr, endAt, completed, createdStr)
		if parseErr != nil {
			return nil, parseErr
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

func (r *SQLiteSessionRepo) populateSession(s *domain.Session, taskID sql.NullString, sessType, startStr string, endAt sql.NullString, completed int, createdStr string) (*domain.Session, error) {
	if taskID.Valid && taskID.String != "" {
		id := taskID.String
		s.TaskID = &id
	}
	s.Type = domain.SessionType(sessType)
	s.Completed = intToBool(completed)
	s.EndAt = parseNullableTime(endAt, time.RFC3339)

	var err error
	if s.StartAt, err = time.Parse(time.RFC3339, startStr); err != nil {
		return nil, fmt.Errorf("parsing start_at: %w", err)
	}
	if s.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return s, nil
}
