package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bobby4fischer/pettrack/internal/db"
	"github.com/bobby4fischer/pettrack/internal/domain"
)

// SQLiteTaskRepo implements TaskRepo using a SQLite database.
type SQLiteTaskRepo struct {
	db db.DBTX
}

// NewSQLiteTaskRepo creates a new SQLiteTaskRepo.
func NewSQLiteTaskRepo(conn db.DBTX) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{db: conn}
}

const taskColumns = `id, user_id, title, description, category, status, completed_at, created_at, updated_at`

func (r *SQLiteTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.UserID,
		t.Title,
		t.Description,
		t.Category,
		string(t.Status),
		nullableTimeToString(t.CompletedAt, time.RFC3339),
		t.CreatedAt.Format(time.RFC3339),
		t.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (r *SQLiteTaskRepo) GetByID(ctx context.Context, id, userID string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_id = ?`
	row := r.db.QueryRowContext(ctx, query, id, userID)
	return r.scanTask(row)
}

func (r *SQLiteTaskRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()
	return r.scanTasks(rows)
}

// CompleteIfQualified is the completion gate: the status flip and the
// qualifying-session check happen in one conditional UPDATE, so two
// concurrent completion attempts can never both succeed.
func (r *SQLiteTaskRepo) CompleteIfQualified(ctx context.Context, id, userID string, minMinutes int, now time.Time) (bool, error) {
	query := `UPDATE tasks
		SET status = 'completed', completed_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND status = 'pending'
		  AND EXISTS (
			SELECT 1 FROM sessions
			WHERE sessions.user_id = tasks.user_id
			  AND sessions.task_id = tasks.id
			  AND sessions.completed = 1
			  AND sessions.duration_minutes >= ?
		  )`
	nowStr := now.Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx, query, nowStr, nowStr, id, userID, minMinutes)
	if err != nil {
		return false, fmt.Errorf("completing task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("completing task: %w", err)
	}
	return n == 1, nil
}

// Delete removes a task regardless of status. Deleting an absent task is not
// an error; the weak reference from any surviving session simply dangles.
func (r *SQLiteTaskRepo) Delete(ctx context.Context, id, userID string) error {
	query := `DELETE FROM tasks WHERE id = ? AND user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

func (r *SQLiteTaskRepo) ListCompletedSince(ctx context.Context, userID string, since time.Time) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE user_id = ? AND status = 'completed' AND completed_at >= ?
		ORDER BY completed_at`
	rows, err := r.db.QueryContext(ctx, query, userID, since.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("listing completed tasks: %w", err)
	}
	defer rows.Close()
	return r.scanTasks(rows)
}

func (r *SQLiteTaskRepo) ListPending(ctx context.Context, userID string) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE user_id = ? AND status = 'pending'
		ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing pending tasks: %w", err)
	}
	defer rows.Close()
	return r.scanTasks(rows)
}

// scanTask scans a single task from a *sql.Row.
func (r *SQLiteTaskRepo) scanTask(row *sql.Row) (*domain.Task, error) {
	var t domain.Task
	var status string
	var completedAt sql.NullString
	var createdStr, updatedStr string

	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Category,
		&status, &completedAt, &createdStr, &updatedStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("task: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}
	return r.populateTask(&t, status, completedAt, createdStr, updatedStr)
}

// scanTasks scans multiple tasks from *sql.Rows.
func (r *SQLiteTaskRepo) scanTasks(rows *sql.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		var t domain.Task
		var status string
		var completedAt sql.NullString
		var createdStr, updatedStr string

		err := rows.Scan(
			&t.ID, &t.UserID, &t.Title, &t.Description, &t.Category,
			&status, &completedAt, &createdStr, &updatedStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		task, parseErr := r.populateTask(&t, status, completedAt, createdStr, updatedStr)
		if parseErr != nil {
			return nil, parseErr
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

func (r *SQLiteTaskRepo) populateTask(t *domain.Task, status string, completedAt sql.NullString, createdStr, updatedStr string) (*domain.Task, error) {
	t.Status = domain.TaskStatus(status)
	t.CompletedAt = parseNullableTime(completedAt, time.RFC3339)

	var err error
	if t.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return t, nil
}
