package domain

import "time"

// Task is a unit of work a user wants to finish. It can only transition
// pending -> completed, and only through the completion gate; once completed
// it is immutable except for deletion.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Category    string
	Status      TaskStatus
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Completed reports whether the task has reached its terminal status.
func (t *Task) Completed() bool {
	return t.Status == TaskCompleted
}
