package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bobby4fischer/pettrack/internal/domain"
	"github.com/google/uuid"
)

var testEmailCounter atomic.Int64

// User options
type UserOption func(*domain.User)

func WithGems(n int) UserOption {
	return func(u *domain.User) {
		u.Gems = n
	}
}

func WithVitality(v int) UserOption {
	return func(u *domain.User) {
		u.Pet.Vitality = v
	}
}

func WithLastDecayAt(t time.Time) UserOption {
	return func(u *domain.User) {
		u.Pet.LastDecayAt = t
	}
}

func WithInventory(inv domain.Inventory) UserOption {
	return func(u *domain.User) {
		u.Inventory = inv
	}
}

func WithEmailOptIn(optIn bool) UserOption {
	return func(u *domain.User) {
		u.EmailOptIn = optIn
	}
}

func NewTestUser(name string, opts ...UserOption) *domain.User {
	now := time.Now().UTC().Truncate(time.Second)
	n := testEmailCounter.Add(1)
	u := &domain.User{
		ID:          uuid.New().String(),
		Email:       fmt.Sprintf("%s%d@example.com", name, n),
		DisplayName: name,
		Gems:        0,
		EmailOptIn:  true,
		Pet:         domain.Pet{Vitality: domain.VitalityMax, LastDecayAt: now},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Task options
type TaskOption func(*domain.Task)

func WithTaskStatus(s domain.TaskStatus) TaskOption {
	return func(t *domain.Task) {
		t.Status = s
	}
}

func WithCompletedAt(at time.Time) TaskOption {
	return func(t *domain.Task) {
		t.Status = domain.TaskCompleted
		t.CompletedAt = &at
	}
}

func WithCategory(c string) TaskOption {
	return func(t *domain.Task) {
		t.Category = c
	}
}

func NewTestTask(userID, title string, opts ...TaskOption) *domain.Task {
	now := time.Now().UTC().Truncate(time.Second)
	t := &domain.Task{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Status:    domain.TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Session options
type SessionOption func(*domain.Session)

func WithTaskID(id string) SessionOption {
	return func(s *domain.Session) {
		s.TaskID = &id
	}
}

func WithStartAt(t time.Time) SessionOption {
	return func(s *domain.Session) {
		s.StartAt = t
	}
}

// Stopped finalizes the fixture session with the given duration.
func Stopped(minutes int) SessionOption {
	return func(s *domain.Session) {
		end := s.StartAt.Add(time.Duration(minutes) * time.Minute)
		s.EndAt = &end
		s.DurationMinutes = minutes
		s.Completed = true
	}
}

func NewTestSession(userID string, opts ...SessionOption) *domain.Session {
	now := time.Now().UTC().Truncate(time.Second)
	s := &domain.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      domain.SessionPomodoro,
		StartAt:   now.Add(-30 * time.Minute),
		CreatedAt: now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
