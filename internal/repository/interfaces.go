package repository

import (
	"context"
	"time"

	"github.com/bobby4fischer/pettrack/internal/domain"
)

// UserRepo owns the user row: identity, currency balance, pet state, and
// inventory. Balance arithmetic happens inside SQL against the persisted
// value so concurrent mutations never lose updates.
type UserRepo interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Award credits amount gems unconditionally.
	Award(ctx context.Context, id string, amount int) error
	// SpendClamped debits amount gems, flooring the balance at zero.
	SpendClamped(ctx context.Context, id string, amount int) error
	// PurchaseItem debits cost and increments the item count (capped) in one
	// conditional update. Returns false when the balance is insufficient.
	PurchaseItem(ctx context.Context, id string, kind domain.ItemKind, cost int) (bool, error)

	// SavePetState writes pet vitality and decay cursor, guarded by a
	// compare-and-swap on the previously read decay cursor. Returns false
	// when a concurrent writer advanced the cursor first.
	SavePetState(ctx context.Context, id string, pet domain.Pet, expectedLastDecayAt time.Time) (bool, error)
	// ApplyFeed is SavePetState plus an inventory decrement for kind,
	// additionally conditional on at least one item remaining.
	ApplyFeed(ctx context.Context, id string, kind domain.ItemKind, pet domain.Pet, expectedLastDecayAt time.Time) (bool, error)
	// ResetLedger overwrites pet state and zeroes gems and inventory
	// (pet renewal).
	ResetLedger(ctx context.Context, id string, pet domain.Pet) error

	// ListOptedIn returns users who accept digest email, for the aggregator.
	ListOptedIn(ctx context.Context) ([]*domain.User, error)
	SetLastDigestSentAt(ctx context.Context, id string, at time.Time) error
}

// TaskRepo owns task rows. All getters are owner-scoped: an id belonging to
// another user behaves exactly like a missing row.
type TaskRepo interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id, userID string) (*domain.Task, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Task, error)
	// CompleteIfQualified flips status pending -> completed in a single
	// conditional update whose predicate requires a qualifying session
	// (same owner, same task, completed, duration >= minMinutes) to exist
	// at the moment of the write. Returns false when nothing was updated.
	CompleteIfQualified(ctx context.Context, id, userID string, minMinutes int, now time.Time) (bool, error)
	Delete(ctx context.Context, id, userID string) error

	// Digest read interface.
	ListCompletedSince(ctx context.Context, userID string, since time.Time) ([]*domain.Task, error)
	ListPending(ctx context.Context, userID string) ([]*domain.Task, error)
}

// SessionRepo owns focus-session rows.
type SessionRepo interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id, userID string) (*domain.Session, error)
	// FindRunning returns the user's running session, or ErrNotFound.
	FindRunning(ctx context.Context, userID string) (*domain.Session, error)
	// MarkStopped persists a stop, conditional on the row still being
	// running. Returns false when a concurrent stop won the race.
	MarkStopped(ctx context.Context, s *domain.Session) (bool, error)
	// HasQualifying reports whether a completed session of at least
	// minMinutes exists for the given owner and task.
	HasQualifying(ctx context.Context, userID, taskID string, minMinutes int) (bool, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]*domain.Session, error)
}

// ActivityRepo appends activity events from the detection collaborator.
type ActivityRepo interface {
	Create(ctx context.Context, e *domain.ActivityEvent) error
	ListRecent(ctx context.Context, userID string, limit int) ([]*domain.ActivityEvent, error)
}

// NotificationLogRepo records delivered digests for rate limiting.
type NotificationLogRepo interface {
	Create(ctx context.Context, n *domain.NotificationLog) error
	LastSentAt(ctx context.Context, userID string) (*time.Time, error)
}
