package service

import (
	"context"
	"time"

	"github.com/bobby4fischer/pettrack/internal/domain"
)

type SessionService interface {
	// Start opens a focus session, optionally linked to a task.
	// Fails with ErrConflict when the user already has a running session.
	Start(ctx context.Context, userID string, taskID *string) (*domain.Session, error)
	// Stop finalizes a running session. Stopping an already-stopped session
	// returns the stored record unchanged.
	Stop(ctx context.Context, userID, sessionID string) (*domain.Session, error)
	History(ctx context.Context, userID string) ([]*domain.Session, error)
}

type TaskService interface {
	Create(ctx context.Context, t *domain.Task) error
	List(ctx context.Context, userID string) ([]*domain.Task, error)
	// Complete flips a pending task to completed, gated on a qualifying
	// session. Fails with ErrGateDenied when none exists.
	Complete(ctx context.Context, userID, taskID string) (*domain.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
}

type RewardService interface {
	Balance(ctx context.Context, userID string) (*domain.User, error)
	Award(ctx context.Context, userID string, amount int) (*domain.User, error)
	// Spend debits gems, clamping the balance at zero rather than failing.
	Spend(ctx context.Context, userID string, amount int) (*domain.User, error)
	// Purchase debits the catalog cost and adds one item to inventory.
	Purchase(ctx context.Context, userID string, kind domain.ItemKind) (*domain.User, error)
}

type PetService interface {
	// Get returns the user with decay caught up and persisted.
	Get(ctx context.Context, userID string) (*domain.User, error)
	// Feed consumes one inventory item to restore vitality. A missing item
	// is a silent no-op; an expired pet fails with ErrConflict.
	Feed(ctx context.Context, userID string, kind domain.ItemKind) (*domain.User, error)
	// Renew resets an expired pet and zeroes gems and inventory.
	Renew(ctx context.Context, userID string) (*domain.User, error)
}

type ActivityService interface {
	Record(ctx context.Context, e *domain.ActivityEvent) error
}

type DigestService interface {
	// RunOnce composes and delivers digests for every opted-in user whose
	// rate-limit window has elapsed. Returns the number delivered.
	RunOnce(ctx context.Context, now time.Time) (int, error)
}

// Mailer delivers a composed digest. Delivery is an external collaborator;
// the core only depends on this interface.
type Mailer interface {
	SendDigest(ctx context.Context, to string, summary DigestSummary) error
}
