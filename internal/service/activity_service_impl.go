package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobby4fischer/pettrack/internal/db"
	"github.com/bobby4fischer/pettrack/internal/domain"
	"github.com/bobby4fischer/pettrack/internal/fanout"
	"github.com/bobby4fischer/pettrack/internal/repository"
)

type activityService struct {
	conn      db.DBTX
	publisher fanout.Publisher
	observer  UseCaseObserver
}

func NewActivityService(conn db.DBTX, publisher fanout.Publisher, observers ...UseCaseObserver) ActivityService {
	return &activityService{
		conn:      conn,
		publisher: publisher,
		observer:  useCaseObserverOrNoop(observers),
	}
}

// Record appends one report from the activity-detection collaborator and
// relays it to the user's live connections as an idle alert.
func (s *activityService) Record(ctx context.Context, e *domain.ActivityEvent) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"user_id": e.UserID, "kind": string(e.Kind)}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "activity-record",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	if strings.TrimSpace(e.UserID) == "" {
		return fmt.Errorf("user id is required: %w", ErrValidation)
	}
	if !domain.ValidActivityKinds[e.Kind] {
		return fmt.Errorf("unknown activity kind '%s': %w", e.Kind, ErrValidation)
	}

	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	e.CreatedAt = now

	events := repository.NewSQLiteActivityRepo(s.conn)
	if err := events.Create(ctx, e); err != nil {
		return fmt.Errorf("recording activity: %w", err)
	}

	s.publisher.Publish(e.UserID, fanout.Event{
		Name:    fanout.EventIdleAlert,
		Payload: fanout.IdleAlert{Kind: string(e.Kind), Context: e.Context},
	})
	return nil
}
