package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobby4fischer/pettrack/internal/config"
	"github.com/bobby4fischer/pettrack/internal/db"
	"github.com/bobby4fischer/pettrack/internal/domain"
	"github.com/bobby4fischer/pettrack/internal/fanout"
	"github.com/bobby4fischer/pettrack/internal/repository"
)

type sessionService struct {
	conn      db.DBTX
	uow       db.UnitOfWork
	cfg       config.Config
	publisher fanout.Publisher
	observer  UseCaseObserver
}

func NewSessionService(
	conn db.DBTX,
	uow db.UnitOfWork,
	cfg config.Config,
	publisher fanout.Publisher,
	observers ...UseCaseObserver,
) SessionService {
	return &sessionService{
		conn:      conn,
		uow:       uow,
		cfg:       cfg,
		publisher: publisher,
		observer:  useCaseObserverOrNoop(observers),
	}
}

func (s *sessionService) Start(ctx context.Context, userID string, taskID *string) (sess *domain.Session, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"user_id": userID}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "session-start",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required: %w", ErrValidation)
	}
	if taskID != nil && strings.TrimSpace(*taskID) == "" {
		taskID = nil
	}

	sessions := repository.NewSQLiteSessionRepo(s.conn)
	if _, err := sessions.FindRunning(ctx, userID); err == nil {
		return nil, fmt.Errorf("a session is already running: %w", ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("checking running session: %w", err)
	}

	now := time.Now().UTC()
	sess = &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TaskID:    taskID,
		Type:      domain.SessionPomodoro,
		StartAt:   now,
		CreatedAt: now,
	}
	if err := sessions.Create(ctx, sess); err != nil {
		// The partial unique index on running sessions backstops the
		// pre-check under concurrent starts.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("a session is already running: %w", ErrConflict)
		}
		return nil, fmt.Errorf("creating session: %w", err)
	}
	fields["session_id"] = sess.ID
	return sess, nil
}

func (s *sessionService) Stop(ctx context.Context, userID, sessionID string) (sess *domain.Session, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"user_id": userID, "session_id": sessionID}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "session-stop",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	now := time.Now().UTC()
	stoppedNow := false
	rewarded := false

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txSessions := repository.NewSQLiteSessionRepo(tx)
		txUsers := repository.NewSQLiteUserRepo(tx)

		stored, err := txSessions.GetByID(ctx, sessionID, userID)
		if err != nil {
			return err
		}
		if stored.Completed {
			// Idempotent stop: return the stored record, no second reward.
			sess = stored
			return nil
		}

		stored.Stop(now)
		won, err := txSessions.MarkStopped(ctx, stored)
		if err != nil {
			return fmt.Errorf("stopping session: %w", err)
		}
		if !won {
			// A concurrent stop finalized it first; hand back its result.
			stored, err = txSessions.GetByID(ctx, sessionID, userID)
			if err != nil {
				return err
			}
			sess = stored
			return nil
		}
		stoppedNow = true

		if stored.DurationMinutes >= s.cfg.SessionRewardMinutes {
			if err := txUsers.Award(ctx, userID, s.cfg.SessionRewardGems); err != nil {
				return fmt.Errorf("awarding session reward: %w", err)
			}
			rewarded = true
		}
		sess = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields["duration_minutes"] = sess.DurationMinutes
	fields["rewarded"] = rewarded
	// The pet reacts to every stop this call performed; only the currency
	// award is gated on the duration threshold.
	if stoppedNow {
		s.publisher.Publish(userID, fanout.Event{
			Name:    fanout.EventPetReact,
			Payload: fanout.PetReact{Kind: fanout.ReactSessionComplete, SubjectID: sess.ID},
		})
	}
	if rewarded {
		s.publisher.Publish(userID, fanout.Event{
			Name:    fanout.EventRewardUpdate,
			Payload: fanout.RewardUpdate{CurrencyDelta: s.cfg.SessionRewardGems},
		})
	}
	return sess, nil
}

func (s *sessionService) History(ctx context.Context, userID string) ([]*domain.Session, error) {
	sessions := repository.NewSQLiteSessionRepo(s.conn)
	list, err := sessions.ListRecent(ctx, userID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return list, nil
}
