package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bobby4fischer/pettrack/internal/config"
	"github.com/bobby4fischer/pettrack/internal/db"
	"github.com/bobby4fischer/pettrack/internal/domain"
	"github.com/bobby4fischer/pettrack/internal/repository"
)

// DigestSummary is the content of one periodic progress email.
type DigestSummary struct {
	GeneratedAt    time.Time `json:"generatedAt"`
	WindowStart    time.Time `json:"windowStart"`
	CompletedTasks []string  `json:"completedTasks"`
	PendingTasks   []string  `json:"pendingTasks"`
	PetVitality    int       `json:"petVitality"`
	PetMood        string    `json:"petMood"`
	Gems           int       `json:"gems"`
}

type digestService struct {
	conn     db.DBTX
	uow      db.UnitOfWork
	cfg      config.Config
	mailer   Mailer
	observer UseCaseObserver
}

func NewDigestService(
	conn db.DBTX,
	uow db.UnitOfWork,
	cfg config.Config,
	mailer Mailer,
	observers ...UseCaseObserver,
) DigestService {
	return &digestService{
		conn:     conn,
		uow:      uow,
		cfg:      cfg,
		mailer:   mailer,
		observer: useCaseObserverOrNoop(observers),
	}
}

// RunOnce walks every opted-in user and delivers a digest to those whose
// rate-limit window has elapsed. One user's failure never blocks the rest;
// the bookkeeping write happens only after successful delivery, so a failed
// send retries on the next tick.
func (s *digestService) RunOnce(ctx context.Context, now time.Time) (sent int, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		fields["sent"] = sent
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "digest-run",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	users := repository.NewSQLiteUserRepo(s.conn)
	optedIn, err := users.ListOptedIn(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing digest recipients: %w", err)
	}
	fields["candidates"] = len(optedIn)

	var failures int
	for _, u := range optedIn {
		delivered, deliverErr := s.deliverOne(ctx, u, now)
		if deliverErr != nil {
			failures++
			continue
		}
		if delivered {
			sent++
		}
	}
	fields["failures"] = failures
	return sent, nil
}

func (s *digestService) deliverOne(ctx context.Context, u *domain.User, now time.Time) (bool, error) {
	notifications := repository.NewSQLiteNotificationLogRepo(s.conn)

	last, err := notifications.LastSentAt(ctx, u.ID)
	if err != nil {
		return false, err
	}
	if last == nil {
		last = u.LastDigestSentAt
	}
	windowStart := now.Add(-s.cfg.DigestWindow)
	if last != nil {
		if now.Sub(*last) < s.cfg.DigestWindow {
			return false, nil
		}
		windowStart = *last
	}

	summary, err := s.compose(ctx, u, now, windowStart)
	if err != nil {
		return false, err
	}

	if err := s.mailer.SendDigest(ctx, u.Email, summary); err != nil {
		return false, fmt.Errorf("sending digest to %s: %w", u.Email, err)
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return false, fmt.Errorf("encoding digest summary: %w", err)
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txNotifications := repository.NewSQLiteNotificationLogRepo(tx)
		txUsers := repository.NewSQLiteUserRepo(tx)
		if err := txNotifications.Create(ctx, &domain.NotificationLog{
			ID:      uuid.NewString(),
			UserID:  u.ID,
			SentAt:  now,
			Summary: string(payload),
		}); err != nil {
			return err
		}
		return txUsers.SetLastDigestSentAt(ctx, u.ID, now)
	})
	if err != nil {
		return false, fmt.Errorf("recording digest delivery: %w", err)
	}
	return true, nil
}

func (s *digestService) compose(ctx context.Context, u *domain.User, now, windowStart time.Time) (DigestSummary, error) {
	tasks := repository.NewSQLiteTaskRepo(s.conn)

	completed, err := tasks.ListCompletedSince(ctx, u.ID, windowStart)
	if err != nil {
		return DigestSummary{}, err
	}
	pending, err := tasks.ListPending(ctx, u.ID)
	if err != nil {
		return DigestSummary{}, err
	}

	// Decayed view for display only; persistence is the read path's job.
	pet := u.Pet
	pet.ApplyDecay(now, s.cfg.DecayUnit, s.cfg.DecayRatePerUnit)

	return DigestSummary{
		GeneratedAt:    now,
		WindowStart:    windowStart,
		CompletedTasks: taskTitles(completed),
		PendingTasks:   taskTitles(pending),
		PetVitality:    pet.Vitality,
		PetMood:        string(pet.Mood()),
		Gems:           u.Gems,
	}, nil
}

func taskTitles(tasks []*domain.Task) []string {
	titles := make([]string, 0, len(tasks))
	for _, t := range tasks {
		titles = append(titles, t.Title)
	}
	return titles
}
