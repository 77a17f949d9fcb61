package service

import (
	"context"
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

type taskService struct {
	conn      db.DBTX
	uow       db.UnitOfWork
	cfg       config.Config
	publisher fanout.Publisher
	observer  UseCaseObserver
}

func NewTaskService(
	conn db.DBTX,
	uow db.UnitOfWork,
	cfg config.Config,
	publisher fanout.Publisher,
	observers ...UseCaseObserver,
) TaskService {
	return &taskService{
		conn:      conn,
		uow:       uow,
		cfg:       cfg,
		publisher: publisher,
		observer:  useCaseObserverOrNoop(observers),
	}
}

func (s *taskService) Create(ctx context.Context, t *domain.Task) error {
	if strings.TrimSpace(t.UserID) == "" {
		return fmt.Errorf("user id is required: %w", ErrValidation)
	}
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return fmt.Errorf("title is required: %w", ErrValidation)
	}

	now := time.Now().UTC()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Status = domain.TaskPending
	t.CompletedAt = nil
	t.CreatedAt = now
	t.UpdatedAt = now

	tasks := repository.NewSQLiteTaskRepo(s.conn)
	if err := tasks.Create(ctx, t); err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

func (s *taskService) List(ctx context.Context, userID string) ([]*domain.Task, error) {
	tasks := repository.NewSQLiteTaskRepo(s.conn)
	list, err := tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return list, nil
}

// Complete flips a pending task to completed behind the session gate. The
// gate predicate runs inside the same conditional update that flips status,
// so two concurrent attempts can never both succeed or double-award.
func (s *taskService) Complete(ctx context.Context, userID, taskID string) (task *domain.Task, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"user_id": userID, "task_id": taskID}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "task-complete",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	now := time.Now().UTC()
	rewarded := false

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txTasks := repository.NewSQLiteTaskRepo(tx)
		txUsers := repository.NewSQLiteUserRepo(tx)

		won, err := txTasks.CompleteIfQualified(ctx, taskID, userID, s.cfg.QualifyingMinutes, now)
		if err != nil {
			return fmt.Errorf("completing task: %w", err)
		}
		if !won {
			// Nothing updated: missing, already completed, or gate denied.
			stored, err := txTasks.GetByID(ctx, taskID, userID)
			if err != nil {
				return err
			}
			if stored.Completed() {
				// Repeat completion is a no-op, never a second reward.
				task = stored
				return nil
			}
			return fmt.Errorf("complete a %d-minute session linked to this task first: %w",
				s.cfg.QualifyingMinutes, ErrGateDenied)
		}

		if err := txUsers.Award(ctx, userID, s.cfg.TaskRewardGems); err != nil {
			return fmt.Errorf("awarding task reward: %w", err)
		}
		rewarded = true

		task, err = txTasks.GetByID(ctx, taskID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	fields["rewarded"] = rewarded
	if rewarded {
		s.publisher.Publish(userID, fanout.Event{
			Name:    fanout.EventPetReact,
			Payload: fanout.PetReact{Kind: fanout.ReactTaskComplete, SubjectID: task.ID},
		})
		s.publisher.Publish(userID, fanout.Event{
			Name:    fanout.EventRewardUpdate,
			Payload: fanout.RewardUpdate{CurrencyDelta: s.cfg.TaskRewardGems},
		})
	}
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, userID, taskID string) error {
	tasks := repository.NewSQLiteTaskRepo(s.conn)
	return tasks.Delete(ctx, taskID, userID)
}
