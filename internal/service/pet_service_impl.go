package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bobby4fischer/pettrack/internal/config"
	"github.com/bobby4fischer/pettrack/internal/db"
	"github.com/bobby4fischer/pettrack/internal/domain"
	"github.com/bobby4fischer/pettrack/internal/fanout"
	"github.com/bobby4fischer/pettrack/internal/repository"
)

// petStateRetries bounds the optimistic-write loop. Pet writes race only with
// the same user's other devices, so contention beyond a couple of rounds
// means the state was already caught up by the winner.
const petStateRetries = 3

type petService struct {
	conn      db.DBTX
	uow       db.UnitOfWork
	cfg       config.Config
	publisher fanout.Publisher
	observer  UseCaseObserver
}

func NewPetService(
	conn db.DBTX,
	uow db.UnitOfWork,
	cfg config.Config,
	publisher fanout.Publisher,
	observers ...UseCaseObserver,
) PetService {
	return &petService{
		conn:      conn,
		uow:       uow,
		cfg:       cfg,
		publisher: publisher,
		observer:  useCaseObserverOrNoop(observers),
	}
}

// loadCaughtUp reads the user with the pet decayed up to now, persisting the
// catch-up through a compare-and-swap on the stored decay cursor. Losing the
// swap is fine because the winner performed the identical catch-up. Every
// handler that returns pet state to a caller goes through this read.
func loadCaughtUp(ctx context.Context, users repository.UserRepo, cfg config.Config, userID string, now time.Time) (*domain.User, error) {
	for attempt := 0; attempt < petStateRetries; attempt++ {
		u, err := users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		cursor := u.Pet.LastDecayAt
		if !u.Pet.ApplyDecay(now, cfg.DecayUnit, cfg.DecayRatePerUnit) {
			return u, nil
		}
		ok, err := users.SavePetState(ctx, userID, u.Pet, cursor)
		if err != nil {
			return nil, fmt.Errorf("saving pet state: %w", err)
		}
		if ok {
			return u, nil
		}
	}

	// Every attempt lost the swap; the stored row is already current.
	return users.GetByID(ctx, userID)
}

func (s *petService) Get(ctx context.Context, userID string) (*domain.User, error) {
	users := repository.NewSQLiteUserRepo(s.conn)
	return loadCaughtUp(ctx, users, s.cfg, userID, time.Now().UTC())
}

func (s *petService) Feed(ctx context.Context, userID string, kind domain.ItemKind) (u *domain.User, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"user_id": userID, "kind": string(kind)}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "pet-feed",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	item, ok := storeItemFor(kind)
	if !ok {
		return nil, fmt.Errorf("unknown item kind '%s': %w", kind, ErrValidation)
	}

	users := repository.NewSQLiteUserRepo(s.conn)
	now := time.Now().UTC()

	for attempt := 0; attempt < petStateRetries; attempt++ {
		u, err = users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		cursor := u.Pet.LastDecayAt

		// Decay first so the gain lands on an up-to-date baseline, and so a
		// pet that expired while offline cannot be fed back to life.
		u.Pet.ApplyDecay(now, s.cfg.DecayUnit, s.cfg.DecayRatePerUnit)
		if u.Pet.Expired() {
			return nil, fmt.Errorf("pet has expired and must be renewed: %w", ErrConflict)
		}

		if u.Inventory.Count(kind) == 0 {
			// Feeding with an empty slot is a quiet no-op; still persist the
			// catch-up decay when there was any.
			fields["fed"] = false
			if !u.Pet.LastDecayAt.Equal(cursor) {
				if _, err := users.SavePetState(ctx, userID, u.Pet, cursor); err != nil {
					return nil, fmt.Errorf("saving pet state: %w", err)
				}
			}
			return u, nil
		}

		fed := u.Pet
		fed.Restore(item.Gain)
		applied, err := users.ApplyFeed(ctx, userID, kind, fed, cursor)
		if err != nil {
			return nil, fmt.Errorf("feeding pet: %w", err)
		}
		if applied {
			u.Pet = fed
			u.Inventory.Remove(kind)
			fields["fed"] = true
			fields["vitality"] = u.Pet.Vitality
			return u, nil
		}
	}

	return nil, fmt.Errorf("feeding pet: state changed concurrently: %w", ErrConflict)
}

func (s *petService) Renew(ctx context.Context, userID string) (u *domain.User, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"user_id": userID}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "pet-renew",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	now := time.Now().UTC()
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txUsers := repository.NewSQLiteUserRepo(tx)
		stored, err := txUsers.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		stored.Pet.ApplyDecay(now, s.cfg.DecayUnit, s.cfg.DecayRatePerUnit)
		if !stored.Pet.Expired() {
			return fmt.Errorf("pet has not expired: %w", ErrConflict)
		}

		stored.RenewPet(now)
		if err := txUsers.ResetLedger(ctx, userID, stored.Pet); err != nil {
			return fmt.Errorf("renewing pet: %w", err)
		}
		u = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}
