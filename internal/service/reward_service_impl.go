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

// StoreItem describes one purchasable item: its gem cost and the vitality
// restored when it is fed to the pet.
type StoreItem struct {
	Kind domain.ItemKind `json:"kind"`
	Cost int             `json:"cost"`
	Gain int             `json:"gain"`
}

var storeCatalog = []StoreItem{
	{Kind: domain.ItemFood, Cost: 9, Gain: 10},
	{Kind: domain.ItemMilk, Cost: 8, Gain: 5},
	{Kind: domain.ItemToys, Cost: 10, Gain: 15},
}

// StoreCatalog lists the purchasable items in display order.
func StoreCatalog() []StoreItem {
	out := make([]StoreItem, len(storeCatalog))
	copy(out, storeCatalog)
	return out
}

func storeItemFor(kind domain.ItemKind) (StoreItem, bool) {
	for _, item := range storeCatalog {
		if item.Kind == kind {
			return item, true
		}
	}
	return StoreItem{}, false
}

type rewardService struct {
	conn      db.DBTX
	uow       db.UnitOfWork
	cfg       config.Config
	publisher fanout.Publisher
	observer  UseCaseObserver
}

func NewRewardService(
	conn db.DBTX,
	uow db.UnitOfWork,
	cfg config.Config,
	publisher fanout.Publisher,
	observers ...UseCaseObserver,
) RewardService {
	return &rewardService{
		conn:      conn,
		uow:       uow,
		cfg:       cfg,
		publisher: publisher,
		observer:  useCaseObserverOrNoop(observers),
	}
}

// Balance returns the full ledger row. Store views render pet state, so the
// read goes through the same decay catch-up the pet endpoints use.
func (s *rewardService) Balance(ctx context.Context, userID string) (*domain.User, error) {
	users := repository.NewSQLiteUserRepo(s.conn)
	return loadCaughtUp(ctx, users, s.cfg, userID, time.Now().UTC())
}

func (s *rewardService) Award(ctx context.Context, userID string, amount int) (u *domain.User, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"user_id": userID, "amount": amount}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "reward-award",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	if amount <= 0 {
		return nil, fmt.Errorf("award amount must be positive: %w", ErrValidation)
	}

	users := repository.NewSQLiteUserRepo(s.conn)
	if err := users.Award(ctx, userID, amount); err != nil {
		return nil, err
	}
	u, err = users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(userID, fanout.Event{
		Name:    fanout.EventRewardUpdate,
		Payload: fanout.RewardUpdate{CurrencyDelta: amount},
	})
	return u, nil
}

// Spend clamps the balance at zero instead of failing, so the published delta
// is the amount actually debited, not the amount requested.
func (s *rewardService) Spend(ctx context.Context, userID string, amount int) (u *domain.User, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"user_id": userID, "amount": amount}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "reward-spend",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	if amount <= 0 {
		return nil, fmt.Errorf("spend amount must be positive: %w", ErrValidation)
	}

	debited := 0
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txUsers := repository.NewSQLiteUserRepo(tx)
		before, err := txUsers.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := txUsers.SpendClamped(ctx, userID, amount); err != nil {
			return err
		}
		debited = amount
		if before.Gems < amount {
			debited = before.Gems
		}
		u, err = txUsers.GetByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	fields["debited"] = debited
	if debited > 0 {
		s.publisher.Publish(userID, fanout.Event{
			Name:    fanout.EventRewardUpdate,
			Payload: fanout.RewardUpdate{CurrencyDelta: -debited},
		})
	}
	return u, nil
}

func (s *rewardService) Purchase(ctx context.Context, userID string, kind domain.ItemKind) (u *domain.User, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"user_id": userID, "kind": string(kind)}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "store-purchase",
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

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txUsers := repository.NewSQLiteUserRepo(tx)
		bought, err := txUsers.PurchaseItem(ctx, userID, kind, item.Cost)
		if err != nil {
			return fmt.Errorf("purchasing %s: %w", kind, err)
		}
		if !bought {
			// Distinguish a missing user from an empty wallet.
			if _, err := txUsers.GetByID(ctx, userID); err != nil {
				return err
			}
			return fmt.Errorf("%s costs %d gems: %w", kind, item.Cost, ErrInsufficientFunds)
		}
		u, err = txUsers.GetByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(userID, fanout.Event{
		Name:    fanout.EventRewardUpdate,
		Payload: fanout.RewardUpdate{CurrencyDelta: -item.Cost},
	})
	return u, nil
}
