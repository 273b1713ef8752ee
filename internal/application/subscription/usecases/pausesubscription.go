package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/petgourmet/ledgersync/internal/domain/subscription"
	apperrors "github.com/petgourmet/ledgersync/internal/shared/errors"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

type PauseSubscriptionCommand struct {
	SubscriptionID uint
}

type PauseSubscriptionUseCase struct {
	subRepo subscription.Repository
	logger  logger.Interface
}

func NewPauseSubscriptionUseCase(subRepo subscription.Repository, logger logger.Interface) *PauseSubscriptionUseCase {
	return &PauseSubscriptionUseCase{subRepo: subRepo, logger: logger}
}

func (uc *PauseSubscriptionUseCase) Execute(ctx context.Context, cmd PauseSubscriptionCommand) (*subscription.Subscription, error) {
	sub, err := applyTransition(ctx, uc.subRepo, cmd.SubscriptionID, func(s *subscription.Subscription) error {
		return s.Pause()
	})
	if err != nil {
		uc.logger.Errorw("failed to pause subscription", "error", err, "subscription_id", cmd.SubscriptionID)
		return nil, fmt.Errorf("failed to pause subscription: %w", err)
	}

	uc.logger.Infow("subscription paused", "subscription_id", sub.ID(), "status", sub.Status())
	return sub, nil
}

// applyTransition runs a domain transition under the conditional-update
// protocol: read, mutate, write guarded by the status we read. A lost race
// gets exactly one re-read and retry.
func applyTransition(
	ctx context.Context,
	repo subscription.Repository,
	id uint,
	transition func(*subscription.Subscription) error,
) (*subscription.Subscription, error) {
	for attempt := 0; attempt < 2; attempt++ {
		sub, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, subscription.ErrSubscriptionNotFound) {
				return nil, apperrors.NewNotFoundError("subscription not found", fmt.Sprintf("subscription_id=%d", id))
			}
			return nil, err
		}

		expected := sub.Status()
		if err := transition(sub); err != nil {
			return nil, apperrors.NewInvariantError("illegal status transition", err.Error())
		}

		if sub.Status() == expected {
			return sub, nil
		}

		if err := repo.UpdateIfStatus(ctx, sub, expected); err != nil {
			if apperrors.IsStoreConflictError(err) && attempt == 0 {
				continue
			}
			return nil, err
		}
		return sub, nil
	}

	return nil, apperrors.NewStoreConflictError("subscription changed concurrently")
}
