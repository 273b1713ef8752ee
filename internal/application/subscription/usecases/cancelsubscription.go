package usecases

import (
	"context"
	"fmt"

	"github.com/petgourmet/ledgersync/internal/domain/subscription"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

type CancelSubscriptionCommand struct {
	SubscriptionID uint
	Reason         string
}

type CancelSubscriptionUseCase struct {
	subRepo subscription.Repository
	logger  logger.Interface
}

func NewCancelSubscriptionUseCase(subRepo subscription.Repository, logger logger.Interface) *CancelSubscriptionUseCase {
	return &CancelSubscriptionUseCase{subRepo: subRepo, logger: logger}
}

func (uc *CancelSubscriptionUseCase) Execute(ctx context.Context, cmd CancelSubscriptionCommand) (*subscription.Subscription, error) {
	sub, err := applyTransition(ctx, uc.subRepo, cmd.SubscriptionID, func(s *subscription.Subscription) error {
		if err := s.Cancel(); err != nil {
			return err
		}
		if cmd.Reason != "" {
			s.MergeMetadata(map[string]interface{}{"cancel_reason": cmd.Reason})
		}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to cancel subscription", "error", err, "subscription_id", cmd.SubscriptionID)
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	uc.logger.Infow("subscription cancelled",
		"subscription_id", sub.ID(),
		"reason", cmd.Reason,
		"status", sub.Status(),
	)
	return sub, nil
}
