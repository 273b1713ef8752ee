package usecases

import (
	"context"
	"fmt"

	"github.com/petgourmet/ledgersync/internal/domain/subscription"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

type ResumeSubscriptionCommand struct {
	SubscriptionID uint
}

type ResumeSubscriptionUseCase struct {
	subRepo subscription.Repository
	logger  logger.Interface
}

func NewResumeSubscriptionUseCase(subRepo subscription.Repository, logger logger.Interface) *ResumeSubscriptionUseCase {
	return &ResumeSubscriptionUseCase{subRepo: subRepo, logger: logger}
}

func (uc *ResumeSubscriptionUseCase) Execute(ctx context.Context, cmd ResumeSubscriptionCommand) (*subscription.Subscription, error) {
	sub, err := applyTransition(ctx, uc.subRepo, cmd.SubscriptionID, func(s *subscription.Subscription) error {
		return s.Resume()
	})
	if err != nil {
		uc.logger.Errorw("failed to resume subscription", "error", err, "subscription_id", cmd.SubscriptionID)
		return nil, fmt.Errorf("failed to resume subscription: %w", err)
	}

	uc.logger.Infow("subscription resumed", "subscription_id", sub.ID(), "status", sub.Status())
	return sub, nil
}
