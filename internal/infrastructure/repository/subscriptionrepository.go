package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/petgourmet/ledgersync/internal/domain/subscription"
	vo "github.com/petgourmet/ledgersync/internal/domain/subscription/valueobjects"
	"github.com/petgourmet/ledgersync/internal/infrastructure/persistence/mappers"
	"github.com/petgourmet/ledgersync/internal/infrastructure/persistence/models"
	"github.com/petgourmet/ledgersync/internal/shared/db"
	apperrors "github.com/petgourmet/ledgersync/internal/shared/errors"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

func NewSubscriptionRepository(db *gorm.DB, logger logger.Interface) subscription.Repository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, entity *subscription.Subscription) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		return fmt.Errorf("failed to map subscription entity: %w", err)
	}
	model.ID = 0

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create subscription", "error", err)
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := entity.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set subscription ID: %w", err)
	}

	r.logger.Infow("subscription created", "id", model.ID, "correlation_key", model.CorrelationKey)
	return nil
}

// UpdateIfStatus writes the full row guarded by a status predicate; zero
// affected rows surfaces as a store conflict for the caller to retry.
func (r *SubscriptionRepositoryImpl) UpdateIfStatus(ctx context.Context, entity *subscription.Subscription, expected vo.SubscriptionStatus) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		return fmt.Errorf("failed to map subscription entity: %w", err)
	}

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Where("id = ? AND status = ?", entity.ID(), expected.String()).
		Updates(map[string]interface{}{
			"product_name":             model.ProductName,
			"provider_subscription_id": model.ProviderSubscriptionID,
			"provider_payment_id":      model.ProviderPaymentID,
			"provider_preference_id":   model.ProviderPreferenceID,
			"status":                   model.Status,
			"last_billing_date":        model.LastBillingDate,
			"next_billing_date":        model.NextBillingDate,
			"activated_at":             model.ActivatedAt,
			"trial_end_date":           model.TrialEndDate,
			"cancelled_at":             model.CancelledAt,
			"charges_made":             model.ChargesMade,
			"metadata":                 model.Metadata,
			"version":                  gorm.Expr("version + 1"),
			"updated_at":               model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update subscription", "id", entity.ID(), "error", result.Error)
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewStoreConflictError("subscription status changed concurrently",
			fmt.Sprintf("subscription_id=%d expected=%s", entity.ID(), expected))
	}

	return nil
}

func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		r.logger.Errorw("failed to get subscription by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *SubscriptionRepositoryImpl) GetByProviderSubscriptionID(ctx context.Context, providerID string) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := db.GetTxFromContext(ctx, r.db).Where("provider_subscription_id = ?", providerID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		r.logger.Errorw("failed to get subscription by provider id", "provider_subscription_id", providerID, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *SubscriptionRepositoryImpl) ListByCorrelationKey(ctx context.Context, correlationKey string) ([]*subscription.Subscription, error) {
	var subModels []*models.SubscriptionModel

	err := db.GetTxFromContext(ctx, r.db).
		Where("correlation_key = ?", correlationKey).
		Order("created_at ASC").
		Find(&subModels).Error
	if err != nil {
		r.logger.Errorw("failed to list subscriptions by correlation key", "correlation_key", correlationKey, "error", err)
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return r.mapper.ToEntities(subModels)
}

func (r *SubscriptionRepositoryImpl) CountByCorrelationKey(ctx context.Context, correlationKey string) (int64, error) {
	var count int64

	err := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Where("correlation_key = ?", correlationKey).
		Count(&count).Error
	if err != nil {
		r.logger.Errorw("failed to count subscriptions by correlation key", "correlation_key", correlationKey, "error", err)
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	return count, nil
}

func (r *SubscriptionRepositoryImpl) GetActiveByUserAndProduct(ctx context.Context, userID, productID uint) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	err := db.GetTxFromContext(ctx, r.db).
		Where("user_id = ? AND product_id = ? AND status = ?", userID, productID, vo.StatusActive.String()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		r.logger.Errorw("failed to get active subscription", "user_id", userID, "product_id", productID, "error", err)
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *SubscriptionRepositoryImpl) ListSyncCandidates(ctx context.Context, olderThan time.Time, limit int) ([]*subscription.Subscription, error) {
	var subModels []*models.SubscriptionModel

	nonTerminal := []string{
		vo.StatusPending.String(),
		vo.StatusActive.String(),
		vo.StatusPaused.String(),
		vo.StatusPaymentFailed.String(),
	}

	err := db.GetTxFromContext(ctx, r.db).
		Where("status IN ? AND (updated_at < ? OR next_billing_date < ?)", nonTerminal, olderThan, time.Now().UTC()).
		Order("updated_at ASC").
		Limit(limit).
		Find(&subModels).Error
	if err != nil {
		r.logger.Errorw("failed to list subscription sync candidates", "error", err)
		return nil, fmt.Errorf("failed to list subscription sync candidates: %w", err)
	}

	return r.mapper.ToEntities(subModels)
}

func (r *SubscriptionRepositoryImpl) ListDuplicatedCorrelationKeys(ctx context.Context, limit int) ([]string, error) {
	var keys []string

	err := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Select("correlation_key").
		Group("correlation_key").
		Having("COUNT(*) > 1").
		Limit(limit).
		Pluck("correlation_key", &keys).Error
	if err != nil {
		r.logger.Errorw("failed to list duplicated correlation keys", "error", err)
		return nil, fmt.Errorf("failed to list duplicated correlation keys: %w", err)
	}

	return keys, nil
}

func (r *SubscriptionRepositoryImpl) DeleteByIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	result := db.GetTxFromContext(ctx, r.db).Delete(&models.SubscriptionModel{}, ids)
	if result.Error != nil {
		r.logger.Errorw("failed to delete subscriptions", "ids", ids, "error", result.Error)
		return fmt.Errorf("failed to delete subscriptions: %w", result.Error)
	}

	r.logger.Infow("duplicate subscriptions deleted", "count", result.RowsAffected)
	return nil
}
