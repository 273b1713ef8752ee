package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petgourmet/ledgersync/internal/domain/billing"
	"github.com/petgourmet/ledgersync/internal/infrastructure/persistence/mappers"
	"github.com/petgourmet/ledgersync/internal/infrastructure/persistence/models"
	"github.com/petgourmet/ledgersync/internal/shared/db"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

type BillingEntryRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.BillingEntryMapper
	logger logger.Interface
}

func NewBillingEntryRepository(db *gorm.DB, logger logger.Interface) billing.Repository {
	return &BillingEntryRepositoryImpl{
		db:     db,
		mapper: mappers.NewBillingEntryMapper(),
		logger: logger,
	}
}

// Append inserts the entry with conflict-do-nothing on the provider payment
// id, so a replayed webhook or a racing reconciler cannot double-book a
// charge. Returns true only when a new row was written.
func (r *BillingEntryRepositoryImpl) Append(ctx context.Context, entity *billing.Entry) (bool, error) {
	model := r.mapper.ToModel(entity)
	model.ID = 0

	result := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_payment_id"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		r.logger.Errorw("failed to append billing entry", "provider_payment_id", entity.ProviderPaymentID(), "error", result.Error)
		return false, fmt.Errorf("failed to append billing entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	entity.SetID(model.ID)
	r.logger.Infow("billing entry appended",
		"provider_payment_id", entity.ProviderPaymentID(),
		"amount_cents", entity.AmountCents(),
		"result", entity.Result(),
	)
	return true, nil
}

func (r *BillingEntryRepositoryImpl) ExistsByProviderPaymentID(ctx context.Context, providerPaymentID string) (bool, error) {
	var count int64

	err := db.GetTxFromContext(ctx, r.db).
		Model(&models.BillingEntryModel{}).
		Where("provider_payment_id = ?", providerPaymentID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check billing entry: %w", err)
	}

	return count > 0, nil
}

func (r *BillingEntryRepositoryImpl) HasEntryForSubscriptionSince(ctx context.Context, subscriptionID uint, since time.Time) (bool, error) {
	var count int64

	err := db.GetTxFromContext(ctx, r.db).
		Model(&models.BillingEntryModel{}).
		Where("subscription_id = ? AND occurred_at >= ?", subscriptionID, since).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check billing history: %w", err)
	}

	return count > 0, nil
}

func (r *BillingEntryRepositoryImpl) ListByOrderID(ctx context.Context, orderID uint) ([]*billing.Entry, error) {
	var entryModels []*models.BillingEntryModel

	err := db.GetTxFromContext(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("occurred_at ASC").
		Find(&entryModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list billing entries: %w", err)
	}

	return r.mapper.ToEntities(entryModels), nil
}

func (r *BillingEntryRepositoryImpl) ListBySubscriptionID(ctx context.Context, subscriptionID uint) ([]*billing.Entry, error) {
	var entryModels []*models.BillingEntryModel

	err := db.GetTxFromContext(ctx, r.db).
		Where("subscription_id = ?", subscriptionID).
		Order("occurred_at ASC").
		Find(&entryModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list billing entries: %w", err)
	}

	return r.mapper.ToEntities(entryModels), nil
}
