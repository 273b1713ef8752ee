package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/petgourmet/ledgersync/internal/domain/order"
	vo "github.com/petgourmet/ledgersync/internal/domain/order/valueobjects"
	"github.com/petgourmet/ledgersync/internal/infrastructure/persistence/mappers"
	"github.com/petgourmet/ledgersync/internal/infrastructure/persistence/models"
	"github.com/petgourmet/ledgersync/internal/shared/db"
	apperrors "github.com/petgourmet/ledgersync/internal/shared/errors"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

type OrderRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.OrderMapper
	logger logger.Interface
}

func NewOrderRepository(db *gorm.DB, logger logger.Interface) order.Repository {
	return &OrderRepositoryImpl{
		db:     db,
		mapper: mappers.NewOrderMapper(),
		logger: logger,
	}
}

func (r *OrderRepositoryImpl) Create(ctx context.Context, entity *order.Order) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		return fmt.Errorf("failed to map order entity: %w", err)
	}
	model.ID = 0

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewConflictError("order already exists for correlation key", entity.CorrelationKey())
		}
		r.logger.Errorw("failed to create order", "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}

	if err := entity.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set order ID: %w", err)
	}

	r.logger.Infow("order created", "id", model.ID, "correlation_key", model.CorrelationKey)
	return nil
}

// UpdateIfPaymentStatus writes the full row guarded by a payment-status
// predicate. Zero affected rows means a concurrent writer moved the status
// first and the caller must re-read before retrying.
func (r *OrderRepositoryImpl) UpdateIfPaymentStatus(ctx context.Context, entity *order.Order, expected vo.PaymentStatus) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		return fmt.Errorf("failed to map order entity: %w", err)
	}

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.OrderModel{}).
		Where("id = ? AND payment_status = ?", entity.ID(), expected.String()).
		Updates(map[string]interface{}{
			"status":              model.Status,
			"payment_status":      model.PaymentStatus,
			"provider_payment_id": model.ProviderPaymentID,
			"payer_email":         model.PayerEmail,
			"version":             gorm.Expr("version + 1"),
			"updated_at":          model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update order", "id", entity.ID(), "error", result.Error)
		return fmt.Errorf("failed to update order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewStoreConflictError("order payment status changed concurrently",
			fmt.Sprintf("order_id=%d expected=%s", entity.ID(), expected))
	}

	return nil
}

func (r *OrderRepositoryImpl) GetByID(ctx context.Context, id uint) (*order.Order, error) {
	var model models.OrderModel

	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		r.logger.Errorw("failed to get order by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *OrderRepositoryImpl) GetByCorrelationKey(ctx context.Context, correlationKey string) (*order.Order, error) {
	var model models.OrderModel

	if err := db.GetTxFromContext(ctx, r.db).Where("correlation_key = ?", correlationKey).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		r.logger.Errorw("failed to get order by correlation key", "correlation_key", correlationKey, "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *OrderRepositoryImpl) GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*order.Order, error) {
	var model models.OrderModel

	if err := db.GetTxFromContext(ctx, r.db).Where("provider_payment_id = ?", providerPaymentID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		r.logger.Errorw("failed to get order by provider payment id", "provider_payment_id", providerPaymentID, "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *OrderRepositoryImpl) ListSyncCandidates(ctx context.Context, olderThan time.Time, limit int) ([]*order.Order, error) {
	var orderModels []*models.OrderModel

	err := db.GetTxFromContext(ctx, r.db).
		Where("payment_status = ? AND (updated_at < ? OR provider_payment_id IS NULL)",
			vo.PaymentStatusPending.String(), olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&orderModels).Error
	if err != nil {
		r.logger.Errorw("failed to list order sync candidates", "error", err)
		return nil, fmt.Errorf("failed to list order sync candidates: %w", err)
	}

	return r.mapper.ToEntities(orderModels)
}
