package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/petgourmet/ledgersync/internal/domain/webhook"
	"github.com/petgourmet/ledgersync/internal/infrastructure/persistence/mappers"
	"github.com/petgourmet/ledgersync/internal/infrastructure/persistence/models"
	"github.com/petgourmet/ledgersync/internal/shared/db"
	apperrors "github.com/petgourmet/ledgersync/internal/shared/errors"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

type WebhookEventRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.WebhookEventMapper
	logger logger.Interface
}

func NewWebhookEventRepository(db *gorm.DB, logger logger.Interface) webhook.Repository {
	return &WebhookEventRepositoryImpl{
		db:     db,
		mapper: mappers.NewWebhookEventMapper(),
		logger: logger,
	}
}

func (r *WebhookEventRepositoryImpl) Insert(ctx context.Context, entity *webhook.Event) error {
	model := r.mapper.ToModel(entity)
	model.ID = 0

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewConflictError("duplicate provider event id", entity.ProviderEventID())
		}
		r.logger.Errorw("failed to insert webhook event", "provider_event_id", entity.ProviderEventID(), "error", err)
		return fmt.Errorf("failed to insert webhook event: %w", err)
	}

	entity.SetID(model.ID)
	return nil
}

func (r *WebhookEventRepositoryImpl) Update(ctx context.Context, entity *webhook.Event) error {
	model := r.mapper.ToModel(entity)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.WebhookEventModel{}).
		Where("provider_event_id = ?", entity.ProviderEventID()).
		Updates(map[string]interface{}{
			"status":       model.Status,
			"error_detail": model.ErrorDetail,
			"processed_at": model.ProcessedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update webhook event", "provider_event_id", entity.ProviderEventID(), "error", result.Error)
		return fmt.Errorf("failed to update webhook event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return webhook.ErrEventNotFound
	}

	return nil
}

func (r *WebhookEventRepositoryImpl) GetByProviderEventID(ctx context.Context, providerEventID string) (*webhook.Event, error) {
	var model models.WebhookEventModel

	if err := db.GetTxFromContext(ctx, r.db).Where("provider_event_id = ?", providerEventID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, webhook.ErrEventNotFound
		}
		r.logger.Errorw("failed to get webhook event", "provider_event_id", providerEventID, "error", err)
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}

	return r.mapper.ToEntity(&model), nil
}
