package mappers

import (
	"github.com/petgourmet/ledgersync/internal/domain/webhook"
	"github.com/petgourmet/ledgersync/internal/infrastructure/persistence/models"
)

type WebhookEventMapper interface {
	ToEntity(model *models.WebhookEventModel) *webhook.Event
	ToModel(entity *webhook.Event) *models.WebhookEventModel
}

type WebhookEventMapperImpl struct{}

func NewWebhookEventMapper() WebhookEventMapper {
	return &WebhookEventMapperImpl{}
}

func (m *WebhookEventMapperImpl) ToEntity(model *models.WebhookEventModel) *webhook.Event {
	if model == nil {
		return nil
	}

	return webhook.Reconstruct(
		model.ID,
		model.ProviderEventID,
		webhook.EventType(model.EventType),
		model.Action,
		model.ResourceID,
		webhook.ProcessingStatus(model.Status),
		model.ErrorDetail,
		model.ReceivedAt,
		model.ProcessedAt,
	)
}

func (m *WebhookEventMapperImpl) ToModel(entity *webhook.Event) *models.WebhookEventModel {
	if entity == nil {
		return nil
	}

	return &models.WebhookEventModel{
		ID:              entity.ID(),
		ProviderEventID: entity.ProviderEventID(),
		EventType:       string(entity.EventType()),
		Action:          entity.Action(),
		ResourceID:      entity.ResourceID(),
		Status:          string(entity.Status()),
		ErrorDetail:     entity.ErrorDetail(),
		ReceivedAt:      entity.ReceivedAt(),
		ProcessedAt:     entity.ProcessedAt(),
	}
}
