package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/petgourmet/ledgersync/internal/domain/subscription"
	vo "github.com/petgourmet/ledgersync/internal/domain/subscription/valueobjects"
	"github.com/petgourmet/ledgersync/internal/infrastructure/persistence/models"
)

type SubscriptionMapper interface {
	ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error)
	ToModel(entity *subscription.Subscription) (*models.SubscriptionModel, error)
	ToEntities(models []*models.SubscriptionModel) ([]*subscription.Subscription, error)
}

type SubscriptionMapperImpl struct{}

func NewSubscriptionMapper() SubscriptionMapper {
	return &SubscriptionMapperImpl{}
}

func (m *SubscriptionMapperImpl) ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error) {
	if model == nil {
		return nil, nil
	}

	var metadata map[string]interface{}
	if model.Metadata != nil {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return subscription.Reconstruct(subscription.ReconstructParams{
		ID:                     model.ID,
		UserID:                 model.UserID,
		ProductID:              model.ProductID,
		ProductName:            model.ProductName,
		CorrelationKey:         model.CorrelationKey,
		ProviderSubscriptionID: model.ProviderSubscriptionID,
		ProviderPaymentID:      model.ProviderPaymentID,
		ProviderPreferenceID:   model.ProviderPreferenceID,
		Status:                 vo.SubscriptionStatus(model.Status),
		Cadence:                vo.Cadence(model.Cadence),
		BasePriceCents:         model.BasePriceCents,
		DiscountPercent:        model.DiscountPercent,
		DiscountedPriceCents:   model.DiscountedPriceCents,
		LastBillingDate:        model.LastBillingDate,
		NextBillingDate:        model.NextBillingDate,
		ActivatedAt:            model.ActivatedAt,
		TrialEndDate:           model.TrialEndDate,
		CancelledAt:            model.CancelledAt,
		ChargesMade:            model.ChargesMade,
		Metadata:               metadata,
		Version:                model.Version,
		CreatedAt:              model.CreatedAt,
		UpdatedAt:              model.UpdatedAt,
	})
}

func (m *SubscriptionMapperImpl) ToModel(entity *subscription.Subscription) (*models.SubscriptionModel, error) {
	if entity == nil {
		return nil, nil
	}

	metadata, err := json.Marshal(entity.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	return &models.SubscriptionModel{
		ID:                     entity.ID(),
		UserID:                 entity.UserID(),
		ProductID:              entity.ProductID(),
		ProductName:            entity.ProductName(),
		CorrelationKey:         entity.CorrelationKey(),
		ProviderSubscriptionID: entity.ProviderSubscriptionID(),
		ProviderPaymentID:      entity.ProviderPaymentID(),
		ProviderPreferenceID:   entity.ProviderPreferenceID(),
		Status:                 entity.Status().String(),
		Cadence:                entity.Cadence().String(),
		BasePriceCents:         entity.BasePriceCents(),
		DiscountPercent:        entity.DiscountPercent(),
		DiscountedPriceCents:   entity.DiscountedPriceCents(),
		LastBillingDate:        entity.LastBillingDate(),
		NextBillingDate:        entity.NextBillingDate(),
		ActivatedAt:            entity.ActivatedAt(),
		TrialEndDate:           entity.TrialEndDate(),
		CancelledAt:            entity.CancelledAt(),
		ChargesMade:            entity.ChargesMade(),
		Metadata:               datatypes.JSON(metadata),
		Version:                entity.Version(),
		CreatedAt:              entity.CreatedAt(),
		UpdatedAt:              entity.UpdatedAt(),
	}, nil
}

func (m *SubscriptionMapperImpl) ToEntities(subModels []*models.SubscriptionModel) ([]*subscription.Subscription, error) {
	entities := make([]*subscription.Subscription, 0, len(subModels))
	for _, model := range subModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
