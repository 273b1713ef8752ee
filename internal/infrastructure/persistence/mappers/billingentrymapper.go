package mappers

import (
	"github.com/petgourmet/ledgersync/internal/domain/billing"
	"github.com/petgourmet/ledgersync/internal/infrastructure/persistence/models"
)

type BillingEntryMapper interface {
	ToEntity(model *models.BillingEntryModel) *billing.Entry
	ToModel(entity *billing.Entry) *models.BillingEntryModel
	ToEntities(models []*models.BillingEntryModel) []*billing.Entry
}

type BillingEntryMapperImpl struct{}

func NewBillingEntryMapper() BillingEntryMapper {
	return &BillingEntryMapperImpl{}
}

func (m *BillingEntryMapperImpl) ToEntity(model *models.BillingEntryModel) *billing.Entry {
	if model == nil {
		return nil
	}

	return billing.Reconstruct(
		model.ID,
		model.ProviderPaymentID,
		model.OrderID,
		model.SubscriptionID,
		model.AmountCents,
		model.Currency,
		billing.ChargeResult(model.Result),
		model.OccurredAt,
		model.CreatedAt,
	)
}

func (m *BillingEntryMapperImpl) ToModel(entity *billing.Entry) *models.BillingEntryModel {
	if entity == nil {
		return nil
	}

	return &models.BillingEntryModel{
		ID:                entity.ID(),
		ProviderPaymentID: entity.ProviderPaymentID(),
		OrderID:           entity.OrderID(),
		SubscriptionID:    entity.SubscriptionID(),
		AmountCents:       entity.AmountCents(),
		Currency:          entity.Currency(),
		Result:            string(entity.Result()),
		OccurredAt:        entity.OccurredAt(),
		CreatedAt:         entity.CreatedAt(),
	}
}

func (m *BillingEntryMapperImpl) ToEntities(entryModels []*models.BillingEntryModel) []*billing.Entry {
	entities := make([]*billing.Entry, 0, len(entryModels))
	for _, model := range entryModels {
		entities = append(entities, m.ToEntity(model))
	}
	return entities
}
