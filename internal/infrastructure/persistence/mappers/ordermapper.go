package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/petgourmet/ledgersync/internal/domain/order"
	vo "github.com/petgourmet/ledgersync/internal/domain/order/valueobjects"
	"github.com/petgourmet/ledgersync/internal/infrastructure/persistence/models"
)

type OrderMapper interface {
	ToEntity(model *models.OrderModel) (*order.Order, error)
	ToModel(entity *order.Order) (*models.OrderModel, error)
	ToEntities(models []*models.OrderModel) ([]*order.Order, error)
}

type OrderMapperImpl struct{}

func NewOrderMapper() OrderMapper {
	return &OrderMapperImpl{}
}

func (m *OrderMapperImpl) ToEntity(model *models.OrderModel) (*order.Order, error) {
	if model == nil {
		return nil, nil
	}

	var snapshot vo.CheckoutSnapshot
	if model.Snapshot != nil {
		if err := json.Unmarshal(model.Snapshot, &snapshot); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checkout snapshot: %w", err)
		}
	}

	return order.Reconstruct(order.ReconstructParams{
		ID:                model.ID,
		CorrelationKey:    model.CorrelationKey,
		Status:            vo.OrderStatus(model.Status),
		PaymentStatus:     vo.PaymentStatus(model.PaymentStatus),
		ProviderPaymentID: model.ProviderPaymentID,
		TotalCents:        model.TotalCents,
		Currency:          model.Currency,
		PayerEmail:        model.PayerEmail,
		Snapshot:          snapshot,
		Version:           model.Version,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	})
}

func (m *OrderMapperImpl) ToModel(entity *order.Order) (*models.OrderModel, error) {
	if entity == nil {
		return nil, nil
	}

	snapshot, err := json.Marshal(entity.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout snapshot: %w", err)
	}

	return &models.OrderModel{
		ID:                entity.ID(),
		CorrelationKey:    entity.CorrelationKey(),
		Status:            entity.Status().String(),
		PaymentStatus:     entity.PaymentStatus().String(),
		ProviderPaymentID: entity.ProviderPaymentID(),
		TotalCents:        entity.TotalCents(),
		Currency:          entity.Currency(),
		PayerEmail:        entity.PayerEmail(),
		Snapshot:          datatypes.JSON(snapshot),
		Version:           entity.Version(),
		CreatedAt:         entity.CreatedAt(),
		UpdatedAt:         entity.UpdatedAt(),
	}, nil
}

func (m *OrderMapperImpl) ToEntities(orderModels []*models.OrderModel) ([]*order.Order, error) {
	entities := make([]*order.Order, 0, len(orderModels))
	for _, model := range orderModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
