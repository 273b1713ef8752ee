package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderModel is the persistence shape of an order. The checkout snapshot is
// stored as a JSON document so historical orders survive catalog edits.
type OrderModel struct {
	ID                uint    `gorm:"primarykey"`
	CorrelationKey    string  `gorm:"uniqueIndex;not null;size:64"`
	Status            string  `gorm:"not null;size:20;index:idx_order_status"`
	PaymentStatus     string  `gorm:"not null;size:20;index:idx_order_payment_status"`
	ProviderPaymentID *string `gorm:"uniqueIndex;size:64"`
	TotalCents        int64   `gorm:"not null"`
	Currency          string  `gorm:"not null;size:3"`
	PayerEmail        *string `gorm:"size:255"`
	Snapshot          datatypes.JSON
	Version           int `gorm:"not null;default:1"`
	CreatedAt         time.Time
	UpdatedAt         time.Time `gorm:"index:idx_order_updated_at"`
}

func (OrderModel) TableName() string {
	return "orders"
}

func (m *OrderModel) BeforeCreate(tx *gorm.DB) error {
	if m.Version == 0 {
		m.Version = 1
	}
	return nil
}
