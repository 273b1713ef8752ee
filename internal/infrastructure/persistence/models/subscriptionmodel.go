package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubscriptionModel is the persistence shape of a subscription. Unlike the
// order's correlation key, the subscription one is only indexed: webhook
// retries can legitimately mint duplicate rows, which the consolidator
// later collapses.
type SubscriptionModel struct {
	ID                     uint    `gorm:"primarykey"`
	UserID                 uint    `gorm:"not null;index:idx_sub_user_product,priority:1"`
	ProductID              uint    `gorm:"not null;index:idx_sub_user_product,priority:2"`
	ProductName            string  `gorm:"size:255"`
	CorrelationKey         string  `gorm:"not null;index:idx_sub_correlation_key;size:64"`
	ProviderSubscriptionID *string `gorm:"index:idx_sub_provider_id;size:64"`
	ProviderPaymentID      *string `gorm:"size:64"`
	ProviderPreferenceID   *string `gorm:"size:64"`
	Status                 string  `gorm:"not null;size:20;index:idx_sub_status"`
	Cadence                string  `gorm:"not null;size:20"`
	BasePriceCents         int64   `gorm:"not null"`
	DiscountPercent        float64 `gorm:"not null;default:0"`
	DiscountedPriceCents   int64   `gorm:"not null"`
	LastBillingDate        *time.Time
	NextBillingDate        *time.Time `gorm:"index:idx_sub_next_billing"`
	ActivatedAt            *time.Time
	TrialEndDate           *time.Time
	CancelledAt            *time.Time
	ChargesMade            uint `gorm:"not null;default:0"`
	Metadata               datatypes.JSON
	Version                int `gorm:"not null;default:1"`
	CreatedAt              time.Time
	UpdatedAt              time.Time `gorm:"index:idx_sub_updated_at"`
}

func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

func (m *SubscriptionModel) BeforeCreate(tx *gorm.DB) error {
	if m.Version == 0 {
		m.Version = 1
	}
	return nil
}
