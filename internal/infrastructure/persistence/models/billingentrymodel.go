package models

import "time"

// BillingEntryModel is one row of the append-only charge ledger. The unique
// index on the provider payment id is what makes Append idempotent.
type BillingEntryModel struct {
	ID                uint      `gorm:"primarykey"`
	ProviderPaymentID string    `gorm:"uniqueIndex;not null;size:64"`
	OrderID           *uint     `gorm:"index:idx_billing_order"`
	SubscriptionID    *uint     `gorm:"index:idx_billing_subscription"`
	AmountCents       int64     `gorm:"not null"`
	Currency          string    `gorm:"not null;size:3"`
	Result            string    `gorm:"not null;size:20"`
	OccurredAt        time.Time `gorm:"not null;index:idx_billing_occurred_at"`
	CreatedAt         time.Time
}

func (BillingEntryModel) TableName() string {
	return "billing_entries"
}
