package models

import "time"

// WebhookEventModel is the audit row for one inbound provider notification.
// The unique index on the provider event id is the dedup guarantee.
type WebhookEventModel struct {
	ID              uint    `gorm:"primarykey"`
	ProviderEventID string  `gorm:"uniqueIndex;not null;size:64"`
	EventType       string  `gorm:"not null;size:40"`
	Action          string  `gorm:"size:80"`
	ResourceID      string  `gorm:"size:64;index:idx_event_resource"`
	Status          string  `gorm:"not null;size:20;index:idx_event_status"`
	ErrorDetail     *string `gorm:"size:1000"`
	ReceivedAt      time.Time
	ProcessedAt     *time.Time
}

func (WebhookEventModel) TableName() string {
	return "webhook_events"
}
