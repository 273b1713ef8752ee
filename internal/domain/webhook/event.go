// Package webhook models the audit log of inbound provider notifications.
// One row per provider event id; a second delivery of the same id must be a
// no-op, which is the dedup guarantee the ingestion path relies on.
package webhook

import (
	"errors"
	"fmt"
	"time"

	"github.com/petgourmet/ledgersync/internal/shared/biztime"
)

var ErrEventNotFound = errors.New("webhook event not found")

type ProcessingStatus string

const (
	StatusReceived  ProcessingStatus = "received"
	StatusProcessed ProcessingStatus = "processed"
	StatusFailed    ProcessingStatus = "failed"
)

// EventType is the closed set of notification categories the engine accepts.
// Anything else is rejected at the ingestion boundary.
type EventType string

const (
	EventTypePayment EventType = "payment"
	// EventTypeSubscription covers preapproval notifications.
	EventTypeSubscription EventType = "subscription_preapproval"
	// EventTypeMerchantOrder is housekeeping; acknowledged without action.
	EventTypeMerchantOrder EventType = "merchant_order"
)

// KnownEventTypes maps raw provider type tags to the closed set.
var KnownEventTypes = map[string]EventType{
	"payment":                  EventTypePayment,
	"subscription_preapproval": EventTypeSubscription,
	"preapproval":              EventTypeSubscription,
	"merchant_order":           EventTypeMerchantOrder,
	"topic_merchant_order_wh":  EventTypeMerchantOrder,
}

// Event is one inbound provider notification.
type Event struct {
	id              uint
	providerEventID string
	eventType       EventType
	action          string
	resourceID      string
	status          ProcessingStatus
	errorDetail     *string
	receivedAt      time.Time
	processedAt     *time.Time
}

// NewEvent records a received notification before any processing happens.
func NewEvent(providerEventID string, eventType EventType, action, resourceID string) (*Event, error) {
	if providerEventID == "" {
		return nil, fmt.Errorf("provider event ID is required")
	}
	if eventType == "" {
		return nil, fmt.Errorf("event type is required")
	}

	return &Event{
		providerEventID: providerEventID,
		eventType:       eventType,
		action:          action,
		resourceID:      resourceID,
		status:          StatusReceived,
		receivedAt:      biztime.NowUTC(),
	}, nil
}

// Reconstruct rebuilds an event from persistence.
func Reconstruct(id uint, providerEventID string, eventType EventType, action, resourceID string,
	status ProcessingStatus, errorDetail *string, receivedAt time.Time, processedAt *time.Time) *Event {
	return &Event{
		id:              id,
		providerEventID: providerEventID,
		eventType:       eventType,
		action:          action,
		resourceID:      resourceID,
		status:          status,
		errorDetail:     errorDetail,
		receivedAt:      receivedAt,
		processedAt:     processedAt,
	}
}

func (e *Event) ID() uint                 { return e.id }
func (e *Event) ProviderEventID() string  { return e.providerEventID }
func (e *Event) EventType() EventType     { return e.eventType }
func (e *Event) Action() string           { return e.action }
func (e *Event) ResourceID() string       { return e.resourceID }
func (e *Event) Status() ProcessingStatus { return e.status }
func (e *Event) ErrorDetail() *string     { return e.errorDetail }
func (e *Event) ReceivedAt() time.Time    { return e.receivedAt }
func (e *Event) ProcessedAt() *time.Time  { return e.processedAt }

func (e *Event) SetID(id uint) {
	e.id = id
}

// MarkProcessed completes the row after a successful reconciliation.
func (e *Event) MarkProcessed() {
	now := biztime.NowUTC()
	e.status = StatusProcessed
	e.processedAt = &now
	e.errorDetail = nil
}

// MarkFailed records the failure detail; the sync scheduler picks the work
// up later, the row itself is never retried in place.
func (e *Event) MarkFailed(detail string) {
	e.status = StatusFailed
	if detail != "" {
		e.errorDetail = &detail
	}
}

// IsProcessed reports whether a replay can be acknowledged immediately.
func (e *Event) IsProcessed() bool {
	return e.status == StatusProcessed
}
