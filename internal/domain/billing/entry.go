// Package billing is the append-only ledger of realized charge attempts.
// Rows are keyed by provider payment id and never mutated after insert;
// re-appending an existing key is a no-op, which is what makes the
// reconciler's paid-transition side effect idempotent.
package billing

import (
	"fmt"
	"time"

	"github.com/petgourmet/ledgersync/internal/shared/biztime"
)

type ChargeResult string

const (
	ChargeSucceeded ChargeResult = "succeeded"
	ChargeFailed    ChargeResult = "failed"
)

// Entry is one realized charge attempt tied to an order or subscription.
type Entry struct {
	id                uint
	providerPaymentID string
	orderID           *uint
	subscriptionID    *uint
	amountCents       int64
	currency          string
	result            ChargeResult
	occurredAt        time.Time
	createdAt         time.Time
}

func NewEntry(providerPaymentID string, amountCents int64, currency string, result ChargeResult, occurredAt time.Time) (*Entry, error) {
	if providerPaymentID == "" {
		return nil, fmt.Errorf("provider payment ID is required")
	}
	if currency == "" {
		return nil, fmt.Errorf("currency is required")
	}
	if result != ChargeSucceeded && result != ChargeFailed {
		return nil, fmt.Errorf("invalid charge result: %s", result)
	}
	if occurredAt.IsZero() {
		occurredAt = biztime.NowUTC()
	}

	return &Entry{
		providerPaymentID: providerPaymentID,
		amountCents:       amountCents,
		currency:          currency,
		result:            result,
		occurredAt:        occurredAt,
		createdAt:         biztime.NowUTC(),
	}, nil
}

// ForOrder ties the entry to an order.
func (e *Entry) ForOrder(orderID uint) *Entry {
	e.orderID = &orderID
	return e
}

// ForSubscription ties the entry to a subscription.
func (e *Entry) ForSubscription(subscriptionID uint) *Entry {
	e.subscriptionID = &subscriptionID
	return e
}

// Reconstruct rebuilds an entry from persistence.
func Reconstruct(id uint, providerPaymentID string, orderID, subscriptionID *uint,
	amountCents int64, currency string, result ChargeResult, occurredAt, createdAt time.Time) *Entry {
	return &Entry{
		id:                id,
		providerPaymentID: providerPaymentID,
		orderID:           orderID,
		subscriptionID:    subscriptionID,
		amountCents:       amountCents,
		currency:          currency,
		result:            result,
		occurredAt:        occurredAt,
		createdAt:         createdAt,
	}
}

func (e *Entry) ID() uint                  { return e.id }
func (e *Entry) ProviderPaymentID() string { return e.providerPaymentID }
func (e *Entry) OrderID() *uint            { return e.orderID }
func (e *Entry) SubscriptionID() *uint     { return e.subscriptionID }
func (e *Entry) AmountCents() int64        { return e.amountCents }
func (e *Entry) Currency() string          { return e.currency }
func (e *Entry) Result() ChargeResult      { return e.result }
func (e *Entry) OccurredAt() time.Time     { return e.occurredAt }
func (e *Entry) CreatedAt() time.Time      { return e.createdAt }

func (e *Entry) SetID(id uint) {
	e.id = id
}
