// Package provider defines the read-only client contract against the
// external payment authority. The provider's snapshot is always the source
// of truth; the engine never trusts event payload ordering over it.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound means the provider has no record for the given id or
	// correlation key. Not retried automatically; flagged for review.
	ErrNotFound = errors.New("provider resource not found")
)

// TransientError wraps timeouts, 5xx responses and rate limiting. The sync
// scheduler retries these on its next pass.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient provider error in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether the error should be retried by the scheduler.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Payment is the provider's canonical view of a payment.
type Payment struct {
	ID             string
	Status         string
	StatusDetail   string
	AmountCents    int64
	Currency       string
	PayerEmail     string
	CorrelationKey string
	DateApproved   *time.Time
}

// Subscription is the provider's canonical view of a recurring agreement
// (a preapproval, in provider terms).
type Subscription struct {
	ID              string
	Status          string
	CorrelationKey  string
	PayerEmail      string
	NextPaymentDate *time.Time
	LastPaymentID   string
	PreferenceID    string
	TrialEndDate    *time.Time
}

// Client issues authenticated read requests to the provider. All calls can
// fail with ErrNotFound or a TransientError.
type Client interface {
	GetPayment(ctx context.Context, id string) (*Payment, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	SearchPayments(ctx context.Context, correlationKey string) ([]*Payment, error)
	SearchSubscriptions(ctx context.Context, correlationKey string) ([]*Subscription, error)
}
