package billing

import (
	"context"
	"time"
)

type Repository interface {
	// Append inserts the entry, silently ignoring a duplicate provider
	// payment id. Returns true when a new row was written.
	Append(ctx context.Context, e *Entry) (bool, error)

	ExistsByProviderPaymentID(ctx context.Context, providerPaymentID string) (bool, error)

	// HasEntryForSubscriptionSince reports whether any charge attempt was
	// recorded for the subscription at or after the given time. The sync
	// scheduler uses it to spot billing dates that passed without a charge.
	HasEntryForSubscriptionSince(ctx context.Context, subscriptionID uint, since time.Time) (bool, error)

	ListByOrderID(ctx context.Context, orderID uint) ([]*Entry, error)
	ListBySubscriptionID(ctx context.Context, subscriptionID uint) ([]*Entry, error)
}
