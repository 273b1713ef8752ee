package subscription

import (
	"context"
	"time"

	vo "github.com/petgourmet/ledgersync/internal/domain/subscription/valueobjects"
)

type Repository interface {
	Create(ctx context.Context, sub *Subscription) error

	// UpdateIfStatus persists the aggregate only while the stored row still
	// has the expected status. A lost race surfaces as a store-conflict
	// error so the caller can re-read and retry once.
	UpdateIfStatus(ctx context.Context, sub *Subscription, expected vo.SubscriptionStatus) error

	GetByID(ctx context.Context, id uint) (*Subscription, error)
	GetByProviderSubscriptionID(ctx context.Context, providerID string) (*Subscription, error)

	// ListByCorrelationKey returns every row minted for the same checkout
	// attempt, duplicates included.
	ListByCorrelationKey(ctx context.Context, correlationKey string) ([]*Subscription, error)

	// CountByCorrelationKey supports the consolidator's pre-delete re-check.
	CountByCorrelationKey(ctx context.Context, correlationKey string) (int64, error)

	GetActiveByUserAndProduct(ctx context.Context, userID, productID uint) (*Subscription, error)

	// ListSyncCandidates selects subscriptions needing reconciliation:
	// non-terminal rows with a provider id to re-verify drift against, or
	// whose next billing date passed before the given time.
	ListSyncCandidates(ctx context.Context, olderThan time.Time, limit int) ([]*Subscription, error)

	// ListDuplicatedCorrelationKeys returns correlation keys that currently
	// map to more than one row.
	ListDuplicatedCorrelationKeys(ctx context.Context, limit int) ([]string, error)

	// DeleteByIDs removes consolidated duplicate rows in one batch.
	DeleteByIDs(ctx context.Context, ids []uint) error
}
