package order

import (
	"context"
	"time"

	vo "github.com/petgourmet/ledgersync/internal/domain/order/valueobjects"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error

	// UpdateIfPaymentStatus persists the aggregate only while the stored
	// row still carries the expected payment status. This is the guard
	// that keeps concurrent reconcilers from downgrading paid back to pending.
	UpdateIfPaymentStatus(ctx context.Context, o *Order, expected vo.PaymentStatus) error

	GetByID(ctx context.Context, id uint) (*Order, error)
	GetByCorrelationKey(ctx context.Context, correlationKey string) (*Order, error)
	GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*Order, error)

	// ListSyncCandidates selects orders the scheduler should re-verify:
	// payment still pending and not updated since the given time, or
	// missing a provider payment id entirely.
	ListSyncCandidates(ctx context.Context, olderThan time.Time, limit int) ([]*Order, error)
}
