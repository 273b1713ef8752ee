package usecases

import (
	"context"
	"sync"
	"time"

	"github.com/petgourmet/ledgersync/internal/domain/billing"
	"github.com/petgourmet/ledgersync/internal/domain/order"
	ordervo "github.com/petgourmet/ledgersync/internal/domain/order/valueobjects"
	"github.com/petgourmet/ledgersync/internal/domain/subscription"
	subvo "github.com/petgourmet/ledgersync/internal/domain/subscription/valueobjects"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)            {}
func (nopLogger) Info(string, ...any)             {}
func (nopLogger) Warn(string, ...any)             {}
func (nopLogger) Error(string, ...any)            {}
func (nopLogger) Fatal(string, ...any)            {}
func (n nopLogger) With(...any) logger.Interface  { return n }
func (n nopLogger) Named(string) logger.Interface { return n }
func (nopLogger) Debugw(string, ...interface{})   {}
func (nopLogger) Infow(string, ...interface{})    {}
func (nopLogger) Warnw(string, ...interface{})    {}
func (nopLogger) Errorw(string, ...interface{})   {}
func (nopLogger) Fatalw(string, ...interface{})   {}

type mockOrderRepository struct {
	CreateFunc                 func(ctx context.Context, o *order.Order) error
	UpdateIfPaymentStatusFunc  func(ctx context.Context, o *order.Order, expected ordervo.PaymentStatus) error
	GetByIDFunc                func(ctx context.Context, id uint) (*order.Order, error)
	GetByCorrelationKeyFunc    func(ctx context.Context, correlationKey string) (*order.Order, error)
	GetByProviderPaymentIDFunc func(ctx context.Context, providerPaymentID string) (*order.Order, error)
	ListSyncCandidatesFunc     func(ctx context.Context, olderThan time.Time, limit int) ([]*order.Order, error)
}

func (m *mockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	return nil
}

func (m *mockOrderRepository) UpdateIfPaymentStatus(ctx context.Context, o *order.Order, expected ordervo.PaymentStatus) error {
	if m.UpdateIfPaymentStatusFunc != nil {
		return m.UpdateIfPaymentStatusFunc(ctx, o, expected)
	}
	return nil
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id uint) (*order.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, order.ErrOrderNotFound
}

func (m *mockOrderRepository) GetByCorrelationKey(ctx context.Context, correlationKey string) (*order.Order, error) {
	if m.GetByCorrelationKeyFunc != nil {
		return m.GetByCorrelationKeyFunc(ctx, correlationKey)
	}
	return nil, order.ErrOrderNotFound
}

func (m *mockOrderRepository) GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*order.Order, error) {
	if m.GetByProviderPaymentIDFunc != nil {
		return m.GetByProviderPaymentIDFunc(ctx, providerPaymentID)
	}
	return nil, order.ErrOrderNotFound
}

func (m *mockOrderRepository) ListSyncCandidates(ctx context.Context, olderThan time.Time, limit int) ([]*order.Order, error) {
	if m.ListSyncCandidatesFunc != nil {
		return m.ListSyncCandidatesFunc(ctx, olderThan, limit)
	}
	return nil, nil
}

type mockSubscriptionRepository struct {
	CreateFunc                        func(ctx context.Context, sub *subscription.Subscription) error
	UpdateIfStatusFunc                func(ctx context.Context, sub *subscription.Subscription, expected subvo.SubscriptionStatus) error
	GetByIDFunc                       func(ctx context.Context, id uint) (*subscription.Subscription, error)
	GetByProviderSubscriptionIDFunc   func(ctx context.Context, providerID string) (*subscription.Subscription, error)
	ListByCorrelationKeyFunc          func(ctx context.Context, correlationKey string) ([]*subscription.Subscription, error)
	CountByCorrelationKeyFunc         func(ctx context.Context, correlationKey string) (int64, error)
	GetActiveByUserAndProductFunc     func(ctx context.Context, userID, productID uint) (*subscription.Subscription, error)
	ListSyncCandidatesFunc            func(ctx context.Context, olderThan time.Time, limit int) ([]*subscription.Subscription, error)
	ListDuplicatedCorrelationKeysFunc func(ctx context.Context, limit int) ([]string, error)
	DeleteByIDsFunc                   func(ctx context.Context, ids []uint) error
}

func (m *mockSubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, sub)
	}
	return nil
}

func (m *mockSubscriptionRepository) UpdateIfStatus(ctx context.Context, sub *subscription.Subscription, expected subvo.SubscriptionStatus) error {
	if m.UpdateIfStatusFunc != nil {
		return m.UpdateIfStatusFunc(ctx, sub, expected)
	}
	return nil
}

func (m *mockSubscriptionRepository) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, subscription.ErrSubscriptionNotFound
}

func (m *mockSubscriptionRepository) GetByProviderSubscriptionID(ctx context.Context, providerID string) (*subscription.Subscription, error) {
	if m.GetByProviderSubscriptionIDFunc != nil {
		return m.GetByProviderSubscriptionIDFunc(ctx, providerID)
	}
	return nil, subscription.ErrSubscriptionNotFound
}

func (m *mockSubscriptionRepository) ListByCorrelationKey(ctx context.Context, correlationKey string) ([]*subscription.Subscription, error) {
	if m.ListByCorrelationKeyFunc != nil {
		return m.ListByCorrelationKeyFunc(ctx, correlationKey)
	}
	return nil, nil
}

func (m *mockSubscriptionRepository) CountByCorrelationKey(ctx context.Context, correlationKey string) (int64, error) {
	if m.CountByCorrelationKeyFunc != nil {
		return m.CountByCorrelationKeyFunc(ctx, correlationKey)
	}
	return 0, nil
}

func (m *mockSubscriptionRepository) GetActiveByUserAndProduct(ctx context.Context, userID, productID uint) (*subscription.Subscription, error) {
	if m.GetActiveByUserAndProductFunc != nil {
		return m.GetActiveByUserAndProductFunc(ctx, userID, productID)
	}
	return nil, subscription.ErrSubscriptionNotFound
}

func (m *mockSubscriptionRepository) ListSyncCandidates(ctx context.Context, olderThan time.Time, limit int) ([]*subscription.Subscription, error) {
	if m.ListSyncCandidatesFunc != nil {
		return m.ListSyncCandidatesFunc(ctx, olderThan, limit)
	}
	return nil, nil
}

func (m *mockSubscriptionRepository) ListDuplicatedCorrelationKeys(ctx context.Context, limit int) ([]string, error) {
	if m.ListDuplicatedCorrelationKeysFunc != nil {
		return m.ListDuplicatedCorrelationKeysFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockSubscriptionRepository) DeleteByIDs(ctx context.Context, ids []uint) error {
	if m.DeleteByIDsFunc != nil {
		return m.DeleteByIDsFunc(ctx, ids)
	}
	return nil
}

type mockBillingRepository struct {
	mu      sync.Mutex
	entries []*billing.Entry

	AppendFunc                       func(ctx context.Context, e *billing.Entry) (bool, error)
	ExistsByProviderPaymentIDFunc    func(ctx context.Context, providerPaymentID string) (bool, error)
	HasEntryForSubscriptionSinceFunc func(ctx context.Context, subscriptionID uint, since time.Time) (bool, error)
	ListByOrderIDFunc                func(ctx context.Context, orderID uint) ([]*billing.Entry, error)
	ListBySubscriptionIDFunc         func(ctx context.Context, subscriptionID uint) ([]*billing.Entry, error)
}

// Append defaults to an in-memory ledger with the real duplicate no-op.
func (m *mockBillingRepository) Append(ctx context.Context, e *billing.Entry) (bool, error) {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.entries {
		if existing.ProviderPaymentID() == e.ProviderPaymentID() {
			return false, nil
		}
	}
	m.entries = append(m.entries, e)
	return true, nil
}

func (m *mockBillingRepository) ExistsByProviderPaymentID(ctx context.Context, providerPaymentID string) (bool, error) {
	if m.ExistsByProviderPaymentIDFunc != nil {
		return m.ExistsByProviderPaymentIDFunc(ctx, providerPaymentID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.entries {
		if existing.ProviderPaymentID() == providerPaymentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockBillingRepository) HasEntryForSubscriptionSince(ctx context.Context, subscriptionID uint, since time.Time) (bool, error) {
	if m.HasEntryForSubscriptionSinceFunc != nil {
		return m.HasEntryForSubscriptionSinceFunc(ctx, subscriptionID, since)
	}
	return false, nil
}

func (m *mockBillingRepository) ListByOrderID(ctx context.Context, orderID uint) ([]*billing.Entry, error) {
	if m.ListByOrderIDFunc != nil {
		return m.ListByOrderIDFunc(ctx, orderID)
	}
	return nil, nil
}

func (m *mockBillingRepository) ListBySubscriptionID(ctx context.Context, subscriptionID uint) ([]*billing.Entry, error) {
	if m.ListBySubscriptionIDFunc != nil {
		return m.ListBySubscriptionIDFunc(ctx, subscriptionID)
	}
	return nil, nil
}

func (m *mockBillingRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func testSnapshot() ordervo.CheckoutSnapshot {
	return ordervo.CheckoutSnapshot{
		Version: ordervo.SnapshotVersion,
		Items: []ordervo.LineItem{
			{ProductID: 7, ProductName: "Dry food 4kg", Quantity: 2, UnitPriceCents: 45000},
		},
		Shipping: ordervo.ShippingDestination{
			Street: "Av. Insurgentes 100", City: "CDMX", PostalCode: "03100", Country: "MX",
		},
	}
}

func testOrder(id uint, paymentStatus ordervo.PaymentStatus, providerPaymentID *string) *order.Order {
	status := ordervo.OrderStatusPending
	if paymentStatus == ordervo.PaymentStatusPaid {
		status = ordervo.OrderStatusProcessing
	}
	o, err := order.Reconstruct(order.ReconstructParams{
		ID:                id,
		CorrelationKey:    "corr-order-test",
		Status:            status,
		PaymentStatus:     paymentStatus,
		ProviderPaymentID: providerPaymentID,
		TotalCents:        90000,
		Currency:          "MXN",
		Snapshot:          testSnapshot(),
		Version:           1,
		CreatedAt:         time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		panic(err)
	}
	return o
}

func testSubscription(id uint, status subvo.SubscriptionStatus, providerSubID *string) *subscription.Subscription {
	sub, err := subscription.Reconstruct(subscription.ReconstructParams{
		ID:                     id,
		UserID:                 42,
		ProductID:              7,
		ProductName:            "Dry food 4kg",
		CorrelationKey:         "corr-sub-test",
		ProviderSubscriptionID: providerSubID,
		Status:                 status,
		Cadence:                subvo.CadenceMonthly,
		BasePriceCents:         45000,
		DiscountPercent:        10,
		DiscountedPriceCents:   40500,
		ChargesMade:            0,
		Metadata:               map[string]interface{}{},
		Version:                1,
		CreatedAt:              time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
		UpdatedAt:              time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		panic(err)
	}
	return sub
}

func strPtr(s string) *string { return &s }
