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
	"github.com/petgourmet/ledgersync/internal/domain/webhook"
	apperrors "github.com/petgourmet/ledgersync/internal/shared/errors"
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

// memWebhookRepo is an in-memory event log with the same unique-id contract
// as the real table.
type memWebhookRepo struct {
	mu     sync.Mutex
	events map[string]*webhook.Event
	nextID uint
}

func newMemWebhookRepo() *memWebhookRepo {
	return &memWebhookRepo{events: make(map[string]*webhook.Event), nextID: 1}
}

func (r *memWebhookRepo) Insert(ctx context.Context, e *webhook.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[e.ProviderEventID()]; exists {
		return apperrors.NewConflictError("duplicate provider event id")
	}
	e.SetID(r.nextID)
	r.nextID++
	r.events[e.ProviderEventID()] = e
	return nil
}

func (r *memWebhookRepo) Update(ctx context.Context, e *webhook.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[e.ProviderEventID()]; !exists {
		return webhook.ErrEventNotFound
	}
	r.events[e.ProviderEventID()] = e
	return nil
}

func (r *memWebhookRepo) GetByProviderEventID(ctx context.Context, providerEventID string) (*webhook.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[providerEventID]
	if !ok {
		return nil, webhook.ErrEventNotFound
	}
	return e, nil
}

func (r *memWebhookRepo) get(providerEventID string) *webhook.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[providerEventID]
}

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

type mockBillingRepository struct{}

func (mockBillingRepository) Append(ctx context.Context, e *billing.Entry) (bool, error) {
	return true, nil
}

func (mockBillingRepository) ExistsByProviderPaymentID(ctx context.Context, providerPaymentID string) (bool, error) {
	return false, nil
}

func (mockBillingRepository) HasEntryForSubscriptionSince(ctx context.Context, subscriptionID uint, since time.Time) (bool, error) {
	return false, nil
}

func (mockBillingRepository) ListByOrderID(ctx context.Context, orderID uint) ([]*billing.Entry, error) {
	return nil, nil
}

func (mockBillingRepository) ListBySubscriptionID(ctx context.Context, subscriptionID uint) ([]*billing.Entry, error) {
	return nil, nil
}

func testOrder(id uint, paymentStatus ordervo.PaymentStatus, providerPaymentID *string) *order.Order {
	o, err := order.Reconstruct(order.ReconstructParams{
		ID:                id,
		CorrelationKey:    "corr-order-test",
		Status:            ordervo.OrderStatusPending,
		PaymentStatus:     paymentStatus,
		ProviderPaymentID: providerPaymentID,
		TotalCents:        90000,
		Currency:          "MXN",
		Snapshot: ordervo.CheckoutSnapshot{
			Version: ordervo.SnapshotVersion,
			Items: []ordervo.LineItem{
				{ProductID: 7, ProductName: "Dry food 4kg", Quantity: 2, UnitPriceCents: 45000},
			},
			Shipping: ordervo.ShippingDestination{Street: "Av. Insurgentes 100", City: "CDMX", PostalCode: "03100", Country: "MX"},
		},
		Version:   1,
		CreatedAt: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
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
