package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	vo "github.com/petgourmet/ledgersync/internal/domain/order/valueobjects"
	"github.com/petgourmet/ledgersync/internal/shared/biztime"
)

// Order represents a one-time or subscription-originating purchase. It is
// created at checkout and mutated only by the reconciler or explicit admin
// confirmation; rows are never deleted (audit requirement).
type Order struct {
	id                uint
	correlationKey    string
	status            vo.OrderStatus
	paymentStatus     vo.PaymentStatus
	providerPaymentID *string
	totalCents        int64
	currency          string
	payerEmail        *string
	snapshot          vo.CheckoutSnapshot
	version           int
	createdAt         time.Time
	updatedAt         time.Time
}

// NewOrder creates a pending order with its checkout snapshot. The
// correlation key is minted here and travels to the provider as the
// external reference of the checkout attempt.
func NewOrder(snapshot vo.CheckoutSnapshot, currency string) (*Order, error) {
	if snapshot.IsZero() {
		return nil, fmt.Errorf("checkout snapshot is required")
	}
	if len(snapshot.Items) == 0 {
		return nil, fmt.Errorf("order must contain at least one line item")
	}
	if currency == "" {
		return nil, fmt.Errorf("currency is required")
	}

	now := biztime.NowUTC()
	return &Order{
		correlationKey: uuid.NewString(),
		status:         vo.OrderStatusPending,
		paymentStatus:  vo.PaymentStatusPending,
		totalCents:     snapshot.TotalCents(),
		currency:       currency,
		snapshot:       snapshot,
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructParams carries persisted state back into the aggregate.
type ReconstructParams struct {
	ID                uint
	CorrelationKey    string
	Status            vo.OrderStatus
	PaymentStatus     vo.PaymentStatus
	ProviderPaymentID *string
	TotalCents        int64
	Currency          string
	PayerEmail        *string
	Snapshot          vo.CheckoutSnapshot
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Reconstruct rebuilds an order from persistence.
func Reconstruct(p ReconstructParams) (*Order, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("order ID cannot be zero")
	}
	if p.CorrelationKey == "" {
		return nil, fmt.Errorf("correlation key is required")
	}
	if !vo.ValidOrderStatuses[p.Status] {
		return nil, fmt.Errorf("invalid order status: %s", p.Status)
	}
	if !vo.ValidPaymentStatuses[p.PaymentStatus] {
		return nil, fmt.Errorf("invalid payment status: %s", p.PaymentStatus)
	}

	return &Order{
		id:                p.ID,
		correlationKey:    p.CorrelationKey,
		status:            p.Status,
		paymentStatus:     p.PaymentStatus,
		providerPaymentID: p.ProviderPaymentID,
		totalCents:        p.TotalCents,
		currency:          p.Currency,
		payerEmail:        p.PayerEmail,
		snapshot:          p.Snapshot,
		version:           p.Version,
		createdAt:         p.CreatedAt,
		updatedAt:         p.UpdatedAt,
	}, nil
}

func (o *Order) ID() uint               { return o.id }
func (o *Order) CorrelationKey() string { return o.correlationKey }
func (o *Order) Status() vo.OrderStatus { return o.status }
func (o *Order) PaymentStatus() vo.PaymentStatus {
	return o.paymentStatus
}
func (o *Order) ProviderPaymentID() *string    { return o.providerPaymentID }
func (o *Order) TotalCents() int64             { return o.totalCents }
func (o *Order) Currency() string              { return o.currency }
func (o *Order) PayerEmail() *string           { return o.payerEmail }
func (o *Order) Snapshot() vo.CheckoutSnapshot { return o.snapshot }
func (o *Order) Version() int                  { return o.version }
func (o *Order) CreatedAt() time.Time          { return o.createdAt }
func (o *Order) UpdatedAt() time.Time          { return o.updatedAt }

// SetID sets the order ID after persistence
func (o *Order) SetID(id uint) error {
	if o.id != 0 {
		return fmt.Errorf("order ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("order ID cannot be zero")
	}
	o.id = id
	return nil
}

func (o *Order) touch() {
	o.updatedAt = biztime.NowUTC()
	o.version++
}

// MarkPaid settles the order. Idempotent when already paid; any other
// terminal state rejects the downgrade.
func (o *Order) MarkPaid(providerPaymentID string) error {
	if o.paymentStatus == vo.PaymentStatusPaid {
		return nil
	}

	if o.paymentStatus != vo.PaymentStatusPending {
		return fmt.Errorf("%w: cannot mark %s payment as paid", ErrTerminalPaymentStatus, o.paymentStatus)
	}
	if providerPaymentID == "" {
		return fmt.Errorf("provider payment ID is required")
	}

	o.paymentStatus = vo.PaymentStatusPaid
	o.providerPaymentID = &providerPaymentID
	if o.status == vo.OrderStatusPending {
		o.status = vo.OrderStatusProcessing
	}
	o.touch()

	return nil
}

// MarkPaymentFailed records a rejected or cancelled payment.
func (o *Order) MarkPaymentFailed() error {
	if o.paymentStatus == vo.PaymentStatusFailed {
		return nil
	}

	if o.paymentStatus != vo.PaymentStatusPending {
		return fmt.Errorf("%w: cannot mark %s payment as failed", ErrTerminalPaymentStatus, o.paymentStatus)
	}

	o.paymentStatus = vo.PaymentStatusFailed
	o.touch()

	return nil
}

// SetProviderPaymentID links the provider payment once resolved, without
// changing the settlement verdict.
func (o *Order) SetProviderPaymentID(id string) {
	if id == "" {
		return
	}
	o.providerPaymentID = &id
	o.touch()
}

// SetPayerEmail records the payer contact reported by the provider.
func (o *Order) SetPayerEmail(email string) {
	if email == "" {
		return
	}
	o.payerEmail = &email
	o.touch()
}

// Confirm marks the order as fulfilled. Admin path.
func (o *Order) Confirm() error {
	if o.status == vo.OrderStatusConfirmed {
		return nil
	}
	if o.status == vo.OrderStatusCancelled {
		return fmt.Errorf("cannot confirm a cancelled order")
	}
	if o.paymentStatus != vo.PaymentStatusPaid {
		return fmt.Errorf("cannot confirm an unpaid order")
	}

	o.status = vo.OrderStatusConfirmed
	o.touch()

	return nil
}

// Cancel voids an unfulfilled order.
func (o *Order) Cancel() error {
	if o.status == vo.OrderStatusCancelled {
		return nil
	}
	if o.status == vo.OrderStatusConfirmed {
		return fmt.Errorf("cannot cancel a confirmed order")
	}

	o.status = vo.OrderStatusCancelled
	o.touch()

	return nil
}
