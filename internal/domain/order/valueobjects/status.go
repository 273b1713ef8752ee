package valueobjects

// OrderStatus tracks fulfillment, independent of payment settlement.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var ValidOrderStatuses = map[OrderStatus]bool{
	OrderStatusPending:    true,
	OrderStatusProcessing: true,
	OrderStatusConfirmed:  true,
	OrderStatusCancelled:  true,
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusConfirmed || s == OrderStatusCancelled
}

// PaymentStatus reflects the provider's settlement verdict. Transitions are
// pending to paid or pending to failed only; terminal states never reverse.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

var ValidPaymentStatuses = map[PaymentStatus]bool{
	PaymentStatusPending: true,
	PaymentStatusPaid:    true,
	PaymentStatusFailed:  true,
}

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}
