package order

import "errors"

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrTerminalPaymentStatus rejects any downgrade out of paid/failed.
	ErrTerminalPaymentStatus = errors.New("payment status is terminal")
)
