package usecases

import (
	ordervo "github.com/petgourmet/ledgersync/internal/domain/order/valueobjects"
	subvo "github.com/petgourmet/ledgersync/internal/domain/subscription/valueobjects"
)

// mapPaymentStatus translates the provider's payment verdict into the local
// payment status. Anything outside the fixed table means "still pending"
// and produces no local change.
func mapPaymentStatus(providerStatus string) ordervo.PaymentStatus {
	switch providerStatus {
	case "approved":
		return ordervo.PaymentStatusPaid
	case "rejected", "cancelled":
		return ordervo.PaymentStatusFailed
	default:
		return ordervo.PaymentStatusPending
	}
}

// mapSubscriptionStatus translates the provider's preapproval status into
// the local subscription status.
func mapSubscriptionStatus(providerStatus string) subvo.SubscriptionStatus {
	switch providerStatus {
	case "authorized", "active":
		return subvo.StatusActive
	case "paused":
		return subvo.StatusPaused
	case "cancelled":
		return subvo.StatusCancelled
	case "rejected":
		return subvo.StatusPaymentFailed
	default:
		return subvo.StatusPending
	}
}
