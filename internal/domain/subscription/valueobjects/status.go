package valueobjects

type SubscriptionStatus string

const (
	StatusPending       SubscriptionStatus = "pending"
	StatusActive        SubscriptionStatus = "active"
	StatusPaused        SubscriptionStatus = "paused"
	StatusCancelled     SubscriptionStatus = "cancelled"
	StatusPaymentFailed SubscriptionStatus = "payment_failed"
)

var ValidStatuses = map[SubscriptionStatus]bool{
	StatusPending:       true,
	StatusActive:        true,
	StatusPaused:        true,
	StatusCancelled:     true,
	StatusPaymentFailed: true,
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is permitted.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCancelled
}

func (s SubscriptionStatus) CanTransitionTo(target SubscriptionStatus) bool {
	transitions := map[SubscriptionStatus][]SubscriptionStatus{
		StatusPending:       {StatusActive, StatusCancelled, StatusPaymentFailed},
		StatusActive:        {StatusPaused, StatusCancelled, StatusPaymentFailed},
		StatusPaused:        {StatusActive, StatusCancelled},
		StatusPaymentFailed: {StatusActive, StatusCancelled},
		StatusCancelled:     {},
	}

	allowed, exists := transitions[s]
	if !exists {
		return false
	}

	for _, allowedStatus := range allowed {
		if allowedStatus == target {
			return true
		}
	}
	return false
}
