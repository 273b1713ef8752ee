package usecases

import (
	"context"
	"time"
)

// TransitionNotification describes a state change worth telling the
// notification collaborator about.
type TransitionNotification struct {
	Entity         string // "order" or "subscription"
	EntityID       uint
	CorrelationKey string
	FromStatus     string
	ToStatus       string
	OccurredAt     time.Time
}

// TransitionNotifier is the excluded notification collaborator. The engine
// only guarantees the call is attempted; failures are logged and never roll
// back a reconciliation.
type TransitionNotifier interface {
	NotifyTransition(ctx context.Context, n TransitionNotification) error
}
