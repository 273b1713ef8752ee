package handlers

import (
	"context"

	consolidationUsecases "github.com/petgourmet/ledgersync/internal/application/consolidation/usecases"
	reconcileUsecases "github.com/petgourmet/ledgersync/internal/application/reconcile/usecases"
	subscriptionUsecases "github.com/petgourmet/ledgersync/internal/application/subscription/usecases"
	syncUsecases "github.com/petgourmet/ledgersync/internal/application/sync/usecases"
	webhookUsecases "github.com/petgourmet/ledgersync/internal/application/webhook/usecases"
	"github.com/petgourmet/ledgersync/internal/domain/subscription"
)

// Use case interfaces consumed by the handlers. The concrete use cases
// satisfy them; tests substitute fakes.

type EventIngester interface {
	Execute(ctx context.Context, cmd webhookUsecases.IngestEventCommand) (*webhookUsecases.AckResult, error)
}

type OrderReconciler interface {
	Execute(ctx context.Context, cmd reconcileUsecases.ReconcileOrderCommand) (*reconcileUsecases.OrderOutcome, error)
}

type SubscriptionReconciler interface {
	Execute(ctx context.Context, cmd reconcileUsecases.ReconcileSubscriptionCommand) (*reconcileUsecases.SubscriptionOutcome, error)
}

type SyncRunner interface {
	Execute(ctx context.Context, cmd syncUsecases.RunSyncCommand) (*syncUsecases.SyncReport, error)
}

type Consolidator interface {
	Execute(ctx context.Context, cmd consolidationUsecases.ConsolidateCommand) (*consolidationUsecases.ConsolidationReport, error)
}

type ConsolidationSweeper interface {
	Execute(ctx context.Context, cmd consolidationUsecases.ConsolidateAllCommand) (*consolidationUsecases.ConsolidateAllReport, error)
}

type SubscriptionPauser interface {
	Execute(ctx context.Context, cmd subscriptionUsecases.PauseSubscriptionCommand) (*subscription.Subscription, error)
}

type SubscriptionResumer interface {
	Execute(ctx context.Context, cmd subscriptionUsecases.ResumeSubscriptionCommand) (*subscription.Subscription, error)
}

type SubscriptionCanceller interface {
	Execute(ctx context.Context, cmd subscriptionUsecases.CancelSubscriptionCommand) (*subscription.Subscription, error)
}
