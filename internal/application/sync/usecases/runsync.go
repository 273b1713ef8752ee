package usecases

import (
	"context"
	"fmt"
	"time"

	reconcileUsecases "github.com/petgourmet/ledgersync/internal/application/reconcile/usecases"
	"github.com/petgourmet/ledgersync/internal/domain/billing"
	"github.com/petgourmet/ledgersync/internal/domain/order"
	"github.com/petgourmet/ledgersync/internal/domain/subscription"
	"github.com/petgourmet/ledgersync/internal/shared/biztime"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

type RunSyncCommand struct {
	// MaxAge bounds how fresh a pending row may be before the scheduler
	// leaves it alone; push delivery normally wins inside this window.
	MaxAge time.Duration
	// Limit caps candidates per entity kind per run.
	Limit int
	// ItemTimeout bounds each provider round-trip; scheduler-path calls
	// can afford longer timeouts than the webhook path.
	ItemTimeout time.Duration
}

type SyncItem struct {
	Entity  string `json:"entity"`
	ID      uint   `json:"id"`
	Changed bool   `json:"changed"`
	Error   string `json:"error,omitempty"`
}

type SyncReport struct {
	Processed  int        `json:"processed"`
	Updated    int        `json:"updated"`
	Errors     int        `json:"errors"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Items      []SyncItem `json:"items"`
}

// RunSyncUseCase is the pull fallback to webhook push delivery: it scans the
// ledger for stale or inconsistent rows and feeds them to the reconciler.
// Individual failures land in the report; the batch never aborts. Safe to
// run concurrently with itself because the reconciler is idempotent.
type RunSyncUseCase struct {
	orderRepo        order.Repository
	subRepo          subscription.Repository
	billingRepo      billing.Repository
	reconcileOrderUC *reconcileUsecases.ReconcileOrderUseCase
	reconcileSubUC   *reconcileUsecases.ReconcileSubscriptionUseCase
	logger           logger.Interface
}

func NewRunSyncUseCase(
	orderRepo order.Repository,
	subRepo subscription.Repository,
	billingRepo billing.Repository,
	reconcileOrderUC *reconcileUsecases.ReconcileOrderUseCase,
	reconcileSubUC *reconcileUsecases.ReconcileSubscriptionUseCase,
	logger logger.Interface,
) *RunSyncUseCase {
	return &RunSyncUseCase{
		orderRepo:        orderRepo,
		subRepo:          subRepo,
		billingRepo:      billingRepo,
		reconcileOrderUC: reconcileOrderUC,
		reconcileSubUC:   reconcileSubUC,
		logger:           logger,
	}
}

func (uc *RunSyncUseCase) Execute(ctx context.Context, cmd RunSyncCommand) (*SyncReport, error) {
	if cmd.MaxAge <= 0 {
		cmd.MaxAge = time.Hour
	}
	if cmd.Limit <= 0 {
		cmd.Limit = 100
	}
	if cmd.ItemTimeout <= 0 {
		cmd.ItemTimeout = 15 * time.Second
	}

	report := &SyncReport{StartedAt: biztime.NowUTC()}
	cutoff := report.StartedAt.Add(-cmd.MaxAge)

	uc.syncOrders(ctx, cmd, cutoff, report)
	uc.syncSubscriptions(ctx, cmd, cutoff, report)

	report.FinishedAt = biztime.NowUTC()

	uc.logger.Infow("sync run finished",
		"processed", report.Processed,
		"updated", report.Updated,
		"errors", report.Errors,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)

	return report, nil
}

func (uc *RunSyncUseCase) syncOrders(ctx context.Context, cmd RunSyncCommand, cutoff time.Time, report *SyncReport) {
	candidates, err := uc.orderRepo.ListSyncCandidates(ctx, cutoff, cmd.Limit)
	if err != nil {
		uc.logger.Errorw("failed to list order sync candidates", "error", err)
		report.Errors++
		report.Items = append(report.Items, SyncItem{Entity: "order", Error: fmt.Sprintf("candidate listing failed: %v", err)})
		return
	}

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return
		}

		item := SyncItem{Entity: "order", ID: candidate.ID()}
		itemCtx, cancel := context.WithTimeout(ctx, cmd.ItemTimeout)
		outcome, err := uc.reconcileOrderUC.Execute(itemCtx, reconcileUsecases.ReconcileOrderCommand{OrderID: candidate.ID()})
		cancel()

		report.Processed++
		if err != nil {
			report.Errors++
			item.Error = err.Error()
			uc.logger.Warnw("order sync candidate failed", "order_id", candidate.ID(), "error", err)
		} else if outcome.Changed {
			report.Updated++
			item.Changed = true
		}
		report.Items = append(report.Items, item)
	}
}

func (uc *RunSyncUseCase) syncSubscriptions(ctx context.Context, cmd RunSyncCommand, cutoff time.Time, report *SyncReport) {
	candidates, err := uc.subRepo.ListSyncCandidates(ctx, cutoff, cmd.Limit)
	if err != nil {
		uc.logger.Errorw("failed to list subscription sync candidates", "error", err)
		report.Errors++
		report.Items = append(report.Items, SyncItem{Entity: "subscription", Error: fmt.Sprintf("candidate listing failed: %v", err)})
		return
	}

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return
		}

		if uc.shouldSkipSubscription(ctx, candidate) {
			continue
		}

		item := SyncItem{Entity: "subscription", ID: candidate.ID()}
		itemCtx, cancel := context.WithTimeout(ctx, cmd.ItemTimeout)
		outcome, err := uc.reconcileSubUC.Execute(itemCtx, reconcileUsecases.ReconcileSubscriptionCommand{SubscriptionID: candidate.ID()})
		cancel()

		report.Processed++
		if err != nil {
			report.Errors++
			item.Error = err.Error()
			uc.logger.Warnw("subscription sync candidate failed", "subscription_id", candidate.ID(), "error", err)
		} else if outcome.Changed {
			report.Updated++
			item.Changed = true
		}
		report.Items = append(report.Items, item)
	}
}

// shouldSkipSubscription drops active candidates whose passed billing date
// already has a charge on the ledger; those are not drifted, just recent.
func (uc *RunSyncUseCase) shouldSkipSubscription(ctx context.Context, sub *subscription.Subscription) bool {
	next := sub.NextBillingDate()
	if next == nil || next.After(biztime.NowUTC()) {
		return false
	}

	charged, err := uc.billingRepo.HasEntryForSubscriptionSince(ctx, sub.ID(), *next)
	if err != nil {
		uc.logger.Warnw("failed to check billing history, keeping candidate",
			"subscription_id", sub.ID(), "error", err)
		return false
	}
	return charged
}
