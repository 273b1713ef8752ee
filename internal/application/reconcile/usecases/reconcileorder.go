package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petgourmet/ledgersync/internal/application/provider"
	"github.com/petgourmet/ledgersync/internal/domain/billing"
	"github.com/petgourmet/ledgersync/internal/domain/order"
	vo "github.com/petgourmet/ledgersync/internal/domain/order/valueobjects"
	"github.com/petgourmet/ledgersync/internal/shared/biztime"
	apperrors "github.com/petgourmet/ledgersync/internal/shared/errors"
	"github.com/petgourmet/ledgersync/internal/shared/goroutine"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

type ReconcileOrderCommand struct {
	OrderID uint
	// Force re-queries the provider even when the local payment status is
	// already terminal. Used by admin re-sync; can never downgrade.
	Force bool
}

type OrderOutcome struct {
	OrderID           uint   `json:"order_id"`
	PaymentStatus     string `json:"payment_status"`
	ProviderStatus    string `json:"provider_status,omitempty"`
	ProviderPaymentID string `json:"provider_payment_id,omitempty"`
	Changed           bool   `json:"changed"`
	BillingRecorded   bool   `json:"billing_recorded"`
}

// ReconcileOrderUseCase pulls the provider's canonical payment state and
// applies it to the local order. Stateless and idempotent; safe to run
// concurrently from the webhook path, the scheduler and the admin facade.
type ReconcileOrderUseCase struct {
	orderRepo   order.Repository
	billingRepo billing.Repository
	client      provider.Client
	notifier    TransitionNotifier // optional
	logger      logger.Interface
}

func NewReconcileOrderUseCase(
	orderRepo order.Repository,
	billingRepo billing.Repository,
	client provider.Client,
	logger logger.Interface,
) *ReconcileOrderUseCase {
	return &ReconcileOrderUseCase{
		orderRepo:   orderRepo,
		billingRepo: billingRepo,
		client:      client,
		logger:      logger,
	}
}

// SetNotifier sets the fire-and-forget notification collaborator.
func (uc *ReconcileOrderUseCase) SetNotifier(n TransitionNotifier) {
	uc.notifier = n
}

func (uc *ReconcileOrderUseCase) Execute(ctx context.Context, cmd ReconcileOrderCommand) (*OrderOutcome, error) {
	o, err := uc.orderRepo.GetByID(ctx, cmd.OrderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil, apperrors.NewNotFoundError("order not found", fmt.Sprintf("order_id=%d", cmd.OrderID))
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	// Terminal payment statuses short-circuit without a provider call
	// unless an admin forces a re-check. A ledger append that failed after
	// the order settled is backfilled here.
	if o.PaymentStatus().IsTerminal() && !cmd.Force {
		return uc.outcome(o, "", false, uc.ensureBillingRecorded(ctx, o)), nil
	}

	providerPayment, err := uc.fetchProviderPayment(ctx, o)
	if err != nil {
		return nil, err
	}

	target := mapPaymentStatus(providerPayment.Status)

	if o.PaymentStatus().IsTerminal() {
		// Forced re-check on a settled order: agreement is a no-op,
		// disagreement is rejected and logged, never applied.
		if target == o.PaymentStatus() || target == vo.PaymentStatusPending {
			return uc.outcome(o, providerPayment.Status, false, uc.ensureBillingRecorded(ctx, o)), nil
		}
		uc.logger.Warnw("provider disagrees with terminal payment status, refusing downgrade",
			"order_id", o.ID(),
			"local_status", o.PaymentStatus(),
			"provider_status", providerPayment.Status,
		)
		return nil, apperrors.NewInvariantError("refusing to downgrade terminal payment status",
			fmt.Sprintf("local=%s provider=%s", o.PaymentStatus(), providerPayment.Status))
	}

	outcome, err := uc.apply(ctx, o, providerPayment, target)
	if err == nil || !apperrors.IsStoreConflictError(err) {
		return outcome, err
	}

	// Lost a write race against a concurrent reconciler. One retry with a
	// fresh read; identical terminal outcomes converge to a no-op.
	uc.logger.Debugw("order write conflict, retrying with fresh read", "order_id", o.ID())
	o, err = uc.orderRepo.GetByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order after conflict: %w", err)
	}
	if o.PaymentStatus().IsTerminal() {
		return uc.outcome(o, providerPayment.Status, false, uc.ensureBillingRecorded(ctx, o)), nil
	}
	return uc.apply(ctx, o, providerPayment, target)
}

// fetchProviderPayment resolves the provider payment id (from the record or
// by correlation-key search) and fetches the canonical snapshot.
func (uc *ReconcileOrderUseCase) fetchProviderPayment(ctx context.Context, o *order.Order) (*provider.Payment, error) {
	if pid := o.ProviderPaymentID(); pid != nil && *pid != "" {
		p, err := uc.client.GetPayment(ctx, *pid)
		if err != nil {
			return nil, uc.classifyProviderError(err, "payment", *pid)
		}
		return p, nil
	}

	payments, err := uc.client.SearchPayments(ctx, o.CorrelationKey())
	if err != nil {
		return nil, uc.classifyProviderError(err, "payment search", o.CorrelationKey())
	}
	if len(payments) == 0 {
		return nil, apperrors.NewNotFoundError("no provider payment for correlation key", o.CorrelationKey())
	}

	return pickPayment(payments), nil
}

// pickPayment prefers an approved payment over retried/rejected attempts
// for the same checkout, falling back to the first result.
func pickPayment(payments []*provider.Payment) *provider.Payment {
	for _, p := range payments {
		if p.Status == "approved" {
			return p
		}
	}
	return payments[0]
}

func (uc *ReconcileOrderUseCase) classifyProviderError(err error, what, ref string) error {
	if errors.Is(err, provider.ErrNotFound) {
		return apperrors.NewNotFoundError("provider has no record", fmt.Sprintf("%s %s", what, ref))
	}
	if provider.IsTransient(err) {
		return apperrors.NewTransientError("provider lookup failed", err.Error())
	}
	return fmt.Errorf("provider %s lookup failed: %w", what, err)
}

func (uc *ReconcileOrderUseCase) apply(ctx context.Context, o *order.Order, p *provider.Payment, target vo.PaymentStatus) (*OrderOutcome, error) {
	expected := o.PaymentStatus()
	prior := expected.String()
	changed := false

	switch target {
	case vo.PaymentStatusPaid:
		if err := o.MarkPaid(p.ID); err != nil {
			return nil, err
		}
		changed = true
	case vo.PaymentStatusFailed:
		if err := o.MarkPaymentFailed(); err != nil {
			return nil, err
		}
		o.SetProviderPaymentID(p.ID)
		changed = true
	default:
		// Provider still pending: only link the resolved payment id.
		if o.ProviderPaymentID() == nil {
			o.SetProviderPaymentID(p.ID)
			changed = true
		}
	}
	if p.PayerEmail != "" && o.PayerEmail() == nil {
		o.SetPayerEmail(p.PayerEmail)
		changed = true
	}

	if !changed {
		return uc.outcome(o, p.Status, false, false), nil
	}

	if err := uc.orderRepo.UpdateIfPaymentStatus(ctx, o, expected); err != nil {
		return nil, err
	}

	billingRecorded := false
	if target == vo.PaymentStatusPaid {
		recorded, err := uc.appendBilling(ctx, o, p)
		if err != nil {
			// The order is already settled; the next pass backfills the
			// missing ledger row instead of rolling the order back.
			uc.logger.Errorw("failed to append billing entry", "order_id", o.ID(), "error", err)
		}
		billingRecorded = recorded
	}

	if target.IsTerminal() {
		uc.notify(o, prior, target.String())
	}

	uc.logger.Infow("order reconciled",
		"order_id", o.ID(),
		"payment_status", o.PaymentStatus(),
		"provider_status", p.Status,
		"provider_payment_id", p.ID,
	)

	return uc.outcome(o, p.Status, true, billingRecorded), nil
}

// ensureBillingRecorded backfills the ledger row for a paid order whose
// append failed on an earlier pass. The unique provider payment id keeps
// the write idempotent.
func (uc *ReconcileOrderUseCase) ensureBillingRecorded(ctx context.Context, o *order.Order) bool {
	pid := o.ProviderPaymentID()
	if o.PaymentStatus() != vo.PaymentStatusPaid || pid == nil || *pid == "" {
		return false
	}

	exists, err := uc.billingRepo.ExistsByProviderPaymentID(ctx, *pid)
	if err != nil {
		uc.logger.Warnw("failed to check for billing entry", "order_id", o.ID(), "error", err)
		return false
	}
	if exists {
		return false
	}

	entry, err := billing.NewEntry(*pid, o.TotalCents(), o.Currency(), billing.ChargeSucceeded, o.UpdatedAt())
	if err != nil {
		uc.logger.Errorw("failed to build billing entry", "order_id", o.ID(), "error", err)
		return false
	}

	recorded, err := uc.billingRepo.Append(ctx, entry.ForOrder(o.ID()))
	if err != nil {
		uc.logger.Errorw("failed to append billing entry", "order_id", o.ID(), "error", err)
		return false
	}
	if recorded {
		uc.logger.Infow("backfilled missing billing entry", "order_id", o.ID(), "provider_payment_id", *pid)
	}
	return recorded
}

func (uc *ReconcileOrderUseCase) appendBilling(ctx context.Context, o *order.Order, p *provider.Payment) (bool, error) {
	occurredAt := biztime.NowUTC()
	if p.DateApproved != nil {
		occurredAt = *p.DateApproved
	}

	entry, err := billing.NewEntry(p.ID, o.TotalCents(), o.Currency(), billing.ChargeSucceeded, occurredAt)
	if err != nil {
		return false, err
	}

	return uc.billingRepo.Append(ctx, entry.ForOrder(o.ID()))
}

func (uc *ReconcileOrderUseCase) notify(o *order.Order, from, to string) {
	if uc.notifier == nil {
		return
	}

	n := TransitionNotification{
		Entity:         "order",
		EntityID:       o.ID(),
		CorrelationKey: o.CorrelationKey(),
		FromStatus:     from,
		ToStatus:       to,
		OccurredAt:     biztime.NowUTC(),
	}

	goroutine.SafeGo(uc.logger, "order-transition-notify", func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := uc.notifier.NotifyTransition(notifyCtx, n); err != nil {
			uc.logger.Warnw("transition notification failed", "order_id", n.EntityID, "error", err)
		}
	})
}

func (uc *ReconcileOrderUseCase) outcome(o *order.Order, providerStatus string, changed, billingRecorded bool) *OrderOutcome {
	out := &OrderOutcome{
		OrderID:         o.ID(),
		PaymentStatus:   o.PaymentStatus().String(),
		ProviderStatus:  providerStatus,
		Changed:         changed,
		BillingRecorded: billingRecorded,
	}
	if pid := o.ProviderPaymentID(); pid != nil {
		out.ProviderPaymentID = *pid
	}
	return out
}
