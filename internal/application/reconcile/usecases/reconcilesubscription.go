package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petgourmet/ledgersync/internal/application/provider"
	"github.com/petgourmet/ledgersync/internal/domain/billing"
	"github.com/petgourmet/ledgersync/internal/domain/subscription"
	vo "github.com/petgourmet/ledgersync/internal/domain/subscription/valueobjects"
	"github.com/petgourmet/ledgersync/internal/shared/biztime"
	apperrors "github.com/petgourmet/ledgersync/internal/shared/errors"
	"github.com/petgourmet/ledgersync/internal/shared/goroutine"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

type ReconcileSubscriptionCommand struct {
	// SubscriptionID or CorrelationKey selects the subscription; the id
	// wins when both are set.
	SubscriptionID uint
	CorrelationKey string
	// Force re-queries the provider even for cancelled subscriptions.
	Force bool
}

type SubscriptionOutcome struct {
	SubscriptionID         uint       `json:"subscription_id"`
	Status                 string     `json:"status"`
	ProviderStatus         string     `json:"provider_status,omitempty"`
	ProviderSubscriptionID string     `json:"provider_subscription_id,omitempty"`
	NextBillingDate        *time.Time `json:"next_billing_date,omitempty"`
	ChargesMade            uint       `json:"charges_made"`
	Changed                bool       `json:"changed"`
	BillingRecorded        bool       `json:"billing_recorded"`
}

// ReconcileSubscriptionUseCase pulls the provider's canonical preapproval
// state and applies the resulting state-machine transition locally.
type ReconcileSubscriptionUseCase struct {
	subRepo     subscription.Repository
	billingRepo billing.Repository
	client      provider.Client
	notifier    TransitionNotifier // optional
	logger      logger.Interface
}

func NewReconcileSubscriptionUseCase(
	subRepo subscription.Repository,
	billingRepo billing.Repository,
	client provider.Client,
	logger logger.Interface,
) *ReconcileSubscriptionUseCase {
	return &ReconcileSubscriptionUseCase{
		subRepo:     subRepo,
		billingRepo: billingRepo,
		client:      client,
		logger:      logger,
	}
}

// SetNotifier sets the fire-and-forget notification collaborator.
func (uc *ReconcileSubscriptionUseCase) SetNotifier(n TransitionNotifier) {
	uc.notifier = n
}

func (uc *ReconcileSubscriptionUseCase) Execute(ctx context.Context, cmd ReconcileSubscriptionCommand) (*SubscriptionOutcome, error) {
	sub, err := uc.load(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if sub.Status().IsTerminal() && !cmd.Force {
		return uc.outcome(sub, "", false, false), nil
	}

	providerSub, err := uc.fetchProviderSubscription(ctx, sub)
	if err != nil {
		return nil, err
	}

	target := mapSubscriptionStatus(providerSub.Status)

	if sub.Status().IsTerminal() {
		if target == sub.Status() || target == vo.StatusPending {
			return uc.outcome(sub, providerSub.Status, false, false), nil
		}
		uc.logger.Warnw("provider disagrees with cancelled subscription, refusing transition",
			"subscription_id", sub.ID(),
			"provider_status", providerSub.Status,
		)
		return nil, apperrors.NewInvariantError("refusing transition out of cancelled subscription",
			fmt.Sprintf("provider=%s", providerSub.Status))
	}

	outcome, err := uc.apply(ctx, sub, providerSub, target)
	if err == nil || !apperrors.IsStoreConflictError(err) {
		return outcome, err
	}

	uc.logger.Debugw("subscription write conflict, retrying with fresh read", "subscription_id", sub.ID())
	sub, err = uc.subRepo.GetByID(ctx, sub.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to reload subscription after conflict: %w", err)
	}
	if sub.Status().IsTerminal() {
		return uc.outcome(sub, providerSub.Status, false, false), nil
	}
	return uc.apply(ctx, sub, providerSub, target)
}

func (uc *ReconcileSubscriptionUseCase) load(ctx context.Context, cmd ReconcileSubscriptionCommand) (*subscription.Subscription, error) {
	if cmd.SubscriptionID != 0 {
		sub, err := uc.subRepo.GetByID(ctx, cmd.SubscriptionID)
		if err != nil {
			if errors.Is(err, subscription.ErrSubscriptionNotFound) {
				return nil, apperrors.NewNotFoundError("subscription not found", fmt.Sprintf("subscription_id=%d", cmd.SubscriptionID))
			}
			return nil, fmt.Errorf("failed to load subscription: %w", err)
		}
		return sub, nil
	}

	if cmd.CorrelationKey == "" {
		return nil, apperrors.NewValidationError("subscription id or correlation key is required")
	}

	subs, err := uc.subRepo.ListByCorrelationKey(ctx, cmd.CorrelationKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions by correlation key: %w", err)
	}
	if len(subs) == 0 {
		return nil, apperrors.NewNotFoundError("subscription not found", cmd.CorrelationKey)
	}

	// Duplicates for a correlation key may still exist before the
	// consolidator collapses them; reconcile against the most complete row.
	return subscription.SelectCanonical(subs), nil
}

func (uc *ReconcileSubscriptionUseCase) fetchProviderSubscription(ctx context.Context, sub *subscription.Subscription) (*provider.Subscription, error) {
	if pid := sub.ProviderSubscriptionID(); pid != nil && *pid != "" {
		ps, err := uc.client.GetSubscription(ctx, *pid)
		if err != nil {
			return nil, uc.classifyProviderError(err, "subscription", *pid)
		}
		return ps, nil
	}

	results, err := uc.client.SearchSubscriptions(ctx, sub.CorrelationKey())
	if err != nil {
		return nil, uc.classifyProviderError(err, "subscription search", sub.CorrelationKey())
	}
	if len(results) == 0 {
		return nil, apperrors.NewNotFoundError("no provider subscription for correlation key", sub.CorrelationKey())
	}

	return pickSubscription(results), nil
}

// pickSubscription prefers an authorized agreement over abandoned attempts
// sharing the same correlation key.
func pickSubscription(results []*provider.Subscription) *provider.Subscription {
	for _, s := range results {
		if s.Status == "authorized" || s.Status == "active" {
			return s
		}
	}
	return results[0]
}

func (uc *ReconcileSubscriptionUseCase) classifyProviderError(err error, what, ref string) error {
	if errors.Is(err, provider.ErrNotFound) {
		return apperrors.NewNotFoundError("provider has no record", fmt.Sprintf("%s %s", what, ref))
	}
	if provider.IsTransient(err) {
		return apperrors.NewTransientError("provider lookup failed", err.Error())
	}
	return fmt.Errorf("provider %s lookup failed: %w", what, err)
}

func (uc *ReconcileSubscriptionUseCase) apply(ctx context.Context, sub *subscription.Subscription, ps *provider.Subscription, target vo.SubscriptionStatus) (*SubscriptionOutcome, error) {
	expected := sub.Status()
	prior := expected.String()
	now := biztime.NowUTC()
	changed := false

	switch target {
	case vo.StatusActive:
		if sub.Status() != vo.StatusActive {
			if err := uc.guardSingleActive(ctx, sub); err != nil {
				return nil, err
			}
			if err := sub.Activate(now); err != nil {
				return nil, err
			}
			changed = true
		}
	case vo.StatusPaused:
		if sub.Status() != vo.StatusPaused {
			if err := sub.Pause(); err != nil {
				return nil, err
			}
			changed = true
		}
	case vo.StatusCancelled:
		if err := sub.Cancel(); err != nil {
			return nil, err
		}
		changed = true
	case vo.StatusPaymentFailed:
		if sub.Status() != vo.StatusPaymentFailed {
			if err := sub.MarkPaymentFailed(ps.Status); err != nil {
				return nil, err
			}
			changed = true
		}
	default:
		// Provider still pending; only enrichment below may dirty the row.
	}

	if uc.enrich(sub, ps) {
		changed = true
	}

	if !changed {
		// An already-active row may still be missing the ledger entry for
		// its last charge if the append failed on the activating pass.
		return uc.outcome(sub, ps.Status, false, uc.ensureBillingRecorded(ctx, sub, ps)), nil
	}

	if err := uc.subRepo.UpdateIfStatus(ctx, sub, expected); err != nil {
		return nil, err
	}

	billingRecorded := false
	if target == vo.StatusActive && ps.LastPaymentID != "" {
		recorded, err := uc.appendBilling(ctx, sub, ps)
		if err != nil {
			uc.logger.Errorw("failed to append billing entry", "subscription_id", sub.ID(), "error", err)
		}
		billingRecorded = recorded
	}

	if prior != sub.Status().String() && (target == vo.StatusActive || target == vo.StatusPaymentFailed) {
		uc.notify(sub, prior, sub.Status().String())
	}

	uc.logger.Infow("subscription reconciled",
		"subscription_id", sub.ID(),
		"status", sub.Status(),
		"provider_status", ps.Status,
		"charges_made", sub.ChargesMade(),
	)

	return uc.outcome(sub, ps.Status, true, billingRecorded), nil
}

// guardSingleActive enforces the one-active-subscription-per-(user,product)
// invariant before promoting this row.
func (uc *ReconcileSubscriptionUseCase) guardSingleActive(ctx context.Context, sub *subscription.Subscription) error {
	existing, err := uc.subRepo.GetActiveByUserAndProduct(ctx, sub.UserID(), sub.ProductID())
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			return nil
		}
		return fmt.Errorf("failed to check active subscription: %w", err)
	}
	if existing != nil && existing.ID() != sub.ID() {
		return apperrors.NewInvariantError("an active subscription already exists for this user and product",
			fmt.Sprintf("existing_subscription_id=%d", existing.ID()))
	}
	return nil
}

// enrich copies provider-side identifiers and metadata onto the local row.
func (uc *ReconcileSubscriptionUseCase) enrich(sub *subscription.Subscription, ps *provider.Subscription) bool {
	changed := false

	if sub.ProviderSubscriptionID() == nil && ps.ID != "" {
		sub.SetProviderSubscriptionID(ps.ID)
		changed = true
	}
	if sub.ProviderPaymentID() == nil && ps.LastPaymentID != "" {
		sub.SetProviderPaymentID(ps.LastPaymentID)
		changed = true
	}
	if sub.ProviderPreferenceID() == nil && ps.PreferenceID != "" {
		sub.SetProviderPreferenceID(ps.PreferenceID)
		changed = true
	}
	if sub.TrialEndDate() == nil && ps.TrialEndDate != nil {
		sub.SetTrialEndDate(*ps.TrialEndDate)
		changed = true
	}
	if ps.PayerEmail != "" {
		if current, ok := sub.Metadata()["payer_email"].(string); !ok || current != ps.PayerEmail {
			sub.MergeMetadata(map[string]interface{}{"payer_email": ps.PayerEmail})
			changed = true
		}
	}

	return changed
}

// subscriptionCurrency is the settlement currency of recurring charges.
const subscriptionCurrency = "MXN"

// ensureBillingRecorded backfills the ledger row for a charge whose append
// failed on an earlier pass. The unique provider payment id keeps the write
// idempotent.
func (uc *ReconcileSubscriptionUseCase) ensureBillingRecorded(ctx context.Context, sub *subscription.Subscription, ps *provider.Subscription) bool {
	if sub.Status() != vo.StatusActive || ps.LastPaymentID == "" {
		return false
	}

	exists, err := uc.billingRepo.ExistsByProviderPaymentID(ctx, ps.LastPaymentID)
	if err != nil {
		uc.logger.Warnw("failed to check for billing entry", "subscription_id", sub.ID(), "error", err)
		return false
	}
	if exists {
		return false
	}

	recorded, err := uc.appendBilling(ctx, sub, ps)
	if err != nil {
		uc.logger.Errorw("failed to append billing entry", "subscription_id", sub.ID(), "error", err)
		return false
	}
	if recorded {
		uc.logger.Infow("backfilled missing billing entry", "subscription_id", sub.ID(), "provider_payment_id", ps.LastPaymentID)
	}
	return recorded
}

func (uc *ReconcileSubscriptionUseCase) appendBilling(ctx context.Context, sub *subscription.Subscription, ps *provider.Subscription) (bool, error) {
	entry, err := billing.NewEntry(ps.LastPaymentID, sub.DiscountedPriceCents(), subscriptionCurrency, billing.ChargeSucceeded, biztime.NowUTC())
	if err != nil {
		return false, err
	}

	return uc.billingRepo.Append(ctx, entry.ForSubscription(sub.ID()))
}

func (uc *ReconcileSubscriptionUseCase) notify(sub *subscription.Subscription, from, to string) {
	if uc.notifier == nil {
		return
	}

	n := TransitionNotification{
		Entity:         "subscription",
		EntityID:       sub.ID(),
		CorrelationKey: sub.CorrelationKey(),
		FromStatus:     from,
		ToStatus:       to,
		OccurredAt:     biztime.NowUTC(),
	}

	goroutine.SafeGo(uc.logger, "subscription-transition-notify", func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := uc.notifier.NotifyTransition(notifyCtx, n); err != nil {
			uc.logger.Warnw("transition notification failed", "subscription_id", n.EntityID, "error", err)
		}
	})
}

func (uc *ReconcileSubscriptionUseCase) outcome(sub *subscription.Subscription, providerStatus string, changed, billingRecorded bool) *SubscriptionOutcome {
	out := &SubscriptionOutcome{
		SubscriptionID:  sub.ID(),
		Status:          sub.Status().String(),
		ProviderStatus:  providerStatus,
		NextBillingDate: sub.NextBillingDate(),
		ChargesMade:     sub.ChargesMade(),
		Changed:         changed,
		BillingRecorded: billingRecorded,
	}
	if pid := sub.ProviderSubscriptionID(); pid != nil {
		out.ProviderSubscriptionID = *pid
	}
	return out
}
