package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/petgourmet/ledgersync/internal/application/provider"
	reconcileUsecases "github.com/petgourmet/ledgersync/internal/application/reconcile/usecases"
	"github.com/petgourmet/ledgersync/internal/domain/order"
	"github.com/petgourmet/ledgersync/internal/domain/subscription"
	"github.com/petgourmet/ledgersync/internal/domain/webhook"
	apperrors "github.com/petgourmet/ledgersync/internal/shared/errors"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

type IngestEventCommand struct {
	// ProviderEventID is the dedup key from the notification envelope.
	ProviderEventID string
	// RawType is the provider's type tag, validated against the closed set.
	RawType    string
	Action     string
	ResourceID string
}

type AckResult struct {
	// Ack means the provider should consider the event delivered (HTTP
	// 2xx), even when reconciliation was deferred to the sync scheduler.
	Ack       bool   `json:"ack"`
	Duplicate bool   `json:"duplicate"`
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
}

// IngestEventUseCase deduplicates an inbound notification, classifies it and
// drives the reconciler synchronously within the request. Failures we can
// retry ourselves are still acknowledged to the provider; only malformed or
// unauthenticated input is refused.
type IngestEventUseCase struct {
	webhookRepo      webhook.Repository
	orderRepo        order.Repository
	subRepo          subscription.Repository
	client           provider.Client
	reconcileOrderUC *reconcileUsecases.ReconcileOrderUseCase
	reconcileSubUC   *reconcileUsecases.ReconcileSubscriptionUseCase
	logger           logger.Interface
}

func NewIngestEventUseCase(
	webhookRepo webhook.Repository,
	orderRepo order.Repository,
	subRepo subscription.Repository,
	client provider.Client,
	reconcileOrderUC *reconcileUsecases.ReconcileOrderUseCase,
	reconcileSubUC *reconcileUsecases.ReconcileSubscriptionUseCase,
	logger logger.Interface,
) *IngestEventUseCase {
	return &IngestEventUseCase{
		webhookRepo:      webhookRepo,
		orderRepo:        orderRepo,
		subRepo:          subRepo,
		client:           client,
		reconcileOrderUC: reconcileOrderUC,
		reconcileSubUC:   reconcileSubUC,
		logger:           logger,
	}
}

func (uc *IngestEventUseCase) Execute(ctx context.Context, cmd IngestEventCommand) (*AckResult, error) {
	if cmd.ProviderEventID == "" {
		return nil, apperrors.NewValidationError("event id is required")
	}

	eventType, known := webhook.KnownEventTypes[cmd.RawType]
	if !known {
		uc.logger.Warnw("rejecting event with unknown type", "event_id", cmd.ProviderEventID, "type", cmd.RawType)
		return nil, apperrors.NewValidationError("unknown event type", cmd.RawType)
	}

	event, err := uc.recordEvent(ctx, cmd, eventType)
	if err != nil {
		return nil, err
	}
	if event == nil {
		// Replayed event already processed; at-least-once delivery means
		// this must be a clean no-op.
		uc.logger.Infow("duplicate event acknowledged", "event_id", cmd.ProviderEventID)
		return &AckResult{Ack: true, Duplicate: true, Status: string(webhook.StatusProcessed)}, nil
	}

	if eventType == webhook.EventTypeMerchantOrder {
		// Housekeeping notification; acknowledged without reconciling.
		event.MarkProcessed()
		if err := uc.webhookRepo.Update(ctx, event); err != nil {
			uc.logger.Errorw("failed to mark merchant-order event processed", "event_id", cmd.ProviderEventID, "error", err)
		}
		return &AckResult{Ack: true, Status: string(webhook.StatusProcessed)}, nil
	}

	if cmd.ResourceID == "" {
		event.MarkFailed("event envelope carries no resource id")
		if uerr := uc.webhookRepo.Update(ctx, event); uerr != nil {
			uc.logger.Errorw("failed to update webhook event", "event_id", cmd.ProviderEventID, "error", uerr)
		}
		return nil, apperrors.NewValidationError("event envelope carries no resource id")
	}

	reconcileErr := uc.dispatch(ctx, eventType, cmd.ResourceID)
	if reconcileErr == nil {
		event.MarkProcessed()
		if err := uc.webhookRepo.Update(ctx, event); err != nil {
			uc.logger.Errorw("failed to mark event processed", "event_id", cmd.ProviderEventID, "error", err)
		}
		return &AckResult{Ack: true, Status: string(webhook.StatusProcessed)}, nil
	}

	event.MarkFailed(reconcileErr.Error())
	if err := uc.webhookRepo.Update(ctx, event); err != nil {
		uc.logger.Errorw("failed to mark event failed", "event_id", cmd.ProviderEventID, "error", err)
	}

	if isRetryableByUs(reconcileErr) {
		// Our side will retry via the sync scheduler; telling the provider
		// to redeliver would only duplicate work.
		uc.logger.Warnw("reconciliation deferred to sync scheduler",
			"event_id", cmd.ProviderEventID, "error", reconcileErr)
		return &AckResult{Ack: true, Status: string(webhook.StatusFailed), Detail: reconcileErr.Error()}, nil
	}

	return nil, reconcileErr
}

// recordEvent inserts the received row, returning nil when the event id was
// already fully processed. A concurrent duplicate insert resolves through
// the unique index on the provider event id.
func (uc *IngestEventUseCase) recordEvent(ctx context.Context, cmd IngestEventCommand, eventType webhook.EventType) (*webhook.Event, error) {
	existing, err := uc.webhookRepo.GetByProviderEventID(ctx, cmd.ProviderEventID)
	if err != nil && !errors.Is(err, webhook.ErrEventNotFound) {
		return nil, fmt.Errorf("failed to look up webhook event: %w", err)
	}
	if existing != nil {
		if existing.IsProcessed() {
			return nil, nil
		}
		// Redelivery of an event we failed or never finished: reprocess
		// under the existing audit row.
		return existing, nil
	}

	event, err := webhook.NewEvent(cmd.ProviderEventID, eventType, cmd.Action, cmd.ResourceID)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid event", err.Error())
	}

	if err := uc.webhookRepo.Insert(ctx, event); err != nil {
		if apperrors.IsDuplicateError(err) || apperrors.IsConflictError(err) {
			// Lost the insert race to a concurrent delivery of the same id.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to record webhook event: %w", err)
	}

	return event, nil
}

// dispatch resolves which local entity the provider resource belongs to and
// runs the matching reconciler.
func (uc *IngestEventUseCase) dispatch(ctx context.Context, eventType webhook.EventType, resourceID string) error {
	switch eventType {
	case webhook.EventTypePayment:
		return uc.dispatchPayment(ctx, resourceID)
	case webhook.EventTypeSubscription:
		return uc.dispatchSubscription(ctx, resourceID)
	default:
		return apperrors.NewValidationError("unroutable event type", string(eventType))
	}
}

func (uc *IngestEventUseCase) dispatchPayment(ctx context.Context, paymentID string) error {
	if o, err := uc.orderRepo.GetByProviderPaymentID(ctx, paymentID); err == nil {
		_, rerr := uc.reconcileOrderUC.Execute(ctx, reconcileUsecases.ReconcileOrderCommand{OrderID: o.ID()})
		return rerr
	} else if !errors.Is(err, order.ErrOrderNotFound) {
		return fmt.Errorf("failed to look up order by provider payment id: %w", err)
	}

	// First sighting of this payment: the provider snapshot carries the
	// correlation key that ties it back to a local checkout attempt.
	p, err := uc.client.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return apperrors.NewNotFoundError("provider has no record of payment", paymentID)
		}
		if provider.IsTransient(err) {
			return apperrors.NewTransientError("provider payment lookup failed", err.Error())
		}
		return fmt.Errorf("provider payment lookup failed: %w", err)
	}
	if p.CorrelationKey == "" {
		return apperrors.NewNotFoundError("payment carries no correlation key", paymentID)
	}

	if o, err := uc.orderRepo.GetByCorrelationKey(ctx, p.CorrelationKey); err == nil {
		_, rerr := uc.reconcileOrderUC.Execute(ctx, reconcileUsecases.ReconcileOrderCommand{OrderID: o.ID()})
		return rerr
	} else if !errors.Is(err, order.ErrOrderNotFound) {
		return fmt.Errorf("failed to look up order by correlation key: %w", err)
	}

	// Payments can also fund subscription checkouts.
	subs, err := uc.subRepo.ListByCorrelationKey(ctx, p.CorrelationKey)
	if err != nil {
		return fmt.Errorf("failed to look up subscriptions by correlation key: %w", err)
	}
	if len(subs) > 0 {
		_, rerr := uc.reconcileSubUC.Execute(ctx, reconcileUsecases.ReconcileSubscriptionCommand{CorrelationKey: p.CorrelationKey})
		return rerr
	}

	return apperrors.NewNotFoundError("no local entity for payment correlation key", p.CorrelationKey)
}

func (uc *IngestEventUseCase) dispatchSubscription(ctx context.Context, providerSubID string) error {
	if sub, err := uc.subRepo.GetByProviderSubscriptionID(ctx, providerSubID); err == nil {
		_, rerr := uc.reconcileSubUC.Execute(ctx, reconcileUsecases.ReconcileSubscriptionCommand{SubscriptionID: sub.ID()})
		return rerr
	} else if !errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return fmt.Errorf("failed to look up subscription by provider id: %w", err)
	}

	ps, err := uc.client.GetSubscription(ctx, providerSubID)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return apperrors.NewNotFoundError("provider has no record of subscription", providerSubID)
		}
		if provider.IsTransient(err) {
			return apperrors.NewTransientError("provider subscription lookup failed", err.Error())
		}
		return fmt.Errorf("provider subscription lookup failed: %w", err)
	}
	if ps.CorrelationKey == "" {
		return apperrors.NewNotFoundError("subscription carries no correlation key", providerSubID)
	}

	_, rerr := uc.reconcileSubUC.Execute(ctx, reconcileUsecases.ReconcileSubscriptionCommand{CorrelationKey: ps.CorrelationKey})
	return rerr
}

// isRetryableByUs separates "our problem, the scheduler retries" from "your
// problem, do not redeliver". Entity-not-found falls in the first bucket for
// ack purposes: redelivery will not create the missing entity, the row stays
// flagged for manual review.
func isRetryableByUs(err error) bool {
	return apperrors.IsTransientError(err) ||
		apperrors.IsStoreConflictError(err) ||
		apperrors.IsNotFoundError(err) ||
		apperrors.IsInvariantError(err)
}
