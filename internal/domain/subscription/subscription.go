package subscription

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	vo "github.com/petgourmet/ledgersync/internal/domain/subscription/valueobjects"
	"github.com/petgourmet/ledgersync/internal/shared/biztime"
)

// Subscription is the recurring-billing aggregate root. The provider is the
// source of truth for its status; this record is an eventually-consistent
// projection maintained by the reconciler.
type Subscription struct {
	id                     uint
	userID                 uint
	productID              uint
	productName            string
	correlationKey         string
	providerSubscriptionID *string
	providerPaymentID      *string
	providerPreferenceID   *string
	status                 vo.SubscriptionStatus
	cadence                vo.Cadence
	basePriceCents         int64
	discountPercent        float64
	discountedPriceCents   int64
	lastBillingDate        *time.Time
	nextBillingDate        *time.Time
	activatedAt            *time.Time
	trialEndDate           *time.Time
	cancelledAt            *time.Time
	chargesMade            uint
	metadata               map[string]interface{}
	version                int
	createdAt              time.Time
	updatedAt              time.Time
}

// NewSubscription creates a pending subscription at checkout submission time.
// The correlation key is minted here and is the handle used to find the
// provider-side records before any provider id is known locally.
func NewSubscription(userID, productID uint, productName string, cadence vo.Cadence, basePriceCents int64, discountPercent float64) (*Subscription, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if productID == 0 {
		return nil, fmt.Errorf("product ID is required")
	}
	if !cadence.IsValid() {
		return nil, fmt.Errorf("invalid cadence: %s", cadence)
	}
	if basePriceCents <= 0 {
		return nil, fmt.Errorf("base price must be positive")
	}
	if discountPercent < 0 || discountPercent > 100 {
		return nil, fmt.Errorf("discount percent must be between 0 and 100")
	}

	now := biztime.NowUTC()
	discounted := basePriceCents - int64(float64(basePriceCents)*discountPercent/100)

	return &Subscription{
		userID:               userID,
		productID:            productID,
		productName:          productName,
		correlationKey:       uuid.NewString(),
		status:               vo.StatusPending,
		cadence:              cadence,
		basePriceCents:       basePriceCents,
		discountPercent:      discountPercent,
		discountedPriceCents: discounted,
		metadata:             make(map[string]interface{}),
		version:              1,
		createdAt:            now,
		updatedAt:            now,
	}, nil
}

// ReconstructParams carries persisted state back into the aggregate.
type ReconstructParams struct {
	ID                     uint
	UserID                 uint
	ProductID              uint
	ProductName            string
	CorrelationKey         string
	ProviderSubscriptionID *string
	ProviderPaymentID      *string
	ProviderPreferenceID   *string
	Status                 vo.SubscriptionStatus
	Cadence                vo.Cadence
	BasePriceCents         int64
	DiscountPercent        float64
	DiscountedPriceCents   int64
	LastBillingDate        *time.Time
	NextBillingDate        *time.Time
	ActivatedAt            *time.Time
	TrialEndDate           *time.Time
	CancelledAt            *time.Time
	ChargesMade            uint
	Metadata               map[string]interface{}
	Version                int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Reconstruct rebuilds a subscription from persistence.
func Reconstruct(p ReconstructParams) (*Subscription, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if p.CorrelationKey == "" {
		return nil, fmt.Errorf("correlation key is required")
	}
	if !vo.ValidStatuses[p.Status] {
		return nil, fmt.Errorf("invalid subscription status: %s", p.Status)
	}

	if p.Metadata == nil {
		p.Metadata = make(map[string]interface{})
	}

	return &Subscription{
		id:                     p.ID,
		userID:                 p.UserID,
		productID:              p.ProductID,
		productName:            p.ProductName,
		correlationKey:         p.CorrelationKey,
		providerSubscriptionID: p.ProviderSubscriptionID,
		providerPaymentID:      p.ProviderPaymentID,
		providerPreferenceID:   p.ProviderPreferenceID,
		status:                 p.Status,
		cadence:                p.Cadence,
		basePriceCents:         p.BasePriceCents,
		discountPercent:        p.DiscountPercent,
		discountedPriceCents:   p.DiscountedPriceCents,
		lastBillingDate:        p.LastBillingDate,
		nextBillingDate:        p.NextBillingDate,
		activatedAt:            p.ActivatedAt,
		trialEndDate:           p.TrialEndDate,
		cancelledAt:            p.CancelledAt,
		chargesMade:            p.ChargesMade,
		metadata:               p.Metadata,
		version:                p.Version,
		createdAt:              p.CreatedAt,
		updatedAt:              p.UpdatedAt,
	}, nil
}

func (s *Subscription) ID() uint                         { return s.id }
func (s *Subscription) UserID() uint                     { return s.userID }
func (s *Subscription) ProductID() uint                  { return s.productID }
func (s *Subscription) ProductName() string              { return s.productName }
func (s *Subscription) CorrelationKey() string           { return s.correlationKey }
func (s *Subscription) ProviderSubscriptionID() *string  { return s.providerSubscriptionID }
func (s *Subscription) ProviderPaymentID() *string       { return s.providerPaymentID }
func (s *Subscription) ProviderPreferenceID() *string    { return s.providerPreferenceID }
func (s *Subscription) Status() vo.SubscriptionStatus    { return s.status }
func (s *Subscription) Cadence() vo.Cadence              { return s.cadence }
func (s *Subscription) BasePriceCents() int64            { return s.basePriceCents }
func (s *Subscription) DiscountPercent() float64         { return s.discountPercent }
func (s *Subscription) DiscountedPriceCents() int64      { return s.discountedPriceCents }
func (s *Subscription) LastBillingDate() *time.Time      { return s.lastBillingDate }
func (s *Subscription) NextBillingDate() *time.Time      { return s.nextBillingDate }
func (s *Subscription) ActivatedAt() *time.Time          { return s.activatedAt }
func (s *Subscription) TrialEndDate() *time.Time         { return s.trialEndDate }
func (s *Subscription) CancelledAt() *time.Time          { return s.cancelledAt }
func (s *Subscription) ChargesMade() uint                { return s.chargesMade }
func (s *Subscription) Metadata() map[string]interface{} { return s.metadata }
func (s *Subscription) Version() int                     { return s.version }
func (s *Subscription) CreatedAt() time.Time             { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time             { return s.updatedAt }

// SetID sets the subscription ID after persistence
func (s *Subscription) SetID(id uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.id = id
	return nil
}

func (s *Subscription) touch() {
	s.updatedAt = biztime.NowUTC()
	s.version++
}

// Activate promotes the subscription after a provider-confirmed payment or
// authorization. It records the realized charge: next billing date is derived
// from the cadence and the activation time, and the charge counter advances.
// Calling it on an already-active subscription is a no-op.
func (s *Subscription) Activate(now time.Time) error {
	if s.status == vo.StatusActive {
		return nil
	}

	if !s.status.CanTransitionTo(vo.StatusActive) {
		return ErrInvalidTransition(s.status.String(), vo.StatusActive.String())
	}

	next := s.cadence.NextBillingDate(now)
	s.status = vo.StatusActive
	s.lastBillingDate = &now
	s.nextBillingDate = &next
	s.chargesMade++
	if s.activatedAt == nil {
		activated := now
		s.activatedAt = &activated
	}
	s.touch()

	return nil
}

// Resume reverts a paused subscription to active without touching the
// billing schedule. Admin path only; the reconciler uses Activate.
func (s *Subscription) Resume() error {
	if s.status == vo.StatusActive {
		return nil
	}

	if s.status != vo.StatusPaused {
		return ErrInvalidTransition(s.status.String(), vo.StatusActive.String())
	}

	s.status = vo.StatusActive
	s.touch()

	return nil
}

// Pause suspends an active subscription.
func (s *Subscription) Pause() error {
	if s.status == vo.StatusPaused {
		return nil
	}

	if !s.status.CanTransitionTo(vo.StatusPaused) {
		return ErrInvalidTransition(s.status.String(), vo.StatusPaused.String())
	}

	s.status = vo.StatusPaused
	s.touch()

	return nil
}

// Cancel moves the subscription into its terminal state. One-way.
func (s *Subscription) Cancel() error {
	if s.status == vo.StatusCancelled {
		return nil
	}

	if !s.status.CanTransitionTo(vo.StatusCancelled) {
		return ErrInvalidTransition(s.status.String(), vo.StatusCancelled.String())
	}

	now := biztime.NowUTC()
	s.status = vo.StatusCancelled
	s.cancelledAt = &now
	s.touch()

	return nil
}

// MarkPaymentFailed records a rejected or cancelled charge reported by the
// provider. Recovery happens through Activate or Cancel.
func (s *Subscription) MarkPaymentFailed(reason string) error {
	if s.status == vo.StatusPaymentFailed {
		return nil
	}

	if !s.status.CanTransitionTo(vo.StatusPaymentFailed) {
		return ErrInvalidTransition(s.status.String(), vo.StatusPaymentFailed.String())
	}

	s.status = vo.StatusPaymentFailed
	if reason != "" {
		s.metadata["payment_failure_reason"] = reason
	}
	s.touch()

	return nil
}

// SetProviderSubscriptionID links the provider-side record once known.
func (s *Subscription) SetProviderSubscriptionID(id string) {
	if id == "" {
		return
	}
	s.providerSubscriptionID = &id
	s.touch()
}

// SetProviderPaymentID records the payment that funded this subscription.
func (s *Subscription) SetProviderPaymentID(id string) {
	if id == "" {
		return
	}
	s.providerPaymentID = &id
	s.touch()
}

// SetProviderPreferenceID records the checkout preference used at creation.
func (s *Subscription) SetProviderPreferenceID(id string) {
	if id == "" {
		return
	}
	s.providerPreferenceID = &id
	s.touch()
}

// SetTrialEndDate records the provider-reported trial window end.
func (s *Subscription) SetTrialEndDate(t time.Time) {
	s.trialEndDate = &t
	s.touch()
}

// MergeMetadata folds the given bag into the subscription metadata.
// Incoming values win on key collision.
func (s *Subscription) MergeMetadata(other map[string]interface{}) {
	if len(other) == 0 {
		return
	}
	if s.metadata == nil {
		s.metadata = make(map[string]interface{})
	}
	for k, v := range other {
		s.metadata[k] = v
	}
	s.touch()
}

// metadata keys counted as provider correlation evidence by Score
const (
	metaKeyCollectionID    = "collection_id"
	metaKeyMerchantOrderID = "merchant_order_id"
)

// Score rates field-by-field completeness for duplicate consolidation.
// Higher is more complete; the consolidator keeps the max-score row.
func (s *Subscription) Score() int {
	score := 0
	if s.productName != "" {
		score++
	}
	if s.cadence.IsValid() {
		score++
	}
	if s.basePriceCents > 0 {
		score++
	}
	if s.status != "" {
		score++
	}
	if s.providerPaymentID != nil && *s.providerPaymentID != "" {
		score += 2
	}
	if s.hasCollectionMetadata() {
		score += 2
	}
	if s.providerPreferenceID != nil && *s.providerPreferenceID != "" {
		score++
	}
	if s.activatedAt != nil {
		score++
	}
	if s.nextBillingDate != nil {
		score++
	}
	if s.trialEndDate != nil {
		score++
	}
	return score
}

func (s *Subscription) hasCollectionMetadata() bool {
	for _, key := range []string{metaKeyCollectionID, metaKeyMerchantOrderID} {
		if v, ok := s.metadata[key]; ok {
			if str, isStr := v.(string); !isStr || str != "" {
				return true
			}
		}
	}
	return false
}

// AbsorbDuplicate merges a losing duplicate row into this canonical one:
// metadata from later-created rows wins collisions, the earliest creation
// time is kept, and missing provider identifiers are filled in.
func (s *Subscription) AbsorbDuplicate(other *Subscription) {
	if other == nil {
		return
	}

	s.MergeMetadata(other.metadata)

	if s.providerSubscriptionID == nil && other.providerSubscriptionID != nil {
		s.providerSubscriptionID = other.providerSubscriptionID
	}
	if s.providerPaymentID == nil && other.providerPaymentID != nil {
		s.providerPaymentID = other.providerPaymentID
	}
	if s.providerPreferenceID == nil && other.providerPreferenceID != nil {
		s.providerPreferenceID = other.providerPreferenceID
	}
	if s.trialEndDate == nil && other.trialEndDate != nil {
		s.trialEndDate = other.trialEndDate
	}
	if other.createdAt.Before(s.createdAt) {
		s.createdAt = other.createdAt
	}

	s.touch()
}
