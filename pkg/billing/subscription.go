package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studyforge/billing/pkg/plan"
)

// Subscription is a user's billing record. Each user has exactly one; users
// who never paid are on the basic tier with no provider subscription.
//
// The billing provider is the system of record: this record mirrors it and
// is only mutated through webhook events, never optimistically.
type Subscription struct {
	UserID             uuid.UUID // primary key - one subscription per user
	Tier               plan.Tier
	Status             Status
	ProviderSubID      string // provider's subscription ID (empty for basic)
	ProviderCustomerID string // provider's customer ID (cus_xxx, ctm_xxx)
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	AIMinutesPurchased int64 // accumulated pack minutes; never expires or resets
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CancelledAt        *time.Time
}

// NewBasic returns the implicit signup subscription: basic tier, no provider
// record.
func NewBasic(userID uuid.UUID) *Subscription {
	now := time.Now().UTC()
	return &Subscription{
		UserID:    userID,
		Tier:      plan.TierBasic,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OnPaidPlan reports whether the user holds a provider-backed subscription.
func (s *Subscription) OnPaidPlan() bool {
	return s.Tier.Paid()
}

// IsActive reports whether the subscription is in good standing.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// IsCancelScheduled reports whether the plan ends at the period boundary.
func (s *Subscription) IsCancelScheduled() bool {
	return s.CancelAtPeriodEnd
}

// Validate enforces the record's structural invariants:
//
//	Tier == basic          ⇔ ProviderSubID == ""
//	CancelAtPeriodEnd true ⇒ paid tier with a known period end
func (s *Subscription) Validate() error {
	if !s.Tier.Valid() {
		return errors.Join(ErrInvariantViolated, fmt.Errorf("unknown tier %q", s.Tier))
	}
	if s.Tier == plan.TierBasic && s.ProviderSubID != "" {
		return errors.Join(ErrInvariantViolated, errors.New("basic tier must not reference a provider subscription"))
	}
	if s.Tier.Paid() && s.ProviderSubID == "" {
		return errors.Join(ErrInvariantViolated, fmt.Errorf("paid tier %q requires a provider subscription", s.Tier))
	}
	if s.CancelAtPeriodEnd {
		if !s.Tier.Paid() {
			return errors.Join(ErrInvariantViolated, errors.New("cancellation can only be scheduled on a paid tier"))
		}
		if s.CurrentPeriodEnd == nil {
			return errors.Join(ErrInvariantViolated, errors.New("scheduled cancellation requires a period end"))
		}
	}
	if s.AIMinutesPurchased < 0 {
		return errors.Join(ErrInvariantViolated, errors.New("purchased minutes cannot be negative"))
	}
	return nil
}
