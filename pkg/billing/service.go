package billing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studyforge/billing/pkg/plan"
	"github.com/studyforge/billing/pkg/quota"
)

// Service mediates every plan-mutating action and presents a single
// consistent view of plan, cycle, and usage.
//
// The billing provider stays authoritative: mutating operations only request
// a change and the local record is updated when the provider confirms it
// through a webhook. Nothing here retries automatically; every failure
// surfaces to the caller and requires a new explicit user action.
type Service interface {
	// GetState returns the subscription and current-month usage counters.
	GetState(ctx context.Context, userID uuid.UUID) (*Snapshot, error)

	// RequestPlanChange initiates a tier change. Moving from basic to a paid
	// tier requires a checkout redirect; switches between paid tiers apply
	// in place with immediate proration.
	RequestPlanChange(ctx context.Context, userID uuid.UUID, target plan.Tier, opts CheckoutOptions) (*PlanChange, error)

	// CancelSubscription schedules cancellation at the period boundary.
	// Idempotent: an already-scheduled cancellation is a no-op.
	CancelSubscription(ctx context.Context, userID uuid.UUID) error

	// ReactivateSubscription clears a scheduled cancellation.
	ReactivateSubscription(ctx context.Context, userID uuid.UUID) error

	// PurchaseMinutePack opens a one-shot payment checkout for an AI-minutes
	// pack. The balance is credited when the provider confirms the payment.
	PurchaseMinutePack(ctx context.Context, userID uuid.UUID, packID string, opts CheckoutOptions) (string, error)

	// HandleWebhook processes a provider event and syncs the local record.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error

	// TierResolver adapts the store for the quota gate.
	TierResolver() quota.TierResolver
}

// DowngradeGuard validates that a user may move to a lower tier.
// Wired to quota.Service.CanDowngrade at startup.
type DowngradeGuard func(ctx context.Context, userID uuid.UUID, target plan.Tier) error

type service struct {
	catalog  *plan.Catalog
	provider BillingProvider
	store    SubscriptionStore
	usage    quota.UsageStore
	notifier Notifier
	guard    DowngradeGuard
	log      *slog.Logger
	now      func() time.Time

	// inflight guards against double-submitted plan mutations per user.
	// A second request while one is running fails fast with
	// ErrChangeInProgress instead of racing at the provider.
	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

// NewService creates the billing Service. Panics on nil required
// dependencies to fail fast at wiring time.
func NewService(ctx context.Context, src plan.Source, provider BillingProvider, store SubscriptionStore, usage quota.UsageStore, opts ...ServiceOption) (Service, error) {
	if src == nil {
		panic("billing: plan source is required")
	}
	if provider == nil {
		panic("billing: provider is required")
	}
	if store == nil {
		panic("billing: subscription store is required")
	}
	if usage == nil {
		panic("billing: usage store is required")
	}

	catalog, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}

	s := &service{
		catalog:  catalog,
		provider: provider,
		store:    store,
		usage:    usage,
		notifier: noopNotifier{},
		log:      slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
		inflight: make(map[uuid.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// getOrDefault loads the subscription, falling back to the implicit basic
// record for users who never went through checkout.
func (s *service) getOrDefault(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return NewBasic(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *service) GetState(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	sub, err := s.getOrDefault(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrStateUnavailable, err)
	}

	counters, err := s.usage.Counters(ctx, userID, quota.MonthKey(s.now()))
	if err != nil {
		return nil, errors.Join(ErrStateUnavailable, err)
	}

	return &Snapshot{Subscription: sub, Usage: counters}, nil
}

// acquire registers an in-flight plan mutation for the user.
func (s *service) acquire(userID uuid.UUID) (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[userID]; busy {
		return nil, ErrChangeInProgress
	}
	s.inflight[userID] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, userID)
		s.mu.Unlock()
	}, nil
}

func (s *service) RequestPlanChange(ctx context.Context, userID uuid.UUID, target plan.Tier, opts CheckoutOptions) (*PlanChange, error) {
	if !target.Valid() {
		return nil, plan.ErrUnknownTier
	}

	release, err := s.acquire(userID)
	if err != nil {
		return nil, err
	}
	defer release()

	sub, err := s.getOrDefault(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrStateUnavailable, err)
	}

	if sub.Tier == target && !sub.CancelAtPeriodEnd {
		return nil, ErrAlreadyOnPlan
	}

	ev := planChangeEvent(sub.Tier, target)
	if !canFire(stateOf(sub), ev) {
		return nil, ErrInvalidTransition
	}

	if ev == eventDowngradeBasic || isDowngrade(sub.Tier, target) {
		if s.guard != nil {
			if err := s.guard(ctx, userID, target); err != nil {
				return nil, err
			}
		}
	}

	switch ev {
	case eventUpgrade:
		targetPlan, err := s.catalog.Plan(target)
		if err != nil {
			return nil, err
		}
		session, err := s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
			PriceID:    targetPlan.StripePriceID,
			Mode:       CheckoutModeSubscription,
			CustomerID: userID.String(),
			Email:      opts.Email,
			SuccessURL: opts.SuccessURL,
			CancelURL:  opts.CancelURL,
		})
		if err != nil {
			return nil, errors.Join(ErrPaymentInit, err)
		}
		s.log.InfoContext(ctx, "checkout session created", "user_id", userID, "target", target)
		return &PlanChange{CheckoutRequired: true, RedirectURL: session.URL}, nil

	case eventDowngradeBasic:
		if err := s.provider.CancelNow(ctx, sub.ProviderSubID); err != nil {
			return nil, errors.Join(ErrPaymentInit, err)
		}
		s.log.InfoContext(ctx, "subscription downgraded to basic", "user_id", userID)
		return &PlanChange{CheckoutRequired: false}, nil

	default: // eventChangePlan
		targetPlan, err := s.catalog.Plan(target)
		if err != nil {
			return nil, err
		}
		if err := s.provider.ChangePlan(ctx, sub.ProviderSubID, targetPlan.StripePriceID); err != nil {
			return nil, errors.Join(ErrPaymentInit, err)
		}
		s.log.InfoContext(ctx, "plan changed in place", "user_id", userID, "from", sub.Tier, "to", target)
		return &PlanChange{CheckoutRequired: false}, nil
	}
}

// isDowngrade reports whether the switch shrinks monthly limits.
// Tier ordering is basic < premium < pro.
func isDowngrade(current, target plan.Tier) bool {
	rank := map[plan.Tier]int{plan.TierBasic: 0, plan.TierPremium: 1, plan.TierPro: 2}
	return rank[target] < rank[current]
}

func (s *service) CancelSubscription(ctx context.Context, userID uuid.UUID) error {
	release, err := s.acquire(userID)
	if err != nil {
		return err
	}
	defer release()

	sub, err := s.getOrDefault(ctx, userID)
	if err != nil {
		return errors.Join(ErrStateUnavailable, err)
	}

	if !sub.OnPaidPlan() || sub.ProviderSubID == "" {
		return ErrNoActiveSubscription
	}
	if sub.CancelAtPeriodEnd {
		// Already scheduled; nothing to do.
		return nil
	}
	if !canFire(stateOf(sub), eventCancel) {
		return ErrInvalidTransition
	}

	if err := s.provider.CancelAtPeriodEnd(ctx, sub.ProviderSubID); err != nil {
		return errors.Join(ErrCancelFailed, err)
	}

	s.log.InfoContext(ctx, "cancellation scheduled", "user_id", userID, "tier", sub.Tier)
	s.notifier.CancellationScheduled(ctx, userID)
	return nil
}

func (s *service) ReactivateSubscription(ctx context.Context, userID uuid.UUID) error {
	release, err := s.acquire(userID)
	if err != nil {
		return err
	}
	defer release()

	sub, err := s.getOrDefault(ctx, userID)
	if err != nil {
		return errors.Join(ErrStateUnavailable, err)
	}

	if sub.ProviderSubID == "" {
		return ErrNoActiveSubscription
	}
	if !sub.CancelAtPeriodEnd {
		// Nothing scheduled; nothing to clear.
		return nil
	}
	if !canFire(stateOf(sub), eventReactivate) {
		return ErrInvalidTransition
	}

	if err := s.provider.Reactivate(ctx, sub.ProviderSubID); err != nil {
		return errors.Join(ErrReactivateFailed, err)
	}

	s.log.InfoContext(ctx, "cancellation cleared", "user_id", userID, "tier", sub.Tier)
	return nil
}

func (s *service) PurchaseMinutePack(ctx context.Context, userID uuid.UUID, packID string, opts CheckoutOptions) (string, error) {
	pack, err := s.catalog.Pack(packID)
	if err != nil {
		return "", err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		PriceID:    pack.StripePriceID,
		Mode:       CheckoutModePayment,
		CustomerID: userID.String(),
		Email:      opts.Email,
		SuccessURL: opts.SuccessURL,
		CancelURL:  opts.CancelURL,
	})
	if err != nil {
		return "", errors.Join(ErrPaymentInit, err)
	}

	s.log.InfoContext(ctx, "minute pack checkout created", "user_id", userID, "pack", packID)
	return session.URL, nil
}

// TierResolver exposes the subscription store to the quota gate without the
// gate importing this package's service.
func (s *service) TierResolver() quota.TierResolver {
	return func(ctx context.Context, userID uuid.UUID) (plan.Tier, int64, error) {
		sub, err := s.getOrDefault(ctx, userID)
		if err != nil {
			return "", 0, err
		}
		return sub.Tier, sub.AIMinutesPurchased, nil
	}
}
