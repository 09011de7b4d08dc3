package quota

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/studyforge/billing/pkg/plan"
)

// Service answers usage questions for the current billing month.
type Service interface {
	// CanCreate checks if a user can create a new resource instance.
	CanCreate(ctx context.Context, userID uuid.UUID, res plan.Resource) error

	// Check returns the full gate decision, including remaining counts and
	// the user-facing denial message.
	Check(ctx context.Context, userID uuid.UUID, res plan.Resource) (Decision, error)

	// GetUsage returns the current usage and limit for a countable resource.
	GetUsage(ctx context.Context, userID uuid.UUID, res plan.Resource) (used, limit int64, err error)

	// GetAllUsage returns usage info for every resource of the user's plan.
	GetAllUsage(ctx context.Context, userID uuid.UUID) (map[plan.Resource]UsageInfo, error)

	// UsagePercentage returns usage as percentage (0-100, or -1 for unlimited).
	// Returns 0 on errors so dashboards never crash on a failed lookup.
	UsagePercentage(ctx context.Context, userID uuid.UUID, res plan.Resource) int

	// CanDowngrade checks whether current usage fits within a target tier.
	CanDowngrade(ctx context.Context, userID uuid.UUID, target plan.Tier) error
}

type service struct {
	catalog  *plan.Catalog
	store    UsageStore
	resolver TierResolver
	now      func() time.Time
}

// NewService builds a quota Service from a plan source, a usage store, and a
// tier resolver. Panics on nil dependencies to fail fast at wiring time.
func NewService(ctx context.Context, src plan.Source, store UsageStore, resolver TierResolver) (Service, error) {
	if src == nil {
		panic("quota: plan source is required")
	}
	if store == nil {
		panic("quota: usage store is required")
	}
	if resolver == nil {
		panic("quota: tier resolver is required")
	}

	catalog, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}

	return &service{
		catalog:  catalog,
		store:    store,
		resolver: resolver,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) snapshot(ctx context.Context, userID uuid.UUID) (plan.Plan, Counters, int64, error) {
	tier, purchased, err := s.resolver(ctx, userID)
	if err != nil {
		return plan.Plan{}, Counters{}, 0, err
	}

	p, err := s.catalog.Plan(tier)
	if err != nil {
		return plan.Plan{}, Counters{}, 0, err
	}

	counters, err := s.store.Counters(ctx, userID, MonthKey(s.now()))
	if err != nil {
		return plan.Plan{}, Counters{}, 0, errors.Join(ErrFailedToCountUsage, err)
	}

	return p, counters, purchased, nil
}

func (s *service) CanCreate(ctx context.Context, userID uuid.UUID, res plan.Resource) error {
	d, err := s.Check(ctx, userID, res)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return ErrLimitExceeded
	}
	return nil
}

func (s *service) Check(ctx context.Context, userID uuid.UUID, res plan.Resource) (Decision, error) {
	if !res.Valid() {
		return Decision{}, ErrInvalidResource
	}

	p, counters, purchased, err := s.snapshot(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	return Check(p, counters, purchased, res), nil
}

func (s *service) GetUsage(ctx context.Context, userID uuid.UUID, res plan.Resource) (used, limit int64, err error) {
	if !res.Valid() || res == plan.ResourceAIMinutes {
		return 0, 0, ErrInvalidResource
	}

	p, counters, _, err := s.snapshot(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	return counters.Created(res), p.Limit(res), nil
}

func (s *service) GetAllUsage(ctx context.Context, userID uuid.UUID) (map[plan.Resource]UsageInfo, error) {
	p, counters, _, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make(map[plan.Resource]UsageInfo, len(plan.Resources()))
	for _, res := range plan.Resources() {
		limit := p.Limit(res)
		if res == plan.ResourceAIMinutes {
			result[res] = UsageInfo{
				Current:    int64(counters.AIMinutesUsed),
				Limit:      limit,
				Percentage: MinutesPercentage(counters.AIMinutesUsed, limit),
			}
			continue
		}
		used := counters.Created(res)
		result[res] = UsageInfo{
			Current:    used,
			Limit:      limit,
			Percentage: Percentage(used, limit),
		}
	}
	return result, nil
}

func (s *service) UsagePercentage(ctx context.Context, userID uuid.UUID, res plan.Resource) int {
	all, err := s.GetAllUsage(ctx, userID)
	if err != nil {
		return 0
	}
	info, ok := all[res]
	if !ok {
		return 0
	}
	return info.Percentage
}

// CanDowngrade refuses a downgrade that would strand existing usage above
// the target tier's limits. Limits can only shrink here, so usage created
// under the higher tier survives but blocks the switch until next month.
func (s *service) CanDowngrade(ctx context.Context, userID uuid.UUID, target plan.Tier) error {
	targetPlan, err := s.catalog.Plan(target)
	if err != nil {
		return err
	}

	_, counters, _, err := s.snapshot(ctx, userID)
	if err != nil {
		return err
	}

	for _, res := range plan.Resources() {
		if res == plan.ResourceAIMinutes {
			continue
		}
		limit := targetPlan.Limit(res)
		if limit == plan.Unlimited {
			continue
		}
		if counters.Created(res) > limit {
			return ErrDowngradeNotPossible
		}
	}
	return nil
}
