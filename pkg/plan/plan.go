package plan

import (
	"errors"
	"fmt"
	"maps"
)

// Plan describes a subscription tier and its monthly resource allowances.
// StripePriceID must match the billing provider's price ID for paid tiers
// so checkout sessions and webhook events map back to a tier directly.
type Plan struct {
	Tier             Tier               `yaml:"tier"`
	Name             string             `yaml:"name"`
	StripePriceID    string             `yaml:"stripe_price_id"`
	Limits           map[Resource]int64 `yaml:"limits"`
	MaxDaysPerCourse int                `yaml:"max_days_per_course"`
	Price            Money              `yaml:"price"`
	Interval         BillingInterval    `yaml:"interval"`
}

// Limit returns the monthly allowance for a resource.
// Resources the plan does not mention are treated as exhausted.
func (p Plan) Limit(res Resource) int64 {
	limit, ok := p.Limits[res]
	if !ok {
		return 0
	}
	return limit
}

// MinutePack is a one-shot purchasable AI-minutes bundle. Purchased minutes
// accumulate on the subscription record and never expire or reset.
type MinutePack struct {
	ID            string `yaml:"id"`
	Minutes       int64  `yaml:"minutes"`
	StripePriceID string `yaml:"stripe_price_id"`
	Price         Money  `yaml:"price"`
}

// Catalog is the validated, immutable set of plans and minute packs.
// Build one through NewCatalog or a Source; lookups are read-only afterwards.
type Catalog struct {
	plans       map[Tier]Plan
	packs       map[string]MinutePack
	tierByPrice map[string]Tier
	packByPrice map[string]MinutePack
}

// NewCatalog validates the given plans and packs and builds lookup indexes.
func NewCatalog(plans []Plan, packs []MinutePack) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, errors.Join(ErrInvalidCatalog, errors.New("at least one plan is required"))
	}

	c := &Catalog{
		plans:       make(map[Tier]Plan, len(plans)),
		packs:       make(map[string]MinutePack, len(packs)),
		tierByPrice: make(map[string]Tier, len(plans)),
		packByPrice: make(map[string]MinutePack, len(packs)),
	}

	for _, p := range plans {
		if !p.Tier.Valid() {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("unknown tier %q", p.Tier))
		}
		if _, exists := c.plans[p.Tier]; exists {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("duplicate plan for tier %q", p.Tier))
		}
		if p.Tier.Paid() && p.StripePriceID == "" {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("paid tier %q has no price ID", p.Tier))
		}
		if !p.Tier.Paid() && p.StripePriceID != "" {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("free tier %q must not carry a price ID", p.Tier))
		}
		for _, res := range Resources() {
			limit, ok := p.Limits[res]
			if !ok {
				return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("tier %q misses a limit for %q", p.Tier, res))
			}
			if limit < Unlimited {
				return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("tier %q has invalid limit %d for %q", p.Tier, limit, res))
			}
		}

		p.Limits = maps.Clone(p.Limits)
		c.plans[p.Tier] = p
		if p.StripePriceID != "" {
			c.tierByPrice[p.StripePriceID] = p.Tier
		}
	}

	for _, pack := range packs {
		if pack.ID == "" || pack.Minutes <= 0 || pack.StripePriceID == "" {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("invalid minute pack %q", pack.ID))
		}
		if _, exists := c.packs[pack.ID]; exists {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("duplicate minute pack %q", pack.ID))
		}
		c.packs[pack.ID] = pack
		c.packByPrice[pack.StripePriceID] = pack
	}

	return c, nil
}

// Plan returns the plan for a tier.
func (c *Catalog) Plan(t Tier) (Plan, error) {
	p, ok := c.plans[t]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

// Pack returns a minute pack by its catalog ID.
func (c *Catalog) Pack(id string) (MinutePack, error) {
	pack, ok := c.packs[id]
	if !ok {
		return MinutePack{}, ErrPackNotFound
	}
	return pack, nil
}

// TierByPriceID resolves a provider price ID back to a tier.
// Used by webhook processing to map provider events onto the catalog.
func (c *Catalog) TierByPriceID(priceID string) (Tier, bool) {
	t, ok := c.tierByPrice[priceID]
	return t, ok
}

// PackByPriceID resolves a provider price ID back to a minute pack.
func (c *Catalog) PackByPriceID(priceID string) (MinutePack, bool) {
	pack, ok := c.packByPrice[priceID]
	return pack, ok
}

// Packs returns all purchasable minute packs.
func (c *Catalog) Packs() []MinutePack {
	out := make([]MinutePack, 0, len(c.packs))
	for _, pack := range c.packs {
		out = append(out, pack)
	}
	return out
}

// Default returns the production catalog shipped with the platform.
// Paid tiers include no monthly AI allowance; minutes are bought as packs.
func Default() ([]Plan, []MinutePack) {
	plans := []Plan{
		{
			Tier:     TierBasic,
			Name:     "Basic",
			Interval: BillingIntervalNone,
			Limits: map[Resource]int64{
				ResourceCourses:   2,
				ResourceExercises: 2,
				ResourceFiches:    2,
				ResourceAIMinutes: 3,
			},
			MaxDaysPerCourse: 10,
		},
		{
			Tier:          TierPremium,
			Name:          "Premium",
			StripePriceID: "price_premium_monthly",
			Interval:      BillingIntervalMonthly,
			Price:         Money{Amount: 990, Currency: "EUR"},
			Limits: map[Resource]int64{
				ResourceCourses:   10,
				ResourceExercises: 10,
				ResourceFiches:    10,
				ResourceAIMinutes: 0,
			},
			MaxDaysPerCourse: 10,
		},
		{
			Tier:          TierPro,
			Name:          "Pro",
			StripePriceID: "price_pro_monthly",
			Interval:      BillingIntervalMonthly,
			Price:         Money{Amount: 1990, Currency: "EUR"},
			Limits: map[Resource]int64{
				ResourceCourses:   30,
				ResourceExercises: 30,
				ResourceFiches:    30,
				ResourceAIMinutes: 0,
			},
			MaxDaysPerCourse: 10,
		},
	}

	packs := []MinutePack{
		{ID: "pack_30", Minutes: 30, StripePriceID: "price_minutes_30", Price: Money{Amount: 490, Currency: "EUR"}},
		{ID: "pack_60", Minutes: 60, StripePriceID: "price_minutes_60", Price: Money{Amount: 890, Currency: "EUR"}},
		{ID: "pack_120", Minutes: 120, StripePriceID: "price_minutes_120", Price: Money{Amount: 1590, Currency: "EUR"}},
	}

	return plans, packs
}
