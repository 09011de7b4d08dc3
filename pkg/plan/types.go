package plan

import "fmt"

// Tier identifies a subscription tier.
type Tier string

const (
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierPro     Tier = "pro"
)

// Valid reports whether the tier is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierBasic, TierPremium, TierPro:
		return true
	}
	return false
}

// Paid reports whether the tier requires a billing provider subscription.
func (t Tier) Paid() bool {
	return t == TierPremium || t == TierPro
}

// ParseTier converts a string into a Tier, rejecting unknown values.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
	return t, nil
}

// Resource represents a countable user resource type.
type Resource string

const (
	ResourceCourses   Resource = "courses"
	ResourceExercises Resource = "exercises"
	ResourceFiches    Resource = "fiches"
	ResourceAIMinutes Resource = "ai_minutes"
)

// Resources lists every resource a plan must define a limit for.
func Resources() []Resource {
	return []Resource{ResourceCourses, ResourceExercises, ResourceFiches, ResourceAIMinutes}
}

// Valid reports whether the resource is one of the known resource types.
func (r Resource) Valid() bool {
	switch r {
	case ResourceCourses, ResourceExercises, ResourceFiches, ResourceAIMinutes:
		return true
	}
	return false
}

const (
	// Unlimited indicates no limit for a resource (-1 chosen for SQL compatibility)
	Unlimited int64 = -1
)

// Money represents a monetary amount in the smallest currency unit.
// For example, 9.90 EUR would be Amount: 990, Currency: "EUR".
type Money struct {
	Amount   int64  `yaml:"amount"`
	Currency string `yaml:"currency"`
}

// BillingInterval represents the billing frequency for a subscription plan.
type BillingInterval string

const (
	BillingIntervalNone    BillingInterval = "none" // free tier, no provider subscription
	BillingIntervalMonthly BillingInterval = "monthly"
)
