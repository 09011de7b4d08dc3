package quota

import (
	"context"

	"github.com/google/uuid"

	"github.com/studyforge/billing/pkg/plan"
)

// UsageStore persists per-user, per-month usage counters.
// Reads must be fast as they sit on every resource-creation attempt; wrap
// the store with NewCachedStore when counter queries become hot.
type UsageStore interface {
	// Counters returns the counters for a user and month. A month with no
	// recorded usage returns zero counters, not an error.
	Counters(ctx context.Context, userID uuid.UUID, month string) (Counters, error)

	// IncrementCreated records one successful creation of a countable resource.
	IncrementCreated(ctx context.Context, userID uuid.UUID, month string, res plan.Resource) error

	// AddMinutesUsed records consumed AI-conversation time.
	AddMinutesUsed(ctx context.Context, userID uuid.UUID, month string, minutes float64) error
}

// TierResolver reports the plan tier and purchased minute balance for a user.
// The billing service provides this so the gate never reaches into the
// subscription store directly.
type TierResolver func(ctx context.Context, userID uuid.UUID) (plan.Tier, int64, error)
