package billing

import (
	"context"

	"github.com/google/uuid"
)

// SubscriptionStore persists subscription records. Each user has exactly one
// subscription, so UserID serves as the primary key.
type SubscriptionStore interface {
	// Get retrieves a subscription by user ID.
	// Returns ErrSubscriptionNotFound if none exists (the user is implicitly
	// on basic).
	Get(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// GetByProviderSubID retrieves a subscription by the provider's ID.
	// Used by webhook events that carry no user reference.
	GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error)

	// Save creates or updates a subscription, keyed on UserID.
	Save(ctx context.Context, sub *Subscription) error
}
