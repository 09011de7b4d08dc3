package billing

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]Subscription
}

// NewMemoryStore returns an in-memory SubscriptionStore for tests and local
// development.
func NewMemoryStore() SubscriptionStore {
	return &memoryStore{subs: make(map[uuid.UUID]Subscription)}
}

func (s *memoryStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[userID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	out := sub
	return &out, nil
}

func (s *memoryStore) GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if providerSubID == "" {
		return nil, ErrSubscriptionNotFound
	}
	for _, sub := range s.subs {
		if sub.ProviderSubID == providerSubID {
			out := sub
			return &out, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (s *memoryStore) Save(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs[sub.UserID] = *sub
	return nil
}
