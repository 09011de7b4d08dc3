package quota

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/studyforge/billing/pkg/plan"
)

type memoryStore struct {
	mu   sync.RWMutex
	rows map[string]Counters // key: userID + "/" + month
}

// NewMemoryStore returns an in-memory UsageStore for tests and local runs.
func NewMemoryStore() UsageStore {
	return &memoryStore{rows: make(map[string]Counters)}
}

func key(userID uuid.UUID, month string) string {
	return userID.String() + "/" + month
}

func (s *memoryStore) Counters(_ context.Context, userID uuid.UUID, month string) (Counters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.rows[key(userID, month)]
	if !ok {
		return Counters{Month: month}, nil
	}
	return c, nil
}

func (s *memoryStore) IncrementCreated(_ context.Context, userID uuid.UUID, month string, res plan.Resource) error {
	if !res.Valid() || res == plan.ResourceAIMinutes {
		return ErrInvalidResource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(userID, month)
	c := s.rows[k]
	c.Month = month
	switch res {
	case plan.ResourceCourses:
		c.CoursesCreated++
	case plan.ResourceExercises:
		c.ExercisesCreated++
	case plan.ResourceFiches:
		c.FichesCreated++
	}
	s.rows[k] = c
	return nil
}

func (s *memoryStore) AddMinutesUsed(_ context.Context, userID uuid.UUID, month string, minutes float64) error {
	if minutes < 0 {
		return ErrInvalidResource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(userID, month)
	c := s.rows[k]
	c.Month = month
	c.AIMinutesUsed += minutes
	s.rows[k] = c
	return nil
}
