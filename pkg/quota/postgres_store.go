package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyforge/billing/pkg/plan"
)

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a UsageStore backed by the usage_counters table.
func NewPostgresStore(pool *pgxpool.Pool) UsageStore {
	if pool == nil {
		panic("quota: pgx pool is required")
	}
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Counters(ctx context.Context, userID uuid.UUID, month string) (Counters, error) {
	const q = `
		SELECT courses_created, exercises_created, fiches_created, ai_minutes_used
		FROM usage_counters
		WHERE user_id = $1 AND month = $2`

	c := Counters{Month: month}
	err := s.pool.QueryRow(ctx, q, userID, month).Scan(
		&c.CoursesCreated,
		&c.ExercisesCreated,
		&c.FichesCreated,
		&c.AIMinutesUsed,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		// A month without usage simply has no row yet.
		return Counters{Month: month}, nil
	}
	if err != nil {
		return Counters{}, errors.Join(ErrFailedToCountUsage, err)
	}
	return c, nil
}

func counterColumn(res plan.Resource) (string, error) {
	switch res {
	case plan.ResourceCourses:
		return "courses_created", nil
	case plan.ResourceExercises:
		return "exercises_created", nil
	case plan.ResourceFiches:
		return "fiches_created", nil
	}
	return "", ErrInvalidResource
}

func (s *postgresStore) IncrementCreated(ctx context.Context, userID uuid.UUID, month string, res plan.Resource) error {
	column, err := counterColumn(res)
	if err != nil {
		return err
	}

	// Column name comes from the closed resource enum, never from input.
	q := fmt.Sprintf(`
		INSERT INTO usage_counters (user_id, month, %[1]s)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, month)
		DO UPDATE SET %[1]s = usage_counters.%[1]s + 1, updated_at = now()`, column)

	if _, err := s.pool.Exec(ctx, q, userID, month); err != nil {
		return errors.Join(ErrFailedToCountUsage, err)
	}
	return nil
}

func (s *postgresStore) AddMinutesUsed(ctx context.Context, userID uuid.UUID, month string, minutes float64) error {
	if minutes < 0 {
		return ErrInvalidResource
	}

	const q = `
		INSERT INTO usage_counters (user_id, month, ai_minutes_used)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, month)
		DO UPDATE SET ai_minutes_used = usage_counters.ai_minutes_used + $3, updated_at = now()`

	if _, err := s.pool.Exec(ctx, q, userID, month, minutes); err != nil {
		return errors.Join(ErrFailedToCountUsage, err)
	}
	return nil
}
