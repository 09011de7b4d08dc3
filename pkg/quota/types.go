package quota

import (
	"time"

	"github.com/studyforge/billing/pkg/plan"
)

// Counters holds a user's resource consumption for one billing month.
// Counter rows reset by keying on the month; purchased AI minutes live on
// the subscription record and are passed into the gate separately.
type Counters struct {
	Month            string  `json:"month"` // "2006-01"
	CoursesCreated   int64   `json:"courses_created"`
	ExercisesCreated int64   `json:"exercises_created"`
	FichesCreated    int64   `json:"fiches_created"`
	AIMinutesUsed    float64 `json:"ai_minutes_used"`
}

// Created returns the creation counter for a countable resource.
// ai_minutes is not countable; use AIMinutesUsed directly.
func (c Counters) Created(res plan.Resource) int64 {
	switch res {
	case plan.ResourceCourses:
		return c.CoursesCreated
	case plan.ResourceExercises:
		return c.ExercisesCreated
	case plan.ResourceFiches:
		return c.FichesCreated
	}
	return 0
}

// Decision is the gate's answer to "can one more unit be consumed now".
type Decision struct {
	Resource plan.Resource `json:"resource"`
	Allowed  bool          `json:"allowed"`

	// Remaining applies to countable resources (courses, exercises, fiches).
	Remaining int64 `json:"remaining"`

	// MinutesRemaining and PurchasedRemaining apply to ai_minutes only.
	// The monthly allowance is consumed first; overflow draws down the
	// purchased balance. Both are derived values, never persisted here.
	MinutesRemaining   float64 `json:"minutes_remaining,omitempty"`
	PurchasedRemaining float64 `json:"purchased_remaining,omitempty"`

	// Message is set when the decision denies consumption.
	Message string `json:"message,omitempty"`
}

// UsageInfo pairs current usage with the plan limit for one resource.
type UsageInfo struct {
	Current    int64 `json:"current"`
	Limit      int64 `json:"limit"`
	Percentage int   `json:"percentage"`
}

// MonthKey formats a time as the usage-counter month key.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
