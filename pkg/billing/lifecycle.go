package billing

import "github.com/studyforge/billing/pkg/plan"

// The plan dimension of a subscription moves through a small closed state
// machine. Requests that are not valid transitions are rejected before any
// provider call is made; the "period elapses" transition is driven by the
// provider through webhooks, never locally.
//
//	basic ──upgrade──────────────▶ paid (active)
//	paid ──change_plan───────────▶ paid (active, immediate proration)
//	paid ──downgrade_basic───────▶ basic
//	paid ──cancel────────────────▶ paid (cancel scheduled)
//	cancel scheduled ──reactivate▶ paid (active)
//	cancel scheduled ──period────▶ basic (external)
type lifecycleState string

const (
	stateBasic           lifecycleState = "basic"
	statePaidActive      lifecycleState = "paid_active"
	stateCancelScheduled lifecycleState = "cancel_scheduled"
	statePastDue         lifecycleState = "past_due"
)

type lifecycleEvent string

const (
	eventUpgrade        lifecycleEvent = "upgrade"
	eventChangePlan     lifecycleEvent = "change_plan"
	eventDowngradeBasic lifecycleEvent = "downgrade_basic"
	eventCancel         lifecycleEvent = "cancel"
	eventReactivate     lifecycleEvent = "reactivate"
	eventPaymentFailed  lifecycleEvent = "payment_failed"
	eventPeriodElapsed  lifecycleEvent = "period_elapsed"
)

// lifecycle maps [from][event] to the resulting state. Absent entries are
// invalid transitions.
var lifecycle = map[lifecycleState]map[lifecycleEvent]lifecycleState{
	stateBasic: {
		eventUpgrade: statePaidActive,
	},
	statePaidActive: {
		eventChangePlan:     statePaidActive,
		eventDowngradeBasic: stateBasic,
		eventCancel:         stateCancelScheduled,
		eventPaymentFailed:  statePastDue,
		eventPeriodElapsed:  statePaidActive, // renewal
	},
	stateCancelScheduled: {
		eventReactivate:     statePaidActive,
		eventChangePlan:     statePaidActive,
		eventDowngradeBasic: stateBasic,
		eventPeriodElapsed:  stateBasic,
	},
	statePastDue: {
		eventChangePlan:     statePaidActive,
		eventDowngradeBasic: stateBasic,
		eventCancel:         stateCancelScheduled,
		eventPeriodElapsed:  stateBasic,
	},
}

// stateOf derives the lifecycle state from a subscription record.
func stateOf(sub *Subscription) lifecycleState {
	switch {
	case sub.Tier == plan.TierBasic:
		return stateBasic
	case sub.Status == StatusPastDue:
		return statePastDue
	case sub.CancelAtPeriodEnd:
		return stateCancelScheduled
	default:
		return statePaidActive
	}
}

// canFire reports whether the event is a valid transition from the state.
func canFire(from lifecycleState, ev lifecycleEvent) bool {
	_, ok := lifecycle[from][ev]
	return ok
}

// planChangeEvent classifies a plan-change request as a lifecycle event.
func planChangeEvent(current, target plan.Tier) lifecycleEvent {
	switch {
	case current == plan.TierBasic:
		return eventUpgrade
	case target == plan.TierBasic:
		return eventDowngradeBasic
	default:
		return eventChangePlan
	}
}
