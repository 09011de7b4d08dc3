// Package quota decides whether a user may consume one more unit of a plan
// resource, and computes the remaining counts shown in the dashboard.
//
// The gate itself (Check, Percentage) is pure computation over
// already-fetched counters; the Service layer adds counter loading, plan
// resolution, and downgrade validation on top.
//
// AI minutes are the one resource with two balances: a monthly allowance
// that resets with the counters, and a purchased balance that never expires.
// The allowance is consumed first; overflow draws down the purchased balance
// as a derived value, so the persisted purchased total only ever grows here.
package quota
