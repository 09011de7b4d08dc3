// Package billing tracks each user's subscription and mediates every
// plan-mutating action through the payment provider.
//
// The provider is the system of record. Operations like plan changes and
// cancellations only request a change; the local record is updated when the
// provider confirms it through a webhook, so no optimistic local state ever
// diverges from what the user is actually paying for.
//
// Plan changes follow three paths: basic to paid goes through a hosted
// checkout redirect, paid to paid applies in place with immediate proration,
// and paid to basic cancels the provider subscription. Cancellations are
// scheduled at the period boundary and can be reverted until then.
//
// Purchased AI minute packs are one-shot payments credited to a balance that
// never expires and survives downgrades.
package billing
