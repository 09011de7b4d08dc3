// Package plan defines the subscription tiers, resource types, and minute
// packs the platform sells, plus sources that load the catalog from memory
// or a YAML file.
//
// Tiers and resources are closed enumerations: unknown values are rejected
// at parse time so the rest of the system never sees an invalid identifier.
// Paid tiers carry the billing provider's price ID, which lets checkout
// sessions and webhook events map back onto the catalog without extra
// configuration.
package plan
