// Package repositories implements SQLite persistence for the local cache.
//
// Key Implementations:
//   - [MealPlanRepository] : Meal plan cache keyed by backend id, satisfies jobs.Persister
//   - [SessionRepository] : Signed-in session with OAuth2 tokens, soft deleted on sign-out
//
// Sequence numbers provide stable insertion ordering independent of backend ids and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
