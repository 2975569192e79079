// Package jobs holds the client-side view of meal plan generation jobs.
//
// Three producers write the same keyed records: the optimistic insert after a create request,
// REST fetches, and push events from the realtime channel. Every write goes through [Merge], so
// the result does not depend on which producer arrives first. A terminal status is sticky: a stale
// pending record never replaces completed or error.
package jobs
