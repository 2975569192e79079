// Package tasks orchestrates meal plan operations across the REST client, the realtime channel and the job store.
//
// # Core Operations
//
//  1. [PlanEngine.Create] : Submit a generation request and follow it to a terminal state
//     - POSTs the request and inserts the pending record optimistically
//     - Waits on store changes fed by realtime events
//     - Falls back to polling the record while no event arrives
//
//  2. [PlanEngine.Refresh] : Re-fetch the plan list and reconcile it into the store
//
//  3. [PlanEngine.Recover] : Re-fetch after every reconnect so events missed while disconnected are recovered
//
//  4. [PlanEngine.ExportPlans] : Export several plans concurrently with rate limiting and a manifest
//
// # Progress Reporting
//
// Operations report through non-blocking [ProgressUpdate] channels; a full or nil channel drops the update.
package tasks
