// Package syncer owns the pending-action queue lifecycle: actions are
// appended on local mutation, replayed against the remote system in strict
// creation order when connectivity allows, and marked synced only on remote
// acknowledgment. A failed replay stops the pass at the failing action and
// schedules a retry with exponential backoff; no action is ever dropped or
// reordered. The orchestrator is the only component permitted to flip an
// action's synced flag.
package syncer
