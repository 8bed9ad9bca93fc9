// Package votecache remembers a member's in-flight vote choice between the
// moment the vote call succeeds and the moment the server echoes it back on
// event detail. It exists so a process restart mid-flight does not flick the
// UI back to an unvoted state.
package votecache

import "context"

// Cache is keyed per event id; one vote per event.
type Cache interface {
	// Get returns the remembered plan id for the event, if any.
	Get(ctx context.Context, eventID string) (string, bool, error)
	// Set records the voted plan id. Best-effort for callers: a failed write
	// must not fail the vote flow.
	Set(ctx context.Context, eventID, planID string) error
	// Clear forgets the entry once the server has closed voting.
	Clear(ctx context.Context, eventID string) error
}
