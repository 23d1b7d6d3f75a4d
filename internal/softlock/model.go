package softlock

import (
	"time"
)

// SoftLock advertises "someone is editing this shape". It is advisory
// UI metadata, not a mutex: it never blocks an update, a re-acquire by
// anyone simply replaces the holder, and an abandoned lock goes stale
// on its own once ExpiresAt passes.
type SoftLock struct {
	ShapeID     string    `json:"shape_id"`
	EditorID    string    `json:"editor_id"`
	EditorName  string    `json:"editor_name"`
	EditorColor string    `json:"editor_color"`
	StartedAt   time.Time `json:"started_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired is the staleness predicate every reader applies. There is no
// background sweep; a lock past its expiry is simply treated as absent.
func (l SoftLock) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}
