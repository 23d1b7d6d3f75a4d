package presence

import (
	"time"
)

// Entry is one connected user's live cursor. Unversioned: every update
// overwrites the last one, silently.
type Entry struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	CursorX     float64   `json:"cursor_x"`
	CursorY     float64   `json:"cursor_y"`
	Color       string    `json:"color"`
	LastSeen    time.Time `json:"last_seen"`
}
