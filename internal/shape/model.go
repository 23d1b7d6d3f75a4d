package shape

import (
	"time"
)

// Shape is one graphical object on a canvas. Version starts at 1 and
// is bumped by the store on every accepted mutation; clients echo the
// version they last saw to opt into conflict detection.
type Shape struct {
	ID               string    `gorm:"primaryKey;size:64" json:"id"`
	CanvasID         string    `gorm:"index;size:64;not null" json:"canvas_id"`
	Type             string    `gorm:"size:32" json:"type"`
	X                float64   `json:"x"`
	Y                float64   `json:"y"`
	Width            float64   `json:"width"`
	Height           float64   `json:"height"`
	Fill             string    `gorm:"size:32" json:"fill"`
	Text             *string   `json:"text,omitempty"`
	Rotation         *float64  `json:"rotation,omitempty"`
	Version          uint64    `gorm:"default:1" json:"version"`
	CreatedBy        string    `gorm:"size:64" json:"created_by"`
	LastEditedBy     string    `gorm:"size:64" json:"last_edited_by"`
	LastEditedByName string    `gorm:"size:255" json:"last_edited_by_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateAttributes is the shape payload accepted on create.
type CreateAttributes struct {
	Type     string   `json:"type" binding:"required" validate:"required"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Fill     string   `json:"fill"`
	Text     *string  `json:"text,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
}

// Delta carries field-level changes for an update; nil fields are left
// untouched. Conflicting writes are resolved last-writer-wins per
// field, the version check only detects that a race happened.
type Delta struct {
	Type     *string  `json:"type,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Fill     *string  `json:"fill,omitempty"`
	Text     *string  `json:"text,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
}

// Empty reports whether the delta changes nothing.
func (d *Delta) Empty() bool {
	return d.Type == nil && d.X == nil && d.Y == nil &&
		d.Width == nil && d.Height == nil && d.Fill == nil &&
		d.Text == nil && d.Rotation == nil
}

func (d *Delta) apply(s *Shape) {
	if d.Type != nil {
		s.Type = *d.Type
	}
	if d.X != nil {
		s.X = *d.X
	}
	if d.Y != nil {
		s.Y = *d.Y
	}
	if d.Width != nil {
		s.Width = *d.Width
	}
	if d.Height != nil {
		s.Height = *d.Height
	}
	if d.Fill != nil {
		s.Fill = *d.Fill
	}
	if d.Text != nil {
		s.Text = d.Text
	}
	if d.Rotation != nil {
		s.Rotation = d.Rotation
	}
}

// columns returns the changed columns for a SQL update.
func (d *Delta) columns() map[string]any {
	cols := make(map[string]any)
	if d.Type != nil {
		cols["type"] = *d.Type
	}
	if d.X != nil {
		cols["x"] = *d.X
	}
	if d.Y != nil {
		cols["y"] = *d.Y
	}
	if d.Width != nil {
		cols["width"] = *d.Width
	}
	if d.Height != nil {
		cols["height"] = *d.Height
	}
	if d.Fill != nil {
		cols["fill"] = *d.Fill
	}
	if d.Text != nil {
		cols["text"] = *d.Text
	}
	if d.Rotation != nil {
		cols["rotation"] = *d.Rotation
	}
	return cols
}
