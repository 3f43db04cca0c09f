package domain

import "time"

// Category groups segments for one user. Names are unique per user.
//
// Segments reference a category by id; deleting a category never cascades
// to its segments — deletion requires either zero referencing segments or
// an explicit migration target.
type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	SortOrder int       `json:"sort_order"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// SegmentCount is denormalized for list responses; not persisted.
	SegmentCount int `json:"segment_count,omitempty"`
}

// DefaultCategory describes a category seeded for every new user.
type DefaultCategory struct {
	Name string
	Icon string
}

// DefaultCategories are created on first login.
var DefaultCategories = []DefaultCategory{
	{Name: "Bit", Icon: "🎤"},
	{Name: "Idea", Icon: "💡"},
	{Name: "Quote", Icon: "💬"},
	{Name: "Research", Icon: "📚"},
}
