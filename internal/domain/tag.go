package domain

import "time"

// TagType is an optional classification of a tag.
type TagType string

// Tag types.
const (
	TagTypeSubject   TagType = "subject"
	TagTypeTechnique TagType = "technique"
	TagTypeTheme     TagType = "theme"
	TagTypeStatus    TagType = "status"
)

// Valid reports whether t is a known tag type or empty.
func (t TagType) Valid() bool {
	switch t {
	case "", TagTypeSubject, TagTypeTechnique, TagTypeTheme, TagTypeStatus:
		return true
	}
	return false
}

// Tag labels segments for one user. Names are unique per user.
type Tag struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Type      TagType   `json:"type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// SegmentCount is denormalized for list responses; not persisted.
	SegmentCount int `json:"segment_count,omitempty"`
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now().UTC()
}
