// Package domain contains the core entities of the DocMark server.
// Every entity is scoped to an owning user; nothing is shared across users.
package domain

import "time"

// User represents an account signed in through Google.
// The Google refresh token is the per-user credential used for all
// Docs/Drive access; it is never exposed through the API.
type User struct {
	ID            string    `json:"id"`
	GoogleID      string    `json:"-"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	WatchFolderID string    `json:"watch_folder_id,omitempty"`
	Palette       []string  `json:"palette,omitempty"` // Ordered hex colors; empty means default palette
	RefreshToken  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DefaultPalette is the fallback segment color palette used when a user
// has not configured one.
var DefaultPalette = []string{
	"#F94144", "#F3722C", "#F8961E", "#F9C74F", "#90BE6D",
	"#43AA8B", "#4D908E", "#577590", "#277DA1", "#9B5DE5",
}

// EffectivePalette returns the user's palette, or the default when unset.
func (u *User) EffectivePalette() []string {
	if len(u.Palette) > 0 {
		return u.Palette
	}
	return DefaultPalette
}
