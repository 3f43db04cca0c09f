package domain

import (
	"regexp"
	"time"
)

// ColorUsage records per-user, per-color usage history. It feeds the
// color-assignment heuristic and is not itself segment state.
type ColorUsage struct {
	UserID     string    `json:"user_id"`
	Color      string    `json:"color"`
	UseCount   int       `json:"use_count"`
	LastUsedAt time.Time `json:"last_used_at"`
}

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidHexColor reports whether s is a 7-character hex color like "#AABB01".
func ValidHexColor(s string) bool {
	return hexColorRe.MatchString(s)
}
