package service

import (
	"context"
	"log/slog"

	"github.com/docmarkapp/docmark-server/internal/domain"
	"github.com/docmarkapp/docmark-server/internal/store"
)

// ColorService picks highlight colors for new segments. The heuristic
// keeps neighboring segments visually distinct: a color unused in the
// document wins, and ties fall to the user's globally least-used color
// so the palette wears evenly.
type ColorService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewColorService creates a color service.
func NewColorService(st *store.Store, logger *slog.Logger) *ColorService {
	return &ColorService{store: st, logger: logger}
}

// AssignColor chooses a color from the user's palette for a new segment
// in the given document. excludeSegmentID leaves one segment out of the
// in-document usage check, for re-coloring an existing segment.
func (s *ColorService) AssignColor(ctx context.Context, user *domain.User, documentID, excludeSegmentID string) (string, error) {
	palette := user.EffectivePalette()

	docColors, err := s.store.ListDocumentColors(ctx, user.ID, documentID, excludeSegmentID)
	if err != nil {
		return "", err
	}
	usedInDoc := make(map[string]bool, len(docColors))
	for _, c := range docColors {
		usedInDoc[c] = true
	}

	usage, err := s.store.GetColorUsage(ctx, user.ID)
	if err != nil {
		return "", err
	}
	useCount := func(color string) int {
		if u, ok := usage[color]; ok {
			return u.UseCount
		}
		return 0
	}

	// First pass: palette colors absent from this document, least
	// globally used first. Palette order breaks remaining ties.
	best := ""
	bestCount := -1
	for _, color := range palette {
		if usedInDoc[color] {
			continue
		}
		if count := useCount(color); bestCount < 0 || count < bestCount {
			best = color
			bestCount = count
		}
	}
	if best != "" {
		return best, nil
	}

	// Every palette color already appears in the document; fall back to
	// the globally least-used one.
	for _, color := range palette {
		if count := useCount(color); bestCount < 0 || count < bestCount {
			best = color
			bestCount = count
		}
	}
	return best, nil
}

// RecordUse bumps the usage stats after a color lands on a segment.
func (s *ColorService) RecordUse(ctx context.Context, userID, color string) {
	if err := s.store.RecordColorUsage(ctx, userID, color); err != nil {
		s.logger.Warn("failed to record color usage", "user_id", userID, "color", color, "error", err)
	}
}
