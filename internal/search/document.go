// Package search provides full-text segment search using Bleve, with
// faceted filtering over categories, tags and documents.
package search

import (
	"github.com/docmarkapp/docmark-server/internal/domain"
)

// SegmentDocument is the shape of one segment in the Bleve index. Text
// and title carry the full-text load; the id fields are exact-match
// keywords used for filtering and faceting.
type SegmentDocument struct {
	ID         string   `json:"id"`
	UserID     string   `json:"user_id"`
	DocumentID string   `json:"document_id"`
	CategoryID string   `json:"category_id"`
	TagIDs     []string `json:"tag_ids,omitempty"`

	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`

	WordCount int   `json:"word_count"`
	IsPrimary bool  `json:"is_primary"`
	CreatedAt int64 `json:"created_at"` // Unix millis
	UpdatedAt int64 `json:"updated_at"` // Unix millis
}

// ToMap converts the document to a map with lowercase field names so
// they line up with the index mapping. Bleve's default field naming uses
// the capitalized Go names, which the mapping does not know about.
func (d *SegmentDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":          d.ID,
		"user_id":     d.UserID,
		"document_id": d.DocumentID,
		"category_id": d.CategoryID,
		"text":        d.Text,
		"word_count":  d.WordCount,
		"is_primary":  boolField(d.IsPrimary),
		"created_at":  d.CreatedAt,
		"updated_at":  d.UpdatedAt,
	}

	if d.Title != "" {
		m["title"] = d.Title
	}
	if d.Color != "" {
		m["color"] = d.Color
	}
	if len(d.TagIDs) > 0 {
		m["tag_ids"] = d.TagIDs
	}

	return m
}

// boolField stores booleans as keyword terms. Term queries against
// "true"/"false" are simpler to compose than numeric ranges.
func boolField(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// SegmentToDocument converts a domain Segment to its index form. Tag ids
// are passed by the caller since the search package does not read the
// store.
func SegmentToDocument(seg *domain.Segment, tagIDs []string) *SegmentDocument {
	return &SegmentDocument{
		ID:         seg.ID,
		UserID:     seg.UserID,
		DocumentID: seg.DocumentID,
		CategoryID: seg.CategoryID,
		TagIDs:     tagIDs,
		Title:      seg.Title,
		Text:       seg.Text,
		Color:      seg.Color,
		WordCount:  seg.WordCount,
		IsPrimary:  seg.IsPrimary,
		CreatedAt:  seg.CreatedAt.UnixMilli(),
		UpdatedAt:  seg.UpdatedAt.UnixMilli(),
	}
}
