package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Segment is a user-delimited excerpt of a document: a character range plus
// a denormalized copy of the text it covered at capture time.
//
// Invariant: EndOffset > StartOffset, always. The store enforces it with a
// CHECK constraint and services validate before persistence.
type Segment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	DocumentID  string    `json:"document_id"`
	CategoryID  string    `json:"category_id"`
	StartOffset int       `json:"start_offset"`
	EndOffset   int       `json:"end_offset"`
	Text        string    `json:"text"`
	WordCount   int       `json:"word_count"`
	Title       string    `json:"title,omitempty"`
	Color       string    `json:"color"` // 7-char hex, e.g. "#F94144"
	IsPrimary   bool      `json:"is_primary"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// defaultTitleLen caps the text-derived fallback title.
const defaultTitleLen = 60

// DisplayTitle returns the explicit title, or a prefix of the text when no
// title was set.
func (s *Segment) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return TruncateRunes(strings.TrimSpace(s.Text), defaultTitleLen)
}

// Touch updates the UpdatedAt timestamp.
func (s *Segment) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// CountWords returns the whitespace-separated word count of text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// TruncateRunes cuts s to at most n runes, never splitting a rune.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// AssociationType classifies a directed edge between two segments.
type AssociationType string

// Association types.
const (
	AssociationDerivative AssociationType = "derivative"
	AssociationCallback   AssociationType = "callback"
	AssociationReference  AssociationType = "reference"
	AssociationVersion    AssociationType = "version"
)

// Valid reports whether t is a known association type.
func (t AssociationType) Valid() bool {
	switch t {
	case AssociationDerivative, AssociationCallback, AssociationReference, AssociationVersion:
		return true
	}
	return false
}

// CreatesCopy reports whether associating with this type materializes a
// non-primary copy of the source segment.
func (t AssociationType) CreatesCopy() bool {
	return t == AssociationDerivative || t == AssociationCallback
}

// SegmentAssociation is a typed, directed edge between two segments,
// unique per ordered (source, target) pair.
type SegmentAssociation struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	SourceID  string          `json:"source_id"`
	TargetID  string          `json:"target_id"`
	Type      AssociationType `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}
