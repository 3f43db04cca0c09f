package gdocs

import (
	"sort"
	"strings"

	"github.com/docmarkapp/docmark-server/internal/provider"
)

// The Docs API addresses content by UTF-16 code unit indexes, while the
// snapshot exposes rune offsets into the flattened text. The run table
// built during flattening converts between the two.

type run struct {
	docStart  int64 // UTF-16 index of the run's first character
	flatStart int   // rune offset into the flattened text
	text      string
}

type runTable []run

// flattenDocument walks the document body depth first and produces the
// concatenated text plus the run table. Table cells contribute their
// paragraphs in order; non-text structural elements are skipped.
func flattenDocument(doc *document) (string, runTable) {
	var sb strings.Builder
	var runs runTable
	flat := 0

	var walk func(elements []structuralElement)
	walk = func(elements []structuralElement) {
		for _, el := range elements {
			switch {
			case el.Paragraph != nil:
				for _, pe := range el.Paragraph.Elements {
					if pe.TextRun == nil || pe.TextRun.Content == "" {
						continue
					}
					runs = append(runs, run{
						docStart:  pe.StartIndex,
						flatStart: flat,
						text:      pe.TextRun.Content,
					})
					sb.WriteString(pe.TextRun.Content)
					flat += len([]rune(pe.TextRun.Content))
				}
			case el.Table != nil:
				for _, row := range el.Table.TableRows {
					for _, cell := range row.TableCells {
						walk(cell.Content)
					}
				}
			}
		}
	}
	walk(doc.Body.Content)

	return sb.String(), runs
}

// utf16Len returns the UTF-16 code unit count of a rune.
func utf16Len(r rune) int64 {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

// docEnd returns the UTF-16 index just past the run.
func (r run) docEnd() int64 {
	end := r.docStart
	for _, ch := range r.text {
		end += utf16Len(ch)
	}
	return end
}

// flatOffset converts a document index to a rune offset in the flattened
// text. Indexes that fall between runs (structural markers, table
// boundaries) snap to the start of the next run.
func (rt runTable) flatOffset(docIdx int64) int {
	if len(rt) == 0 {
		return 0
	}

	i := sort.Search(len(rt), func(i int) bool {
		return rt[i].docEnd() > docIdx
	})
	if i == len(rt) {
		last := rt[len(rt)-1]
		return last.flatStart + len([]rune(last.text))
	}

	r := rt[i]
	if docIdx <= r.docStart {
		return r.flatStart
	}

	offset := r.flatStart
	pos := r.docStart
	for _, ch := range r.text {
		if pos >= docIdx {
			break
		}
		pos += utf16Len(ch)
		offset++
	}
	return offset
}

// extractMarkers converts the document's named ranges into markers with
// rune offsets. Ranges that do not carry the segment prefix are ignored;
// a name split across multiple ranges (the Docs API fragments ranges
// around later edits) collapses to its min-start/max-end envelope.
func extractMarkers(doc *document, runs runTable) []provider.Marker {
	var markers []provider.Marker

	for name, group := range doc.NamedRanges {
		segmentID, ok := provider.SegmentIDFromMarker(name)
		if !ok {
			continue
		}

		var (
			minStart int64 = -1
			maxEnd   int64 = -1
		)
		for _, nr := range group.NamedRanges {
			for _, rg := range nr.Ranges {
				if minStart < 0 || rg.StartIndex < minStart {
					minStart = rg.StartIndex
				}
				if rg.EndIndex > maxEnd {
					maxEnd = rg.EndIndex
				}
			}
		}
		if minStart < 0 || maxEnd <= minStart {
			continue
		}

		start := runs.flatOffset(minStart)
		end := runs.flatOffset(maxEnd)
		if end <= start {
			continue
		}

		markers = append(markers, provider.Marker{
			Name:        name,
			SegmentID:   segmentID,
			StartOffset: start,
			EndOffset:   end,
		})
	}

	sort.Slice(markers, func(i, j int) bool {
		return markers[i].StartOffset < markers[j].StartOffset
	})

	return markers
}

// docIndex converts a rune offset in the flattened text back to a
// document index, for writing named ranges.
func (rt runTable) docIndex(flatOffset int) int64 {
	if len(rt) == 0 {
		return 1 // Docs body content starts at index 1
	}

	i := sort.Search(len(rt), func(i int) bool {
		return rt[i].flatStart+len([]rune(rt[i].text)) > flatOffset
	})
	if i == len(rt) {
		return rt[len(rt)-1].docEnd()
	}

	r := rt[i]
	if flatOffset <= r.flatStart {
		return r.docStart
	}

	idx := r.docStart
	remaining := flatOffset - r.flatStart
	for _, ch := range r.text {
		if remaining == 0 {
			break
		}
		idx += utf16Len(ch)
		remaining--
	}
	return idx
}
