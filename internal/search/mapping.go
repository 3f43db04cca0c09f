package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for segment documents.
//
// Priorities:
//  1. Full-text search over segment text and title with English stemming
//  2. Exact keyword matching for user, document, category and tag filters
//  3. Numeric range queries and sorting on timestamps
//  4. Term vectors on text/title for highlighting
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Title - primary search target, boosted at query time
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	// Text - the captured excerpt body
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = en.AnalyzerName
	textFieldMapping.Store = true
	textFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("text", textFieldMapping)

	// --- Keyword fields (exact match, facetable) ---

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	userFieldMapping := bleve.NewTextFieldMapping()
	userFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("user_id", userFieldMapping)

	documentFieldMapping := bleve.NewTextFieldMapping()
	documentFieldMapping.Analyzer = keyword.Name
	documentFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("document_id", documentFieldMapping)

	categoryFieldMapping := bleve.NewTextFieldMapping()
	categoryFieldMapping.Analyzer = keyword.Name
	categoryFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("category_id", categoryFieldMapping)

	// Tag ids - keyword analyzer keeps the full id intact
	tagsFieldMapping := bleve.NewTextFieldMapping()
	tagsFieldMapping.Analyzer = keyword.Name
	tagsFieldMapping.Store = true
	tagsFieldMapping.IncludeTermVectors = true // For faceting
	docMapping.AddFieldMappingsAt("tag_ids", tagsFieldMapping)

	colorFieldMapping := bleve.NewTextFieldMapping()
	colorFieldMapping.Analyzer = keyword.Name
	colorFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("color", colorFieldMapping)

	// Stored as "true"/"false" terms
	primaryFieldMapping := bleve.NewTextFieldMapping()
	primaryFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("is_primary", primaryFieldMapping)

	// --- Numeric fields (range queries, sorting) ---

	wordCountFieldMapping := bleve.NewNumericFieldMapping()
	wordCountFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("word_count", wordCountFieldMapping)

	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	updatedAtFieldMapping := bleve.NewNumericFieldMapping()
	updatedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
