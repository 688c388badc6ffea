package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for game documents.
//
// Priorities:
//  1. Full-text search with English stemming on title/description/content
//  2. Exact keyword matching for subject filters
//  3. Numeric range queries for grade, plus popularity fields for sorting
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Title - primary search target
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = true
	descFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	// In-game copy - searchable but not stored (too large)
	contentFieldMapping := bleve.NewTextFieldMapping()
	contentFieldMapping.Analyzer = en.AnalyzerName
	contentFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("content", contentFieldMapping)

	creatorFieldMapping := bleve.NewTextFieldMapping()
	creatorFieldMapping.Analyzer = en.AnalyzerName
	creatorFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("creator_name", creatorFieldMapping)

	// --- Keyword fields (exact match) ---

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	subjectFieldMapping := bleve.NewTextFieldMapping()
	subjectFieldMapping.Analyzer = keyword.Name
	subjectFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("subject", subjectFieldMapping)

	// --- Numeric fields (range queries, sorting) ---

	gradeFieldMapping := bleve.NewNumericFieldMapping()
	gradeFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("grade", gradeFieldMapping)

	likesFieldMapping := bleve.NewNumericFieldMapping()
	likesFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("likes", likesFieldMapping)

	playCountFieldMapping := bleve.NewNumericFieldMapping()
	playCountFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("play_count", playCountFieldMapping)

	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
