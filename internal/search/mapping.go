package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/ngram"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/whitespace"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Analyzer names registered on the index.
const (
	analyzerHebrew      = "hebrew_text"
	analyzerHebrewNgram = "hebrew_ngram4"
	ngramFilterName     = "ngram4"
)

// buildIndexMapping creates the Bleve mapping for the two document types.
//
// Hebrew is not stemmed: the text analyzer is whitespace + lowercase over
// pre-normalized text, and a parallel 4-gram field absorbs orthographic
// variance that the dictionary expansions miss.
func buildIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.TypeField = "type"
	indexMapping.DefaultAnalyzer = analyzerHebrew

	err := indexMapping.AddCustomTokenFilter(ngramFilterName, map[string]any{
		"type": ngram.Name,
		"min":  4.0,
		"max":  4.0,
	})
	if err != nil {
		return nil, err
	}
	err = indexMapping.AddCustomAnalyzer(analyzerHebrew, map[string]any{
		"type":          custom.Name,
		"tokenizer":     whitespace.Name,
		"token_filters": []any{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}
	err = indexMapping.AddCustomAnalyzer(analyzerHebrewNgram, map[string]any{
		"type":          custom.Name,
		"tokenizer":     whitespace.Name,
		"token_filters": []any{lowercase.Name, ngramFilterName},
	})
	if err != nil {
		return nil, err
	}

	indexMapping.AddDocumentMapping(string(DocTypeLine), lineDocumentMapping())
	indexMapping.AddDocumentMapping(string(DocTypeBookTitle), bookTitleDocumentMapping())
	return indexMapping, nil
}

func lineDocumentMapping() *mapping.DocumentMapping {
	doc := bleve.NewDocumentMapping()

	// type - exact keyword filter target.
	typeField := bleve.NewTextFieldMapping()
	typeField.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("type", typeField)

	// text - the primary search field with positions for phrase scoring.
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = analyzerHebrew
	textField.Store = false
	textField.IncludeTermVectors = true
	doc.AddFieldMappingsAt("text", textField)

	// text_ng4 - 4-grams over each token of length >= 4.
	ngramField := bleve.NewTextFieldMapping()
	ngramField.Analyzer = analyzerHebrewNgram
	ngramField.Store = false
	doc.AddFieldMappingsAt("text_ng4", ngramField)

	// text_raw - stored only, for snippet building without a store
	// round trip.
	rawField := bleve.NewTextFieldMapping()
	rawField.Index = false
	rawField.Store = true
	doc.AddFieldMappingsAt("text_raw", rawField)

	// Keyword id mirrors for exact/set filters and facets.
	for _, name := range []string{"book_id_term", "line_id_term", "ancestor_category_ids"} {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		f.Store = name == "ancestor_category_ids"
		doc.AddFieldMappingsAt(name, f)
	}

	// Typed point fields for retrieval and sorting.
	for _, name := range []string{"book_id", "category_id", "line_id", "line_index", "order_index"} {
		f := bleve.NewNumericFieldMapping()
		f.Store = true
		doc.AddFieldMappingsAt(name, f)
	}

	baseField := bleve.NewBooleanFieldMapping()
	baseField.Store = true
	doc.AddFieldMappingsAt("is_base_book", baseField)

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = keyword.Name
	titleField.Store = true
	doc.AddFieldMappingsAt("book_title", titleField)

	return doc
}

func bookTitleDocumentMapping() *mapping.DocumentMapping {
	doc := bleve.NewDocumentMapping()

	typeField := bleve.NewTextFieldMapping()
	typeField.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("type", typeField)

	// title - analyzed exactly like line text so prefix tokens align.
	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = analyzerHebrew
	titleField.Store = true
	doc.AddFieldMappingsAt("title", titleField)

	displayField := bleve.NewTextFieldMapping()
	displayField.Analyzer = keyword.Name
	displayField.Store = true
	doc.AddFieldMappingsAt("book_title", displayField)

	for _, name := range []string{"book_id", "category_id"} {
		f := bleve.NewNumericFieldMapping()
		f.Store = true
		doc.AddFieldMappingsAt(name, f)
	}

	return doc
}
