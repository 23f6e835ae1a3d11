// Package search provides full-text indexing and querying of per-line
// Hebrew text using Bleve: normalized tokens, 4-gram assisted matching,
// dictionary-expanded scoring, facet aggregation, snippet highlighting, and
// paginated query sessions.
package search

import (
	"strconv"

	"github.com/seforimapp/seforim-server/internal/hebrew"
)

// DocType discriminates the two document kinds sharing the index.
type DocType string

// Document types.
const (
	DocTypeLine      DocType = "line"
	DocTypeBookTitle DocType = "book_title"
)

// LineDocument is one indexed line. Text is indexed normalized; the raw
// HTML-bearing text may be stored for snippet building, or omitted when a
// snippet provider pulls it from the relational store.
type LineDocument struct {
	LineID     int64
	BookID     int64
	CategoryID int64
	BookTitle  string
	LineIndex  int
	OrderIndex float64
	IsBaseBook bool

	// Text is the raw line content; normalization happens here so every
	// caller indexes identically.
	Text string

	// StoreRaw controls whether the raw text rides along in the index.
	StoreRaw bool

	// AncestorCategoryIDs holds the category and all of its ancestors
	// for facet aggregation and subtree filters.
	AncestorCategoryIDs []int64
}

// ID returns the document key; one document per line.
func (d *LineDocument) ID() string {
	return "line-" + strconv.FormatInt(d.LineID, 10)
}

// ToMap converts the document to the lowercase field names of the index
// mapping.
func (d *LineDocument) ToMap() map[string]any {
	normalized := hebrew.Normalize(stripTags(d.Text))

	ancestors := make([]string, 0, len(d.AncestorCategoryIDs))
	for _, id := range d.AncestorCategoryIDs {
		ancestors = append(ancestors, strconv.FormatInt(id, 10))
	}

	m := map[string]any{
		"type":       string(DocTypeLine),
		"text":       normalized,
		"text_ng4":   normalized,
		"book_id":    float64(d.BookID),
		"category_id": float64(d.CategoryID),
		"line_id":    float64(d.LineID),
		"line_index": float64(d.LineIndex),
		"order_index": d.OrderIndex,
		"book_title": d.BookTitle,
		"is_base_book": d.IsBaseBook,

		"book_id_term": strconv.FormatInt(d.BookID, 10),
		"line_id_term": strconv.FormatInt(d.LineID, 10),
	}
	if len(ancestors) > 0 {
		m["ancestor_category_ids"] = ancestors
	}
	if d.StoreRaw {
		m["text_raw"] = d.Text
	}
	return m
}

// BookTitleDocument is one searchable book title for prefix suggestions.
type BookTitleDocument struct {
	BookID     int64
	CategoryID int64
	Title      string
}

// ID returns the document key.
func (d *BookTitleDocument) ID() string {
	return "book-" + strconv.FormatInt(d.BookID, 10)
}

// ToMap converts the document for indexing; the title is analyzed the same
// way as line text.
func (d *BookTitleDocument) ToMap() map[string]any {
	return map[string]any{
		"type":        string(DocTypeBookTitle),
		"title":       hebrew.Normalize(d.Title),
		"book_id":     float64(d.BookID),
		"category_id": float64(d.CategoryID),
		"book_title":  d.Title,
	}
}
