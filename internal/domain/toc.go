package domain

// TocEntry is one node of a book's primary table of contents. Entries form
// a forest rooted at the book; ParentID and LineID always reference entities
// of the same book.
type TocEntry struct {
	ID       int64  `json:"id"`
	BookID   int64  `json:"book_id"`
	ParentID int64  `json:"parent_id,omitempty"`
	Text     string `json:"text"`
	Level    int    `json:"level"`
	LineID   int64  `json:"line_id,omitempty"`

	// Derived during the second construction pass.
	IsLastChild bool `json:"is_last_child"`
	HasChildren bool `json:"has_children"`
}

// LineTocMapping maps a content line to the most recent TOC entry at or
// before its position.
type LineTocMapping struct {
	LineID     int64 `json:"line_id"`
	TocEntryID int64 `json:"toc_entry_id"`
}

// AltTocStructure is an alternative division of a book (e.g. Parasha,
// Aliyah), keyed by (BookID, StructureKey).
type AltTocStructure struct {
	ID           int64  `json:"id"`
	BookID       int64  `json:"book_id"`
	StructureKey string `json:"structure_key"`
}

// AltTocEntry is one node of an alternative TOC, parallel to TocEntry.
type AltTocEntry struct {
	ID          int64  `json:"id"`
	StructureID int64  `json:"structure_id"`
	BookID      int64  `json:"book_id"`
	ParentID    int64  `json:"parent_id,omitempty"`
	Text        string `json:"text"`
	Level       int    `json:"level"`
	LineID      int64  `json:"line_id,omitempty"`
	IsLastChild bool   `json:"is_last_child"`
	HasChildren bool   `json:"has_children"`
}

// LineAltTocMapping maps a content line to an alternative TOC entry.
type LineAltTocMapping struct {
	LineID        int64 `json:"line_id"`
	AltTocEntryID int64 `json:"alt_toc_entry_id"`
}
