package domain

// Line is one ordered line of a book. Content is HTML-tagged text; heading
// lines carry an empty Ref.
//
// Invariant: for each book the set of LineIndex values is 0..TotalLines-1
// with no gaps. Lines are insert-only during build and are never mutated
// after link resolution except to set TocEntryID.
type Line struct {
	ID        int64  `json:"id"`
	BookID    int64  `json:"book_id"`
	LineIndex int    `json:"line_index"`
	Content   string `json:"content"`
	HeRef     string `json:"he_ref,omitempty"`
	Ref       string `json:"ref,omitempty"`

	// TocEntryID is the primary TOC entry covering this line, set after
	// TOC construction.
	TocEntryID int64 `json:"toc_entry_id,omitempty"`
}

// IsHeading reports whether the line is a structural heading rather than
// referenceable content.
func (l *Line) IsHeading() bool {
	return l.Ref == ""
}
