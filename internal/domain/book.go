// Package domain contains the core entities of the Seforim library: sources,
// categories, books, lines, tables of contents, and inter-book links.
//
// All identifiers are 64-bit integers assigned by the store; zero means
// "unassigned". Relationships are expressed by id, never by pointer, so the
// category forest, the TOC forests, and the link multigraph stay cycle-free
// at the language level.
package domain

// Source is a provenance label for ingested content (e.g. "Sefaria",
// "Otzaria"). Uniquely keyed by name.
type Source struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Book is a single text within a category: a base text, a commentary, a
// targum, or a collection volume.
type Book struct {
	ID         int64    `json:"id"`
	CategoryID int64    `json:"category_id"`
	SourceID   int64    `json:"source_id"`
	Title      string   `json:"title"`
	Authors    []string `json:"authors,omitempty"`
	PubPlaces  []string `json:"pub_places,omitempty"`
	PubDates   []string `json:"pub_dates,omitempty"`

	// HeShortDesc is a short Hebrew description shown in catalogs.
	HeShortDesc string `json:"he_short_desc,omitempty"`

	// Order positions the book among its category siblings. Upstream feeds
	// carry fractional values, so this is a float.
	Order float64 `json:"order"`

	// TotalLines equals the count of lines carrying this book's id.
	TotalLines int `json:"total_lines"`

	// IsBaseBook marks a primary text that commentaries attach to.
	IsBaseBook bool `json:"is_base_book"`

	// Connection flags are derived from the link table after link
	// insertion; they let clients skip empty link panes without querying.
	HasTargumConnection     bool `json:"has_targum_connection"`
	HasReferenceConnection  bool `json:"has_reference_connection"`
	HasCommentaryConnection bool `json:"has_commentary_connection"`
	HasOtherConnection      bool `json:"has_other_connection"`

	// HasAltStructures is set when the book carries alternative TOCs
	// (e.g. Parasha/Aliyah divisions alongside chapters).
	HasAltStructures bool `json:"has_alt_structures"`
}

// BookHasLinks is the per-book link presence summary kept beside the link
// table.
type BookHasLinks struct {
	BookID         int64 `json:"book_id"`
	HasSourceLinks bool  `json:"has_source_links"`
	HasTargetLinks bool  `json:"has_target_links"`
}

// BookTitleTerm is one searchable term for book-title autocomplete.
// Insert-only; mirrored into the FTS table by the store.
type BookTitleTerm struct {
	BookID       int64  `json:"book_id"`
	Term         string `json:"term"`
	DisplayTitle string `json:"display_title"`
	CategoryID   int64  `json:"category_id"`
}
