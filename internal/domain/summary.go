package domain

// BuildSummary is the non-zero outcome report of an ingestion run.
// Per-record failures (bad citations, missing schemas) are counted here
// instead of aborting the batch.
type BuildSummary struct {
	BooksProcessed  int `json:"books_processed"`
	BooksSkipped    int `json:"books_skipped"`
	LinksResolved   int `json:"links_resolved"`
	LinksUnresolved int `json:"links_unresolved"`
}

// Merge accumulates another summary into s.
func (s *BuildSummary) Merge(other BuildSummary) {
	s.BooksProcessed += other.BooksProcessed
	s.BooksSkipped += other.BooksSkipped
	s.LinksResolved += other.LinksResolved
	s.LinksUnresolved += other.LinksUnresolved
}
