package search

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// LineHit is one scored line result.
type LineHit struct {
	LineID     int64   `json:"line_id"`
	BookID     int64   `json:"book_id"`
	CategoryID int64   `json:"category_id"`
	BookTitle  string  `json:"book_title"`
	LineIndex  int     `json:"line_index"`
	IsBaseBook bool    `json:"is_base_book"`
	Score      float64 `json:"score"`
	Snippet    string  `json:"snippet,omitempty"`
}

// Page is one page of session results.
type Page struct {
	Hits       []LineHit `json:"hits"`
	IsLastPage bool      `json:"is_last_page"`
}

// FacetCounts aggregates match counts per book and per ancestor category
// without loading stored fields.
type FacetCounts struct {
	Books      map[int64]int `json:"books"`
	Categories map[int64]int `json:"categories"`
}

// Session iterates one query's results in pages ordered by descending
// boosted score with line id as tiebreaker. A session is not thread-safe;
// use one per logical consumer. Close may be called from any goroutine and
// at any time; an in-flight NextPage observes it between scored documents
// and returns a partial page.
type Session struct {
	engine    *Engine
	index     bleve.Index
	query     query.Query
	tokens    []string
	highlight []string
	near      int

	searchAfter []string
	seen        uint64
	exhausted   bool
	closed      atomic.Bool
}

// NextPage returns up to limit further hits. A nil page means the session
// is exhausted or closed.
func (s *Session) NextPage(ctx context.Context, limit int) (*Page, error) {
	if s == nil || s.closed.Load() || s.exhausted || limit <= 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(s.query, limit, 0, false)
	req.SortBy([]string{"-_score", "line_id"})
	req.Fields = []string{
		"line_id", "book_id", "category_id", "book_title",
		"line_index", "order_index", "is_base_book", "text_raw",
	}
	if s.searchAfter != nil {
		req.SearchAfter = s.searchAfter
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	if len(res.Hits) == 0 {
		s.exhausted = true
		return &Page{IsLastPage: true}, nil
	}

	page := &Page{Hits: make([]LineHit, 0, len(res.Hits))}
	for _, hit := range res.Hits {
		// Cancellation is observed between scored documents; cursor
		// state stays valid because searchAfter only advances below.
		if s.closed.Load() {
			if len(page.Hits) == 0 {
				return nil, nil
			}
			page.IsLastPage = true
			return page, nil
		}

		lh := LineHit{Score: hit.Score}
		if v, ok := hit.Fields["line_id"].(float64); ok {
			lh.LineID = int64(v)
		}
		if v, ok := hit.Fields["book_id"].(float64); ok {
			lh.BookID = int64(v)
		}
		if v, ok := hit.Fields["category_id"].(float64); ok {
			lh.CategoryID = int64(v)
		}
		if v, ok := hit.Fields["book_title"].(string); ok {
			lh.BookTitle = v
		}
		if v, ok := hit.Fields["line_index"].(float64); ok {
			lh.LineIndex = int(v)
		}
		if v, ok := hit.Fields["is_base_book"].(bool); ok {
			lh.IsBaseBook = v
		}

		// Base books surface earlier material first: the raw score is
		// multiplied by 1 + max(0, 120 - order_index)/60.
		if lh.IsBaseBook {
			if order, ok := hit.Fields["order_index"].(float64); ok {
				if extra := orderBoostCeiling - order; extra > 0 {
					lh.Score *= 1 + extra/orderBoostDivisor
				}
			}
		}

		raw, _ := hit.Fields["text_raw"].(string)
		source := s.snippetSource(ctx, lh.LineID, raw)
		lh.Score *= proximityMultiplier(source, s.tokens, s.near)
		if source != "" {
			lh.Snippet = BuildSnippet(source, s.highlight)
		}

		page.Hits = append(page.Hits, lh)
	}

	// Resort the page by boosted score; ties break on line id.
	sort.SliceStable(page.Hits, func(i, j int) bool {
		if page.Hits[i].Score != page.Hits[j].Score {
			return page.Hits[i].Score > page.Hits[j].Score
		}
		return page.Hits[i].LineID < page.Hits[j].LineID
	})

	last := res.Hits[len(res.Hits)-1]
	s.searchAfter = append([]string(nil), last.Sort...)
	s.seen += uint64(len(res.Hits))
	if s.seen >= res.Total || len(res.Hits) < limit {
		s.exhausted = true
		page.IsLastPage = true
	}
	return page, nil
}

// snippetSource fetches the raw text for one hit, preferring the engine's
// snippet provider over index-stored raw text.
func (s *Session) snippetSource(ctx context.Context, lineID int64, storedRaw string) string {
	if s.engine.snippets != nil {
		if text, err := s.engine.snippets.SnippetSource(ctx, lineID); err == nil && text != "" {
			return text
		}
	}
	return storedRaw
}

// ComputeFacets streams every match through a scoreless pass and counts
// hits per book id and per ancestor category id.
func (s *Session) ComputeFacets(ctx context.Context) (*FacetCounts, error) {
	if s == nil || s.closed.Load() {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(s.query, 0, 0, false)
	req.AddFacet("books", bleve.NewFacetRequest("book_id_term", 1000))
	req.AddFacet("categories", bleve.NewFacetRequest("ancestor_category_ids", 1000))

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("compute facets: %w", err)
	}

	counts := &FacetCounts{
		Books:      make(map[int64]int),
		Categories: make(map[int64]int),
	}
	if facet, ok := res.Facets["books"]; ok {
		for _, term := range facet.Terms.Terms() {
			if id, err := parseID(term.Term); err == nil {
				counts.Books[id] += term.Count
			}
		}
	}
	if facet, ok := res.Facets["categories"]; ok {
		for _, term := range facet.Terms.Terms() {
			if id, err := parseID(term.Term); err == nil {
				counts.Categories[id] += term.Count
			}
		}
	}
	return counts, nil
}

// Close marks the session closed; later NextPage and ComputeFacets calls
// return nil. Closing a closed session is a no-op.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.closed.Store(true)
}

func parseID(s string) (int64, error) {
	var id int64
	_, err := fmt.Sscanf(s, "%d", &id)
	return id, err
}
