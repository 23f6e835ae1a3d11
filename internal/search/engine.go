package search

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/seforimapp/seforim-server/internal/dictionary"
	"github.com/seforimapp/seforim-server/internal/hebrew"
)

// Scoring constants of the boolean query.
const (
	boostExactPhrase = 50.0
	boostNearPhrase  = 20.0
	boostSlopPhrase  = 5.0
	boostSurface     = 2.0
	boostVariant     = 1.5
	boostBase        = 1.0

	maxTermsPerToken = 32
	maxTermsTotal    = 256

	// Base-book hits multiply their score by
	// 1 + max(0, 120-order_index)/60.
	orderBoostCeiling = 120.0
	orderBoostDivisor = 60.0

	ngramSize = 4
)

// Hashem glyph forms preserved through tokenization.
var hashemGlyphs = []string{"ה׳", "ה'"}

// hebrewStopWords are dropped from queries; matching them adds noise, not
// recall. Keys are in normalized form (final letters written as base
// letters), like the tokens they are compared with.
var hebrewStopWords = map[string]bool{
	"של": true, "את": true, "על": true, "אל": true, "כי": true,
	"לא": true, "אמ": true, "הוא": true, "היא": true, "זה": true,
	"אשר": true, "מנ": true, "כל": true, "גם": true, "או": true,
}

// Filters restricts a session to a slice of the corpus.
type Filters struct {
	BookID       int64
	BookIDs      []int64
	CategoryID   int64
	LineIDs      []int64
	BaseBookOnly bool
}

// SnippetProvider supplies the raw snippet source text for a hit when the
// index does not store raw text. Implementations typically pull the line
// and its neighbors from the relational store.
type SnippetProvider interface {
	SnippetSource(ctx context.Context, lineID int64) (string, error)
}

// Engine answers full-text queries over a SearchIndex with dictionary
// expansions and snippet highlighting.
type Engine struct {
	index     *SearchIndex
	dict      dictionary.Index
	blacklist *dictionary.Blacklist
	snippets  SnippetProvider
	logger    *slog.Logger
}

// EngineOptions configures an Engine. Dict and Snippets may be nil; the
// engine degrades to no expansions and index-stored raw text.
type EngineOptions struct {
	Index     *SearchIndex
	Dict      dictionary.Index
	Blacklist *dictionary.Blacklist
	Snippets  SnippetProvider
	Logger    *slog.Logger
}

// NewEngine creates a query engine.
func NewEngine(opts EngineOptions) *Engine {
	dict := opts.Dict
	if dict == nil {
		dict = dictionary.Noop{}
	}
	blacklist := opts.Blacklist
	if blacklist == nil {
		blacklist, _ = dictionary.LoadBlacklist("")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		index:     opts.Index,
		dict:      dict,
		blacklist: blacklist,
		snippets:  opts.Snippets,
		logger:    logger,
	}
}

// tokenize runs the query through the same normalization as indexing and
// drops single Hebrew letters and stop words. The bare ה survives when the
// original query carried a Hashem glyph. Numeric tokens are kept so the
// dictionary can expand them.
func tokenize(raw string) (tokens []string, hashem bool) {
	for _, glyph := range hashemGlyphs {
		if strings.Contains(raw, glyph) {
			hashem = true
			break
		}
	}

	for _, tok := range strings.Fields(hebrew.Normalize(strings.ToLower(raw))) {
		runes := []rune(tok)
		if len(runes) == 1 && hebrew.IsHebrewLetter(runes[0]) {
			if hashem && runes[0] == 'ה' {
				tokens = append(tokens, tok)
			}
			continue
		}
		if hebrewStopWords[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, hashem
}

// tokenGrams returns the 4-grams of a token, or nil for short tokens.
func tokenGrams(tok string) []string {
	runes := []rune(tok)
	if len(runes) < ngramSize {
		return nil
	}
	grams := make([]string, 0, len(runes)-ngramSize+1)
	for i := 0; i+ngramSize <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+ngramSize]))
	}
	return grams
}

// OpenSession starts a query session. A blank normalized query yields a
// nil session. near is the proximity slop for phrase scoring; 0 means
// exact phrase only.
func (e *Engine) OpenSession(queryString string, near int, filters Filters) (*Session, error) {
	tokens, hashem := tokenize(queryString)
	if len(tokens) == 0 {
		return nil, nil
	}

	expansions := make(map[string]*dictionary.Expansion, len(tokens))
	for _, tok := range tokens {
		if exp := e.dict.ExpansionFor(tok); exp != nil {
			expansions[tok] = exp
		}
	}

	q := e.buildQuery(tokens, expansions, near, filters)
	highlight := e.highlightTerms(tokens, expansions, hashem)

	return &Session{
		engine:     e,
		index:      e.index.snapshot(),
		query:      q,
		tokens:     tokens,
		highlight:  highlight,
		near:       near,
	}, nil
}

// buildQuery assembles the boolean query: hard filters and per-token
// presence clauses as MUST, the scoring ladder as SHOULD.
func (e *Engine) buildQuery(tokens []string, expansions map[string]*dictionary.Expansion, near int, filters Filters) query.Query {
	boolean := bleve.NewBooleanQuery()

	boolean.AddMust(termQuery("type", string(DocTypeLine)))
	addFilterClauses(boolean, filters)

	// Presence: every token must appear as itself, as one of its
	// synonyms, or through its 4-grams.
	for _, tok := range tokens {
		presence := []query.Query{termQuery("text", tok)}
		if grams := tokenGrams(tok); grams != nil {
			presence = append(presence, gramConjunction(grams, 0))
		}
		if exp := expansions[tok]; exp != nil {
			for _, syn := range capTerms(exp.Terms(), maxTermsPerToken) {
				presence = append(presence, termQuery("text", syn))
			}
		}
		boolean.AddMust(bleve.NewDisjunctionQuery(presence...))
	}

	// Scoring ladder.
	var scoring []query.Query
	if len(tokens) > 1 {
		phrase := bleve.NewPhraseQuery(tokens, "text")
		phrase.SetBoost(boostExactPhrase)
		scoring = append(scoring, phrase)
	}

	totalTerms := 0
	for _, tok := range tokens {
		exact := termQuery("text", tok)
		exact.SetBoost(boostSurface)
		scoring = append(scoring, exact)

		exp := expansions[tok]
		if exp == nil {
			continue
		}
		for _, group := range []struct {
			terms []string
			boost float64
		}{
			{exp.Surfaces, boostSurface},
			{exp.Variants, boostVariant},
			{exp.Bases, boostBase},
		} {
			for _, term := range capTerms(group.terms, maxTermsPerToken) {
				if totalTerms >= maxTermsTotal {
					break
				}
				tq := termQuery("text", term)
				tq.SetBoost(group.boost)
				scoring = append(scoring, tq)
				totalTerms++
			}
		}

		if grams := tokenGrams(tok); grams != nil {
			scoring = append(scoring, gramConjunction(grams, boostBase))
			if near > 0 {
				fuzzy := bleve.NewFuzzyQuery(tok)
				fuzzy.SetField("text")
				fuzzy.SetFuzziness(1)
				scoring = append(scoring, fuzzy)
			}
		}
	}
	for _, sq := range scoring {
		boolean.AddShould(sq)
	}

	return boolean
}

func addFilterClauses(boolean *query.BooleanQuery, filters Filters) {
	if filters.BookID > 0 {
		boolean.AddMust(termQuery("book_id_term", strconv.FormatInt(filters.BookID, 10)))
	}
	if len(filters.BookIDs) > 0 {
		set := make([]query.Query, 0, len(filters.BookIDs))
		for _, id := range filters.BookIDs {
			set = append(set, termQuery("book_id_term", strconv.FormatInt(id, 10)))
		}
		boolean.AddMust(bleve.NewDisjunctionQuery(set...))
	}
	if len(filters.LineIDs) > 0 {
		set := make([]query.Query, 0, len(filters.LineIDs))
		for _, id := range filters.LineIDs {
			set = append(set, termQuery("line_id_term", strconv.FormatInt(id, 10)))
		}
		boolean.AddMust(bleve.NewDisjunctionQuery(set...))
	}
	if filters.CategoryID > 0 {
		// Ancestor denormalization turns the subtree filter into a
		// single term.
		boolean.AddMust(termQuery("ancestor_category_ids", strconv.FormatInt(filters.CategoryID, 10)))
	}
	if filters.BaseBookOnly {
		base := bleve.NewBoolFieldQuery(true)
		base.SetField("is_base_book")
		boolean.AddMust(base)
	}
}

// highlightTerms is the expansion union used for snippet marking, with
// blacklisted bases filtered out and Hashem surfaces added when the query
// named Hashem.
func (e *Engine) highlightTerms(tokens []string, expansions map[string]*dictionary.Expansion, hashem bool) []string {
	seen := make(map[string]bool)
	var terms []string
	push := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}

	for _, tok := range tokens {
		push(tok)
		if exp := expansions[tok]; exp != nil {
			filtered := e.blacklist.FilterForHighlight(exp)
			for _, t := range filtered.Terms() {
				push(t)
			}
		}
	}
	if hashem {
		for _, surface := range e.dict.HashemSurfaces() {
			push(hebrew.Normalize(surface))
		}
	}
	return terms
}

// SearchBooksByTitlePrefix returns up to limit book ids whose titles match
// every normalized query token as a prefix, in first-match order.
func (e *Engine) SearchBooksByTitlePrefix(ctx context.Context, prefix string, limit int) ([]int64, error) {
	tokens := strings.Fields(hebrew.Normalize(strings.ToLower(prefix)))
	if len(tokens) == 0 || limit <= 0 {
		return nil, nil
	}

	boolean := bleve.NewBooleanQuery()
	boolean.AddMust(termQuery("type", string(DocTypeBookTitle)))
	for _, tok := range tokens {
		pq := bleve.NewPrefixQuery(tok)
		pq.SetField("title")
		boolean.AddMust(pq)
	}

	req := bleve.NewSearchRequestOptions(boolean, limit, 0, false)
	req.Fields = []string{"book_id"}
	res, err := e.index.snapshot().SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if v, ok := hit.Fields["book_id"].(float64); ok {
			ids = append(ids, int64(v))
		}
	}
	return ids, nil
}

func termQuery(field, term string) *query.TermQuery {
	tq := bleve.NewTermQuery(term)
	tq.SetField(field)
	return tq
}

// gramConjunction requires every 4-gram of a token on the text_ng4 field.
func gramConjunction(grams []string, boost float64) query.Query {
	qs := make([]query.Query, 0, len(grams))
	for _, g := range grams {
		qs = append(qs, termQuery("text_ng4", g))
	}
	conj := bleve.NewConjunctionQuery(qs...)
	if boost > 0 {
		conj.SetBoost(boost)
	}
	return conj
}

func capTerms(terms []string, limit int) []string {
	if len(terms) <= limit {
		return terms
	}
	return terms[:limit]
}
