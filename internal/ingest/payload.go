package ingest

import (
	"github.com/seforimapp/seforim-server/internal/citation"
	"github.com/seforimapp/seforim-server/internal/domain"
)

// CategoryDraft is one level of a book's category chain before ids are
// assigned.
type CategoryDraft struct {
	Title string
	Order int
}

// AltNodeDraft is one node of an alternative structure: a whole-range
// citation plus its sub-range citations (e.g. a Parasha and its Aliyot).
type AltNodeDraft struct {
	Title    string
	HeTitle  string
	WholeRef string
	Refs     []string
}

// AltStructureDraft is one alternative TOC keyed by its structure name.
type AltStructureDraft struct {
	Key   string
	Nodes []AltNodeDraft
}

// BookPayload is the self-contained product of preparing one book off the
// writer thread: everything the serialized writer needs to persist it.
type BookPayload struct {
	SourceName   string
	CategoryPath []CategoryDraft
	Book         domain.Book
	HeTitle      string

	Flatten       *FlattenResult
	AltStructures []AltStructureDraft

	// Aliases are extra lookup titles (acronyms) for the resolver.
	Aliases []string
}

// WrittenBook is the writer's record of one persisted book: the assigned
// ids the resolver needs to turn 1-based ref entries into line ids.
type WrittenBook struct {
	BookID        int64
	CategoryLevel int
	IsBaseBook    bool
	Title         string
	RefMap        *RefMap
	LineIDs       []int64
}

// LineIDAt maps a 1-based ref-entry line index to its assigned line id,
// or zero when out of range.
func (w *WrittenBook) LineIDAt(lineIndex int) int64 {
	if lineIndex < 1 || lineIndex > len(w.LineIDs) {
		return 0
	}
	return w.LineIDs[lineIndex-1]
}

// Corpus collects every book written in one run, keyed by canonical title,
// for the link resolver.
type Corpus struct {
	books   map[string]*WrittenBook
	aliases map[string]string
}

// NewCorpus creates an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{
		books:   make(map[string]*WrittenBook),
		aliases: make(map[string]string),
	}
}

// Add registers a written book under its canonical title.
func (c *Corpus) Add(w *WrittenBook) {
	c.books[citation.Canonical(w.Title)] = w
}

// RegisterAlias maps an acronym or alternate title onto a known book and
// widens that book's lookup map with alias keys.
func (c *Corpus) RegisterAlias(alias, title string) {
	target := citation.Canonical(title)
	w, ok := c.books[target]
	if !ok {
		return
	}
	key := citation.Canonical(alias)
	if key == "" || key == target {
		return
	}
	c.aliases[key] = target
	w.RefMap.AddAlias(alias)
}

// ByTitle resolves a canonical book title, following aliases.
func (c *Corpus) ByTitle(canonicalTitle string) *WrittenBook {
	if w, ok := c.books[canonicalTitle]; ok {
		return w
	}
	if target, ok := c.aliases[canonicalTitle]; ok {
		return c.books[target]
	}
	return nil
}

// Books returns every written book in the corpus.
func (c *Corpus) Books() []*WrittenBook {
	out := make([]*WrittenBook, 0, len(c.books))
	for _, w := range c.books {
		out = append(out, w)
	}
	return out
}

// Len returns the number of books in the corpus.
func (c *Corpus) Len() int {
	return len(c.books)
}
