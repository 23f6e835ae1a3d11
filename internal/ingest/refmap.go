package ingest

import (
	"github.com/seforimapp/seforim-server/internal/citation"
)

// RefEntry locates one referenceable line inside a book. LineIndex is
// 1-based into the book's line sequence.
type RefEntry struct {
	Ref       string
	HeRef     string
	Path      string
	LineIndex int
}

// RefMap is the per-book citation lookup map the resolver works against.
// Keys are canonical citation strings; base keys drop trailing numeric
// refs and hold the lowest line index seen.
type RefMap struct {
	Title        string
	MultiSection bool

	byCanonical map[string][]RefEntry
	byBase      map[string]RefEntry
}

// NewRefMap creates an empty lookup map for one book.
func NewRefMap(title string, multiSection bool) *RefMap {
	return &RefMap{
		Title:        title,
		MultiSection: multiSection,
		byCanonical:  make(map[string][]RefEntry),
		byBase:       make(map[string]RefEntry),
	}
}

// Add registers one referenceable line under its canonical keys.
func (m *RefMap) Add(entry RefEntry) {
	key := citation.Canonical(entry.Ref)
	m.byCanonical[key] = append(m.byCanonical[key], entry)

	base := citation.CanonicalBase(entry.Ref)
	if existing, ok := m.byBase[base]; !ok || entry.LineIndex < existing.LineIndex {
		m.byBase[base] = entry
	}
}

// AddAlias registers every canonical key a second time with the book title
// replaced by an alias (Otzaria acronym support). Alias keys resolve
// exactly like primary keys.
func (m *RefMap) AddAlias(alias string) {
	aliasCanonical := citation.Canonical(alias)
	titleCanonical := citation.Canonical(m.Title)
	if aliasCanonical == "" || aliasCanonical == titleCanonical {
		return
	}

	for key, entries := range m.byCanonical {
		if swapped, ok := swapPrefix(key, titleCanonical, aliasCanonical); ok {
			if _, exists := m.byCanonical[swapped]; !exists {
				m.byCanonical[swapped] = entries
			}
		}
	}
	for key, entry := range m.byBase {
		if swapped, ok := swapPrefix(key, titleCanonical, aliasCanonical); ok {
			if _, exists := m.byBase[swapped]; !exists {
				m.byBase[swapped] = entry
			}
		}
	}
}

func swapPrefix(key, prefix, replacement string) (string, bool) {
	if key == prefix {
		return replacement, true
	}
	if len(key) > len(prefix) && key[:len(prefix)] == prefix && key[len(prefix)] == ' ' {
		return replacement + key[len(prefix):], true
	}
	return "", false
}

// Resolve resolves a citation string against this book's map:
//
//  1. The canonical form, as given.
//  2. The start of a range.
//  3. The canonical base, only when the citation carries positional refs
//     and the book is not multi-section.
//
// The boolean result is false when every step misses.
func (m *RefMap) Resolve(raw string) (RefEntry, bool) {
	key := citation.Canonical(raw)
	if entries := m.byCanonical[key]; len(entries) > 0 {
		return entries[0], true
	}

	// Range citations retry with their start; Parse already reduces, so
	// re-rendering the parsed form covers "X 1:1-5".
	parsed, ok := citation.Parse(raw)
	if !ok {
		return RefEntry{}, false
	}
	startKey := citation.Canonical(parsed.String())
	if startKey != key {
		if entries := m.byCanonical[startKey]; len(entries) > 0 {
			return entries[0], true
		}
	}

	if parsed.HasRefs() && !m.MultiSection {
		if entry, ok := m.byBase[citation.CanonicalBase(raw)]; ok {
			return entry, true
		}
	}
	return RefEntry{}, false
}

// Lookup returns the entries under an exact canonical key, for TOC
// construction paths that bypass the fallback ladder.
func (m *RefMap) Lookup(canonicalKey string) []RefEntry {
	return m.byCanonical[canonicalKey]
}

// Len returns the number of distinct canonical keys.
func (m *RefMap) Len() int {
	return len(m.byCanonical)
}
