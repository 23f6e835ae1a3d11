// Package dictionary opens the read-only lexical key/value store that maps
// normalized Hebrew surface forms to their expansion sets (surfaces,
// orthographic variants, and bases). The query engine uses one preferred
// expansion per token to widen matching and highlighting.
package dictionary

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/seforimapp/seforim-server/internal/hebrew"
)

// Key layout inside the store.
const (
	tokenKeyPrefix = "t:"
	hashemKey      = "meta:hashem"
)

// Expansion is the preferred expansion set selected for one token.
type Expansion struct {
	Token    string   `json:"token"`
	Surfaces []string `json:"surfaces,omitempty"`
	Variants []string `json:"variants,omitempty"`
	Bases    []string `json:"bases,omitempty"`
}

// Terms returns every alternative carried by the expansion, surfaces first.
func (e *Expansion) Terms() []string {
	terms := make([]string, 0, len(e.Surfaces)+len(e.Variants)+len(e.Bases))
	terms = append(terms, e.Surfaces...)
	terms = append(terms, e.Variants...)
	terms = append(terms, e.Bases...)
	return terms
}

func (e *Expansion) size() int {
	return len(e.Surfaces) + len(e.Variants) + len(e.Bases)
}

// Index is the narrow dictionary surface the query engine depends on.
type Index interface {
	// ExpansionFor returns the preferred expansion for a token, or nil
	// for blank or unknown tokens.
	ExpansionFor(token string) *Expansion

	// ExpansionsFor returns the distinct concatenation of expansions
	// over the input tokens.
	ExpansionsFor(tokens []string) []*Expansion

	// HashemSurfaces lists the surface forms of the divine name, used to
	// enrich highlight terms when the query literally contains Hashem.
	HashemSurfaces() []string
}

// BadgerIndex is the production Index over a read-only Badger store.
// Lookups are cached; the cache is the only shared mutable state during
// queries and is guarded for concurrent readers with rare writers.
type BadgerIndex struct {
	db     *badger.DB
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*Expansion

	hashemOnce sync.Once
	hashem     []string
}

// Open opens the dictionary at path read-only. A missing store is an error
// here; callers that want silent degradation use OpenOrNoop.
func Open(path string, logger *slog.Logger) (*BadgerIndex, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open dictionary %s: %w", path, err)
	}
	return &BadgerIndex{
		db:     db,
		logger: logger,
		cache:  make(map[string]*Expansion),
	}, nil
}

// OpenOrNoop opens the dictionary when a path is configured and reachable;
// otherwise the engine degrades to no expansions.
func OpenOrNoop(path string, logger *slog.Logger) Index {
	if path == "" {
		return Noop{}
	}
	idx, err := Open(path, logger)
	if err != nil {
		if logger != nil {
			logger.Warn("dictionary unavailable, continuing without expansions",
				"path", path, "error", err)
		}
		return Noop{}
	}
	return idx
}

// Close releases the underlying store.
func (i *BadgerIndex) Close() error {
	return i.db.Close()
}

// ExpansionFor returns the preferred expansion for a token. When the token
// is itself a base, that base's entry wins; otherwise the largest expansion
// set does. Blank and unknown tokens yield nil.
func (i *BadgerIndex) ExpansionFor(token string) *Expansion {
	token = hebrew.Normalize(token)
	if token == "" {
		return nil
	}

	i.mu.RLock()
	cached, ok := i.cache[token]
	i.mu.RUnlock()
	if ok {
		return cached
	}

	exp := i.lookup(token)

	i.mu.Lock()
	i.cache[token] = exp
	i.mu.Unlock()
	return exp
}

func (i *BadgerIndex) lookup(token string) *Expansion {
	var entries []Expansion
	err := i.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tokenKeyPrefix + token))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entries)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			i.logger.Warn("dictionary lookup failed", "token", token, "error", err)
		}
		return nil
	}
	if len(entries) == 0 {
		return nil
	}

	best := &entries[0]
	for idx := range entries {
		e := &entries[idx]
		// A token that is itself one of the entry's bases wins outright.
		for _, base := range e.Bases {
			if base == token {
				e.Token = token
				return e
			}
		}
		if e.size() > best.size() {
			best = e
		}
	}
	best.Token = token
	return best
}

// ExpansionsFor returns the distinct concatenation of per-token expansions.
func (i *BadgerIndex) ExpansionsFor(tokens []string) []*Expansion {
	seen := make(map[string]bool, len(tokens))
	var out []*Expansion
	for _, tok := range tokens {
		tok = hebrew.Normalize(tok)
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		if exp := i.ExpansionFor(tok); exp != nil {
			out = append(out, exp)
		}
	}
	return out
}

// HashemSurfaces returns the stored surface forms of the divine name,
// loaded once per process.
func (i *BadgerIndex) HashemSurfaces() []string {
	i.hashemOnce.Do(func() {
		err := i.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(hashemKey))
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				return json.Unmarshal(val, &i.hashem)
			})
		})
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			i.logger.Warn("loading hashem surfaces failed", "error", err)
		}
	})
	return i.hashem
}

// Noop is the dictionary used when no store is configured; every lookup
// misses.
type Noop struct{}

// ExpansionFor always returns nil.
func (Noop) ExpansionFor(string) *Expansion { return nil }

// ExpansionsFor always returns nil.
func (Noop) ExpansionsFor([]string) []*Expansion { return nil }

// HashemSurfaces always returns nil.
func (Noop) HashemSurfaces() []string { return nil }
