package dictionary

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/seforimapp/seforim-server/internal/hebrew"
)

// Blacklist filters (token -> base) pairs out of highlight expansion. It is
// a temporary mitigation for noisy corpus-derived dictionaries and applies
// to highlighting only, never to match widening.
type Blacklist struct {
	pairs map[string]map[string]bool
}

// LoadBlacklist reads a TSV of (token, base) pairs. A missing path yields
// an empty blacklist.
func LoadBlacklist(path string) (*Blacklist, error) {
	bl := &Blacklist{pairs: make(map[string]map[string]bool)}
	if path == "" {
		return bl, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return bl, nil
		}
		return nil, fmt.Errorf("open blacklist %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 2 {
			return nil, fmt.Errorf("blacklist line %d: expected token<TAB>base", lineNum)
		}
		token := hebrew.Normalize(parts[0])
		base := hebrew.Normalize(parts[1])
		if token == "" || base == "" {
			continue
		}
		if bl.pairs[token] == nil {
			bl.pairs[token] = make(map[string]bool)
		}
		bl.pairs[token][base] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read blacklist: %w", err)
	}
	return bl, nil
}

// Blocked reports whether the (token, base) pair is blacklisted. Both sides
// are normalized before lookup, like the pairs loaded from the TSV.
func (bl *Blacklist) Blocked(token, base string) bool {
	bases, ok := bl.pairs[hebrew.Normalize(token)]
	return ok && bases[hebrew.Normalize(base)]
}

// FilterForHighlight returns a copy of exp with blacklisted bases removed.
// Surfaces and variants always survive; only base expansion is filtered.
func (bl *Blacklist) FilterForHighlight(exp *Expansion) *Expansion {
	if exp == nil {
		return nil
	}
	if len(bl.pairs[hebrew.Normalize(exp.Token)]) == 0 {
		return exp
	}

	filtered := &Expansion{
		Token:    exp.Token,
		Surfaces: exp.Surfaces,
		Variants: exp.Variants,
	}
	for _, base := range exp.Bases {
		if !bl.Blocked(exp.Token, base) {
			filtered.Bases = append(filtered.Bases, base)
		}
	}
	return filtered
}

// Len returns the number of blacklisted pairs, for run summaries.
func (bl *Blacklist) Len() int {
	n := 0
	for _, bases := range bl.pairs {
		n += len(bases)
	}
	return n
}
