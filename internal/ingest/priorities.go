package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/seforimapp/seforim-server/internal/citation"
)

// defaultPriorityRank is assigned to books absent from the manifest; the
// directionality rule prefers lower ranks.
const defaultPriorityRank = 1000

// Priorities is the base-book manifest: which titles are base books and how
// they rank when two base books link to each other.
type Priorities struct {
	ranks map[string]int
}

type prioritiesFile struct {
	BaseBooks []struct {
		Title    string `yaml:"title"`
		Priority int    `yaml:"priority"`
	} `yaml:"base_books"`
}

// LoadPriorities reads the YAML manifest. An empty path yields an empty
// manifest (no base books, default ranks everywhere).
func LoadPriorities(path string) (*Priorities, error) {
	p := &Priorities{ranks: make(map[string]int)}
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("read priorities %s: %w", path, err)
	}

	var f prioritiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse priorities %s: %w", path, err)
	}
	for _, b := range f.BaseBooks {
		key := citation.Canonical(b.Title)
		if key == "" {
			continue
		}
		rank := b.Priority
		if rank <= 0 {
			rank = defaultPriorityRank
		}
		p.ranks[key] = rank
	}
	return p, nil
}

// IsBase reports whether the manifest marks the title as a base book.
func (p *Priorities) IsBase(title string) bool {
	_, ok := p.ranks[citation.Canonical(title)]
	return ok
}

// Rank returns the priority rank of a title; unlisted titles rank last.
func (p *Priorities) Rank(title string) int {
	if r, ok := p.ranks[citation.Canonical(title)]; ok {
		return r
	}
	return defaultPriorityRank
}
