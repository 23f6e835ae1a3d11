// Package ingest converts upstream book exports into ordered line
// sequences, tables of contents, per-line references, and the lookup maps
// the link resolver needs, then feeds a single store writer.
package ingest

import (
	"github.com/seforimapp/seforim-server/internal/errors"
)

// Node kinds in upstream schemas; dispatch is on this single discriminant.
const (
	NodeJaggedArray = "JaggedArrayNode"
	NodeArrayMap    = "ArrayMapNode"
	NodeSchema      = "SchemaNode"
)

// defaultNodeKey marks a node that passes its children through without
// adding its own reference level.
const defaultNodeKey = "default"

// BookSchema describes the structure of one upstream book: its depth, the
// names of its section levels, how each level is addressed, and optional
// named nodes for complex books.
type BookSchema struct {
	Title        string   `json:"title"`
	HeTitle      string   `json:"heTitle"`
	CategoriesHe []string `json:"categoriesHe"`
	Authors      []string `json:"authors,omitempty"`
	PubPlaces    []string `json:"pubPlaces,omitempty"`
	PubDates     []string `json:"pubDates,omitempty"`

	Depth                 int      `json:"depth"`
	SectionNames          []string `json:"sectionNames"`
	HeSectionNames        []string `json:"heSectionNames"`
	AddressTypes          []string `json:"addressTypes"`
	ReferenceableSections []bool   `json:"referenceableSections"`

	Nodes []SchemaNode `json:"nodes,omitempty"`
}

// SchemaNode is one named node of a complex book schema.
type SchemaNode struct {
	Key      string `json:"key"`
	NodeType string `json:"nodeType"`
	Title    string `json:"title"`
	HeTitle  string `json:"heTitle"`

	Depth                 int      `json:"depth"`
	SectionNames          []string `json:"sectionNames"`
	HeSectionNames        []string `json:"heSectionNames"`
	AddressTypes          []string `json:"addressTypes"`
	ReferenceableSections []bool   `json:"referenceableSections"`

	Nodes []SchemaNode `json:"nodes,omitempty"`
}

// IsDefault reports whether the node passes its children through unchanged.
func (n *SchemaNode) IsDefault() bool {
	return n.Key == defaultNodeKey
}

// Validate rejects schemas whose depth and address arrays disagree; the
// offending book is skipped and counted, never aborting the run.
func (s *BookSchema) Validate() error {
	if s.Title == "" {
		return errors.Schema("schema missing title")
	}
	if len(s.Nodes) > 0 {
		for i := range s.Nodes {
			if err := validateNode(&s.Nodes[i]); err != nil {
				return errors.Wrapf(err, errors.CodeSchema, "schema %q node %q", s.Title, s.Nodes[i].Key)
			}
		}
		return nil
	}
	return validateDepth(s.Title, s.Depth, s.AddressTypes, s.SectionNames)
}

func validateNode(n *SchemaNode) error {
	if len(n.Nodes) > 0 {
		for i := range n.Nodes {
			if err := validateNode(&n.Nodes[i]); err != nil {
				return err
			}
		}
		return nil
	}
	return validateDepth(n.Key, n.Depth, n.AddressTypes, n.SectionNames)
}

func validateDepth(name string, depth int, addressTypes, sectionNames []string) error {
	if depth < 1 {
		return errors.Schemaf("%s: depth %d out of range", name, depth)
	}
	if len(addressTypes) != depth {
		return errors.Schemaf("%s: %d address types for depth %d", name, len(addressTypes), depth)
	}
	if len(sectionNames) != depth {
		return errors.Schemaf("%s: %d section names for depth %d", name, len(sectionNames), depth)
	}
	return nil
}

// MultiSection reports whether the top level has more than one named
// non-default child. The resolver disables tail fallback for such books so
// that siman-level citations from different sections never collapse onto
// the same line.
func (s *BookSchema) MultiSection() bool {
	named := 0
	for i := range s.Nodes {
		if !s.Nodes[i].IsDefault() {
			named++
		}
	}
	return named > 1
}

// addressAt returns the address type of a level, defaulting to integer
// addressing when the schema is shorter than the nesting.
func addressAt(addressTypes []string, level int) string {
	if level >= 0 && level < len(addressTypes) {
		return addressTypes[level]
	}
	return "Integer"
}

// referenceableAt reports whether leaves under the given level carry the
// inline Gematria prefix.
func referenceableAt(refs []bool, level int) bool {
	return level >= 0 && level < len(refs) && refs[level]
}

// sectionNameAt returns the display name of a section level, preferring
// the Hebrew list.
func sectionNameAt(he, en []string, level int) string {
	if level >= 0 && level < len(he) && he[level] != "" {
		return he[level]
	}
	if level >= 0 && level < len(en) {
		return en[level]
	}
	return ""
}
