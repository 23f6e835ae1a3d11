package ingest

import (
	"fmt"
	"strings"

	"github.com/seforimapp/seforim-server/internal/errors"
	"github.com/seforimapp/seforim-server/internal/hebrew"
)

// Talmud addressing formats refs as daf tokens instead of integers.
const addressTalmud = "Talmud"

// maxHeadingLevel caps heading tags at <h5>.
const maxHeadingLevel = 5

// LineDraft is one line of a book before ids are assigned. TocIndex points
// at the covering TocDraft, or -1.
type LineDraft struct {
	Content  string
	Ref      string
	HeRef    string
	TocIndex int
}

// TocDraft is one TOC entry before ids are assigned. LineIndex is the
// 0-based index of the heading line it anchors to; Parent is filled by the
// second construction pass (-1 for roots).
type TocDraft struct {
	Text        string
	Level       int
	LineIndex   int
	Parent      int
	IsLastChild bool
	HasChildren bool
}

// FlattenResult is the in-memory product of flattening one book.
type FlattenResult struct {
	Lines  []LineDraft
	Tocs   []TocDraft
	RefMap *RefMap
}

type flattener struct {
	schema *BookSchema
	lines  []LineDraft
	tocs   []TocDraft
	refMap *RefMap

	// pendingPathKey marks that the next emitted leaf anchors its named
	// node's bare path in the lookup map.
	pendingPathKey bool
}

// Flatten walks the nested text tree of one book and produces its ordered
// line sequence, TOC drafts, and citation lookup map.
func Flatten(schema *BookSchema, text any) (*FlattenResult, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	f := &flattener{
		schema: schema,
		refMap: NewRefMap(schema.Title, schema.MultiSection()),
	}

	titlePath := []string{schema.Title}
	hePath := []string{heOr(schema.HeTitle, schema.Title)}

	if len(schema.Nodes) > 0 {
		m, ok := text.(map[string]any)
		if !ok {
			return nil, errors.Schemaf("%s: node schema but text is %T", schema.Title, text)
		}
		if err := f.walkNodes(schema.Nodes, m, titlePath, hePath, 1); err != nil {
			return nil, err
		}
	} else {
		spec := jaggedSpec{
			depth:         schema.Depth,
			sectionNames:  schema.SectionNames,
			heNames:       schema.HeSectionNames,
			addressTypes:  schema.AddressTypes,
			referenceable: schema.ReferenceableSections,
		}
		if err := f.walkJagged(text, spec, titlePath, hePath, 1, nil); err != nil {
			return nil, err
		}
	}

	if len(f.lines) == 0 {
		return nil, errors.Schemaf("%s: no lines produced", schema.Title)
	}

	attachTocParents(f.tocs)
	return &FlattenResult{Lines: f.lines, Tocs: f.tocs, RefMap: f.refMap}, nil
}

// jaggedSpec carries the per-level metadata of one jagged-array region.
type jaggedSpec struct {
	depth         int
	sectionNames  []string
	heNames       []string
	addressTypes  []string
	referenceable []bool
}

func nodeSpec(n *SchemaNode) jaggedSpec {
	return jaggedSpec{
		depth:         n.Depth,
		sectionNames:  n.SectionNames,
		heNames:       n.HeSectionNames,
		addressTypes:  n.AddressTypes,
		referenceable: n.ReferenceableSections,
	}
}

// walkNodes handles named schema nodes. A named node contributes a heading
// and one reference level; a default node passes its children through.
func (f *flattener) walkNodes(nodes []SchemaNode, text map[string]any, titlePath, hePath []string, level int) error {
	for i := range nodes {
		node := &nodes[i]
		value, ok := text[node.Key]
		if !ok || value == nil {
			continue
		}

		childTitles := titlePath
		childHe := hePath
		childLevel := level
		if !node.IsDefault() {
			f.emitHeading(heOr(node.HeTitle, node.Title), level)
			childTitles = appendPath(titlePath, node.Title)
			childHe = appendPath(hePath, heOr(node.HeTitle, node.Title))
			childLevel = level + 1
		}

		if len(node.Nodes) > 0 {
			m, ok := value.(map[string]any)
			if !ok {
				return errors.Schemaf("node %q: children expected an object, got %T", node.Key, value)
			}
			if err := f.walkNodes(node.Nodes, m, childTitles, childHe, childLevel); err != nil {
				return err
			}
			continue
		}

		// A named node's region also resolves by bare path ("Tur, Orach
		// Chayim, Introduction"), anchored at its first line.
		f.pendingPathKey = !node.IsDefault()
		if err := f.walkJagged(value, nodeSpec(node), childTitles, childHe, childLevel, nil); err != nil {
			return err
		}
		f.pendingPathKey = false
	}
	return nil
}

// walkJagged descends a nested array region, decrementing the remaining
// depth per level. Non-leaf elements emit section headings; leaves emit
// content lines.
func (f *flattener) walkJagged(value any, spec jaggedSpec, titlePath, hePath []string, level int, refs []int) error {
	items, ok := value.([]any)
	if !ok {
		return errors.Schemaf("%s: expected an array at depth %d, got %T",
			strings.Join(titlePath, ", "), len(refs), value)
	}

	remaining := spec.depth - len(refs)
	if remaining == 1 {
		f.emitLeaves(items, spec, titlePath, hePath, refs)
		return nil
	}

	sectionLevel := len(refs)
	for idx, item := range items {
		if item == nil || isEmptyValue(item) {
			continue
		}
		childRefs := append(append([]int(nil), refs...), idx+1)
		f.emitSectionHeading(spec, sectionLevel, idx+1, level)
		if err := f.walkJagged(item, spec, titlePath, hePath, level+1, childRefs); err != nil {
			return err
		}
	}
	return nil
}

// emitLeaves appends one content line per non-empty leaf string.
func (f *flattener) emitLeaves(items []any, spec jaggedSpec, titlePath, hePath []string, refs []int) {
	leafLevel := len(refs)
	for idx, item := range items {
		str, ok := item.(string)
		if !ok || strings.TrimSpace(str) == "" {
			continue
		}

		fullRefs := append(append([]int(nil), refs...), idx+1)
		content := str
		if referenceableAt(spec.referenceable, leafLevel) {
			content = "(" + hebrew.Gematria(idx+1) + ") " + content
		}

		ref := formatRef(titlePath, fullRefs, spec.addressTypes)
		heRef := formatHeRef(hePath, fullRefs, spec.addressTypes)

		f.lines = append(f.lines, LineDraft{
			Content:  content,
			Ref:      ref,
			HeRef:    heRef,
			TocIndex: len(f.tocs) - 1,
		})
		entry := RefEntry{
			Ref:       ref,
			HeRef:     heRef,
			Path:      strings.Join(titlePath, ", "),
			LineIndex: len(f.lines), // 1-based
		}
		f.refMap.Add(entry)

		if f.pendingPathKey {
			pathEntry := entry
			pathEntry.Ref = entry.Path
			f.refMap.Add(pathEntry)
			f.pendingPathKey = false
		}
	}
}

// emitHeading appends a heading line for a named node and its TOC draft.
func (f *flattener) emitHeading(text string, level int) {
	h := clampHeading(level)
	f.lines = append(f.lines, LineDraft{
		Content:  fmt.Sprintf("<h%d>%s</h%d>", h, text, h),
		TocIndex: len(f.tocs), // the heading belongs to its own entry
	})
	f.tocs = append(f.tocs, TocDraft{
		Text:      text,
		Level:     level,
		LineIndex: len(f.lines) - 1,
		Parent:    -1,
	})
}

// emitSectionHeading appends a numbered section heading (e.g. chapter or
// daf) and its TOC draft.
func (f *flattener) emitSectionHeading(spec jaggedSpec, sectionLevel, number, level int) {
	name := sectionNameAt(spec.heNames, spec.sectionNames, sectionLevel)
	var label string
	if addressAt(spec.addressTypes, sectionLevel) == addressTalmud {
		label = hebrew.FormatDafHebrew(number)
	} else {
		label = hebrew.Gematria(number)
	}
	text := strings.TrimSpace(name + " " + label)

	h := clampHeading(level)
	f.lines = append(f.lines, LineDraft{
		Content:  fmt.Sprintf("<h%d>%s</h%d>", h, text, h),
		TocIndex: len(f.tocs),
	})
	f.tocs = append(f.tocs, TocDraft{
		Text:      text,
		Level:     level,
		LineIndex: len(f.lines) - 1,
		Parent:    -1,
	})
}

// attachTocParents is the first derived pass over TOC drafts: a stack of
// (level, index) pairs attaches each entry to the nearest shallower
// predecessor, then hasChildren and isLastChild fall out per parent group.
func attachTocParents(tocs []TocDraft) {
	type frame struct {
		level int
		idx   int
	}
	var stack []frame

	for i := range tocs {
		for len(stack) > 0 && stack[len(stack)-1].level >= tocs[i].Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			tocs[i].Parent = stack[len(stack)-1].idx
			tocs[stack[len(stack)-1].idx].HasChildren = true
		}
		stack = append(stack, frame{level: tocs[i].Level, idx: i})
	}

	// The maximum-order sibling of each parent group is the last child.
	lastPerParent := make(map[int]int)
	for i := range tocs {
		lastPerParent[tocs[i].Parent] = i
	}
	for _, idx := range lastPerParent {
		tocs[idx].IsLastChild = true
	}
}

// formatRef renders "<title path> <refs joined by ':'>" with Talmud levels
// as daf tokens.
func formatRef(titlePath []string, refs []int, addressTypes []string) string {
	var b strings.Builder
	b.WriteString(strings.Join(titlePath, ", "))
	for i, r := range refs {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteByte(':')
		}
		if addressAt(addressTypes, i) == addressTalmud {
			b.WriteString(hebrew.FormatDaf(r))
		} else {
			fmt.Fprintf(&b, "%d", r)
		}
	}
	return b.String()
}

// formatHeRef renders the Hebrew reference with Gematria numbering.
func formatHeRef(hePath []string, refs []int, addressTypes []string) string {
	var b strings.Builder
	b.WriteString(strings.Join(hePath, ", "))
	for i, r := range refs {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteByte(':')
		}
		if addressAt(addressTypes, i) == addressTalmud {
			b.WriteString(hebrew.FormatDafHebrew(r))
		} else {
			b.WriteString(hebrew.Gematria(r))
		}
	}
	return b.String()
}

func clampHeading(level int) int {
	if level < 1 {
		return 1
	}
	if level > maxHeadingLevel {
		return maxHeadingLevel
	}
	return level
}

func appendPath(path []string, elem string) []string {
	return append(append([]string(nil), path...), elem)
}

func heOr(he, fallback string) string {
	if he != "" {
		return he
	}
	return fallback
}

// isEmptyValue reports whether a text subtree contains no content at all.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		for _, item := range t {
			if !isEmptyValue(item) {
				return false
			}
		}
		return true
	case map[string]any:
		for _, item := range t {
			if !isEmptyValue(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
