package ingest

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/seforimapp/seforim-server/internal/domain"
	"github.com/seforimapp/seforim-server/internal/errors"
)

// SourceSefaria is the provenance label of the Sefaria export.
const SourceSefaria = "Sefaria"

// SefariaReader prepares ingestion tasks from an extracted Sefaria export:
// table_of_contents.json for category/book ordering, schemas/*.json for
// structure, and per-book merged.json text trees.
type SefariaReader struct {
	root       string
	priorities *Priorities
	logger     *slog.Logger

	// mergedIndex maps an underscored book directory name to its
	// merged.json path, built once instead of walking per book.
	mergedIndex map[string]string
}

// NewSefariaReader creates a reader over an export root.
func NewSefariaReader(root string, priorities *Priorities, logger *slog.Logger) *SefariaReader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if priorities == nil {
		priorities = &Priorities{ranks: map[string]int{}}
	}
	return &SefariaReader{root: root, priorities: priorities, logger: logger}
}

// tocNode is one node of table_of_contents.json: a category (with
// contents) or a book leaf. The order key is fractional on books and
// integral on categories.
type tocNode struct {
	Category   string    `json:"category"`
	HeCategory string    `json:"heCategory"`
	Contents   []tocNode `json:"contents"`

	Title       string  `json:"title"`
	HeTitle     string  `json:"heTitle"`
	Order       float64 `json:"order"`
	EnShortDesc string  `json:"enShortDesc"`
	HeShortDesc string  `json:"heShortDesc"`
}

func (n *tocNode) isBook() bool {
	return n.Title != ""
}

// mergedFile is the per-book text file: the nested text tree plus any
// alternative structures.
type mergedFile struct {
	Title string                      `json:"title"`
	Text  any                         `json:"text"`
	Alts  map[string]altStructureJSON `json:"alts,omitempty"`
}

type altStructureJSON struct {
	Nodes []altNodeJSON `json:"nodes"`
}

type altNodeJSON struct {
	Title    string   `json:"title"`
	HeTitle  string   `json:"heTitle"`
	WholeRef string   `json:"wholeRef"`
	Refs     []string `json:"refs"`
}

// Tasks walks the table of contents and returns one preparation task per
// book plus the link CSV paths of the export.
func (r *SefariaReader) Tasks() ([]PrepareFunc, []string, error) {
	data, err := os.ReadFile(filepath.Join(r.root, "table_of_contents.json"))
	if err != nil {
		return nil, nil, fmt.Errorf("read table of contents: %w", err)
	}
	var roots []tocNode
	if err := json.Unmarshal(data, &roots); err != nil {
		return nil, nil, fmt.Errorf("parse table of contents: %w", err)
	}

	if err := r.buildMergedIndex(); err != nil {
		return nil, nil, err
	}

	var tasks []PrepareFunc
	for i := range roots {
		r.walkToc(&roots[i], nil, &tasks)
	}

	csvs, err := filepath.Glob(filepath.Join(r.root, "links", "*.csv"))
	if err != nil {
		return nil, nil, fmt.Errorf("glob link files: %w", err)
	}
	return tasks, csvs, nil
}

func (r *SefariaReader) walkToc(node *tocNode, path []CategoryDraft, tasks *[]PrepareFunc) {
	if node.isBook() {
		book := *node
		categoryPath := append([]CategoryDraft(nil), path...)
		*tasks = append(*tasks, func(ctx context.Context) (*BookPayload, error) {
			return r.prepareBook(ctx, &book, categoryPath)
		})
		return
	}

	draft := CategoryDraft{
		Title: heOr(node.HeCategory, node.Category),
		Order: int(node.Order),
	}
	childPath := append(append([]CategoryDraft(nil), path...), draft)
	for i := range node.Contents {
		r.walkToc(&node.Contents[i], childPath, tasks)
	}
}

// prepareBook loads the schema and merged text of one book and flattens it
// into a payload. Schema problems are typed so the pipeline can skip and
// count the book.
func (r *SefariaReader) prepareBook(ctx context.Context, node *tocNode, path []CategoryDraft) (*BookPayload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	schema, err := r.loadSchema(node.Title)
	if err != nil {
		return nil, err
	}

	merged, err := r.loadMerged(node.Title)
	if err != nil {
		return nil, err
	}

	flat, err := Flatten(schema, merged.Text)
	if err != nil {
		return nil, err
	}

	payload := &BookPayload{
		SourceName:   SourceSefaria,
		CategoryPath: path,
		HeTitle:      heOr(schema.HeTitle, node.HeTitle),
		Book: domain.Book{
			Title:       schema.Title,
			Authors:     schema.Authors,
			PubPlaces:   schema.PubPlaces,
			PubDates:    schema.PubDates,
			HeShortDesc: node.HeShortDesc,
			Order:       node.Order,
			IsBaseBook:  r.priorities.IsBase(schema.Title),
		},
		Flatten: flat,
	}
	for key, alt := range merged.Alts {
		draft := AltStructureDraft{Key: key}
		for _, n := range alt.Nodes {
			draft.Nodes = append(draft.Nodes, AltNodeDraft{
				Title:    n.Title,
				HeTitle:  n.HeTitle,
				WholeRef: n.WholeRef,
				Refs:     n.Refs,
			})
		}
		payload.AltStructures = append(payload.AltStructures, draft)
	}
	return payload, nil
}

func (r *SefariaReader) loadSchema(title string) (*BookSchema, error) {
	path := filepath.Join(r.root, "schemas", underscored(title)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeSchema, "schema for %q missing", title)
	}
	var schema BookSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, errors.Wrapf(err, errors.CodeSchema, "schema for %q malformed", title)
	}
	if schema.Title == "" {
		schema.Title = title
	}
	return &schema, nil
}

func (r *SefariaReader) loadMerged(title string) (*mergedFile, error) {
	path, ok := r.mergedIndex[underscored(title)]
	if !ok {
		return nil, errors.Schemaf("merged text for %q not found", title)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "read merged text for %q", title)
	}
	var merged mergedFile
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, errors.Wrapf(err, errors.CodeSchema, "merged text for %q malformed", title)
	}
	return &merged, nil
}

// buildMergedIndex walks the json/ tree once, mapping book directory names
// to their merged.json files. Hebrew variants win over other languages.
func (r *SefariaReader) buildMergedIndex() error {
	r.mergedIndex = make(map[string]string)
	jsonRoot := filepath.Join(r.root, "json")
	if _, err := os.Stat(jsonRoot); err != nil {
		return nil
	}

	return filepath.WalkDir(jsonRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != "merged.json" {
			return err
		}
		dir := filepath.Dir(path)
		lang := filepath.Base(dir)
		bookDir := filepath.Base(filepath.Dir(dir))
		if lang != "he" && lang != "hebrew" {
			// merged.json directly under the book directory.
			bookDir = lang
			lang = ""
		}
		key := underscored(bookDir)
		if existing, ok := r.mergedIndex[key]; ok && lang == "" && existing != path {
			return nil
		}
		r.mergedIndex[key] = path
		return nil
	})
}

func underscored(title string) string {
	return strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
}
