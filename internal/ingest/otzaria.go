package ingest

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/seforimapp/seforim-server/internal/citation"
	"github.com/seforimapp/seforim-server/internal/domain"
	"github.com/seforimapp/seforim-server/internal/errors"
)

// SourceOtzaria is the provenance label of the Otzaria export.
const SourceOtzaria = "Otzaria"

// OtzariaReader prepares ingestion tasks from an Otzaria export: flat
// per-book JSON files, CSV link dumps, and the acronymizer.db alias store.
// Otzaria books append to the corpus under their own categories and never
// renumber the ids of books ingested earlier.
type OtzariaReader struct {
	root   string
	logger *slog.Logger

	// aliases maps a canonical book title to its acronym terms.
	aliases map[string][]string
}

// NewOtzariaReader creates a reader over an export root.
func NewOtzariaReader(root string, logger *slog.Logger) *OtzariaReader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &OtzariaReader{root: root, logger: logger}
}

// otzariaBook is one flat book file: plain text lines under a Hebrew
// category chain.
type otzariaBook struct {
	Title      string   `json:"title"`
	HeTitle    string   `json:"heTitle"`
	Categories []string `json:"categories"`
	Authors    []string `json:"authors,omitempty"`
	Lines      []string `json:"lines"`
}

// Tasks lists the book preparation tasks and the link CSV paths of the
// export.
func (r *OtzariaReader) Tasks() ([]PrepareFunc, []string, error) {
	if err := r.loadAliases(); err != nil {
		return nil, nil, err
	}

	bookFiles, err := filepath.Glob(filepath.Join(r.root, "books", "*.json"))
	if err != nil {
		return nil, nil, fmt.Errorf("glob otzaria books: %w", err)
	}

	var tasks []PrepareFunc
	for _, path := range bookFiles {
		tasks = append(tasks, func(ctx context.Context) (*BookPayload, error) {
			return r.prepareBook(ctx, path)
		})
	}

	csvs, err := filepath.Glob(filepath.Join(r.root, "links", "*.csv"))
	if err != nil {
		return nil, nil, fmt.Errorf("glob otzaria link files: %w", err)
	}
	return tasks, csvs, nil
}

// prepareBook flattens one flat-line Otzaria book through a synthesized
// depth-1 schema, so downstream treatment is identical to Sefaria books.
func (r *OtzariaReader) prepareBook(ctx context.Context, path string) (*BookPayload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "read otzaria book %s", path)
	}
	var book otzariaBook
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, errors.Wrapf(err, errors.CodeSchema, "otzaria book %s malformed", path)
	}
	if book.Title == "" || len(book.Lines) == 0 {
		return nil, errors.Schemaf("otzaria book %s: missing title or lines", path)
	}

	schema := &BookSchema{
		Title:          book.Title,
		HeTitle:        heOr(book.HeTitle, book.Title),
		Authors:        book.Authors,
		Depth:          1,
		SectionNames:   []string{"Paragraph"},
		HeSectionNames: []string{"פסקה"},
		AddressTypes:   []string{"Integer"},
	}

	text := make([]any, len(book.Lines))
	for i, l := range book.Lines {
		text[i] = l
	}
	flat, err := Flatten(schema, text)
	if err != nil {
		return nil, err
	}

	var categoryPath []CategoryDraft
	for _, c := range book.Categories {
		categoryPath = append(categoryPath, CategoryDraft{Title: c})
	}
	if len(categoryPath) == 0 {
		categoryPath = []CategoryDraft{{Title: "אוצריא"}}
	}

	return &BookPayload{
		SourceName:   SourceOtzaria,
		CategoryPath: categoryPath,
		HeTitle:      schema.HeTitle,
		Book: domain.Book{
			Title:   book.Title,
			Authors: book.Authors,
		},
		Flatten: flat,
		Aliases: r.aliases[citation.Canonical(book.Title)],
	}, nil
}

// loadAliases reads acronymizer.db, the SQLite alias store shipped with
// the export. A missing store simply yields no aliases.
func (r *OtzariaReader) loadAliases() error {
	r.aliases = make(map[string][]string)
	path := filepath.Join(r.root, "acronymizer.db")
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("open acronymizer store: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT term, target FROM aliases`)
	if err != nil {
		// An alias store with an unexpected layout degrades to no
		// aliases rather than failing the run.
		r.logger.Warn("unreadable acronymizer store", "path", path, "error", err)
		return nil
	}
	defer rows.Close()

	for rows.Next() {
		var term, target string
		if err := rows.Scan(&term, &target); err != nil {
			return err
		}
		key := citation.Canonical(target)
		if key == "" || term == "" {
			continue
		}
		r.aliases[key] = append(r.aliases[key], term)
	}
	return rows.Err()
}
