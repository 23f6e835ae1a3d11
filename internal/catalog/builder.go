package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/seforimapp/seforim-server/internal/domain"
	"github.com/seforimapp/seforim-server/internal/store/sqlite"
)

// FileName is the catalog artifact written beside the database file.
const FileName = "catalog.pb"

// CurrentVersion is stamped into freshly built catalogs.
const CurrentVersion = 1

// Build walks the category forest depth-first and assembles the catalog
// tree with per-category book lists and total counts.
func Build(ctx context.Context, store *sqlite.Store) (*Catalog, error) {
	cats, err := store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	books, err := store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	nodes := make(map[int64]*Category, len(cats))
	for _, c := range cats {
		nodes[c.ID] = &Category{
			ID:       c.ID,
			Title:    c.Title,
			Level:    c.Level,
			ParentID: c.ParentID,
		}
	}

	booksByCategory := make(map[int64][]*Book)
	for _, b := range books {
		booksByCategory[b.CategoryID] = append(booksByCategory[b.CategoryID], catalogBook(b))
	}

	c := &Catalog{Version: CurrentVersion}
	// cats is ordered by (level, order, title), so parents always precede
	// children and sibling order falls out of the append order.
	for _, src := range cats {
		node := nodes[src.ID]
		node.Books = booksByCategory[src.ID]
		c.TotalCategories++
		c.TotalBooks += len(node.Books)
		if src.ParentID == 0 {
			c.Roots = append(c.Roots, node)
			continue
		}
		parent, ok := nodes[src.ParentID]
		if !ok {
			return nil, fmt.Errorf("category %d references missing parent %d", src.ID, src.ParentID)
		}
		parent.Subcategories = append(parent.Subcategories, node)
	}
	return c, nil
}

func catalogBook(b *domain.Book) *Book {
	return &Book{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Title:      b.Title,
		Authors:    b.Authors,
		Order:      b.Order,
		TotalLines: b.TotalLines,
		IsBaseBook: b.IsBaseBook,

		HasTargumConnection:     b.HasTargumConnection,
		HasReferenceConnection:  b.HasReferenceConnection,
		HasCommentaryConnection: b.HasCommentaryConnection,
		HasOtherConnection:      b.HasOtherConnection,
		HasAltStructures:        b.HasAltStructures,
	}
}

// Write serializes the catalog beside the database file, replacing any
// previous artifact atomically.
func Write(c *Catalog, dir string) error {
	path := filepath.Join(dir, FileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, Encode(c), 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}

// Load reads and decodes the catalog from dir. Returns nil (and no error)
// when the file is missing or corrupt; navigation then falls back to the
// database.
func Load(dir string, logger *slog.Logger) *Catalog {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil
	}
	c, err := Decode(data)
	if err != nil {
		if logger != nil {
			logger.Warn("ignoring corrupt catalog", "error", err)
		}
		return nil
	}
	return c
}
