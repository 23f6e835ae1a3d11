package service

import (
	"context"
	"encoding/json/v2"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seforimapp/seforim-server/internal/catalog"
	"github.com/seforimapp/seforim-server/internal/config"
	"github.com/seforimapp/seforim-server/internal/domain"
	"github.com/seforimapp/seforim-server/internal/search"
	"github.com/seforimapp/seforim-server/internal/store/sqlite"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// setupExport builds a small two-book Sefaria export with one commentary
// link.
func setupExport(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeJSON(t, filepath.Join(root, "table_of_contents.json"), []map[string]any{
		{
			"category":   "Tanakh",
			"heCategory": "תנך",
			"order":      1,
			"contents": []map[string]any{
				{"title": "Genesis", "heTitle": "בראשית", "order": 1},
			},
		},
		{
			"category":   "Commentary",
			"heCategory": "מפרשים",
			"order":      2,
			"contents": []map[string]any{
				{"title": "Rashi on Genesis", "heTitle": "רשי על בראשית", "order": 1},
			},
		},
	})

	writeJSON(t, filepath.Join(root, "schemas", "Genesis.json"), map[string]any{
		"title":          "Genesis",
		"heTitle":        "בראשית",
		"depth":          2,
		"sectionNames":   []string{"Chapter", "Verse"},
		"heSectionNames": []string{"פרק", "פסוק"},
		"addressTypes":   []string{"Integer", "Integer"},
	})
	writeJSON(t, filepath.Join(root, "json", "Tanakh", "Genesis", "he", "merged.json"), map[string]any{
		"title": "Genesis",
		"text": []any{
			[]any{"בראשית ברא אלהים את השמים", "והארץ היתה תהו ובהו"},
		},
	})

	writeJSON(t, filepath.Join(root, "schemas", "Rashi_on_Genesis.json"), map[string]any{
		"title":        "Rashi on Genesis",
		"heTitle":      "רשי על בראשית",
		"depth":        3,
		"sectionNames": []string{"Chapter", "Verse", "Comment"},
		"heSectionNames": []string{
			"פרק", "פסוק", "דיבור",
		},
		"addressTypes": []string{"Integer", "Integer", "Integer"},
	})
	writeJSON(t, filepath.Join(root, "json", "Commentary", "Rashi_on_Genesis", "he", "merged.json"), map[string]any{
		"title": "Rashi on Genesis",
		"text": []any{
			[]any{
				[]any{"אמר רבי יצחק לא היה צריך"},
			},
		},
	})

	require.NoError(t, os.MkdirAll(filepath.Join(root, "links"), 0o755))
	csv := "citation1,citation2,connection_type\n" +
		"\"Rashi on Genesis 1:1:1\",\"Genesis 1:1\",\"commentary\"\n" +
		"\"Nowhere 3:3\",\"Genesis 1:1\",\"commentary\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "links", "links0.csv"), []byte(csv), 0o644))

	prior := "base_books:\n  - title: Genesis\n    priority: 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "priorities.yaml"), []byte(prior), 0o644))

	return root
}

func setupBuild(t *testing.T) (*config.Config, *sqlite.Store, *search.SearchIndex) {
	t.Helper()

	root := setupExport(t)
	dataDir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.DatabasePath = filepath.Join(dataDir, "seforim.db")
	cfg.Storage.TextIndexPath = filepath.Join(dataDir, "index")
	cfg.Storage.BatchSize = 500
	cfg.Storage.WriteReleaseInfo = true
	cfg.Sources.SefariaDir = root
	cfg.Sources.PrioritiesPath = filepath.Join(root, "priorities.yaml")
	cfg.Search.Near = 5

	store, err := sqlite.Open(cfg.Storage.DatabasePath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	index, err := search.NewSearchIndex(search.Options{DataPath: cfg.Storage.TextIndexPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return cfg, store, index
}

func TestBuildService_EndToEnd(t *testing.T) {
	cfg, store, index := setupBuild(t)
	ctx := context.Background()

	svc := NewBuildService(cfg, store, index, nil)
	summary, err := svc.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.BooksProcessed)
	assert.Zero(t, summary.BooksSkipped)
	assert.Equal(t, 1, summary.LinksResolved)
	assert.Equal(t, 1, summary.LinksUnresolved)

	// The catalog artifact loads and matches the store.
	cat := catalog.Load(filepath.Dir(cfg.Storage.DatabasePath), nil)
	require.NotNil(t, cat)
	assert.Equal(t, 2, cat.TotalBooks)
	books := cat.ExtractAllBooks()
	require.Len(t, books, 2)

	genesis, err := store.GetBookByTitle(ctx, "Genesis")
	require.NoError(t, err)
	require.NotNil(t, genesis)
	assert.True(t, genesis.IsBaseBook, "priorities manifest marks base books")
	assert.True(t, genesis.HasCommentaryConnection)
	catBook := cat.FindBookByID(genesis.ID)
	require.NotNil(t, catBook)
	assert.True(t, catBook.HasCommentaryConnection)

	// release_info.txt is a single timestamp line.
	info, err := os.ReadFile(filepath.Join(filepath.Dir(cfg.Storage.DatabasePath), releaseInfoFile))
	require.NoError(t, err)
	assert.Len(t, string(info), 15, "yyyyMMddHHmmss plus newline")

	// The index answers queries against the built corpus, with snippet
	// sources pulled from the store.
	engine := search.NewEngine(search.EngineOptions{
		Index:    index,
		Snippets: NewStoreSnippetProvider(store),
	})
	session, err := engine.OpenSession("בראשית", cfg.Search.Near, search.Filters{})
	require.NoError(t, err)
	require.NotNil(t, session)
	page, err := session.NextPage(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, page.Hits)
	assert.Contains(t, page.Hits[0].Snippet, "<b>")
	session.Close()

	// Title prefix suggestion over the same index.
	ids, err := engine.SearchBooksByTitlePrefix(ctx, "Gen", 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{genesis.ID}, ids)
}

func TestBuildService_NoSources(t *testing.T) {
	cfg, store, index := setupBuild(t)
	cfg.Sources.SefariaDir = ""

	svc := NewBuildService(cfg, store, index, nil)
	_, err := svc.Run(context.Background())
	assert.Error(t, err)
}

func TestStoreSnippetProvider_WidensShortLines(t *testing.T) {
	_, store, _ := setupBuild(t)
	ctx := context.Background()

	// Build minimal content directly.
	var bookID int64
	err := store.RunInTransaction(ctx, func(tx *sqlite.Tx) error {
		srcID, err := tx.InsertSource(ctx, "Sefaria")
		if err != nil {
			return err
		}
		catID, err := tx.InsertCategory(ctx, &testCategory)
		if err != nil {
			return err
		}
		bookID, err = tx.InsertBook(ctx, testBook(catID, srcID))
		if err != nil {
			return err
		}
		for i := 0; i < 9; i++ {
			if _, err := tx.InsertLine(ctx, testLine(bookID, i)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	lines, err := store.GetLinesForBook(ctx, bookID)
	require.NoError(t, err)
	center := lines[4]

	p := NewStoreSnippetProvider(store)
	source, err := p.SnippetSource(ctx, center.ID)
	require.NoError(t, err)

	// Short lines are widened with neighbors up to the minimum length
	// or the window edge.
	assert.Greater(t, len(source), len(center.Content))
	assert.Contains(t, source, center.Content)
}

// Fixtures for direct store seeding.

var testCategory = domain.Category{Title: "בדיקות", Level: 0}

func testBook(categoryID, sourceID int64) *domain.Book {
	return &domain.Book{CategoryID: categoryID, SourceID: sourceID, Title: "ספר קצר"}
}

func testLine(bookID int64, index int) *domain.Line {
	return &domain.Line{
		BookID:    bookID,
		LineIndex: index,
		Content:   "שורה קצרה מספר " + strconv.Itoa(index),
		Ref:       "ספר קצר " + strconv.Itoa(index+1),
	}
}
