package ingest

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeJSON marshals v into path, creating parent directories.
func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// setupSefariaExport lays out a minimal export with one category and one
// book.
func setupSefariaExport(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeJSON(t, filepath.Join(root, "table_of_contents.json"), []map[string]any{
		{
			"category":   "Tanakh",
			"heCategory": "תנך",
			"order":      1,
			"contents": []map[string]any{
				{
					"title":       "Genesis",
					"heTitle":     "בראשית",
					"order":       1.5,
					"heShortDesc": "ספר הראשון",
				},
			},
		},
	})

	writeJSON(t, filepath.Join(root, "schemas", "Genesis.json"), map[string]any{
		"title":        "Genesis",
		"heTitle":      "בראשית",
		"authors":      []string{"Moshe"},
		"depth":        2,
		"sectionNames": []string{"Chapter", "Verse"},
		"heSectionNames": []string{
			"פרק", "פסוק",
		},
		"addressTypes": []string{"Integer", "Integer"},
	})

	writeJSON(t, filepath.Join(root, "json", "Tanakh", "Genesis", "he", "merged.json"), map[string]any{
		"title": "Genesis",
		"text": []any{
			[]any{"בראשית ברא אלהים", "והארץ היתה תהו"},
		},
	})

	require.NoError(t, os.MkdirAll(filepath.Join(root, "links"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "links", "links0.csv"),
		[]byte("citation1,citation2,connection_type\n"),
		0o644))

	return root
}

func TestSefariaReader_Tasks(t *testing.T) {
	root := setupSefariaExport(t)
	reader := NewSefariaReader(root, nil, nil)

	tasks, csvs, err := reader.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Len(t, csvs, 1)

	payload, err := tasks[0](context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceSefaria, payload.SourceName)
	assert.Equal(t, "Genesis", payload.Book.Title)
	assert.Equal(t, []string{"Moshe"}, payload.Book.Authors)
	assert.Equal(t, "ספר הראשון", payload.Book.HeShortDesc)
	assert.InDelta(t, 1.5, payload.Book.Order, 1e-9)
	require.Len(t, payload.CategoryPath, 1)
	assert.Equal(t, "תנך", payload.CategoryPath[0].Title)
	assert.Equal(t, 1, payload.CategoryPath[0].Order)

	// One chapter heading plus two verses.
	require.Len(t, payload.Flatten.Lines, 3)
	assert.Equal(t, "Genesis 1:1", payload.Flatten.Lines[1].Ref)
}

func TestSefariaReader_MissingSchemaSkips(t *testing.T) {
	root := setupSefariaExport(t)
	require.NoError(t, os.Remove(filepath.Join(root, "schemas", "Genesis.json")))

	reader := NewSefariaReader(root, nil, nil)
	tasks, _, err := reader.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	_, err = tasks[0](context.Background())
	require.Error(t, err)

	// The pipeline classifies this as a schema problem and skips the
	// book instead of aborting the run.
	s := setupStore(t)
	_, summary, err := NewPipeline(s, nil, 1).Run(context.Background(), tasks)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BooksSkipped)
	assert.Zero(t, summary.BooksProcessed)
}

func TestSefariaReader_PrioritiesMarkBaseBooks(t *testing.T) {
	root := setupSefariaExport(t)
	priorities := &Priorities{ranks: map[string]int{"genesis": 1}}
	reader := NewSefariaReader(root, priorities, nil)

	tasks, _, err := reader.Tasks()
	require.NoError(t, err)
	payload, err := tasks[0](context.Background())
	require.NoError(t, err)
	assert.True(t, payload.Book.IsBaseBook)
}

func setupOtzariaExport(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeJSON(t, filepath.Join(root, "books", "orchot.json"), map[string]any{
		"title":      "Orchot Tzadikim",
		"heTitle":    "אורחות צדיקים",
		"categories": []string{"מוסר"},
		"lines":      []string{"שער הראשון", "שער השני"},
	})

	// Alias store with the expected layout.
	dbPath := filepath.Join(root, "acronymizer.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE aliases (term TEXT, target TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO aliases (term, target) VALUES ('אוצ', 'Orchot Tzadikim')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	return root
}

func TestOtzariaReader_Tasks(t *testing.T) {
	root := setupOtzariaExport(t)
	reader := NewOtzariaReader(root, nil)

	tasks, csvs, err := reader.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Empty(t, csvs)

	payload, err := tasks[0](context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceOtzaria, payload.SourceName)
	assert.Equal(t, "Orchot Tzadikim", payload.Book.Title)
	assert.Equal(t, []string{"אוצ"}, payload.Aliases)
	require.Len(t, payload.CategoryPath, 1)
	assert.Equal(t, "מוסר", payload.CategoryPath[0].Title)

	// Flat books flatten as depth-1: one line per paragraph, no
	// headings.
	require.Len(t, payload.Flatten.Lines, 2)
	assert.Equal(t, "Orchot Tzadikim 1", payload.Flatten.Lines[0].Ref)
	assert.Equal(t, "Orchot Tzadikim 2", payload.Flatten.Lines[1].Ref)
}

func TestOtzariaReader_AppendsToExistingCorpus(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	// First a Sefaria run.
	corpus, _, err := NewPipeline(s, nil, 1).Run(ctx, []PrepareFunc{payloadTask(genesisPayload(t, true))})
	require.NoError(t, err)
	genesisID := corpus.ByTitle("genesis").BookID

	// Then an Otzaria append into the same store and corpus.
	root := setupOtzariaExport(t)
	tasks, _, err := NewOtzariaReader(root, nil).Tasks()
	require.NoError(t, err)
	appendCorpus, _, err := NewPipeline(s, nil, 1).Run(ctx, tasks)
	require.NoError(t, err)
	require.Equal(t, 1, appendCorpus.Len())

	// The pre-existing book keeps its id.
	book, err := s.GetBookByTitle(ctx, "Genesis")
	require.NoError(t, err)
	assert.Equal(t, genesisID, book.ID)
}
