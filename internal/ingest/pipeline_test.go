package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seforimapp/seforim-server/internal/domain"
	"github.com/seforimapp/seforim-server/internal/errors"
	"github.com/seforimapp/seforim-server/internal/store/sqlite"
)

func setupStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "seforim.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// payloadTask wraps a prebuilt payload as a PrepareFunc.
func payloadTask(p *BookPayload) PrepareFunc {
	return func(context.Context) (*BookPayload, error) { return p, nil }
}

func genesisPayload(t *testing.T, isBase bool) *BookPayload {
	t.Helper()
	flat, err := Flatten(genesisSchema(), genesisText())
	require.NoError(t, err)
	return &BookPayload{
		SourceName: SourceSefaria,
		CategoryPath: []CategoryDraft{
			{Title: "תנך"},
			{Title: "תורה", Order: 1},
		},
		HeTitle: "בראשית",
		Book: domain.Book{
			Title:      "Genesis",
			Order:      1,
			IsBaseBook: isBase,
		},
		Flatten: flat,
	}
}

func turPayload(t *testing.T) *BookPayload {
	t.Helper()
	flat, err := Flatten(turSchema(), turText())
	require.NoError(t, err)
	return &BookPayload{
		SourceName:   SourceSefaria,
		CategoryPath: []CategoryDraft{{Title: "הלכה"}},
		HeTitle:      "טור",
		Book:         domain.Book{Title: "Tur", Order: 2},
		Flatten:      flat,
	}
}

func TestPipeline_WritesBook(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	p := NewPipeline(s, nil, 2)
	corpus, summary, err := p.Run(ctx, []PrepareFunc{payloadTask(genesisPayload(t, true))})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BooksProcessed)
	assert.Zero(t, summary.BooksSkipped)
	require.Equal(t, 1, corpus.Len())

	written := corpus.ByTitle("genesis")
	require.NotNil(t, written)
	require.Positive(t, written.BookID)

	book, err := s.GetBook(ctx, written.BookID)
	require.NoError(t, err)
	require.NotNil(t, book)
	assert.Equal(t, 5, book.TotalLines)
	assert.True(t, book.IsBaseBook)

	// Line invariant: indexes are dense 0..totalLines-1.
	lines, err := s.GetLinesForBook(ctx, written.BookID)
	require.NoError(t, err)
	require.Len(t, lines, book.TotalLines)
	for i, l := range lines {
		assert.Equal(t, i, l.LineIndex)
	}

	// TOC entries anchor to their heading lines and cover content lines.
	tocs, err := s.GetTocEntriesForBook(ctx, written.BookID)
	require.NoError(t, err)
	require.Len(t, tocs, 2)
	for _, e := range tocs {
		assert.Positive(t, e.LineID)
	}
	entry, err := s.GetTocEntryForLine(ctx, written.LineIDs[1])
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, tocs[0].ID, entry.ID)

	// Title terms searchable by prefix.
	ids, err := s.SearchBookTitlePrefix(ctx, "בראשית", 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{written.BookID}, ids)
}

func TestPipeline_SkipsSchemaErrors(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	bad := func(context.Context) (*BookPayload, error) {
		return nil, errors.Schema("broken depth")
	}

	p := NewPipeline(s, nil, 2)
	corpus, summary, err := p.Run(ctx, []PrepareFunc{bad, payloadTask(genesisPayload(t, false))})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BooksProcessed)
	assert.Equal(t, 1, summary.BooksSkipped)
	assert.Equal(t, 1, corpus.Len())
}

func TestPipeline_ParallelPreparationSerialWrites(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	var tasks []PrepareFunc
	titles := []string{"Alef", "Bet", "Gimel", "Dalet", "He", "Vav", "Zayin", "Chet"}
	for _, title := range titles {
		schema := &BookSchema{
			Title:        title,
			Depth:        1,
			SectionNames: []string{"Paragraph"},
			AddressTypes: []string{"Integer"},
		}
		flat, err := Flatten(schema, []any{"שורה אחת", "שורה שניה"})
		require.NoError(t, err)
		tasks = append(tasks, payloadTask(&BookPayload{
			SourceName:   SourceSefaria,
			CategoryPath: []CategoryDraft{{Title: "אוסף"}},
			Book:         domain.Book{Title: title},
			Flatten:      flat,
		}))
	}

	p := NewPipeline(s, nil, 4)
	corpus, summary, err := p.Run(ctx, tasks)
	require.NoError(t, err)
	assert.Equal(t, len(titles), summary.BooksProcessed)
	assert.Equal(t, len(titles), corpus.Len())

	// The shared category was created exactly once.
	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestPipeline_AltStructures(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	payload := genesisPayload(t, true)
	payload.AltStructures = []AltStructureDraft{
		{
			Key: "Parasha",
			Nodes: []AltNodeDraft{
				{
					Title:    "Bereshit",
					HeTitle:  "בראשית",
					WholeRef: "Genesis 1:1-2:1",
					Refs:     []string{"Genesis 1:1", "Genesis 1:2", "Genesis 99:1"},
				},
			},
		},
	}

	p := NewPipeline(s, nil, 1)
	corpus, _, err := p.Run(ctx, []PrepareFunc{payloadTask(payload)})
	require.NoError(t, err)
	written := corpus.ByTitle("genesis")

	book, err := s.GetBook(ctx, written.BookID)
	require.NoError(t, err)
	assert.True(t, book.HasAltStructures)

	structures, err := s.GetAltTocStructures(ctx, written.BookID)
	require.NoError(t, err)
	require.Len(t, structures, 1)
	assert.Equal(t, "Parasha", structures[0].StructureKey)

	entries, err := s.GetAltTocEntries(ctx, structures[0].ID)
	require.NoError(t, err)
	// Parent node + 3 refs; the unresolvable "Genesis 99:1" resolves via
	// the single-section tail fallback rather than being dropped.
	require.Len(t, entries, 4)
	assert.Positive(t, entries[0].LineID, "wholeRef resolved to range start")
	assert.True(t, entries[0].HasChildren)
}

func TestCorpus_Aliases(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	payload := turPayload(t)
	payload.Aliases = []string{"טור או\"ח"}

	p := NewPipeline(s, nil, 1)
	corpus, _, err := p.Run(ctx, []PrepareFunc{payloadTask(payload)})
	require.NoError(t, err)

	direct := corpus.ByTitle("tur")
	require.NotNil(t, direct)
	viaAlias := corpus.ByTitle(`טור או"ח`)
	assert.Same(t, direct, viaAlias)
}
