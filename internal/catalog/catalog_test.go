package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seforimapp/seforim-server/internal/domain"
	"github.com/seforimapp/seforim-server/internal/store/sqlite"
)

func sampleCatalog() *Catalog {
	return &Catalog{
		Version:         CurrentVersion,
		TotalBooks:      3,
		TotalCategories: 3,
		Roots: []*Category{
			{
				ID: 1, Title: "תנך", Level: 0,
				Books: []*Book{
					{
						ID: 10, CategoryID: 1, Title: "בראשית",
						Authors: []string{"משה"}, Order: 1.5, TotalLines: 1533,
						IsBaseBook: true, HasCommentaryConnection: true,
					},
				},
				Subcategories: []*Category{
					{
						ID: 2, Title: "תורה", Level: 1, ParentID: 1,
						Books: []*Book{
							{ID: 11, CategoryID: 2, Title: "שמות", TotalLines: 1209, IsBaseBook: true},
						},
					},
				},
			},
			{
				ID: 3, Title: "הלכה", Level: 0,
				Books: []*Book{
					{
						ID: 12, CategoryID: 3, Title: "טור",
						HasAltStructures: true, HasReferenceConnection: true, Order: 2,
					},
				},
			},
		},
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	original := sampleCatalog()

	decoded, err := Decode(Encode(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestCodec_RoundTripEmpty(t *testing.T) {
	original := &Catalog{Version: CurrentVersion}
	decoded, err := Decode(Encode(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecode_IgnoresUnknownFields(t *testing.T) {
	// A future writer appends field 15 (varint) at the top level; an old
	// reader must skip it without error.
	buf := Encode(sampleCatalog())
	buf = append(buf, 0x78, 0x2A) // tag: field 15 varint, value 42
	decoded, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, sampleCatalog(), decoded)
}

func TestDecode_Corrupt(t *testing.T) {
	_, err := Decode([]byte{0xFF, 0xFF, 0xFF})
	assert.Error(t, err)
}

func TestExtractAllBooks_DedupByID(t *testing.T) {
	c := sampleCatalog()
	// Duplicate a book id into a second category.
	c.Roots[1].Books = append(c.Roots[1].Books, &Book{ID: 10, Title: "duplicate"})

	books := c.ExtractAllBooks()
	require.Len(t, books, 3)
	seen := make(map[int64]bool)
	for _, b := range books {
		assert.False(t, seen[b.ID])
		seen[b.ID] = true
	}
}

func TestFindCategoryByID(t *testing.T) {
	c := sampleCatalog()
	assert.Equal(t, "תורה", c.FindCategoryByID(2).Title)
	assert.Nil(t, c.FindCategoryByID(99))
}

func TestFindBookByID(t *testing.T) {
	c := sampleCatalog()
	assert.Equal(t, "טור", c.FindBookByID(12).Title)
	assert.Nil(t, c.FindBookByID(99))
}

func TestCategoryPath(t *testing.T) {
	c := sampleCatalog()
	path := c.CategoryPath(2)
	require.Len(t, path, 2)
	assert.Equal(t, int64(1), path[0].ID)
	assert.Equal(t, int64(2), path[1].ID)

	assert.Nil(t, c.CategoryPath(99))
}

func TestBooksInCategory(t *testing.T) {
	c := sampleCatalog()
	books := c.BooksInCategory(1)
	require.Len(t, books, 1)
	assert.Equal(t, int64(10), books[0].ID)

	assert.Nil(t, c.BooksInCategory(99))
}

func TestWriteLoad(t *testing.T) {
	dir := t.TempDir()
	original := sampleCatalog()

	require.NoError(t, Write(original, dir))
	loaded := Load(dir, nil)
	require.NotNil(t, loaded)
	assert.Equal(t, original, loaded)
}

func TestLoad_MissingOrCorrupt(t *testing.T) {
	dir := t.TempDir()
	assert.Nil(t, Load(dir, nil))

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte{0xFF, 0xFF}, 0o644))
	assert.Nil(t, Load(dir, nil))
}

func TestBuild_FromStore(t *testing.T) {
	ctx := context.Background()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "seforim.db"), nil)
	require.NoError(t, err)
	defer s.Close()

	var root, child, srcID int64
	var baseID int64
	err = s.RunInTransaction(ctx, func(tx *sqlite.Tx) error {
		if srcID, err = tx.InsertSource(ctx, "Sefaria"); err != nil {
			return err
		}
		if root, err = tx.InsertCategory(ctx, &domain.Category{Title: "Tanakh", Level: 0}); err != nil {
			return err
		}
		if child, err = tx.InsertCategory(ctx, &domain.Category{ParentID: root, Title: "Torah", Level: 1}); err != nil {
			return err
		}
		baseID, err = tx.InsertBook(ctx, &domain.Book{
			CategoryID: child, SourceID: srcID, Title: "Genesis",
			Authors: []string{"Moshe"}, Order: 1, TotalLines: 5, IsBaseBook: true,
		})
		return err
	})
	require.NoError(t, err)

	c, err := Build(ctx, s)
	require.NoError(t, err)

	assert.Equal(t, 2, c.TotalCategories)
	assert.Equal(t, 1, c.TotalBooks)
	require.Len(t, c.Roots, 1)
	require.Len(t, c.Roots[0].Subcategories, 1)

	b := c.FindBookByID(baseID)
	require.NotNil(t, b)
	assert.True(t, b.IsBaseBook)
	assert.Equal(t, []string{"Moshe"}, b.Authors)
	assert.Equal(t, 5, b.TotalLines)

	// The built tree survives a codec round trip.
	decoded, err := Decode(Encode(c))
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
}
