package dictionary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDictionary builds a small store and opens it read-only.
func setupTestDictionary(t *testing.T) *BadgerIndex {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dict")
	entries := []Entry{
		{
			Token: "בראשית",
			Expansion: Expansion{
				Surfaces: []string{"בראשית"},
				Variants: []string{"בראשת"},
				Bases:    []string{"ראשית"},
			},
		},
		{
			// Two entries for the same token: the one whose bases
			// contain the token itself must win.
			Token: "דבר",
			Expansion: Expansion{
				Surfaces: []string{"דבר", "דברים", "דברי"},
				Bases:    []string{"דבר"},
			},
		},
		{
			Token: "דבר",
			Expansion: Expansion{
				Surfaces: []string{"דבר", "מדבר", "דיבור", "דוברים", "מדברות"},
				Bases:    []string{"דיבר"},
			},
		},
		{
			// Token not a base anywhere: the largest set wins.
			Token: "שלום",
			Expansion: Expansion{
				Surfaces: []string{"שלום"},
				Bases:    []string{"שלם"},
			},
		},
		{
			Token: "שלום",
			Expansion: Expansion{
				Surfaces: []string{"שלום", "שלומות", "שלומי"},
				Variants: []string{"שלומ"},
				Bases:    []string{"שלו"},
			},
		},
	}
	require.NoError(t, WriteStore(path, entries, []string{"יהוה", "אלהים", "אדני"}))

	idx, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestExpansionFor_PrefersTokenAsBase(t *testing.T) {
	idx := setupTestDictionary(t)

	exp := idx.ExpansionFor("דבר")
	require.NotNil(t, exp)
	assert.Equal(t, []string{"דבר"}, exp.Bases)
	assert.Contains(t, exp.Surfaces, "דברים")
}

func TestExpansionFor_PrefersLargestSet(t *testing.T) {
	idx := setupTestDictionary(t)

	exp := idx.ExpansionFor("שלום")
	require.NotNil(t, exp)
	assert.Equal(t, []string{"שלו"}, exp.Bases)
	assert.Len(t, exp.Surfaces, 3)
}

func TestExpansionFor_NormalizesInput(t *testing.T) {
	idx := setupTestDictionary(t)

	// Vocalized lookup hits the plain key.
	exp := idx.ExpansionFor("בְּרֵאשִׁית")
	require.NotNil(t, exp)
	assert.Equal(t, "בראשית", exp.Token)
}

func TestExpansionFor_BlankAndUnknown(t *testing.T) {
	idx := setupTestDictionary(t)

	assert.Nil(t, idx.ExpansionFor(""))
	assert.Nil(t, idx.ExpansionFor("   "))
	assert.Nil(t, idx.ExpansionFor("איןכזה"))
}

func TestExpansionFor_Cached(t *testing.T) {
	idx := setupTestDictionary(t)

	first := idx.ExpansionFor("בראשית")
	second := idx.ExpansionFor("בראשית")
	assert.Same(t, first, second)
}

func TestExpansionsFor_DistinctConcatenation(t *testing.T) {
	idx := setupTestDictionary(t)

	exps := idx.ExpansionsFor([]string{"בראשית", "שלום", "בראשית", "חסר"})
	require.Len(t, exps, 2)
	assert.Equal(t, "בראשית", exps[0].Token)
	assert.Equal(t, "שלום", exps[1].Token)
}

func TestHashemSurfaces(t *testing.T) {
	idx := setupTestDictionary(t)

	surfaces := idx.HashemSurfaces()
	assert.Equal(t, []string{"יהוה", "אלהים", "אדני"}, surfaces)
	// Second call serves the cached slice.
	assert.Equal(t, surfaces, idx.HashemSurfaces())
}

func TestNoop(t *testing.T) {
	var idx Index = Noop{}
	assert.Nil(t, idx.ExpansionFor("דבר"))
	assert.Nil(t, idx.ExpansionsFor([]string{"דבר"}))
	assert.Nil(t, idx.HashemSurfaces())
}

func TestOpenOrNoop(t *testing.T) {
	assert.IsType(t, Noop{}, OpenOrNoop("", nil))
	assert.IsType(t, Noop{}, OpenOrNoop("/nonexistent/nowhere", nil))
}

func TestExpansion_Terms(t *testing.T) {
	exp := &Expansion{
		Surfaces: []string{"a", "b"},
		Variants: []string{"c"},
		Bases:    []string{"d"},
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, exp.Terms())
}

func TestBlacklist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.tsv")
	content := "# comment line\nדבר\tדיבר\n\nשלום\tשלו\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	bl, err := LoadBlacklist(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bl.Len())
	assert.True(t, bl.Blocked("דבר", "דיבר"))
	assert.False(t, bl.Blocked("דבר", "דבר"))

	exp := &Expansion{Token: "שלום", Surfaces: []string{"שלום"}, Bases: []string{"שלו", "שלם"}}
	filtered := bl.FilterForHighlight(exp)
	assert.Equal(t, []string{"שלם"}, filtered.Bases)
	assert.Equal(t, exp.Surfaces, filtered.Surfaces)
}

func TestBlacklist_MissingFile(t *testing.T) {
	bl, err := LoadBlacklist(filepath.Join(t.TempDir(), "absent.tsv"))
	require.NoError(t, err)
	assert.Zero(t, bl.Len())
	assert.False(t, bl.Blocked("a", "b"))
}

func TestBlacklist_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tsv")
	require.NoError(t, os.WriteFile(path, []byte("only-one-column\n"), 0o644))
	_, err := LoadBlacklist(path)
	assert.Error(t, err)
}
