package search

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripTags(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain text", "plain text"},
		{"<b>מודגש</b>", "מודגש"},
		{"<h1>כותרת</h1>שורה", "כותרת שורה"},
		{"a<br>b", "a b"},
		{"&amp;", "&"},
	}
	for _, tt := range tests {
		got := strings.Join(strings.Fields(stripTags(tt.input)), " ")
		assert.Equal(t, tt.want, got)
	}
}

func TestBuildSnippet_HighlightsWholeWords(t *testing.T) {
	source := "ויאמר אלהים יהי אור ויהי אור"
	snippet := BuildSnippet(source, []string{"אור"})

	// Both whole-word occurrences get wrapped; the prefixed word does
	// not.
	assert.Equal(t, 2, strings.Count(snippet, "<b>אור</b>"))
	assert.NotContains(t, snippet, "<b>ויהי")
}

func TestBuildSnippet_NoTagInsideWord(t *testing.T) {
	source := "האורות מאירים באור גדול"
	snippet := BuildSnippet(source, []string{"אור"})

	// "אור" appears inside האורות and באור only as a substring; no
	// whole-word match exists, so no bold opens inside a letter run.
	for i := 0; i < len(snippet); i++ {
		if strings.HasPrefix(snippet[i:], "<b>") {
			if i > 0 {
				prev := []rune(snippet[:i])
				assert.False(t, unicode.IsLetter(prev[len(prev)-1]),
					"bold tag opened inside a word: %q", snippet)
			}
		}
	}
	assert.NotContains(t, snippet, "<b>")
}

func TestBuildSnippet_KeepsNikudInOutput(t *testing.T) {
	source := "בְּרֵאשִׁית בָּרָא אֱלֹהִים"
	snippet := BuildSnippet(source, []string{"ברא"})

	// The highlighted span projects back onto the vocalized original.
	require.Contains(t, snippet, "<b>")
	assert.Contains(t, snippet, "בָּרָא")
	assert.Contains(t, snippet, "<b>בָּרָא</b>")
}

func TestBuildSnippet_StripsMarkupFromSource(t *testing.T) {
	source := "<h2>כותרת</h2> ויאמר המלך דבר"
	snippet := BuildSnippet(source, []string{"המלך"})

	assert.NotContains(t, snippet, "<h2>")
	assert.Contains(t, snippet, "<b>המלך</b>")
}

func TestBuildSnippet_TrimsLongSources(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("מלה ")
	}
	b.WriteString("יעד")
	for i := 0; i < 200; i++ {
		b.WriteString(" מלה")
	}

	snippet := BuildSnippet(b.String(), []string{"יעד"})
	assert.Contains(t, snippet, "<b>יעד</b>")
	assert.True(t, strings.HasPrefix(snippet, "..."))
	assert.True(t, strings.HasSuffix(snippet, "..."))
	assert.Less(t, len(snippet), len(b.String()))
}

func TestBuildSnippet_AnchorsOnDensestCluster(t *testing.T) {
	var b strings.Builder
	b.WriteString("ראשון")
	for i := 0; i < 300; i++ {
		b.WriteString(" סתם")
	}
	b.WriteString(" ראשון שני שלישי")

	snippet := BuildSnippet(b.String(), []string{"ראשון", "שני", "שלישי"})

	// The window containing all three terms wins over the lone leading
	// occurrence.
	assert.Contains(t, snippet, "<b>שני</b>")
	assert.Contains(t, snippet, "<b>שלישי</b>")
}

func TestBuildSnippet_NoMatches(t *testing.T) {
	snippet := BuildSnippet("טקסט בלי התאמות", []string{"חסר"})
	assert.NotContains(t, snippet, "<b>")
	assert.Contains(t, snippet, "טקסט")
}

func TestBuildSnippet_EmptySource(t *testing.T) {
	assert.Empty(t, BuildSnippet("", []string{"א"}))
	assert.Empty(t, BuildSnippet("<p></p>", []string{"א"}))
}

func TestBuildSnippet_OverlappingTermsMerge(t *testing.T) {
	source := "דבר גדול מאד"
	snippet := BuildSnippet(source, []string{"דבר גדול", "גדול"})

	// Overlapping spans merge instead of nesting tags.
	assert.NotContains(t, snippet, "<b><b>")
	assert.Contains(t, snippet, "<b>")
}
