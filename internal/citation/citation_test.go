package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Citation
	}{
		{
			name:  "simple chapter verse",
			input: "Genesis 1:1",
			want:  Citation{Book: "Genesis", Refs: []int{1, 1}},
		},
		{
			name:  "section with deep refs",
			input: "Beit Yosef, Orach Chayim 325:34:1",
			want:  Citation{Book: "Beit Yosef", Section: "Orach Chayim", Refs: []int{325, 34, 1}},
		},
		{
			name:  "introduction keeps its token",
			input: "Tur, Orach Chayim, Introduction 3",
			want:  Citation{Book: "Tur", Section: "Orach Chayim, Introduction", Refs: []int{3}},
		},
		{
			name:  "talmud daf side b",
			input: "Shabbat 45b:3",
			want:  Citation{Book: "Shabbat", Refs: []int{90, 3}},
		},
		{
			name:  "talmud daf side a",
			input: "Berakhot 2a",
			want:  Citation{Book: "Berakhot", Refs: []int{3}},
		},
		{
			name:  "section only yields no refs",
			input: "Tur, Orach Chayim",
			want:  Citation{Book: "Tur", Section: "Orach Chayim"},
		},
		{
			name:  "book only",
			input: "Psalms",
			want:  Citation{Book: "Psalms"},
		},
		{
			name:  "range reduces to start",
			input: "Psalms 1:1-5",
			want:  Citation{Book: "Psalms", Refs: []int{1, 1}},
		},
		{
			name:  "daf range reduces to start",
			input: "Shabbat 2a-2b",
			want:  Citation{Book: "Shabbat", Refs: []int{3}},
		},
		{
			name:  "hyphenated title is not a range",
			input: "Ben-Ish Chai 2:1",
			want:  Citation{Book: "Ben-Ish Chai", Refs: []int{2, 1}},
		},
		{
			name:  "multi word book",
			input: "Mishneh Torah, Hilchot Shabbat 5:2",
			want:  Citation{Book: "Mishneh Torah", Section: "Hilchot Shabbat", Refs: []int{5, 2}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want.Book, got.Book)
			assert.Equal(t, tt.want.Section, got.Section)
			assert.Equal(t, tt.want.Refs, got.Refs)
		})
	}
}

func TestParse_EmptyRefsStayEmpty(t *testing.T) {
	c, ok := Parse("Tur, Orach Chayim")
	require.True(t, ok)
	assert.Empty(t, c.Refs)
	assert.False(t, c.HasRefs())
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"", "   ", ",", " , "} {
		_, ok := Parse(input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestParse_UnknownBookIsFine(t *testing.T) {
	c, ok := Parse("Totally Unknown Book 3:4")
	require.True(t, ok)
	assert.Equal(t, "Totally Unknown Book", c.Book)
	assert.Equal(t, []int{3, 4}, c.Refs)
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Beit Yosef, Orach Chayim 325:34:1", "beit yosef orach chayim 325:34:1"},
		{"  Genesis   1:1 ", "genesis 1:1"},
		{"Tur, Orach Chayim, Introduction 3", "tur orach chayim introduction 3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Canonical(tt.input))
	}
}

func TestCanonicalBase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Beit Yosef, Orach Chayim 325:34:1", "beit yosef orach chayim"},
		{"Genesis 1:1", "genesis"},
		{"Tur, Orach Chayim", "tur orach chayim"},
		{"Psalms 1:1-5", "psalms"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalBase(tt.input))
	}
}

func TestCitation_String(t *testing.T) {
	c := Citation{Book: "Beit Yosef", Section: "Orach Chayim", Refs: []int{325, 34}}
	assert.Equal(t, "Beit Yosef, Orach Chayim 325:34", c.String())

	c = Citation{Book: "Genesis", Refs: []int{1, 1}}
	assert.Equal(t, "Genesis 1:1", c.String())

	c = Citation{Book: "Psalms"}
	assert.Equal(t, "Psalms", c.String())
}
