package hebrew

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGematria(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "א"},
		{5, "ה"},
		{10, "י"},
		{11, "יא"},
		{15, "טו"},
		{16, "טז"},
		{20, "כ"},
		{100, "ק"},
		{123, "קכג"},
		{400, "ת"},
		{500, "תק"},
		{613, "תריג"},
		{999, "תתקצט"},
		{0, ""},
		{-3, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Gematria(tt.n), "Gematria(%d)", tt.n)
	}
}

func TestGematria_Thousands(t *testing.T) {
	assert.Equal(t, "א׳", Gematria(1000))
	assert.Equal(t, "א׳א", Gematria(1001))
	assert.Equal(t, "ה׳תשפד", Gematria(5784))
}

func TestGematria_SpecialTeens(t *testing.T) {
	// 15 and 16 never spell out יה or יו, including in larger numbers.
	assert.Equal(t, "קטו", Gematria(115))
	assert.Equal(t, "קטז", Gematria(116))
}

func TestGematriaWithMarks(t *testing.T) {
	assert.Equal(t, "א׳", GematriaWithMarks(1))
	assert.Equal(t, "קכ״ג", GematriaWithMarks(123))
	assert.Equal(t, "ט״ו", GematriaWithMarks(15))
	assert.Equal(t, "", GematriaWithMarks(0))
}

func TestFormatDaf(t *testing.T) {
	tests := []struct {
		ordinal int
		want    string
	}{
		{1, "1a"},
		{2, "1b"},
		{3, "2a"},
		{4, "2b"},
		{89, "45a"},
		{90, "45b"},
		{0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDaf(tt.ordinal), "FormatDaf(%d)", tt.ordinal)
	}
}

func TestFormatDafHebrew(t *testing.T) {
	assert.Equal(t, "א.", FormatDafHebrew(1))
	assert.Equal(t, "א:", FormatDafHebrew(2))
	assert.Equal(t, "ב.", FormatDafHebrew(3))
	assert.Equal(t, "מה:", FormatDafHebrew(90))
}
