// Package hebrew provides normalization of Hebrew text for indexing and
// querying, plus Gematria formatting for Hebrew references.
//
// Normalization is the hot path of indexing (on the order of 1e8 characters
// per full build), so the functions here work on runes directly and allocate
// once per call.
package hebrew

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Hebrew code points handled by the normalizer.
const (
	cantillationFirst = 0x0591 // teamim
	cantillationLast  = 0x05AF
	pointFirst        = 0x05B0 // nikud and related marks
	pointLast         = 0x05BD
	shinDot           = 0x05C1
	sinDot            = 0x05C2
	qamatzQatan       = 0x05C7
	maqaf             = 0x05BE
	geresh            = 0x05F3
	gershayim         = 0x05F4
)

// finalToBase maps sofit letter forms to their base forms.
var finalToBase = map[rune]rune{
	'ך': 'כ',
	'ם': 'מ',
	'ן': 'נ',
	'ף': 'פ',
	'ץ': 'צ',
}

// IsDiacritic reports whether r is a cantillation mark, a vowel point, or a
// related combining mark stripped by Normalize.
func IsDiacritic(r rune) bool {
	switch {
	case r >= cantillationFirst && r <= cantillationLast:
		return true
	case r >= pointFirst && r <= pointLast && r != maqaf:
		return true
	case r == shinDot, r == sinDot, r == qamatzQatan:
		return true
	}
	return false
}

// ReplaceFinalsWithBase maps the five sofit letters to their base forms and
// leaves everything else untouched.
func ReplaceFinalsWithBase(s string) string {
	return strings.Map(func(r rune) rune {
		if base, ok := finalToBase[r]; ok {
			return base
		}
		return r
	}, s)
}

// Normalize strips teamim, nikud, geresh and gershayim, replaces maqaf with
// a space, maps sofit letters to base forms, collapses whitespace runs, and
// trims. The result contains no characters in the diacritic ranges and no
// final letters.
func Normalize(input string) string {
	out, _ := stripWithMap(input, false)
	return out
}

// StripDiacriticsWithMap normalizes input like Normalize and additionally
// returns indexMap, where indexMap[i] is the byte offset in input of the
// i-th surviving code point. The map projects highlight spans computed over
// the plain text back onto the original text.
func StripDiacriticsWithMap(input string) (string, []int) {
	return stripWithMap(input, true)
}

func stripWithMap(input string, wantMap bool) (string, []int) {
	input = norm.NFC.String(input)

	var b strings.Builder
	b.Grow(len(input))
	var idx []int
	if wantMap {
		idx = make([]int, 0, len(input)/2)
	}

	// pendingSpace holds back one separator so runs collapse and the
	// output never starts with a space.
	pendingSpace := false
	pendingOffset := 0
	emitted := false

	for off, r := range input {
		switch {
		case IsDiacritic(r), r == geresh, r == gershayim, r == '\'', r == '"':
			// ASCII quote marks stand in for geresh and gershayim in
			// plain-keyboard text.
			continue
		case r == maqaf, r == ' ', r == '\t', r == '\n', r == '\r', r == ' ':
			if emitted && !pendingSpace {
				pendingSpace = true
				pendingOffset = off
			}
			continue
		}

		if pendingSpace {
			b.WriteByte(' ')
			if wantMap {
				idx = append(idx, pendingOffset)
			}
			pendingSpace = false
		}
		if base, ok := finalToBase[r]; ok {
			r = base
		}
		b.WriteRune(r)
		if wantMap {
			idx = append(idx, off)
		}
		emitted = true
	}

	return b.String(), idx
}

// IsHebrewLetter reports whether r is in the Hebrew letter block.
func IsHebrewLetter(r rune) bool {
	return r >= 'א' && r <= 'ת'
}
