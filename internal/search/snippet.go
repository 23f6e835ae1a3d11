package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/seforimapp/seforim-server/internal/hebrew"
)

// Snippet geometry.
const (
	// snippetWindow is the rune context kept on each side of the anchor.
	snippetWindow = 120

	// anchorWindow is the span scored when choosing the anchor: the
	// position covering the most distinct highlight terms wins.
	anchorWindow = 100
)

// stripTags removes HTML markup and returns the text content. This is the
// whole extent of markup handling: tags go, entities decode, text stays.
func stripTags(raw string) string {
	if !strings.ContainsRune(raw, '<') && !strings.ContainsRune(raw, '&') {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw))
	tokenizer := html.NewTokenizer(strings.NewReader(raw))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(tokenizer.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// Block-ish boundaries keep words from fusing.
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "br", "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li":
				b.WriteByte(' ')
			}
		}
	}
}

// occurrence is one whole-word highlight match over the plain text, in
// rune coordinates.
type occurrence struct {
	start int
	end   int
	term  string
}

// BuildSnippet renders a highlighted snippet: sanitize the source, strip
// diacritics with an index map, anchor on the densest cluster of distinct
// highlight terms, wrap whole-word occurrences in <b>, and mark trimmed
// edges with ellipses.
func BuildSnippet(source string, terms []string) string {
	sanitized := strings.Join(strings.Fields(stripTags(source)), " ")
	if sanitized == "" {
		return ""
	}

	plain, indexMap := hebrew.StripDiacriticsWithMap(sanitized)
	plainRunes := []rune(plain)

	occurrences := findOccurrences(plainRunes, terms)
	if len(occurrences) == 0 {
		return trimAround(sanitized, plainRunes, indexMap, len(plainRunes)/2, nil)
	}

	anchor := chooseAnchor(occurrences)
	return trimAround(sanitized, plainRunes, indexMap, anchor, occurrences)
}

// findOccurrences locates whole-word matches of every term. Terms are
// normalized like the plain text before matching. A match never opens
// inside a letter or digit run.
func findOccurrences(text []rune, terms []string) []occurrence {
	var occs []occurrence
	for _, term := range terms {
		termRunes := []rune(hebrew.Normalize(term))
		if len(termRunes) == 0 {
			continue
		}
		for i := 0; i+len(termRunes) <= len(text); i++ {
			if !runesEqual(text[i:i+len(termRunes)], termRunes) {
				continue
			}
			if i > 0 && isWordRune(text[i-1]) {
				continue
			}
			if end := i + len(termRunes); end < len(text) && isWordRune(text[end]) {
				continue
			}
			occs = append(occs, occurrence{start: i, end: i + len(termRunes), term: term})
		}
	}
	return occs
}

// chooseAnchor picks the occurrence position whose surrounding window
// covers the most distinct terms.
func chooseAnchor(occs []occurrence) int {
	best := occs[0].start
	bestCount := 0
	for _, candidate := range occs {
		distinct := make(map[string]bool)
		for _, other := range occs {
			if other.start >= candidate.start-anchorWindow && other.start <= candidate.start+anchorWindow {
				distinct[other.term] = true
			}
		}
		if len(distinct) > bestCount {
			bestCount = len(distinct)
			best = candidate.start
		}
	}
	return best
}

// trimAround slices the snippet window out of the original sanitized text
// and inserts <b> tags via the plain/original index map.
func trimAround(sanitized string, plain []rune, indexMap []int, anchor int, occs []occurrence) string {
	start := anchor - snippetWindow
	end := anchor + snippetWindow
	if start < 0 {
		start = 0
	}
	if end > len(plain) {
		end = len(plain)
	}

	// Extend to whole words.
	for start > 0 && isWordRune(plain[start-1]) {
		start--
	}
	for end < len(plain) && isWordRune(plain[end]) {
		end++
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}

	// Sorted bold spans clipped to the window, merged when overlapping.
	spans := clipSpans(occs, start, end)

	cursor := start
	for _, span := range spans {
		b.WriteString(sliceOriginal(sanitized, indexMap, cursor, span.start))
		b.WriteString("<b>")
		b.WriteString(sliceOriginal(sanitized, indexMap, span.start, span.end))
		b.WriteString("</b>")
		cursor = span.end
	}
	b.WriteString(sliceOriginal(sanitized, indexMap, cursor, end))

	if end < len(plain) {
		b.WriteString("...")
	}
	return b.String()
}

type span struct{ start, end int }

func clipSpans(occs []occurrence, start, end int) []span {
	var spans []span
	for _, o := range occs {
		if o.start < start || o.end > end {
			continue
		}
		spans = append(spans, span{start: o.start, end: o.end})
	}
	if len(spans) == 0 {
		return nil
	}

	// Insertion sort keeps this simple; occurrence counts are tiny.
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j].start < spans[j-1].start; j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}

	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// sliceOriginal maps a plain-text rune range back onto the sanitized
// original via the index map, so highlights keep their nikud.
func sliceOriginal(sanitized string, indexMap []int, startRune, endRune int) string {
	if startRune >= endRune || startRune >= len(indexMap) {
		return ""
	}
	startByte := indexMap[startRune]
	var endByte int
	if endRune < len(indexMap) {
		endByte = indexMap[endRune]
	} else {
		endByte = len(sanitized)
	}
	// The end offset may point at a rune that still carries trailing
	// diacritics belonging to the previous plain rune; include them.
	for endByte < len(sanitized) {
		r, size := utf8.DecodeRuneInString(sanitized[endByte:])
		if !hebrew.IsDiacritic(r) {
			break
		}
		endByte += size
	}
	return sanitized[startByte:endByte]
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
