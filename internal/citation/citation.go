// Package citation parses free-form citation strings ("Genesis 1:1",
// "Beit Yosef, Orach Chayim 325:34:1", "Shabbat 45b:3") into a structured
// form and produces the canonical lookup keys used by the link resolver.
package citation

import (
	"strconv"
	"strings"
)

// Citation is the parsed form of a citation string. Refs holds the trailing
// positional references; a section-only citation has an empty Refs slice,
// which callers must not "repair" to [0].
type Citation struct {
	Book    string
	Section string
	Refs    []int
}

// Parse parses a citation string. It returns false for empty or structurally
// impossible input. Unknown book names are not an error; resolution against
// the ingested corpus happens later.
func Parse(raw string) (Citation, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Citation{}, false
	}

	// Range citations reduce to their start.
	s = rangeStart(s)

	head, numeric := splitNumericTail(s)
	head = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(head), ","))
	if head == "" {
		return Citation{}, false
	}

	var c Citation
	if i := strings.Index(head, ","); i >= 0 {
		c.Book = strings.TrimSpace(head[:i])
		c.Section = strings.TrimSpace(head[i+1:])
	} else {
		c.Book = head
	}
	if c.Book == "" {
		return Citation{}, false
	}

	if numeric != "" {
		refs, ok := parseRefs(numeric)
		if !ok {
			return Citation{}, false
		}
		c.Refs = refs
	}
	return c, true
}

// rangeStart reduces "X 1:1-5" to "X 1:1". Only a trailing range over the
// last ref token is recognized; maqaf-free hyphens inside titles are left
// alone because they precede the numeric tail.
func rangeStart(s string) string {
	i := strings.LastIndex(s, "-")
	if i <= 0 || i == len(s)-1 {
		return s
	}
	tail := s[i+1:]
	if !isRefSequence(tail) {
		return s
	}
	// The left side must itself end in a ref token for this to be a range.
	left := s[:i]
	j := strings.LastIndexAny(left, " :")
	if j < 0 || !isRefToken(left[j+1:]) {
		return s
	}
	return left
}

// splitNumericTail divides a citation into its textual head and the trailing
// ":"-joined numeric portion, e.g. "Beit Yosef, Orach Chayim 325:34:1" ->
// ("Beit Yosef, Orach Chayim", "325:34:1").
func splitNumericTail(s string) (head, numeric string) {
	i := strings.LastIndex(s, " ")
	if i >= 0 && isRefSequence(s[i+1:]) {
		return strings.TrimSpace(s[:i]), s[i+1:]
	}
	if i < 0 && isRefSequence(s) {
		return "", s
	}
	return strings.TrimSpace(s), ""
}

// isRefSequence reports whether s looks like "1", "1:2:3", or "45b:3".
func isRefSequence(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ":") {
		if !isRefToken(part) {
			return false
		}
	}
	return true
}

// isRefToken reports whether s is an integer or a Talmud daf token N{a|b}.
func isRefToken(s string) bool {
	if s == "" {
		return false
	}
	if s[len(s)-1] == 'a' || s[len(s)-1] == 'b' {
		s = s[:len(s)-1]
		if s == "" {
			return false
		}
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// parseRefs tokenizes the numeric tail on ":". A daf token N{a|b} converts
// to 2N-1 for side a and 2N for side b.
func parseRefs(numeric string) ([]int, bool) {
	parts := strings.Split(numeric, ":")
	refs := make([]int, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, false
		}
		side := byte(0)
		if last := part[len(part)-1]; last == 'a' || last == 'b' {
			side = last
			part = part[:len(part)-1]
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, false
		}
		switch side {
		case 'a':
			n = 2*n - 1
		case 'b':
			n = 2 * n
		}
		refs = append(refs, n)
	}
	return refs, true
}

// Canonical lowercases a citation string, removes commas, and collapses
// whitespace runs, producing the lookup-map key form.
func Canonical(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ",", "")
	return strings.Join(strings.Fields(s), " ")
}

// CanonicalBase is Canonical with every trailing numeric ref dropped, used
// for the resolver's tail fallback. A citation with no refs canonicalizes
// to itself.
func CanonicalBase(s string) string {
	s = rangeStart(strings.TrimSpace(s))
	head, _ := splitNumericTail(s)
	head = strings.TrimSuffix(strings.TrimSpace(head), ",")
	return Canonical(head)
}

// String renders the citation back to its display form.
func (c Citation) String() string {
	var b strings.Builder
	b.WriteString(c.Book)
	if c.Section != "" {
		b.WriteString(", ")
		b.WriteString(c.Section)
	}
	for i, r := range c.Refs {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteByte(':')
		}
		b.WriteString(strconv.Itoa(r))
	}
	return b.String()
}

// HasRefs reports whether the citation carries positional refs; the tail
// fallback of the resolver applies only when it does.
func (c Citation) HasRefs() bool {
	return len(c.Refs) > 0
}
