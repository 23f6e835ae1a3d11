package search

import (
	"strings"

	"github.com/seforimapp/seforim-server/internal/hebrew"
)

// Proximity rescoring. Bleve phrase queries have no slop, so the
// near-phrase scoring tiers run as a post-retrieval multiplier over the
// hit's own text: the tighter the smallest window covering every query
// token, the larger the boost. The exact-phrase bleve clause still
// dominates; this ladder separates tight windows from scattered matches.

const nearPhraseSlop = 3

// proximityMultiplier returns the score multiplier for one hit given its
// raw text. Text and tokens are normalized alike before comparison.
// Single-token queries and texts missing a token multiply by 1.
func proximityMultiplier(rawText string, tokens []string, near int) float64 {
	if len(tokens) < 2 || rawText == "" {
		return 1
	}

	fields := strings.Fields(hebrew.Normalize(strings.ToLower(stripTags(rawText))))
	normalized := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		normalized = append(normalized, hebrew.Normalize(strings.ToLower(tok)))
	}
	slop := minWindowSlop(fields, normalized)
	switch {
	case slop < 0:
		return 1
	case slop == 0:
		// The tiers keep the 50/20/5 ratio of the boolean query's
		// boosts, scaled into multiplier space.
		return 1 + boostExactPhrase/boostExactPhrase // 2.0
	case slop <= nearPhraseSlop:
		return 1 + boostNearPhrase/boostExactPhrase // 1.4
	case near > 0 && slop <= near:
		return 1 + boostSlopPhrase/boostExactPhrase // 1.1
	default:
		return 1
	}
}

// minWindowSlop finds the smallest token window containing every distinct
// query token and returns its slop (window length minus token count), or
// -1 when some token never occurs.
func minWindowSlop(fields, tokens []string) int {
	want := make(map[string]int)
	for _, t := range tokens {
		want[t] = 0
	}
	distinct := len(want)

	have := make(map[string]int, distinct)
	covered := 0
	best := -1

	left := 0
	for right, f := range fields {
		if _, ok := want[f]; !ok {
			continue
		}
		have[f]++
		if have[f] == 1 {
			covered++
		}
		for covered == distinct {
			window := right - left + 1
			if slop := window - distinct; best < 0 || slop < best {
				best = slop
			}
			lf := fields[left]
			if _, ok := want[lf]; ok {
				have[lf]--
				if have[lf] == 0 {
					covered--
				}
			}
			left++
		}
	}
	return best
}
