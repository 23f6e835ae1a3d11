package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinWindowSlop(t *testing.T) {
	fields := []string{"א", "ב", "ג", "ד", "ב", "ה", "א"}

	// Adjacent pair.
	assert.Equal(t, 0, minWindowSlop(fields, []string{"א", "ב"}))
	// Best window for (ב, ה) is adjacent at positions 4-5.
	assert.Equal(t, 0, minWindowSlop(fields, []string{"ב", "ה"}))
	// (א, ה) only co-occur at positions 5-6.
	assert.Equal(t, 0, minWindowSlop(fields, []string{"ה", "א"}))
	// (א, ג) best window is 0..2.
	assert.Equal(t, 1, minWindowSlop(fields, []string{"א", "ג"}))
	// Missing token.
	assert.Equal(t, -1, minWindowSlop(fields, []string{"א", "ז"}))
	// Duplicate query tokens collapse to distinct.
	assert.Equal(t, 0, minWindowSlop(fields, []string{"א", "א", "ב"}))
}

func TestProximityMultiplier_Tiers(t *testing.T) {
	tokens := []string{"דבר", "המלך"}

	adjacent := proximityMultiplier("דבר המלך ועבדיו", tokens, 5)
	near := proximityMultiplier("דבר אל כל המלך", tokens, 5)
	far := proximityMultiplier("דבר אחד ועוד אחד ושוב המלך", tokens, 5)
	scattered := proximityMultiplier("דבר א ב ג ד ה ו ז ח המלך", tokens, 5)

	assert.Greater(t, adjacent, near)
	assert.Greater(t, near, far)
	assert.Greater(t, far, 1.0)
	assert.Equal(t, 1.0, scattered)
}

func TestProximityMultiplier_SingleTokenAndMissing(t *testing.T) {
	assert.Equal(t, 1.0, proximityMultiplier("דבר המלך", []string{"דבר"}, 5))
	assert.Equal(t, 1.0, proximityMultiplier("", []string{"א", "ב"}, 5))
	assert.Equal(t, 1.0, proximityMultiplier("אין כאן כלום", []string{"א", "ב"}, 5))
}

func TestProximityMultiplier_NormalizesText(t *testing.T) {
	tokens := []string{"בראשית", "ברא"}
	vocalized := proximityMultiplier("בְּרֵאשִׁית בָּרָא אֱלֹהִים", tokens, 5)
	plain := proximityMultiplier("בראשית ברא אלהים", tokens, 5)
	require.Equal(t, plain, vocalized)
	assert.Equal(t, 2.0, plain)
}

func TestSearch_ProximityRanksAdjacentFirst(t *testing.T) {
	docs := []*LineDocument{
		lineDoc(1, "דבר טוב אמר אחד ועוד מלים רבות מאד וגם המלך"),
		lineDoc(2, "דבר המלך הגיע"),
	}
	engine := setupEngine(t, docs)

	s, err := engine.OpenSession("דבר המלך", 5, Filters{})
	require.NoError(t, err)
	hits := collectAll(t, s, 10)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(2), hits[0].LineID, "adjacent tokens outrank scattered ones")
}