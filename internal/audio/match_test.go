package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuzzyContainsExactSubstring(t *testing.T) {
	assert.True(t, FuzzyContains("Burna Boy - Last Last (Official Video)", "Last Last", 0.7))
	assert.True(t, FuzzyContains("BURNA BOY - LAST LAST", "last last", 0.7))
}

func TestFuzzyContainsWordLevel(t *testing.T) {
	// typo in one word still matches at the word level
	assert.True(t, FuzzyContains("Burna Boyy performs live", "Burna Boy", 0.7))
	assert.False(t, FuzzyContains("completely unrelated video", "Burna Boy", 0.7))
}

func TestFuzzyContainsEmptyNeedle(t *testing.T) {
	assert.True(t, FuzzyContains("anything", "", 0.7))
}

func TestScoreCandidatePerfectMatch(t *testing.T) {
	c := SearchCandidate{
		Title:    "Burna Boy - Last Last",
		Uploader: "Burna Boy Official",
		Duration: 172.0,
	}
	score := ScoreCandidate(c, "Last Last", "Burna Boy", 172.5)

	// title +50, artist in title +40, duration <=1s +20, official +10
	assert.Equal(t, 120.0, score)
}

func TestScoreCandidateArtistOnlyInUploader(t *testing.T) {
	c := SearchCandidate{
		Title:    "Last Last",
		Uploader: "Burna Boy",
		Duration: 172.0,
	}
	score := ScoreCandidate(c, "Last Last", "Burna Boy", 172.0)

	// title +50, artist in uploader +30, duration +20
	assert.Equal(t, 100.0, score)
}

func TestScoreCandidateTitleWithoutArtistPenalty(t *testing.T) {
	c := SearchCandidate{
		Title:    "Last Last (cover)",
		Uploader: "random channel",
		Duration: 172.0,
	}
	score := ScoreCandidate(c, "Last Last", "Burna Boy", 172.0)

	// title +50, no artist -30, duration +20
	assert.Equal(t, 40.0, score)
	assert.Less(t, score, MatchThreshold)
}

func TestScoreCandidateDurationBuckets(t *testing.T) {
	base := SearchCandidate{Title: "Song", Uploader: "Artist", Duration: 200.0}

	cases := []struct {
		expected float64
		bonus    float64
	}{
		{199.0, 20},  // drift 1.0
		{198.0, 10},  // drift 2.0
		{195.0, 5},   // drift 5.0
		{190.0, -20}, // drift 10.0
	}
	for _, tc := range cases {
		score := ScoreCandidate(base, "Song", "Artist", tc.expected)
		assert.Equal(t, 90.0+tc.bonus, score, "expected duration %.1f", tc.expected)
	}
}

func TestCheckVersionMatch(t *testing.T) {
	ok, drift := CheckVersionMatch(180.0, 181.5, DurationTolerance)
	assert.True(t, ok)
	assert.InDelta(t, 1.5, drift, 0.001)

	ok, drift = CheckVersionMatch(180.0, 182.0, DurationTolerance)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, drift, 0.001)

	ok, _ = CheckVersionMatch(180.0, 182.01, DurationTolerance)
	assert.False(t, ok)

	ok, _ = CheckVersionMatch(183.0, 180.0, DurationTolerance)
	assert.False(t, ok)
}

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "AC_DC - Back In Black", safeFileName("AC/DC", "Back In Black"))

	long := safeFileName("Artist", string(make([]byte, 200)))
	assert.Len(t, long, 100)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("boy", "boy"))
	assert.Greater(t, similarity("boy", "boyy"), 0.7)
	assert.Less(t, similarity("boy", "xyz"), 0.3)
	assert.Equal(t, 0.0, similarity("", "abc"))
}
