package audio

import "strings"

// DurationTolerance is the maximum drift in seconds between the lyrics
// duration and the downloaded audio before a track is rejected as a
// different version.
const DurationTolerance = 2.0

// MatchThreshold is the minimum candidate score to accept a search result.
const MatchThreshold = 50.0

// officialKeywords in the uploader name earn a small score bonus.
var officialKeywords = []string{"official", "vevo", "records", "music", "topic"}

// SearchCandidate is a scored YouTube search result.
type SearchCandidate struct {
	VideoID  string
	Title    string
	Uploader string
	Duration float64
	URL      string
	Score    float64
}

// CheckVersionMatch reports whether the audio duration matches the lyrics
// duration within tolerance, and the absolute drift.
func CheckVersionMatch(lrcDuration, audioDuration, tolerance float64) (bool, float64) {
	drift := lrcDuration - audioDuration
	if drift < 0 {
		drift = -drift
	}
	return drift <= tolerance, drift
}

// FuzzyContains checks whether needle is approximately contained in
// haystack. An exact substring match wins; otherwise each needle word must
// fuzzy-match some haystack word, and at least 70% of needle words must
// match overall. This tolerates typos, special characters and partial
// matches in video titles.
func FuzzyContains(haystack, needle string, threshold float64) bool {
	haystackLower := strings.ToLower(haystack)
	needleLower := strings.ToLower(needle)

	if strings.Contains(haystackLower, needleLower) {
		return true
	}

	needleWords := strings.Fields(needleLower)
	haystackWords := strings.Fields(haystackLower)

	if len(needleWords) == 0 {
		return false
	}

	matched := 0
	for _, nw := range needleWords {
		for _, hw := range haystackWords {
			if similarity(nw, hw) > threshold {
				matched++
				break
			}
		}
	}

	return float64(matched)/float64(len(needleWords)) >= 0.7
}

// ScoreCandidate scores how well a YouTube candidate matches the expected
// track.
//
// Scoring breakdown:
//   - Title contains song name: +50 points
//   - Title/uploader contains artist: +40/+30 points
//   - Title matched but NO artist match: -30 points (keeps covers from winning)
//   - Duration drift <=1s/<=2s/<=5s: +20/+10/+5, else -20
//   - Official channel keyword: +10 points
func ScoreCandidate(c SearchCandidate, expectedTitle, expectedArtist string, expectedDuration float64) float64 {
	score := 0.0
	titleMatched := false
	artistMatched := false

	if FuzzyContains(c.Title, expectedTitle, 0.7) {
		score += 50
		titleMatched = true
	}

	if FuzzyContains(c.Title, expectedArtist, 0.7) {
		score += 40
		artistMatched = true
	} else if FuzzyContains(c.Uploader, expectedArtist, 0.7) {
		score += 30
		artistMatched = true
	}

	if titleMatched && !artistMatched {
		score -= 30
	}

	drift := c.Duration - expectedDuration
	if drift < 0 {
		drift = -drift
	}
	switch {
	case drift <= 1.0:
		score += 20
	case drift <= 2.0:
		score += 10
	case drift <= 5.0:
		score += 5
	default:
		score -= 20
	}

	uploaderLower := strings.ToLower(c.Uploader)
	for _, kw := range officialKeywords {
		if strings.Contains(uploaderLower, kw) {
			score += 10
			break
		}
	}

	return score
}

// similarity returns a ratio in [0,1] based on the longest common
// subsequence of two short strings.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	// LCS length via a rolling row
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	lcs := prev[len(rb)]
	return 2.0 * float64(lcs) / float64(len(ra)+len(rb))
}
