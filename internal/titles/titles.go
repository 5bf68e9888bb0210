// Package titles parses YouTube video titles into artist and song name and
// builds normalized dedupe keys for curated tracks.
package titles

import (
	"regexp"
	"strings"
)

// noisePatterns strip common YouTube decorations from a video title.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\(\s*(Official\s*)?(Video|Audio|Music\s*Video|Lyric\s*Video|Visualizer)\s*\)`),
	regexp.MustCompile(`(?i)\[\s*(Official\s*)?(Video|Audio|Music\s*Video|Lyric\s*Video|Visualizer)\s*\]`),
	regexp.MustCompile(`(?i)\(\s*Lyrics?(\s*Video)?\s*\)`),
	regexp.MustCompile(`(?i)\(\s*Audio\s*(Only)?\s*\)`),
	regexp.MustCompile(`(?i)\(\s*Video\s*(Oficial|Officiel)\s*\)`),
	regexp.MustCompile(`(?i)\(\s*Performance\s*Video\s*\)`),
	regexp.MustCompile(`(?i)\(\s*Live(\s*Video|\s*Performance|\s*Session|\s+at\s+.*)?\s*\)`),
	regexp.MustCompile(`(?i)\(\s*Acoustic(\s*Version|\s*Video|\s*Session)?\s*\)`),
	regexp.MustCompile(`(?i)\[HD\]|\[HQ\]|\(HD\)|\(HQ\)`),
	regexp.MustCompile(`(?i)\(Prod\..*?\)`),
	regexp.MustCompile(`(?i)\[Prod\..*?\]`),
}

// separators tried in order when splitting "Artist - Title" video names.
var separators = []string{" - ", " – ", " — ", " | ", ": "}

// featureMarkers cut a song key before guest-artist credits.
var featureMarkers = []string{" ft.", " feat.", " featuring", " ft ", " feat ", "(ft.", "(feat."}

// keySuffixes are dropped from the end of a title before keying.
var keySuffixes = []string{
	"(official)", "(lyrics)", "(audio)", "(video)",
	"(official video)", "(official audio)", "(lyric video)",
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9 ]`)
var multiSpace = regexp.MustCompile(`\s+`)

// CleanTitle removes decorations like "(Official Video)" from a video title.
func CleanTitle(title string) string {
	for _, p := range noisePatterns {
		title = p.ReplaceAllString(title, "")
	}
	return strings.TrimSpace(title)
}

// ParseVideoTitle extracts (artist, song) from a YouTube video title.
// Returns empty artist when no separator is found; callers fall back to the
// uploader name.
func ParseVideoTitle(videoTitle string) (artist, song string) {
	cleaned := CleanTitle(videoTitle)

	for _, sep := range separators {
		if !strings.Contains(cleaned, sep) {
			continue
		}
		parts := strings.SplitN(cleaned, sep, 2)
		left := strings.TrimSpace(parts[0])
		right := strings.TrimSpace(parts[1])

		// feature credits sit on the title side, not the artist side
		switch {
		case hasFeature(right):
			return left, right
		case hasFeature(left):
			return right, left
		default:
			return left, right
		}
	}

	return "", cleaned
}

// ArtistFromUploader derives a fallback artist from a channel name, dropping
// the auto-generated " - Topic" suffix.
func ArtistFromUploader(uploader string) string {
	uploader = strings.TrimSpace(uploader)
	if strings.HasSuffix(uploader, " - Topic") {
		uploader = uploader[:len(uploader)-len(" - Topic")]
	}
	return strings.TrimSpace(uploader)
}

func hasFeature(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "ft.") || strings.Contains(lower, "feat.")
}

// NormalizeSongKey builds a stable "artist|title" dedupe key. Feature
// credits, decoration suffixes, punctuation and case are all erased so the
// same song uploaded twice keys identically.
func NormalizeSongKey(artist, title string) string {
	return normalizePart(artist) + "|" + normalizePart(title)
}

func normalizePart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	for _, marker := range featureMarkers {
		if idx := strings.Index(s, marker); idx >= 0 {
			s = s[:idx]
		}
	}

	for _, suffix := range keySuffixes {
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(s, suffix)
	}

	s = nonAlnum.ReplaceAllString(s, "")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// TitleVariations generates lyric-lookup title spellings for tracks with
// feature credits, most specific first.
func TitleVariations(title string) []string {
	feats := []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(.*?)\s*\(\s*(?:feat\.|ft\.|featuring)\s+(.+?)\s*\)\s*$`),
		regexp.MustCompile(`(?i)^(.*?)\s+(?:feat\.|ft\.|featuring)\s+(.+?)\s*$`),
	}

	var base, guest string
	for _, re := range feats {
		if m := re.FindStringSubmatch(title); m != nil {
			base = strings.TrimSpace(m[1])
			guest = strings.TrimSpace(m[2])
			break
		}
	}

	if base == "" {
		return []string{title}
	}

	candidates := []string{
		base + " (feat. " + guest + ")",
		base + " feat. " + guest,
		base + " ft. " + guest,
		base + " (ft. " + guest + ")",
		base,
	}

	seen := make(map[string]bool)
	var out []string
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
