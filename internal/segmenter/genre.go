package segmenter

import "strings"

// genreOrder is the controlled vocabulary for the genre payload field, in
// the order the substring fallback tries matches.
var genreOrder = []string{
	"afrobeats", "reggaeton", "dancehall", "hip-hop", "r&b", "pop", "rock",
	"country", "latin", "electronic", "folk", "jazz", "classical", "metal",
	"indie", "soul", "funk", "gospel", "blues", "reggae", "punk", "disco",
	"house", "techno", "trap", "drill", "afropop", "amapiano", "kizomba",
	"soca", "calypso", "bachata", "salsa", "cumbia", "merengue", "other",
}

var validGenres = make(map[string]bool, len(genreOrder))

func init() {
	for _, g := range genreOrder {
		validGenres[g] = true
	}
}

var genreAliases = map[string]string{
	"hiphop":            "hip-hop",
	"hip hop":           "hip-hop",
	"rnb":               "r&b",
	"rhythm and blues":  "r&b",
	"afro":              "afrobeats",
	"afro-beats":        "afrobeats",
	"dancehall/reggae":  "dancehall",
	"edm":               "electronic",
	"dance":             "electronic",
	"alternative":       "indie",
	"alt rock":          "indie",
	"alt-rock":          "indie",
	"alternative rock":  "indie",
	"urban":             "hip-hop",
	"tropical":          "latin",
	"world":             "other",
}

// NormalizeGenre maps a free-form genre string onto the controlled
// vocabulary: exact match, then alias, then substring containment in either
// direction, then "other". The result is always a member of the vocabulary,
// so normalizing twice returns the same value.
func NormalizeGenre(genre string) string {
	if genre == "" {
		return "other"
	}

	lower := strings.ToLower(strings.TrimSpace(genre))
	if lower == "" {
		return "other"
	}

	if validGenres[lower] {
		return lower
	}

	if alias, ok := genreAliases[lower]; ok {
		return alias
	}

	for _, valid := range genreOrder {
		if strings.Contains(lower, valid) || strings.Contains(valid, lower) {
			return valid
		}
	}

	return "other"
}
