package segmenter

import (
	"fmt"
	"strings"
)

// systemPrompt pins the model to JSON-only output.
const systemPrompt = "You are a music analysis expert. Output only valid JSON."

const genreVocabulary = "afrobeats, reggaeton, dancehall, hip-hop, r&b, pop, rock, country, latin, electronic, folk, jazz, classical, metal, indie, soul, funk, gospel, blues, reggae, punk, disco, house, techno, trap, drill, afropop, amapiano, kizomba, soca, calypso, bachata, salsa, cumbia, merengue, or other"

const segmentRules = `For each segment you identify:
1. It should be 10-20 seconds when sung (roughly 2-6 lines)
2. It should convey a clear emotional message
3. It should work as a standalone snippet in a chat
4. The lyrics should make sense without the rest of the song`

const outputRules = `Important:
- The genre field is REQUIRED at the top level
- Line numbers must match the numbered lyrics above
- Include the exact lyrics text in the "lyrics" field
- ai_description rules:
  * DO NOT start with "This segment", "This part", "This song", "The lyrics", or any similar phrase
  * Write 2 sentences describing the emotional content and meaning. Write it like you're describing the vibe to a friend.
  * Start directly with the emotion or theme (e.g., "Longing for...", "Triumphant...", "Raw vulnerability...")
  * WRONG: "This segment conveys a sense of longing and desire"
  * WRONG: "This part of the song highlights unity"
  * RIGHT: "Longing and desire for connection, aching to be understood"
  * RIGHT: "Unity and shared purpose, everyone coming together for adventure"
- Output ONLY the JSON, no other text`

const segmentSchema = `    {
      "start_line": <line number where segment starts>,
      "end_line": <line number where segment ends>,
      "lyrics": "<exact lyrics from those lines>",
      "ai_description": "<see format below>",
      "primary_emotion": "<main emotion: e.g., triumphant, sad, determined, grateful, playful, nostalgic, etc.>",
      "secondary_emotion": "<supporting emotion or null>",
      "energy": "<low|medium|high|very-high>",
      "tone": "<how the emotion is expressed: e.g., celebratory, bitter, encouraging, wistful, etc.>"
    }`

// buildPrompt renders the single-song segmentation prompt.
func buildPrompt(lyrics, title, artist string) string {
	var b strings.Builder

	b.WriteString("You are analyzing song lyrics to identify emotionally meaningful segments that could be sent in a conversation as a response.\n\n")
	b.WriteString("First, determine the song's genre based on the artist name and lyrical style.\n\n")
	b.WriteString(segmentRules)
	fmt.Fprintf(&b, "\n\nSong: %s by %s\n\n", title, artist)
	fmt.Fprintf(&b, "Lyrics (with line numbers):\n%s\n\n", numberedLyrics(lyrics))
	b.WriteString("Identify 2-5 of the most emotionally resonant segments. Output ONLY valid JSON in this exact format:\n\n")
	fmt.Fprintf(&b, "{\n  \"genre\": \"<primary genre: %s>\",\n  \"segments\": [\n%s\n  ]\n}\n\n", genreVocabulary, segmentSchema)
	b.WriteString(outputRules)

	return b.String()
}

// buildBatchPrompt renders the multi-song segmentation prompt. Each song's
// lyrics are numbered from its own line 1 and the model must echo the
// song_index so results can be matched back to tracks.
func buildBatchPrompt(songs []BatchSong) string {
	var b strings.Builder

	b.WriteString("You are analyzing lyrics for multiple songs to identify emotionally meaningful segments that could be sent in a conversation as a response.\n\n")
	b.WriteString("For EACH song, first determine its genre based on the artist name and lyrical style, then identify 2-5 of the most emotionally resonant segments.\n\n")
	b.WriteString(segmentRules)
	b.WriteString("\n\n")

	for i, song := range songs {
		fmt.Fprintf(&b, "=== SONG %d: %s by %s ===\n", i+1, song.Title, song.Artist)
		fmt.Fprintf(&b, "Lyrics (with line numbers):\n%s\n\n", numberedLyrics(song.Lyrics))
	}

	b.WriteString("Output ONLY valid JSON in this exact format, with one entry per song:\n\n")
	fmt.Fprintf(&b, "{\n  \"songs\": [\n    {\n      \"song_index\": <index from the SONG header>,\n      \"genre\": \"<primary genre: %s>\",\n      \"segments\": [\n%s\n      ]\n    }\n  ]\n}\n\n", genreVocabulary, segmentSchema)
	b.WriteString("Important:\n- Include EVERY song from the input, using its song_index\n- Line numbers are per-song and must match that song's numbered lyrics\n")
	b.WriteString(strings.TrimPrefix(outputRules, "Important:\n"))

	return b.String()
}

// numberedLyrics adds line numbers to lyrics for the prompt, skipping empty
// lines in the numbering.
func numberedLyrics(lyrics string) string {
	lines := strings.Split(strings.TrimSpace(lyrics), "\n")
	var numbered []string
	lineNum := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineNum++
		numbered = append(numbered, fmt.Sprintf("%d. %s", lineNum, line))
	}
	return strings.Join(numbered, "\n")
}
