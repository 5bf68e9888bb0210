package segmenter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON strips markdown fences and surrounding prose from a model
// response, leaving the outermost JSON object.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```json"); idx != -1 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end != -1 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	} else if idx := strings.Index(text, "```"); idx != -1 {
		text = text[idx+len("```"):]
		if end := strings.Index(text, "```"); end != -1 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}

	if start := strings.Index(text, "{"); start != -1 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}

	return text
}

type segmentJSON struct {
	StartLine        int     `json:"start_line"`
	EndLine          int     `json:"end_line"`
	Lyrics           string  `json:"lyrics"`
	AIDescription    string  `json:"ai_description"`
	PrimaryEmotion   string  `json:"primary_emotion"`
	SecondaryEmotion *string `json:"secondary_emotion"`
	Energy           string  `json:"energy"`
	Tone             string  `json:"tone"`
}

type singleResponseJSON struct {
	Genre    string        `json:"genre"`
	Segments []segmentJSON `json:"segments"`
}

type batchSongJSON struct {
	SongIndex int           `json:"song_index"`
	Genre     string        `json:"genre"`
	Segments  []segmentJSON `json:"segments"`
}

type batchResponseJSON struct {
	Songs []batchSongJSON `json:"songs"`
}

func toSegments(raw []segmentJSON) []Segment {
	segments := make([]Segment, 0, len(raw))
	for _, s := range raw {
		secondary := ""
		if s.SecondaryEmotion != nil {
			secondary = *s.SecondaryEmotion
		}
		segments = append(segments, Segment{
			StartLine:        s.StartLine,
			EndLine:          s.EndLine,
			Lyrics:           s.Lyrics,
			AIDescription:    s.AIDescription,
			PrimaryEmotion:   s.PrimaryEmotion,
			SecondaryEmotion: secondary,
			Energy:           s.Energy,
			Tone:             s.Tone,
		})
	}
	return segments
}

// parseResponse parses a single-song LLM response into genre and segments.
func parseResponse(text string) (string, []Segment, error) {
	var resp singleResponseJSON
	if err := json.Unmarshal([]byte(extractJSON(text)), &resp); err != nil {
		return "", nil, fmt.Errorf("JSON parse error: %w", err)
	}

	return NormalizeGenre(resp.Genre), toSegments(resp.Segments), nil
}

// parseBatchResponse parses a batch LLM response keyed by song_index.
func parseBatchResponse(text string) (map[int]batchSongJSON, error) {
	var resp batchResponseJSON
	if err := json.Unmarshal([]byte(extractJSON(text)), &resp); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}

	byIndex := make(map[int]batchSongJSON, len(resp.Songs))
	for _, song := range resp.Songs {
		byIndex[song.SongIndex] = song
	}
	return byIndex, nil
}
