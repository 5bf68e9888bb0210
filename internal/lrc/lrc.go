// Package lrc parses synced lyrics in LRC format.
//
// LRC format: [MM:SS.xx]Lyrics text here
//
// Example:
//
//	[00:17.87]Wettin you want
//	[00:19.52]I go give you
package lrc

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// timestampPattern matches [MM:SS.xx], [MM:SS.xxx] or [MM:SS]
var timestampPattern = regexp.MustCompile(`\[(\d{2}):(\d{2})(?:\.(\d{2,3}))?\]`)

// lastLineBuffer is added to the final line's timestamp to estimate its end.
const lastLineBuffer = 3.0

// Line is a single line of lyrics with its timestamp.
type Line struct {
	Number    int     // 1-indexed
	Timestamp float64 // Seconds from start
	Text      string
}

// TimestampString formats the timestamp as MM:SS.xx
func (l Line) TimestampString() string {
	minutes := int(l.Timestamp) / 60
	seconds := l.Timestamp - float64(minutes*60)
	return fmt.Sprintf("%02d:%05.2f", minutes, seconds)
}

// Parsed holds parsed LRC data with helper methods.
type Parsed struct {
	Lines   []Line
	RawText string
}

// TotalLines returns the number of lyric lines.
func (p *Parsed) TotalLines() int {
	return len(p.Lines)
}

// Duration estimates the song duration from the last timestamp.
func (p *Parsed) Duration() float64 {
	if len(p.Lines) == 0 {
		return 0
	}
	return p.Lines[len(p.Lines)-1].Timestamp + lastLineBuffer
}

// PlainLyrics returns all lyrics as plain text without timestamps.
func (p *Parsed) PlainLyrics() string {
	texts := make([]string, len(p.Lines))
	for i, line := range p.Lines {
		texts[i] = line.Text
	}
	return strings.Join(texts, "\n")
}

// LineAt returns the line with the given 1-indexed number, or nil.
func (p *Parsed) LineAt(number int) *Line {
	if number < 1 || number > len(p.Lines) {
		return nil
	}
	// Lines are renumbered sequentially after parsing.
	return &p.Lines[number-1]
}

// LyricsText returns the combined text for an inclusive line range.
func (p *Parsed) LyricsText(startLine, endLine int) string {
	var texts []string
	for _, line := range p.Lines {
		if line.Number >= startLine && line.Number <= endLine {
			texts = append(texts, line.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// SegmentTimestamps returns the start and end timestamps for a segment.
//
// The end timestamp is the start of the line AFTER endLine so the audio of
// the last sung line is captured in full. When endLine is the final line,
// the end is estimated as its timestamp plus a 3 second buffer.
func (p *Parsed) SegmentTimestamps(startLine, endLine int) (float64, float64, bool) {
	start := p.LineAt(startLine)
	if start == nil {
		return 0, 0, false
	}

	if next := p.LineAt(endLine + 1); next != nil {
		return start.Timestamp, next.Timestamp, true
	}

	last := p.LineAt(endLine)
	if last == nil {
		return 0, 0, false
	}
	return start.Timestamp, last.Timestamp + lastLineBuffer, true
}

// Parse parses LRC format lyrics into structured data.
//
// Lines without a timestamp, empty lines and metadata lines are dropped.
// When a line carries multiple timestamps the first one is used and the text
// after the last bracket is taken. Lines are sorted by timestamp and
// renumbered from 1.
func Parse(syncedLyrics string) *Parsed {
	var lines []Line

	for _, rawLine := range strings.Split(syncedLyrics, "\n") {
		rawLine = strings.TrimSpace(rawLine)
		if rawLine == "" {
			continue
		}

		matches := timestampPattern.FindAllStringSubmatchIndex(rawLine, -1)
		if len(matches) == 0 {
			continue
		}

		// Text after the last timestamp
		last := matches[len(matches)-1]
		text := strings.TrimSpace(rawLine[last[1]:])

		// Skip empty lines and metadata lines
		if text == "" || strings.HasPrefix(text, "[") {
			continue
		}

		first := matches[0]
		timestamp := parseTimestamp(
			rawLine[first[2]:first[3]],
			rawLine[first[4]:first[5]],
			submatch(rawLine, first, 3),
		)

		lines = append(lines, Line{
			Timestamp: timestamp,
			Text:      text,
		})
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Timestamp < lines[j].Timestamp
	})

	for i := range lines {
		lines[i].Number = i + 1
	}

	return &Parsed{Lines: lines, RawText: syncedLyrics}
}

// ValidateSegmentLines checks that segment line numbers fall inside the song.
func ValidateSegmentLines(p *Parsed, startLine, endLine int) error {
	if startLine < 1 {
		return fmt.Errorf("start_line must be >= 1, got %d", startLine)
	}
	if endLine < startLine {
		return fmt.Errorf("end_line (%d) must be >= start_line (%d)", endLine, startLine)
	}
	if startLine > p.TotalLines() {
		return fmt.Errorf("start_line (%d) exceeds total lines (%d)", startLine, p.TotalLines())
	}
	if endLine > p.TotalLines() {
		return fmt.Errorf("end_line (%d) exceeds total lines (%d)", endLine, p.TotalLines())
	}
	return nil
}

func parseTimestamp(minutes, seconds, fraction string) float64 {
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	frac := 0.0
	if fraction != "" {
		f, _ := strconv.Atoi(fraction)
		// Handle both .xx and .xxx formats
		if len(fraction) == 2 {
			frac = float64(f) / 100
		} else {
			frac = float64(f) / 1000
		}
	}

	return float64(m)*60 + float64(s) + frac
}

// submatch extracts an optional capture group from match indexes.
func submatch(s string, match []int, group int) string {
	lo, hi := match[2*group], match[2*group+1]
	if lo < 0 {
		return ""
	}
	return s[lo:hi]
}
