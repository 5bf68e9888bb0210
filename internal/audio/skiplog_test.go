package audio

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipLoggerAppendsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skipped_songs.jsonl")
	l := NewSkipLogger(path)

	require.NoError(t, l.Log(SkippedSong{
		TrackID: 1, Title: "One", Artist: "A",
		Reason: SkipTooFewLines,
	}))
	require.NoError(t, l.Log(SkippedSong{
		TrackID: 2, Title: "Two", Artist: "B",
		LRCDuration: 180, AudioDuration: 190, Drift: 10,
		Reason: SkipVersionMismatch,
		YTURL:  "https://youtube.com/watch?v=abc",
	}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []SkippedSong
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e SkippedSong
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}

	require.Len(t, entries, 2)
	assert.Equal(t, SkipTooFewLines, entries[0].Reason)
	assert.NotEmpty(t, entries[0].Timestamp)
	assert.Equal(t, int64(2), entries[1].TrackID)
	assert.InDelta(t, 10.0, entries[1].Drift, 0.001)
	assert.Equal(t, 2, l.Count())
}

func TestSkipLoggerCountMissingFile(t *testing.T) {
	l := NewSkipLogger(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Zero(t, l.Count())
}
