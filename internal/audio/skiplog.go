package audio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Skip reasons recorded in the skipped songs log.
const (
	SkipTooFewLines        = "too_few_lines"
	SkipDownloadFailed     = "download_failed"
	SkipVersionMismatch    = "version_mismatch"
	SkipSegmentationFailed = "segmentation_failed"
)

// SkippedSong is one JSONL entry describing why a track was not processed.
type SkippedSong struct {
	TrackID       int64   `json:"track_id"`
	Title         string  `json:"title"`
	Artist        string  `json:"artist"`
	LRCDuration   float64 `json:"lrc_duration,omitempty"`
	AudioDuration float64 `json:"audio_duration,omitempty"`
	Drift         float64 `json:"drift,omitempty"`
	Reason        string  `json:"reason"`
	YTURL         string  `json:"yt_url,omitempty"`
	Error         string  `json:"error,omitempty"`
	Timestamp     string  `json:"timestamp"`
}

// SkipLogger appends skipped song entries to a JSONL file.
type SkipLogger struct {
	mu   sync.Mutex
	path string
}

// NewSkipLogger creates a logger writing to path.
func NewSkipLogger(path string) *SkipLogger {
	return &SkipLogger{path: path}
}

// Path returns the log file location.
func (l *SkipLogger) Path() string { return l.path }

// Log appends one entry. The timestamp is stamped here if empty.
func (l *SkipLogger) Log(entry SkippedSong) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05") + "Z"
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create skip log dir: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open skip log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal skip entry: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write skip entry: %w", err)
	}
	return nil
}

// Count returns the number of entries in the log, 0 if the file is missing.
func (l *SkipLogger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0
	}
	count := 0
	for _, b := range data {
		if b == '\n' {
			count++
		}
	}
	return count
}
