package audio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/orin-music/orin-api/internal/logger"
)

const (
	searchTimeout   = 90 * time.Second
	downloadTimeout = 300 * time.Second

	ytdlpFormat = "bestaudio/best"
)

// searchQueries are tried in order until a candidate clears MatchThreshold.
func searchQueries(artist, title string) []string {
	return []string{
		fmt.Sprintf("ytsearch5:%s %s", artist, title),
		fmt.Sprintf("ytsearch5:%s - %s", artist, title),
		fmt.Sprintf("ytsearch5:%s %s", title, artist),
	}
}

// Downloader finds and downloads audio from YouTube via yt-dlp.
type Downloader struct {
	audioDir string
}

// NewDownloader creates a Downloader writing into audioDir.
func NewDownloader(audioDir string) *Downloader {
	return &Downloader{audioDir: audioDir}
}

// DownloadResult carries the downloaded file and the matched candidate.
type DownloadResult struct {
	FilePath  string
	Candidate SearchCandidate
}

// ytdlpEntry is the subset of yt-dlp --dump-json output we need.
type ytdlpEntry struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Uploader string  `json:"uploader"`
	Duration float64 `json:"duration"`
	URL      string  `json:"webpage_url"`
}

// Search runs the query strategies and returns scored candidates sorted best
// first. Stops early once a query yields a candidate at or above
// MatchThreshold.
func (d *Downloader) Search(ctx context.Context, artist, title string, expectedDuration float64) ([]SearchCandidate, error) {
	seen := make(map[string]bool)
	var candidates []SearchCandidate

	for _, query := range searchQueries(artist, title) {
		entries, err := d.runSearch(ctx, query)
		if err != nil {
			logger.Warn("YouTube search failed", logger.Fields{
				"query": query,
				"error": err.Error(),
			})
			continue
		}

		for _, e := range entries {
			if e.ID == "" || seen[e.ID] {
				continue
			}
			seen[e.ID] = true

			duration := e.Duration
			if duration == 0 {
				// flat results sometimes omit duration
				duration = expectedDuration
			}

			c := SearchCandidate{
				VideoID:  e.ID,
				Title:    e.Title,
				Uploader: e.Uploader,
				Duration: duration,
				URL:      e.URL,
			}
			c.Score = ScoreCandidate(c, title, artist, expectedDuration)
			candidates = append(candidates, c)
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Score > candidates[j].Score
		})
		if len(candidates) > 0 && candidates[0].Score >= MatchThreshold {
			break
		}
	}

	return candidates, nil
}

func (d *Downloader) runSearch(ctx context.Context, query string) ([]ytdlpEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"--dump-json", "--no-download",
		"-f", ytdlpFormat,
		query,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("yt-dlp search timed out after %s", searchTimeout)
		}
		return nil, fmt.Errorf("yt-dlp search failed: %s", truncate(stderr.String(), 200))
	}

	var entries []ytdlpEntry
	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e ytdlpEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Download searches for the track and downloads the best match as MP3.
func (d *Downloader) Download(ctx context.Context, artist, title string, expectedDuration float64) (*DownloadResult, error) {
	candidates, err := d.Search(ctx, artist, title, expectedDuration)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("No search results found")
	}

	best := candidates[0]
	if best.Score < MatchThreshold {
		var summary []string
		for i, c := range candidates {
			if i >= 3 {
				break
			}
			summary = append(summary, fmt.Sprintf("%q by %q (score %.0f)", c.Title, c.Uploader, c.Score))
		}
		return nil, fmt.Errorf("No good match (best score: %.0f < %.0f). Candidates: %s",
			best.Score, MatchThreshold, strings.Join(summary, "; "))
	}

	logger.Info("Downloading audio", logger.Fields{
		"video_id": best.VideoID,
		"title":    best.Title,
		"uploader": best.Uploader,
		"score":    best.Score,
	})

	if err := os.MkdirAll(d.audioDir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}

	safeName := safeFileName(artist, title)
	outTemplate := filepath.Join(d.audioDir, safeName+".%(ext)s")

	dlCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	cmd := exec.CommandContext(dlCtx, "yt-dlp",
		"-f", ytdlpFormat,
		"-x", "--audio-format", "mp3", "--audio-quality", "0",
		"-o", outTemplate,
		"--no-playlist", "--no-warnings",
		best.URL,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if dlCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("Download timed out")
		}
		return nil, fmt.Errorf("yt-dlp download failed: %s", truncate(stderr.String(), 200))
	}

	matches, _ := filepath.Glob(filepath.Join(d.audioDir, safeName+".*"))
	if len(matches) == 0 {
		return nil, fmt.Errorf("Download completed but file not found")
	}

	log.Printf("✅ Downloaded %s", filepath.Base(matches[0]))
	return &DownloadResult{FilePath: matches[0], Candidate: best}, nil
}

// safeFileName builds "{artist} - {title}" with path separators replaced,
// truncated to 100 characters.
func safeFileName(artist, title string) string {
	name := fmt.Sprintf("%s - %s", artist, title)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n]
	}
	return s
}
