package audio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	playlistTimeout      = 120 * time.Second
	playlistTitleTimeout = 30 * time.Second
)

// PlaylistVideo is one entry from a flat playlist listing.
type PlaylistVideo struct {
	VideoID  string
	Title    string
	Uploader string
	Duration float64
	URL      string
}

// ExtractPlaylistVideos lists the videos in a YouTube playlist without
// downloading anything.
func ExtractPlaylistVideos(ctx context.Context, playlistURL string) ([]PlaylistVideo, error) {
	ctx, cancel := context.WithTimeout(ctx, playlistTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"--flat-playlist", "--dump-json",
		playlistURL,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("playlist extraction timed out after %s", playlistTimeout)
		}
		return nil, fmt.Errorf("playlist extraction failed: %s", truncate(stderr.String(), 200))
	}

	var videos []PlaylistVideo
	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry struct {
			ID       string  `json:"id"`
			Title    string  `json:"title"`
			Uploader string  `json:"uploader"`
			Duration float64 `json:"duration"`
			URL      string  `json:"url"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.ID == "" {
			continue
		}
		url := entry.URL
		if url == "" {
			url = "https://www.youtube.com/watch?v=" + entry.ID
		}
		videos = append(videos, PlaylistVideo{
			VideoID:  entry.ID,
			Title:    entry.Title,
			Uploader: entry.Uploader,
			Duration: entry.Duration,
			URL:      url,
		})
	}

	return videos, nil
}

// PlaylistTitle fetches the playlist's display title.
func PlaylistTitle(ctx context.Context, playlistURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, playlistTitleTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"--flat-playlist",
		"--print", "%(playlist_title)s",
		"--playlist-items", "1",
		playlistURL,
	)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("playlist title lookup failed: %w", err)
	}

	title := strings.TrimSpace(stdout.String())
	if title == "" || title == "NA" {
		return "", fmt.Errorf("playlist title unavailable")
	}
	return title, nil
}
