package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

const (
	probeTimeout = 30 * time.Second
	sliceTimeout = 60 * time.Second

	sliceCodec   = "libopus"
	sliceBitrate = "96k"

	// SnippetExt is the container extension for sliced snippets.
	SnippetExt = ".opus"
)

// ProbeDuration returns the duration in seconds of an audio file via ffprobe.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, fmt.Errorf("ffprobe timed out on %s", filepath.Base(path))
		}
		return 0, fmt.Errorf("ffprobe failed on %s: %w", filepath.Base(path), err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &probe); err != nil {
		return 0, fmt.Errorf("ffprobe output parse: %w", err)
	}

	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w", probe.Format.Duration, err)
	}
	return duration, nil
}

// SliceResult describes a cut snippet on disk.
type SliceResult struct {
	FilePath string
	Duration float64
}

// Slice cuts [start, end) seconds from the input file into an Opus snippet.
func Slice(ctx context.Context, inputPath, outputPath string, start, end float64) (*SliceResult, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create snippets dir: %w", err)
	}

	sliceCtx, cancel := context.WithTimeout(ctx, sliceTimeout)
	defer cancel()

	cmd := exec.CommandContext(sliceCtx, "ffmpeg",
		"-y",
		"-i", inputPath,
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-c:a", sliceCodec,
		"-b:a", sliceBitrate,
		"-vn",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if sliceCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("ffmpeg slice timed out on %s", filepath.Base(inputPath))
		}
		return nil, fmt.Errorf("ffmpeg slice failed: %s", truncate(stderr.String(), 200))
	}

	if _, err := os.Stat(outputPath); err != nil {
		return nil, fmt.Errorf("slice completed but output missing: %s", filepath.Base(outputPath))
	}

	duration, err := ProbeDuration(ctx, outputPath)
	if err != nil {
		// snippet is usable even if the probe fails
		duration = end - start
	}

	return &SliceResult{FilePath: outputPath, Duration: duration}, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
