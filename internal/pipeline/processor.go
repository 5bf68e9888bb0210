package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/orin-music/orin-api/internal/audio"
	"github.com/orin-music/orin-api/internal/indexer"
	"github.com/orin-music/orin-api/internal/lrc"
	"github.com/orin-music/orin-api/internal/segmenter"
)

// minLyricLines is the smallest lyric count worth segmenting.
const minLyricLines = 4

// TrackInfo is the catalog row a pipeline run works on.
type TrackInfo struct {
	ID           int64
	Title        string
	Artist       string
	Album        string
	Genre        string
	Duration     float64
	SyncedLyrics string
	Source       string
}

// ProcessOptions tweak a single track run.
type ProcessOptions struct {
	DryRun bool
	// CachedSegments carries a batch segmentation result so the track does
	// not hit the LLM again.
	CachedSegments *segmenter.SongResult
}

// TrackResult is the outcome of one track.
type TrackResult struct {
	SegmentsIndexed int
	Skipped         bool
	SkipReason      string
	Errors          []string
	RateLimited     bool
	RetryAfter      time.Duration
	// DryRunData collects segmentation output when nothing is indexed.
	DryRunData map[string]any
}

// AudioSource finds and downloads the full track audio.
type AudioSource interface {
	Download(ctx context.Context, artist, title string, expectedDuration float64) (*audio.DownloadResult, error)
}

// SegmentEngine produces emotional segments from lyrics.
type SegmentEngine interface {
	SegmentLyrics(ctx context.Context, lyrics, title, artist string) segmenter.Result
	SegmentBatch(ctx context.Context, songs []segmenter.BatchSong) segmenter.BatchResult
}

// SnippetUploader pushes sliced snippets to object storage.
type SnippetUploader interface {
	UploadSnippet(ctx context.Context, localPath, snippetID string) (string, error)
}

// SnippetIndex stores snippet vectors.
type SnippetIndex interface {
	UpsertSnippets(ctx context.Context, vectors [][]float32, payloads []indexer.SnippetPayload) error
}

// TextEmbedder turns descriptions into vectors.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProbeFunc measures an audio file's duration.
type ProbeFunc func(ctx context.Context, path string) (float64, error)

// SliceFunc cuts a snippet out of the full audio.
type SliceFunc func(ctx context.Context, inputPath, outputPath string, start, end float64) (*audio.SliceResult, error)

// Processor runs one track end to end: lyrics, audio, segments, snippets,
// vectors.
type Processor struct {
	AudioDir    string
	SnippetsDir string

	Audio     AudioSource
	Probe     ProbeFunc
	Slice     SliceFunc
	Segmenter SegmentEngine
	Uploader  SnippetUploader // nil when object storage is not configured
	Embedder  TextEmbedder
	Index     SnippetIndex
	SkipLog   *audio.SkipLogger
}

// Process runs the full per-track flow. Rate limits surface in the result
// and are never slept on.
func (p *Processor) Process(ctx context.Context, track TrackInfo, opts ProcessOptions) TrackResult {
	parsed := lrc.Parse(track.SyncedLyrics)
	if parsed.TotalLines() < minLyricLines {
		p.skip(track, audio.SkippedSong{
			Reason: audio.SkipTooFewLines,
			Error:  fmt.Sprintf("only %d timestamped lines", parsed.TotalLines()),
		})
		return TrackResult{Skipped: true, SkipReason: audio.SkipTooFewLines}
	}

	var audioPath string
	var matchedURL string
	if !opts.DryRun {
		dl, err := p.Audio.Download(ctx, track.Artist, track.Title, track.Duration)
		if err != nil {
			p.skip(track, audio.SkippedSong{
				Reason: audio.SkipDownloadFailed,
				Error:  err.Error(),
			})
			return TrackResult{Skipped: true, SkipReason: audio.SkipDownloadFailed, Errors: []string{err.Error()}}
		}
		audioPath = dl.FilePath
		matchedURL = dl.Candidate.URL

		audioDuration, err := p.Probe(ctx, audioPath)
		if err != nil {
			p.cleanup(audioPath)
			p.skip(track, audio.SkippedSong{
				Reason: audio.SkipDownloadFailed,
				Error:  err.Error(),
				YTURL:  matchedURL,
			})
			return TrackResult{Skipped: true, SkipReason: audio.SkipDownloadFailed, Errors: []string{err.Error()}}
		}

		if ok, drift := audio.CheckVersionMatch(track.Duration, audioDuration, audio.DurationTolerance); !ok {
			p.cleanup(audioPath)
			p.skip(track, audio.SkippedSong{
				Reason:        audio.SkipVersionMismatch,
				LRCDuration:   track.Duration,
				AudioDuration: audioDuration,
				Drift:         drift,
				YTURL:         matchedURL,
			})
			return TrackResult{Skipped: true, SkipReason: audio.SkipVersionMismatch}
		}
	}

	genre, segments, segErr := p.segments(ctx, track, parsed, opts)
	if segErr != nil {
		if rr, ok := segErr.(*rateLimited); ok {
			p.cleanup(audioPath)
			// no skip log entry: the track is retryable once the window passes
			return TrackResult{
				RateLimited: true,
				RetryAfter:  rr.retryAfter,
				Errors:      []string{fmt.Sprintf("Rate limited: retry in %s", formatRetry(rr.retryAfter))},
			}
		}
		p.cleanup(audioPath)
		p.skip(track, audio.SkippedSong{
			Reason: audio.SkipSegmentationFailed,
			Error:  segErr.Error(),
			YTURL:  matchedURL,
		})
		return TrackResult{Skipped: true, SkipReason: audio.SkipSegmentationFailed, Errors: []string{segErr.Error()}}
	}

	valid, validationErrs := segmenter.ValidateSegments(segments, parsed.TotalLines())
	result := TrackResult{Errors: validationErrs}
	if track.Genre == "" {
		track.Genre = genre
	}

	if opts.DryRun {
		result.DryRunData = dryRunData(track, genre, valid)
	}

	var vectors [][]float32
	var payloads []indexer.SnippetPayload

	for _, seg := range valid {
		if err := lrc.ValidateSegmentLines(parsed, seg.StartLine, seg.EndLine); err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		start, end, ok := parsed.SegmentTimestamps(seg.StartLine, seg.EndLine)
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("no timestamps for lines %d-%d", seg.StartLine, seg.EndLine))
			continue
		}

		snippetID := uuid.New().String()
		snippetURL := "dry-run://" + snippetID

		if !opts.DryRun {
			outPath := filepath.Join(p.SnippetsDir, snippetID+audio.SnippetExt)
			sliced, err := p.Slice(ctx, audioPath, outPath, start, end)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("slice failed: %v", err))
				continue
			}

			if p.Uploader != nil {
				url, err := p.Uploader.UploadSnippet(ctx, sliced.FilePath, snippetID)
				p.cleanup(sliced.FilePath)
				if err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("upload failed: %v", err))
					continue
				}
				snippetURL = url
			} else {
				snippetURL = sliced.FilePath
			}
		}

		vector, err := p.Embedder.Embed(ctx, seg.AIDescription)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("embed failed: %v", err))
			continue
		}

		vectors = append(vectors, vector)
		payloads = append(payloads, indexer.SnippetPayload{
			SnippetID:        snippetID,
			SongTitle:        track.Title,
			Artist:           track.Artist,
			Album:            track.Album,
			Lyrics:           seg.Lyrics,
			AIDescription:    seg.AIDescription,
			SnippetURL:       snippetURL,
			StartTime:        start,
			EndTime:          end,
			PrimaryEmotion:   seg.PrimaryEmotion,
			SecondaryEmotion: seg.SecondaryEmotion,
			Energy:           seg.Energy,
			Tone:             seg.Tone,
			Genre:            track.Genre,
			TrackID:          track.ID,
		})
	}

	if len(vectors) > 0 && !opts.DryRun {
		if err := p.Index.UpsertSnippets(ctx, vectors, payloads); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("index failed: %v", err))
		} else {
			result.SegmentsIndexed = len(vectors)
		}
	} else if opts.DryRun {
		result.SegmentsIndexed = len(vectors)
	}

	p.cleanup(audioPath)
	return result
}

// segments returns the segmentation output, from cache or the LLM.
func (p *Processor) segments(ctx context.Context, track TrackInfo, parsed *lrc.Parsed, opts ProcessOptions) (string, []segmenter.Segment, error) {
	if opts.CachedSegments != nil {
		cached := opts.CachedSegments
		if cached.Error != "" {
			return "", nil, fmt.Errorf("%s", cached.Error)
		}
		return cached.Genre, cached.Segments, nil
	}

	res := p.Segmenter.SegmentLyrics(ctx, parsed.PlainLyrics(), track.Title, track.Artist)
	if res.RetryAfter > 0 {
		return "", nil, &rateLimited{retryAfter: res.RetryAfter}
	}
	if !res.Success {
		return "", nil, fmt.Errorf("%s", res.Error)
	}
	return res.Genre, res.Segments, nil
}

type rateLimited struct {
	retryAfter time.Duration
}

func (r *rateLimited) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", formatRetry(r.retryAfter))
}

func formatRetry(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", m, s)
}

func (p *Processor) skip(track TrackInfo, entry audio.SkippedSong) {
	if p.SkipLog == nil {
		return
	}
	entry.TrackID = track.ID
	entry.Title = track.Title
	entry.Artist = track.Artist
	if err := p.SkipLog.Log(entry); err != nil {
		log.Printf("⚠️ Could not write skip log: %v", err)
	}
}

func (p *Processor) cleanup(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("⚠️ Could not remove %s: %v", filepath.Base(path), err)
	}
}

func dryRunData(track TrackInfo, genre string, segments []segmenter.Segment) map[string]any {
	segs := make([]map[string]any, 0, len(segments))
	for _, s := range segments {
		segs = append(segs, map[string]any{
			"start_line":        s.StartLine,
			"end_line":          s.EndLine,
			"lyrics":            s.Lyrics,
			"ai_description":    s.AIDescription,
			"primary_emotion":   s.PrimaryEmotion,
			"secondary_emotion": s.SecondaryEmotion,
			"energy":            s.Energy,
			"tone":              s.Tone,
		})
	}
	return map[string]any{
		"track_id": track.ID,
		"title":    track.Title,
		"artist":   track.Artist,
		"genre":    genre,
		"segments": segs,
	}
}
