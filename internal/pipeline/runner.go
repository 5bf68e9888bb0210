package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orin-music/orin-api/internal/database"
	"github.com/orin-music/orin-api/internal/events"
	"github.com/orin-music/orin-api/internal/lrc"
	"github.com/orin-music/orin-api/internal/segmenter"
)

// ErrAlreadyRunning is returned when a second run is started while one is
// active.
var ErrAlreadyRunning = fmt.Errorf("a pipeline run is already in progress")

// maxStatusErrors bounds the error tail kept in the status snapshot.
const maxStatusErrors = 10

// Catalog supplies curated tracks to a run.
type Catalog interface {
	AllTracks(genre string) ([]database.Track, error)
	TracksByIDs(ids []int64) ([]database.Track, error)
}

// LedgerStore records per-track outcomes durably.
type LedgerStore interface {
	ProcessedIDs(source string, includeFailed bool) (map[int64]bool, error)
	MarkProcessed(source string, trackID int64, status, errorMessage string) error
}

// TrackRunner is the per-track processor, swappable in tests.
type TrackRunner interface {
	Process(ctx context.Context, track TrackInfo, opts ProcessOptions) TrackResult
}

// BatchSegmenter pre-segments lyrics in bulk ahead of the per-track phase.
type BatchSegmenter interface {
	SegmentBatch(ctx context.Context, songs []segmenter.BatchSong) segmenter.BatchResult
}

// Unloader frees heavyweight resources at the end of a run.
type Unloader interface {
	Unload()
}

// RunRecorder receives run-level metrics when a pipeline run completes.
type RunRecorder interface {
	RecordPipelineRun(processed, skipped, segmentsIndexed int, duration time.Duration)
}

// StartOptions control a pipeline run.
type StartOptions struct {
	Source    string
	Genre     string
	Limit     int
	DryRun    bool
	Reprocess bool
	// TrackIDs selects specific tracks, bypassing the ledger filter.
	TrackIDs []int64
}

// Progress counts the run so far.
type Progress struct {
	Processed       int `json:"processed"`
	Skipped         int `json:"skipped"`
	Total           int `json:"total"`
	SegmentsIndexed int `json:"segments_indexed"`
}

// Status is the snapshot served by the status endpoint.
type Status struct {
	Running      bool           `json:"running"`
	TaskID       string         `json:"task_id,omitempty"`
	CurrentTrack map[string]any `json:"current_track,omitempty"`
	Progress     Progress       `json:"progress"`
	Errors       []string       `json:"errors,omitempty"`
}

// Runner drives full pipeline runs: select tracks, batch-segment, process
// each track, record outcomes, emit progress events.
type Runner struct {
	Catalog        Catalog
	Ledger         LedgerStore
	Processor      TrackRunner
	BatchSegmenter BatchSegmenter // nil disables the batch phase
	Bus            *events.Bus
	Embedder       Unloader    // optional
	Metrics        RunRecorder // optional
	OutputDir      string
	BatchSize      int

	mu           sync.Mutex
	running      bool
	taskID       string
	stop         chan struct{}
	currentTrack map[string]any
	progress     Progress
	errors       []string
}

// Start selects the tracks for a run and launches it in the background.
// Returns the task id and the number of tracks selected.
func (r *Runner) Start(opts StartOptions) (string, int, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return "", 0, ErrAlreadyRunning
	}

	tracks, err := r.selectTracks(opts)
	if err != nil {
		r.mu.Unlock()
		return "", 0, err
	}

	taskID := uuid.New().String()
	r.running = true
	r.taskID = taskID
	r.stop = make(chan struct{})
	r.currentTrack = nil
	r.progress = Progress{Total: len(tracks)}
	r.errors = nil
	r.mu.Unlock()

	r.Bus.Emit("pipeline_started", map[string]any{
		"task_id":      taskID,
		"total_tracks": len(tracks),
		"source":       opts.Source,
		"genre":        opts.Genre,
	})

	go r.run(taskID, tracks, opts)
	return taskID, len(tracks), nil
}

// Stop requests the current run to halt at the next checkpoint.
func (r *Runner) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return false
	}
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	return true
}

// Status returns a copy of the run state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{
		Running:  r.running,
		TaskID:   r.taskID,
		Progress: r.progress,
	}
	if r.currentTrack != nil {
		st.CurrentTrack = r.currentTrack
	}
	if n := len(r.errors); n > 0 {
		tail := r.errors
		if n > maxStatusErrors {
			tail = tail[n-maxStatusErrors:]
		}
		st.Errors = append([]string(nil), tail...)
	}
	return st
}

func (r *Runner) selectTracks(opts StartOptions) ([]TrackInfo, error) {
	if len(opts.TrackIDs) > 0 {
		rows, err := r.Catalog.TracksByIDs(opts.TrackIDs)
		if err != nil {
			return nil, err
		}
		var tracks []TrackInfo
		for _, row := range rows {
			tracks = append(tracks, toTrackInfo(row, opts.Source))
		}
		return tracks, nil
	}

	rows, err := r.Catalog.AllTracks(opts.Genre)
	if err != nil {
		return nil, err
	}

	var done map[int64]bool
	if !opts.Reprocess {
		done, err = r.Ledger.ProcessedIDs(opts.Source, true)
		if err != nil {
			return nil, err
		}
	}

	var tracks []TrackInfo
	for _, row := range rows {
		if done[row.ID] {
			continue
		}
		tracks = append(tracks, toTrackInfo(row, opts.Source))
		if opts.Limit > 0 && len(tracks) >= opts.Limit {
			break
		}
	}
	return tracks, nil
}

func toTrackInfo(row database.Track, source string) TrackInfo {
	return TrackInfo{
		ID:           row.ID,
		Title:        row.Name,
		Artist:       row.ArtistName,
		Album:        row.AlbumName,
		Genre:        row.Genre,
		Duration:     row.Duration,
		SyncedLyrics: row.SyncedLyrics,
		Source:       source,
	}
}

func (r *Runner) stopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

func (r *Runner) run(taskID string, tracks []TrackInfo, opts StartOptions) {
	ctx := context.Background()
	started := time.Now()
	defer r.finish()

	log.Printf("🚀 Pipeline run %s: %d tracks (source=%s genre=%s dry_run=%v)",
		taskID, len(tracks), opts.Source, opts.Genre, opts.DryRun)

	cache, rateLimited := r.batchPhase(ctx, taskID, tracks)
	if rateLimited {
		return
	}

	var dryRunResults []map[string]any

	for i, track := range tracks {
		if r.stopped() {
			r.Bus.Emit("pipeline_stopped", map[string]any{
				"task_id": taskID,
				"reason":  "user_requested",
			})
			log.Printf("🛑 Pipeline run %s stopped by user", taskID)
			return
		}

		current := map[string]any{
			"id":     track.ID,
			"title":  track.Title,
			"artist": track.Artist,
			"index":  i + 1,
			"total":  len(tracks),
		}
		r.mu.Lock()
		r.currentTrack = current
		r.mu.Unlock()
		r.Bus.Emit("track_start", current)

		procOpts := ProcessOptions{DryRun: opts.DryRun}
		if cached, ok := cache[track.ID]; ok {
			procOpts.CachedSegments = cached
		}
		result := r.Processor.Process(ctx, track, procOpts)

		if result.RateLimited {
			r.Bus.Emit("rate_limited", map[string]any{
				"task_id":             taskID,
				"retry_after_seconds": int(result.RetryAfter.Seconds()),
				"message":             strings.Join(result.Errors, "; "),
			})
			log.Printf("⏳ Rate limited, stopping run %s (retry in %s)", taskID, result.RetryAfter)
			return
		}

		r.mu.Lock()
		r.errors = append(r.errors, result.Errors...)
		r.mu.Unlock()

		switch {
		case result.Skipped:
			r.bumpProgress(func(p *Progress) { p.Skipped++ })
			r.Bus.Emit("track_error", map[string]any{
				"track_id": track.ID,
				"error":    result.SkipReason,
			})
			if !opts.DryRun {
				r.mark(track, database.StatusSkipped, result.SkipReason)
			}

		case result.SegmentsIndexed == 0:
			r.bumpProgress(func(p *Progress) { p.Skipped++ })
			r.Bus.Emit("track_error", map[string]any{
				"track_id": track.ID,
				"errors":   result.Errors,
			})
			if !opts.DryRun {
				r.mark(track, database.StatusFailed, strings.Join(result.Errors, "; "))
			}

		default:
			r.bumpProgress(func(p *Progress) {
				p.Processed++
				p.SegmentsIndexed += result.SegmentsIndexed
			})
			data := map[string]any{
				"track_id":         track.ID,
				"segments_indexed": result.SegmentsIndexed,
			}
			if opts.DryRun {
				data["dry_run"] = true
			}
			r.Bus.Emit("track_complete", data)

			if opts.DryRun {
				if result.DryRunData != nil {
					dryRunResults = append(dryRunResults, result.DryRunData)
				}
			} else {
				r.mark(track, database.StatusSuccess, "")
			}
		}
	}

	if opts.DryRun && len(dryRunResults) > 0 {
		r.saveDryRunResults(dryRunResults)
	}

	st := r.Status()
	r.Bus.Emit("pipeline_complete", map[string]any{
		"task_id":          taskID,
		"processed":        st.Progress.Processed,
		"skipped":          st.Progress.Skipped,
		"segments_indexed": st.Progress.SegmentsIndexed,
	})
	if r.Metrics != nil {
		r.Metrics.RecordPipelineRun(st.Progress.Processed, st.Progress.Skipped, st.Progress.SegmentsIndexed, time.Since(started))
	}
	log.Printf("✅ Pipeline run %s complete: %d processed, %d skipped, %d segments",
		taskID, st.Progress.Processed, st.Progress.Skipped, st.Progress.SegmentsIndexed)
}

// batchPhase pre-segments lyrics in batches so the per-track phase works
// from cache. Returns the cache and whether the run stopped on a rate limit.
func (r *Runner) batchPhase(ctx context.Context, taskID string, tracks []TrackInfo) (map[int64]*segmenter.SongResult, bool) {
	cache := make(map[int64]*segmenter.SongResult)
	if r.BatchSegmenter == nil || len(tracks) == 0 {
		return cache, false
	}

	batchSize := r.BatchSize
	if batchSize <= 0 {
		batchSize = segmenter.BatchSize
	}

	var eligible []segmenter.BatchSong
	for _, t := range tracks {
		parsed := lrc.Parse(t.SyncedLyrics)
		if parsed.TotalLines() < minLyricLines {
			continue
		}
		eligible = append(eligible, segmenter.BatchSong{
			Lyrics:  parsed.PlainLyrics(),
			Title:   t.Title,
			Artist:  t.Artist,
			TrackID: t.ID,
		})
	}
	if len(eligible) == 0 {
		return cache, false
	}

	totalBatches := (len(eligible) + batchSize - 1) / batchSize
	r.Bus.Emit("batch_segmentation_started", map[string]any{
		"task_id":      taskID,
		"total_tracks": len(eligible),
		"batch_size":   batchSize,
	})

	for b := 0; b < totalBatches; b++ {
		if r.stopped() {
			r.Bus.Emit("pipeline_stopped", map[string]any{
				"task_id": taskID,
				"reason":  "user_requested",
			})
			return cache, true
		}

		start := b * batchSize
		end := start + batchSize
		if end > len(eligible) {
			end = len(eligible)
		}

		result := r.BatchSegmenter.SegmentBatch(ctx, eligible[start:end])
		if result.RetryAfter > 0 {
			r.Bus.Emit("rate_limited", map[string]any{
				"task_id":             taskID,
				"retry_after_seconds": int(result.RetryAfter.Seconds()),
				"message":             fmt.Sprintf("Rate limited: retry in %s", formatRetry(result.RetryAfter)),
			})
			log.Printf("⏳ Rate limited during batch segmentation, stopping run %s", taskID)
			return cache, true
		}

		for i := range result.SongResults {
			sr := result.SongResults[i]
			cache[sr.TrackID] = &sr
		}

		r.Bus.Emit("batch_segmentation_progress", map[string]any{
			"task_id":          taskID,
			"batch":            b + 1,
			"total_batches":    totalBatches,
			"tracks_segmented": len(cache),
		})
	}

	r.Bus.Emit("batch_segmentation_complete", map[string]any{
		"task_id":       taskID,
		"tracks_cached": len(cache),
	})
	log.Printf("📊 Batch segmentation cached %d tracks", len(cache))
	return cache, false
}

func (r *Runner) bumpProgress(fn func(*Progress)) {
	r.mu.Lock()
	fn(&r.progress)
	r.mu.Unlock()
}

func (r *Runner) mark(track TrackInfo, status, message string) {
	if err := r.Ledger.MarkProcessed(track.Source, track.ID, status, message); err != nil {
		log.Printf("⚠️ Could not record track %d in ledger: %v", track.ID, err)
	}
}

func (r *Runner) finish() {
	if rec := recover(); rec != nil {
		r.mu.Lock()
		taskID := r.taskID
		r.mu.Unlock()
		r.Bus.Emit("pipeline_error", map[string]any{
			"task_id": taskID,
			"error":   fmt.Sprintf("%v", rec),
		})
		log.Printf("❌ Pipeline run %s panicked: %v", taskID, rec)
	}

	if r.Embedder != nil {
		r.Embedder.Unload()
	}

	r.mu.Lock()
	r.running = false
	r.currentTrack = nil
	r.mu.Unlock()
}

func (r *Runner) saveDryRunResults(results []map[string]any) {
	if r.OutputDir == "" {
		return
	}
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		log.Printf("⚠️ Could not create output dir: %v", err)
		return
	}

	name := fmt.Sprintf("segmentation_results_%s.json", time.Now().Format("20060102_150405"))
	path := filepath.Join(r.OutputDir, name)

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		log.Printf("⚠️ Could not marshal dry-run results: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("⚠️ Could not save dry-run results: %v", err)
		return
	}
	log.Printf("💾 Saved dry-run segmentation results to %s", path)
}
