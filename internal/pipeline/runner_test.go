package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orin-music/orin-api/internal/database"
	"github.com/orin-music/orin-api/internal/events"
	"github.com/orin-music/orin-api/internal/segmenter"
)

type fakeCatalog struct {
	tracks []database.Track
}

func (f *fakeCatalog) AllTracks(genre string) ([]database.Track, error) {
	if genre == "" {
		return f.tracks, nil
	}
	var out []database.Track
	for _, t := range f.tracks {
		if t.Genre == genre {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeCatalog) TracksByIDs(ids []int64) ([]database.Track, error) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []database.Track
	for _, t := range f.tracks {
		if want[t.ID] {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeLedger struct {
	mu        sync.Mutex
	processed map[int64]bool
	marks     map[int64]string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{processed: make(map[int64]bool), marks: make(map[int64]string)}
}

func (f *fakeLedger) ProcessedIDs(_ string, _ bool) (map[int64]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]bool, len(f.processed))
	for k, v := range f.processed {
		out[k] = v
	}
	return out, nil
}

func (f *fakeLedger) MarkProcessed(_ string, trackID int64, status, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marks[trackID] = status
	return nil
}

type fakeTrackRunner struct {
	mu      sync.Mutex
	results map[int64]TrackResult
	seen    []int64
	block   chan struct{} // when set, Process waits per call
}

func (f *fakeTrackRunner) Process(_ context.Context, track TrackInfo, _ ProcessOptions) TrackResult {
	f.mu.Lock()
	f.seen = append(f.seen, track.ID)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if r, ok := f.results[track.ID]; ok {
		return r
	}
	return TrackResult{SegmentsIndexed: 1}
}

type fakeBatchSegmenter struct {
	result segmenter.BatchResult
	calls  int
}

func (f *fakeBatchSegmenter) SegmentBatch(_ context.Context, songs []segmenter.BatchSong) segmenter.BatchResult {
	f.calls++
	if f.result.RetryAfter > 0 || f.result.SongResults != nil {
		return f.result
	}
	out := segmenter.BatchResult{}
	for _, s := range songs {
		out.SongResults = append(out.SongResults, segmenter.SongResult{
			TrackID:  s.TrackID,
			Segments: goodSegments(),
			Genre:    "afrobeats",
		})
	}
	return out
}

func catalogTracks(ids ...int64) []database.Track {
	var out []database.Track
	for _, id := range ids {
		out = append(out, database.Track{
			ID:           id,
			Name:         "Song",
			ArtistName:   "Artist",
			Genre:        "afrobeats",
			Duration:     22,
			SyncedLyrics: sampleLRC,
		})
	}
	return out
}

func collectEvents(t *testing.T, sub *events.Subscriber, until string, timeout time.Duration) []events.Event {
	t.Helper()
	var got []events.Event
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-sub.C:
			got = append(got, ev)
			if ev.Type == until {
				return got
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s, saw %d events", until, len(got))
		}
	}
}

func eventTypes(evs []events.Event) []string {
	var out []string
	for _, e := range evs {
		out = append(out, e.Type)
	}
	return out
}

func newTestRunner(tracks []database.Track) (*Runner, *fakeLedger, *fakeTrackRunner, *events.Bus) {
	bus := events.NewBus()
	ledger := newFakeLedger()
	proc := &fakeTrackRunner{results: make(map[int64]TrackResult)}
	r := &Runner{
		Catalog:   &fakeCatalog{tracks: tracks},
		Ledger:    ledger,
		Processor: proc,
		Bus:       bus,
	}
	return r, ledger, proc, bus
}

func TestRunnerHappyFlow(t *testing.T) {
	r, ledger, proc, bus := newTestRunner(catalogTracks(1, 2))
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	taskID, total, err := r.Start(StartOptions{Source: "curated"})
	require.NoError(t, err)
	assert.NotEmpty(t, taskID)
	assert.Equal(t, 2, total)

	evs := collectEvents(t, sub, "pipeline_complete", 5*time.Second)
	types := eventTypes(evs)
	assert.Equal(t, "pipeline_started", types[0])
	assert.Contains(t, types, "track_start")
	assert.Contains(t, types, "track_complete")

	final := evs[len(evs)-1]
	assert.Equal(t, 2, final.Data["processed"])
	assert.Equal(t, 2, final.Data["segments_indexed"])

	assert.ElementsMatch(t, []int64{1, 2}, proc.seen)
	assert.Equal(t, database.StatusSuccess, ledger.marks[1])
	assert.Equal(t, database.StatusSuccess, ledger.marks[2])
}

func TestRunnerRejectsConcurrentStart(t *testing.T) {
	r, _, proc, bus := newTestRunner(catalogTracks(1))
	proc.block = make(chan struct{})
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	_, _, err := r.Start(StartOptions{Source: "curated"})
	require.NoError(t, err)

	_, _, err = r.Start(StartOptions{Source: "curated"})
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(proc.block)
	collectEvents(t, sub, "pipeline_complete", 5*time.Second)
	require.Eventually(t, func() bool {
		return !r.Status().Running
	}, 2*time.Second, 10*time.Millisecond)

	// a finished run frees the slot
	_, _, err = r.Start(StartOptions{Source: "curated", Reprocess: true})
	assert.NoError(t, err)
}

func TestRunnerSkipsProcessedTracks(t *testing.T) {
	r, ledger, _, _ := newTestRunner(catalogTracks(1, 2, 3))
	ledger.processed[2] = true

	_, total, err := r.Start(StartOptions{Source: "curated"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestRunnerExplicitTrackIDsBypassLedger(t *testing.T) {
	r, ledger, proc, bus := newTestRunner(catalogTracks(1, 2, 3))
	ledger.processed[2] = true
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	_, total, err := r.Start(StartOptions{Source: "curated", TrackIDs: []int64{2, 3}})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	collectEvents(t, sub, "pipeline_complete", 5*time.Second)
	assert.ElementsMatch(t, []int64{2, 3}, proc.seen)
}

func TestRunnerLimitCapsSelection(t *testing.T) {
	r, _, _, _ := newTestRunner(catalogTracks(1, 2, 3, 4))

	_, total, err := r.Start(StartOptions{Source: "curated", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestRunnerStop(t *testing.T) {
	r, _, proc, bus := newTestRunner(catalogTracks(1, 2, 3))
	proc.block = make(chan struct{})
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	_, _, err := r.Start(StartOptions{Source: "curated"})
	require.NoError(t, err)

	// wait until the first track is in flight before stopping
	require.Eventually(t, func() bool {
		proc.mu.Lock()
		defer proc.mu.Unlock()
		return len(proc.seen) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.True(t, r.Stop())
	proc.block <- struct{}{} // release the in-flight track

	evs := collectEvents(t, sub, "pipeline_stopped", 5*time.Second)
	final := evs[len(evs)-1]
	assert.Equal(t, "user_requested", final.Data["reason"])

	// only the in-flight track ran
	assert.Len(t, proc.seen, 1)
}

func TestRunnerStopWhenIdle(t *testing.T) {
	r, _, _, _ := newTestRunner(nil)
	assert.False(t, r.Stop())
}

func TestRunnerRateLimitStopsRun(t *testing.T) {
	r, ledger, proc, bus := newTestRunner(catalogTracks(1, 2))
	proc.results[1] = TrackResult{
		RateLimited: true,
		RetryAfter:  2 * time.Minute,
		Errors:      []string{"Rate limited: retry in 2m 0s"},
	}
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	_, _, err := r.Start(StartOptions{Source: "curated"})
	require.NoError(t, err)

	evs := collectEvents(t, sub, "rate_limited", 5*time.Second)
	final := evs[len(evs)-1]
	assert.Equal(t, 120, final.Data["retry_after_seconds"])

	// track 2 never ran, nothing recorded for track 1
	assert.Equal(t, []int64{1}, proc.seen)
	assert.Empty(t, ledger.marks)
}

func TestRunnerMarksFailures(t *testing.T) {
	r, ledger, proc, bus := newTestRunner(catalogTracks(1))
	proc.results[1] = TrackResult{Errors: []string{"embed failed: boom"}}
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	_, _, err := r.Start(StartOptions{Source: "curated"})
	require.NoError(t, err)

	collectEvents(t, sub, "pipeline_complete", 5*time.Second)
	assert.Equal(t, database.StatusFailed, ledger.marks[1])

	require.Eventually(t, func() bool {
		return !r.Status().Running
	}, 2*time.Second, 10*time.Millisecond)

	st := r.Status()
	assert.Equal(t, 1, st.Progress.Skipped)
	assert.Contains(t, st.Errors, "embed failed: boom")
}

func TestRunnerDryRunWritesNothingToLedger(t *testing.T) {
	r, ledger, proc, bus := newTestRunner(catalogTracks(1, 2, 3))
	proc.results[1] = TrackResult{Skipped: true, SkipReason: "download_failed"}
	proc.results[2] = TrackResult{Errors: []string{"embed failed: boom"}}
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	_, _, err := r.Start(StartOptions{Source: "curated", DryRun: true})
	require.NoError(t, err)

	collectEvents(t, sub, "pipeline_complete", 5*time.Second)

	// skips and failures stay out of the ledger too
	assert.ElementsMatch(t, []int64{1, 2, 3}, proc.seen)
	assert.Empty(t, ledger.marks)
}

type runMetrics struct {
	processed, skipped, segments int
	duration                     time.Duration
}

type fakeRunRecorder struct {
	mu   sync.Mutex
	runs []runMetrics
}

func (f *fakeRunRecorder) RecordPipelineRun(processed, skipped, segmentsIndexed int, duration time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, runMetrics{processed, skipped, segmentsIndexed, duration})
}

func TestRunnerRecordsRunMetrics(t *testing.T) {
	r, _, proc, bus := newTestRunner(catalogTracks(1, 2))
	proc.results[2] = TrackResult{Skipped: true, SkipReason: "download_failed"}
	rec := &fakeRunRecorder{}
	r.Metrics = rec
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	_, _, err := r.Start(StartOptions{Source: "curated"})
	require.NoError(t, err)

	collectEvents(t, sub, "pipeline_complete", 5*time.Second)
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.runs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	run := rec.runs[0]
	assert.Equal(t, 1, run.processed)
	assert.Equal(t, 1, run.skipped)
	assert.Equal(t, 1, run.segments)
}

func TestRunnerBatchPhaseFeedsCache(t *testing.T) {
	r, _, _, bus := newTestRunner(catalogTracks(1, 2, 3))
	batch := &fakeBatchSegmenter{}
	r.BatchSegmenter = batch
	r.BatchSize = 2

	var cachedOpts []bool
	proc := &cacheTrackingRunner{record: &cachedOpts}
	r.Processor = proc

	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	_, _, err := r.Start(StartOptions{Source: "curated"})
	require.NoError(t, err)

	evs := collectEvents(t, sub, "pipeline_complete", 5*time.Second)
	types := eventTypes(evs)
	assert.Contains(t, types, "batch_segmentation_started")
	assert.Contains(t, types, "batch_segmentation_complete")
	assert.Equal(t, 2, batch.calls)

	for _, hadCache := range cachedOpts {
		assert.True(t, hadCache)
	}
}

type cacheTrackingRunner struct {
	mu     sync.Mutex
	record *[]bool
}

func (c *cacheTrackingRunner) Process(_ context.Context, _ TrackInfo, opts ProcessOptions) TrackResult {
	c.mu.Lock()
	*c.record = append(*c.record, opts.CachedSegments != nil)
	c.mu.Unlock()
	return TrackResult{SegmentsIndexed: 1}
}

func TestRunnerBatchRateLimitStopsBeforeTracks(t *testing.T) {
	r, _, proc, bus := newTestRunner(catalogTracks(1, 2))
	r.BatchSegmenter = &fakeBatchSegmenter{
		result: segmenter.BatchResult{RetryAfter: time.Minute},
	}
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	_, _, err := r.Start(StartOptions{Source: "curated"})
	require.NoError(t, err)

	collectEvents(t, sub, "rate_limited", 5*time.Second)
	assert.Empty(t, proc.seen)
}
