package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orin-music/orin-api/internal/audio"
	"github.com/orin-music/orin-api/internal/database"
	"github.com/orin-music/orin-api/internal/events"
	"github.com/orin-music/orin-api/internal/lrclib"
)

type fakeCurated struct {
	mu       sync.Mutex
	tracks   []*database.Track
	skipped  []*database.SkippedTrack
	insertFn func(t *database.Track) error
}

func (f *fakeCurated) UpsertPlaylist(url, name, genre string) (*database.Playlist, error) {
	return &database.Playlist{ID: 1, YouTubeURL: url, Name: name, Genre: genre}, nil
}

func (f *fakeCurated) InsertTrack(t *database.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertFn != nil {
		if err := f.insertFn(t); err != nil {
			return err
		}
	}
	f.tracks = append(f.tracks, t)
	return nil
}

func (f *fakeCurated) InsertSkippedTrack(st *database.SkippedTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skipped = append(f.skipped, st)
	return nil
}

type fakePlaylistSource struct {
	videos []audio.PlaylistVideo
	title  string
	err    error
}

func (f *fakePlaylistSource) ExtractVideos(_ context.Context, _ string) ([]audio.PlaylistVideo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.videos, nil
}

func (f *fakePlaylistSource) Title(_ context.Context, _ string) (string, error) {
	return f.title, nil
}

type fakeLyricsFinder struct {
	byTitle map[string]*lrclib.Lyrics
}

func (f *fakeLyricsFinder) FindSyncedLyrics(_ context.Context, _, title string, _ float64) (*lrclib.Lyrics, error) {
	if l, ok := f.byTitle[title]; ok {
		return l, nil
	}
	return nil, errors.New("no synced lyrics found")
}

func newTestImporter(videos []audio.PlaylistVideo, lyrics map[string]*lrclib.Lyrics) (*Importer, *fakeCurated, *events.Bus) {
	bus := events.NewBus()
	curated := &fakeCurated{}
	im := &Importer{
		Curated:  curated,
		Playlist: &fakePlaylistSource{videos: videos, title: "Afro Hits 2024"},
		Lyrics:   &fakeLyricsFinder{byTitle: lyrics},
		Bus:      bus,
	}
	return im, curated, bus
}

func TestImporterHappyFlow(t *testing.T) {
	videos := []audio.PlaylistVideo{
		{VideoID: "v1", Title: "Burna Boy - Last Last (Official Video)", Duration: 172},
		{VideoID: "v2", Title: "some unparseable clip"},
		{VideoID: "v3", Title: "Rema - Calm Down", Duration: 239},
	}
	lyrics := map[string]*lrclib.Lyrics{
		"Last Last": {ID: 10, AlbumName: "Love, Damini", Duration: 172.5, SyncedLyrics: "[00:01.00]x"},
	}
	im, curated, bus := newTestImporter(videos, lyrics)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	taskID, err := im.Start(ImportOptions{PlaylistURL: "https://yt/playlist", Genre: "Afrobeats"})
	require.NoError(t, err)
	assert.NotEmpty(t, taskID)

	evs := collectEvents(t, sub, "import_complete", 5*time.Second)
	types := eventTypes(evs)
	assert.Equal(t, "import_fetching", types[0])
	assert.Equal(t, "import_started", types[1])
	assert.Contains(t, types, "import_track_imported")
	assert.Contains(t, types, "import_track_skipped")

	final := evs[len(evs)-1]
	assert.Equal(t, 3, final.Data["total_videos"])
	assert.Equal(t, 1, final.Data["imported"])
	assert.Equal(t, 2, final.Data["skipped"])

	require.Len(t, curated.tracks, 1)
	track := curated.tracks[0]
	assert.Equal(t, "Burna Boy", track.ArtistName)
	assert.Equal(t, "Last Last", track.Name)
	assert.Equal(t, "afrobeats", track.Genre)
	assert.EqualValues(t, 10, track.LRCLibID)

	require.Len(t, curated.skipped, 2)
	reasons := []string{curated.skipped[0].Reason, curated.skipped[1].Reason}
	assert.Contains(t, reasons, ImportSkipUnparseable)
	assert.Contains(t, reasons, ImportSkipNoLyrics)
}

func TestImporterEmitsBothProcessingStages(t *testing.T) {
	videos := []audio.PlaylistVideo{
		{VideoID: "v1", Title: "Burna Boy - Last Last", Duration: 172},
	}
	lyrics := map[string]*lrclib.Lyrics{
		"Last Last": {ID: 10, SyncedLyrics: "[00:01.00]x"},
	}
	im, _, bus := newTestImporter(videos, lyrics)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	_, err := im.Start(ImportOptions{PlaylistURL: "u", Genre: "afrobeats"})
	require.NoError(t, err)

	evs := collectEvents(t, sub, "import_complete", 5*time.Second)

	var stages []string
	for _, ev := range evs {
		if ev.Type == "import_track_processing" {
			stages = append(stages, ev.Data["stage"].(string))
		}
	}
	assert.Equal(t, []string{"parsing", "searching_lyrics"}, stages)
}

func TestImporterDuplicateHandling(t *testing.T) {
	videos := []audio.PlaylistVideo{
		{VideoID: "v1", Title: "Wizkid - Essence", Duration: 183},
		{VideoID: "v2", Title: "Tems - Free Mind", Duration: 200},
	}
	lyrics := map[string]*lrclib.Lyrics{
		"Essence":   {ID: 1, SyncedLyrics: "[00:01.00]x"},
		"Free Mind": {ID: 2, SyncedLyrics: "[00:01.00]y"},
	}
	im, curated, bus := newTestImporter(videos, lyrics)
	curated.insertFn = func(t *database.Track) error {
		switch t.YouTubeVideoID {
		case "v1":
			return database.ErrDuplicateVideo
		case "v2":
			return database.ErrDuplicateSong
		}
		return nil
	}
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	_, err := im.Start(ImportOptions{PlaylistURL: "u", Genre: "afrobeats"})
	require.NoError(t, err)

	evs := collectEvents(t, sub, "import_complete", 5*time.Second)

	var reasons []string
	for _, ev := range evs {
		if ev.Type == "import_track_skipped" {
			reasons = append(reasons, ev.Data["reason"].(string))
		}
	}
	assert.Equal(t, []string{ImportSkipDuplicateVideo, ImportSkipDuplicateSong}, reasons)
	assert.Empty(t, curated.tracks)
}

func TestImporterDryRunWritesNothing(t *testing.T) {
	videos := []audio.PlaylistVideo{
		{VideoID: "v1", Title: "Burna Boy - Last Last", Duration: 172},
		{VideoID: "v2", Title: "garbage"},
	}
	lyrics := map[string]*lrclib.Lyrics{
		"Last Last": {ID: 10, SyncedLyrics: "[00:01.00]x"},
	}
	im, curated, bus := newTestImporter(videos, lyrics)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	_, err := im.Start(ImportOptions{PlaylistURL: "u", Genre: "afrobeats", DryRun: true})
	require.NoError(t, err)

	evs := collectEvents(t, sub, "import_complete", 5*time.Second)

	assert.Empty(t, curated.tracks)
	assert.Empty(t, curated.skipped)

	for _, ev := range evs {
		if ev.Type == "import_track_imported" {
			assert.Equal(t, true, ev.Data["dry_run"])
		}
	}
}

func TestImporterConcurrentStartRejected(t *testing.T) {
	// a playlist source that blocks keeps the first import running
	block := make(chan struct{})
	bus := events.NewBus()
	im := &Importer{
		Curated:  &fakeCurated{},
		Playlist: &blockingPlaylistSource{block: block},
		Lyrics:   &fakeLyricsFinder{},
		Bus:      bus,
	}

	_, err := im.Start(ImportOptions{PlaylistURL: "u"})
	require.NoError(t, err)

	_, err = im.Start(ImportOptions{PlaylistURL: "u"})
	assert.ErrorIs(t, err, ErrImportRunning)

	close(block)
}

type blockingPlaylistSource struct {
	block chan struct{}
}

func (b *blockingPlaylistSource) ExtractVideos(_ context.Context, _ string) ([]audio.PlaylistVideo, error) {
	<-b.block
	return nil, errors.New("done")
}

func (b *blockingPlaylistSource) Title(_ context.Context, _ string) (string, error) {
	return "", errors.New("done")
}

func TestImporterExtractionFailure(t *testing.T) {
	bus := events.NewBus()
	im := &Importer{
		Curated:  &fakeCurated{},
		Playlist: &fakePlaylistSource{err: errors.New("playlist extraction timed out")},
		Lyrics:   &fakeLyricsFinder{},
		Bus:      bus,
	}
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	_, err := im.Start(ImportOptions{PlaylistURL: "u"})
	require.NoError(t, err)

	evs := collectEvents(t, sub, "import_error", 5*time.Second)
	final := evs[len(evs)-1]
	assert.Contains(t, final.Data["error"].(string), "playlist extraction")

	require.Eventually(t, func() bool {
		return !im.Status().Running
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotEmpty(t, im.Status().Errors)
}
