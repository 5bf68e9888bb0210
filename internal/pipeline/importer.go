package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/orin-music/orin-api/internal/audio"
	"github.com/orin-music/orin-api/internal/database"
	"github.com/orin-music/orin-api/internal/events"
	"github.com/orin-music/orin-api/internal/lrclib"
	"github.com/orin-music/orin-api/internal/segmenter"
	"github.com/orin-music/orin-api/internal/titles"
)

// ErrImportRunning is returned when an import is started while one is
// active.
var ErrImportRunning = fmt.Errorf("a playlist import is already in progress")

// Import skip reasons, stored with each skipped video.
const (
	ImportSkipUnparseable    = "Could not parse artist/title"
	ImportSkipNoLyrics       = "No synced lyrics found"
	ImportSkipDuplicateVideo = "Already imported (same video)"
	ImportSkipDuplicateSong  = "Already curated (different video)"
)

// maxTitleLen truncates video titles in events and status payloads.
const maxTitleLen = 80

// CuratedWriter persists import results.
type CuratedWriter interface {
	UpsertPlaylist(youtubeURL, name, genre string) (*database.Playlist, error)
	InsertTrack(t *database.Track) error
	InsertSkippedTrack(st *database.SkippedTrack) error
}

// PlaylistSource lists playlist contents.
type PlaylistSource interface {
	ExtractVideos(ctx context.Context, playlistURL string) ([]audio.PlaylistVideo, error)
	Title(ctx context.Context, playlistURL string) (string, error)
}

// LyricsFinder locates synced lyrics for a parsed track.
type LyricsFinder interface {
	FindSyncedLyrics(ctx context.Context, artist, title string, duration float64) (*lrclib.Lyrics, error)
}

// ImportOptions control a playlist import.
type ImportOptions struct {
	PlaylistURL string
	Genre       string
	DryRun      bool
}

// ImportProgress counts the import so far.
type ImportProgress struct {
	TotalVideos int `json:"total_videos"`
	Processed   int `json:"processed"`
	Imported    int `json:"imported"`
	Skipped     int `json:"skipped"`
}

// ImportStatus is the snapshot served by the import status endpoint.
type ImportStatus struct {
	Running      bool           `json:"running"`
	TaskID       string         `json:"task_id,omitempty"`
	PlaylistName string         `json:"playlist_name,omitempty"`
	CurrentTrack map[string]any `json:"current_track,omitempty"`
	Progress     ImportProgress `json:"progress"`
	Errors       []string       `json:"errors,omitempty"`
}

// Importer pulls a YouTube playlist into the curated catalog: list videos,
// parse titles, find synced lyrics, dedupe, store.
type Importer struct {
	Curated  CuratedWriter
	Playlist PlaylistSource
	Lyrics   LyricsFinder
	Bus      *events.Bus

	mu           sync.Mutex
	running      bool
	taskID       string
	playlistName string
	stop         chan struct{}
	currentTrack map[string]any
	progress     ImportProgress
	errors       []string
}

// Start launches an import in the background and returns its task id.
func (im *Importer) Start(opts ImportOptions) (string, error) {
	im.mu.Lock()
	if im.running {
		im.mu.Unlock()
		return "", ErrImportRunning
	}

	taskID := uuid.New().String()
	im.running = true
	im.taskID = taskID
	im.playlistName = ""
	im.stop = make(chan struct{})
	im.currentTrack = nil
	im.progress = ImportProgress{}
	im.errors = nil
	im.mu.Unlock()

	go im.run(taskID, opts)
	return taskID, nil
}

// Stop requests the import to halt after the current video.
func (im *Importer) Stop() bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	if !im.running {
		return false
	}
	select {
	case <-im.stop:
	default:
		close(im.stop)
	}
	return true
}

// Status returns a copy of the import state.
func (im *Importer) Status() ImportStatus {
	im.mu.Lock()
	defer im.mu.Unlock()

	st := ImportStatus{
		Running:      im.running,
		TaskID:       im.taskID,
		PlaylistName: im.playlistName,
		Progress:     im.progress,
	}
	if im.currentTrack != nil {
		st.CurrentTrack = im.currentTrack
	}
	if n := len(im.errors); n > 0 {
		tail := im.errors
		if n > maxStatusErrors {
			tail = tail[n-maxStatusErrors:]
		}
		st.Errors = append([]string(nil), tail...)
	}
	return st
}

func (im *Importer) stopped() bool {
	select {
	case <-im.stop:
		return true
	default:
		return false
	}
}

func (im *Importer) run(taskID string, opts ImportOptions) {
	ctx := context.Background()
	defer im.finish(taskID)

	im.Bus.Emit("import_fetching", map[string]any{
		"task_id":      taskID,
		"playlist_url": opts.PlaylistURL,
	})

	videos, err := im.Playlist.ExtractVideos(ctx, opts.PlaylistURL)
	if err != nil {
		im.fail(taskID, fmt.Sprintf("playlist extraction failed: %v", err))
		return
	}
	if len(videos) == 0 {
		im.fail(taskID, "playlist is empty")
		return
	}

	playlistName, err := im.Playlist.Title(ctx, opts.PlaylistURL)
	if err != nil {
		playlistName = opts.PlaylistURL
	}

	genre := segmenter.NormalizeGenre(opts.Genre)

	var playlistID int64
	if !opts.DryRun {
		playlist, err := im.Curated.UpsertPlaylist(opts.PlaylistURL, playlistName, genre)
		if err != nil {
			im.fail(taskID, fmt.Sprintf("could not store playlist: %v", err))
			return
		}
		playlistID = playlist.ID
	}

	im.mu.Lock()
	im.playlistName = playlistName
	im.progress.TotalVideos = len(videos)
	im.mu.Unlock()

	im.Bus.Emit("import_started", map[string]any{
		"task_id":       taskID,
		"playlist_name": playlistName,
		"total_videos":  len(videos),
		"genre":         genre,
	})
	log.Printf("📥 Importing playlist %q: %d videos (genre=%s dry_run=%v)",
		playlistName, len(videos), genre, opts.DryRun)

	for i, video := range videos {
		if im.stopped() {
			im.Bus.Emit("import_stopped", map[string]any{
				"task_id": taskID,
				"reason":  "user_requested",
			})
			log.Printf("🛑 Import %s stopped by user", taskID)
			return
		}

		shortTitle := truncateTitle(video.Title)
		im.mu.Lock()
		im.currentTrack = map[string]any{
			"index":       i + 1,
			"total":       len(videos),
			"video_title": shortTitle,
			"video_id":    video.VideoID,
		}
		im.mu.Unlock()

		im.Bus.Emit("import_track_processing", map[string]any{
			"task_id":     taskID,
			"index":       i + 1,
			"total":       len(videos),
			"video_title": shortTitle,
			"stage":       "parsing",
		})

		artist, song := titles.ParseVideoTitle(video.Title)
		if artist == "" {
			artist = titles.ArtistFromUploader(video.Uploader)
		}
		if artist == "" || song == "" {
			im.skipVideo(taskID, playlistID, video, artist, song, ImportSkipUnparseable, opts.DryRun)
			continue
		}

		im.Bus.Emit("import_track_processing", map[string]any{
			"task_id":     taskID,
			"index":       i + 1,
			"total":       len(videos),
			"video_title": shortTitle,
			"stage":       "searching_lyrics",
			"artist":      artist,
			"song_name":   song,
		})

		lyrics, err := im.Lyrics.FindSyncedLyrics(ctx, artist, song, video.Duration)
		if err != nil {
			im.skipVideo(taskID, playlistID, video, artist, song, ImportSkipNoLyrics, opts.DryRun)
			continue
		}

		if !opts.DryRun {
			track := &database.Track{
				PlaylistID:     playlistID,
				YouTubeVideoID: video.VideoID,
				YouTubeTitle:   video.Title,
				ArtistName:     artist,
				Name:           song,
				AlbumName:      lyrics.AlbumName,
				Duration:       lyrics.Duration,
				SyncedLyrics:   lyrics.SyncedLyrics,
				Genre:          genre,
				LRCLibID:       lyrics.ID,
			}
			if err := im.Curated.InsertTrack(track); err != nil {
				reason := ""
				switch {
				case errors.Is(err, database.ErrDuplicateVideo):
					reason = ImportSkipDuplicateVideo
				case errors.Is(err, database.ErrDuplicateSong):
					reason = ImportSkipDuplicateSong
				default:
					im.mu.Lock()
					im.errors = append(im.errors, fmt.Sprintf("track %s: %v", video.VideoID, err))
					im.progress.Processed++
					im.progress.Skipped++
					im.mu.Unlock()
					continue
				}
				im.skipVideo(taskID, playlistID, video, artist, song, reason, opts.DryRun)
				continue
			}
		}

		im.mu.Lock()
		im.progress.Processed++
		im.progress.Imported++
		im.mu.Unlock()

		data := map[string]any{
			"task_id": taskID,
			"index":   i + 1,
			"artist":  artist,
			"title":   song,
		}
		if opts.DryRun {
			data["dry_run"] = true
		}
		im.Bus.Emit("import_track_imported", data)
	}

	st := im.Status()
	im.Bus.Emit("import_complete", map[string]any{
		"task_id":       taskID,
		"playlist_name": playlistName,
		"playlist_id":   playlistID,
		"total_videos":  st.Progress.TotalVideos,
		"imported":      st.Progress.Imported,
		"skipped":       st.Progress.Skipped,
	})
	log.Printf("✅ Import %s complete: %d imported, %d skipped of %d",
		taskID, st.Progress.Imported, st.Progress.Skipped, st.Progress.TotalVideos)
}

func (im *Importer) skipVideo(taskID string, playlistID int64, video audio.PlaylistVideo, artist, song, reason string, dryRun bool) {
	if !dryRun {
		err := im.Curated.InsertSkippedTrack(&database.SkippedTrack{
			PlaylistID:     playlistID,
			YouTubeVideoID: video.VideoID,
			YouTubeTitle:   video.Title,
			ParsedArtist:   artist,
			ParsedTitle:    song,
			Reason:         reason,
		})
		if err != nil {
			log.Printf("⚠️ Could not record skipped video %s: %v", video.VideoID, err)
		}
	}

	im.mu.Lock()
	im.progress.Processed++
	im.progress.Skipped++
	im.mu.Unlock()

	im.Bus.Emit("import_track_skipped", map[string]any{
		"task_id":     taskID,
		"video_id":    video.VideoID,
		"video_title": truncateTitle(video.Title),
		"reason":      reason,
	})
}

func (im *Importer) fail(taskID, message string) {
	im.mu.Lock()
	im.errors = append(im.errors, message)
	im.mu.Unlock()

	im.Bus.Emit("import_error", map[string]any{
		"task_id": taskID,
		"error":   message,
	})
	log.Printf("❌ Import %s failed: %s", taskID, message)
}

func (im *Importer) finish(taskID string) {
	if rec := recover(); rec != nil {
		im.fail(taskID, fmt.Sprintf("%v", rec))
	}
	im.mu.Lock()
	im.running = false
	im.currentTrack = nil
	im.mu.Unlock()
}

func truncateTitle(title string) string {
	if len(title) > maxTitleLen {
		return title[:maxTitleLen]
	}
	return title
}
