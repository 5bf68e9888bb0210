package database

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orin-music/orin-api/internal/titles"
)

// Duplicate sentinel errors returned by InsertTrack.
var (
	// ErrDuplicateVideo means this exact video was imported before.
	ErrDuplicateVideo = errors.New("video already imported")
	// ErrDuplicateSong means the same song exists under a different video.
	ErrDuplicateSong = errors.New("song already curated under a different video")
)

// CuratedStore is the catalog of imported playlists and tracks.
type CuratedStore struct {
	db *gorm.DB
}

// OpenCurated opens (and migrates) the curated catalog at path.
func OpenCurated(path string) (*CuratedStore, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Playlist{}, &Track{}, &SkippedTrack{}); err != nil {
		return nil, fmt.Errorf("migrate curated schema: %w", err)
	}

	s := &CuratedStore{db: db}
	if err := s.migrateSongKeys(); err != nil {
		return nil, err
	}
	return s, nil
}

// migrateSongKeys backfills song_key for rows imported before the column
// existed, then enforces uniqueness. Pre-existing duplicates make the index
// creation fail; that is logged and tolerated so old catalogs keep working.
func (s *CuratedStore) migrateSongKeys() error {
	var pending []Track
	if err := s.db.Where("song_key IS NULL OR song_key = ''").
		Select("id", "artist_name", "name").Find(&pending).Error; err != nil {
		return fmt.Errorf("find tracks without song_key: %w", err)
	}

	for _, t := range pending {
		key := titles.NormalizeSongKey(t.ArtistName, t.Name)
		if err := s.db.Model(&Track{}).Where("id = ?", t.ID).
			Update("song_key", key).Error; err != nil {
			return fmt.Errorf("backfill song_key for track %d: %w", t.ID, err)
		}
	}
	if len(pending) > 0 {
		log.Printf("🔑 Backfilled song_key for %d tracks", len(pending))
	}

	err := s.db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_tracks_song_key ON tracks(song_key)").Error
	if err != nil {
		log.Printf("⚠️ Could not enforce unique song_key (duplicate songs in catalog?): %v", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *CuratedStore) Close() error { return closeDB(s.db) }

// UpsertPlaylist inserts a playlist if its URL is new and returns the row
// either way.
func (s *CuratedStore) UpsertPlaylist(youtubeURL, name, genre string) (*Playlist, error) {
	p := Playlist{YouTubeURL: youtubeURL, Name: name, Genre: genre}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "youtube_url"}},
		DoNothing: true,
	}).Create(&p).Error
	if err != nil {
		return nil, fmt.Errorf("insert playlist: %w", err)
	}

	var existing Playlist
	if err := s.db.Where("youtube_url = ?", youtubeURL).First(&existing).Error; err != nil {
		return nil, fmt.Errorf("load playlist: %w", err)
	}
	return &existing, nil
}

// InsertTrack adds a curated track. The song key is derived here so callers
// never store an unkeyed row. Returns ErrDuplicateVideo or ErrDuplicateSong
// for the two dedupe cases.
func (s *CuratedStore) InsertTrack(t *Track) error {
	t.SongKey = titles.NormalizeSongKey(t.ArtistName, t.Name)

	var count int64
	s.db.Model(&Track{}).Where("youtube_video_id = ?", t.YouTubeVideoID).Count(&count)
	if count > 0 {
		return ErrDuplicateVideo
	}
	s.db.Model(&Track{}).Where("song_key = ?", t.SongKey).Count(&count)
	if count > 0 {
		return ErrDuplicateSong
	}

	if err := s.db.Create(t).Error; err != nil {
		return fmt.Errorf("insert track: %w", err)
	}
	return nil
}

// InsertSkippedTrack records a playlist video that was not curated.
func (s *CuratedStore) InsertSkippedTrack(st *SkippedTrack) error {
	if err := s.db.Create(st).Error; err != nil {
		return fmt.Errorf("insert skipped track: %w", err)
	}
	return nil
}

// ListPlaylists returns all playlists with their track counts, newest first.
func (s *CuratedStore) ListPlaylists() ([]PlaylistSummary, error) {
	var playlists []Playlist
	if err := s.db.Order("imported_at DESC").Find(&playlists).Error; err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}

	out := make([]PlaylistSummary, 0, len(playlists))
	for _, p := range playlists {
		var count int64
		s.db.Model(&Track{}).Where("playlist_id = ?", p.ID).Count(&count)
		out = append(out, PlaylistSummary{Playlist: p, TrackCount: count})
	}
	return out, nil
}

// Tracks lists curated tracks, optionally filtered by genre, paginated.
func (s *CuratedStore) Tracks(genre string, limit, offset int) ([]Track, error) {
	q := s.db.Order("id")
	if genre != "" {
		q = q.Where("genre = ?", genre)
	}
	var tracks []Track
	if err := q.Limit(limit).Offset(offset).Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	return tracks, nil
}

// AllTracks lists every curated track for a genre ("" for all).
func (s *CuratedStore) AllTracks(genre string) ([]Track, error) {
	q := s.db.Order("id")
	if genre != "" {
		q = q.Where("genre = ?", genre)
	}
	var tracks []Track
	if err := q.Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	return tracks, nil
}

// TracksByIDs loads specific tracks preserving no particular order.
func (s *CuratedStore) TracksByIDs(ids []int64) ([]Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tracks []Track
	if err := s.db.Where("id IN ?", ids).Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("load tracks by ids: %w", err)
	}
	return tracks, nil
}

// CountTracks counts curated tracks, optionally by genre.
func (s *CuratedStore) CountTracks(genre string) (int64, error) {
	q := s.db.Model(&Track{})
	if genre != "" {
		q = q.Where("genre = ?", genre)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}
	return count, nil
}

// CountByGenre returns the curated genre breakdown, largest first.
func (s *CuratedStore) CountByGenre() ([]GenreCount, error) {
	var counts []GenreCount
	err := s.db.Model(&Track{}).
		Select("genre, COUNT(*) as count").
		Group("genre").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count by genre: %w", err)
	}
	return counts, nil
}

// SkippedTracks lists skip records, optionally for one playlist.
func (s *CuratedStore) SkippedTracks(playlistID int64) ([]SkippedTrack, error) {
	q := s.db.Order("id")
	if playlistID > 0 {
		q = q.Where("playlist_id = ?", playlistID)
	}
	var skipped []SkippedTrack
	if err := q.Find(&skipped).Error; err != nil {
		return nil, fmt.Errorf("list skipped tracks: %w", err)
	}
	return skipped, nil
}

// CountSkipped counts skip records across all playlists.
func (s *CuratedStore) CountSkipped() (int64, error) {
	var count int64
	if err := s.db.Model(&SkippedTrack{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count skipped: %w", err)
	}
	return count, nil
}
