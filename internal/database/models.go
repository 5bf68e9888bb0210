package database

import "time"

// Playlist is an imported YouTube playlist.
type Playlist struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	YouTubeURL string    `gorm:"column:youtube_url;uniqueIndex" json:"youtube_url"`
	Genre      string    `gorm:"index" json:"genre"`
	Name       string    `json:"name"`
	ImportedAt time.Time `gorm:"autoCreateTime" json:"imported_at"`
}

func (Playlist) TableName() string { return "playlists" }

// Track is a curated song with synced lyrics, ready for the pipeline.
type Track struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	PlaylistID     int64     `gorm:"index:idx_tracks_playlist" json:"playlist_id"`
	YouTubeVideoID string    `gorm:"column:youtube_video_id;uniqueIndex" json:"youtube_video_id"`
	YouTubeTitle   string    `gorm:"column:youtube_title" json:"youtube_title"`
	ArtistName     string    `json:"artist_name"`
	Name           string    `json:"name"`
	AlbumName      string    `json:"album_name"`
	Duration       float64   `json:"duration"`
	SyncedLyrics   string    `json:"synced_lyrics,omitempty"`
	Genre          string    `gorm:"index:idx_tracks_genre" json:"genre"`
	LRCLibID       int64     `gorm:"column:lrclib_id" json:"lrclib_id"`
	SongKey        string    `gorm:"column:song_key" json:"-"`
	ImportedAt     time.Time `gorm:"autoCreateTime" json:"imported_at"`
}

func (Track) TableName() string { return "tracks" }

// SkippedTrack records a playlist video that could not be curated.
type SkippedTrack struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	PlaylistID     int64     `gorm:"index" json:"playlist_id"`
	YouTubeVideoID string    `gorm:"column:youtube_video_id" json:"youtube_video_id"`
	YouTubeTitle   string    `gorm:"column:youtube_title" json:"youtube_title"`
	ParsedArtist   string    `json:"parsed_artist"`
	ParsedTitle    string    `json:"parsed_title"`
	Reason         string    `json:"reason"`
	ImportedAt     time.Time `gorm:"autoCreateTime" json:"imported_at"`
}

func (SkippedTrack) TableName() string { return "skipped_tracks" }

// Processing statuses recorded in the ledger.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// ProcessedTrack is one ledger row. A track is keyed by its source catalog
// plus its id within that catalog.
type ProcessedTrack struct {
	Source       string    `gorm:"primaryKey;index:idx_processed_source_status" json:"source"`
	TrackID      int64     `gorm:"primaryKey" json:"track_id"`
	Status       string    `gorm:"default:success;index:idx_processed_source_status" json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ProcessedAt  time.Time `gorm:"autoUpdateTime" json:"processed_at"`
}

func (ProcessedTrack) TableName() string { return "processed_tracks" }

// GenreCount is one row of the curated-by-genre breakdown.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int64  `json:"count"`
}

// PlaylistSummary is a playlist with its curated track count.
type PlaylistSummary struct {
	Playlist
	TrackCount int64 `json:"track_count"`
}
