package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCurated(t *testing.T) *CuratedStore {
	t.Helper()
	s, err := OpenCurated(filepath.Join(t.TempDir(), "curated.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testTrack(videoID, artist, name string) *Track {
	return &Track{
		PlaylistID:     1,
		YouTubeVideoID: videoID,
		YouTubeTitle:   artist + " - " + name,
		ArtistName:     artist,
		Name:           name,
		Duration:       180,
		SyncedLyrics:   "[00:01.00]line",
		Genre:          "afrobeats",
	}
}

func TestUpsertPlaylistIsIdempotent(t *testing.T) {
	s := openTestCurated(t)

	p1, err := s.UpsertPlaylist("https://youtube.com/playlist?list=abc", "Afro Hits", "afrobeats")
	require.NoError(t, err)

	p2, err := s.UpsertPlaylist("https://youtube.com/playlist?list=abc", "Renamed", "pop")
	require.NoError(t, err)

	assert.Equal(t, p1.ID, p2.ID)
	assert.Equal(t, "Afro Hits", p2.Name)
}

func TestInsertTrackDuplicateVideo(t *testing.T) {
	s := openTestCurated(t)

	require.NoError(t, s.InsertTrack(testTrack("vid1", "Burna Boy", "Last Last")))

	err := s.InsertTrack(testTrack("vid1", "Someone Else", "Other Song"))
	assert.ErrorIs(t, err, ErrDuplicateVideo)
}

func TestInsertTrackDuplicateSong(t *testing.T) {
	s := openTestCurated(t)

	require.NoError(t, s.InsertTrack(testTrack("vid1", "Wizkid", "Essence (feat. Tems)")))

	// same song, different video and credit spelling
	err := s.InsertTrack(testTrack("vid2", "Wizkid", "Essence ft. Tems"))
	assert.ErrorIs(t, err, ErrDuplicateSong)
}

func TestTracksFilterAndPagination(t *testing.T) {
	s := openTestCurated(t)

	require.NoError(t, s.InsertTrack(testTrack("v1", "A", "One")))
	require.NoError(t, s.InsertTrack(testTrack("v2", "B", "Two")))
	pop := testTrack("v3", "C", "Three")
	pop.Genre = "pop"
	require.NoError(t, s.InsertTrack(pop))

	all, err := s.Tracks("", 50, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	afro, err := s.Tracks("afrobeats", 50, 0)
	require.NoError(t, err)
	assert.Len(t, afro, 2)

	page, err := s.Tracks("", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Two", page[0].Name)

	count, err := s.CountTracks("afrobeats")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestCountByGenreSortsDescending(t *testing.T) {
	s := openTestCurated(t)

	require.NoError(t, s.InsertTrack(testTrack("v1", "A", "One")))
	require.NoError(t, s.InsertTrack(testTrack("v2", "B", "Two")))
	pop := testTrack("v3", "C", "Three")
	pop.Genre = "pop"
	require.NoError(t, s.InsertTrack(pop))

	counts, err := s.CountByGenre()
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "afrobeats", counts[0].Genre)
	assert.EqualValues(t, 2, counts[0].Count)
}

func TestSkippedTracks(t *testing.T) {
	s := openTestCurated(t)

	require.NoError(t, s.InsertSkippedTrack(&SkippedTrack{
		PlaylistID: 1, YouTubeVideoID: "v1", YouTubeTitle: "weird title",
		Reason: "Could not parse artist/title",
	}))
	require.NoError(t, s.InsertSkippedTrack(&SkippedTrack{
		PlaylistID: 2, YouTubeVideoID: "v2", YouTubeTitle: "Artist - Song",
		ParsedArtist: "Artist", ParsedTitle: "Song",
		Reason: "No synced lyrics found",
	}))

	all, err := s.SkippedTracks(0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := s.SkippedTracks(2)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "No synced lyrics found", one[0].Reason)

	count, err := s.CountSkipped()
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestListPlaylistsIncludesTrackCounts(t *testing.T) {
	s := openTestCurated(t)

	p, err := s.UpsertPlaylist("https://youtube.com/playlist?list=abc", "Afro Hits", "afrobeats")
	require.NoError(t, err)

	track := testTrack("v1", "A", "One")
	track.PlaylistID = p.ID
	require.NoError(t, s.InsertTrack(track))

	summaries, err := s.ListPlaylists()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.EqualValues(t, 1, summaries[0].TrackCount)
}

func TestSongKeyBackfill(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curated.sqlite")

	s, err := OpenCurated(path)
	require.NoError(t, err)

	require.NoError(t, s.InsertTrack(testTrack("v1", "Wizkid", "Essence (feat. Tems)")))
	// simulate a row imported before song keys existed
	require.NoError(t, s.db.Model(&Track{}).Where("youtube_video_id = ?", "v1").
		Update("song_key", "").Error)
	require.NoError(t, s.Close())

	s, err = OpenCurated(path)
	require.NoError(t, err)
	defer s.Close()

	var track Track
	require.NoError(t, s.db.Where("youtube_video_id = ?", "v1").First(&track).Error)
	assert.Equal(t, "wizkid|essence", track.SongKey)
}
