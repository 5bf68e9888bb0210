package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orin-music/orin-api/internal/database"
)

const (
	defaultTrackLimit = 50
	maxTrackLimit     = 500
)

// TracksHandler lists curated tracks and skip records.
type TracksHandler struct {
	curated *database.CuratedStore
	ledger  *database.Ledger
}

// NewTracksHandler creates a tracks handler.
func NewTracksHandler(curated *database.CuratedStore, ledger *database.Ledger) *TracksHandler {
	return &TracksHandler{curated: curated, ledger: ledger}
}

type trackView struct {
	database.Track
	IsProcessed bool `json:"is_processed"`
}

// ListTracks returns curated tracks with pagination, genre and processing
// status filters. Status filtering is done against the ledger.
func (h *TracksHandler) ListTracks(c *gin.Context) {
	genre := c.Query("genre")
	status := c.Query("status")

	limit := parseIntQuery(c, "limit", defaultTrackLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxTrackLimit {
		limit = maxTrackLimit
	}
	offset := parseIntQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	processed, err := h.ledger.ProcessedIDs("curated", false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var views []trackView
	total := int64(0)

	if status == "pending" || status == "processed" {
		wantProcessed := status == "processed"
		all, err := h.curated.AllTracks(genre)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		var filtered []database.Track
		for _, t := range all {
			if processed[t.ID] == wantProcessed {
				filtered = append(filtered, t)
			}
		}
		total = int64(len(filtered))
		end := offset + limit
		if offset > len(filtered) {
			offset = len(filtered)
		}
		if end > len(filtered) {
			end = len(filtered)
		}
		for _, t := range filtered[offset:end] {
			views = append(views, trackView{Track: t, IsProcessed: processed[t.ID]})
		}
	} else {
		tracks, err := h.curated.Tracks(genre, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		total, err = h.curated.CountTracks(genre)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		for _, t := range tracks {
			views = append(views, trackView{Track: t, IsProcessed: processed[t.ID]})
		}
	}

	if views == nil {
		views = []trackView{}
	}
	c.JSON(http.StatusOK, gin.H{
		"tracks": views,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// ListSkippedTracks returns skip records, optionally for one playlist.
func (h *TracksHandler) ListSkippedTracks(c *gin.Context) {
	playlistID := int64(parseIntQuery(c, "playlist_id", 0))

	skipped, err := h.curated.SkippedTracks(playlistID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if skipped == nil {
		skipped = []database.SkippedTrack{}
	}
	c.JSON(http.StatusOK, gin.H{
		"skipped_tracks": skipped,
		"total":          len(skipped),
	})
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
