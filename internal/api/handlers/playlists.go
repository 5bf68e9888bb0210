package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orin-music/orin-api/internal/database"
	"github.com/orin-music/orin-api/internal/pipeline"
)

// PlaylistsHandler serves the curated playlist catalog and playlist imports.
type PlaylistsHandler struct {
	curated  *database.CuratedStore
	importer *pipeline.Importer
}

// NewPlaylistsHandler creates a playlists handler.
func NewPlaylistsHandler(curated *database.CuratedStore, importer *pipeline.Importer) *PlaylistsHandler {
	return &PlaylistsHandler{curated: curated, importer: importer}
}

// ListPlaylists returns all imported playlists with track counts.
func (h *PlaylistsHandler) ListPlaylists(c *gin.Context) {
	playlists, err := h.curated.ListPlaylists()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"playlists": playlists,
		"total":     len(playlists),
	})
}

type importRequest struct {
	PlaylistURL string `json:"playlist_url" binding:"required"`
	Genre       string `json:"genre" binding:"required"`
	DryRun      bool   `json:"dry_run"`
}

// StartImport launches a playlist import in the background.
func (h *PlaylistsHandler) StartImport(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskID, err := h.importer.Start(pipeline.ImportOptions{
		PlaylistURL: req.PlaylistURL,
		Genre:       req.Genre,
		DryRun:      req.DryRun,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrImportRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id": taskID,
		"message": "Import started",
	})
}

// ImportStatus returns the current import snapshot.
func (h *PlaylistsHandler) ImportStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.importer.Status())
}

// StopImport requests the running import to halt.
func (h *PlaylistsHandler) StopImport(c *gin.Context) {
	stopped := h.importer.Stop()
	message := "Import stopping"
	if !stopped {
		message = "No import in progress"
	}
	c.JSON(http.StatusOK, gin.H{
		"stopped": stopped,
		"message": message,
	})
}
