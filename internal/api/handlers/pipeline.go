package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orin-music/orin-api/internal/pipeline"
)

// PipelineHandler controls pipeline runs.
type PipelineHandler struct {
	runner *pipeline.Runner
}

// NewPipelineHandler creates a pipeline handler.
func NewPipelineHandler(runner *pipeline.Runner) *PipelineHandler {
	return &PipelineHandler{runner: runner}
}

type pipelineStartRequest struct {
	Source    string `json:"source"`
	Genre     string `json:"genre"`
	Limit     int    `json:"limit"`
	DryRun    bool   `json:"dry_run"`
	Reprocess bool   `json:"reprocess"`
}

// Start launches a pipeline run in the background.
func (h *PipelineHandler) Start(c *gin.Context) {
	var req pipelineStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Source == "" {
		req.Source = "curated"
	}

	taskID, total, err := h.runner.Start(pipeline.StartOptions{
		Source:    req.Source,
		Genre:     req.Genre,
		Limit:     req.Limit,
		DryRun:    req.DryRun,
		Reprocess: req.Reprocess,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id":      taskID,
		"total_tracks": total,
		"message":      "Pipeline started",
	})
}

// Stop requests the running pipeline to halt at the next checkpoint.
func (h *PipelineHandler) Stop(c *gin.Context) {
	stopped := h.runner.Stop()
	message := "Pipeline stopping"
	if !stopped {
		message = "No pipeline run in progress"
	}
	c.JSON(http.StatusOK, gin.H{
		"stopped": stopped,
		"message": message,
	})
}

// Status returns the current run snapshot.
func (h *PipelineHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.runner.Status())
}
