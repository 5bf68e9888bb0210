package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orin-music/orin-api/internal/indexer"
	"github.com/orin-music/orin-api/internal/logger"
	"github.com/orin-music/orin-api/internal/metrics"
)

const defaultSearchLimit = 10

// VectorSearcher runs similarity queries against the snippet index.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int, filters indexer.SearchFilters) ([]indexer.SearchHit, error)
}

// QueryEmbedder embeds free text for search and the embed endpoint.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchHandler serves semantic snippet search.
type SearchHandler struct {
	embedder QueryEmbedder
	index    VectorSearcher
	cw       *metrics.Client
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(embedder QueryEmbedder, index VectorSearcher, cw *metrics.Client) *SearchHandler {
	return &SearchHandler{embedder: embedder, index: index, cw: cw}
}

type searchRequest struct {
	Query   string `json:"query" binding:"required"`
	Limit   int    `json:"limit"`
	Genre   string `json:"genre"`
	Emotion string `json:"emotion"`
	Energy  string `json:"energy"`
}

type searchResult struct {
	SnippetID        string  `json:"snippet_id"`
	Score            float32 `json:"score"`
	SongTitle        string  `json:"song_title"`
	Artist           string  `json:"artist"`
	Album            string  `json:"album"`
	Lyrics           string  `json:"lyrics"`
	AIDescription    string  `json:"ai_description"`
	SnippetURL       string  `json:"snippet_url"`
	StartTime        float64 `json:"start_time"`
	EndTime          float64 `json:"end_time"`
	PrimaryEmotion   string  `json:"primary_emotion"`
	SecondaryEmotion string  `json:"secondary_emotion"`
	Energy           string  `json:"energy"`
	Genre            string  `json:"genre"`
}

// Search embeds the query and returns the closest snippets.
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}

	start := time.Now()
	ctx := c.Request.Context()

	vector, err := h.embedder.Embed(ctx, req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "embedding failed: " + err.Error()})
		return
	}

	hits, err := h.index.Search(ctx, vector, req.Limit, indexer.SearchFilters{
		Energy:         req.Energy,
		PrimaryEmotion: req.Emotion,
		Genre:          req.Genre,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed: " + err.Error()})
		return
	}

	results := make([]searchResult, 0, len(hits))
	for _, hit := range hits {
		p := hit.Payload
		results = append(results, searchResult{
			SnippetID:        p.SnippetID,
			Score:            hit.Score,
			SongTitle:        p.SongTitle,
			Artist:           p.Artist,
			Album:            p.Album,
			Lyrics:           p.Lyrics,
			AIDescription:    p.AIDescription,
			SnippetURL:       p.SnippetURL,
			StartTime:        p.StartTime,
			EndTime:          p.EndTime,
			PrimaryEmotion:   p.PrimaryEmotion,
			SecondaryEmotion: p.SecondaryEmotion,
			Energy:           p.Energy,
			Genre:            p.Genre,
		})
	}

	if h.cw != nil {
		h.cw.RecordSearchRequest(time.Since(start), len(results))
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   req.Query,
		"results": results,
		"total":   len(results),
	})
}

type embedRequest struct {
	Text string `json:"text" binding:"required"`
}

// Embed returns the raw vector for a text, mostly for debugging the
// embedding service.
func (h *SearchHandler) Embed(c *gin.Context) {
	var req embedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	vector, err := h.embedder.Embed(c.Request.Context(), req.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	preview := req.Text
	if len(preview) > 60 {
		preview = preview[:60]
	}
	logger.Info("Embedded text", logger.Fields{
		"elapsed_ms": time.Since(start).Milliseconds(),
		"text":       preview,
		"dimensions": len(vector),
	})

	c.JSON(http.StatusOK, gin.H{
		"embedding":  vector,
		"dimensions": len(vector),
	})
}
