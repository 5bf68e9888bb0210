package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orin-music/orin-api/internal/database"
	"github.com/orin-music/orin-api/internal/logger"
)

// SnippetCounter reports how many snippets the vector index holds.
type SnippetCounter interface {
	Count(ctx context.Context) (uint64, error)
}

// SkipCounter reports how many songs the pipeline skipped.
type SkipCounter interface {
	Count() int
}

// StatsHandler serves corpus-wide counts.
type StatsHandler struct {
	curated *database.CuratedStore
	ledger  *database.Ledger
	index   SnippetCounter
	skips   SkipCounter
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(curated *database.CuratedStore, ledger *database.Ledger, index SnippetCounter, skips SkipCounter) *StatsHandler {
	return &StatsHandler{curated: curated, ledger: ledger, index: index, skips: skips}
}

// GetStats returns catalog, ledger, index and skip counts in one payload.
func (h *StatsHandler) GetStats(c *gin.Context) {
	curatedTotal, err := h.curated.CountTracks("")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	byGenre, err := h.curated.CountByGenre()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	processedTotal, err := h.ledger.Count("", "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	processedBySource := gin.H{}
	for _, source := range []string{"lrclib", "curated"} {
		count, err := h.ledger.Count(source, "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		processedBySource[source] = count
	}

	// the index may be down; stats still render with a zero
	var indexedTotal uint64
	if h.index != nil {
		indexedTotal, err = h.index.Count(c.Request.Context())
		if err != nil {
			logger.Warn("Could not count indexed snippets", logger.Fields{"error": err.Error()})
			indexedTotal = 0
		}
	}

	skippedTotal := 0
	if h.skips != nil {
		skippedTotal = h.skips.Count()
	}

	c.JSON(http.StatusOK, gin.H{
		"curated_total":       curatedTotal,
		"curated_by_genre":    byGenre,
		"processed_total":     processedTotal,
		"processed_by_source": processedBySource,
		"indexed_total":       indexedTotal,
		"skipped_total":       skippedTotal,
	})
}
