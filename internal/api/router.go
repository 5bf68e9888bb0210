package api

import (
	"github.com/gin-gonic/gin"

	"github.com/orin-music/orin-api/internal/api/handlers"
	apimiddleware "github.com/orin-music/orin-api/internal/api/middleware"
	"github.com/orin-music/orin-api/internal/database"
	"github.com/orin-music/orin-api/internal/events"
	"github.com/orin-music/orin-api/internal/metrics"
	"github.com/orin-music/orin-api/internal/pipeline"
)

// Deps carries everything the HTTP control plane needs.
type Deps struct {
	Curated    *database.CuratedStore
	Ledger     *database.Ledger
	Runner     *pipeline.Runner
	Importer   *pipeline.Importer
	Bus        *events.Bus
	Embedder   handlers.QueryEmbedder
	Index      handlers.VectorSearcher
	IndexCount handlers.SnippetCounter
	SkipLog    handlers.SkipCounter
	CloudWatch *metrics.Client
}

// SetupRouter wires middleware and the /api/v1 surface.
func SetupRouter(deps Deps) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking())

	// CORS middleware
	router.Use(apimiddleware.CORS())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		statsHandler := handlers.NewStatsHandler(deps.Curated, deps.Ledger, deps.IndexCount, deps.SkipLog)
		v1.GET("/stats", statsHandler.GetStats)

		playlistsHandler := handlers.NewPlaylistsHandler(deps.Curated, deps.Importer)
		v1.GET("/playlists", playlistsHandler.ListPlaylists)
		v1.POST("/playlists/import", playlistsHandler.StartImport)
		v1.GET("/import/status", playlistsHandler.ImportStatus)
		v1.POST("/import/stop", playlistsHandler.StopImport)

		tracksHandler := handlers.NewTracksHandler(deps.Curated, deps.Ledger)
		v1.GET("/tracks", tracksHandler.ListTracks)
		v1.GET("/tracks/skipped", tracksHandler.ListSkippedTracks)

		pipelineHandler := handlers.NewPipelineHandler(deps.Runner)
		v1.POST("/pipeline/start", pipelineHandler.Start)
		v1.POST("/pipeline/stop", pipelineHandler.Stop)
		v1.GET("/pipeline/status", pipelineHandler.Status)

		eventsHandler := handlers.NewEventsHandler(deps.Bus)
		v1.GET("/pipeline/events", eventsHandler.Stream)

		searchHandler := handlers.NewSearchHandler(deps.Embedder, deps.Index, deps.CloudWatch)
		v1.POST("/search", searchHandler.Search)
		v1.POST("/embed", searchHandler.Embed)
	}

	return router
}
