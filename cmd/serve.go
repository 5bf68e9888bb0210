package cmd

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/orin-music/orin-api/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP control plane",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.index.EnsureCollection(ctx); err != nil {
			log.Printf("⚠️ Could not ensure snippet collection: %v", err)
		}

		// Set Gin mode
		if a.cfg.Environment == environmentProduction {
			gin.SetMode(gin.ReleaseMode)
		}

		router := api.SetupRouter(api.Deps{
			Curated:    a.curated,
			Ledger:     a.ledger,
			Runner:     a.runner,
			Importer:   a.importer,
			Bus:        a.bus,
			Embedder:   a.emb,
			Index:      a.index,
			IndexCount: a.index,
			SkipLog:    a.skips,
			CloudWatch: a.cw,
		})

		log.Printf("🚀 Starting server on port %s", a.cfg.Port)
		return router.Run(":" + a.cfg.Port)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
