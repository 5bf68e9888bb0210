package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/orin-music/orin-api/internal/pipeline"
)

var importFlags struct {
	genre  string
	dryRun bool
}

var importCmd = &cobra.Command{
	Use:   "import-playlist <playlist-url>",
	Short: "Import a YouTube playlist into the curated catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		taskID, err := a.importer.Start(pipeline.ImportOptions{
			PlaylistURL: args[0],
			Genre:       importFlags.genre,
			DryRun:      importFlags.dryRun,
		})
		if err != nil {
			return err
		}

		waitForStop(taskID, a.importer.Stop, func() bool { return a.importer.Status().Running })
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFlags.genre, "genre", "", "Genre label stored with every imported track")
	importCmd.Flags().BoolVar(&importFlags.dryRun, "dry-run", false, "Parse and match lyrics without writing to the catalog")
	rootCmd.AddCommand(importCmd)
}
