package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/orin-music/orin-api/internal/database"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog, ledger and index counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		curatedTotal, err := a.curated.CountTracks("")
		if err != nil {
			return err
		}
		fmt.Printf("Curated tracks:   %d\n", curatedTotal)

		byGenre, err := a.curated.CountByGenre()
		if err != nil {
			return err
		}
		for _, g := range byGenre {
			genre := g.Genre
			if genre == "" {
				genre = "(none)"
			}
			fmt.Printf("  %-12s %d\n", genre, g.Count)
		}

		for _, status := range []string{database.StatusSuccess, database.StatusSkipped, database.StatusFailed} {
			count, err := a.ledger.Count("", status)
			if err != nil {
				return err
			}
			fmt.Printf("Ledger %-9s %d\n", status+":", count)
		}

		fmt.Printf("Skip log:         %d\n", a.skips.Count())

		infoCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		info, err := a.index.Info(infoCtx)
		if err != nil {
			fmt.Printf("Index:            unavailable (%v)\n", err)
			return nil
		}
		fmt.Printf("Index:            %d snippets (%s, %s)\n", info.PointsCount, info.Name, info.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
