package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
)

var clearSource string

var clearFailedCmd = &cobra.Command{
	Use:   "clear-failed",
	Short: "Remove failed and skipped entries from the ledger so they retry",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.ledger.ClearFailed(clearSource)
		if err != nil {
			return err
		}
		log.Printf("✅ Cleared %d failed/skipped entries (source: %s)", removed, clearSource)
		return nil
	},
}

var clearProcessedCmd = &cobra.Command{
	Use:   "clear-processed",
	Short: "Wipe the ledger for a source so everything reprocesses",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.ledger.ClearProcessed(clearSource)
		if err != nil {
			return err
		}
		log.Printf("✅ Cleared %d ledger entries (source: %s)", removed, clearSource)
		return nil
	},
}

var clearIndexCmd = &cobra.Command{
	Use:   "clear-index",
	Short: "Drop and recreate the snippet vector collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if !confirm(cmd.InOrStdin(), "Delete every indexed snippet? [y/N] ") {
			log.Println("Aborted")
			return nil
		}
		if err := a.index.Clear(ctx); err != nil {
			return err
		}
		log.Println("✅ Snippet collection recreated")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{clearFailedCmd, clearProcessedCmd} {
		c.Flags().StringVar(&clearSource, "source", "curated", "Source catalog the ledger entries belong to")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(clearIndexCmd)
}
