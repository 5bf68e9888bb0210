package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orin-music/orin-api/internal/pipeline"
)

var runFlags struct {
	source    string
	genre     string
	limit     int
	test      int
	trackIDs  []int64
	all       bool
	dryRun    bool
	reprocess bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process curated tracks into indexed snippets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if !runFlags.dryRun {
			if err := a.index.EnsureCollection(ctx); err != nil {
				return err
			}
		}

		limit := runFlags.limit
		if limit == 0 && runFlags.test > 0 {
			limit = runFlags.test
		}

		// processing the whole catalog needs an explicit opt-in
		if limit == 0 && len(runFlags.trackIDs) == 0 && !runFlags.all {
			pending, err := a.curated.CountTracks(runFlags.genre)
			if err != nil {
				return err
			}
			if !confirm(cmd.InOrStdin(), fmt.Sprintf("Process up to %d tracks? [y/N] ", pending)) {
				log.Println("Aborted")
				return nil
			}
		}

		taskID, total, err := a.runner.Start(pipeline.StartOptions{
			Source:    runFlags.source,
			Genre:     runFlags.genre,
			Limit:     limit,
			TrackIDs:  runFlags.trackIDs,
			DryRun:    runFlags.dryRun,
			Reprocess: runFlags.reprocess,
		})
		if err != nil {
			return err
		}
		if total == 0 {
			log.Println("✅ Nothing to do: all matching tracks are already processed")
			return nil
		}

		waitForStop(taskID, a.runner.Stop, func() bool { return a.runner.Status().Running })
		return nil
	},
}

// waitForStop blocks until the background task finishes, forwarding the
// first interrupt as a stop request.
func waitForStop(taskID string, stop func() bool, running func() bool) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			log.Printf("🛑 Interrupt received, stopping task %s", taskID)
			stop()
		case <-ticker.C:
			if !running() {
				return
			}
		}
	}
}

// confirm reads a single line and accepts y/yes.
func confirm(in io.Reader, prompt string) bool {
	fmt.Print(prompt)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func init() {
	runCmd.Flags().StringVar(&runFlags.source, "source", "curated", "Source catalog to process")
	runCmd.Flags().StringVar(&runFlags.genre, "genre", "", "Only process tracks with this genre")
	runCmd.Flags().IntVar(&runFlags.limit, "limit", 0, "Stop after this many tracks (0 = no limit)")
	runCmd.Flags().IntVar(&runFlags.test, "test", 0, "Shorthand for --limit on a trial run")
	runCmd.Flags().Int64SliceVar(&runFlags.trackIDs, "track-id", nil, "Process specific track ids, ignoring the ledger")
	runCmd.Flags().BoolVar(&runFlags.all, "all", false, "Process the whole catalog without confirmation")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "Segment lyrics only, skip audio and indexing")
	runCmd.Flags().BoolVar(&runFlags.reprocess, "reprocess", false, "Ignore the ledger and process everything again")
	rootCmd.AddCommand(runCmd)
}
