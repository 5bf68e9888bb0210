package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var listPlaylistsCmd = &cobra.Command{
	Use:   "list-playlists",
	Short: "List imported playlists with their track counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer a.Close()

		playlists, err := a.curated.ListPlaylists()
		if err != nil {
			return err
		}
		if len(playlists) == 0 {
			fmt.Println("No playlists imported yet")
			return nil
		}

		for _, p := range playlists {
			genre := p.Genre
			if genre == "" {
				genre = "-"
			}
			fmt.Printf("%4d  %-10s  %4d tracks  %s\n", p.ID, genre, p.TrackCount, p.Name)
		}
		return nil
	},
}

var listSkippedCmd = &cobra.Command{
	Use:   "list-skipped",
	Short: "List videos skipped during playlist imports",
	RunE: func(cmd *cobra.Command, args []string) error {
		playlistID, _ := cmd.Flags().GetInt64("playlist")

		a, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer a.Close()

		skipped, err := a.curated.SkippedTracks(playlistID)
		if err != nil {
			return err
		}
		if len(skipped) == 0 {
			fmt.Println("No skipped videos")
			return nil
		}

		for _, s := range skipped {
			fmt.Printf("%s  %-35s  %s\n", s.YouTubeVideoID, s.Reason, s.YouTubeTitle)
		}
		fmt.Printf("\n%d skipped\n", len(skipped))
		return nil
	},
}

func init() {
	listSkippedCmd.Flags().Int64("playlist", 0, "Only show skips for this playlist id")
	rootCmd.AddCommand(listPlaylistsCmd)
	rootCmd.AddCommand(listSkippedCmd)
}
