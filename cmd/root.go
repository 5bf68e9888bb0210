package cmd

import (
	"github.com/spf13/cobra"
)

const environmentProduction = "production"

var rootCmd = &cobra.Command{
	Use:           "orin-api",
	Short:         "Music snippet pipeline and search API",
	Long:          "orin-api imports YouTube playlists with synced lyrics, slices songs into\nemotionally coherent audio snippets and serves semantic search over them.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. The version string is stamped at build time.
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.Execute()
}
