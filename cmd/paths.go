package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show paths used by the application",
	Example: `  ytscout paths`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Config directory: %s\n", cfg.ConfigDir)
		fmt.Printf("Data directory: %s\n", cfg.DataDir)
		fmt.Printf("Cache directory: %s\n", cfg.CacheDir)
		fmt.Printf("Log directory: %s\n", cfg.LogDir)
		fmt.Printf("Reports directory: %s\n", cfg.OutputDir)
		fmt.Printf("Transcripts directory: %s\n", cfg.TranscriptsDir)
		fmt.Printf("Run database: %s\n", filepath.Join(cfg.DataDir, "runs.db"))
	},
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}
