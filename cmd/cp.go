package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

// cpCmd copies a transcript to the system clipboard instead of printing it.
var cpCmd = &cobra.Command{
	Use:   "cp [URL or ID]",
	Short: "Copy a video's transcript to the clipboard",
	Example: `  ytscout cp "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  ytscout cp tAP1eZYEuKA`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transcript, err := fetchTranscript(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := clipboard.WriteAll(transcript); err != nil {
			return fmt.Errorf("copying transcript to clipboard: %w", err)
		}
		if !cfg.Quiet {
			fmt.Println("Transcript copied to clipboard")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cpCmd)
}
