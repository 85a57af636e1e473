package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ytscout/internal/report"
	"ytscout/internal/youtube"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript [URL or ID]",
	Short: "Print a video's caption transcript",
	Example: `  # Print captions to stdout
  ytscout transcript "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  ytscout transcript tAP1eZYEuKA

  # Save as a markdown artifact in the transcripts directory
  ytscout transcript tAP1eZYEuKA --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transcript, err := fetchTranscript(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if save, _ := cmd.Flags().GetBool("save"); save {
			videoID, _ := youtube.ExtractVideoID(args[0])
			yt := newYouTube()
			meta, err := yt.MetadataFor(cmd.Context(), videoID)
			if err != nil {
				return fmt.Errorf("fetching metadata for %s: %w", videoID, err)
			}
			writer, err := report.NewWriter(cfg.TranscriptsDir)
			if err != nil {
				return err
			}
			path, err := writer.WriteVideoMarkdown(youtube.Video{
				ID:      meta.ID,
				Title:   meta.Title,
				Channel: meta.Channel,
				URL:     youtube.WatchURL(meta.ID),
			}, transcript, time.Now())
			if err != nil {
				return err
			}
			if !cfg.Quiet {
				fmt.Printf("Transcript saved to %s\n", path)
			}
			return nil
		}

		fmt.Println(report.ChunkParagraphs(transcript))
		return nil
	},
}

func init() {
	transcriptCmd.Flags().Bool("save", false, "Write a markdown artifact instead of printing")
	rootCmd.AddCommand(transcriptCmd)
}
