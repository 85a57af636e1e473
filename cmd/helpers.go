package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ytscout/internal/report"
	"ytscout/internal/youtube"
)

// display renders markdown for the terminal when stdout is a TTY.
func display(content string) string {
	return report.Display(content)
}

// fetchTranscript resolves arg to a video ID and fetches its captions.
func fetchTranscript(ctx context.Context, arg string) (string, error) {
	videoID, err := youtube.ExtractVideoID(arg)
	if err != nil {
		return "", err
	}
	transcript, err := newYouTube().Transcript(ctx, videoID, cfg.Languages)
	if err != nil {
		return "", fmt.Errorf("fetching transcript for %s: %w", videoID, err)
	}
	return transcript, nil
}

// searchFilters reads the shared search filter flags.
func searchFilters(cmd *cobra.Command) youtube.Filters {
	uploadDate, _ := cmd.Flags().GetString("upload-date")
	sortBy, _ := cmd.Flags().GetString("sort-by")
	return youtube.Filters{UploadDate: uploadDate, SortBy: sortBy}
}

func addSearchFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("upload-date", "", `Upload date filter ("Last hour", "Today", "This week", "This month", "This year")`)
	cmd.Flags().String("sort-by", "", `Sort order ("Relevance", "Upload date", "View count", "Rating")`)
}

// formatVideos renders a search result list for the terminal.
func formatVideos(videos []youtube.Video) string {
	var sb strings.Builder
	for i, v := range videos {
		fmt.Fprintf(&sb, "%2d. %s\n    %s · %s\n", i+1, v.Title, v.Channel, v.URL)
		if v.Snippet != "" {
			fmt.Fprintf(&sb, "    %s\n", v.Snippet)
		}
	}
	return sb.String()
}
