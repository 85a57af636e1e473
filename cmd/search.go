package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search YouTube without scraping",
	Example: `  # List the top results for a query
  ytscout search "rust borrow checker"

  # Recent uploads, sorted by view count, as JSON
  ytscout search "rust borrow checker" --upload-date "This week" --sort-by "View count" --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.MaxResults
		}

		videos, err := newYouTube().Search(cmd.Context(), args[0], searchFilters(cmd), limit)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			data, err := json.MarshalIndent(videos, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		fmt.Print(formatVideos(videos))
		return nil
	},
}

func init() {
	searchCmd.Flags().IntP("limit", "n", 0, "Maximum results (default from config)")
	searchCmd.Flags().Bool("json", false, "Output results as JSON")
	addSearchFilterFlags(searchCmd)
	rootCmd.AddCommand(searchCmd)
}
