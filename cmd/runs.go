package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent research runs",
	Example: `  # Show the last runs with their outcomes
  ytscout runs

  # Show recently researched topics only
  ytscout runs --topics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		if topicsOnly, _ := cmd.Flags().GetBool("topics"); topicsOnly {
			topics, err := st.RecentTopics(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, topic := range topics {
				fmt.Println(topic)
			}
			return nil
		}

		runs, err := st.RecentRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs yet")
			return nil
		}
		for _, run := range runs {
			line := fmt.Sprintf("%s  %-9s  %s (scraped %d, skipped %d)",
				run.CreatedAt.Local().Format("2006-01-02 15:04"),
				run.Status, run.Topic, run.ScrapedCount, run.SkippedCount)
			if run.Query != run.Topic {
				line += fmt.Sprintf("  [query: %s]", run.Query)
			}
			fmt.Println(strings.TrimRight(line, " "))
			if run.ReportPath != "" {
				fmt.Printf("    report: %s\n", run.ReportPath)
			}
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntP("limit", "n", 10, "Maximum runs to list")
	runsCmd.Flags().Bool("topics", false, "List distinct topics instead of runs")
	rootCmd.AddCommand(runsCmd)
}
