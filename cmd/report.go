package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ytscout/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report [run ID]",
	Short: "Display the report of a previous run",
	Long: `Display the saved markdown report of a research run. Without an argument the
most recent completed run is shown. Run IDs come from 'ytscout runs'.`,
	Example: `  # Show the latest report
  ytscout report

  # Show a specific run's report
  ytscout report 1b4e28ba-2fa1-11d2-883f-0016d3cca427`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}

		var run *store.Run
		if len(args) == 1 {
			run, err = st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
		} else {
			runs, err := st.RecentRuns(cmd.Context(), 20)
			if err != nil {
				return err
			}
			for i := range runs {
				if runs[i].Status == store.StatusCompleted && runs[i].ReportPath != "" {
					run = &runs[i]
					break
				}
			}
			if run == nil {
				return fmt.Errorf("no completed runs with a report; run 'ytscout [topic]' first")
			}
		}

		if run.ReportPath == "" {
			return fmt.Errorf("run %s has no report", run.ID)
		}
		content, err := os.ReadFile(run.ReportPath)
		if err != nil {
			return fmt.Errorf("reading report %s: %w", run.ReportPath, err)
		}
		fmt.Println(display(string(content)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
