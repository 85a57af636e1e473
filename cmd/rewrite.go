package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ytscout/internal/llm"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [topic]",
	Short: "Show how the LLM would rewrite a topic into a search query",
	Example: `  ytscout rewrite "what's new in go generics lately"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ai := llm.New(cfg.OpenAIAPIKey, cfg.Model, cfg.LLMTimeout)
		rewritten := ai.Rewrite(cmd.Context(), args[0])
		if rewritten == args[0] && !cfg.Quiet {
			fmt.Fprintln(cmd.ErrOrStderr(), "Query unchanged (rewrite unavailable or no improvement)")
		}
		fmt.Println(rewritten)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rewriteCmd)
}
