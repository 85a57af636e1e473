package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ytscout/internal/mcp"
	"ytscout/internal/research"
	"ytscout/internal/ui"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server exposing ytscout as tools",
	Long: `Run a Model Context Protocol (MCP) server that exposes ytscout functionality
as tools:

- search_youtube: search YouTube for videos matching a query
- get_youtube_transcript: fetch a video's caption transcript
- research_topic: run the full research workflow and return the report

Transport options:
- stdio (default): standard MCP transport via stdin/stdout
- http: streamable HTTP transport on the given port`,
	Example: `  # Run with stdio transport (e.g. for desktop AI assistants)
  ytscout mcp

  # Run with HTTP transport on port 8080
  ytscout mcp --transport=http --port=8080`,
	PreRun: func(cmd *cobra.Command, args []string) {
		// stdio transport owns stdout, so progress and status must stay quiet.
		cfg.Verbose = false
		cfg.Quiet = true
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		st, err := openStore()
		if err != nil {
			return err
		}
		researcher, err := research.New(cfg, st, logger, research.WithUI(ui.NopManager{}))
		if err != nil {
			return err
		}

		server := mcp.NewServer(cfg, newYouTube(), researcher)
		if transport == "http" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Starting ytscout MCP server on HTTP port %d\n", port)
		}
		return server.Start(cmd.Context(), transport, port)
	},
}

func init() {
	mcpCmd.Flags().String("transport", "stdio", "Transport to use: stdio or http")
	mcpCmd.Flags().Int("port", 8080, "Port for the http transport")
	rootCmd.AddCommand(mcpCmd)
}
