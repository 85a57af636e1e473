// Package cmd wires the ytscout CLI.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ytscout/internal/config"
	"ytscout/internal/logging"
	"ytscout/internal/research"
	"ytscout/internal/store"
	"ytscout/internal/youtube"
)

var (
	cfg    *config.Config
	logger *slog.Logger

	closersMu sync.Mutex
	closers   []func() error
)

// registerCloser adds a cleanup function run on shutdown.
func registerCloser(fn func() error) {
	closersMu.Lock()
	defer closersMu.Unlock()
	closers = append(closers, fn)
}

func runClosers() {
	closersMu.Lock()
	fns := closers
	closers = nil
	closersMu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cleanup failed: %v\n", err)
		}
	}
}

// openStore opens the run database and registers it for shutdown cleanup.
func openStore() (*store.Store, error) {
	st, err := store.Open(filepath.Join(cfg.DataDir, "runs.db"))
	if err != nil {
		return nil, err
	}
	registerCloser(st.Close)
	return st, nil
}

func newYouTube() *youtube.Client {
	return youtube.New(cfg.YouTubeAPIKey, youtube.WithLogger(logger))
}

var rootCmd = &cobra.Command{
	Use:   "ytscout [topic]",
	Short: "Research a topic through YouTube transcripts",
	Long: `ytscout searches YouTube for a topic, scrapes the caption transcripts of the
top results, and runs them through an LLM pipeline that produces a markdown
research report.

Each video's transcript is also saved as its own markdown file, so the raw
material survives independently of the generated report.`,
	Example: `  # Research a topic with default settings
  ytscout "zig comptime"

  # Let the LLM rewrite the topic into a search query first
  ytscout "what's the deal with io_uring" --rewrite

  # More videos, recent uploads only, extra export formats
  ytscout "kubernetes gateway api" --max-results 10 --upload-date "This month" --format json --format html`,
	Args: cobra.ExactArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			cfg.Verbose = true
		}
		if q, _ := cmd.Flags().GetBool("quiet"); q {
			cfg.Quiet = true
		}
		logger = logging.New(logging.Options{Dir: cfg.LogDir, Verbose: cfg.Verbose, Quiet: cfg.Quiet})
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}

		researcher, err := research.New(cfg, st, logger)
		if err != nil {
			return err
		}

		rewrite, _ := cmd.Flags().GetBool("rewrite")
		maxResults, _ := cmd.Flags().GetInt("max-results")
		uploadDate, _ := cmd.Flags().GetString("upload-date")
		sortBy, _ := cmd.Flags().GetString("sort-by")
		formats, _ := cmd.Flags().GetStringArray("format")
		noPipeline, _ := cmd.Flags().GetBool("no-report")

		runReport, err := researcher.Run(cmd.Context(), args[0], research.Options{
			Rewrite:    rewrite,
			MaxResults: maxResults,
			Filters:    youtube.Filters{UploadDate: uploadDate, SortBy: sortBy},
			Formats:    formats,
			NoPipeline: noPipeline,
		})
		if err != nil {
			return err
		}

		if !cfg.Quiet && !noPipeline {
			fmt.Println(display(runReport.Markdown()))
		}
		return nil
	},
}

// Execute runs the CLI. Called once from main.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var err error
	cfg, err = config.Init()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directories: %v\n", err)
		os.Exit(1)
	}
	if err := config.EnsureDefaultConfig(cfg.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to write default config: %v\n", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()

		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cleanupCancel()

		done := make(chan struct{})
		go func() {
			runClosers()
			close(done)
		}()
		select {
		case <-done:
		case <-cleanupCtx.Done():
			fmt.Fprintln(os.Stderr, "Warning: cleanup timed out, forcing exit")
		}
		os.Exit(1)
	}()

	rootCmd.SetContext(ctx)
	defer runClosers()
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().Bool("rewrite", false, "Rewrite the topic into a search query with the LLM first")
	rootCmd.Flags().IntP("max-results", "n", 0, "Maximum videos to scrape (default from config)")
	rootCmd.Flags().String("upload-date", "", `Upload date filter ("Last hour", "Today", "This week", "This month", "This year")`)
	rootCmd.Flags().String("sort-by", "", `Sort order ("Relevance", "Upload date", "View count", "Rating")`)
	rootCmd.Flags().StringArray("format", nil, "Report export format: md, json, html (repeatable)")
	rootCmd.Flags().Bool("no-report", false, "Scrape transcripts only, skip the LLM report pipeline")

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress status output")
}
