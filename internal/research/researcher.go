// Package research runs the end-to-end workflow: rewrite the topic, search
// YouTube, scrape transcripts with rate limiting, persist artifacts, and run
// the report pipeline.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"ytscout/internal/config"
	"ytscout/internal/errs"
	"ytscout/internal/llm"
	"ytscout/internal/pipeline"
	"ytscout/internal/prompt"
	"ytscout/internal/report"
	"ytscout/internal/store"
	"ytscout/internal/ui"
	"ytscout/internal/youtube"
)

// Searcher finds videos for a query.
type Searcher interface {
	Search(ctx context.Context, query string, filters youtube.Filters, limit int) ([]youtube.Video, error)
}

// TranscriptFetcher fetches caption text for one video.
type TranscriptFetcher interface {
	Transcript(ctx context.Context, videoID string, langs []string) (string, error)
}

// Rewriter converts a topic into a search query, falling back to the input.
type Rewriter interface {
	Rewrite(ctx context.Context, query string) string
}

// PipelineRunner executes the report stage chain.
type PipelineRunner interface {
	Run(ctx context.Context, job *pipeline.Job) (*pipeline.Result, error)
}

// Options controls one research run.
type Options struct {
	Rewrite    bool
	Filters    youtube.Filters
	MaxResults int
	Formats    []string // report export formats: md, json, html
	NoPipeline bool     // scrape only, skip LLM stages
}

// Researcher wires the workflow's collaborators.
type Researcher struct {
	cfg      *config.Config
	searcher Searcher
	fetcher  TranscriptFetcher
	rewriter Rewriter
	pipeline PipelineRunner
	store    *store.Store
	writer   *report.Writer
	ui       ui.Manager
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes Researcher creation, mainly for tests.
type Option func(*Researcher)

// WithSearcher sets a custom video searcher.
func WithSearcher(s Searcher) Option {
	return func(r *Researcher) { r.searcher = s }
}

// WithFetcher sets a custom transcript fetcher.
func WithFetcher(f TranscriptFetcher) Option {
	return func(r *Researcher) { r.fetcher = f }
}

// WithRewriter sets a custom query rewriter.
func WithRewriter(rw Rewriter) Option {
	return func(r *Researcher) { r.rewriter = rw }
}

// WithPipeline sets a custom pipeline runner.
func WithPipeline(p PipelineRunner) Option {
	return func(r *Researcher) { r.pipeline = p }
}

// WithUI sets a custom UI manager.
func WithUI(m ui.Manager) Option {
	return func(r *Researcher) { r.ui = m }
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Researcher) { r.now = now }
}

// New creates a Researcher from configuration. The store is owned by the
// caller and must outlive the Researcher.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, options ...Option) (*Researcher, error) {
	writer, err := report.NewWriter(cfg.TranscriptsDir)
	if err != nil {
		return nil, err
	}
	prompts, err := prompt.NewManager(cfg.Prompt)
	if err != nil {
		return nil, err
	}

	ai := llm.New(cfg.OpenAIAPIKey, cfg.Model, cfg.LLMTimeout)
	yt := youtube.New(cfg.YouTubeAPIKey, youtube.WithLogger(logger))

	r := &Researcher{
		cfg:      cfg,
		searcher: yt,
		fetcher:  yt,
		rewriter: ai,
		pipeline: pipeline.New(ai, prompts, logger),
		store:    st,
		writer:   writer,
		ui:       ui.NewManager(cfg.Verbose, cfg.Quiet),
		logger:   logger,
		now:      time.Now,
	}
	for _, option := range options {
		option(r)
	}
	return r, nil
}

// Run executes one research run and returns the report. Per-video failures
// skip and continue; search failures and required pipeline failures abort.
func (r *Researcher) Run(ctx context.Context, topic string, opts Options) (*report.RunReport, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errs.Wrap(errs.ErrValidation, "research", "topic", "empty topic", nil)
	}
	limit := opts.MaxResults
	if limit <= 0 {
		limit = r.cfg.MaxResults
	}

	query := topic
	if opts.Rewrite {
		query = r.rewriter.Rewrite(ctx, topic)
		if query != topic {
			r.ui.Verbose("Rewrote query: %q\n", query)
			r.logger.Info("query rewritten", slog.String("topic", topic), slog.String("query", query))
		}
	}

	runID := uuid.NewString()
	if _, err := r.store.CreateRun(ctx, runID, topic, query); err != nil {
		return nil, err
	}

	videos, err := r.searcher.Search(ctx, query, opts.Filters, limit)
	if err != nil {
		r.finishRun(runID, store.StatusFailed, 0, 0, "")
		return nil, fmt.Errorf("searching videos: %w", err)
	}
	videos = dedupByID(videos)
	r.ui.Printf("Found %d videos for %q\n", len(videos), query)

	runReport := &report.RunReport{
		RunID:       runID,
		Topic:       topic,
		Query:       query,
		GeneratedAt: r.now().UTC(),
	}

	corpus, scraped, skipped, err := r.scrapeVideos(ctx, runID, videos, runReport)
	if err != nil {
		r.finishRun(runID, store.StatusFailed, scraped, skipped, "")
		return nil, err
	}
	if scraped == 0 {
		r.finishRun(runID, store.StatusFailed, 0, skipped, "")
		return nil, errs.Wrap(errs.ErrNoCaptions, "research", "scrape",
			fmt.Sprintf("no transcripts for %q (%d videos skipped)", query, skipped), nil)
	}

	if !opts.NoPipeline {
		if err := r.runPipeline(ctx, topic, query, scraped, corpus, runReport); err != nil {
			r.finishRun(runID, store.StatusFailed, scraped, skipped, "")
			return nil, err
		}
	}

	reportPath, err := r.export(runReport, opts.Formats)
	if err != nil {
		r.finishRun(runID, store.StatusFailed, scraped, skipped, "")
		return nil, err
	}

	r.finishRun(runID, store.StatusCompleted, scraped, skipped, reportPath)
	r.ui.Printf("Scraped %d/%d videos, report: %s\n", scraped, len(videos), reportPath)
	return runReport, nil
}

// dedupByID drops repeated video IDs, keeping the first occurrence. Search
// backends can surface the same video more than once, and the run database
// keys videos by (run, video).
func dedupByID(videos []youtube.Video) []youtube.Video {
	seen := make(map[string]bool, len(videos))
	out := videos[:0]
	for _, v := range videos {
		if seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		out = append(out, v)
	}
	return out
}

// scrapeVideos fetches transcripts serially under the configured rate limit.
// It returns the combined corpus and the scraped/skipped counts.
func (r *Researcher) scrapeVideos(ctx context.Context, runID string, videos []youtube.Video, runReport *report.RunReport) (string, int, int, error) {
	limiter := rate.NewLimiter(rate.Every(r.cfg.ScrapeInterval), 1)
	bar := r.ui.NewProgressBar(len(videos), "Scraping transcripts")
	defer bar.Finish()

	var corpus strings.Builder
	scraped, skipped := 0, 0
	for i, video := range videos {
		if err := limiter.Wait(ctx); err != nil {
			return corpus.String(), scraped, skipped, err
		}
		bar.Describe(fmt.Sprintf("Scraping %s", report.SanitizeFilename(video.Title)))

		result := report.VideoResult{
			ID: video.ID, Title: video.Title, Channel: video.Channel, URL: video.URL,
		}
		text, err := r.fetcher.Transcript(ctx, video.ID, r.cfg.Languages)
		switch {
		case err == nil:
			path, werr := r.writer.WriteVideoMarkdown(video, text, r.now())
			if werr != nil {
				return corpus.String(), scraped, skipped, werr
			}
			fmt.Fprintf(&corpus, "### %s (%s)\n\n%s\n\n", video.Title, video.Channel, text)
			result.TranscriptPath = path
			scraped++
		case errs.Fatal(err) || ctx.Err() != nil:
			return corpus.String(), scraped, skipped, err
		default:
			reason := errs.SkipReason(err)
			r.logger.Warn("skipping video",
				slog.String("id", video.ID),
				slog.String("title", video.Title),
				slog.String("reason", reason),
				slog.Any("error", err))
			result.Skipped = true
			result.SkipReason = reason
			skipped++
		}

		runReport.Videos = append(runReport.Videos, result)
		if err := r.store.AddVideo(ctx, runID, store.VideoRow{
			VideoID:        video.ID,
			Title:          video.Title,
			Channel:        video.Channel,
			URL:            video.URL,
			TranscriptPath: result.TranscriptPath,
			SkipReason:     result.SkipReason,
		}); err != nil {
			return corpus.String(), scraped, skipped, err
		}
		bar.Set(i + 1)
	}
	return corpus.String(), scraped, skipped, nil
}

func (r *Researcher) runPipeline(ctx context.Context, topic, query string, scraped int, corpus string, runReport *report.RunReport) error {
	spinner := r.ui.NewSpinner("Generating report")
	defer spinner.Finish()

	job := &pipeline.Job{
		Topic:       topic,
		Query:       query,
		VideoCount:  scraped,
		Transcripts: corpus,
	}
	result, err := r.pipeline.Run(ctx, job)
	if err != nil {
		return fmt.Errorf("report pipeline: %w", err)
	}

	for _, name := range result.Completed {
		runReport.Stages = append(runReport.Stages, report.StageResult{
			Name: name, Completed: true, Output: result.Outputs[name],
		})
	}
	for _, failure := range result.Failed {
		runReport.Stages = append(runReport.Stages, report.StageResult{
			Name: failure.Stage, Reason: failure.Reason,
		})
	}
	runReport.Final = result.Final
	return nil
}

// export writes the run report in the requested formats and returns the
// markdown path, which is the canonical one recorded on the run.
func (r *Researcher) export(runReport *report.RunReport, formats []string) (string, error) {
	if len(formats) == 0 {
		formats = []string{"md"}
	}
	if !slices.Contains(formats, "md") {
		formats = append([]string{"md"}, formats...)
	}

	var mdPath string
	for _, format := range formats {
		var err error
		switch format {
		case "md", "markdown":
			mdPath, err = runReport.SaveMarkdown(r.cfg.OutputDir)
		case "json":
			_, err = runReport.SaveJSON(r.cfg.OutputDir)
		case "html":
			_, err = runReport.SaveHTML(r.cfg.OutputDir)
		default:
			err = errs.Wrap(errs.ErrValidation, "research", "export", "unknown format "+format, nil)
		}
		if err != nil {
			return "", err
		}
	}
	return mdPath, nil
}

func (r *Researcher) finishRun(runID, status string, scraped, skipped int, reportPath string) {
	// Run bookkeeping must survive a canceled run context.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.FinishRun(ctx, runID, status, scraped, skipped, reportPath); err != nil {
		r.logger.Error("recording run state", slog.String("run", runID), slog.Any("error", err))
	}
}
