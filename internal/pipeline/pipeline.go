// Package pipeline chains the LLM report stages over a scraped transcript
// corpus. Each stage prepares a prompt, runs a completion, and stores its
// output on the shared job; a failed required stage aborts the chain, a
// failed optional stage is recorded and skipped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ytscout/internal/errs"
	"ytscout/internal/llm"
	"ytscout/internal/prompt"
)

// Completer is the completion surface stages run against.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts ...llm.Option) (string, error)
}

// Job carries accumulated state across stages of one run.
type Job struct {
	Topic       string
	Query       string
	VideoCount  int
	Transcripts string
	Outputs     map[string]string
}

// Handler is the contract each stage implements.
type Handler interface {
	Name() string
	Required() bool
	Prepare(ctx context.Context, job *Job) error
	Execute(ctx context.Context, job *Job) error
}

// StageFailure records a failed stage and its reason class.
type StageFailure struct {
	Stage  string
	Reason string
}

// Result accumulates the outcome of a pipeline run.
type Result struct {
	Completed []string
	Failed    []StageFailure
	Outputs   map[string]string
	Final     string
}

// Stage names, in execution order.
const (
	StageAnalysis  = "analysis"
	StageVisual    = "visual"
	StageSummary   = "summary"
	StageInsights  = "insights"
	StageKnowledge = "knowledge"
	StageAssemble  = "assemble"
)

// sectionOrder is the order stage outputs appear in the assembled report.
var sectionOrder = []string{StageSummary, StageAnalysis, StageVisual, StageInsights, StageKnowledge}

// llmStage runs one prompt template through the model.
type llmStage struct {
	name     string
	required bool
	ai       Completer
	prompts  *prompt.Manager
	rendered string
}

func (s *llmStage) Name() string   { return s.name }
func (s *llmStage) Required() bool { return s.required }

// Prepare renders the stage prompt from the job state.
func (s *llmStage) Prepare(_ context.Context, job *Job) error {
	data := prompt.Data{
		Topic:       job.Topic,
		Query:       job.Query,
		VideoCount:  job.VideoCount,
		Transcripts: job.Transcripts,
		Analysis:    job.Outputs[StageAnalysis],
		Sections:    joinSections(job.Outputs),
	}
	if s.name != StageAnalysis && data.Analysis == "" {
		return errs.Wrap(errs.ErrValidation, s.name, "prepare", "no analysis output to build on", nil)
	}
	rendered, err := s.prompts.Render(s.name, data)
	if err != nil {
		return err
	}
	s.rendered = rendered
	return nil
}

// Execute runs the completion and stores the output on the job.
func (s *llmStage) Execute(ctx context.Context, job *Job) error {
	out, err := s.ai.Complete(ctx, s.rendered)
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) == "" {
		return errs.Wrap(errs.ErrLLM, s.name, "execute", "empty completion", nil)
	}
	job.Outputs[s.name] = out
	return nil
}

func joinSections(outputs map[string]string) string {
	var parts []string
	for _, name := range sectionOrder {
		if out := outputs[name]; out != "" {
			parts = append(parts, out)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Runner executes the stage chain.
type Runner struct {
	stages []Handler
	logger *slog.Logger
}

// New builds the standard six-stage chain.
func New(ai Completer, prompts *prompt.Manager, logger *slog.Logger) *Runner {
	mk := func(name string, required bool) Handler {
		return &llmStage{name: name, required: required, ai: ai, prompts: prompts}
	}
	return &Runner{
		logger: logger,
		stages: []Handler{
			mk(StageAnalysis, true),
			mk(StageVisual, false),
			mk(StageSummary, false),
			mk(StageInsights, false),
			mk(StageKnowledge, false),
			mk(StageAssemble, false),
		},
	}
}

// NewWithStages builds a Runner over an explicit chain, for tests.
func NewWithStages(logger *slog.Logger, stages ...Handler) *Runner {
	return &Runner{stages: stages, logger: logger}
}

// Run executes the chain over job. It returns an error only when a required
// stage fails; optional failures are recorded on the Result.
func (r *Runner) Run(ctx context.Context, job *Job) (*Result, error) {
	if job.Outputs == nil {
		job.Outputs = make(map[string]string)
	}
	result := &Result{Outputs: job.Outputs}

	for _, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		r.logger.Info("stage started", slog.String("stage", stage.Name()))

		err := stage.Prepare(ctx, job)
		if err == nil {
			err = stage.Execute(ctx, job)
		}
		if err != nil {
			reason := failureReason(err)
			r.logger.Error("stage failed",
				slog.String("stage", stage.Name()),
				slog.String("reason", reason),
				slog.Any("error", err))
			if stage.Required() {
				return result, fmt.Errorf("required stage %s: %w", stage.Name(), err)
			}
			result.Failed = append(result.Failed, StageFailure{Stage: stage.Name(), Reason: reason})
			continue
		}

		r.logger.Info("stage completed", slog.String("stage", stage.Name()))
		result.Completed = append(result.Completed, stage.Name())
	}

	result.Final = job.Outputs[StageAssemble]
	if result.Final == "" {
		// Assembly failed or was skipped; fall back to raw section order.
		result.Final = joinSections(job.Outputs)
	}
	return result, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, errs.ErrLLM):
		return "llm_failed"
	case errors.Is(err, errs.ErrValidation):
		return "missing_input"
	case errors.Is(err, errs.ErrConfiguration):
		return "configuration"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "failed"
	}
}
