package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ytscout/internal/errs"
	"ytscout/internal/llm"
	"ytscout/internal/logging"
	"ytscout/internal/prompt"
)

// scriptedCompleter answers each prompt by the stage keyword it contains.
type scriptedCompleter struct {
	failOn map[string]error
	calls  []string
}

func (s *scriptedCompleter) Complete(ctx context.Context, p string, opts ...llm.Option) (string, error) {
	stage := "unknown"
	switch {
	case strings.Contains(p, "research analyst"):
		stage = StageAnalysis
	case strings.Contains(p, "mermaid"):
		stage = StageVisual
	case strings.Contains(p, "executive summary"):
		stage = StageSummary
	case strings.Contains(p, "non-obvious insights"):
		stage = StageInsights
	case strings.Contains(p, "Glossary"):
		stage = StageKnowledge
	case strings.Contains(p, "Assemble the sections"):
		stage = StageAssemble
	}
	s.calls = append(s.calls, stage)
	if err := s.failOn[stage]; err != nil {
		return "", err
	}
	return stage + " output", nil
}

func newTestRunner(t *testing.T, ai Completer) *Runner {
	t.Helper()
	prompts, err := prompt.NewManager("")
	require.NoError(t, err)
	return New(ai, prompts, logging.NewNop())
}

func testJob() *Job {
	return &Job{
		Topic:       "go concurrency",
		Query:       "golang concurrency tutorial",
		VideoCount:  2,
		Transcripts: "transcript one\n\ntranscript two",
	}
}

func TestRunAllStagesComplete(t *testing.T) {
	ai := &scriptedCompleter{}
	result, err := newTestRunner(t, ai).Run(context.Background(), testJob())
	require.NoError(t, err)

	require.Equal(t, []string{
		StageAnalysis, StageVisual, StageSummary, StageInsights, StageKnowledge, StageAssemble,
	}, result.Completed)
	require.Empty(t, result.Failed)
	require.Equal(t, "assemble output", result.Final)
	require.Equal(t, "analysis output", result.Outputs[StageAnalysis])
}

func TestRunRequiredStageFailureAborts(t *testing.T) {
	ai := &scriptedCompleter{failOn: map[string]error{
		StageAnalysis: errs.Wrap(errs.ErrLLM, "llm", "completion", "", errors.New("down")),
	}}
	_, err := newTestRunner(t, ai).Run(context.Background(), testJob())
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrLLM)
	// Nothing after the required stage ran.
	require.Equal(t, []string{StageAnalysis}, ai.calls)
}

func TestRunOptionalStageFailureContinues(t *testing.T) {
	ai := &scriptedCompleter{failOn: map[string]error{
		StageVisual: errs.Wrap(errs.ErrLLM, "llm", "completion", "", errors.New("down")),
	}}
	result, err := newTestRunner(t, ai).Run(context.Background(), testJob())
	require.NoError(t, err)

	require.NotContains(t, result.Completed, StageVisual)
	require.Equal(t, []StageFailure{{Stage: StageVisual, Reason: "llm_failed"}}, result.Failed)
	require.Contains(t, result.Completed, StageAssemble)
	require.Equal(t, "assemble output", result.Final)
}

func TestRunAssembleFailureFallsBackToSections(t *testing.T) {
	ai := &scriptedCompleter{failOn: map[string]error{
		StageAssemble: errs.Wrap(errs.ErrLLM, "llm", "completion", "", errors.New("down")),
	}}
	result, err := newTestRunner(t, ai).Run(context.Background(), testJob())
	require.NoError(t, err)

	// Fallback keeps the section order: summary before analysis.
	require.Less(t,
		strings.Index(result.Final, "summary output"),
		strings.Index(result.Final, "analysis output"))
	require.Contains(t, result.Final, "knowledge output")
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ai := &scriptedCompleter{}
	_, err := newTestRunner(t, ai).Run(ctx, testJob())
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, ai.calls)
}

func TestFailureReason(t *testing.T) {
	require.Equal(t, "llm_failed", failureReason(errs.Wrap(errs.ErrLLM, "s", "o", "", nil)))
	require.Equal(t, "missing_input", failureReason(errs.Wrap(errs.ErrValidation, "s", "o", "", nil)))
	require.Equal(t, "timeout", failureReason(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	require.Equal(t, "failed", failureReason(errors.New("anything")))
}
