// Package errs defines the failure taxonomy shared by the scrape loop and
// the analysis pipeline. Callers tag errors with one of the sentinel markers
// so that downstream code can decide between aborting a run and skipping a
// single video without string matching.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoCaptions means the video exists but exposes no caption track.
	ErrNoCaptions = errors.New("no captions")
	// ErrFetchFailed means a network call to YouTube did not succeed.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrParseFailed means YouTube answered but the payload was unusable,
	// typically because the page layout changed upstream.
	ErrParseFailed = errors.New("parse failed")
	// ErrRateLimited means YouTube or the LLM endpoint pushed back.
	ErrRateLimited = errors.New("rate limited")
	// ErrValidation covers bad user input (queries, IDs, filter labels).
	ErrValidation = errors.New("validation error")
	// ErrConfiguration covers missing or inconsistent settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrLLM covers chat-completion failures.
	ErrLLM = errors.New("llm error")
)

// Wrap tags err with marker and prefixes stage/operation context. The marker
// should be one of the sentinels above; a nil marker degrades to ErrFetchFailed.
func Wrap(marker error, stage, op, message string, err error) error {
	detail := buildDetail(stage, op, message)
	if marker == nil {
		marker = ErrFetchFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// SkipReason classifies a per-video error into the reason recorded on the run.
func SkipReason(err error) string {
	switch {
	case errors.Is(err, ErrNoCaptions):
		return "no_captions"
	case errors.Is(err, ErrParseFailed):
		return "parse_failed"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "fetch_failed"
	}
}

// Fatal reports whether err should abort the whole run rather than skip the
// current video. Configuration and validation problems will not improve with
// the next video.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrValidation)
}

func buildDetail(stage, op, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if op = strings.TrimSpace(op); op != "" {
		parts = append(parts, op)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
