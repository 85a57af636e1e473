// Package ui handles terminal output concerns: progress bars, spinners, and
// verbosity-gated status messages.
package ui

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Manager handles all user interface concerns.
type Manager interface {
	NewProgressBar(total int, description string) ProgressBar
	NewSpinner(description string) ProgressBar

	Verbose(format string, args ...any)
	Printf(format string, args ...any)
	Println(args ...any)
}

// ProgressBar abstracts progress bar operations.
type ProgressBar interface {
	Set(current int)
	Describe(description string)
	Finish()
}

// StandardManager writes to stdout, honoring verbose and quiet flags.
type StandardManager struct {
	verbose bool
	quiet   bool
}

// NewManager creates the standard UI manager.
func NewManager(verbose, quiet bool) Manager {
	return &StandardManager{verbose: verbose, quiet: quiet}
}

func (ui *StandardManager) NewProgressBar(total int, description string) ProgressBar {
	if ui.quiet {
		return &silentBar{bar: progressbar.DefaultSilent(int64(total))}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	return &visibleBar{bar: bar}
}

// NewSpinner creates an indeterminate spinner for LLM stages, where no
// meaningful progress count exists.
func (ui *StandardManager) NewSpinner(description string) ProgressBar {
	if ui.quiet {
		return &silentBar{bar: progressbar.DefaultSilent(-1)}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &visibleBar{bar: bar}
}

func (ui *StandardManager) Verbose(format string, args ...any) {
	if ui.verbose {
		fmt.Printf(format, args...)
	}
}

func (ui *StandardManager) Printf(format string, args ...any) {
	if !ui.quiet {
		fmt.Printf(format, args...)
	}
}

func (ui *StandardManager) Println(args ...any) {
	if !ui.quiet {
		fmt.Println(args...)
	}
}

type visibleBar struct {
	bar *progressbar.ProgressBar
}

func (v *visibleBar) Set(current int)             { _ = v.bar.Set(current) }
func (v *visibleBar) Describe(description string) { v.bar.Describe(description) }
func (v *visibleBar) Finish()                     { _ = v.bar.Finish() }

type silentBar struct {
	bar *progressbar.ProgressBar
}

func (s *silentBar) Set(current int) { _ = s.bar.Set(current) }
func (s *silentBar) Describe(string) {}
func (s *silentBar) Finish()         { _ = s.bar.Finish() }

// NopManager discards all output; used by the MCP server and tests.
type NopManager struct{}

func (NopManager) NewProgressBar(total int, description string) ProgressBar {
	return &silentBar{bar: progressbar.DefaultSilent(int64(total))}
}
func (NopManager) NewSpinner(description string) ProgressBar {
	return &silentBar{bar: progressbar.DefaultSilent(-1)}
}
func (NopManager) Verbose(string, ...any) {}
func (NopManager) Printf(string, ...any)  {}
func (NopManager) Println(...any)         {}
