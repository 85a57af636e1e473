package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
)

//go:embed report.html.tmpl
var htmlTemplateFS embed.FS

// StageResult records one pipeline stage's outcome in a run report.
type StageResult struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	Reason    string `json:"reason,omitempty"`
	Output    string `json:"output,omitempty"`
}

// VideoResult records one processed video in a run report.
type VideoResult struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Channel        string `json:"channel"`
	URL            string `json:"url"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	Skipped        bool   `json:"skipped,omitempty"`
	SkipReason     string `json:"skip_reason,omitempty"`
}

// RunReport is the complete result of a research run.
type RunReport struct {
	RunID       string        `json:"run_id"`
	Topic       string        `json:"topic"`
	Query       string        `json:"query"`
	GeneratedAt time.Time     `json:"generated_at"`
	Videos      []VideoResult `json:"videos"`
	Stages      []StageResult `json:"stages"`
	Final       string        `json:"report"`
}

// Markdown renders the canonical markdown form of the run report: the
// assembled pipeline output followed by a sources appendix.
func (r *RunReport) Markdown() string {
	var sb strings.Builder
	if r.Final != "" {
		sb.WriteString(r.Final)
		sb.WriteString("\n\n")
	} else {
		fmt.Fprintf(&sb, "# Research: %s\n\n", r.Topic)
	}

	sb.WriteString("## Sources\n\n")
	for _, v := range r.Videos {
		if v.Skipped {
			fmt.Fprintf(&sb, "- ~~%s~~ (%s) skipped: %s\n", v.Title, v.Channel, v.SkipReason)
		} else {
			fmt.Fprintf(&sb, "- [%s](%s) (%s)\n", v.Title, v.URL, v.Channel)
		}
	}

	var failed []string
	for _, s := range r.Stages {
		if !s.Completed {
			failed = append(failed, fmt.Sprintf("%s (%s)", s.Name, s.Reason))
		}
	}
	if len(failed) > 0 {
		sb.WriteString("\n## Incomplete Sections\n\n")
		for _, f := range failed {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
	}

	fmt.Fprintf(&sb, "\n---\nQuery: %q, generated %s\n",
		r.Query, r.GeneratedAt.Format("2006-01-02 15:04 MST"))
	return sb.String()
}

// SaveMarkdown writes the markdown report and returns its path.
func (r *RunReport) SaveMarkdown(dir string) (string, error) {
	path := filepath.Join(dir, r.baseName()+".md")
	if err := os.WriteFile(path, []byte(r.Markdown()), 0644); err != nil {
		return "", fmt.Errorf("writing markdown report: %w", err)
	}
	return path, nil
}

// SaveJSON writes the report as indented JSON and returns its path.
func (r *RunReport) SaveJSON(dir string) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	path := filepath.Join(dir, r.baseName()+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing JSON report: %w", err)
	}
	return path, nil
}

type htmlReportData struct {
	Topic       string
	GeneratedAt string
	Body        template.HTML
}

// SaveHTML converts the markdown report to HTML inside a standalone page and
// returns its path.
func (r *RunReport) SaveHTML(dir string) (string, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(r.Markdown()), &body); err != nil {
		return "", fmt.Errorf("converting report to HTML: %w", err)
	}

	tmpl, err := template.ParseFS(htmlTemplateFS, "report.html.tmpl")
	if err != nil {
		return "", fmt.Errorf("parsing HTML template: %w", err)
	}
	var page bytes.Buffer
	err = tmpl.Execute(&page, htmlReportData{
		Topic:       r.Topic,
		GeneratedAt: r.GeneratedAt.Format("2006-01-02 15:04 MST"),
		Body:        template.HTML(body.String()),
	})
	if err != nil {
		return "", fmt.Errorf("rendering HTML page: %w", err)
	}

	path := filepath.Join(dir, r.baseName()+".html")
	if err := os.WriteFile(path, page.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("writing HTML report: %w", err)
	}
	return path, nil
}

func (r *RunReport) baseName() string {
	return SanitizeFilename(fmt.Sprintf("%s - report - %s", r.Topic, r.GeneratedAt.Format("2006-01-02")))
}
