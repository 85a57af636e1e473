// Package prompt loads and renders the text templates behind every LLM call
// in the report pipeline.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"ytscout/internal/errs"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Data is injected into stage templates.
type Data struct {
	Topic       string
	Query       string
	VideoCount  int
	Transcripts string
	Analysis    string
	Sections    string
}

// Manager resolves stage templates, honoring a user-supplied override for the
// analysis stage. The override setting may be a template string or a path to a
// template file, distinguished heuristically the same way the config layer
// treats it.
type Manager struct {
	templates *template.Template
	custom    string
}

// NewManager parses the embedded templates and resolves customSetting, which
// may be empty, an inline template, or a file path.
func NewManager(customSetting string) (*Manager, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, "prompt", "parse templates", "", err)
	}

	m := &Manager{templates: templates}
	if customSetting != "" {
		if IsLikelyFilePath(customSetting) {
			content, err := os.ReadFile(customSetting)
			if err != nil {
				return nil, errs.Wrap(errs.ErrConfiguration, "prompt", "custom prompt file", customSetting, err)
			}
			m.custom = string(content)
		} else {
			m.custom = customSetting
		}
	}
	return m, nil
}

// Render builds the prompt for a named stage.
func (m *Manager) Render(stage string, data Data) (string, error) {
	if stage == "analysis" && m.custom != "" {
		tmpl, err := template.New("custom").Parse(m.custom)
		if err != nil {
			return "", errs.Wrap(errs.ErrConfiguration, "prompt", "parse custom prompt", "", err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", errs.Wrap(errs.ErrConfiguration, "prompt", "render custom prompt", "", err)
		}
		return buf.String(), nil
	}

	name := stage + ".tmpl"
	if m.templates.Lookup(name) == nil {
		return "", fmt.Errorf("no template for stage %q", stage)
	}
	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

// IsLikelyFilePath reports whether a prompt setting looks like a path rather
// than an inline template.
func IsLikelyFilePath(s string) bool {
	if strings.Contains(s, "/") || strings.Contains(s, "\\") {
		return true
	}
	if strings.Contains(s, ".txt") || strings.Contains(s, ".md") ||
		strings.Contains(s, ".template") || strings.Contains(s, ".tmpl") {
		return true
	}
	if len(s) > 200 {
		return false
	}
	return !strings.Contains(s, " ") && !strings.Contains(s, "\n")
}
