package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderEmbeddedStages(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)

	data := Data{
		Topic:       "go concurrency",
		VideoCount:  3,
		Transcripts: "TRANSCRIPT BODY",
		Analysis:    "ANALYSIS BODY",
		Sections:    "SECTION BODY",
	}

	for _, stage := range []string{"analysis", "visual", "summary", "insights", "knowledge", "assemble"} {
		out, err := m.Render(stage, data)
		require.NoError(t, err, "stage %s", stage)
		require.Contains(t, out, "go concurrency", "stage %s", stage)
	}

	out, err := m.Render("analysis", data)
	require.NoError(t, err)
	require.Contains(t, out, "TRANSCRIPT BODY")

	out, err = m.Render("summary", data)
	require.NoError(t, err)
	require.Contains(t, out, "ANALYSIS BODY")

	out, err = m.Render("assemble", data)
	require.NoError(t, err)
	require.Contains(t, out, "SECTION BODY")
}

func TestRenderUnknownStage(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)
	_, err = m.Render("nope", Data{})
	require.Error(t, err)
}

func TestCustomPromptString(t *testing.T) {
	m, err := NewManager("Analyze {{.Topic}} in one line.")
	require.NoError(t, err)

	out, err := m.Render("analysis", Data{Topic: "rust vs go"})
	require.NoError(t, err)
	require.Equal(t, "Analyze rust vs go in one line.", out)

	// Other stages keep their embedded templates.
	out, err = m.Render("summary", Data{Topic: "rust vs go", Analysis: "A"})
	require.NoError(t, err)
	require.NotEqual(t, "Analyze rust vs go in one line.", out)
}

func TestCustomPromptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("From file: {{.Transcripts}}"), 0o644))

	m, err := NewManager(path)
	require.NoError(t, err)

	out, err := m.Render("analysis", Data{Transcripts: "hello"})
	require.NoError(t, err)
	require.Equal(t, "From file: hello", out)
}

func TestCustomPromptMissingFile(t *testing.T) {
	_, err := NewManager(filepath.Join(t.TempDir(), "missing.tmpl"))
	require.Error(t, err)
}

func TestIsLikelyFilePath(t *testing.T) {
	require.True(t, IsLikelyFilePath("/etc/prompt.txt"))
	require.True(t, IsLikelyFilePath("prompt.md"))
	require.True(t, IsLikelyFilePath("single-token"))
	require.False(t, IsLikelyFilePath("Summarize this transcript for me"))
	require.False(t, IsLikelyFilePath(strings.Repeat("x", 201)))
}
