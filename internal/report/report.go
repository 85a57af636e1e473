// Package report turns scraped transcripts and pipeline output into files:
// one markdown artifact per video plus a run report exported as markdown,
// JSON, and HTML.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"ytscout/internal/errs"
	"ytscout/internal/youtube"
)

// maxFilenameLen bounds sanitized filename stems so paths stay portable.
const maxFilenameLen = 120

// sentencesPerParagraph is the chunk size for transcript readability.
const sentencesPerParagraph = 5

var illegalPathChars = regexp.MustCompile(`[<>:"/\\|?*` + "\x00-\x1f" + `]`)

// SanitizeFilename strips characters illegal in file paths, collapses
// whitespace to single spaces, and truncates to a fixed byte bound without
// splitting a multibyte rune.
func SanitizeFilename(s string) string {
	s = illegalPathChars.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxFilenameLen {
		cut := maxFilenameLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = strings.TrimSpace(s[:cut])
	}
	if s == "" {
		return "untitled"
	}
	return s
}

var sentenceEndRE = regexp.MustCompile(`([.!?])\s+`)

// splitSentences breaks text into sentences on terminal punctuation followed
// by whitespace. The trailing fragment is kept even without punctuation.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	marked := sentenceEndRE.ReplaceAllString(text, "$1\x1e")
	parts := strings.Split(marked, "\x1e")
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// ChunkParagraphs groups transcript sentences into paragraphs of five
// sentences each; the final paragraph keeps whatever remains.
func ChunkParagraphs(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	var paragraphs []string
	for i := 0; i < len(sentences); i += sentencesPerParagraph {
		end := i + sentencesPerParagraph
		if end > len(sentences) {
			end = len(sentences)
		}
		paragraphs = append(paragraphs, strings.Join(sentences[i:end], " "))
	}
	return strings.Join(paragraphs, "\n\n")
}

// Writer persists per-video transcript artifacts under a directory.
type Writer struct {
	dir string
}

// NewWriter creates a Writer rooted at dir, creating it if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, "report", "output dir", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the artifact directory.
func (w *Writer) Dir() string { return w.dir }

// WriteVideoMarkdown writes the transcript artifact for one video and returns
// its path. The filename stem is built from sanitized title, channel, and date.
func (w *Writer) WriteVideoMarkdown(video youtube.Video, transcript string, now time.Time) (string, error) {
	date := now.Format("2006-01-02")
	stem := SanitizeFilename(fmt.Sprintf("%s - %s - %s", video.Title, video.Channel, date))
	path := filepath.Join(w.dir, stem+".md")

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", video.Title)
	fmt.Fprintf(&sb, "- **Channel**: %s\n", video.Channel)
	fmt.Fprintf(&sb, "- **URL**: %s\n", video.URL)
	fmt.Fprintf(&sb, "- **Scraped**: %s\n\n", date)
	sb.WriteString("## Transcript\n\n")
	sb.WriteString(ChunkParagraphs(transcript))
	sb.WriteString("\n")

	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return "", fmt.Errorf("writing artifact %s: %w", path, err)
	}
	return path, nil
}
