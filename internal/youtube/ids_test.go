package youtube

import (
	"errors"
	"testing"

	"ytscout/internal/errs"
)

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ"},
	}
	for _, tc := range cases {
		got, err := ExtractVideoID(tc.in)
		if err != nil {
			t.Errorf("ExtractVideoID(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ExtractVideoID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractVideoIDRejectsNonYouTube(t *testing.T) {
	for _, in := range []string{"https://vimeo.com/12345", "not a url at all", "short"} {
		_, err := ExtractVideoID(in)
		if err == nil {
			t.Errorf("ExtractVideoID(%q) expected error", in)
			continue
		}
		if !errors.Is(err, errs.ErrValidation) {
			t.Errorf("ExtractVideoID(%q) error not tagged validation: %v", in, err)
		}
	}
}

func TestIsValidVideoID(t *testing.T) {
	if !IsValidVideoID("dQw4w9WgXcQ") {
		t.Error("canonical ID rejected")
	}
	for _, id := range []string{"", "short", "dQw4w9WgXcQ1", "dQw4w9WgXc!"} {
		if IsValidVideoID(id) {
			t.Errorf("IsValidVideoID(%q) = true", id)
		}
	}
}

func TestWatchURL(t *testing.T) {
	if got := WatchURL("dQw4w9WgXcQ"); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("WatchURL = %q", got)
	}
}
