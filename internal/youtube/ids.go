package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"ytscout/internal/errs"
)

var (
	videoIDRE      = regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	videoIDCharsRE = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// IsValidVideoID checks whether a string looks like a YouTube video ID.
// Video IDs are exactly 11 characters of [A-Za-z0-9_-].
func IsValidVideoID(id string) bool {
	return videoIDCharsRE.MatchString(id)
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ExtractVideoID pulls the 11-char video ID out of any YouTube URL format.
// A bare video ID is returned unchanged.
func ExtractVideoID(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if IsValidVideoID(arg) {
		return arg, nil
	}
	if m := videoIDRE.FindStringSubmatch(arg); len(m) >= 2 {
		return m[1], nil
	}

	// Fall back to strict parsing for odd but valid URLs.
	u, err := url.Parse(arg)
	if err != nil {
		return "", errs.Wrap(errs.ErrValidation, "youtube", "parse url", arg, err)
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if host != "youtube.com" && host != "youtu.be" {
		return "", errs.Wrap(errs.ErrValidation, "youtube", "parse url", fmt.Sprintf("not a YouTube URL: %s", arg), nil)
	}
	if v := u.Query().Get("v"); IsValidVideoID(v) {
		return v, nil
	}
	return "", errs.Wrap(errs.ErrValidation, "youtube", "parse url", fmt.Sprintf("no video ID in %s", arg), nil)
}
