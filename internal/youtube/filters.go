package youtube

import (
	"strings"
	"time"
)

// Filters narrows a video search. Labels are the human-readable option names
// the original UI exposed; unknown labels are passed through unchanged so
// callers can supply raw tokens directly.
type Filters struct {
	UploadDate string // "Any time", "Last hour", "Today", "This week", "This month", "This year"
	SortBy     string // "Relevance", "Upload date", "View count", "Rating"
}

// videosOnlyToken limits scrape-backend results to videos (no channels or
// playlists), matching the search page's "Type: Video" filter.
const videosOnlyToken = "EgIQAQ%3D%3D"

// Upload-date filter tokens for the results-page sp parameter. Each token
// already includes the videos-only type bit.
var uploadDateTokens = map[string]string{
	"last hour":  "EgQIARAB",
	"today":      "EgQIAhAB",
	"this week":  "EgQIAxAB",
	"this month": "EgQIBBAB",
	"this year":  "EgQIBRAB",
}

// Sort tokens for the results-page sp parameter.
var sortTokens = map[string]string{
	"relevance":   "",
	"upload date": "CAI%3D",
	"view count":  "CAM%3D",
	"rating":      "CAE%3D",
}

// Data API order values per search.list documentation.
var apiOrders = map[string]string{
	"relevance":   "relevance",
	"upload date": "date",
	"view count":  "viewCount",
	"rating":      "rating",
}

// Lookback windows for the Data API publishedAfter parameter.
var uploadDateWindows = map[string]time.Duration{
	"last hour":  time.Hour,
	"today":      24 * time.Hour,
	"this week":  7 * 24 * time.Hour,
	"this month": 30 * 24 * time.Hour,
	"this year":  365 * 24 * time.Hour,
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// SpToken maps the filters to a results-page sp parameter value. Known labels
// produce their documented tokens; an unknown non-empty label passes through
// unchanged.
func (f Filters) SpToken() string {
	if label := normalizeLabel(f.UploadDate); label != "" && label != "any time" && label != "any" {
		if token, ok := uploadDateTokens[label]; ok {
			return token
		}
		return f.UploadDate
	}
	if label := normalizeLabel(f.SortBy); label != "" && label != "relevance" {
		if token, ok := sortTokens[label]; ok {
			return token
		}
		return f.SortBy
	}
	return videosOnlyToken
}

// APIOrder maps the sort label to the Data API order parameter. Unknown
// labels pass through unchanged; empty means relevance.
func (f Filters) APIOrder() string {
	label := normalizeLabel(f.SortBy)
	if label == "" {
		return "relevance"
	}
	if order, ok := apiOrders[label]; ok {
		return order
	}
	return f.SortBy
}

// PublishedAfter returns the Data API publishedAfter bound for the upload-date
// label, relative to now. The zero time means no bound.
func (f Filters) PublishedAfter(now time.Time) time.Time {
	if window, ok := uploadDateWindows[normalizeLabel(f.UploadDate)]; ok {
		return now.Add(-window)
	}
	return time.Time{}
}
