package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"ytscout/internal/errs"
	"ytscout/internal/httpx"
)

const ytInitialDataMarker = "var ytInitialData = "

// Search returns up to limit videos matching query. With an API key the Data
// API v3 backend is used; otherwise the results page is scraped. A search
// failure is a hard error for the run, unlike per-video transcript failures.
func (c *Client) Search(ctx context.Context, query string, filters Filters, limit int) ([]Video, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errs.Wrap(errs.ErrValidation, "search", "query", "empty query", nil)
	}
	if limit <= 0 {
		limit = 5
	}
	// The Data API caps maxResults at 50.
	if limit > 50 {
		limit = 50
	}
	if c.apiKey != "" {
		videos, err := c.searchDataAPI(ctx, query, filters, limit)
		if err == nil {
			return videos, nil
		}
		c.logger.Warn("data API search failed, falling back to scrape", slog.Any("error", err))
	}
	return c.searchInitialData(ctx, query, filters, limit)
}

// --- Data API v3 backend ---

type ytDataSearchResp struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

func (c *Client) searchDataAPI(ctx context.Context, query string, filters Filters, limit int) ([]Video, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", fmt.Sprintf("%d", limit))
	params.Set("order", filters.APIOrder())
	params.Set("key", c.apiKey)
	if after := filters.PublishedAfter(time.Now().UTC()); !after.IsZero() {
		params.Set("publishedAfter", after.Format(time.RFC3339))
	}

	apiURL := c.apiBase + "/search?" + params.Encode()
	resp, err := httpx.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", httpx.UserAgentBot)
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetchFailed, "search", "data api", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errs.Wrap(errs.ErrFetchFailed, "search", "data api",
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body), nil)
	}

	var result ytDataSearchResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errs.Wrap(errs.ErrParseFailed, "search", "data api", "decode response", err)
	}

	videos := make([]Video, 0, len(result.Items))
	for _, item := range result.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, Video{
			ID:      item.ID.VideoID,
			Title:   item.Snippet.Title,
			Channel: item.Snippet.ChannelTitle,
			URL:     WatchURL(item.ID.VideoID),
			Snippet: truncate(item.Snippet.Description, 200),
		})
	}
	return videos, nil
}

// --- results page scrape backend ---

func (c *Client) searchInitialData(ctx context.Context, query string, filters Filters, limit int) ([]Video, error) {
	searchURL := c.webBase + "/results?search_query=" + url.QueryEscape(query)
	if token := filters.SpToken(); token != "" {
		searchURL += "&sp=" + token
	}

	resp, err := httpx.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", httpx.UserAgentChrome)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetchFailed, "search", "results page", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetchFailed, "search", "results page", "read body", err)
	}

	idx := strings.Index(string(body), ytInitialDataMarker)
	if idx < 0 {
		return nil, errs.Wrap(errs.ErrParseFailed, "search", "results page", "ytInitialData not found", nil)
	}
	jsonData := extractJSON(body[idx+len(ytInitialDataMarker):])
	if jsonData == nil {
		return nil, errs.Wrap(errs.ErrParseFailed, "search", "results page", "ytInitialData not valid JSON", nil)
	}
	videos := extractVideosFromInitialData(jsonData, limit)
	if len(videos) == 0 {
		return nil, errs.Wrap(errs.ErrParseFailed, "search", "results page", "no videoRenderer entries", nil)
	}
	return videos, nil
}

// extractJSON extracts a complete JSON object starting at b[0] == '{' by
// tracking brace depth outside string literals.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	var prev byte
	for i, c := range b {
		if inStr {
			if c == '"' && prev != '\\' {
				inStr = false
			}
		} else {
			switch c {
			case '"':
				inStr = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return b[:i+1]
				}
			}
		}
		prev = c
	}
	return nil
}

type videoRenderer struct {
	VideoID string `json:"videoId"`
	Title   struct {
		Runs []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"title"`
	OwnerText struct {
		Runs []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"ownerText"`
	DescriptionSnippet *struct {
		Runs []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"descriptionSnippet"`
}

// extractVideosFromInitialData recursively walks ytInitialData for
// videoRenderer entries. Result pages repeat videos across shelves, so IDs
// are deduplicated; object keys are visited in sorted order so the selection
// under limit is deterministic.
func extractVideosFromInitialData(data []byte, limit int) []Video {
	var results []Video
	seen := make(map[string]bool)
	var walk func(v json.RawMessage)
	walk = func(v json.RawMessage) {
		if len(results) >= limit {
			return
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(v, &obj); err == nil {
			if raw, ok := obj["videoRenderer"]; ok {
				var vr videoRenderer
				if err := json.Unmarshal(raw, &vr); err == nil && vr.VideoID != "" {
					if seen[vr.VideoID] {
						return
					}
					seen[vr.VideoID] = true
					title := ""
					if len(vr.Title.Runs) > 0 {
						title = vr.Title.Runs[0].Text
					}
					channel := ""
					if len(vr.OwnerText.Runs) > 0 {
						channel = vr.OwnerText.Runs[0].Text
					}
					var snippetParts []string
					if vr.DescriptionSnippet != nil {
						for _, r := range vr.DescriptionSnippet.Runs {
							snippetParts = append(snippetParts, r.Text)
						}
					}
					results = append(results, Video{
						ID:      vr.VideoID,
						Title:   title,
						Channel: channel,
						URL:     WatchURL(vr.VideoID),
						Snippet: truncate(strings.Join(snippetParts, ""), 200),
					})
					return
				}
			}
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if len(results) >= limit {
					return
				}
				walk(obj[k])
			}
			return
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(v, &arr); err == nil {
			for _, item := range arr {
				if len(results) >= limit {
					return
				}
				walk(item)
			}
		}
	}
	walk(data)
	return results
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
