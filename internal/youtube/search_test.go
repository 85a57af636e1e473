package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ytscout/internal/httpx"
)

func testRetry() httpx.RetryConfig {
	return httpx.RetryConfig{MaxRetries: 0, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1}
}

func TestSearchDataAPI(t *testing.T) {
	var gotQuery, gotOrder, gotPublishedAfter string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("q")
		gotOrder = r.URL.Query().Get("order")
		gotPublishedAfter = r.URL.Query().Get("publishedAfter")
		resp := map[string]any{
			"items": []map[string]any{
				{
					"id":      map[string]any{"videoId": "dQw4w9WgXcQ"},
					"snippet": map[string]any{"title": "First", "channelTitle": "ChannelA", "description": "desc one"},
				},
				{
					"id":      map[string]any{"videoId": "abcdefghijk"},
					"snippet": map[string]any{"title": "Second", "channelTitle": "ChannelB", "description": "desc two"},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer api.Close()

	c := New("test-key", WithEndpoints(api.URL, ""), WithRetryConfig(testRetry()))
	videos, err := c.Search(context.Background(), "go concurrency", Filters{SortBy: "View count", UploadDate: "This month"}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery != "go concurrency" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotOrder != "viewCount" {
		t.Errorf("order = %q", gotOrder)
	}
	if gotPublishedAfter == "" {
		t.Error("publishedAfter not set for upload-date filter")
	}

	if len(videos) != 2 {
		t.Fatalf("got %d videos", len(videos))
	}
	if videos[0].ID != "dQw4w9WgXcQ" || videos[0].Title != "First" || videos[0].Channel != "ChannelA" {
		t.Errorf("first video = %+v", videos[0])
	}
	if videos[0].URL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("first video URL = %q", videos[0].URL)
	}
}

func TestSearchScrapeFallback(t *testing.T) {
	initialData := map[string]any{
		"contents": map[string]any{
			"sectionList": []any{
				map[string]any{
					"videoRenderer": map[string]any{
						"videoId":   "dQw4w9WgXcQ",
						"title":     map[string]any{"runs": []any{map[string]any{"text": "Scraped Title"}}},
						"ownerText": map[string]any{"runs": []any{map[string]any{"text": "Scraped Channel"}}},
						"descriptionSnippet": map[string]any{
							"runs": []any{map[string]any{"text": "a snippet"}},
						},
					},
				},
				map[string]any{
					"videoRenderer": map[string]any{
						"videoId":   "abcdefghijk",
						"title":     map[string]any{"runs": []any{map[string]any{"text": "Second"}}},
						"ownerText": map[string]any{"runs": []any{map[string]any{"text": "Other"}}},
					},
				},
			},
		},
	}
	blob, err := json.Marshal(initialData)
	if err != nil {
		t.Fatal(err)
	}

	var gotSp string
	web := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/results" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotSp = r.URL.Query().Get("sp")
		fmt.Fprintf(w, "<html><script>var ytInitialData = %s;</script></html>", blob)
	}))
	defer web.Close()

	c := New("", WithEndpoints("", web.URL), WithRetryConfig(testRetry()))
	videos, err := c.Search(context.Background(), "go concurrency", Filters{}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotSp == "" {
		t.Error("sp token not sent")
	}
	if len(videos) != 1 {
		t.Fatalf("limit not honored: got %d videos", len(videos))
	}
	if videos[0].ID != "dQw4w9WgXcQ" || videos[0].Title != "Scraped Title" || videos[0].Channel != "Scraped Channel" {
		t.Errorf("video = %+v", videos[0])
	}
}

func TestSearchClampsLimitToAPIBound(t *testing.T) {
	var gotMaxResults string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMaxResults = r.URL.Query().Get("maxResults")
		resp := map[string]any{
			"items": []map[string]any{
				{
					"id":      map[string]any{"videoId": "dQw4w9WgXcQ"},
					"snippet": map[string]any{"title": "Only", "channelTitle": "A"},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer api.Close()

	c := New("test-key", WithEndpoints(api.URL, ""), WithRetryConfig(testRetry()))
	if _, err := c.Search(context.Background(), "big ask", Filters{}, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMaxResults != "50" {
		t.Errorf("maxResults = %q, want 50", gotMaxResults)
	}
}

func videoRendererNode(id, title string) map[string]any {
	return map[string]any{
		"videoRenderer": map[string]any{
			"videoId":   id,
			"title":     map[string]any{"runs": []any{map[string]any{"text": title}}},
			"ownerText": map[string]any{"runs": []any{map[string]any{"text": "Chan"}}},
		},
	}
}

func TestExtractVideosDedupsRepeatedEntries(t *testing.T) {
	// Result pages repeat the same video across shelves.
	initialData := map[string]any{
		"contents": map[string]any{
			"primary": []any{
				videoRendererNode("dQw4w9WgXcQ", "First"),
				videoRendererNode("dQw4w9WgXcQ", "First Again"),
				videoRendererNode("abcdefghijk", "Second"),
			},
		},
	}
	blob, err := json.Marshal(initialData)
	if err != nil {
		t.Fatal(err)
	}

	videos := extractVideosFromInitialData(blob, 3)
	if len(videos) != 2 {
		t.Fatalf("got %d videos, want 2 distinct", len(videos))
	}
	if videos[0].ID != "dQw4w9WgXcQ" || videos[1].ID != "abcdefghijk" {
		t.Errorf("videos = %+v", videos)
	}
}

func TestExtractVideosDeterministicUnderLimit(t *testing.T) {
	// Two sections each holding one video; with limit 1 the pick must be
	// stable across runs, so keys are visited in sorted order.
	initialData := map[string]any{
		"zebraShelf": []any{videoRendererNode("zzzzzzzzzzz", "Last")},
		"alphaShelf": []any{videoRendererNode("aaaaaaaaaaa", "First")},
	}
	blob, err := json.Marshal(initialData)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		videos := extractVideosFromInitialData(blob, 1)
		if len(videos) != 1 || videos[0].ID != "aaaaaaaaaaa" {
			t.Fatalf("run %d picked %+v, want the alphaShelf video", i, videos)
		}
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	c := New("", WithRetryConfig(testRetry()))
	if _, err := c.Search(context.Background(), "   ", Filters{}, 5); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestSearchScrapeParseFailure(t *testing.T) {
	web := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>nothing useful here</html>")
	}))
	defer web.Close()

	c := New("", WithEndpoints("", web.URL), WithRetryConfig(testRetry()))
	if _, err := c.Search(context.Background(), "anything", Filters{}, 5); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExtractJSON(t *testing.T) {
	in := []byte(`{"a":{"b":"}\"}","c":[1,2]}};rest`)
	got := extractJSON(in)
	if want := `{"a":{"b":"}\"}","c":[1,2]}}`; string(got) != want {
		t.Fatalf("extractJSON = %q, want %q", got, want)
	}
	var v map[string]any
	if err := json.Unmarshal(got, &v); err != nil {
		t.Fatalf("extracted blob not valid JSON: %v", err)
	}
	if extractJSON([]byte("not json")) != nil {
		t.Error("expected nil for non-object input")
	}
	if extractJSON([]byte("{unterminated")) != nil {
		t.Error("expected nil for unterminated object")
	}
}
