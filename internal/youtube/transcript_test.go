package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"ytscout/internal/errs"
)

func playerResponseHTML(t *testing.T, player map[string]any) string {
	t.Helper()
	blob, err := json.Marshal(player)
	if err != nil {
		t.Fatal(err)
	}
	return fmt.Sprintf("<html><script>var ytInitialPlayerResponse = %s;var other = {};</script></html>", blob)
}

func TestTranscriptViaPageScrape(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("v"); got != "dQw4w9WgXcQ" {
			t.Errorf("watch v = %q", got)
		}
		player := map[string]any{
			"captions": map[string]any{
				"playerCaptionsTracklistRenderer": map[string]any{
					"captionTracks": []any{
						map[string]any{"baseUrl": srv.URL + "/api/timedtext?lang=en&kind=asr", "languageCode": "en", "kind": "asr"},
						map[string]any{"baseUrl": srv.URL + "/api/timedtext?lang=en", "languageCode": "en"},
					},
				},
			},
			"videoDetails": map[string]any{
				"videoId": "dQw4w9WgXcQ", "title": "A Video", "author": "A Channel", "lengthSeconds": "212",
			},
		}
		fmt.Fprint(w, playerResponseHTML(t, player))
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("kind") == "asr" {
			t.Error("asr track fetched despite manual track being available")
		}
		fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8"?><transcript><text start="0" dur="2">hello &amp;amp; &lt;i&gt;welcome&lt;/i&gt;</text><text start="2" dur="2">to the show</text></transcript>`)
	})

	c := New("", WithEndpoints("", srv.URL), WithRetryConfig(testRetry()))
	text, err := c.Transcript(context.Background(), "dQw4w9WgXcQ", []string{"en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello & welcome to the show" {
		t.Errorf("transcript = %q", text)
	}
}

func TestTranscriptNoCaptions(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		player := map[string]any{
			"videoDetails":      map[string]any{"videoId": "dQw4w9WgXcQ", "title": "Silent"},
			"playabilityStatus": map[string]any{"status": "OK"},
		}
		fmt.Fprint(w, playerResponseHTML(t, player))
	})

	c := New("", WithEndpoints("", srv.URL), WithRetryConfig(testRetry()))
	_, err := c.Transcript(context.Background(), "dQw4w9WgXcQ", []string{"en"})
	if !errors.Is(err, errs.ErrNoCaptions) {
		t.Fatalf("expected ErrNoCaptions, got %v", err)
	}
}

func TestTranscriptViaEngagementPanel(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// Watch page without a player response forces the fallback chain.
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>consent wall</html>")
	})
	mux.HandleFunc("/youtubei/v1/next", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"engagementPanels":[{"x":{"getTranscriptEndpoint":{"params":"Q2dO%3D"}}}]}`)
	})
	var gotParams string
	mux.HandleFunc("/youtubei/v1/get_transcript", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Params string `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotParams = body.Params
		fmt.Fprint(w, `{"actions":[{"updateEngagementPanelAction":{"content":{"transcriptRenderer":{"content":{"transcriptSearchPanelRenderer":{"body":{"transcriptSegmentListRenderer":{"initialSegments":[{"transcriptSegmentRenderer":{"snippet":{"runs":[{"text":"first segment"}]}}},{"transcriptSegmentRenderer":{"snippet":{"runs":[{"text":"second segment"}]}}}]}}}}}}}}]}`)
	})

	c := New("", WithEndpoints("", srv.URL), WithRetryConfig(testRetry()))
	text, err := c.Transcript(context.Background(), "dQw4w9WgXcQ", []string{"en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "first segment second segment" {
		t.Errorf("transcript = %q", text)
	}
	if gotParams != "Q2dO=" {
		t.Errorf("params = %q, want URL-decoded token", gotParams)
	}
}

func TestMetadataFor(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		player := map[string]any{
			"videoDetails": map[string]any{
				"videoId": "dQw4w9WgXcQ", "title": "A Video", "author": "A Channel",
				"shortDescription": "about things", "lengthSeconds": "212",
			},
			"captions": map[string]any{
				"playerCaptionsTracklistRenderer": map[string]any{
					"captionTracks": []any{map[string]any{"baseUrl": "u", "languageCode": "en"}},
				},
			},
		}
		fmt.Fprint(w, playerResponseHTML(t, player))
	})

	c := New("", WithEndpoints("", srv.URL), WithRetryConfig(testRetry()))
	md, err := c.MetadataFor(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md.Title != "A Video" || md.Channel != "A Channel" || md.Duration != 212 || !md.HasCaptions {
		t.Errorf("metadata = %+v", md)
	}
}

func TestPickBestTrack(t *testing.T) {
	manual := captionTrack{BaseURL: "manual", LanguageCode: "en"}
	asr := captionTrack{BaseURL: "asr", LanguageCode: "en", Kind: "asr"}
	german := captionTrack{BaseURL: "de", LanguageCode: "de"}
	blocked := captionTrack{BaseURL: "blocked&exp=xpe", LanguageCode: "en"}

	tests := []struct {
		name   string
		tracks []captionTrack
		langs  []string
		want   string
		ok     bool
	}{
		{"manual beats asr", []captionTrack{asr, manual}, []string{"en"}, "manual", true},
		{"asr when only option", []captionTrack{asr}, []string{"en"}, "asr", true},
		{"preferred language first", []captionTrack{manual, german}, []string{"de", "en"}, "de", true},
		{"english fallback", []captionTrack{german, manual}, []string{"fr"}, "manual", true},
		{"first usable fallback", []captionTrack{german}, []string{"fr"}, "de", true},
		{"potoken tracks skipped", []captionTrack{blocked, asr}, []string{"en"}, "asr", true},
		{"all tracks blocked", []captionTrack{blocked}, []string{"en"}, "blocked&exp=xpe", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickBestTrack(tt.tracks, tt.langs)
			if got.BaseURL != tt.want || ok != tt.ok {
				t.Errorf("pickBestTrack = (%q, %v), want (%q, %v)", got.BaseURL, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCleanCaptionText(t *testing.T) {
	tests := []struct{ in, want string }{
		{"<i>hello</i> world", "hello world"},
		{"a &amp; b", "a & b"},
		{"  spaced \n out  ", "spaced out"},
		{"<font color=\"red\">x</font>", "x"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanCaptionText(tt.in); got != tt.want {
			t.Errorf("cleanCaptionText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRemoveDuplicateLines(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"no duplicates", []string{"a", "b", "c"}, []string{"a", "b", "c"}},
		{"exact repeat dropped", []string{"hello world", "hello world", "next"}, []string{"hello world", "next"}},
		{"rolling window overlap dropped", []string{"hello", "hello world"}, []string{"hello"}},
		{"empty input", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := removeDuplicateLines(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("removeDuplicateLines = %v, want %v", got, tt.want)
			}
		})
	}
}
