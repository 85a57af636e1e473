package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"ytscout/internal/errs"
	"ytscout/internal/httpx"
)

// Transcript fetching.
// Primary:  scrape watch page ytInitialPlayerResponse → caption timedtext XML
// Fallback: /next → engagement panel token → /get_transcript
// Fallback: ANDROID InnerTube /player → captionTracks
// The three providers work from different network vantage points; the chain
// order matches observed reliability from ordinary client IPs.

const playerResponseMarker = "ytInitialPlayerResponse = "

// getTranscriptRE extracts the continuation token from a raw /next response.
var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

var tagRE = regexp.MustCompile(`<[^>]*>`)

// Transcript fetches the caption text for a video, trying each provider in
// turn. The returned error carries ErrNoCaptions when the video has no
// caption track, as opposed to transport or parse failures.
func (c *Client) Transcript(ctx context.Context, videoID string, langs []string) (string, error) {
	if !IsValidVideoID(videoID) {
		return "", errs.Wrap(errs.ErrValidation, "transcript", "video id", videoID, nil)
	}

	text, scrapeErr := c.transcriptViaPageScrape(ctx, videoID, langs)
	if scrapeErr == nil {
		return text, nil
	}
	c.logger.Debug("watch page scrape failed, trying engagement panel",
		slog.String("id", videoID), slog.Any("error", scrapeErr))

	text, panelErr := c.transcriptViaEngagementPanel(ctx, videoID)
	if panelErr == nil {
		return text, nil
	}
	c.logger.Debug("engagement panel failed, trying android player",
		slog.String("id", videoID), slog.Any("error", panelErr))

	text, playerErr := c.transcriptViaPlayer(ctx, videoID, langs)
	if playerErr == nil {
		return text, nil
	}

	// If any provider positively reported missing captions, report that;
	// otherwise surface the last transport failure.
	for _, err := range []error{scrapeErr, panelErr, playerErr} {
		if errors.Is(err, errs.ErrNoCaptions) {
			return "", err
		}
	}
	return "", playerErr
}

// MetadataFor fetches title/channel/duration for a video from the watch page
// player response.
func (c *Client) MetadataFor(ctx context.Context, videoID string) (*Metadata, error) {
	if !IsValidVideoID(videoID) {
		return nil, errs.Wrap(errs.ErrValidation, "metadata", "video id", videoID, nil)
	}
	resp, err := c.fetchPlayerResponse(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if resp.VideoDetails == nil {
		return nil, errs.Wrap(errs.ErrParseFailed, "metadata", "player response", "no videoDetails", nil)
	}
	duration, _ := strconv.ParseFloat(resp.VideoDetails.LengthSeconds, 64)
	hasCaptions := resp.Captions != nil && len(resp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks) > 0
	return &Metadata{
		ID:          resp.VideoDetails.VideoID,
		Title:       resp.VideoDetails.Title,
		Channel:     resp.VideoDetails.Author,
		Description: resp.VideoDetails.ShortDescription,
		Duration:    duration,
		HasCaptions: hasCaptions,
	}, nil
}

// fetchPlayerResponse scrapes ytInitialPlayerResponse from the watch page.
func (c *Client) fetchPlayerResponse(ctx context.Context, videoID string) (*playerResp, error) {
	watchURL := c.webBase + "/watch?v=" + videoID

	resp, err := httpx.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", httpx.UserAgentChrome)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetchFailed, "transcript", "watch page", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetchFailed, "transcript", "watch page", "read body", err)
	}

	idx := strings.Index(string(body), playerResponseMarker)
	if idx < 0 {
		return nil, errs.Wrap(errs.ErrParseFailed, "transcript", "watch page", "ytInitialPlayerResponse not found", nil)
	}
	jsonData := extractJSON(body[idx+len(playerResponseMarker):])
	if jsonData == nil {
		return nil, errs.Wrap(errs.ErrParseFailed, "transcript", "watch page", "player response not valid JSON", nil)
	}

	var player playerResp
	if err := json.Unmarshal(jsonData, &player); err != nil {
		return nil, errs.Wrap(errs.ErrParseFailed, "transcript", "watch page", "decode player response", err)
	}
	return &player, nil
}

func (c *Client) transcriptViaPageScrape(ctx context.Context, videoID string, langs []string) (string, error) {
	player, err := c.fetchPlayerResponse(ctx, videoID)
	if err != nil {
		return "", err
	}
	return c.transcriptFromTracks(ctx, player, langs)
}

// transcriptViaEngagementPanel fetches a transcript via:
//  1. POST /next → engagementPanels containing the transcript continuation token
//  2. POST /get_transcript with the token → JSON segments
func (c *Client) transcriptViaEngagementPanel(ctx context.Context, videoID string) (string, error) {
	visitorData := generateVisitorData()

	nextData, err := c.postInnerTubeWeb(ctx, innertubeNextPath, map[string]any{
		"videoId": videoID,
		"context": webContext(visitorData),
	}, visitorData)
	if err != nil {
		return "", errs.Wrap(errs.ErrFetchFailed, "transcript", "/next", "", err)
	}

	token, err := extractTranscriptToken(nextData)
	if err != nil {
		return "", errs.Wrap(errs.ErrNoCaptions, "transcript", "/next", "no transcript panel", err)
	}

	transcriptData, err := c.postInnerTubeWeb(ctx, innertubeGetTranscriptPath, map[string]any{
		"params": token,
		"context": map[string]any{
			"client": webClientCtx{
				ClientName:    "WEB",
				ClientVersion: ytWebVersion,
				VisitorData:   visitorData,
				Hl:            "en",
				Gl:            "US",
			},
		},
	}, visitorData)
	if err != nil {
		return "", errs.Wrap(errs.ErrFetchFailed, "transcript", "/get_transcript", "", err)
	}

	var transcriptResp getTranscriptResp
	if err := json.Unmarshal(transcriptData, &transcriptResp); err != nil {
		return "", errs.Wrap(errs.ErrParseFailed, "transcript", "/get_transcript", "decode", err)
	}

	text := parseTranscriptSegments(transcriptResp)
	if text == "" {
		return "", errs.Wrap(errs.ErrNoCaptions, "transcript", "/get_transcript", "empty segments", nil)
	}
	return text, nil
}

// transcriptViaPlayer uses the ANDROID InnerTube /player endpoint.
func (c *Client) transcriptViaPlayer(ctx context.Context, videoID string, langs []string) (string, error) {
	reqBody := innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := c.webBase + innertubePlayerPath
	resp, err := httpx.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?prettyPrint=false", strings.NewReader(string(payload)))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", ytAndroidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)
		return c.httpClient.Do(req)
	})
	if err != nil {
		return "", errs.Wrap(errs.ErrFetchFailed, "transcript", "android player", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 3*1024*1024))
	if err != nil {
		return "", errs.Wrap(errs.ErrFetchFailed, "transcript", "android player", "read body", err)
	}
	var player playerResp
	if err := json.Unmarshal(body, &player); err != nil {
		return "", errs.Wrap(errs.ErrParseFailed, "transcript", "android player", "decode", err)
	}
	return c.transcriptFromTracks(ctx, &player, langs)
}

// transcriptFromTracks selects a caption track from a player response and
// fetches its timedtext content.
func (c *Client) transcriptFromTracks(ctx context.Context, player *playerResp, langs []string) (string, error) {
	if player.Captions == nil {
		reason := ""
		if player.PlayabilityStatus != nil {
			reason = player.PlayabilityStatus.Reason
		}
		return "", errs.Wrap(errs.ErrNoCaptions, "transcript", "player response", reason, nil)
	}
	tracks := player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return "", errs.Wrap(errs.ErrNoCaptions, "transcript", "player response", "no caption tracks", nil)
	}
	track, ok := pickBestTrack(tracks, langs)
	if !ok {
		return "", errs.Wrap(errs.ErrNoCaptions, "transcript", "player response", "all tracks require PoToken", nil)
	}
	return c.fetchTimedText(ctx, track.BaseURL)
}

// needsPoToken reports whether a caption track URL requires a PoToken.
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack selects the best usable caption track: manual tracks beat
// auto-generated ones, preferred languages in order, then any English.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return tracks[0], false
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// fetchTimedText fetches and parses a timedtext XML caption URL.
func (c *Client) fetchTimedText(ctx context.Context, baseURL string) (string, error) {
	resp, err := httpx.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", httpx.UserAgentBot)
		return c.httpClient.Do(req)
	})
	if err != nil {
		return "", errs.Wrap(errs.ErrFetchFailed, "transcript", "timedtext", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return "", errs.Wrap(errs.ErrFetchFailed, "transcript", "timedtext", "read body", err)
	}

	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", errs.Wrap(errs.ErrParseFailed, "transcript", "timedtext", "decode XML", err)
	}

	lines := make([]string, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		if text := cleanCaptionText(line.Text); text != "" {
			lines = append(lines, text)
		}
	}
	text := strings.Join(removeDuplicateLines(lines), " ")
	if text == "" {
		return "", errs.Wrap(errs.ErrNoCaptions, "transcript", "timedtext", "empty captions", nil)
	}
	return text, nil
}

func extractTranscriptToken(data []byte) (string, error) {
	if m := getTranscriptRE.FindSubmatch(data); len(m) >= 2 {
		// The params value in the /next JSON response is URL-encoded;
		// /get_transcript expects the decoded (raw base64) form.
		decoded, err := url.QueryUnescape(string(m[1]))
		if err != nil {
			return string(m[1]), nil
		}
		return decoded, nil
	}
	return "", fmt.Errorf("getTranscriptEndpoint not found in engagement panels")
}

// parseTranscriptSegments extracts plain text from a /get_transcript response.
func parseTranscriptSegments(resp getTranscriptResp) string {
	var sb strings.Builder
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			if seg.TranscriptSegmentRenderer == nil {
				continue
			}
			for _, run := range seg.TranscriptSegmentRenderer.Snippet.Runs {
				if run.Text != "" {
					if sb.Len() > 0 {
						sb.WriteByte(' ')
					}
					sb.WriteString(run.Text)
				}
			}
		}
	}
	return sb.String()
}

// cleanCaptionText strips markup and entities from one caption line.
func cleanCaptionText(s string) string {
	s = tagRE.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// removeDuplicateLines eliminates consecutive repeated caption lines, which
// auto-generated tracks produce when a rolling window re-renders.
func removeDuplicateLines(lines []string) []string {
	result := make([]string, 0, len(lines))
	prev := ""
	for _, line := range lines {
		duplicate := prev != "" && (strings.Contains(line, prev) || strings.Contains(prev, line))
		if !duplicate {
			result = append(result, line)
		}
		prev = line
	}
	return result
}
