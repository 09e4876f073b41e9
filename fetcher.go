package captions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/anatolykoptev/go-captions/internal/jsvar"
	"github.com/anatolykoptev/go-captions/internal/playability"
)

// listFetcher drives the per-video request sequence: watch page (with the
// consent-cookie handshake), embedded-config extraction, playability
// classification and caption-track decoding. Blocked requests are retried
// through the proxy's IP rotations before the failure is surfaced.
type listFetcher struct {
	http      *http.Client
	proxy     ProxyConfig
	playerAPI bool
}

func (f *listFetcher) fetch(ctx context.Context, videoID string) (*TranscriptList, error) {
	captions, err := f.captionsJSON(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return buildTranscriptList(f.http, videoID, captions), nil
}

// captionsJSON wraps one extraction attempt in the block-retry loop. With a
// proxy configured for N retries, the whole watch-page sequence runs up to N
// times; each retry opens fresh connections, which is what triggers the IP
// rotation on rotating proxies. The final blocked error is annotated with
// the active proxy config so its message renders proxy-specific guidance.
func (f *listFetcher) captionsJSON(ctx context.Context, videoID string) (*captionsJSON, error) {
	retries := 0
	if f.proxy != nil {
		retries = f.proxy.RetriesWhenBlocked()
	}

	for attempt := 0; ; attempt++ {
		captions, err := f.extractOnce(ctx, videoID)
		if err == nil {
			return captions, nil
		}

		var blocked *RequestBlockedError
		if !errors.As(err, &blocked) {
			return nil, err
		}
		if attempt+1 < retries {
			slog.Debug("request blocked, retrying through proxy rotation",
				slog.String("video_id", videoID),
				slog.Int("attempt", attempt+1),
				slog.Int("retries", retries))
			continue
		}
		blocked.Proxy = f.proxy
		return nil, blocked
	}
}

// extractOnce performs one full pass of the pipeline.
func (f *listFetcher) extractOnce(ctx context.Context, videoID string) (*captionsJSON, error) {
	watchHTML, err := f.fetchVideoHTML(ctx, videoID)
	if err != nil {
		return nil, err
	}

	var response playerResponse
	if f.playerAPI {
		response, err = f.fetchPlayerResponse(ctx, videoID, watchHTML)
	} else {
		response, err = extractPlayerResponse(watchHTML, videoID)
	}
	if err != nil {
		return nil, err
	}

	if err := classifyPlayability(response.PlayabilityStatus, videoID); err != nil {
		return nil, err
	}

	captions := response.Captions.Renderer
	if captions == nil || len(captions.CaptionTracks) == 0 {
		return nil, &TranscriptsDisabledError{VideoID: videoID}
	}
	return captions, nil
}

// extractPlayerResponse isolates the embedded config from the watch page and
// decodes it. An unextractable page is either the CAPTCHA block page (an IP
// block) or an unexpected format change.
func extractPlayerResponse(watchHTML, videoID string) (playerResponse, error) {
	var response playerResponse

	raw, err := jsvar.Extract(watchHTML, playerVarName)
	if err != nil {
		if strings.Contains(watchHTML, captchaMarker) {
			return response, &RequestBlockedError{VideoID: videoID, IPBlocked: true}
		}
		return response, &DataUnparsableError{VideoID: videoID}
	}

	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		return response, &DataUnparsableError{VideoID: videoID}
	}
	return response, nil
}

func classifyPlayability(status playabilityStatusJSON, videoID string) error {
	verdict := playability.Classify(playability.Status{
		Status: status.Status,
		Reason: status.Reason,
	}, videoID)

	switch verdict {
	case playability.OK:
		return nil
	case playability.RequestBlocked:
		return &RequestBlockedError{VideoID: videoID}
	case playability.AgeRestricted:
		return &AgeRestrictedError{VideoID: videoID}
	case playability.InvalidVideoID:
		return &InvalidVideoIDError{VideoID: videoID}
	case playability.VideoUnavailable:
		return &VideoUnavailableError{VideoID: videoID}
	default:
		return &VideoUnplayableError{
			VideoID:    videoID,
			Reason:     status.Reason,
			SubReasons: status.subReasons(),
		}
	}
}

// fetchVideoHTML fetches the watch page, transparently working through the
// consent interstitial: set the CONSENT cookie extracted from the form and
// re-fetch exactly once. Still landing on the interstitial after that is a
// hard failure, not something more retries would fix.
func (f *listFetcher) fetchVideoHTML(ctx context.Context, videoID string) (string, error) {
	watchHTML, err := f.fetchHTML(ctx, videoID)
	if err != nil {
		return "", err
	}

	if !strings.Contains(watchHTML, consentFormMarker) {
		return watchHTML, nil
	}

	slog.Debug("consent interstitial detected", slog.String("video_id", videoID))
	if err := f.createConsentCookie(watchHTML, videoID); err != nil {
		return "", err
	}
	watchHTML, err = f.fetchHTML(ctx, videoID)
	if err != nil {
		return "", err
	}
	if strings.Contains(watchHTML, consentFormMarker) {
		return "", &ConsentCookieError{VideoID: videoID}
	}
	return watchHTML, nil
}

// createConsentCookie pulls the consent token out of the interstitial's form
// and stores it as the CONSENT cookie on the session.
func (f *listFetcher) createConsentCookie(watchHTML, videoID string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(watchHTML))
	if err != nil {
		return &ConsentCookieError{VideoID: videoID}
	}

	token, ok := doc.Find(`input[name="v"]`).First().Attr("value")
	if !ok || token == "" {
		return &ConsentCookieError{VideoID: videoID}
	}

	u, err := url.Parse(fmt.Sprintf(watchURL, videoID))
	if err != nil {
		return &ConsentCookieError{VideoID: videoID}
	}
	f.http.Jar.SetCookies(u, []*http.Cookie{{
		Name:   consentCookieName,
		Value:  "YES+" + token,
		Domain: consentCookieDomain,
		Path:   "/",
	}})
	return nil
}

func (f *listFetcher) fetchHTML(ctx context.Context, videoID string) (string, error) {
	body, err := f.get(ctx, fmt.Sprintf(watchURL, videoID), videoID)
	if err != nil {
		return "", err
	}
	// The page arrives with HTML entities in place; unescape before any
	// marker matching or extraction, like the rest of the pipeline expects.
	return html.UnescapeString(string(body)), nil
}

func (f *listFetcher) get(ctx context.Context, rawURL, videoID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &RequestFailedError{VideoID: videoID, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Language", "en-US")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, &RequestFailedError{VideoID: videoID, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestFailedError{VideoID: videoID, Reason: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestFailedError{VideoID: videoID, Reason: err.Error()}
	}
	return body, nil
}

var innertubeKeyRe = regexp.MustCompile(innertubeKeyPattern)

// fetchPlayerResponse is the opt-in InnerTube path: extract the API key from
// the watch page and ask the player endpoint for the same response the
// embedded config would carry. The CAPTCHA reclassification applies to a
// missing key just as it does to a missing embedded config.
func (f *listFetcher) fetchPlayerResponse(ctx context.Context, videoID, watchHTML string) (playerResponse, error) {
	var response playerResponse

	m := innertubeKeyRe.FindStringSubmatch(watchHTML)
	if m == nil {
		if strings.Contains(watchHTML, captchaMarker) {
			return response, &RequestBlockedError{VideoID: videoID, IPBlocked: true}
		}
		return response, &DataUnparsableError{VideoID: videoID}
	}

	payload, err := json.Marshal(map[string]any{
		"context": map[string]any{
			"client": map[string]string{
				"clientName":    innertubeClientName,
				"clientVersion": innertubeClientVersion,
			},
		},
		"videoId": videoID,
	})
	if err != nil {
		return response, &DataUnparsableError{VideoID: videoID}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf(innertubeAPIURL, m[1]), bytes.NewReader(payload))
	if err != nil {
		return response, &RequestFailedError{VideoID: videoID, Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Language", "en-US")

	resp, err := f.http.Do(req)
	if err != nil {
		return response, &RequestFailedError{VideoID: videoID, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return response, &RequestFailedError{VideoID: videoID, Reason: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return response, &DataUnparsableError{VideoID: videoID}
	}
	return response, nil
}
