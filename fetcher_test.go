package captions

import (
	"context"
	"fmt"
	"net/http"
	netjar "net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteTransport redirects every request to the test server while leaving
// req.URL intact for the cookie jar, which keys on the original host.
type rewriteTransport struct {
	server *httptest.Server
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	target, err := url.Parse(t.server.URL)
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.URL.Scheme = target.Scheme
	clone.URL.Host = target.Host
	return t.server.Client().Transport.RoundTrip(clone)
}

func testClient(t *testing.T, server *httptest.Server, opts ...Option) *Client {
	t.Helper()
	jar, err := netjar.New(nil)
	require.NoError(t, err)

	opts = append(opts, WithHTTPClient(&http.Client{
		Transport: rewriteTransport{server: server},
		Jar:       jar,
	}))
	client, err := NewClient(opts...)
	require.NoError(t, err)
	return client
}

func watchPage(playerJSON string) string {
	return `<html><head><title>watch</title></head><body>` +
		`<script>var ytInitialPlayerResponse = ` + playerJSON + `;</script>` +
		`</body></html>`
}

func playerJSONWithCaptions(tracksJSON, translationsJSON string) string {
	return fmt.Sprintf(`{"playabilityStatus": {"status": "OK"},
		"captions": {"playerCaptionsTracklistRenderer": {
			"captionTracks": %s, "translationLanguages": %s}}}`,
		tracksJSON, translationsJSON)
}

const captionXML = `<?xml version="1.0" encoding="utf-8" ?><transcript>` +
	`<text start="0" dur="1.54">Hey, this is just a test</text>` +
	`<text start="1.54" dur="4.16">this is not the original transcript</text>` +
	`<text start="5.7" dur="3.239">just something shorter, I made up for testing</text>` +
	`</transcript>`

const consentPage = `<html><body>` +
	`<form action="https://consent.youtube.com/s" method="POST">` +
	`<input type="hidden" name="v" value="consent-token-123"/>` +
	`</form></body></html>`

const captchaPage = `<html><body><div class="g-recaptcha" data-sitekey="x"></div></body></html>`

func TestFetchParsesSnippets(t *testing.T) {
	var captionQuery atomic.Value

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	tracks := `[{"baseUrl": "https://www.youtube.com/api/timedtext?v=GJLlxj_dtq8&lang=en",
		"name": {"simpleText": "English"}, "languageCode": "en", "isTranslatable": true}]`
	translations := `[{"languageName": {"simpleText": "Afrikaans"}, "languageCode": "af"}]`

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, watchPage(playerJSONWithCaptions(tracks, translations)))
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		captionQuery.Store(r.URL.Query())
		fmt.Fprint(w, captionXML)
	})

	client := testClient(t, server)
	transcript, err := client.Fetch(context.Background(), "GJLlxj_dtq8", nil, false)
	require.NoError(t, err)

	require.Equal(t, 3, transcript.Len())
	assert.Equal(t, FetchedTranscriptSnippet{Text: "Hey, this is just a test", Start: 0, Duration: 1.54}, transcript.Snippets[0])
	assert.Equal(t, FetchedTranscriptSnippet{Text: "this is not the original transcript", Start: 1.54, Duration: 4.16}, transcript.Snippets[1])
	assert.Equal(t, FetchedTranscriptSnippet{Text: "just something shorter, I made up for testing", Start: 5.7, Duration: 3.239}, transcript.Snippets[2])

	assert.Equal(t, "GJLlxj_dtq8", transcript.VideoID)
	assert.Equal(t, "en", transcript.LanguageCode)
	assert.False(t, transcript.IsGenerated)
}

func TestFetchLanguageFallbackUsesAvailableTrack(t *testing.T) {
	var captionQuery atomic.Value

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	tracks := `[{"baseUrl": "https://www.youtube.com/api/timedtext?v=abc&lang=en",
		"name": {"simpleText": "English"}, "languageCode": "en"}]`

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, watchPage(playerJSONWithCaptions(tracks, "[]")))
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		captionQuery.Store(r.URL.Query())
		fmt.Fprint(w, captionXML)
	})

	client := testClient(t, server)
	// German is requested first but only English exists.
	_, err := client.Fetch(context.Background(), "abc", []string{"de", "en"}, false)
	require.NoError(t, err)

	query := captionQuery.Load().(url.Values)
	assert.Equal(t, "en", query.Get("lang"))
}

func TestFetchBlockedRetriesThroughProxyRotation(t *testing.T) {
	var watchRequests atomic.Int64

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		watchRequests.Add(1)
		fmt.Fprint(w, captchaPage)
	})

	proxy, err := NewWebshareProxyConfig("user", "pass")
	require.NoError(t, err)
	proxy.WithRetriesWhenBlocked(5)

	client := testClient(t, server, WithProxyConfig(proxy))
	_, err = client.List(context.Background(), "abc")

	var blocked *RequestBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.True(t, blocked.IPBlocked)
	assert.EqualValues(t, 5, watchRequests.Load(), "exactly 5 watch page attempts expected")
	assert.Contains(t, err.Error(), "Webshare")
	assert.Contains(t, err.Error(), "Residential")
}

func TestFetchBlockedWithoutProxyFailsImmediately(t *testing.T) {
	var watchRequests atomic.Int64

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		watchRequests.Add(1)
		fmt.Fprint(w, captchaPage)
	})

	client := testClient(t, server)
	_, err := client.List(context.Background(), "abc")

	var blocked *RequestBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.EqualValues(t, 1, watchRequests.Load())
	assert.NotContains(t, err.Error(), "Webshare")
}

func TestConsentCookieHandshake(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	tracks := `[{"baseUrl": "https://www.youtube.com/api/timedtext?v=abc&lang=en",
		"name": {"simpleText": "English"}, "languageCode": "en"}]`

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("CONSENT"); err == nil && cookie.Value == "YES+consent-token-123" {
			fmt.Fprint(w, watchPage(playerJSONWithCaptions(tracks, "[]")))
			return
		}
		fmt.Fprint(w, consentPage)
	})

	client := testClient(t, server)
	list, err := client.List(context.Background(), "abc")
	require.NoError(t, err)

	_, err = list.FindTranscript([]string{"en"})
	assert.NoError(t, err)
}

func TestConsentCookieHandshakeFails(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	// The consent page keeps coming back no matter what.
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, consentPage)
	})

	client := testClient(t, server)
	_, err := client.List(context.Background(), "abc")

	var consentErr *ConsentCookieError
	assert.ErrorAs(t, err, &consentErr)
}

func TestConsentTokenMissing(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><form action="https://consent.youtube.com/s"></form></body></html>`)
	})

	client := testClient(t, server)
	_, err := client.List(context.Background(), "abc")

	var consentErr *ConsentCookieError
	assert.ErrorAs(t, err, &consentErr)
}

func TestTranscriptsDisabled(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, watchPage(`{"playabilityStatus": {"status": "OK"}}`))
	})

	client := testClient(t, server)
	_, err := client.List(context.Background(), "abc")

	var disabled *TranscriptsDisabledError
	assert.ErrorAs(t, err, &disabled)
}

func TestAgeRestricted(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, watchPage(`{"playabilityStatus": {
			"status": "LOGIN_REQUIRED", "reason": "Sign in to confirm your age"}}`))
	})

	client := testClient(t, server)
	_, err := client.List(context.Background(), "abc")

	var ageRestricted *AgeRestrictedError
	assert.ErrorAs(t, err, &ageRestricted)
}

func TestVideoUnavailableAndInvalidID(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, watchPage(`{"playabilityStatus": {
			"status": "ERROR", "reason": "Video unavailable"}}`))
	})

	client := testClient(t, server)

	_, err := client.List(context.Background(), "abc")
	var unavailable *VideoUnavailableError
	assert.ErrorAs(t, err, &unavailable)

	_, err = client.List(context.Background(), "https://www.youtube.com/watch?v=abc")
	var invalid *InvalidVideoIDError
	assert.ErrorAs(t, err, &invalid)
}

func TestVideoUnplayableCarriesSubReasons(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, watchPage(`{"playabilityStatus": {
			"status": "UNPLAYABLE",
			"reason": "Not available in your country",
			"errorScreen": {"playerErrorMessageRenderer": {"subreason": {
				"runs": [{"text": "The uploader restricted playback"}, {"text": "Try another video"}]}}}}}`))
	})

	client := testClient(t, server)
	_, err := client.List(context.Background(), "abc")

	var unplayable *VideoUnplayableError
	require.ErrorAs(t, err, &unplayable)
	assert.Equal(t, "Not available in your country", unplayable.Reason)
	assert.Equal(t, []string{"The uploader restricted playback", "Try another video"}, unplayable.SubReasons)
	assert.Contains(t, err.Error(), " - The uploader restricted playback")
}

func TestWatchPageRequestFailed(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	})

	client := testClient(t, server)
	_, err := client.List(context.Background(), "abc")

	var failed *RequestFailedError
	require.ErrorAs(t, err, &failed)
	assert.Contains(t, failed.Reason, "429")
}

func TestUnparsableWatchPage(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>nothing embedded here</body></html>`)
	})

	client := testClient(t, server)
	_, err := client.List(context.Background(), "abc")

	var unparsable *DataUnparsableError
	assert.ErrorAs(t, err, &unparsable)
}

func TestPlayerAPIPath(t *testing.T) {
	var playerCalls atomic.Int64

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	tracks := `[{"baseUrl": "https://www.youtube.com/api/timedtext?v=abc&lang=en",
		"name": {"simpleText": "English"}, "languageCode": "en"}]`

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><script>ytcfg.set({"INNERTUBE_API_KEY": "test-key-123"});</script></html>`)
	})
	mux.HandleFunc("/youtubei/v1/player", func(w http.ResponseWriter, r *http.Request) {
		playerCalls.Add(1)
		assert.Equal(t, "test-key-123", r.URL.Query().Get("key"))
		assert.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, playerJSONWithCaptions(tracks, "[]"))
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, captionXML)
	})

	client := testClient(t, server, WithPlayerAPI())
	transcript, err := client.Fetch(context.Background(), "abc", []string{"en"}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, transcript.Len())
	assert.EqualValues(t, 1, playerCalls.Load())
}

func TestFetchBulkIsolatesFailures(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	tracks := `[{"baseUrl": "https://www.youtube.com/api/timedtext?v=good&lang=en",
		"name": {"simpleText": "English"}, "languageCode": "en"}]`

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("v") == "good" {
			fmt.Fprint(w, watchPage(playerJSONWithCaptions(tracks, "[]")))
			return
		}
		fmt.Fprint(w, watchPage(`{"playabilityStatus": {"status": "OK"}}`))
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, captionXML)
	})

	client := testClient(t, server, WithConcurrency(2))
	results := client.FetchBulk(context.Background(), []string{"good", "bad"}, []string{"en"}, false)

	require.Len(t, results, 2)
	assert.Equal(t, "good", results[0].VideoID)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 3, results[0].Transcript.Len())

	assert.Equal(t, "bad", results[1].VideoID)
	var disabled *TranscriptsDisabledError
	assert.ErrorAs(t, results[1].Err, &disabled)
}

func TestPreserveFormattingEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	tracks := `[{"baseUrl": "https://www.youtube.com/api/timedtext?v=abc&lang=en",
		"name": {"simpleText": "English"}, "languageCode": "en"}]`

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, watchPage(playerJSONWithCaptions(tracks, "[]")))
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<transcript><text start="0" dur="1">a &amp;lt;b&amp;gt;bold&amp;lt;/b&amp;gt; word</text></transcript>`)
	})

	client := testClient(t, server)

	plain, err := client.Fetch(context.Background(), "abc", []string{"en"}, false)
	require.NoError(t, err)
	assert.Equal(t, "a bold word", plain.Snippets[0].Text)

	formatted, err := client.Fetch(context.Background(), "abc", []string{"en"}, true)
	require.NoError(t, err)
	assert.Equal(t, "a <b>bold</b> word", formatted.Snippets[0].Text)
}
