package captions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	netjar "net/http/cookiejar"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go-captions/internal/cookiejar"
)

// Client is the public entry point. A Client owns one HTTP session (cookie
// jar included), so consent cookies set while fetching one video are visible
// to follow-up requests of the same Client. Use separate Clients if that
// sharing is not wanted.
type Client struct {
	http        *http.Client
	proxy       ProxyConfig
	playerAPI   bool
	concurrency int
	limiter     *rate.Limiter

	// session rebuild inputs for per-worker sessions in FetchBulk
	cookies     []*http.Cookie
	fingerprint bool
	customHTTP  bool
}

type clientOptions struct {
	httpClient  *http.Client
	proxy       ProxyConfig
	cookies     []*http.Cookie
	playerAPI   bool
	fingerprint bool
	concurrency int
	limiter     *rate.Limiter
	err         error
}

// Option configures a Client.
type Option func(*clientOptions)

// WithHTTPClient supplies a caller-owned HTTP client. The caller is then
// responsible for its cookie jar, including cookie bleed across videos, and
// FetchBulk workers will share it instead of getting isolated sessions.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithProxyConfig routes all requests through the given proxy and enables
// the blocked-request retry loop with the config's retry count.
func WithProxyConfig(cfg ProxyConfig) Option {
	return func(o *clientOptions) { o.proxy = cfg }
}

// WithCookieFile authenticates the session with cookies loaded from a
// Netscape-format cookie file.
func WithCookieFile(path string) Option {
	return func(o *clientOptions) {
		cookies, err := cookiejar.LoadFile(path)
		if err != nil {
			o.err = mapCookieError(err, path)
			return
		}
		o.cookies = append(o.cookies, cookies...)
	}
}

// WithBrowserCookies authenticates the session with YouTube cookies pulled
// from an installed browser's cookie store. profile may be empty for the
// default profile.
func WithBrowserCookies(browser, profile string) Option {
	return func(o *clientOptions) {
		cookies, err := cookiejar.FromBrowser(browser, profile, consentCookieDomain)
		if err != nil {
			o.err = mapCookieError(err, browser)
			return
		}
		o.cookies = append(o.cookies, cookies...)
	}
}

// WithPlayerAPI switches caption metadata retrieval from the embedded watch
// page config to the InnerTube player endpoint.
func WithPlayerAPI() Option {
	return func(o *clientOptions) { o.playerAPI = true }
}

// WithBrowserFingerprint sends all requests through a Chrome-fingerprint TLS
// client, which makes them considerably harder to classify as automated
// traffic.
func WithBrowserFingerprint() Option {
	return func(o *clientOptions) { o.fingerprint = true }
}

// WithConcurrency bounds the number of parallel pipelines in FetchBulk.
func WithConcurrency(n int) Option {
	return func(o *clientOptions) { o.concurrency = n }
}

// WithRateLimit throttles FetchBulk to the given requests per second across
// all workers.
func WithRateLimit(perSecond float64) Option {
	return func(o *clientOptions) { o.limiter = rate.NewLimiter(rate.Limit(perSecond), 1) }
}

func mapCookieError(err error, source string) error {
	switch {
	case errors.Is(err, cookiejar.ErrNoCookies):
		return &CookieInvalidError{Path: source}
	case errors.Is(err, cookiejar.ErrPathInvalid), errors.Is(err, cookiejar.ErrUnsupportedBrowser):
		return &CookiePathError{Path: source}
	default:
		return err
	}
}

const defaultBulkConcurrency = 4

// NewClient builds a Client. Without options it talks to YouTube directly
// with a fresh cookie jar and no proxy.
func NewClient(opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}
	if o.concurrency <= 0 {
		o.concurrency = defaultBulkConcurrency
	}

	c := &Client{
		proxy:       o.proxy,
		playerAPI:   o.playerAPI,
		concurrency: o.concurrency,
		limiter:     o.limiter,
		cookies:     o.cookies,
		fingerprint: o.fingerprint,
		customHTTP:  o.httpClient != nil,
	}

	if o.httpClient != nil {
		c.http = o.httpClient
		if c.http.Jar == nil {
			jar, err := netjar.New(nil)
			if err != nil {
				return nil, fmt.Errorf("captions: cookie jar: %w", err)
			}
			c.http.Jar = jar
		}
		seedCookies(c.http, o.cookies)
		return c, nil
	}

	session, err := c.newSession()
	if err != nil {
		return nil, err
	}
	c.http = session
	return c, nil
}

// newSession builds an isolated HTTP session: fresh jar, transport per the
// proxy/fingerprint configuration, seeded with any loaded auth cookies.
func (c *Client) newSession() (*http.Client, error) {
	jar, err := netjar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("captions: cookie jar: %w", err)
	}
	session := &http.Client{Jar: jar}

	switch {
	case c.fingerprint:
		proxyURL := ""
		if c.proxy != nil {
			proxyURL = c.proxy.HTTPSURL()
		}
		tr, err := newFingerprintTransport(proxyURL)
		if err != nil {
			return nil, err
		}
		session.Transport = tr
	case c.proxy != nil:
		tr, err := proxyTransport(c.proxy)
		if err != nil {
			return nil, err
		}
		session.Transport = tr
	}

	seedCookies(session, c.cookies)
	return session, nil
}

func seedCookies(session *http.Client, cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	u, err := url.Parse("https://www.youtube.com/")
	if err != nil {
		return
	}
	session.Jar.SetCookies(u, cookies)
}

// List retrieves all caption tracks available for the video.
func (c *Client) List(ctx context.Context, videoID string) (*TranscriptList, error) {
	f := &listFetcher{http: c.http, proxy: c.proxy, playerAPI: c.playerAPI}
	return f.fetch(ctx, videoID)
}

// Fetch retrieves and parses the best matching caption track. languageCodes
// are tried in priority order and default to English; for the same code a
// manually created track outranks a generated one.
func (c *Client) Fetch(ctx context.Context, videoID string, languageCodes []string, preserveFormatting bool) (*FetchedTranscript, error) {
	if len(languageCodes) == 0 {
		languageCodes = []string{"en"}
	}

	list, err := c.List(ctx, videoID)
	if err != nil {
		return nil, err
	}
	transcript, err := list.FindTranscript(languageCodes)
	if err != nil {
		return nil, err
	}
	return transcript.Fetch(ctx, preserveFormatting)
}
