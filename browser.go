package captions

import (
	"fmt"
	"io"
	"net/http"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// fingerprintTransport is an http.RoundTripper backed by tls-client with a
// Chrome TLS fingerprint (JA3), so requests look like a real browser to TLS
// fingerprinting. Redirects and cookies stay with the outer *http.Client;
// the inner client only does single exchanges.
type fingerprintTransport struct {
	client tls_client.HttpClient
}

func newFingerprintTransport(proxyURL string) (*fingerprintTransport, error) {
	opts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(30),
		tls_client.WithClientProfile(profiles.Chrome_131),
		tls_client.WithNotFollowRedirects(),
	}
	if proxyURL != "" {
		opts = append(opts, tls_client.WithProxyUrl(proxyURL))
	}

	client, err := tls_client.NewHttpClient(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("captions: tls-client init: %w", err)
	}
	return &fingerprintTransport{client: client}, nil
}

func (t *fingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = req.Body
	}

	freq, err := fhttp.NewRequestWithContext(req.Context(), req.Method, req.URL.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			freq.Header.Add(k, v)
		}
	}
	// Chrome-like header order matters for fingerprinting.
	freq.Header[fhttp.HeaderOrderKey] = []string{
		"accept",
		"accept-language",
		"accept-encoding",
		"referer",
		"cookie",
		"user-agent",
	}

	fresp, err := t.client.Do(freq)
	if err != nil {
		return nil, err
	}

	return &http.Response{
		Status:        fresp.Status,
		StatusCode:    fresp.StatusCode,
		Proto:         fresp.Proto,
		ProtoMajor:    fresp.ProtoMajor,
		ProtoMinor:    fresp.ProtoMinor,
		Header:        http.Header(fresp.Header),
		Body:          fresp.Body,
		ContentLength: fresp.ContentLength,
		Request:       req,
	}, nil
}
