package captions

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	xproxy "golang.org/x/net/proxy"
)

// ProxyConfig describes how outgoing requests are routed through a proxy.
// Implementations provide per-scheme proxy URLs plus the two knobs the
// fetcher cares about: whether keep-alive must be disabled (rotating proxies
// only rotate on fresh connections) and how many times a blocked request
// should be retried to trigger an IP rotation.
type ProxyConfig interface {
	HTTPURL() string
	HTTPSURL() string
	PreventKeepAlive() bool
	RetriesWhenBlocked() int
}

// ErrInvalidProxyConfig is returned when a proxy config cannot be built from
// the given values.
var ErrInvalidProxyConfig = errors.New("invalid proxy config")

// GenericProxyConfig routes requests through any HTTP/HTTPS/SOCKS proxy.
// If only one of the two URLs is given, it is used for both schemes.
type GenericProxyConfig struct {
	HTTPProxy  string
	HTTPSProxy string
}

// NewGenericProxyConfig requires at least one of the two proxy URLs.
func NewGenericProxyConfig(httpURL, httpsURL string) (*GenericProxyConfig, error) {
	if httpURL == "" && httpsURL == "" {
		return nil, fmt.Errorf("%w: at least one of http or https proxy url is required",
			ErrInvalidProxyConfig)
	}
	return &GenericProxyConfig{HTTPProxy: httpURL, HTTPSProxy: httpsURL}, nil
}

func (c *GenericProxyConfig) HTTPURL() string {
	if c.HTTPProxy != "" {
		return c.HTTPProxy
	}
	return c.HTTPSProxy
}

func (c *GenericProxyConfig) HTTPSURL() string {
	if c.HTTPSProxy != "" {
		return c.HTTPSProxy
	}
	return c.HTTPProxy
}

func (c *GenericProxyConfig) PreventKeepAlive() bool { return false }
func (c *GenericProxyConfig) RetriesWhenBlocked() int { return 0 }

// WebshareProxyConfig routes requests through Webshare rotating residential
// proxies, the most reliable way to work around YouTube IP blocks. Username
// and password are the "Proxy Username" / "Proxy Password" from the Webshare
// dashboard; the "-rotate" suffix makes every fresh connection come from a
// different IP of the pool.
type WebshareProxyConfig struct {
	Username string
	Password string
	Domain   string
	Port     int

	retries int
}

const (
	webshareDefaultDomain  = "p.webshare.io"
	webshareDefaultPort    = 80
	webshareDefaultRetries = 10
)

// NewWebshareProxyConfig builds a Webshare config with the default rotating
// endpoint and 10 retries when blocked.
func NewWebshareProxyConfig(username, password string) (*WebshareProxyConfig, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: webshare username and password are required",
			ErrInvalidProxyConfig)
	}
	return &WebshareProxyConfig{
		Username: username,
		Password: password,
		Domain:   webshareDefaultDomain,
		Port:     webshareDefaultPort,
		retries:  webshareDefaultRetries,
	}, nil
}

// WithRetriesWhenBlocked overrides how many IP rotations are attempted when a
// request is blocked.
func (c *WebshareProxyConfig) WithRetriesWhenBlocked(n int) *WebshareProxyConfig {
	c.retries = n
	return c
}

// URL is the rotating proxy endpoint shared by both schemes.
func (c *WebshareProxyConfig) URL() string {
	return fmt.Sprintf("http://%s-rotate:%s@%s:%d/", c.Username, c.Password, c.Domain, c.Port)
}

func (c *WebshareProxyConfig) HTTPURL() string       { return c.URL() }
func (c *WebshareProxyConfig) HTTPSURL() string      { return c.URL() }
func (c *WebshareProxyConfig) PreventKeepAlive() bool { return true }
func (c *WebshareProxyConfig) RetriesWhenBlocked() int { return c.retries }

// proxyTransport builds an http.Transport honoring the proxy config.
// SOCKS-schemed proxy URLs are dialed via golang.org/x/net/proxy; everything
// else goes through the standard per-scheme Proxy callback.
func proxyTransport(cfg ProxyConfig) (*http.Transport, error) {
	tr := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		DisableKeepAlives:   cfg.PreventKeepAlive(),
	}

	httpsURL, err := url.Parse(cfg.HTTPSURL())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxyConfig, err)
	}

	switch httpsURL.Scheme {
	case "socks5", "socks5h", "socks4":
		dialer, err := xproxy.FromURL(httpsURL, xproxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProxyConfig, err)
		}
		if cd, ok := dialer.(xproxy.ContextDialer); ok {
			tr.DialContext = cd.DialContext
		}
	default:
		httpURL, err := url.Parse(cfg.HTTPURL())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProxyConfig, err)
		}
		tr.Proxy = func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "http" {
				return httpURL, nil
			}
			return httpsURL, nil
		}
	}

	return tr, nil
}
