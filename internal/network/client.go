// internal/network/client.go
package network

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"hiddenParamsGo/internal/core/logger"
)

// DefaultTimeout matches the per-request timeout used when none is configured.
const DefaultTimeout = 60 * time.Second

// Options configures the transport shared by every probe of a run.
type Options struct {
	Timeout         time.Duration
	Proxy           string
	FollowRedirects bool
	Concurrency     int
	// Rate is the request budget per second; 0 disables limiting.
	Rate float64
}

// Client wraps http.Client with a cookie jar and an optional rate limit.
// It is safe for concurrent use.
type Client struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter
}

// NewClient builds the client used for discovery.
func NewClient(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		DialContext: (&net.Dialer{
			Timeout:   opts.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          opts.Concurrency * 2,
		MaxIdleConnsPerHost:   max(opts.Concurrency, 10),
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil || proxyURL.Host == "" {
			return nil, fmt.Errorf("invalid proxy %q", opts.Proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		Jar:       jar,
	}
	if !opts.FollowRedirects {
		httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	c := &Client{HTTPClient: httpClient}
	if opts.Rate > 0 {
		burst := int(opts.Rate)
		if burst < 1 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}
	return c, nil
}

// NewReplayClient builds a client that sends everything through the replay proxy.
// Replayed requests never follow redirects, the proxy user decides.
func NewReplayClient(proxy string, timeout time.Duration) (*Client, error) {
	if proxy == "" {
		return nil, fmt.Errorf("replay proxy is empty")
	}
	return NewClient(Options{Timeout: timeout, Proxy: proxy})
}

// Do waits for the rate limiter and sends the request. Failures are not retried.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logger.GetLogger().Debugf("request to %s failed: %v", req.URL.Redacted(), err)
		return nil, err
	}
	return resp, nil
}
