package fetchutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/edgi-govdata-archiving/epa-echo/lib/restyutil"
	"github.com/edgi-govdata-archiving/epa-echo/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/mazen160/go-random"
	"golang.org/x/net/publicsuffix"
)

type Options struct {
	// directory for the on-disk response cache, caching is disabled
	// when empty
	CacheDir string
	// wraps the transport with browser-like fingerprinting for
	// WAF-fronted hosts
	BrowserHeaders bool
	// bounds (in milliseconds) for the randomized pause before each
	// upstream request, zero disables throttling
	ThrottleMinMs int
	ThrottleMaxMs int
	// directory to dump request/response transcripts to for debugging,
	// disabled when empty
	DumpDir string

	RetryCount int
	Timeout    time.Duration
}

// Client is a caching, throttled HTTP client. Successful responses are
// persisted under CacheDir so repeat fetches across runs never hit the
// upstream again. Connection-level retries live here, callers never
// retry on their own.
type Client struct {
	http  *resty.Client
	cache *diskCache

	throttleMinMs int
	throttleMaxMs int
}

func NewClient(opts Options) (*Client, error) {
	client := resty.New()

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")

	if opts.BrowserHeaders {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	retries := opts.RetryCount
	if retries == 0 {
		retries = 3
	}
	client.SetRetryCount(retries)
	client.SetRetryWaitTime(time.Second * 2)
	client.SetRetryMaxWaitTime(time.Second * 30)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Minute * 2
	}
	client.SetTimeout(timeout)

	telemetry.InstrumentResty(client, "lib/fetchutil")
	if opts.DumpDir != "" {
		restyutil.DumpResponses(client, restyutil.NewFilesystemOutput(opts.DumpDir))
	}

	var cache *diskCache
	if opts.CacheDir != "" {
		cache, err = newDiskCache(opts.CacheDir)
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		http:          client,
		cache:         cache,
		throttleMinMs: opts.ThrottleMinMs,
		throttleMaxMs: opts.ThrottleMaxMs,
	}, nil
}

func (c *Client) throttle() {
	if c.throttleMaxMs <= 0 {
		return
	}
	ms, err := random.IntRange(c.throttleMinMs, c.throttleMaxMs+1)
	if err != nil {
		ms = c.throttleMaxMs
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// Get fetches the url, serving from the response cache when possible.
func (c *Client) Get(ctx context.Context, link string) ([]byte, error) {
	key := cacheKey("GET", link, "")
	if c.cache != nil {
		body, ok := c.cache.get(key)
		if ok {
			slog.Debug("cache hit", "method", "GET", "url", link)
			return body, nil
		}
	}

	c.throttle()
	res, err := c.http.R().SetContext(ctx).Get(link)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("GET %s: unexpected status %d", link, res.StatusCode())
	}

	body := res.Body()
	if c.cache != nil {
		c.cache.put(key, body)
	}
	return body, nil
}

// Post issues a form-encoded POST, serving from the response cache when
// possible. The status code is returned alongside the body so callers
// can classify application-level failures themselves.
func (c *Client) Post(ctx context.Context, link string, form url.Values) (int, []byte, error) {
	encoded := form.Encode()
	key := cacheKey("POST", link, encoded)
	if c.cache != nil {
		body, ok := c.cache.get(key)
		if ok {
			slog.Debug("cache hit", "method", "POST", "url", link)
			return 200, body, nil
		}
	}

	c.throttle()
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(encoded).
		Post(link)
	if err != nil {
		return 0, nil, err
	}

	body := res.Body()
	if c.cache != nil && res.StatusCode() == 200 {
		c.cache.put(key, body)
	}
	return res.StatusCode(), body, nil
}
