package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/amosWeiskopf/mapharvest/internal/metrics"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxPageBytes caps the size of a listing page body
var maxPageBytes int64 = 16 << 20

var errPageTooLarge = errors.New("page exceeds size limit")

// Options configures an HTTPFetcher
type Options struct {
	UserAgent         string
	Timeout           time.Duration // per request
	MaxRetries        int           // extra attempts after the first
	Backoff           time.Duration // first retry delay, doubled per attempt
	RequestsPerSecond float64
	FollowRobotsTxt   bool
	Client            *http.Client
	Logger            *zap.Logger
}

// DefaultOptions returns the options used when a field is left empty
func DefaultOptions() Options {
	return Options{
		UserAgent:         "mapharvest/1.0",
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		Backoff:           500 * time.Millisecond,
		RequestsPerSecond: 4,
		FollowRobotsTxt:   true,
	}
}

// HTTPFetcher fetches pages over HTTP with rate limiting, retries and an
// optional robots.txt check. It is safe for concurrent use.
type HTTPFetcher struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger

	robotsMu sync.Mutex
	robots   map[string]*robotstxt.RobotsData
}

// NewHTTPFetcher creates a fetcher. Empty UserAgent, Timeout, Backoff and
// RequestsPerSecond take their DefaultOptions values; MaxRetries and
// FollowRobotsTxt are used as given, so start from DefaultOptions to keep
// retries and the robots.txt check.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	def := DefaultOptions()
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = def.Backoff
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = def.RequestsPerSecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 50,
				IdleConnTimeout:     30 * time.Second,
			},
		}
	}

	return &HTTPFetcher{
		client:  client,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		logger:  opts.Logger,
		robots:  make(map[string]*robotstxt.RobotsData),
	}
}

// FetchPage implements PageFetcher
func (f *HTTPFetcher) FetchPage(ctx context.Context, pageURL string) (string, error) {
	start := time.Now()
	body, err := f.fetch(ctx, pageURL)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordPageFetch(outcome, time.Since(start))
	return body, err
}

func (f *HTTPFetcher) fetch(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", &TransportError{URL: pageURL, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &TransportError{URL: pageURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}

	if f.opts.FollowRobotsTxt {
		allowed, err := f.allowedByRobots(ctx, u)
		if err != nil {
			return "", &TransportError{URL: pageURL, Err: err}
		}
		if !allowed {
			f.logger.Warn("skipped page disallowed by robots.txt", zap.String("url", pageURL))
			return "", &TransportError{URL: pageURL, Err: ErrDisallowed}
		}
	}

	var lastErr error
	var lastStatus int
	for attempt := 0; attempt <= f.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := f.opts.Backoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", &TransportError{URL: pageURL, Err: ctx.Err()}
			}
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return "", &TransportError{URL: pageURL, Err: err}
		}

		body, status, err := f.get(ctx, pageURL)
		if err == nil && status == http.StatusOK {
			f.logger.Debug("fetched page", zap.String("url", pageURL), zap.Int("bytes", len(body)))
			return body, nil
		}

		lastErr, lastStatus = err, status
		if err == nil && !retryable(status) {
			break
		}
		if errors.Is(err, errPageTooLarge) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		f.logger.Warn("page fetch failed",
			zap.String("url", pageURL),
			zap.Int("attempt", attempt+1),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	return "", &TransportError{URL: pageURL, StatusCode: lastStatus, Err: lastErr}
}

func (f *HTTPFetcher) get(ctx context.Context, pageURL string) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > maxPageBytes {
		return "", resp.StatusCode, fmt.Errorf("%w: more than %d bytes", errPageTooLarge, maxPageBytes)
	}
	return string(body), resp.StatusCode, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// allowedByRobots fetches robots.txt once per host. A parsed file and a
// missing one (4xx, allow all) are cached; network failures and 5xx are
// returned without caching so the next fetch asks again.
func (f *HTTPFetcher) allowedByRobots(ctx context.Context, u *url.URL) (bool, error) {
	key := u.Scheme + "://" + u.Host

	f.robotsMu.Lock()
	defer f.robotsMu.Unlock()

	robots, ok := f.robots[key]
	if !ok {
		var err error
		robots, err = f.loadRobots(ctx, key+"/robots.txt")
		if err != nil {
			return false, err
		}
		f.robots[key] = robots
	}
	if robots == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return robots.TestAgent(path, f.opts.UserAgent), nil
}

// loadRobots returns nil data when the host has no usable robots.txt
func (f *HTTPFetcher) loadRobots(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("robots.txt: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("robots.txt unavailable", zap.String("url", robotsURL), zap.Error(err))
		return nil, fmt.Errorf("robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("robots.txt: unexpected status %d", resp.StatusCode)
	}

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		f.logger.Debug("robots.txt unparsable", zap.String("url", robotsURL), zap.Error(err))
		return nil, nil
	}
	return robots, nil
}
