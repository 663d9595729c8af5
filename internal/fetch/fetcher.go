package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okhval/hindsite/internal/cache"
	"github.com/okhval/hindsite/internal/model"
	"github.com/okhval/hindsite/internal/util"
	"github.com/okhval/hindsite/internal/worker"
)

const fetchMaxRetries = 3

// fetchSleepFunc is the sleep used between retry attempts (injectable for tests)
var fetchSleepFunc = time.Sleep

// Fetcher is the gateway every collection method fetches through. It
// normalizes request headers, enforces per-domain rate limits, caps
// body size, and optionally serves bodies from cache.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	store      cache.Cache
	cacheTTL   time.Duration
}

// Result is a fetched document. Body is raw bytes as a string; callers
// treat parse failures of malformed content as method-level errors.
type Result struct {
	Body        string
	ContentType string
	StatusCode  int
	FinalURL    string
	FromCache   bool
}

// StatusError reports a non-2xx response. Collection methods inspect
// the code: WordPress and Ghost APIs signal pagination exhaustion with
// HTTP 400.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// NewFetcher creates a fetch gateway. The limiter and store may be nil
// to disable rate limiting and caching.
func NewFetcher(cfg *model.Config, limiter *worker.Limiter, store cache.Cache) *Fetcher {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}

	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
	}
	if cfg.HTTP.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.HTTP.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.HTTP.UserAgent,
		maxBytes:  cfg.HTTP.MaxBodyBytes,
		limiter:   limiter,
		store:     store,
		cacheTTL:  cfg.Cache.MemoryTTL,
	}
}

// Fetch retrieves the document at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if f.store != nil {
		if body, found := f.store.Get(cache.Key(rawURL)); found {
			return &Result{
				Body:       string(body),
				StatusCode: http.StatusOK,
				FinalURL:   rawURL,
				FromCache:  true,
			}, nil
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	result := &Result{
		Body:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
	}

	if f.store != nil {
		_ = f.store.Set(cache.Key(rawURL), body, f.cacheTTL)
	}

	return result, nil
}

// FetchWithRetry retries transient failures (5xx, 429, connection
// resets). Permanent failures (4xx, bad URLs) return immediately.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Result, error) {
	var lastErr error

	for attempt := 0; attempt < fetchMaxRetries; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(time.Duration(attempt) * time.Second)
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !isRetryableFetchError(err) {
			return nil, err
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// isRetryableFetchError reports whether a fetch failure is worth
// retrying.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	msg := err.Error()
	if strings.HasPrefix(msg, "fetch: ") {
		// Transport-level errors: connection refused, resets, timeouts
		return true
	}

	return false
}
