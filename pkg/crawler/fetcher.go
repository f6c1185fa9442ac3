package crawler

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/amosWeiskopf/seosmith/internal/models"
	"github.com/amosWeiskopf/seosmith/pkg/extractor"
)

const maxPageBytes = 10 << 20

// Fetcher retrieves and parses a single page, retrying transient failures
// with exponential backoff and jitter.
type Fetcher struct {
	client      *http.Client
	limiter     *rate.Limiter
	userAgent   string
	maxRetries  int
	backoffBase time.Duration
	logger      zerolog.Logger
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithFetchTimeout sets the per-request timeout
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// WithMaxRetries sets the retry budget after the first attempt
func WithMaxRetries(n int) FetcherOption {
	return func(f *Fetcher) { f.maxRetries = n }
}

// WithBackoffBase sets the first retry delay; later retries double it
func WithBackoffBase(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.backoffBase = d }
}

// WithRateLimit caps outbound requests per second
func WithRateLimit(rps int) FetcherOption {
	return func(f *Fetcher) { f.limiter = rate.NewLimiter(rate.Limit(rps), rps) }
}

// WithFetcherLogger sets the fetcher's logger
func WithFetcherLogger(l zerolog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher with a 15s timeout and 3 retries
func NewFetcher(userAgent string, opts ...FetcherOption) *Fetcher {
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 50,
		IdleConnTimeout:     30 * time.Second,
	}
	f := &Fetcher{
		client:      &http.Client{Transport: transport, Timeout: 15 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(10), 10),
		userAgent:   userAgent,
		maxRetries:  3,
		backoffBase: 500 * time.Millisecond,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads target and extracts its title, meta description and
// content text. Transient failures are retried up to the retry budget; the
// final failure propagates with its original cause.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*models.PageRecord, error) {
	var lastErr error
	for attempt := 1; attempt <= f.maxRetries+1; attempt++ {
		if attempt > 1 {
			// base * 2^(attempt-2) plus jitter so retry bursts spread out
			backoff := f.backoffBase * time.Duration(1<<(attempt-2))
			backoff += time.Duration(rand.Int63n(int64(f.backoffBase)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			f.logger.Debug().Str("url", target).Int("attempt", attempt).Msg("retrying fetch")
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := f.fetchOnce(ctx, target)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
	return nil, fmt.Errorf("fetching %s after %d attempts: %w", target, f.maxRetries+1, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, target string) (*models.PageRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %s for %s", resp.Status, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", target, err)
	}

	return extractor.ExtractPage(string(body), target)
}
