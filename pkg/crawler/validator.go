package crawler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
)

// Validator classifies candidate URLs as fetchable HTML documents using the
// cheapest possible check: a HEAD request with no body download. Ambiguous
// signals resolve optimistically; the full fetch stage will fail loudly for
// URLs that truly are not fetchable.
type Validator struct {
	client    *http.Client
	userAgent string
	logger    zerolog.Logger

	mu          sync.Mutex
	robotsCache map[string]*robotstxt.RobotsData
}

// NewValidator creates a Validator with a short per-check timeout
func NewValidator(client *http.Client, userAgent string, logger zerolog.Logger) *Validator {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Validator{
		client:      client,
		userAgent:   userAgent,
		logger:      logger,
		robotsCache: make(map[string]*robotstxt.RobotsData),
	}
}

// Validate reports whether target looks like a crawlable HTML page.
// A successful HEAD with an html content type accepts; a successful HEAD
// with a clearly non-HTML type rejects; any check failure (network error,
// timeout, server rejecting HEAD) accepts optimistically. URLs disallowed
// by robots.txt are rejected.
func (v *Validator) Validate(ctx context.Context, target string) bool {
	if !v.allowedByRobots(ctx, target) {
		v.logger.Debug().Str("url", target).Msg("disallowed by robots.txt")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", v.userAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		// Some servers reject HEAD outright; pass the URL through and let
		// the fetch stage decide.
		v.logger.Debug().Str("url", target).Err(err).Msg("HEAD check failed, accepting optimistically")
		return true
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		v.logger.Debug().Str("url", target).Int("status", resp.StatusCode).Msg("HEAD check failed, accepting optimistically")
		return true
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType == "" {
		return true
	}
	return strings.Contains(contentType, "html")
}

func (v *Validator) allowedByRobots(ctx context.Context, target string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return false
	}
	base := u.Scheme + "://" + u.Host

	v.mu.Lock()
	robots, ok := v.robotsCache[base]
	v.mu.Unlock()

	if !ok {
		robots = v.fetchRobots(ctx, base)
		v.mu.Lock()
		v.robotsCache[base] = robots
		v.mu.Unlock()
	}
	if robots == nil {
		return true
	}
	return robots.TestAgent(u.Path, v.userAgent)
}

// fetchRobots returns nil when robots.txt is unavailable or unparsable,
// which callers treat as allow-all.
func (v *Validator) fetchRobots(ctx context.Context, base string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", v.userAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return robots
}
