package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	"github.com/amosWeiskopf/seosmith/internal/models"
	"github.com/amosWeiskopf/seosmith/pkg/pool"
	"github.com/amosWeiskopf/seosmith/pkg/sitemap"
)

var (
	// ErrNoValidPages means the sitemap listed URLs but none passed validation.
	ErrNoValidPages = errors.New("no crawlable HTML pages found among sitemap URLs")

	// ErrNoPagesFetched means validated URLs existed but every fetch failed.
	ErrNoPagesFetched = errors.New("no pages could be fetched from validated URLs")
)

// Engine orchestrates sitemap resolution, URL validation and page fetching
// into a single crawl producing the site's page inventory.
type Engine struct {
	resolver  *sitemap.Resolver
	validator *Validator
	fetcher   *Fetcher

	// Validation checks are lightweight HEAD requests, so they run at a
	// higher ceiling than full fetches.
	validateConcurrency int
	fetchConcurrency    int

	logger zerolog.Logger
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithValidateConcurrency sets the validation stage worker ceiling
func WithValidateConcurrency(n int) EngineOption {
	return func(e *Engine) { e.validateConcurrency = n }
}

// WithFetchConcurrency sets the fetch stage worker ceiling
func WithFetchConcurrency(n int) EngineOption {
	return func(e *Engine) { e.fetchConcurrency = n }
}

// WithEngineLogger sets the engine's logger
func WithEngineLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine wires a Resolver, Validator and Fetcher into a crawl engine
func NewEngine(resolver *sitemap.Resolver, validator *Validator, fetcher *Fetcher, opts ...EngineOption) *Engine {
	e := &Engine{
		resolver:            resolver,
		validator:           validator,
		fetcher:             fetcher,
		validateConcurrency: 50,
		fetchConcurrency:    30,
		logger:              zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CrawlSite discovers the site's URL set, validates which entries are real
// HTML documents, and fetches the survivors into PageRecords. onProgress is
// invoked once per completed item within each stage; the completed count
// resets when the fetch stage begins. Each empty-result boundary fails with
// a distinct error: sitemap.ErrNoSitemap, sitemap.ErrEmptySitemap,
// ErrNoValidPages, ErrNoPagesFetched.
func (e *Engine) CrawlSite(ctx context.Context, rootURL, explicitSitemap string, onProgress pool.ProgressFunc) ([]models.PageRecord, error) {
	urls, err := e.resolver.Resolve(ctx, rootURL, explicitSitemap)
	if err != nil {
		return nil, err
	}
	urls = e.scopeToSite(rootURL, urls)
	e.logger.Info().Int("urls", len(urls)).Str("site", rootURL).Msg("sitemap resolved")

	validated := e.validateStage(ctx, urls, onProgress)
	if len(validated) == 0 {
		return nil, ErrNoValidPages
	}
	e.logger.Info().Int("validated", len(validated)).Int("discovered", len(urls)).Msg("validation stage complete")

	pages := e.fetchStage(ctx, validated, onProgress)
	if len(pages) == 0 {
		return nil, ErrNoPagesFetched
	}
	e.logger.Info().Int("pages", len(pages)).Msg("fetch stage complete")

	return pages, nil
}

func (e *Engine) validateStage(ctx context.Context, urls []string, onProgress pool.ProgressFunc) []string {
	results := pool.Map(ctx, urls, e.validateConcurrency, func(ctx context.Context, u string) (string, error) {
		if !e.validator.Validate(ctx, u) {
			return "", fmt.Errorf("not a crawlable HTML page: %s", u)
		}
		return u, nil
	}, onProgress)
	return pool.Collect(results)
}

func (e *Engine) fetchStage(ctx context.Context, urls []string, onProgress pool.ProgressFunc) []models.PageRecord {
	results := pool.Map(ctx, urls, e.fetchConcurrency, func(ctx context.Context, u string) (models.PageRecord, error) {
		page, err := e.fetcher.Fetch(ctx, u)
		if err != nil {
			e.logger.Warn().Str("url", u).Err(err).Msg("page fetch failed")
			return models.PageRecord{}, err
		}
		return *page, nil
	}, onProgress)
	return pool.Collect(results)
}

// scopeToSite drops sitemap entries outside the site's registrable domain.
// Sitemaps occasionally list CDN or staging hosts that are not part of the
// audited site.
func (e *Engine) scopeToSite(rootURL string, urls []string) []string {
	root, err := url.Parse(rootURL)
	if err != nil || root.Host == "" {
		return urls
	}
	rootDomain := siteKey(root.Hostname())

	scoped := urls[:0]
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		if siteKey(u.Hostname()) != rootDomain {
			e.logger.Debug().Str("url", raw).Msg("skipping off-site sitemap entry")
			continue
		}
		scoped = append(scoped, raw)
	}
	return scoped
}

// siteKey is the registrable domain when one can be derived, otherwise the
// bare hostname (IP literals, localhost).
func siteKey(host string) string {
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	return host
}
