package sitemap

import (
	"bufio"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrNoSitemap means no sitemap location could be discovered for the site.
	ErrNoSitemap = errors.New("no sitemap found: checked robots.txt and conventional paths")

	// ErrEmptySitemap means sitemaps were discovered but yielded zero page URLs.
	ErrEmptySitemap = errors.New("sitemap found but contains no URLs")
)

// Conventional locations probed when robots.txt yields no Sitemap directives
var wellKnownPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/post-sitemap.xml",
	"/page-sitemap.xml",
}

const maxSitemapBytes = 50 << 20

// Resolver discovers a site's sitemap locations and expands them, including
// nested sitemap-index files, into a flat deduplicated page URL list.
type Resolver struct {
	client    *http.Client
	userAgent string
	logger    zerolog.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithClient overrides the HTTP client
func WithClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(r *Resolver) { r.userAgent = ua }
}

// WithLogger sets the resolver's logger
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver with a 30s client timeout
func New(opts ...Option) *Resolver {
	r := &Resolver{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: "SEOSmith/1.0",
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns all page URLs reachable from the site's sitemaps. When
// explicitSitemap is non-empty, discovery is skipped and that location is
// used directly. Returns ErrNoSitemap when no location is discoverable and
// ErrEmptySitemap when every discovered sitemap is empty.
func (r *Resolver) Resolve(ctx context.Context, siteURL, explicitSitemap string) ([]string, error) {
	locations, err := r.discover(ctx, siteURL, explicitSitemap)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	visited := make(map[string]bool)
	var urls []string
	for _, loc := range locations {
		collected, err := r.expand(ctx, loc, visited)
		if err != nil {
			r.logger.Warn().Str("sitemap", loc).Err(err).Msg("failed to expand sitemap")
			continue
		}
		for _, u := range collected {
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}

	if len(urls) == 0 {
		return nil, ErrEmptySitemap
	}
	return urls, nil
}

// discover finds sitemap locations: explicit URL, then robots.txt Sitemap
// directives, then the conventional well-known paths.
func (r *Resolver) discover(ctx context.Context, siteURL, explicitSitemap string) ([]string, error) {
	if explicitSitemap != "" {
		return []string{explicitSitemap}, nil
	}

	base, err := url.Parse(siteURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid site URL %q: %w", siteURL, err)
	}
	root := base.Scheme + "://" + base.Host

	if locations := r.fromRobots(ctx, root); len(locations) > 0 {
		r.logger.Debug().Int("count", len(locations)).Msg("sitemaps discovered via robots.txt")
		return locations, nil
	}

	var locations []string
	for _, path := range wellKnownPaths {
		candidate := root + path
		if r.probeXML(ctx, candidate) {
			locations = append(locations, candidate)
		}
	}
	if len(locations) == 0 {
		return nil, ErrNoSitemap
	}
	r.logger.Debug().Int("count", len(locations)).Msg("sitemaps discovered via well-known paths")
	return locations, nil
}

// fromRobots extracts Sitemap directive values from robots.txt. The directive
// match is case-insensitive, one per line.
func (r *Resolver) fromRobots(ctx context.Context, root string) []string {
	body, err := r.get(ctx, root+"/robots.txt")
	if err != nil {
		return nil
	}
	defer body.Close()

	var locations []string
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) < 8 || !strings.EqualFold(line[:8], "sitemap:") {
			continue
		}
		if loc := strings.TrimSpace(line[8:]); loc != "" {
			locations = append(locations, loc)
		}
	}
	return locations
}

// probeXML checks whether a candidate path serves an XML document
func (r *Resolver) probeXML(ctx context.Context, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return false
	}
	return strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "xml")
}

type sitemapIndex struct {
	Sitemaps []locEntry `xml:"sitemap"`
}

type urlSet struct {
	URLs []locEntry `xml:"url"`
}

type locEntry struct {
	Loc string `xml:"loc"`
}

// expand fetches one sitemap location and returns the page URLs beneath it,
// recursing through sitemap-index files. The visited set guards against an
// index that references itself or an ancestor; a repeated location is treated
// as already expanded, not followed again.
func (r *Resolver) expand(ctx context.Context, location string, visited map[string]bool) ([]string, error) {
	if visited[location] {
		r.logger.Warn().Str("sitemap", location).Msg("sitemap cycle detected, skipping")
		return nil, nil
	}
	visited[location] = true

	body, err := r.get(ctx, location)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(body, maxSitemapBytes))
	body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading sitemap %s: %w", location, err)
	}

	var index sitemapIndex
	if err := xml.Unmarshal(data, &index); err == nil && len(index.Sitemaps) > 0 {
		var urls []string
		for _, child := range index.Sitemaps {
			loc := strings.TrimSpace(child.Loc)
			if loc == "" {
				continue
			}
			nested, err := r.expand(ctx, loc, visited)
			if err != nil {
				r.logger.Warn().Str("sitemap", loc).Err(err).Msg("failed to expand child sitemap")
				continue
			}
			urls = append(urls, nested...)
		}
		return urls, nil
	}

	var set urlSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parsing sitemap %s: %w", location, err)
	}
	var urls []string
	for _, entry := range set.URLs {
		if loc := strings.TrimSpace(entry.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

func (r *Resolver) get(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s for %s", resp.Status, target)
	}
	return resp.Body, nil
}
