package reflexion

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/amosWeiskopf/seosmith/internal/models"
	"github.com/amosWeiskopf/seosmith/pkg/provider"
	"github.com/amosWeiskopf/seosmith/pkg/utils"
)

// Hard constraints every suggestion must satisfy
const (
	MaxTitleRunes       = 60
	MaxDescriptionRunes = 160
)

// DefaultAttempts bounds the generate-validate-repair cycle
const DefaultAttempts = 3

// DefaultSuggestionCount is how many candidates one batch requests
const DefaultSuggestionCount = 3

// Refiner drives the generate-validate-repair loop: it requests a candidate
// batch, validates each candidate against the hard constraints, and on any
// violation re-prompts with itemized feedback. After the attempt budget is
// spent it degrades to a deterministic fallback, so constraint failures
// never surface to callers.
type Refiner struct {
	attempts int
	count    int
	logger   zerolog.Logger
}

// Option configures a Refiner
type Option func(*Refiner)

// WithAttempts overrides the attempt budget
func WithAttempts(n int) Option {
	return func(r *Refiner) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithSuggestionCount overrides the candidates requested per batch
func WithSuggestionCount(n int) Option {
	return func(r *Refiner) {
		if n > 0 {
			r.count = n
		}
	}
}

// WithLogger sets the refiner's logger
func WithLogger(l zerolog.Logger) Option {
	return func(r *Refiner) { r.logger = l }
}

// New creates a Refiner with the default attempt and batch sizes
func New(opts ...Option) *Refiner {
	r := &Refiner{
		attempts: DefaultAttempts,
		count:    DefaultSuggestionCount,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refine produces suggestions for req that all satisfy the hard constraints.
// The only error it returns is a provider rate limit, which the scheduler
// must see to cool the worker down; every other generation failure resolves
// internally, at worst to the deterministic fallback.
func (r *Refiner) Refine(ctx context.Context, cap provider.Capability, req provider.GenerateRequest) ([]models.Suggestion, error) {
	if req.Count <= 0 {
		req.Count = r.count
	}

	var feedback []string
	for attempt := 1; attempt <= r.attempts; attempt++ {
		req.Feedback = feedback

		candidates, err := cap.Generate(ctx, req)
		if err != nil {
			if provider.IsRateLimit(err) {
				return nil, err
			}
			r.logger.Warn().Str("provider", cap.Name()).Str("url", req.Page.URL).
				Int("attempt", attempt).Err(err).Msg("generation failed")
			continue
		}
		if len(candidates) == 0 {
			feedback = []string{"previous attempt returned no suggestions"}
			continue
		}

		feedback = nil
		for i, c := range candidates {
			for _, violation := range Validate(c) {
				feedback = append(feedback, fmt.Sprintf("suggestion %d: %s", i+1, violation))
			}
		}
		if len(feedback) == 0 {
			return candidates, nil
		}
		r.logger.Debug().Str("url", req.Page.URL).Int("attempt", attempt).
			Strs("violations", feedback).Msg("candidates violated constraints, re-prompting")
	}

	r.logger.Warn().Str("url", req.Page.URL).Int("attempts", r.attempts).
		Msg("reflexion budget exhausted, using fallback")
	return []models.Suggestion{Fallback(req.Page)}, nil
}

// Validate itemizes req's constraint violations; an empty slice means the
// suggestion is valid. Lengths are rune counts.
func Validate(s models.Suggestion) []string {
	var violations []string
	if s.Title == "" {
		violations = append(violations, "title is empty")
	} else if n := utf8.RuneCountInString(s.Title); n > MaxTitleRunes {
		violations = append(violations, fmt.Sprintf("title %q is %d characters, max %d", s.Title, n, MaxTitleRunes))
	}
	if s.Description == "" {
		violations = append(violations, "description is empty")
	} else if n := utf8.RuneCountInString(s.Description); n > MaxDescriptionRunes {
		violations = append(violations, fmt.Sprintf("description %q is %d characters, max %d", s.Description, n, MaxDescriptionRunes))
	}
	if s.Rationale == "" {
		violations = append(violations, "rationale is empty")
	}
	return violations
}

// Fallback derives a degraded but always-valid suggestion by truncating the
// page's own metadata to the constraint ceilings.
func Fallback(page models.PageRecord) models.Suggestion {
	title := page.Title
	if title == "" {
		title = utils.TruncateRunes(page.Content, MaxTitleRunes)
	}
	if title == "" {
		title = page.URL
	}
	description := page.Description
	if description == "" {
		description = page.Content
	}
	if description == "" {
		description = page.URL
	}
	return models.Suggestion{
		Title:       utils.TruncateRunes(title, MaxTitleRunes),
		Description: utils.TruncateRunes(description, MaxDescriptionRunes),
		Rationale:   "fallback: original metadata truncated to length limits after generation failed validation",
	}
}
