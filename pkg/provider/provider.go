package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amosWeiskopf/seosmith/internal/models"
)

// Capability is one interchangeable analysis/generation backend, typically
// one configured credential on one AI vendor. The scheduler holds exactly one
// worker per Capability; vendor endpoint mechanics live behind this interface.
type Capability interface {
	// Name identifies the credential/provider pairing in logs and errors
	Name() string

	// Analyze evaluates a page against its competitive and topic context
	Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error)

	// Generate produces candidate metadata rewrites for a page. When
	// req.Feedback is non-empty it carries itemized constraint violations
	// from a previous batch that the new batch must correct.
	Generate(ctx context.Context, req GenerateRequest) ([]models.Suggestion, error)
}

// AnalyzeRequest carries one page plus the cross-page signals the analysis
// step needs.
type AnalyzeRequest struct {
	Page        models.PageRecord
	Competitors []string
	Siblings    []models.PageSummary
}

// Analysis is the per-page assessment feeding the generation step
type Analysis struct {
	Summary        string   `json:"summary"`
	Issues         []string `json:"issues"`
	TargetKeywords []string `json:"target_keywords"`
}

// GenerateRequest asks for Count candidate suggestions for a page
type GenerateRequest struct {
	Page     models.PageRecord
	Analysis *Analysis
	Siblings []models.PageSummary
	Feedback []string
	Count    int
}

// RateLimitError is the distinguishable error kind a Capability raises when
// its vendor rejects a call for quota reasons. The scheduler reacts with a
// worker cooldown and a requeue; it is not a job defect.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %s rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("provider %s rate limited", e.Provider)
}

// IsRateLimit reports whether err is (or wraps) a RateLimitError
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
