package reflexion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/seosmith/internal/models"
	"github.com/amosWeiskopf/seosmith/pkg/provider"
)

// scriptedCapability replays a fixed sequence of Generate outcomes and
// records every request it saw.
type scriptedCapability struct {
	script   []func(req provider.GenerateRequest) ([]models.Suggestion, error)
	requests []provider.GenerateRequest
}

func (c *scriptedCapability) Name() string { return "scripted" }

func (c *scriptedCapability) Analyze(context.Context, provider.AnalyzeRequest) (*provider.Analysis, error) {
	return &provider.Analysis{}, nil
}

func (c *scriptedCapability) Generate(_ context.Context, req provider.GenerateRequest) ([]models.Suggestion, error) {
	c.requests = append(c.requests, req)
	step := len(c.requests) - 1
	if step >= len(c.script) {
		step = len(c.script) - 1
	}
	return c.script[step](req)
}

func valid(n int) []models.Suggestion {
	batch := make([]models.Suggestion, n)
	for i := range batch {
		batch[i] = models.Suggestion{
			Title:       "Compact Valid Title",
			Description: "A description comfortably inside the ceiling.",
			Rationale:   "test",
		}
	}
	return batch
}

var samplePage = models.PageRecord{
	URL:         "https://example.com/guide",
	Title:       "An Existing Page Title",
	Description: "An existing meta description for the page.",
	Content:     "Body text about the guide topic.",
}

func TestRefineAcceptsFirstValidBatch(t *testing.T) {
	cap := &scriptedCapability{script: []func(provider.GenerateRequest) ([]models.Suggestion, error){
		func(provider.GenerateRequest) ([]models.Suggestion, error) { return valid(3), nil },
	}}

	got, err := New().Refine(context.Background(), cap, provider.GenerateRequest{Page: samplePage})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	require.Len(t, cap.requests, 1)
	assert.Empty(t, cap.requests[0].Feedback)
	assert.Equal(t, DefaultSuggestionCount, cap.requests[0].Count)
}

func TestRefineRepromptsWithItemizedFeedback(t *testing.T) {
	overlong := models.Suggestion{
		Title:       strings.Repeat("x", 75),
		Description: "fine",
		Rationale:   "fine",
	}

	cap := &scriptedCapability{script: []func(provider.GenerateRequest) ([]models.Suggestion, error){
		func(provider.GenerateRequest) ([]models.Suggestion, error) {
			return []models.Suggestion{overlong}, nil
		},
		func(provider.GenerateRequest) ([]models.Suggestion, error) { return valid(1), nil },
	}}

	got, err := New().Refine(context.Background(), cap, provider.GenerateRequest{Page: samplePage})
	require.NoError(t, err)
	assert.Equal(t, valid(1), got)

	require.Len(t, cap.requests, 2)
	require.Len(t, cap.requests[1].Feedback, 1)
	assert.Contains(t, cap.requests[1].Feedback[0], "suggestion 1")
	assert.Contains(t, cap.requests[1].Feedback[0], "75 characters, max 60")
}

func TestRefineFallsBackAfterBudgetExhausted(t *testing.T) {
	alwaysInvalid := func(provider.GenerateRequest) ([]models.Suggestion, error) {
		return []models.Suggestion{{Title: "", Description: "", Rationale: ""}}, nil
	}
	cap := &scriptedCapability{script: []func(provider.GenerateRequest) ([]models.Suggestion, error){alwaysInvalid}}

	got, err := New().Refine(context.Background(), cap, provider.GenerateRequest{Page: samplePage})
	require.NoError(t, err)
	assert.Len(t, cap.requests, DefaultAttempts)

	require.Len(t, got, 1)
	assert.Empty(t, Validate(got[0]), "fallback must satisfy the constraints")
	assert.Equal(t, samplePage.Title, got[0].Title)
}

func TestRefineSurfacesRateLimit(t *testing.T) {
	cap := &scriptedCapability{script: []func(provider.GenerateRequest) ([]models.Suggestion, error){
		func(provider.GenerateRequest) ([]models.Suggestion, error) {
			return nil, &provider.RateLimitError{Provider: "scripted"}
		},
	}}

	_, err := New().Refine(context.Background(), cap, provider.GenerateRequest{Page: samplePage})
	require.Error(t, err)
	assert.True(t, provider.IsRateLimit(err))
	assert.Len(t, cap.requests, 1, "rate limit must abort the loop immediately")
}

func TestRefineRetriesAfterGenerationError(t *testing.T) {
	cap := &scriptedCapability{script: []func(provider.GenerateRequest) ([]models.Suggestion, error){
		func(provider.GenerateRequest) ([]models.Suggestion, error) {
			return nil, errors.New("model unavailable")
		},
		func(provider.GenerateRequest) ([]models.Suggestion, error) { return valid(2), nil },
	}}

	got, err := New().Refine(context.Background(), cap, provider.GenerateRequest{Page: samplePage})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRefineOptions(t *testing.T) {
	alwaysEmpty := func(provider.GenerateRequest) ([]models.Suggestion, error) { return nil, nil }
	cap := &scriptedCapability{script: []func(provider.GenerateRequest) ([]models.Suggestion, error){alwaysEmpty}}

	r := New(WithAttempts(5), WithSuggestionCount(7))
	_, err := r.Refine(context.Background(), cap, provider.GenerateRequest{Page: samplePage})
	require.NoError(t, err)
	assert.Len(t, cap.requests, 5)
	assert.Equal(t, 7, cap.requests[0].Count)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		suggestion models.Suggestion
		violations int
	}{
		{
			name: "valid",
			suggestion: models.Suggestion{
				Title:       "Short Title",
				Description: "Short description.",
				Rationale:   "reason",
			},
			violations: 0,
		},
		{
			name:       "all empty",
			suggestion: models.Suggestion{},
			violations: 3,
		},
		{
			name: "overlong title and description",
			suggestion: models.Suggestion{
				Title:       strings.Repeat("a", MaxTitleRunes+1),
				Description: strings.Repeat("b", MaxDescriptionRunes+1),
				Rationale:   "reason",
			},
			violations: 2,
		},
		{
			name: "multibyte title at the rune limit",
			suggestion: models.Suggestion{
				Title:       strings.Repeat("日", MaxTitleRunes),
				Description: "fine",
				Rationale:   "reason",
			},
			violations: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Validate(tt.suggestion), tt.violations)
		})
	}
}

func TestFallback(t *testing.T) {
	t.Run("truncates overlong metadata", func(t *testing.T) {
		page := models.PageRecord{
			URL:         "https://example.com/long",
			Title:       strings.Repeat("word ", 30),
			Description: strings.Repeat("sentence ", 40),
		}
		s := Fallback(page)
		assert.Empty(t, Validate(s))
	})

	t.Run("content stands in for missing metadata", func(t *testing.T) {
		page := models.PageRecord{
			URL:     "https://example.com/bare",
			Content: "Only body text exists on this page.",
		}
		s := Fallback(page)
		assert.Empty(t, Validate(s))
		assert.Contains(t, s.Title, "Only body text")
	})

	t.Run("url is the last resort", func(t *testing.T) {
		s := Fallback(models.PageRecord{URL: "https://example.com/empty"})
		assert.Empty(t, Validate(s))
		assert.Equal(t, "https://example.com/empty", s.Title)
	})
}
