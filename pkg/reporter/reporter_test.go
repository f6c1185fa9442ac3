package reporter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/seosmith/internal/models"
)

func sampleReport() *AuditReport {
	return &AuditReport{
		Domain:      "example.com",
		GeneratedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		TotalPages:  2,
		Findings: []models.Finding{
			{Category: "Content", Type: "Missing Title", Description: "page has no <title> element", Severity: "high", URL: "https://example.com/b"},
		},
		Results: []PageResult{
			{
				URL:      "https://example.com/b",
				Title:    "Beta",
				Provider: "local",
				Suggestions: []models.Suggestion{
					{Title: "Better Beta", Description: "A rewritten description.", Rationale: "clarity"},
				},
			},
			{
				URL:   "https://example.com/a",
				Title: "Alpha",
				Error: "backend exploded",
			},
		},
	}
}

func TestRenderJSON(t *testing.T) {
	out, err := Render(sampleReport(), "json")
	require.NoError(t, err)

	var decoded AuditReport
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "example.com", decoded.Domain)
	assert.Equal(t, 2, decoded.TotalPages)
	require.Len(t, decoded.Results, 2)
	// Results are sorted by URL for stable output
	assert.Equal(t, "https://example.com/a", decoded.Results[0].URL)
	assert.Equal(t, "https://example.com/b", decoded.Results[1].URL)
}

func TestRenderDefaultsToJSON(t *testing.T) {
	out, err := Render(sampleReport(), "")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}

func TestRenderMarkdown(t *testing.T) {
	out, err := Render(sampleReport(), "markdown")
	require.NoError(t, err)

	assert.Contains(t, out, "# SEO Audit: example.com")
	assert.Contains(t, out, "Pages audited: 2")
	assert.Contains(t, out, "**Missing Title** (Content, high)")
	assert.Contains(t, out, "### https://example.com/a")
	assert.Contains(t, out, "Generation failed: backend exploded")
	assert.Contains(t, out, "1. **Better Beta**")
	assert.Contains(t, out, "Rationale: clarity")
}

func TestRenderUnsupportedFormat(t *testing.T) {
	_, err := Render(sampleReport(), "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report format")
}
