package reporter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/amosWeiskopf/seosmith/internal/models"
)

// PageResult is the per-page section of an audit report: either the
// suggestions produced for the page or the terminal error that stopped them.
type PageResult struct {
	URL         string              `json:"url"`
	Title       string              `json:"title"`
	Provider    string              `json:"provider,omitempty"`
	Suggestions []models.Suggestion `json:"suggestions,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// AuditReport aggregates one audit run
type AuditReport struct {
	Domain      string           `json:"domain"`
	GeneratedAt time.Time        `json:"generated_at"`
	TotalPages  int              `json:"total_pages"`
	Findings    []models.Finding `json:"findings,omitempty"`
	Results     []PageResult     `json:"results"`
}

// Render serializes the report in the requested format ("json" or
// "markdown"). Page results are ordered by URL for stable output.
func Render(report *AuditReport, format string) (string, error) {
	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].URL < report.Results[j].URL
	})

	switch strings.ToLower(format) {
	case "", "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case "markdown", "md":
		return renderMarkdown(report), nil
	default:
		return "", fmt.Errorf("unsupported report format: %s", format)
	}
}

func renderMarkdown(report *AuditReport) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "# SEO Audit: %s\n\n", report.Domain)
	fmt.Fprintf(&buf, "Generated: %s\n\n", report.GeneratedAt.Format(time.RFC1123))
	fmt.Fprintf(&buf, "Pages audited: %d\n\n", report.TotalPages)

	if len(report.Findings) > 0 {
		fmt.Fprintf(&buf, "## Findings\n\n")
		for _, f := range report.Findings {
			fmt.Fprintf(&buf, "- **%s** (%s, %s): %s", f.Type, f.Category, f.Severity, f.Description)
			if f.URL != "" {
				fmt.Fprintf(&buf, " (%s)", f.URL)
			}
			fmt.Fprintf(&buf, "\n")
		}
		fmt.Fprintf(&buf, "\n")
	}

	fmt.Fprintf(&buf, "## Suggestions\n\n")
	for _, r := range report.Results {
		fmt.Fprintf(&buf, "### %s\n\n", r.URL)
		if r.Error != "" {
			fmt.Fprintf(&buf, "Generation failed: %s\n\n", r.Error)
			continue
		}
		for i, s := range r.Suggestions {
			fmt.Fprintf(&buf, "%d. **%s**\n", i+1, s.Title)
			fmt.Fprintf(&buf, "   - Description: %s\n", s.Description)
			fmt.Fprintf(&buf, "   - Rationale: %s\n", s.Rationale)
		}
		fmt.Fprintf(&buf, "\n")
	}

	return buf.String()
}
