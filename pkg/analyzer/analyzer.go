package analyzer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/amosWeiskopf/seosmith/internal/models"
	"github.com/amosWeiskopf/seosmith/pkg/reflexion"
)

// Analyze runs the local audit pass over a page inventory, flagging the
// metadata problems the AI rewrite jobs are expected to fix: missing or
// overlong titles and descriptions, duplicate titles, thin content.
func Analyze(pages []models.PageRecord) []models.Finding {
	var findings []models.Finding

	titleUsage := make(map[string][]string)
	for _, page := range pages {
		if page.Title != "" {
			titleUsage[page.Title] = append(titleUsage[page.Title], page.URL)
		}

		switch n := utf8.RuneCountInString(page.Title); {
		case page.Title == "":
			findings = append(findings, models.Finding{
				Category:    "Content",
				Type:        "Missing Title",
				Description: "page has no <title> element",
				Severity:    "high",
				URL:         page.URL,
			})
		case n > reflexion.MaxTitleRunes:
			findings = append(findings, models.Finding{
				Category:    "Content",
				Type:        "Overlong Title",
				Description: fmt.Sprintf("title is %d characters, max %d", n, reflexion.MaxTitleRunes),
				Severity:    "medium",
				URL:         page.URL,
			})
		}

		switch n := utf8.RuneCountInString(page.Description); {
		case page.Description == "":
			findings = append(findings, models.Finding{
				Category:    "Content",
				Type:        "Missing Meta Description",
				Description: "page has no meta description",
				Severity:    "medium",
				URL:         page.URL,
			})
		case n > reflexion.MaxDescriptionRunes:
			findings = append(findings, models.Finding{
				Category:    "Content",
				Type:        "Overlong Meta Description",
				Description: fmt.Sprintf("description is %d characters, max %d", n, reflexion.MaxDescriptionRunes),
				Severity:    "medium",
				URL:         page.URL,
			})
		}

		if len(strings.Fields(page.Content)) < 100 {
			findings = append(findings, models.Finding{
				Category:    "Content",
				Type:        "Thin Content",
				Description: "page body has fewer than 100 words",
				Severity:    "low",
				URL:         page.URL,
			})
		}
	}

	for title, urls := range titleUsage {
		if len(urls) > 1 {
			findings = append(findings, models.Finding{
				Category:    "Technical",
				Type:        "Duplicate Title",
				Description: fmt.Sprintf("title %q used on %d pages", title, len(urls)),
				Severity:    "high",
			})
		}
	}

	return findings
}
