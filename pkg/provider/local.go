package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/amosWeiskopf/seosmith/internal/models"
	"github.com/amosWeiskopf/seosmith/pkg/utils"
)

// Local is an offline heuristic Capability. It needs no credentials and is
// the default backend when no vendor is configured; it also serves as a
// reference implementation for the Capability contract.
type Local struct {
	name string
}

// NewLocal creates a Local capability with the given worker name
func NewLocal(name string) *Local {
	if name == "" {
		name = "local"
	}
	return &Local{name: name}
}

func (l *Local) Name() string { return l.name }

// Analyze derives issues and target keywords from the page itself
func (l *Local) Analyze(_ context.Context, req AnalyzeRequest) (*Analysis, error) {
	analysis := &Analysis{
		TargetKeywords: utils.ExtractKeywords(req.Page.Content, 5),
	}

	titleLen := len([]rune(req.Page.Title))
	descLen := len([]rune(req.Page.Description))
	switch {
	case req.Page.Title == "":
		analysis.Issues = append(analysis.Issues, "missing title")
	case titleLen > 60:
		analysis.Issues = append(analysis.Issues, fmt.Sprintf("title is %d characters, above the 60 character ceiling", titleLen))
	}
	switch {
	case req.Page.Description == "":
		analysis.Issues = append(analysis.Issues, "missing meta description")
	case descLen > 160:
		analysis.Issues = append(analysis.Issues, fmt.Sprintf("description is %d characters, above the 160 character ceiling", descLen))
	case descLen < 70:
		analysis.Issues = append(analysis.Issues, "meta description is short; search snippets may be padded with page text")
	}
	if len(strings.Fields(req.Page.Content)) < 100 {
		analysis.Issues = append(analysis.Issues, "thin content, under 100 words")
	}

	if len(analysis.Issues) == 0 {
		analysis.Summary = "page metadata within recommended limits"
	} else {
		analysis.Summary = strings.Join(analysis.Issues, "; ")
	}
	return analysis, nil
}

// Generate builds deterministic candidates from page text and keywords
func (l *Local) Generate(_ context.Context, req GenerateRequest) ([]models.Suggestion, error) {
	count := req.Count
	if count <= 0 {
		count = 1
	}

	keywords := utils.ExtractKeywords(req.Page.Content, 3)
	if req.Analysis != nil && len(req.Analysis.TargetKeywords) > 0 {
		keywords = req.Analysis.TargetKeywords
	}

	baseTitle := req.Page.Title
	if baseTitle == "" && len(keywords) > 0 {
		baseTitle = capitalize(strings.Join(keywords[:min(2, len(keywords))], " "))
	}
	baseDesc := req.Page.Description
	if baseDesc == "" {
		baseDesc = req.Page.Content
	}

	suggestions := make([]models.Suggestion, 0, count)
	for i := 0; i < count; i++ {
		title := utils.TruncateRunes(baseTitle, 60)
		desc := utils.TruncateRunes(baseDesc, 160)
		rationale := "heuristic rewrite from page content"
		if i > 0 && len(keywords) > 0 {
			kw := keywords[(i-1)%len(keywords)]
			title = utils.TruncateRunes(capitalize(kw)+" | "+baseTitle, 60)
			rationale = fmt.Sprintf("heuristic rewrite emphasizing keyword %q", kw)
		}
		suggestions = append(suggestions, models.Suggestion{
			Title:       title,
			Description: desc,
			Rationale:   rationale,
			Keywords:    keywords,
		})
	}
	return suggestions, nil
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
