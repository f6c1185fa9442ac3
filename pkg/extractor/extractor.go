package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"github.com/amosWeiskopf/seosmith/internal/models"
	"github.com/amosWeiskopf/seosmith/pkg/utils"
)

// ExtractPage parses an HTML document and builds the PageRecord for it:
// document title, meta-description content and the main content text used
// later for AI analysis.
func ExtractPage(htmlContent, pageURL string) (*models.PageRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	title := utils.CleanText(doc.Find("title").First().Text())
	description, _ := doc.Find(`meta[name="description"]`).First().Attr("content")

	content := extractContent(htmlContent)

	return &models.PageRecord{
		URL:         pageURL,
		Title:       title,
		Description: utils.CleanText(description),
		Content:     content,
	}, nil
}

// extractContent pulls the main content text with trafilatura, falling back
// to a plain text-node walk when extraction finds nothing.
func extractContent(htmlContent string) string {
	result, err := trafilatura.Extract(strings.NewReader(htmlContent), trafilatura.Options{})
	if err == nil && result != nil && result.ContentText != "" {
		return utils.CleanText(result.ContentText)
	}
	return fallbackText(htmlContent)
}

func fallbackText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return utils.CleanText(b.String())
}
