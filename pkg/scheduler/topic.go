package scheduler

import (
	"net/url"
	"strings"

	"github.com/amosWeiskopf/seosmith/internal/models"
	"github.com/amosWeiskopf/seosmith/pkg/utils"
)

// TopicIndex maps a topic label to the pages sharing it. It is built once
// per scheduling run and read-only afterwards, so assembling the topic
// cluster for any job is one lookup instead of a scan over the inventory.
type TopicIndex struct {
	byTopic map[string][]models.PageSummary
	topicOf map[string]string
}

// BuildTopicIndex groups the page inventory by inferred primary topic
func BuildTopicIndex(pages []models.PageRecord) *TopicIndex {
	idx := &TopicIndex{
		byTopic: make(map[string][]models.PageSummary),
		topicOf: make(map[string]string),
	}
	for _, page := range pages {
		topic := inferTopic(page)
		idx.topicOf[page.URL] = topic
		idx.byTopic[topic] = append(idx.byTopic[topic], models.PageSummary{
			URL:    page.URL,
			Title:  page.Title,
			Intent: classifyIntent(page),
		})
	}
	return idx
}

// Siblings returns up to max same-topic pages other than pageURL itself
func (idx *TopicIndex) Siblings(pageURL string, max int) []models.PageSummary {
	topic, ok := idx.topicOf[pageURL]
	if !ok {
		return nil
	}
	cluster := idx.byTopic[topic]
	siblings := make([]models.PageSummary, 0, min(max, len(cluster)))
	for _, s := range cluster {
		if s.URL == pageURL {
			continue
		}
		siblings = append(siblings, s)
		if len(siblings) >= max {
			break
		}
	}
	return siblings
}

// Topic returns the inferred topic label for a URL in the index
func (idx *TopicIndex) Topic(pageURL string) string {
	return idx.topicOf[pageURL]
}

// inferTopic labels a page by its dominant title keyword, falling back to
// the first URL path segment for pages with unusable titles.
func inferTopic(page models.PageRecord) string {
	if kws := utils.ExtractKeywords(page.Title, 1); len(kws) > 0 {
		return kws[0]
	}
	if u, err := url.Parse(page.URL); err == nil {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segments) > 0 && segments[0] != "" {
			return segments[0]
		}
	}
	return "general"
}

var intentMarkers = []struct {
	intent  string
	markers []string
}{
	{"transactional", []string{"buy", "pricing", "price", "shop", "order", "checkout", "plans", "discount"}},
	{"navigational", []string{"contact", "about", "login", "sign-in", "signin", "support", "careers"}},
}

// classifyIntent buckets a page as transactional, navigational or
// informational from URL and title markers.
func classifyIntent(page models.PageRecord) string {
	haystack := strings.ToLower(page.URL + " " + page.Title)
	for _, group := range intentMarkers {
		for _, m := range group.markers {
			if strings.Contains(haystack, m) {
				return group.intent
			}
		}
	}
	return "informational"
}
