package models

// PageRecord is a single page in the crawl inventory. Immutable once fetched;
// URL is its identity and is unique within one crawl run.
type PageRecord struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// PageSummary is the cross-page view of a record used when assembling
// topic-cluster context for analysis jobs.
type PageSummary struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Intent string `json:"intent"`
}
