package models

// Suggestion is one AI-generated rewrite proposal for a page's metadata.
// Hard constraints (title and description length ceilings, non-empty
// rationale) are enforced by the reflexion loop before a suggestion reaches
// a caller.
type Suggestion struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Rationale   string   `json:"rationale"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Finding represents an SEO issue discovered during the audit pass.
type Finding struct {
	Category    string `json:"category"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	URL         string `json:"url,omitempty"`
}
