package models

// SearchMode selects which retrieval paths contribute to a query
type SearchMode string

const (
	SearchModeHybrid   SearchMode = "hybrid"
	SearchModeLexical  SearchMode = "lexical"
	SearchModeSemantic SearchMode = "semantic"
)

// SearchQuery is the request body for corpus search
type SearchQuery struct {
	Query        string     `json:"query" binding:"required"`
	Mode         SearchMode `json:"mode,omitempty"`
	Limit        int        `json:"limit,omitempty"`
	Jurisdiction string     `json:"jurisdiction,omitempty"`
	CourtID      *int       `json:"court_id,omitempty"`
	DateFrom     string     `json:"date_from,omitempty"`
	DateTo       string     `json:"date_to,omitempty"`
}

// SearchResult is one ranked case with provenance: which sub-searches
// surfaced it and the score each assigned
type SearchResult struct {
	Case          Case         `json:"case"`
	Score         float64      `json:"score"`
	Sources       []string     `json:"sources"`
	LexicalScore  *float64     `json:"lexical_score,omitempty"`
	SemanticScore *float64     `json:"semantic_score,omitempty"`
	Snippet       string       `json:"snippet,omitempty"`
	Badge         CitatorBadge `json:"badge,omitempty"`
}

// SearchResponse wraps the fused result list with query echo and the
// modes that actually ran (semantic may drop out under degradation)
type SearchResponse struct {
	Query      string         `json:"query"`
	Mode       SearchMode     `json:"mode"`
	Degraded   bool           `json:"degraded,omitempty"`
	Total      int            `json:"total"`
	Results    []SearchResult `json:"results"`
	TookMillis int64          `json:"took_ms"`
	Cached     bool           `json:"cached,omitempty"`
}
