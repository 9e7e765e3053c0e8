package models

import "time"

// TreatmentSignal classifies how a citing case treats the cited case
type TreatmentSignal string

const (
	SignalOverruled      TreatmentSignal = "overruled"
	SignalCriticized     TreatmentSignal = "criticized"
	SignalQuestioned     TreatmentSignal = "questioned"
	SignalFollowed       TreatmentSignal = "followed"
	SignalAffirmed       TreatmentSignal = "affirmed"
	SignalCitedFavorably TreatmentSignal = "cited_favorably"
	SignalCited          TreatmentSignal = "cited"
)

// Negative reports whether the signal belongs to the negative treatment group
func (s TreatmentSignal) Negative() bool {
	switch s {
	case SignalOverruled, SignalCriticized, SignalQuestioned:
		return true
	}
	return false
}

// Positive reports whether the signal belongs to the positive treatment group
func (s TreatmentSignal) Positive() bool {
	switch s {
	case SignalFollowed, SignalAffirmed, SignalCitedFavorably:
		return true
	}
	return false
}

// Precedence ranks signals by severity for edge merging. An upsert for an
// existing ordered pair keeps the higher-precedence signal, so a later
// neutral observation can never downgrade an overruled edge.
func (s TreatmentSignal) Precedence() int {
	switch s {
	case SignalOverruled:
		return 6
	case SignalCriticized:
		return 5
	case SignalQuestioned:
		return 4
	case SignalFollowed:
		return 3
	case SignalAffirmed:
		return 2
	case SignalCitedFavorably:
		return 1
	default:
		return 0
	}
}

// CitatorBadge is the aggregate good-law status derived from incoming edges
type CitatorBadge string

const (
	BadgeGreen  CitatorBadge = "green"
	BadgeYellow CitatorBadge = "yellow"
	BadgeRed    CitatorBadge = "red"
)

// CitationMention is a citation-like occurrence in a source text,
// produced by the extractor and not persisted on its own
type CitationMention struct {
	Text       string  `json:"text"`
	Offset     int     `json:"offset"`
	Volume     *int    `json:"volume,omitempty"`
	Reporter   string  `json:"reporter,omitempty"`
	Page       *int    `json:"page,omitempty"`
	Year       *int    `json:"year,omitempty"`
	CaseName   string  `json:"case_name,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ResolvedCitation pairs a mention with a matched case or a diagnostic
// explaining why no match was made
type ResolvedCitation struct {
	Mention    CitationMention `json:"citation"`
	CaseID     string          `json:"case_id,omitempty"`
	CaseTitle  string          `json:"case_title,omitempty"`
	Strategy   string          `json:"strategy,omitempty"`
	Confidence float64         `json:"confidence,omitempty"`
	Resolved   bool            `json:"resolved"`
	Diagnostic string          `json:"diagnostic,omitempty"`
}

// CitationEdge is a persisted directed relationship between two corpus
// cases. At most one edge exists per ordered (source, target) pair.
type CitationEdge struct {
	ID           int             `json:"id"`
	SourceCaseID string          `json:"source_case_id"`
	TargetCaseID string          `json:"target_case_id"`
	Signal       TreatmentSignal `json:"signal"`
	Weight       float64         `json:"weight"`
	ContextSpan  string          `json:"context_span,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	// Populated when edges are fetched joined with the opposite case
	CaseTitle    string     `json:"case_title,omitempty"`
	CourtName    string     `json:"court_name,omitempty"`
	DecisionDate *time.Time `json:"decision_date,omitempty"`
}

// CitatorResult is the badge plus the bounded treatment lists exposed for
// presentation alongside it
type CitatorResult struct {
	CaseID             string         `json:"case_id"`
	Badge              CitatorBadge   `json:"badge"`
	TotalCitingCases   int            `json:"total_citing_cases"`
	CitingCases        []CitationEdge `json:"citing_cases"`
	NegativeTreatments []CitationEdge `json:"negative_treatments"`
	PositiveTreatments []CitationEdge `json:"positive_treatments"`
}
