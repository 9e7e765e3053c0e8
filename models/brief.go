package models

import (
	"time"

	"github.com/google/uuid"
)

// ValidatedCitation is a resolved citation annotated with the cited
// case's current treatment status
type ValidatedCitation struct {
	ResolvedCitation
	Badge          CitatorBadge `json:"badge,omitempty"`
	NegativeSignal string       `json:"negative_signal,omitempty"`
}

// ProblematicCitation is a brief citation flagged for attention, either
// unresolved or resolved to a case in negative standing
type ProblematicCitation struct {
	Citation string `json:"citation"`
	CaseID   string `json:"case_id,omitempty"`
	Issue    string `json:"issue"`
	Severity string `json:"severity"` // "warning" or "error"
}

// KeyArgument is a sentence the analyzer identified as an argumentative
// assertion in the brief
type KeyArgument struct {
	Text   string `json:"text"`
	Offset int    `json:"offset"`
}

// SuggestedCase is a foundational authority the brief does not cite
type SuggestedCase struct {
	CaseID    string `json:"case_id"`
	Title     string `json:"title"`
	Citation  string `json:"citation,omitempty"`
	Relevance string `json:"relevance"`
}

// BriefAnalysis is the full result of checking a brief: every citation
// validated, problems aggregated, arguments and missing authorities
type BriefAnalysis struct {
	ID                   uuid.UUID             `json:"id"`
	DocumentID           *uuid.UUID            `json:"document_id,omitempty"`
	LegalArea            string                `json:"legal_area,omitempty"`
	Citations            []ValidatedCitation   `json:"citations"`
	ProblematicCitations []ProblematicCitation `json:"problematic_citations"`
	KeyArguments         []KeyArgument         `json:"key_arguments"`
	SuggestedCases       []SuggestedCase       `json:"suggested_cases"`
	TotalCitations       int                   `json:"total_citations"`
	ResolvedCitations    int                   `json:"resolved_citations"`
	CreatedAt            time.Time             `json:"created_at"`
}
