package models

import "time"

// CaseSummary is a cached AI-generated summary of a corpus case
type CaseSummary struct {
	ID           int       `json:"id"`
	CaseID       string    `json:"case_id"`
	Summary      string    `json:"summary"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	CreatedAt    time.Time `json:"created_at"`
}
