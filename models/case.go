package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Court represents a court entity
type Court struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Jurisdiction string    `json:"jurisdiction,omitempty"`
	Level        string    `json:"level,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// OpinionAttachment points at an upstream opinion artifact (e.g. a PDF)
type OpinionAttachment struct {
	DownloadURL string `json:"download_url,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
}

// CaseMetadata holds the optional attributes of a case as named fields
// rather than an open map, so invariants stay checkable
type CaseMetadata struct {
	Jurisdiction   string              `json:"jurisdiction,omitempty"`
	AlternateCites []string            `json:"alternate_cites,omitempty"`
	DocketNumber   string              `json:"docket_number,omitempty"`
	SourceURL      string              `json:"source_url,omitempty"`
	Precedential   bool                `json:"precedential,omitempty"`
	Opinions       []OpinionAttachment `json:"opinions,omitempty"`
}

// Value implements driver.Valuer for JSONB
func (m CaseMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB
func (m *CaseMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = CaseMetadata{}
		return nil
	}

	// Handle different types that pgx might return for JSONB
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*m = CaseMetadata{}
		return nil
	}

	if len(bytes) == 0 {
		*m = CaseMetadata{}
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Case represents a corpus entry: a judicial opinion with a stable
// upstream identifier. The identifier is the join key for citation edges
// and must survive re-import unchanged.
type Case struct {
	ID            string       `json:"id"`
	CourtID       *int         `json:"court_id,omitempty"`
	CourtName     string       `json:"court_name,omitempty"`
	Title         string       `json:"title"`
	DecisionDate  *time.Time   `json:"decision_date,omitempty"`
	ReporterCite  string       `json:"reporter_cite,omitempty"`
	Content       string       `json:"content,omitempty"`
	ContentHash   string       `json:"content_hash,omitempty"`
	CitationCount int          `json:"citation_count"`
	Embedding     []float64    `json:"-"`
	Metadata      CaseMetadata `json:"metadata"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
