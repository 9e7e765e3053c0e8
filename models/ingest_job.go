package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IngestJobStatus represents the status of an ingest job
type IngestJobStatus string

const (
	JobStatusPending    IngestJobStatus = "pending"
	JobStatusInProgress IngestJobStatus = "in_progress"
	JobStatusCompleted  IngestJobStatus = "completed"
	JobStatusFailed     IngestJobStatus = "failed"
)

// IngestStep represents a step in the ingest pipeline
type IngestStep struct {
	Name        string `json:"name"`
	Status      string `json:"status"` // "pending", "in_progress", "completed", "skipped"
	Description string `json:"description,omitempty"`
}

// IngestSteps represents a list of ingest steps
type IngestSteps []IngestStep

// Value implements driver.Valuer for JSONB
func (s IngestSteps) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB
func (s *IngestSteps) Scan(value interface{}) error {
	if value == nil {
		*s = make(IngestSteps, 0)
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
		// If we can't convert, return empty slice
		*s = make(IngestSteps, 0)
		return nil
	}

	// Handle empty bytes as empty slice
	if len(bytes) == 0 {
		*s = make(IngestSteps, 0)
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// IngestJob tracks a corpus ingest run: one opinion or one batch
type IngestJob struct {
	ID             uuid.UUID       `json:"id"`
	CaseID         *string         `json:"case_id,omitempty"`
	Status         IngestJobStatus `json:"status"`
	CurrentStep    *string         `json:"current_step,omitempty"`
	Steps          IngestSteps     `json:"steps"`
	CasesProcessed int             `json:"cases_processed"`
	EdgesUpserted  int             `json:"edges_upserted"`
	ErrorMessage   *string         `json:"error_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}
