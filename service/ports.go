package service

import (
	"context"
	"time"

	"lexcite-backend/models"

	"github.com/google/uuid"
)

// CorpusStore is the persistence surface for corpus cases. Implemented
// by repository.CaseRepository; tests substitute in-memory fakes.
type CorpusStore interface {
	Upsert(ctx context.Context, cs *models.Case) error
	GetByID(ctx context.Context, id string) (*models.Case, error)
	GetContentHash(ctx context.Context, id string) (string, error)
	SearchByTitle(ctx context.Context, fragment string, limit int) ([]*models.Case, error)
	SearchByReporterCite(ctx context.Context, tokens []string, limit int) ([]*models.Case, error)
	FullTextSearch(ctx context.Context, query string, limit int) ([]*models.SearchResult, error)
	SemanticSearch(ctx context.Context, embedding []float64, minSimilarity float64, limit int) ([]*models.SearchResult, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float64) error
	ListWithoutEmbeddings(ctx context.Context, limit int) ([]string, error)
	RefreshCitationCount(ctx context.Context, id string) error
	UpsertCourt(ctx context.Context, court *models.Court) error
}

// EdgeStore is the persistence surface for the citation graph.
// Implemented by repository.CitationRepository.
type EdgeStore interface {
	UpsertEdge(ctx context.Context, edge *models.CitationEdge) error
	EdgesCiting(ctx context.Context, caseID string, limit int) ([]models.CitationEdge, error)
	EdgesCitedBy(ctx context.Context, caseID string, limit int) ([]models.CitationEdge, error)
	CountCiting(ctx context.Context, caseID string) (int, error)
}

// Embedder turns text into a fixed-dimension vector. Treated as a soft
// dependency: callers degrade rather than fail when it errors.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
	EmbedDocument(ctx context.Context, text string) ([]float64, error)
}

// LexicalIndex is an inverted-index search backend (OpenSearch in
// production). Optional: search falls back to Postgres full-text when
// no index is configured.
type LexicalIndex interface {
	IndexCase(ctx context.Context, cs *models.Case) error
	Search(ctx context.Context, query string, limit int) ([]*models.SearchResult, error)
}

// JobStore persists ingest job progress. Implemented by
// repository.IngestJobRepository.
type JobStore interface {
	Create(ctx context.Context, job *models.IngestJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.IngestJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.IngestJobStatus) error
	UpdateProgress(ctx context.Context, id uuid.UUID, currentStep string, steps models.IngestSteps, casesProcessed, edgesUpserted int) error
	Complete(ctx context.Context, id uuid.UUID) error
	Fail(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// ResultCache is a transparent read-through cache for search responses
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// SummaryStore persists generated case summaries. Implemented by
// repository.SummaryRepository.
type SummaryStore interface {
	GetByCaseID(ctx context.Context, caseID string) (*models.CaseSummary, error)
	Create(ctx context.Context, summary *models.CaseSummary) error
}
