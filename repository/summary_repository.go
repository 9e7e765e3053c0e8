package repository

import (
	"context"
	"errors"

	"lexcite-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SummaryRepository handles database operations for cached AI summaries
type SummaryRepository struct {
	db *pgxpool.Pool
}

// NewSummaryRepository creates a new summary repository
func NewSummaryRepository(db *pgxpool.Pool) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// GetByCaseID retrieves the cached summary for a case, newest first
func (r *SummaryRepository) GetByCaseID(ctx context.Context, caseID string) (*models.CaseSummary, error) {
	summary := &models.CaseSummary{}
	query := `
		SELECT id, case_id, summary, model, input_tokens, output_tokens, cost_usd, created_at
		FROM ai_summaries
		WHERE case_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.QueryRow(ctx, query, caseID).Scan(
		&summary.ID,
		&summary.CaseID,
		&summary.Summary,
		&summary.Model,
		&summary.InputTokens,
		&summary.OutputTokens,
		&summary.CostUSD,
		&summary.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// Create stores a generated summary with its token and cost metadata
func (r *SummaryRepository) Create(ctx context.Context, summary *models.CaseSummary) error {
	query := `
		INSERT INTO ai_summaries (
			case_id, summary, model, input_tokens, output_tokens, cost_usd
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRow(
		ctx, query,
		summary.CaseID,
		summary.Summary,
		summary.Model,
		summary.InputTokens,
		summary.OutputTokens,
		summary.CostUSD,
	).Scan(&summary.ID, &summary.CreatedAt)

	return err
}
