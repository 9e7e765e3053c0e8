package repository

import (
	"context"
	"errors"
	"fmt"

	"lexcite-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSelfCitation is returned when an edge would point a case at itself
var ErrSelfCitation = errors.New("case cannot cite itself")

// CitationRepository handles database operations for citation edges
type CitationRepository struct {
	db *pgxpool.Pool
}

// NewCitationRepository creates a new citation repository
func NewCitationRepository(db *pgxpool.Pool) *CitationRepository {
	return &CitationRepository{db: db}
}

// UpsertEdge records a citation edge. At most one edge exists per
// ordered (source, target) pair; a repeat observation keeps whichever
// signal ranks more severe, while the context excerpt always reflects
// the most recent observation. The merge happens in one conditional
// statement so concurrent writers serialize on the row and never
// regress an overruled edge back to a neutral one.
func (r *CitationRepository) UpsertEdge(ctx context.Context, edge *models.CitationEdge) error {
	if edge.SourceCaseID == edge.TargetCaseID {
		return ErrSelfCitation
	}
	if edge.Signal == "" {
		edge.Signal = models.SignalCited
	}
	edge.Weight = float64(edge.Signal.Precedence())

	query := `
		INSERT INTO citations (source_case_id, target_case_id, signal, weight, context_span)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source_case_id, target_case_id) DO UPDATE SET
			signal = CASE
				WHEN EXCLUDED.weight > citations.weight THEN EXCLUDED.signal
				ELSE citations.signal
			END,
			weight = GREATEST(EXCLUDED.weight, citations.weight),
			context_span = EXCLUDED.context_span,
			updated_at = NOW()
		RETURNING id, signal, weight, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		edge.SourceCaseID,
		edge.TargetCaseID,
		edge.Signal,
		edge.Weight,
		edge.ContextSpan,
	).Scan(&edge.ID, &edge.Signal, &edge.Weight, &edge.CreatedAt, &edge.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation: one endpoint is not in the corpus
			return ErrNotFound
		case "23514": // check_violation: the no-self-loop constraint
			return ErrSelfCitation
		}
	}
	if err != nil {
		return fmt.Errorf("failed to upsert citation edge: %w", err)
	}
	return nil
}

const edgeWithCitingCase = `
	SELECT ct.id, ct.source_case_id, ct.target_case_id, ct.signal, ct.weight,
		COALESCE(ct.context_span, ''), ct.created_at, ct.updated_at,
		c.title, COALESCE(co.name, ''), c.decision_date
	FROM citations ct
	JOIN cases c ON c.id = ct.source_case_id
	LEFT JOIN courts co ON co.id = c.court_id
	WHERE ct.target_case_id = $1
	ORDER BY c.decision_date DESC NULLS LAST, c.id ASC
	LIMIT $2`

const edgeWithCitedCase = `
	SELECT ct.id, ct.source_case_id, ct.target_case_id, ct.signal, ct.weight,
		COALESCE(ct.context_span, ''), ct.created_at, ct.updated_at,
		c.title, COALESCE(co.name, ''), c.decision_date
	FROM citations ct
	JOIN cases c ON c.id = ct.target_case_id
	LEFT JOIN courts co ON co.id = c.court_id
	WHERE ct.source_case_id = $1
	ORDER BY c.decision_date DESC NULLS LAST, c.id ASC
	LIMIT $2`

func (r *CitationRepository) queryEdges(ctx context.Context, query, caseID string, limit int) ([]models.CitationEdge, error) {
	rows, err := r.db.Query(ctx, query, caseID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query citation edges: %w", err)
	}
	defer rows.Close()

	var edges []models.CitationEdge
	for rows.Next() {
		var e models.CitationEdge
		err := rows.Scan(
			&e.ID,
			&e.SourceCaseID,
			&e.TargetCaseID,
			&e.Signal,
			&e.Weight,
			&e.ContextSpan,
			&e.CreatedAt,
			&e.UpdatedAt,
			&e.CaseTitle,
			&e.CourtName,
			&e.DecisionDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan citation edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// EdgesCiting returns edges from cases that cite the given case, newest
// citing decision first
func (r *CitationRepository) EdgesCiting(ctx context.Context, caseID string, limit int) ([]models.CitationEdge, error) {
	return r.queryEdges(ctx, edgeWithCitingCase, caseID, limit)
}

// EdgesCitedBy returns edges for the authorities the given case cites
func (r *CitationRepository) EdgesCitedBy(ctx context.Context, caseID string, limit int) ([]models.CitationEdge, error) {
	return r.queryEdges(ctx, edgeWithCitedCase, caseID, limit)
}

// CountCiting returns the number of incoming edges for a case
func (r *CitationRepository) CountCiting(ctx context.Context, caseID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM citations WHERE target_case_id = $1`, caseID).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return count, err
}
