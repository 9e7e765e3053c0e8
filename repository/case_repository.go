package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lexcite-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

const caseColumns = `
	c.id, c.court_id, COALESCE(co.name, ''), c.title, c.decision_date,
	c.reporter_cite, c.content, c.content_hash, c.citation_count,
	c.metadata, c.created_at, c.updated_at`

// CaseRepository handles database operations for corpus cases
type CaseRepository struct {
	db *pgxpool.Pool
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *pgxpool.Pool) *CaseRepository {
	return &CaseRepository{db: db}
}

// formatVector formats an embedding vector as a string for pgx
func formatVector(embedding []float64) string {
	if len(embedding) == 0 {
		return "[]"
	}
	var parts []string
	for _, v := range embedding {
		parts = append(parts, fmt.Sprintf("%.6f", v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func scanCase(row pgx.Row) (*models.Case, error) {
	cs := &models.Case{}
	err := row.Scan(
		&cs.ID,
		&cs.CourtID,
		&cs.CourtName,
		&cs.Title,
		&cs.DecisionDate,
		&cs.ReporterCite,
		&cs.Content,
		&cs.ContentHash,
		&cs.CitationCount,
		&cs.Metadata,
		&cs.CreatedAt,
		&cs.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return cs, nil
}

func collectCases(rows pgx.Rows) ([]*models.Case, error) {
	defer rows.Close()

	var cases []*models.Case
	for rows.Next() {
		cs, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, cs)
	}
	return cases, rows.Err()
}

// Upsert inserts or updates a case keyed by its upstream identifier.
// Re-importing the same opinion updates content in place and never
// creates a second row, so citation edges keep pointing at the same key.
func (r *CaseRepository) Upsert(ctx context.Context, cs *models.Case) error {
	query := `
		INSERT INTO cases (
			id, court_id, title, decision_date, reporter_cite,
			content, content_hash, citation_count, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			court_id = EXCLUDED.court_id,
			title = EXCLUDED.title,
			decision_date = EXCLUDED.decision_date,
			reporter_cite = EXCLUDED.reporter_cite,
			content = EXCLUDED.content,
			content_hash = EXCLUDED.content_hash,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		cs.ID,
		cs.CourtID,
		cs.Title,
		cs.DecisionDate,
		cs.ReporterCite,
		cs.Content,
		cs.ContentHash,
		cs.CitationCount,
		cs.Metadata,
	).Scan(&cs.CreatedAt, &cs.UpdatedAt)
}

// GetByID retrieves a case by its identifier
func (r *CaseRepository) GetByID(ctx context.Context, id string) (*models.Case, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM cases c
		LEFT JOIN courts co ON co.id = c.court_id
		WHERE c.id = $1`, caseColumns)

	cs, err := scanCase(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// GetContentHash returns the stored content hash for a case, or
// ErrNotFound if the case is absent. Used to skip re-embedding on
// unchanged re-imports.
func (r *CaseRepository) GetContentHash(ctx context.Context, id string) (string, error) {
	var hash string
	err := r.db.QueryRow(ctx, `SELECT content_hash FROM cases WHERE id = $1`, id).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return hash, err
}

// SearchByTitle finds cases whose title contains the given fragment,
// best-cited first
func (r *CaseRepository) SearchByTitle(ctx context.Context, fragment string, limit int) ([]*models.Case, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM cases c
		LEFT JOIN courts co ON co.id = c.court_id
		WHERE c.title ILIKE '%%' || $1 || '%%'
		ORDER BY c.citation_count DESC, c.created_at ASC, c.id ASC
		LIMIT $2`, caseColumns)

	rows, err := r.db.Query(ctx, query, fragment, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search cases by title: %w", err)
	}
	return collectCases(rows)
}

// SearchByReporterCite finds cases whose reporter citation contains all
// of the given tokens (volume, reporter abbreviation, page)
func (r *CaseRepository) SearchByReporterCite(ctx context.Context, tokens []string, limit int) ([]*models.Case, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	conds := make([]string, 0, len(tokens))
	args := make([]interface{}, 0, len(tokens)+1)
	for i, tok := range tokens {
		conds = append(conds, fmt.Sprintf("c.reporter_cite ILIKE '%%' || $%d || '%%'", i+1))
		args = append(args, tok)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM cases c
		LEFT JOIN courts co ON co.id = c.court_id
		WHERE %s
		ORDER BY c.citation_count DESC, c.created_at ASC, c.id ASC
		LIMIT $%d`, caseColumns, strings.Join(conds, " AND "), len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search cases by citation: %w", err)
	}
	return collectCases(rows)
}

// FullTextSearch ranks cases with Postgres ts_rank: title matches are
// weighted 10x over body matches, exact title hits get a flat bonus,
// and heavily cited cases get a logarithmic boost.
func (r *CaseRepository) FullTextSearch(ctx context.Context, queryText string, limit int) ([]*models.SearchResult, error) {
	query := fmt.Sprintf(`
		SELECT %s,
			ts_rank(to_tsvector('english', c.title), plainto_tsquery('english', $1)) * 10 +
			ts_rank(to_tsvector('english', c.content), plainto_tsquery('english', $1)) +
			CASE WHEN c.title ILIKE '%%' || $1 || '%%' THEN 5 ELSE 0 END +
			ln(c.citation_count + 1) * 0.1 AS rank
		FROM cases c
		LEFT JOIN courts co ON co.id = c.court_id
		WHERE to_tsvector('english', c.title || ' ' || c.content) @@ plainto_tsquery('english', $1)
			OR c.title ILIKE '%%' || $1 || '%%'
		ORDER BY rank DESC
		LIMIT $2`, caseColumns)

	rows, err := r.db.Query(ctx, query, queryText, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to run full-text search: %w", err)
	}
	defer rows.Close()

	var results []*models.SearchResult
	for rows.Next() {
		res := &models.SearchResult{}
		var rank float64
		err := rows.Scan(
			&res.Case.ID,
			&res.Case.CourtID,
			&res.Case.CourtName,
			&res.Case.Title,
			&res.Case.DecisionDate,
			&res.Case.ReporterCite,
			&res.Case.Content,
			&res.Case.ContentHash,
			&res.Case.CitationCount,
			&res.Case.Metadata,
			&res.Case.CreatedAt,
			&res.Case.UpdatedAt,
			&rank,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		res.Score = rank
		res.LexicalScore = &rank
		results = append(results, res)
	}
	return results, rows.Err()
}

// SemanticSearch ranks cases by cosine similarity to the query
// embedding, dropping anything below minSimilarity
func (r *CaseRepository) SemanticSearch(ctx context.Context, embedding []float64, minSimilarity float64, limit int) ([]*models.SearchResult, error) {
	if len(embedding) != 768 {
		return nil, fmt.Errorf("embedding must be 768 dimensions, got %d", len(embedding))
	}

	vectorStr := formatVector(embedding)

	query := fmt.Sprintf(`
		SELECT %s,
			1 - (c.embedding <=> $1::vector) AS similarity
		FROM cases c
		LEFT JOIN courts co ON co.id = c.court_id
		WHERE c.embedding IS NOT NULL
			AND 1 - (c.embedding <=> $1::vector) >= $2
		ORDER BY c.embedding <=> $1::vector
		LIMIT $3`, caseColumns)

	rows, err := r.db.Query(ctx, query, vectorStr, minSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to run semantic search: %w", err)
	}
	defer rows.Close()

	var results []*models.SearchResult
	for rows.Next() {
		res := &models.SearchResult{}
		var similarity float64
		err := rows.Scan(
			&res.Case.ID,
			&res.Case.CourtID,
			&res.Case.CourtName,
			&res.Case.Title,
			&res.Case.DecisionDate,
			&res.Case.ReporterCite,
			&res.Case.Content,
			&res.Case.ContentHash,
			&res.Case.CitationCount,
			&res.Case.Metadata,
			&res.Case.CreatedAt,
			&res.Case.UpdatedAt,
			&similarity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan semantic result: %w", err)
		}
		res.Score = similarity
		res.SemanticScore = &similarity
		results = append(results, res)
	}
	return results, rows.Err()
}

// UpdateEmbedding stores the embedding vector for a case
func (r *CaseRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float64) error {
	if len(embedding) != 768 {
		return fmt.Errorf("embedding must be 768 dimensions, got %d", len(embedding))
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE cases SET embedding = $2::vector, updated_at = NOW() WHERE id = $1`,
		id, formatVector(embedding))
	if err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWithoutEmbeddings returns case ids that still need an embedding
func (r *CaseRepository) ListWithoutEmbeddings(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM cases WHERE embedding IS NULL ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RefreshCitationCount recomputes the denormalized incoming-edge counter
// from the citations table
func (r *CaseRepository) RefreshCitationCount(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE cases SET citation_count = (
			SELECT COUNT(*) FROM citations WHERE target_case_id = $1
		) WHERE id = $1`, id)
	return err
}

// UpsertCourt inserts a court by name if absent and returns its id
func (r *CaseRepository) UpsertCourt(ctx context.Context, court *models.Court) error {
	query := `
		INSERT INTO courts (name, jurisdiction, level)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			jurisdiction = EXCLUDED.jurisdiction,
			level = EXCLUDED.level
		RETURNING id, created_at`

	return r.db.QueryRow(ctx, query, court.Name, court.Jurisdiction, court.Level).
		Scan(&court.ID, &court.CreatedAt)
}
