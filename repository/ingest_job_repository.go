package repository

import (
	"context"
	"time"

	"lexcite-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IngestJobRepository handles database operations for ingest jobs
type IngestJobRepository struct {
	db *pgxpool.Pool
}

// NewIngestJobRepository creates a new ingest job repository
func NewIngestJobRepository(db *pgxpool.Pool) *IngestJobRepository {
	return &IngestJobRepository{db: db}
}

// Create creates a new ingest job
func (r *IngestJobRepository) Create(ctx context.Context, job *models.IngestJob) error {
	query := `
		INSERT INTO ingest_jobs (
			case_id, status, current_step, steps, error_message
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		job.CaseID,
		job.Status,
		job.CurrentStep,
		job.Steps,
		job.ErrorMessage,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)

	return err
}

// GetByID retrieves an ingest job by ID
func (r *IngestJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.IngestJob, error) {
	job := &models.IngestJob{}
	query := `
		SELECT id, case_id, status, current_step, steps,
			cases_processed, edges_upserted, error_message,
			created_at, updated_at, completed_at
		FROM ingest_jobs
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.CaseID,
		&job.Status,
		&job.CurrentStep,
		&job.Steps,
		&job.CasesProcessed,
		&job.EdgesUpserted,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)

	if err != nil {
		return nil, err
	}

	// Ensure Steps is never nil (safeguard in case Scan didn't handle NULL properly)
	if job.Steps == nil {
		job.Steps = make(models.IngestSteps, 0)
	}

	return job, nil
}

// UpdateStatus sets the status of an ingest job
func (r *IngestJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IngestJobStatus) error {
	query := `
		UPDATE ingest_jobs SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status)
	return err
}

// UpdateProgress updates the step state and counters of an ingest job
func (r *IngestJobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, currentStep string, steps models.IngestSteps, casesProcessed, edgesUpserted int) error {
	query := `
		UPDATE ingest_jobs SET
			current_step = $2,
			steps = $3,
			cases_processed = $4,
			edges_upserted = $5,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, currentStep, steps, casesProcessed, edgesUpserted)
	return err
}

// Complete marks an ingest job as completed
func (r *IngestJobRepository) Complete(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	query := `
		UPDATE ingest_jobs SET
			status = $2,
			completed_at = $3,
			updated_at = $3
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.JobStatusCompleted, now)
	return err
}

// Fail marks an ingest job as failed
func (r *IngestJobRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE ingest_jobs SET
			status = $2,
			error_message = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.JobStatusFailed, errorMessage)
	return err
}
