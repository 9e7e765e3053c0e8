package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"lexcite-backend/models"
	"lexcite-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrMissingCaseData is returned when an opinion lacks the fields
// required for ingestion
var ErrMissingCaseData = errors.New("opinion missing required data for ingestion")

// IngestService drives the corpus pipeline: upsert the opinion, embed
// it, index it, and wire its citations into the graph
type IngestService struct {
	corpus    CorpusStore
	edges     EdgeStore
	embedder  Embedder
	lexical   LexicalIndex
	extractor *ExtractService
	resolver  *ResolveService
	treatment *TreatmentService
	jobs      JobStore
	logger    *zap.Logger
}

// IngestServiceOption is a functional option for IngestService
type IngestServiceOption func(*IngestService)

// IngestWithCorpusStore sets the corpus store
func IngestWithCorpusStore(corpus CorpusStore) IngestServiceOption {
	return func(s *IngestService) {
		s.corpus = corpus
	}
}

// IngestWithEdgeStore sets the edge store
func IngestWithEdgeStore(edges EdgeStore) IngestServiceOption {
	return func(s *IngestService) {
		s.edges = edges
	}
}

// IngestWithEmbedder sets the embedder
func IngestWithEmbedder(embedder Embedder) IngestServiceOption {
	return func(s *IngestService) {
		s.embedder = embedder
	}
}

// IngestWithLexicalIndex sets the inverted-index backend
func IngestWithLexicalIndex(index LexicalIndex) IngestServiceOption {
	return func(s *IngestService) {
		s.lexical = index
	}
}

// IngestWithExtractor sets the citation extractor
func IngestWithExtractor(extractor *ExtractService) IngestServiceOption {
	return func(s *IngestService) {
		s.extractor = extractor
	}
}

// IngestWithResolver sets the citation resolver
func IngestWithResolver(resolver *ResolveService) IngestServiceOption {
	return func(s *IngestService) {
		s.resolver = resolver
	}
}

// IngestWithTreatmentService sets the treatment classifier
func IngestWithTreatmentService(treatment *TreatmentService) IngestServiceOption {
	return func(s *IngestService) {
		s.treatment = treatment
	}
}

// IngestWithJobStore sets the ingest job store
func IngestWithJobStore(jobs JobStore) IngestServiceOption {
	return func(s *IngestService) {
		s.jobs = jobs
	}
}

// IngestWithLogger sets the logger
func IngestWithLogger(logger *zap.Logger) IngestServiceOption {
	return func(s *IngestService) {
		s.logger = logger
	}
}

// NewIngestService creates a new ingest service
func NewIngestService(opts ...IngestServiceOption) *IngestService {
	s := &IngestService{
		extractor: NewExtractService(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestCaseRequest represents one opinion to ingest
type IngestCaseRequest struct {
	Case  *models.Case
	Court *models.Court
}

// IngestCaseResult reports what the pipeline did for one opinion
type IngestCaseResult struct {
	CaseID        string
	Embedded      bool
	Skipped       bool
	EdgesUpserted int
}

const (
	stepUpsertCase        = "Upserting Case"
	stepGenerateEmbedding = "Generating Embedding"
	stepIndexCase         = "Indexing Case"
	stepExtractCitations  = "Extracting Citations"
	stepLinkGraph         = "Linking Citation Graph"
)

const (
	stepPending    = "pending"
	stepInProgress = "in_progress"
	stepCompleted  = "completed"
	stepSkipped    = "skipped"
)

var ingestStepNames = []string{
	stepUpsertCase,
	stepGenerateEmbedding,
	stepIndexCase,
	stepExtractCitations,
	stepLinkGraph,
}

// StartJob creates a pending ingest job for tracking a run
func (s *IngestService) StartJob(ctx context.Context, caseID *string) (*models.IngestJob, error) {
	if s.jobs == nil {
		return nil, errors.New("ingest job store not set")
	}

	steps := make(models.IngestSteps, 0, len(ingestStepNames))
	for _, name := range ingestStepNames {
		steps = append(steps, models.IngestStep{Name: name, Status: stepPending})
	}

	job := &models.IngestJob{
		ID:     uuid.New(),
		CaseID: caseID,
		Status: models.JobStatusPending,
		Steps:  steps,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// IngestCase runs the full pipeline for one opinion. Embedding and
// lexical indexing are soft steps: their failure is logged and the
// pipeline continues, so a dead embedder never blocks corpus growth.
func (s *IngestService) IngestCase(ctx context.Context, req IngestCaseRequest) (*IngestCaseResult, error) {
	return s.ingestCase(ctx, nil, req)
}

// IngestCaseForJob runs the same pipeline under an ingest job,
// advancing the job's step list as each phase runs and settling the
// job's final status, so callers can poll progress.
func (s *IngestService) IngestCaseForJob(ctx context.Context, jobID uuid.UUID, req IngestCaseRequest) (*IngestCaseResult, error) {
	if s.jobs == nil {
		return nil, errors.New("ingest job store not set")
	}

	if err := s.jobs.UpdateStatus(ctx, jobID, models.JobStatusInProgress); err != nil {
		return nil, fmt.Errorf("failed to start ingest job: %w", err)
	}

	result, err := s.ingestCase(ctx, &jobID, req)
	if err != nil {
		s.markJobFailed(ctx, jobID, err.Error())
		return nil, err
	}

	if job, jerr := s.jobs.GetByID(ctx, jobID); jerr == nil {
		if uerr := s.jobs.UpdateProgress(ctx, jobID, stepLinkGraph, job.Steps, 1, result.EdgesUpserted); uerr != nil {
			s.logger.Warn("failed to record ingest job progress",
				zap.String("job_id", jobID.String()), zap.Error(uerr))
		}
	}
	if cerr := s.jobs.Complete(ctx, jobID); cerr != nil {
		s.logger.Warn("failed to mark ingest job complete",
			zap.String("job_id", jobID.String()), zap.Error(cerr))
	}
	return result, nil
}

func (s *IngestService) ingestCase(ctx context.Context, jobID *uuid.UUID, req IngestCaseRequest) (*IngestCaseResult, error) {
	if s.corpus == nil {
		return nil, errors.New("corpus store not set")
	}
	cs := req.Case
	if cs == nil || cs.ID == "" || cs.Title == "" {
		return nil, ErrMissingCaseData
	}

	if err := s.updateStepStatus(ctx, jobID, stepUpsertCase, stepInProgress); err != nil {
		return nil, err
	}

	if req.Court != nil && req.Court.Name != "" {
		if err := s.corpus.UpsertCourt(ctx, req.Court); err != nil {
			return nil, fmt.Errorf("failed to upsert court: %w", err)
		}
		cs.CourtID = &req.Court.ID
	}

	hash := contentHash(cs.Content)
	prevHash, err := s.corpus.GetContentHash(ctx, cs.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	unchanged := err == nil && prevHash == hash
	cs.ContentHash = hash

	if err := s.corpus.Upsert(ctx, cs); err != nil {
		return nil, fmt.Errorf("failed to upsert case: %w", err)
	}
	if err := s.updateStepStatus(ctx, jobID, stepUpsertCase, stepCompleted); err != nil {
		return nil, err
	}

	result := &IngestCaseResult{CaseID: cs.ID, Skipped: unchanged}

	if unchanged {
		for _, name := range ingestStepNames[1:] {
			if err := s.updateStepStatus(ctx, jobID, name, stepSkipped); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	if err := s.updateStepStatus(ctx, jobID, stepGenerateEmbedding, stepInProgress); err != nil {
		return nil, err
	}
	result.Embedded = s.embedCase(ctx, cs)
	if err := s.updateStepStatus(ctx, jobID, stepGenerateEmbedding, stepCompleted); err != nil {
		return nil, err
	}

	if err := s.updateStepStatus(ctx, jobID, stepIndexCase, stepInProgress); err != nil {
		return nil, err
	}
	s.indexCase(ctx, cs)
	if err := s.updateStepStatus(ctx, jobID, stepIndexCase, stepCompleted); err != nil {
		return nil, err
	}

	if err := s.updateStepStatus(ctx, jobID, stepExtractCitations, stepInProgress); err != nil {
		return nil, err
	}
	mentions := s.extractor.Extract(cs.Content)
	if err := s.updateStepStatus(ctx, jobID, stepExtractCitations, stepCompleted); err != nil {
		return nil, err
	}

	if err := s.updateStepStatus(ctx, jobID, stepLinkGraph, stepInProgress); err != nil {
		return nil, err
	}
	edges, err := s.linkCitations(ctx, cs, mentions)
	if err != nil {
		return nil, err
	}
	result.EdgesUpserted = edges
	if err := s.updateStepStatus(ctx, jobID, stepLinkGraph, stepCompleted); err != nil {
		return nil, err
	}

	return result, nil
}

// updateStepStatus advances one entry of the job's step checklist. A
// nil jobID means the pipeline runs untracked and this is a no-op.
func (s *IngestService) updateStepStatus(ctx context.Context, jobID *uuid.UUID, stepName, status string) error {
	if jobID == nil || s.jobs == nil {
		return nil
	}

	job, err := s.jobs.GetByID(ctx, *jobID)
	if err != nil {
		return fmt.Errorf("failed to load ingest job: %w", err)
	}

	currentStep := ""
	if job.CurrentStep != nil {
		currentStep = *job.CurrentStep
	}
	for i := range job.Steps {
		if job.Steps[i].Name == stepName {
			job.Steps[i].Status = status
			if status == stepInProgress {
				currentStep = stepName
			}
		}
	}

	return s.jobs.UpdateProgress(ctx, *jobID, currentStep, job.Steps, job.CasesProcessed, job.EdgesUpserted)
}

func (s *IngestService) markJobFailed(ctx context.Context, jobID uuid.UUID, message string) {
	if err := s.jobs.Fail(ctx, jobID, message); err != nil {
		s.logger.Error("failed to mark ingest job failed",
			zap.String("job_id", jobID.String()), zap.Error(err))
	}
}

// embedCase generates and stores the embedding, returning whether it
// succeeded
func (s *IngestService) embedCase(ctx context.Context, cs *models.Case) bool {
	if s.embedder == nil || cs.Content == "" {
		return false
	}

	embedCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	embedding, err := s.embedder.EmbedDocument(embedCtx, embeddingText(cs))
	if err != nil {
		s.logger.Warn("embedding failed, case stored without vector",
			zap.String("case_id", cs.ID), zap.Error(err))
		return false
	}
	if err := s.corpus.UpdateEmbedding(ctx, cs.ID, embedding); err != nil {
		s.logger.Warn("failed to store embedding",
			zap.String("case_id", cs.ID), zap.Error(err))
		return false
	}
	cs.Embedding = embedding
	return true
}

func (s *IngestService) indexCase(ctx context.Context, cs *models.Case) {
	if s.lexical == nil {
		return
	}
	if err := s.lexical.IndexCase(ctx, cs); err != nil {
		s.logger.Warn("lexical indexing failed",
			zap.String("case_id", cs.ID), zap.Error(err))
	}
}

// linkCitations resolves the extracted mentions against the corpus and
// upserts an edge per resolved target
func (s *IngestService) linkCitations(ctx context.Context, cs *models.Case, mentions []models.CitationMention) (int, error) {
	if s.edges == nil || s.resolver == nil || cs.Content == "" {
		return 0, nil
	}

	upserted := 0
	touched := make(map[string]bool)

	for _, m := range mentions {
		span := contextWindow(cs.Content, m.Offset, len(m.Text))

		res, err := s.resolver.Resolve(ctx, m, span)
		if err != nil {
			return upserted, err
		}
		if !res.Resolved || res.CaseID == cs.ID {
			continue
		}

		signal := models.SignalCited
		if s.treatment != nil {
			signal = s.treatment.ClassifySignal(span)
		}

		edge := &models.CitationEdge{
			SourceCaseID: cs.ID,
			TargetCaseID: res.CaseID,
			Signal:       signal,
			ContextSpan:  span,
		}
		if err := s.edges.UpsertEdge(ctx, edge); err != nil {
			if errors.Is(err, repository.ErrSelfCitation) || errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("skipping unlinkable citation edge",
					zap.String("source", cs.ID), zap.String("target", res.CaseID), zap.Error(err))
				continue
			}
			return upserted, err
		}
		upserted++
		touched[res.CaseID] = true
	}

	for target := range touched {
		if err := s.corpus.RefreshCitationCount(ctx, target); err != nil {
			s.logger.Warn("failed to refresh citation count",
				zap.String("case_id", target), zap.Error(err))
		}
	}

	return upserted, nil
}

// BackfillEmbeddings embeds cases that were stored while the embedder
// was unavailable, in batches, and returns how many got a vector. It
// stops when a whole batch fails to embed rather than spin on the same
// cases.
func (s *IngestService) BackfillEmbeddings(ctx context.Context, batchSize int) (int, error) {
	if s.corpus == nil || s.embedder == nil {
		return 0, errors.New("backfill requires a corpus store and an embedder")
	}

	embedded := 0
	for {
		ids, err := s.corpus.ListWithoutEmbeddings(ctx, batchSize)
		if err != nil {
			return embedded, err
		}
		if len(ids) == 0 {
			return embedded, nil
		}

		progressed := false
		for _, id := range ids {
			cs, err := s.corpus.GetByID(ctx, id)
			if err != nil {
				return embedded, err
			}
			if s.embedCase(ctx, cs) {
				embedded++
				progressed = true
			}
		}
		if !progressed {
			return embedded, nil
		}
	}
}

// embeddingText builds the text embedded for a case: title plus a
// bounded slice of the body
func embeddingText(cs *models.Case) string {
	const maxBody = 8000
	body := cs.Content
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return cs.Title + "\n\n" + body
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
