package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"lexcite-backend/models"
	"lexcite-backend/repository"

	"github.com/google/uuid"
)

// fakeCorpus is an in-memory CorpusStore
type fakeCorpus struct {
	cases           map[string]*models.Case
	fullTextResults []*models.SearchResult
	semanticResults []*models.SearchResult
	fullTextErr     error
	semanticErr     error
	embeddings      map[string][]float64
	refreshed       map[string]int
}

func newFakeCorpus(cases ...*models.Case) *fakeCorpus {
	f := &fakeCorpus{
		cases:      make(map[string]*models.Case),
		embeddings: make(map[string][]float64),
		refreshed:  make(map[string]int),
	}
	for _, cs := range cases {
		f.cases[cs.ID] = cs
	}
	return f
}

func (f *fakeCorpus) Upsert(ctx context.Context, cs *models.Case) error {
	f.cases[cs.ID] = cs
	return nil
}

func (f *fakeCorpus) GetByID(ctx context.Context, id string) (*models.Case, error) {
	cs, ok := f.cases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cs, nil
}

func (f *fakeCorpus) GetContentHash(ctx context.Context, id string) (string, error) {
	cs, ok := f.cases[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	return cs.ContentHash, nil
}

func (f *fakeCorpus) SearchByTitle(ctx context.Context, fragment string, limit int) ([]*models.Case, error) {
	var out []*models.Case
	for _, cs := range f.cases {
		if strings.Contains(strings.ToLower(cs.Title), strings.ToLower(fragment)) {
			out = append(out, cs)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CitationCount != out[j].CitationCount {
			return out[i].CitationCount > out[j].CitationCount
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCorpus) SearchByReporterCite(ctx context.Context, tokens []string, limit int) ([]*models.Case, error) {
	var out []*models.Case
	for _, cs := range f.cases {
		matches := true
		for _, tok := range tokens {
			if !strings.Contains(strings.ToLower(cs.ReporterCite), strings.ToLower(tok)) {
				matches = false
				break
			}
		}
		if matches && cs.ReporterCite != "" {
			out = append(out, cs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCorpus) FullTextSearch(ctx context.Context, query string, limit int) ([]*models.SearchResult, error) {
	if f.fullTextErr != nil {
		return nil, f.fullTextErr
	}
	return f.fullTextResults, nil
}

func (f *fakeCorpus) SemanticSearch(ctx context.Context, embedding []float64, minSimilarity float64, limit int) ([]*models.SearchResult, error) {
	if f.semanticErr != nil {
		return nil, f.semanticErr
	}
	return f.semanticResults, nil
}

func (f *fakeCorpus) UpdateEmbedding(ctx context.Context, id string, embedding []float64) error {
	if _, ok := f.cases[id]; !ok {
		return repository.ErrNotFound
	}
	f.embeddings[id] = embedding
	return nil
}

func (f *fakeCorpus) ListWithoutEmbeddings(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	for id, cs := range f.cases {
		if len(cs.Embedding) == 0 && f.embeddings[id] == nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeCorpus) RefreshCitationCount(ctx context.Context, id string) error {
	f.refreshed[id]++
	return nil
}

func (f *fakeCorpus) UpsertCourt(ctx context.Context, court *models.Court) error {
	court.ID = 1
	return nil
}

// fakeEdges is an in-memory EdgeStore applying the same
// severity-precedence merge as the database upsert: the signal only
// escalates, the context span always tracks the latest observation
type fakeEdges struct {
	edges []models.CitationEdge
}

func (f *fakeEdges) UpsertEdge(ctx context.Context, edge *models.CitationEdge) error {
	if edge.SourceCaseID == edge.TargetCaseID {
		return repository.ErrSelfCitation
	}
	if edge.Signal == "" {
		edge.Signal = models.SignalCited
	}
	edge.Weight = float64(edge.Signal.Precedence())

	for i := range f.edges {
		e := &f.edges[i]
		if e.SourceCaseID == edge.SourceCaseID && e.TargetCaseID == edge.TargetCaseID {
			if edge.Weight > e.Weight {
				e.Signal = edge.Signal
				e.Weight = edge.Weight
			}
			e.ContextSpan = edge.ContextSpan
			*edge = *e
			return nil
		}
	}

	edge.ID = len(f.edges) + 1
	f.edges = append(f.edges, *edge)
	return nil
}

func (f *fakeEdges) EdgesCiting(ctx context.Context, caseID string, limit int) ([]models.CitationEdge, error) {
	var out []models.CitationEdge
	for _, e := range f.edges {
		if e.TargetCaseID == caseID {
			out = append(out, e)
		}
	}
	sortEdges(out, func(e models.CitationEdge) string { return e.SourceCaseID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeEdges) EdgesCitedBy(ctx context.Context, caseID string, limit int) ([]models.CitationEdge, error) {
	var out []models.CitationEdge
	for _, e := range f.edges {
		if e.SourceCaseID == caseID {
			out = append(out, e)
		}
	}
	sortEdges(out, func(e models.CitationEdge) string { return e.TargetCaseID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeEdges) CountCiting(ctx context.Context, caseID string) (int, error) {
	count := 0
	for _, e := range f.edges {
		if e.TargetCaseID == caseID {
			count++
		}
	}
	return count, nil
}

// sortEdges orders edges the way the edge queries do: joined case's
// decision date descending with unknown dates last, then its case ID
func sortEdges(edges []models.CitationEdge, joinedID func(models.CitationEdge) string) {
	sort.SliceStable(edges, func(i, j int) bool {
		di, dj := edges[i].DecisionDate, edges[j].DecisionDate
		switch {
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.After(*dj)
		}
		return joinedID(edges[i]) < joinedID(edges[j])
	})
}

// fakeJobs is an in-memory JobStore
type fakeJobs struct {
	jobs map[uuid.UUID]*models.IngestJob
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[uuid.UUID]*models.IngestJob)}
}

func (f *fakeJobs) Create(ctx context.Context, job *models.IngestJob) error {
	cp := *job
	cp.Steps = append(models.IngestSteps(nil), job.Steps...)
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobs) GetByID(ctx context.Context, id uuid.UUID) (*models.IngestJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *job
	cp.Steps = append(models.IngestSteps(nil), job.Steps...)
	return &cp, nil
}

func (f *fakeJobs) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IngestJobStatus) error {
	job, ok := f.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	job.Status = status
	return nil
}

func (f *fakeJobs) UpdateProgress(ctx context.Context, id uuid.UUID, currentStep string, steps models.IngestSteps, casesProcessed, edgesUpserted int) error {
	job, ok := f.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	job.CurrentStep = &currentStep
	job.Steps = append(models.IngestSteps(nil), steps...)
	job.CasesProcessed = casesProcessed
	job.EdgesUpserted = edgesUpserted
	return nil
}

func (f *fakeJobs) Complete(ctx context.Context, id uuid.UUID) error {
	job, ok := f.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	job.Status = models.JobStatusCompleted
	now := time.Now()
	job.CompletedAt = &now
	return nil
}

func (f *fakeJobs) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	job, ok := f.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	job.Status = models.JobStatusFailed
	job.ErrorMessage = &errorMessage
	return nil
}

// fakeEmbedder returns a fixed vector or a fixed error
type fakeEmbedder struct {
	vector []float64
	err    error
	calls  int
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) EmbedDocument(ctx context.Context, text string) ([]float64, error) {
	return f.EmbedQuery(ctx, text)
}

// fakeCache is an in-memory ResultCache
type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = raw
	return nil
}

// fakeIndex is a LexicalIndex returning canned results
type fakeIndex struct {
	results []*models.SearchResult
	err     error
	indexed []string
}

func (f *fakeIndex) IndexCase(ctx context.Context, cs *models.Case) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, cs.ID)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, query string, limit int) ([]*models.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

var errBackendDown = errors.New("backend down")

func lexResult(id string, score float64) *models.SearchResult {
	return &models.SearchResult{
		Case:         models.Case{ID: id, Title: "Case " + id},
		Score:        score,
		LexicalScore: &score,
	}
}

func semResult(id string, score float64) *models.SearchResult {
	return &models.SearchResult{
		Case:          models.Case{ID: id, Title: "Case " + id},
		Score:         score,
		SemanticScore: &score,
	}
}
