package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"lexcite-backend/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyQuery is returned when a search request has no query text
	ErrEmptyQuery = errors.New("query must not be empty")
)

// SearchConfig carries the tunables of the retrieval engine
type SearchConfig struct {
	RRFConstant    int
	DefaultLimit   int
	MaxLimit       int
	SubSearchLimit int
	MinSimilarity  float64
	CacheTTL       time.Duration
	EmbedTimeout   time.Duration
}

// DefaultSearchConfig returns the production defaults
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		RRFConstant:    60,
		DefaultLimit:   10,
		MaxLimit:       50,
		SubSearchLimit: 50,
		MinSimilarity:  0.7,
		CacheTTL:       5 * time.Minute,
		EmbedTimeout:   30 * time.Second,
	}
}

// SearchService runs lexical and semantic retrieval concurrently and
// fuses the rankings with reciprocal rank fusion
type SearchService struct {
	corpus   CorpusStore
	embedder Embedder
	lexical  LexicalIndex
	cache    ResultCache
	logger   *zap.Logger
	cfg      SearchConfig
}

// SearchServiceOption is a functional option for SearchService
type SearchServiceOption func(*SearchService)

// SearchWithCorpusStore sets the corpus store
func SearchWithCorpusStore(corpus CorpusStore) SearchServiceOption {
	return func(s *SearchService) {
		s.corpus = corpus
	}
}

// SearchWithEmbedder sets the embedder
func SearchWithEmbedder(embedder Embedder) SearchServiceOption {
	return func(s *SearchService) {
		s.embedder = embedder
	}
}

// SearchWithLexicalIndex sets the inverted-index backend
func SearchWithLexicalIndex(index LexicalIndex) SearchServiceOption {
	return func(s *SearchService) {
		s.lexical = index
	}
}

// SearchWithCache sets the result cache
func SearchWithCache(cache ResultCache) SearchServiceOption {
	return func(s *SearchService) {
		s.cache = cache
	}
}

// SearchWithLogger sets the logger
func SearchWithLogger(logger *zap.Logger) SearchServiceOption {
	return func(s *SearchService) {
		s.logger = logger
	}
}

// SearchWithConfig overrides the default tunables
func SearchWithConfig(cfg SearchConfig) SearchServiceOption {
	return func(s *SearchService) {
		s.cfg = cfg
	}
}

// NewSearchService creates a new search service
func NewSearchService(opts ...SearchServiceOption) *SearchService {
	s := &SearchService{
		cfg:    DefaultSearchConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs the requested retrieval modes and returns the fused
// ranking. The semantic path is soft: when the embedder fails, the
// response degrades to lexical-only instead of erroring.
func (s *SearchService) Search(ctx context.Context, q models.SearchQuery) (*models.SearchResponse, error) {
	if s.corpus == nil {
		return nil, errors.New("corpus store not set")
	}
	if q.Query == "" {
		return nil, ErrEmptyQuery
	}

	// Unrecognized modes run as hybrid rather than silently matching
	// neither sub-search
	switch q.Mode {
	case models.SearchModeLexical, models.SearchModeSemantic, models.SearchModeHybrid:
	default:
		q.Mode = models.SearchModeHybrid
	}
	if q.Limit <= 0 {
		q.Limit = s.cfg.DefaultLimit
	}
	if q.Limit > s.cfg.MaxLimit {
		q.Limit = s.cfg.MaxLimit
	}

	key := cacheKey(q)
	if s.cache != nil {
		var cached models.SearchResponse
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("search cache read failed", zap.Error(err))
		} else if hit {
			cached.Cached = true
			return &cached, nil
		}
	}

	start := time.Now()

	var (
		lexResults []*models.SearchResult
		semResults []*models.SearchResult
		degraded   bool
	)

	g, gctx := errgroup.WithContext(ctx)

	if q.Mode == models.SearchModeHybrid || q.Mode == models.SearchModeLexical {
		g.Go(func() error {
			var err error
			lexResults, err = s.lexicalSearch(gctx, q.Query)
			return err
		})
	}

	if q.Mode == models.SearchModeHybrid || q.Mode == models.SearchModeSemantic {
		g.Go(func() error {
			results, err := s.semanticSearch(gctx, q.Query)
			if err != nil {
				if q.Mode == models.SearchModeSemantic {
					return err
				}
				s.logger.Warn("semantic search degraded to lexical-only", zap.Error(err))
				degraded = true
				return nil
			}
			semResults = results
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := applyFilters(q, s.fuseRRF(lexResults, semResults, s.cfg.SubSearchLimit))
	if len(fused) > q.Limit {
		fused = fused[:q.Limit]
	}

	resp := &models.SearchResponse{
		Query:      q.Query,
		Mode:       q.Mode,
		Degraded:   degraded,
		Total:      len(fused),
		Results:    fused,
		TookMillis: time.Since(start).Milliseconds(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("search cache write failed", zap.Error(err))
		}
	}

	return resp, nil
}

// lexicalSearch prefers the inverted index and falls back to Postgres
// full-text ranking when the index is absent or failing
func (s *SearchService) lexicalSearch(ctx context.Context, query string) ([]*models.SearchResult, error) {
	if s.lexical != nil {
		results, err := s.lexical.Search(ctx, query, s.cfg.SubSearchLimit)
		if err == nil {
			return results, nil
		}
		s.logger.Warn("lexical index unavailable, falling back to full-text", zap.Error(err))
	}
	return s.corpus.FullTextSearch(ctx, query, s.cfg.SubSearchLimit)
}

func (s *SearchService) semanticSearch(ctx context.Context, query string) ([]*models.SearchResult, error) {
	if s.embedder == nil {
		return nil, ErrEmbeddingFailed
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.cfg.EmbedTimeout)
	defer cancel()

	embedding, err := s.embedder.EmbedQuery(embedCtx, query)
	if err != nil {
		return nil, err
	}

	return s.corpus.SemanticSearch(ctx, embedding, s.cfg.MinSimilarity, s.cfg.SubSearchLimit)
}

// fuseRRF merges ranked lists with reciprocal rank fusion: each list
// contributes 1/(k + rank + 1) per document, summed across lists.
// Provenance from every contributing list is kept on the fused result.
func (s *SearchService) fuseRRF(lexical, semantic []*models.SearchResult, limit int) []models.SearchResult {
	k := float64(s.cfg.RRFConstant)
	fused := make(map[string]*models.SearchResult)
	scores := make(map[string]float64)

	accumulate := func(results []*models.SearchResult, source string) {
		for rank, res := range results {
			id := res.Case.ID
			scores[id] += 1.0 / (k + float64(rank) + 1.0)

			existing, ok := fused[id]
			if !ok {
				merged := *res
				merged.Sources = []string{source}
				fused[id] = &merged
				continue
			}
			existing.Sources = append(existing.Sources, source)
			if res.LexicalScore != nil {
				existing.LexicalScore = res.LexicalScore
			}
			if res.SemanticScore != nil {
				existing.SemanticScore = res.SemanticScore
			}
		}
	}

	accumulate(lexical, "lexical")
	accumulate(semantic, "semantic")

	out := make([]models.SearchResult, 0, len(fused))
	for id, res := range fused {
		res.Score = scores[id]
		out = append(out, *res)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Case.CitationCount != out[j].Case.CitationCount {
			return out[i].Case.CitationCount > out[j].Case.CitationCount
		}
		return out[i].Case.ID < out[j].Case.ID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// applyFilters drops fused results outside the query's jurisdiction,
// court, or decision-date bounds. Filtering happens after fusion so both
// retrieval paths honor the same contract.
func applyFilters(q models.SearchQuery, results []models.SearchResult) []models.SearchResult {
	if q.Jurisdiction == "" && q.CourtID == nil && q.DateFrom == "" && q.DateTo == "" {
		return results
	}

	var from, to time.Time
	var hasFrom, hasTo bool
	if q.DateFrom != "" {
		if t, err := time.Parse("2006-01-02", q.DateFrom); err == nil {
			from, hasFrom = t, true
		}
	}
	if q.DateTo != "" {
		if t, err := time.Parse("2006-01-02", q.DateTo); err == nil {
			to, hasTo = t, true
		}
	}

	out := make([]models.SearchResult, 0, len(results))
	for _, res := range results {
		cs := res.Case
		if q.Jurisdiction != "" && !strings.EqualFold(cs.Metadata.Jurisdiction, q.Jurisdiction) {
			continue
		}
		if q.CourtID != nil && (cs.CourtID == nil || *cs.CourtID != *q.CourtID) {
			continue
		}
		if hasFrom && (cs.DecisionDate == nil || cs.DecisionDate.Before(from)) {
			continue
		}
		if hasTo && (cs.DecisionDate == nil || cs.DecisionDate.After(to)) {
			continue
		}
		out = append(out, res)
	}
	return out
}

// FindMissingAuthorities runs a semantic query for an argument passage
// and returns the top hits not already present in exclude
func (s *SearchService) FindMissingAuthorities(ctx context.Context, query string, exclude map[string]bool, limit int) ([]models.SearchResult, error) {
	resp, err := s.Search(ctx, models.SearchQuery{Query: query, Mode: models.SearchModeSemantic, Limit: s.cfg.DefaultLimit})
	if err != nil {
		return nil, err
	}

	var out []models.SearchResult
	for _, res := range resp.Results {
		if exclude[res.Case.ID] {
			continue
		}
		out = append(out, res)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// cacheKey derives a stable key from the normalized query
func cacheKey(q models.SearchQuery) string {
	data, _ := json.Marshal(q)
	sum := sha256.Sum256(data)
	return "search:" + hex.EncodeToString(sum[:])
}
