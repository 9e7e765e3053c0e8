package service

import (
	"context"
	"testing"
	"time"

	"lexcite-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchEmptyQuery(t *testing.T) {
	s := NewSearchService(SearchWithCorpusStore(newFakeCorpus()))

	_, err := s.Search(context.Background(), models.SearchQuery{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchHybridFusesRankings(t *testing.T) {
	corpus := newFakeCorpus()
	corpus.fullTextResults = []*models.SearchResult{lexResult("a", 12.5), lexResult("b", 8.0)}
	corpus.semanticResults = []*models.SearchResult{semResult("b", 0.91), semResult("c", 0.84)}

	s := NewSearchService(
		SearchWithCorpusStore(corpus),
		SearchWithEmbedder(&fakeEmbedder{vector: []float64{0.1, 0.2, 0.3}}),
	)

	resp, err := s.Search(context.Background(), models.SearchQuery{Query: "stop and frisk"})
	require.NoError(t, err)

	assert.Equal(t, models.SearchModeHybrid, resp.Mode)
	assert.False(t, resp.Degraded)
	require.Len(t, resp.Results, 3)

	// b appears in both lists (ranks 1 and 0), so it outranks the
	// single-list hits
	assert.Equal(t, "b", resp.Results[0].Case.ID)
	assert.Equal(t, "a", resp.Results[1].Case.ID)
	assert.Equal(t, "c", resp.Results[2].Case.ID)

	assert.InDelta(t, 1.0/62+1.0/61, resp.Results[0].Score, 1e-9)
	assert.InDelta(t, 1.0/61, resp.Results[1].Score, 1e-9)
	assert.InDelta(t, 1.0/62, resp.Results[2].Score, 1e-9)

	assert.ElementsMatch(t, []string{"lexical", "semantic"}, resp.Results[0].Sources)
	assert.NotNil(t, resp.Results[0].LexicalScore)
	assert.NotNil(t, resp.Results[0].SemanticScore)
	assert.Equal(t, []string{"lexical"}, resp.Results[1].Sources)
	assert.Equal(t, []string{"semantic"}, resp.Results[2].Sources)
}

func TestSearchUnknownModeRunsAsHybrid(t *testing.T) {
	corpus := newFakeCorpus()
	corpus.fullTextResults = []*models.SearchResult{lexResult("a", 12.5)}
	corpus.semanticResults = []*models.SearchResult{semResult("b", 0.91)}

	s := NewSearchService(
		SearchWithCorpusStore(corpus),
		SearchWithEmbedder(&fakeEmbedder{vector: []float64{0.1, 0.2, 0.3}}),
	)

	resp, err := s.Search(context.Background(), models.SearchQuery{
		Query: "stop and frisk",
		Mode:  "fulltext",
	})
	require.NoError(t, err)

	assert.Equal(t, models.SearchModeHybrid, resp.Mode)
	require.Len(t, resp.Results, 2)
}

func TestSearchHybridDegradesOnEmbedderFailure(t *testing.T) {
	corpus := newFakeCorpus()
	corpus.fullTextResults = []*models.SearchResult{lexResult("a", 10.0), lexResult("b", 6.0)}

	s := NewSearchService(
		SearchWithCorpusStore(corpus),
		SearchWithEmbedder(&fakeEmbedder{err: errBackendDown}),
	)

	resp, err := s.Search(context.Background(), models.SearchQuery{Query: "qualified immunity"})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "a", resp.Results[0].Case.ID)
	assert.Equal(t, []string{"lexical"}, resp.Results[0].Sources)
}

func TestSearchSemanticModeFailsHard(t *testing.T) {
	s := NewSearchService(
		SearchWithCorpusStore(newFakeCorpus()),
		SearchWithEmbedder(&fakeEmbedder{err: errBackendDown}),
	)

	_, err := s.Search(context.Background(), models.SearchQuery{
		Query: "qualified immunity",
		Mode:  models.SearchModeSemantic,
	})
	assert.ErrorIs(t, err, errBackendDown)
}

func TestSearchLexicalIndexFallback(t *testing.T) {
	corpus := newFakeCorpus()
	corpus.fullTextResults = []*models.SearchResult{lexResult("pg", 4.0)}

	s := NewSearchService(
		SearchWithCorpusStore(corpus),
		SearchWithLexicalIndex(&fakeIndex{err: errBackendDown}),
	)

	resp, err := s.Search(context.Background(), models.SearchQuery{
		Query: "due process",
		Mode:  models.SearchModeLexical,
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "pg", resp.Results[0].Case.ID)
}

func TestSearchPrefersLexicalIndex(t *testing.T) {
	corpus := newFakeCorpus()
	corpus.fullTextResults = []*models.SearchResult{lexResult("pg", 4.0)}
	index := &fakeIndex{results: []*models.SearchResult{lexResult("os", 9.0)}}

	s := NewSearchService(
		SearchWithCorpusStore(corpus),
		SearchWithLexicalIndex(index),
	)

	resp, err := s.Search(context.Background(), models.SearchQuery{
		Query: "due process",
		Mode:  models.SearchModeLexical,
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "os", resp.Results[0].Case.ID)
}

func TestSearchCachesResponses(t *testing.T) {
	corpus := newFakeCorpus()
	corpus.fullTextResults = []*models.SearchResult{lexResult("a", 10.0)}
	embedder := &fakeEmbedder{vector: []float64{0.1}}

	s := NewSearchService(
		SearchWithCorpusStore(corpus),
		SearchWithEmbedder(embedder),
		SearchWithCache(newFakeCache()),
	)

	q := models.SearchQuery{Query: "search incident to arrest"}

	first, err := s.Search(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, embedder.calls)

	second, err := s.Search(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, first.Total, second.Total)
}

func TestFuseRRFTieBreak(t *testing.T) {
	s := NewSearchService()

	a := models.Case{ID: "a", CitationCount: 5}
	b := models.Case{ID: "b", CitationCount: 0}

	lexical := []*models.SearchResult{{Case: a}, {Case: b}}
	semantic := []*models.SearchResult{{Case: b}, {Case: a}}

	fused := s.fuseRRF(lexical, semantic, 10)
	require.Len(t, fused, 2)

	// Equal RRF scores fall back to citation count
	assert.InDelta(t, fused[0].Score, fused[1].Score, 1e-9)
	assert.Equal(t, "a", fused[0].Case.ID)
	assert.Equal(t, "b", fused[1].Case.ID)
}

func TestSearchAppliesLimits(t *testing.T) {
	corpus := newFakeCorpus()
	corpus.fullTextResults = []*models.SearchResult{
		lexResult("a", 3.0), lexResult("b", 2.0), lexResult("c", 1.0),
	}

	s := NewSearchService(SearchWithCorpusStore(corpus))

	resp, err := s.Search(context.Background(), models.SearchQuery{
		Query: "standing",
		Mode:  models.SearchModeLexical,
		Limit: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "a", resp.Results[0].Case.ID)
}

func TestSearchAppliesJurisdictionAndDateFilters(t *testing.T) {
	ohio2010 := lexResult("a", 5.0)
	ohio2010.Case.Metadata.Jurisdiction = "OH"
	decided := time.Date(2010, 3, 1, 0, 0, 0, 0, time.UTC)
	ohio2010.Case.DecisionDate = &decided

	texas := lexResult("b", 4.0)
	texas.Case.Metadata.Jurisdiction = "TX"

	corpus := newFakeCorpus()
	corpus.fullTextResults = []*models.SearchResult{ohio2010, texas}

	s := NewSearchService(SearchWithCorpusStore(corpus))

	resp, err := s.Search(context.Background(), models.SearchQuery{
		Query:        "negligence per se",
		Mode:         models.SearchModeLexical,
		Jurisdiction: "oh",
		DateFrom:     "2000-01-01",
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a", resp.Results[0].Case.ID)
}

func TestFindMissingAuthorities(t *testing.T) {
	corpus := newFakeCorpus()
	corpus.semanticResults = []*models.SearchResult{
		semResult("a", 0.9), semResult("b", 0.85), semResult("c", 0.8),
	}

	s := NewSearchService(
		SearchWithCorpusStore(corpus),
		SearchWithEmbedder(&fakeEmbedder{vector: []float64{0.1}}),
	)

	out, err := s.FindMissingAuthorities(context.Background(), "standing", map[string]bool{"a": true}, 2)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Case.ID)
	assert.Equal(t, "c", out[1].Case.ID)
}
