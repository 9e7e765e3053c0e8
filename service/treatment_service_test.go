package service

import (
	"context"
	"testing"
	"time"

	"lexcite-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySignal(t *testing.T) {
	s := NewTreatmentService(nil, nil)

	tests := []struct {
		name string
		span string
		want models.TreatmentSignal
	}{
		{"overruled", "that decision was expressly overruled by this Court", models.SignalOverruled},
		{"abrogated", "abrogated on other grounds", models.SignalOverruled},
		{"criticized", "the dissent criticized this approach", models.SignalCriticized},
		{"questioned", "later decisions have cast doubt on the holding", models.SignalQuestioned},
		{"followed", "we follow the framework announced there", models.SignalFollowed},
		{"affirmed", "the judgment below is affirmed", models.SignalAffirmed},
		{"favorable", "we agree with the reasoning of the Second Circuit", models.SignalCitedFavorably},
		{"neutral", "as noted in the earlier opinion", models.SignalCited},
		{"severity wins", "the rule was questioned and ultimately overruled", models.SignalOverruled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ClassifySignal(tt.span))
		})
	}
}

func TestBadgeFor(t *testing.T) {
	edge := func(signal models.TreatmentSignal) models.CitationEdge {
		return models.CitationEdge{Signal: signal}
	}

	tests := []struct {
		name  string
		edges []models.CitationEdge
		want  models.CitatorBadge
	}{
		{"no edges", nil, models.BadgeGreen},
		{"neutral and positive only", []models.CitationEdge{edge(models.SignalCited), edge(models.SignalFollowed)}, models.BadgeGreen},
		{"questioned", []models.CitationEdge{edge(models.SignalQuestioned)}, models.BadgeYellow},
		{"criticized among positives", []models.CitationEdge{edge(models.SignalAffirmed), edge(models.SignalCriticized)}, models.BadgeYellow},
		{"overruled wins over everything", []models.CitationEdge{edge(models.SignalFollowed), edge(models.SignalQuestioned), edge(models.SignalOverruled)}, models.BadgeRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BadgeFor(tt.edges))
		})
	}
}

func TestCitator(t *testing.T) {
	corpus := newFakeCorpus(&models.Case{ID: "c-plessy", Title: "Plessy v. Ferguson"})
	edges := &fakeEdges{edges: []models.CitationEdge{
		{ID: 1, SourceCaseID: "c-brown", TargetCaseID: "c-plessy", Signal: models.SignalOverruled, Weight: 6},
		{ID: 2, SourceCaseID: "c-other", TargetCaseID: "c-plessy", Signal: models.SignalFollowed, Weight: 3},
		{ID: 3, SourceCaseID: "c-third", TargetCaseID: "c-plessy", Signal: models.SignalCited},
	}}

	s := NewTreatmentService(corpus, edges)

	result, err := s.Citator(context.Background(), "c-plessy")
	require.NoError(t, err)

	assert.Equal(t, "c-plessy", result.CaseID)
	assert.Equal(t, models.BadgeRed, result.Badge)
	assert.Equal(t, 3, result.TotalCitingCases)
	assert.Len(t, result.CitingCases, 3)

	require.Len(t, result.NegativeTreatments, 1)
	assert.Equal(t, models.SignalOverruled, result.NegativeTreatments[0].Signal)

	require.Len(t, result.PositiveTreatments, 1)
	assert.Equal(t, models.SignalFollowed, result.PositiveTreatments[0].Signal)
}

func TestCitatorOrdersCitingCases(t *testing.T) {
	date := func(year int) *time.Time {
		d := time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC)
		return &d
	}
	corpus := newFakeCorpus(&models.Case{ID: "c-target", Title: "Target v. Case"})
	edges := &fakeEdges{edges: []models.CitationEdge{
		{ID: 1, SourceCaseID: "c-undated", TargetCaseID: "c-target", Signal: models.SignalCited},
		{ID: 2, SourceCaseID: "c-z", TargetCaseID: "c-target", Signal: models.SignalCited, DecisionDate: date(2000)},
		{ID: 3, SourceCaseID: "c-b", TargetCaseID: "c-target", Signal: models.SignalCited, DecisionDate: date(2010)},
		{ID: 4, SourceCaseID: "c-a", TargetCaseID: "c-target", Signal: models.SignalCited, DecisionDate: date(2010)},
	}}

	s := NewTreatmentService(corpus, edges)

	result, err := s.Citator(context.Background(), "c-target")
	require.NoError(t, err)

	// Newest decisions first, same-day ties broken by the citing
	// case's ID, undated decisions last
	var got []string
	for _, e := range result.CitingCases {
		got = append(got, e.SourceCaseID)
	}
	assert.Equal(t, []string{"c-a", "c-b", "c-z", "c-undated"}, got)
}

func TestCitatorUnknownCase(t *testing.T) {
	s := NewTreatmentService(newFakeCorpus(), &fakeEdges{})

	_, err := s.Citator(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestCitatorBoundsTreatmentLists(t *testing.T) {
	corpus := newFakeCorpus(&models.Case{ID: "c-target", Title: "Target v. Case"})
	edges := &fakeEdges{}
	for i := 0; i < treatmentListLimit+5; i++ {
		edges.edges = append(edges.edges, models.CitationEdge{
			ID:           i + 1,
			SourceCaseID: "c-source",
			TargetCaseID: "c-target",
			Signal:       models.SignalQuestioned,
		})
	}

	s := NewTreatmentService(corpus, edges)

	result, err := s.Citator(context.Background(), "c-target")
	require.NoError(t, err)

	assert.Equal(t, models.BadgeYellow, result.Badge)
	assert.Len(t, result.NegativeTreatments, treatmentListLimit)
}
