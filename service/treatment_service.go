package service

import (
	"context"
	"errors"
	"strings"

	"lexcite-backend/models"
)

const (
	citingCasesLimit   = 100
	treatmentListLimit = 10
)

// TreatmentService classifies citation context into treatment signals
// and derives the citator badge for a case
type TreatmentService struct {
	corpus CorpusStore
	edges  EdgeStore
}

// NewTreatmentService creates a new treatment service
func NewTreatmentService(corpus CorpusStore, edges EdgeStore) *TreatmentService {
	return &TreatmentService{corpus: corpus, edges: edges}
}

// signalKeywords maps context phrases to treatment signals. Ordered by
// severity so the strongest phrase present wins.
var signalKeywords = []struct {
	keywords []string
	signal   models.TreatmentSignal
}{
	{[]string{"overruled", "overrule", "overruling", "abrogated", "abrogating"}, models.SignalOverruled},
	{[]string{"criticized", "criticize", "criticizing"}, models.SignalCriticized},
	{[]string{"questioned", "questioning", "cast doubt", "called into question"}, models.SignalQuestioned},
	{[]string{"followed", "following the reasoning", "we follow"}, models.SignalFollowed},
	{[]string{"affirmed", "affirming", "we affirm"}, models.SignalAffirmed},
	{[]string{"agree with", "persuasive", "correctly held", "correctly decided"}, models.SignalCitedFavorably},
}

// ClassifySignal inspects the text around a citation and returns the
// strongest treatment signal it implies, defaulting to a bare cite
func (s *TreatmentService) ClassifySignal(contextSpan string) models.TreatmentSignal {
	lower := strings.ToLower(contextSpan)
	for _, group := range signalKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.signal
			}
		}
	}
	return models.SignalCited
}

// BadgeFor derives the good-law badge from a set of incoming edges:
// red when any citing case overruled this one, yellow on any other
// negative treatment, green otherwise
func BadgeFor(edges []models.CitationEdge) models.CitatorBadge {
	badge := models.BadgeGreen
	for _, e := range edges {
		if e.Signal == models.SignalOverruled {
			return models.BadgeRed
		}
		if e.Signal.Negative() {
			badge = models.BadgeYellow
		}
	}
	return badge
}

// Citator builds the full citator view for a case: badge plus bounded
// positive and negative treatment lists, newest citing decision first
func (s *TreatmentService) Citator(ctx context.Context, caseID string) (*models.CitatorResult, error) {
	if s.corpus == nil || s.edges == nil {
		return nil, errors.New("treatment service not fully configured")
	}

	if _, err := s.corpus.GetByID(ctx, caseID); err != nil {
		return nil, ErrCaseNotFound
	}

	citing, err := s.edges.EdgesCiting(ctx, caseID, citingCasesLimit)
	if err != nil {
		return nil, err
	}

	// The citing list is bounded; the total is exact
	total, err := s.edges.CountCiting(ctx, caseID)
	if err != nil {
		return nil, err
	}

	result := &models.CitatorResult{
		CaseID:             caseID,
		Badge:              BadgeFor(citing),
		TotalCitingCases:   total,
		CitingCases:        citing,
		NegativeTreatments: make([]models.CitationEdge, 0),
		PositiveTreatments: make([]models.CitationEdge, 0),
	}

	for _, e := range citing {
		switch {
		case e.Signal.Negative():
			if len(result.NegativeTreatments) < treatmentListLimit {
				result.NegativeTreatments = append(result.NegativeTreatments, e)
			}
		case e.Signal.Positive():
			if len(result.PositiveTreatments) < treatmentListLimit {
				result.PositiveTreatments = append(result.PositiveTreatments, e)
			}
		}
	}

	return result, nil
}
