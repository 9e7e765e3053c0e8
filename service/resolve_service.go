package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"lexcite-backend/models"
)

// ErrCaseNotFound is returned when a corpus case lookup fails
var ErrCaseNotFound = errors.New("case not found")

// earliestCoverageYear marks the point before which corpus coverage is
// too thin to expect a match
const earliestCoverageYear = 1950

// MatchStrategy is one way of mapping a citation mention onto the
// corpus. Strategies are tried in order; the first hit wins and stamps
// the resolution with its name and confidence.
type MatchStrategy interface {
	Name() string
	Confidence() float64
	Match(ctx context.Context, corpus CorpusStore, m models.CitationMention) (*models.Case, error)
}

// ResolveService maps citation mentions onto corpus cases
type ResolveService struct {
	corpus     CorpusStore
	strategies []MatchStrategy
}

// ResolveServiceOption is a functional option for ResolveService
type ResolveServiceOption func(*ResolveService)

// ResolveWithCorpusStore sets the corpus store
func ResolveWithCorpusStore(corpus CorpusStore) ResolveServiceOption {
	return func(s *ResolveService) {
		s.corpus = corpus
	}
}

// ResolveWithStrategies replaces the default strategy order
func ResolveWithStrategies(strategies ...MatchStrategy) ResolveServiceOption {
	return func(s *ResolveService) {
		s.strategies = strategies
	}
}

// NewResolveService creates a new resolve service with the default
// strategy cascade
func NewResolveService(opts ...ResolveServiceOption) *ResolveService {
	s := &ResolveService{
		strategies: []MatchStrategy{
			caseNameStrategy{},
			reporterCiteStrategy{},
			partyNameStrategy{},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve maps a single mention onto the corpus. surrounding is the
// text near the mention, used only to sharpen the diagnostic when no
// match is found.
func (s *ResolveService) Resolve(ctx context.Context, m models.CitationMention, surrounding string) (models.ResolvedCitation, error) {
	if s.corpus == nil {
		return models.ResolvedCitation{}, errors.New("corpus store not set")
	}

	res := models.ResolvedCitation{Mention: m}

	for _, strat := range s.strategies {
		cs, err := strat.Match(ctx, s.corpus, m)
		if err != nil {
			return models.ResolvedCitation{}, fmt.Errorf("strategy %s: %w", strat.Name(), err)
		}
		if cs != nil {
			res.Resolved = true
			res.CaseID = cs.ID
			res.CaseTitle = cs.Title
			res.Strategy = strat.Name()
			res.Confidence = strat.Confidence() * m.Confidence
			return res, nil
		}
	}

	res.Diagnostic = diagnose(m, surrounding)
	return res, nil
}

// ResolveAll resolves every mention in order
func (s *ResolveService) ResolveAll(ctx context.Context, mentions []models.CitationMention, text string) ([]models.ResolvedCitation, error) {
	results := make([]models.ResolvedCitation, 0, len(mentions))
	for _, m := range mentions {
		res, err := s.Resolve(ctx, m, contextWindow(text, m.Offset, len(m.Text)))
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// contextWindow returns the text around a mention, bounded to 200
// characters each side
func contextWindow(text string, offset, length int) string {
	start := offset - 200
	if start < 0 {
		start = 0
	}
	end := offset + length + 200
	if end > len(text) {
		end = len(text)
	}
	return text[start:end]
}

var negativeContextKeywords = []string{
	"overruled", "overruling", "abrogated", "criticized", "questioned",
	"rejected", "disapproved", "superseded",
}

// diagnose explains an unresolved mention, most specific reason first.
// Negative keywords are checked in the mention's own text first; the
// surrounding window is a looser fallback and says so.
func diagnose(m models.CitationMention, surrounding string) string {
	if m.Reporter == "" {
		return "incomplete citation format: no reporter identified"
	}
	if m.Year != nil && *m.Year < earliestCoverageYear {
		return fmt.Sprintf("very old case (%d), likely outside corpus coverage", *m.Year)
	}
	if kw := negativeKeywordIn(m.Text); kw != "" {
		return "not found in corpus; citation text carries a possible negative signal (" + kw + ")"
	}
	if kw := negativeKeywordIn(surrounding); kw != "" {
		return "not found in corpus; surrounding text carries a possible negative signal (" + kw + ")"
	}
	return "not found in corpus"
}

func negativeKeywordIn(text string) string {
	lower := strings.ToLower(text)
	for _, kw := range negativeContextKeywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

// caseNameStrategy matches on the full case name as a title substring
type caseNameStrategy struct{}

func (caseNameStrategy) Name() string        { return "case_name" }
func (caseNameStrategy) Confidence() float64 { return 0.9 }

func (caseNameStrategy) Match(ctx context.Context, corpus CorpusStore, m models.CitationMention) (*models.Case, error) {
	if m.CaseName == "" {
		return nil, nil
	}
	cases, err := corpus.SearchByTitle(ctx, m.CaseName, 1)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, nil
	}
	return cases[0], nil
}

// reporterCiteStrategy matches on the volume/reporter/page triple
type reporterCiteStrategy struct{}

func (reporterCiteStrategy) Name() string        { return "reporter_cite" }
func (reporterCiteStrategy) Confidence() float64 { return 0.9 }

func (reporterCiteStrategy) Match(ctx context.Context, corpus CorpusStore, m models.CitationMention) (*models.Case, error) {
	if m.Volume == nil || m.Reporter == "" || m.Page == nil {
		return nil, nil
	}
	tokens := []string{
		strconv.Itoa(*m.Volume),
		m.Reporter,
		strconv.Itoa(*m.Page),
	}
	cases, err := corpus.SearchByReporterCite(ctx, tokens, 1)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, nil
	}
	return cases[0], nil
}

// partyNameStrategy falls back to the first party's name alone
type partyNameStrategy struct{}

func (partyNameStrategy) Name() string        { return "party_name" }
func (partyNameStrategy) Confidence() float64 { return 0.7 }

func (partyNameStrategy) Match(ctx context.Context, corpus CorpusStore, m models.CitationMention) (*models.Case, error) {
	name := m.CaseName
	if name == "" {
		return nil, nil
	}
	if idx := strings.Index(name, " v."); idx > 0 {
		name = name[:idx]
	}
	name = strings.TrimSpace(name)
	if len(name) < 4 {
		return nil, nil
	}
	cases, err := corpus.SearchByTitle(ctx, name, 1)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, nil
	}
	return cases[0], nil
}
