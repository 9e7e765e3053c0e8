package service

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"

	"lexcite-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyBrief is returned when a brief has no analyzable text
var ErrEmptyBrief = errors.New("brief text must not be empty")

const (
	resolveConcurrency = 8
	maxKeyArguments    = 5
	minArgumentLen     = 50
	maxArgumentLen     = 500
	maxSuggestedCases  = 5
)

// BriefService checks a brief's citations against the corpus and the
// citation graph
type BriefService struct {
	extractor *ExtractService
	resolver  *ResolveService
	treatment *TreatmentService
	search    *SearchService
	corpus    CorpusStore
	logger    *zap.Logger
}

// BriefServiceOption is a functional option for BriefService
type BriefServiceOption func(*BriefService)

// BriefWithExtractor sets the citation extractor
func BriefWithExtractor(extractor *ExtractService) BriefServiceOption {
	return func(s *BriefService) {
		s.extractor = extractor
	}
}

// BriefWithResolver sets the citation resolver
func BriefWithResolver(resolver *ResolveService) BriefServiceOption {
	return func(s *BriefService) {
		s.resolver = resolver
	}
}

// BriefWithTreatmentService sets the treatment service
func BriefWithTreatmentService(treatment *TreatmentService) BriefServiceOption {
	return func(s *BriefService) {
		s.treatment = treatment
	}
}

// BriefWithSearchService sets the retrieval engine used for
// missing-authority discovery
func BriefWithSearchService(search *SearchService) BriefServiceOption {
	return func(s *BriefService) {
		s.search = search
	}
}

// BriefWithCorpusStore sets the corpus store
func BriefWithCorpusStore(corpus CorpusStore) BriefServiceOption {
	return func(s *BriefService) {
		s.corpus = corpus
	}
}

// BriefWithLogger sets the logger
func BriefWithLogger(logger *zap.Logger) BriefServiceOption {
	return func(s *BriefService) {
		s.logger = logger
	}
}

// NewBriefService creates a new brief service
func NewBriefService(opts ...BriefServiceOption) *BriefService {
	s := &BriefService{
		extractor: NewExtractService(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeBriefRequest represents a request to check a brief
type AnalyzeBriefRequest struct {
	Text       string
	LegalArea  string
	DocumentID *uuid.UUID
}

// foundationCases lists the authorities a brief in each legal area is
// expected to engage with
var foundationCases = map[string][]string{
	"criminal_procedure": {"Miranda v. Arizona", "Terry v. Ohio", "Mapp v. Ohio", "Gideon v. Wainwright"},
	"civil_rights":       {"Brown v. Board of Education", "Monell v. Department of Social Services", "Section 1983"},
	"contracts":          {"Hadley v. Baxendale", "Lucy v. Zehmer"},
	"torts":              {"Palsgraf v. Long Island Railroad", "MacPherson v. Buick Motor"},
	"constitutional":     {"Marbury v. Madison", "McCulloch v. Maryland", "Gibbons v. Ogden"},
}

var argumentPattern = regexp.MustCompile(
	`(?i)(?:we |plaintiff |defendant |appellant |appellee |petitioner |respondent |the court )?(?:argue[sd]?|contend[sd]?|assert[sd]?|maintain[sd]?|submit[sd]?|claim(?:s|ed)?)\b[^.!?]*[.!?]`)

// AnalyzeBrief runs the full check: extract citations, resolve them
// concurrently, flag anything in negative standing, pull key arguments,
// suggest foundational authorities the brief does not cite, and surface
// uncited corpus authorities relevant to the argued points
func (s *BriefService) AnalyzeBrief(ctx context.Context, req AnalyzeBriefRequest) (*models.BriefAnalysis, error) {
	if s.resolver == nil {
		return nil, errors.New("resolver not set")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyBrief
	}

	mentions := s.extractor.Extract(req.Text)

	validated := make([]models.ValidatedCitation, len(mentions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	var mu sync.Mutex

	for i, m := range mentions {
		g.Go(func() error {
			res, err := s.resolver.Resolve(gctx, m, contextWindow(req.Text, m.Offset, len(m.Text)))
			if err != nil {
				return err
			}

			vc := models.ValidatedCitation{ResolvedCitation: res}
			if res.Resolved && s.treatment != nil {
				citator, err := s.treatment.Citator(gctx, res.CaseID)
				if err != nil {
					s.logger.Warn("citator lookup failed during brief check",
						zap.String("case_id", res.CaseID), zap.Error(err))
				} else {
					vc.Badge = citator.Badge
					for _, e := range citator.NegativeTreatments {
						if e.Signal == models.SignalOverruled {
							vc.NegativeSignal = string(e.Signal)
							break
						}
						if vc.NegativeSignal == "" {
							vc.NegativeSignal = string(e.Signal)
						}
					}
				}
			}

			mu.Lock()
			validated[i] = vc
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	analysis := &models.BriefAnalysis{
		ID:                   uuid.New(),
		DocumentID:           req.DocumentID,
		LegalArea:            req.LegalArea,
		Citations:            validated,
		ProblematicCitations: aggregateProblems(validated),
		KeyArguments:         extractKeyArguments(req.Text),
		TotalCitations:       len(validated),
	}

	cited := make(map[string]bool)
	for _, vc := range validated {
		if vc.Resolved {
			analysis.ResolvedCitations++
			cited[vc.CaseID] = true
		}
	}

	suggestions, err := s.suggestFoundationCases(ctx, req.LegalArea, cited)
	if err != nil {
		s.logger.Warn("foundation case suggestion failed", zap.Error(err))
	} else {
		analysis.SuggestedCases = suggestions
	}
	analysis.SuggestedCases = append(analysis.SuggestedCases,
		s.findMissingAuthorities(ctx, analysis.KeyArguments, cited, analysis.SuggestedCases)...)
	if analysis.SuggestedCases == nil {
		analysis.SuggestedCases = make([]models.SuggestedCase, 0)
	}

	return analysis, nil
}

// findMissingAuthorities runs a semantic query per key argument and
// surfaces uncited corpus hits. Soft path: a dead retrieval backend
// costs suggestions, not the analysis.
func (s *BriefService) findMissingAuthorities(ctx context.Context, args []models.KeyArgument, cited map[string]bool, already []models.SuggestedCase) []models.SuggestedCase {
	if s.search == nil || len(args) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(already))
	for _, sc := range already {
		seen[sc.CaseID] = true
	}

	var out []models.SuggestedCase
	for _, arg := range args {
		if len(already)+len(out) >= maxSuggestedCases {
			break
		}
		hits, err := s.search.FindMissingAuthorities(ctx, arg.Text, cited, 2)
		if err != nil {
			s.logger.Warn("missing authority discovery failed", zap.Error(err))
			return out
		}
		for _, hit := range hits {
			if seen[hit.Case.ID] {
				continue
			}
			seen[hit.Case.ID] = true
			out = append(out, models.SuggestedCase{
				CaseID:    hit.Case.ID,
				Title:     hit.Case.Title,
				Citation:  hit.Case.ReporterCite,
				Relevance: "relevant authority for an argued point, not cited in the brief",
			})
			if len(already)+len(out) >= maxSuggestedCases {
				break
			}
		}
	}
	return out
}

// aggregateProblems collects unresolved citations and citations to
// cases in negative standing, errors before warnings
func aggregateProblems(validated []models.ValidatedCitation) []models.ProblematicCitation {
	problems := make([]models.ProblematicCitation, 0)

	for _, vc := range validated {
		switch {
		case vc.Badge == models.BadgeRed:
			problems = append(problems, models.ProblematicCitation{
				Citation: vc.Mention.Text,
				CaseID:   vc.CaseID,
				Issue:    "cited case has been overruled",
				Severity: "error",
			})
		case vc.Badge == models.BadgeYellow:
			problems = append(problems, models.ProblematicCitation{
				Citation: vc.Mention.Text,
				CaseID:   vc.CaseID,
				Issue:    "cited case has negative treatment (" + vc.NegativeSignal + ")",
				Severity: "warning",
			})
		case !vc.Resolved:
			problems = append(problems, models.ProblematicCitation{
				Citation: vc.Mention.Text,
				Issue:    vc.Diagnostic,
				Severity: "warning",
			})
		}
	}

	sort.SliceStable(problems, func(i, j int) bool {
		return problems[i].Severity == "error" && problems[j].Severity != "error"
	})
	return problems
}

// extractKeyArguments pulls up to five argumentative sentences of
// reasonable length from the brief
func extractKeyArguments(text string) []models.KeyArgument {
	args := make([]models.KeyArgument, 0, maxKeyArguments)

	for _, loc := range argumentPattern.FindAllStringIndex(text, -1) {
		sentence := strings.TrimSpace(text[loc[0]:loc[1]])
		if len(sentence) < minArgumentLen || len(sentence) > maxArgumentLen {
			continue
		}
		args = append(args, models.KeyArgument{Text: sentence, Offset: loc[0]})
		if len(args) >= maxKeyArguments {
			break
		}
	}
	return args
}

// suggestFoundationCases returns foundational authorities for the legal
// area that exist in the corpus and are not already cited
func (s *BriefService) suggestFoundationCases(ctx context.Context, legalArea string, cited map[string]bool) ([]models.SuggestedCase, error) {
	if s.corpus == nil {
		return nil, nil
	}

	names, ok := foundationCases[legalArea]
	if !ok {
		return nil, nil
	}

	suggestions := make([]models.SuggestedCase, 0)
	for _, name := range names {
		cases, err := s.corpus.SearchByTitle(ctx, name, 1)
		if err != nil {
			return nil, err
		}
		if len(cases) == 0 || cited[cases[0].ID] {
			continue
		}
		suggestions = append(suggestions, models.SuggestedCase{
			CaseID:    cases[0].ID,
			Title:     cases[0].Title,
			Citation:  cases[0].ReporterCite,
			Relevance: "foundational authority for " + legalArea + " not cited in the brief",
		})
		if len(suggestions) >= maxSuggestedCases {
			break
		}
	}
	return suggestions, nil
}
