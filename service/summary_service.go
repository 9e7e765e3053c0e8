package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lexcite-backend/models"
	"lexcite-backend/repository"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
)

// ErrSummaryFailed is returned when the generation backend produces no
// usable summary
var ErrSummaryFailed = errors.New("failed to generate summary")

const (
	summaryModel    = "gemini-3-pro-preview"
	maxPromptChars  = 30000
	inputCostPer1M  = 1.25
	outputCostPer1M = 10.0
)

// SummaryService generates and caches case summaries
type SummaryService struct {
	corpus       CorpusStore
	summaries    SummaryStore
	geminiClient *genai.Client
	logger       *zap.Logger
}

// SummaryServiceOption is a functional option for SummaryService
type SummaryServiceOption func(*SummaryService)

// SummaryWithCorpusStore sets the corpus store
func SummaryWithCorpusStore(corpus CorpusStore) SummaryServiceOption {
	return func(s *SummaryService) {
		s.corpus = corpus
	}
}

// SummaryWithStore sets the summary store
func SummaryWithStore(store SummaryStore) SummaryServiceOption {
	return func(s *SummaryService) {
		s.summaries = store
	}
}

// SummaryWithGeminiClient sets the Gemini client
func SummaryWithGeminiClient(client *genai.Client) SummaryServiceOption {
	return func(s *SummaryService) {
		s.geminiClient = client
	}
}

// SummaryWithLogger sets the logger
func SummaryWithLogger(logger *zap.Logger) SummaryServiceOption {
	return func(s *SummaryService) {
		s.logger = logger
	}
}

// NewSummaryService creates a new summary service
func NewSummaryService(opts ...SummaryServiceOption) *SummaryService {
	s := &SummaryService{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetSummary returns the cached summary for a case, or
// repository.ErrNotFound when none has been generated yet
func (s *SummaryService) GetSummary(ctx context.Context, caseID string) (*models.CaseSummary, error) {
	if s.summaries == nil {
		return nil, errors.New("summary store not set")
	}
	return s.summaries.GetByCaseID(ctx, caseID)
}

// Summarize generates a summary for a case, reusing the cached one
// unless force is set
func (s *SummaryService) Summarize(ctx context.Context, caseID string, force bool) (*models.CaseSummary, error) {
	if s.corpus == nil || s.summaries == nil {
		return nil, errors.New("summary service not fully configured")
	}
	if s.geminiClient == nil {
		return nil, errors.New("gemini client not set")
	}

	if !force {
		cached, err := s.summaries.GetByCaseID(ctx, caseID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	cs, err := s.corpus.GetByID(ctx, caseID)
	if err != nil {
		return nil, ErrCaseNotFound
	}

	text, inputTokens, outputTokens, err := s.generate(ctx, buildSummaryPrompt(cs))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSummaryFailed, err)
	}

	summary := &models.CaseSummary{
		CaseID:       caseID,
		Summary:      text,
		Model:        summaryModel,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD: float64(inputTokens)/1e6*inputCostPer1M +
			float64(outputTokens)/1e6*outputCostPer1M,
	}

	if err := s.summaries.Create(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// generate calls the model and returns the text plus actual token usage
func (s *SummaryService) generate(ctx context.Context, prompt string) (string, int, int, error) {
	model := s.geminiClient.GenerativeModel(summaryModel)
	model.SetTemperature(0.2)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", 0, 0, err
	}
	if len(resp.Candidates) == 0 {
		return "", 0, 0, fmt.Errorf("API returned no candidates")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.FinishReason != genai.FinishReasonStop &&
			candidate.FinishReason != genai.FinishReasonUnspecified {
			s.logger.Warn("candidate finished early",
				zap.String("reason", candidate.FinishReason.String()))
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				builder.WriteString(string(text))
			}
		}
	}

	text := builder.String()
	if text == "" {
		return "", 0, 0, fmt.Errorf("API returned empty content")
	}

	var inputTokens, outputTokens int
	if resp.UsageMetadata != nil {
		inputTokens = int(resp.UsageMetadata.PromptTokenCount)
		outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	} else {
		inputTokens = estimateTokens(prompt)
		outputTokens = estimateTokens(text)
	}

	return text, inputTokens, outputTokens, nil
}

func buildSummaryPrompt(cs *models.Case) string {
	var builder strings.Builder

	builder.WriteString("You are a legal research assistant. Summarize the following judicial opinion for a practicing attorney.\n\n")
	builder.WriteString("CASE: " + cs.Title + "\n")
	if cs.ReporterCite != "" {
		builder.WriteString("CITATION: " + cs.ReporterCite + "\n")
	}
	if cs.CourtName != "" {
		builder.WriteString("COURT: " + cs.CourtName + "\n")
	}
	if cs.DecisionDate != nil {
		builder.WriteString("DECIDED: " + cs.DecisionDate.Format("2006-01-02") + "\n")
	}
	builder.WriteString("\nOPINION TEXT:\n")

	content := cs.Content
	if len(content) > maxPromptChars {
		content = content[:maxPromptChars]
	}
	builder.WriteString(content)

	builder.WriteString("\n\nTASK:\nWrite a summary covering:\n")
	builder.WriteString("1. The holding, in one sentence\n")
	builder.WriteString("2. The key facts (2-3 sentences)\n")
	builder.WriteString("3. The court's reasoning (1 paragraph)\n")
	builder.WriteString("4. The disposition\n\n")
	builder.WriteString("OUTPUT REQUIREMENTS:\n")
	builder.WriteString("- Plain text, no markdown formatting\n")
	builder.WriteString("- Objective, factual tone; no editorializing\n")
	builder.WriteString("- Do not invent facts or citations not present in the opinion text\n")

	return builder.String()
}

// estimateTokens approximates token usage at four characters per token,
// used only when the API omits usage metadata
func estimateTokens(text string) int {
	return len(text) / 4
}
