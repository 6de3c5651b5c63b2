package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/ai"
	"github.com/signalhq/signal-backend/internal/cache"
	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/metrics"
	"github.com/signalhq/signal-backend/internal/quality"
	"github.com/signalhq/signal-backend/internal/repository"
)

// PieceStage drafts one full content piece from a strategy. Identical prompts
// within the cache TTL reuse the previous adapter output instead of calling
// again.
type PieceStage struct {
	records   repository.RecordsRepository
	generator ai.Generator
	genCache  *cache.GenerationCache
	collector *metrics.Collector
	logger    *logrus.Entry
}

func NewPieceStage(
	records repository.RecordsRepository,
	generator ai.Generator,
	genCache *cache.GenerationCache,
	collector *metrics.Collector,
	logger *logrus.Entry,
) *PieceStage {
	return &PieceStage{
		records:   records,
		generator: generator,
		genCache:  genCache,
		collector: collector,
		logger:    logger,
	}
}

// PieceGenerateResult is the job result payload for content_piece_generate.
type PieceGenerateResult struct {
	CompanyID    string  `json:"company_id"`
	StrategyID   string  `json:"strategy_id"`
	PieceID      string  `json:"piece_id"`
	ContentType  string  `json:"content_type"`
	WordCount    int     `json:"word_count"`
	QualityScore float64 `json:"quality_score"`
	CacheHit     bool    `json:"cache_hit"`
}

// pieceOutput is the JSON contract for a piece drafting call.
type pieceOutput struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	Summary      string `json:"summary"`
	VisualPrompt string `json:"visual_prompt"`
}

func (s *PieceStage) Run(
	ctx context.Context,
	company *domain.CompanyProfile,
	payload PieceGeneratePayload,
	progress func(step, total int),
) (json.RawMessage, error) {
	strategy, err := s.records.GetStrategy(ctx, payload.StrategyID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, fmt.Errorf("%w: strategy %s", domain.ErrNotFound, payload.StrategyID)
		}
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	if strategy.CompanyID != company.ID {
		return nil, fmt.Errorf("%w: strategy %s", domain.ErrNotFound, payload.StrategyID)
	}
	campaign, err := s.records.GetCampaign(ctx, strategy.CampaignID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, fmt.Errorf("%w: campaign %s", domain.ErrNotFound, strategy.CampaignID)
		}
		return nil, fmt.Errorf("load campaign: %w", err)
	}

	if progress != nil {
		progress(0, 2)
	}

	input := s.buildInput(company, campaign, strategy)
	output, cacheHit, err := s.draft(ctx, strategy, input)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(1, 2)
	}

	validated, err := quality.ValidatePiece(quality.PieceCandidate{
		ContentType:  strategy.ContentType,
		Title:        output.Title,
		Body:         output.Body,
		Summary:      output.Summary,
		VisualPrompt: output.VisualPrompt,
		TargetLength: strategy.TargetLength,
		BrandTone:    company.ToneOfVoice,
	})
	if err != nil {
		return nil, &domain.GenerationError{Stage: "content_piece", Cause: err}
	}

	now := time.Now().UTC()
	piece := &domain.ContentPiece{
		ID:             uuid.NewString(),
		StrategyID:     strategy.ID,
		CampaignID:     campaign.ID,
		CompanyID:      company.ID,
		ContentType:    strategy.ContentType,
		Title:          validated.Title,
		Body:           validated.Body,
		Summary:        validated.Summary,
		WordCount:      validated.WordCount,
		VisualPrompt:   validated.VisualPrompt,
		QualityScore:   validated.QualityScore,
		BrandAlignment: validated.BrandAlignment,
		Status:         domain.PieceStatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.records.CreatePiece(ctx, piece); err != nil {
		return nil, fmt.Errorf("persist piece: %w", err)
	}
	if progress != nil {
		progress(2, 2)
	}

	s.logger.WithFields(logrus.Fields{
		"company_id":   company.ID,
		"strategy_id":  strategy.ID,
		"piece_id":     piece.ID,
		"content_type": string(piece.ContentType),
		"word_count":   piece.WordCount,
		"cache_hit":    cacheHit,
	}).Info("content piece drafted")

	result := PieceGenerateResult{
		CompanyID:    company.ID,
		StrategyID:   strategy.ID,
		PieceID:      piece.ID,
		ContentType:  string(piece.ContentType),
		WordCount:    piece.WordCount,
		QualityScore: piece.QualityScore,
		CacheHit:     cacheHit,
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode piece result: %w", err)
	}
	return encoded, nil
}

func (s *PieceStage) buildInput(
	company *domain.CompanyProfile,
	campaign *domain.Campaign,
	strategy *domain.ContentStrategy,
) string {
	outline := "writer's choice"
	if len(strategy.StructureOutline) > 0 {
		outline = strings.Join(strategy.StructureOutline, "; ")
	}
	return fmt.Sprintf(
		"%s\n\nCampaign headline: %s\nCampaign body: %s\nFormat: %s\nTarget length: %d words\nTone direction: %s\nOutline: %s\nStrategy notes: %s",
		company.PromptContext(), campaign.Headline, campaign.BodyCopy,
		strategy.ContentType, strategy.TargetLength, strategy.ToneDirection,
		outline, strategy.Reasoning,
	)
}

func (s *PieceStage) draft(
	ctx context.Context,
	strategy *domain.ContentStrategy,
	input string,
) (pieceOutput, bool, error) {
	var output pieceOutput

	signature := ""
	if s.genCache != nil {
		signature = s.genCache.BuildSignature("content_piece", string(strategy.ContentType), input)
		if entry, ok := s.genCache.Get(signature); ok {
			if err := json.Unmarshal(entry.Value, &output); err == nil {
				s.recordCacheLookup("hit")
				return output, true, nil
			}
			// Stale or corrupt cache payload, regenerate.
		}
		s.recordCacheLookup("miss")
	}

	instructions := pieceInstructions
	if strategy.VisualNeeded {
		instructions += "\nThe visual_prompt field is required for this format."
	}

	generated, err := s.generator.Generate(ctx, ai.GenerateRequest{
		Stage:           "content_piece",
		Instructions:    instructions,
		Input:           input,
		Temperature:     0.7,
		MaxOutputTokens: 4000,
	})
	if err != nil {
		return pieceOutput{}, false, &domain.GenerationError{Stage: "content_piece", Cause: err}
	}

	raw := extractJSON(generated.Text)
	if err := json.Unmarshal(raw, &output); err != nil {
		return pieceOutput{}, false, &domain.GenerationError{
			Stage: "content_piece",
			Cause: fmt.Errorf("decode piece output: %w", err),
		}
	}

	if s.genCache != nil {
		s.genCache.Set(signature, cache.Entry{Value: raw, ModelID: generated.ModelID})
	}
	return output, false, nil
}

func (s *PieceStage) recordCacheLookup(outcome string) {
	if s.collector != nil {
		s.collector.CacheHits.WithLabelValues(outcome).Inc()
	}
}

const pieceInstructions = `You are a senior content writer. Draft the complete piece in the
requested format, honoring the tone direction, outline and target length.
Respond with a single JSON object and nothing else:
{"title": string, "body": the full piece text, "summary": 1-2 sentences,
"visual_prompt": description for an accompanying visual, or empty string}`
