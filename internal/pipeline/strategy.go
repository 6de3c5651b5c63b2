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
	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/repository"
)

const (
	defaultStrategyItems = 3
	maxStrategyItems     = 3
)

// StrategyStage decides which content formats a campaign should be produced
// in. Formats are pre-scored heuristically, the adapter picks and details the
// top ones, and each selected format becomes one ContentStrategy record.
type StrategyStage struct {
	records   repository.RecordsRepository
	params    repository.ParamsRepository
	generator ai.Generator
	logger    *logrus.Entry
}

func NewStrategyStage(
	records repository.RecordsRepository,
	params repository.ParamsRepository,
	generator ai.Generator,
	logger *logrus.Entry,
) *StrategyStage {
	return &StrategyStage{records: records, params: params, generator: generator, logger: logger}
}

// StrategyGenerateResult is the job result payload for
// content_strategy_generate.
type StrategyGenerateResult struct {
	CompanyID  string               `json:"company_id"`
	CampaignID string               `json:"campaign_id"`
	Strategies []StrategyResultItem `json:"strategies"`
}

type StrategyResultItem struct {
	StrategyID    string  `json:"strategy_id"`
	ContentType   string  `json:"content_type"`
	PriorityScore float64 `json:"priority_score"`
	TargetLength  int     `json:"target_length"`
	VisualNeeded  bool    `json:"visual_needed"`
}

// strategyOutput is the JSON contract the adapter is instructed to return:
// an array of selected formats with production direction for each.
type strategyOutput struct {
	Strategies []strategyOutputItem `json:"strategies"`
}

type strategyOutputItem struct {
	ContentType      string   `json:"content_type"`
	Reasoning        string   `json:"reasoning"`
	TargetLength     int      `json:"target_length"`
	ToneDirection    string   `json:"tone_direction"`
	StructureOutline []string `json:"structure_outline"`
	PriorityScore    float64  `json:"priority_score"`
}

func (s *StrategyStage) Run(
	ctx context.Context,
	company *domain.CompanyProfile,
	payload StrategyGeneratePayload,
	progress func(step, total int),
) (json.RawMessage, error) {
	campaign, err := s.records.GetCampaign(ctx, payload.CampaignID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, fmt.Errorf("%w: campaign %s", domain.ErrNotFound, payload.CampaignID)
		}
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	if campaign.CompanyID != company.ID {
		return nil, fmt.Errorf("%w: campaign %s", domain.ErrNotFound, payload.CampaignID)
	}

	maxItems := payload.MaxItems
	if maxItems <= 0 {
		maxItems = defaultStrategyItems
	}
	if maxItems > maxStrategyItems {
		maxItems = maxStrategyItems
	}

	if progress != nil {
		progress(0, 2)
	}

	scored := s.scoreFormats(company)
	output, err := s.recommend(ctx, company, campaign, scored, maxItems)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(1, 2)
	}

	strategies, err := s.normalize(company, campaign, scored, output, maxItems)
	if err != nil {
		return nil, err
	}

	for _, strategy := range strategies {
		if err := s.records.CreateStrategy(ctx, strategy); err != nil {
			return nil, fmt.Errorf("persist strategy: %w", err)
		}
	}
	if progress != nil {
		progress(2, 2)
	}

	items := make([]StrategyResultItem, 0, len(strategies))
	for _, strategy := range strategies {
		items = append(items, StrategyResultItem{
			StrategyID:    strategy.ID,
			ContentType:   string(strategy.ContentType),
			PriorityScore: strategy.PriorityScore,
			TargetLength:  strategy.TargetLength,
			VisualNeeded:  strategy.VisualNeeded,
		})
	}

	s.logger.WithFields(logrus.Fields{
		"company_id":  company.ID,
		"campaign_id": campaign.ID,
		"strategies":  len(items),
	}).Info("content strategy complete")

	result := StrategyGenerateResult{
		CompanyID:  company.ID,
		CampaignID: campaign.ID,
		Strategies: items,
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode strategy result: %w", err)
	}
	return encoded, nil
}

type scoredFormat struct {
	contentType domain.ContentType
	score       float64
	channel     domain.Channel
}

func (s *StrategyStage) scoreFormats(company *domain.CompanyProfile) map[domain.ContentType]scoredFormat {
	scored := make(map[domain.ContentType]scoredFormat, len(domain.ContentTypes))
	for _, contentType := range domain.ContentTypes {
		score, channel := FormatScore(company, contentType)
		scored[contentType] = scoredFormat{contentType: contentType, score: score, channel: channel}
	}
	return scored
}

func (s *StrategyStage) recommend(
	ctx context.Context,
	company *domain.CompanyProfile,
	campaign *domain.Campaign,
	scored map[domain.ContentType]scoredFormat,
	maxItems int,
) (strategyOutput, error) {
	catalog := make([]string, 0, len(domain.ContentTypes))
	for _, contentType := range domain.ContentTypes {
		meta := contentType.Meta()
		entry := scored[contentType]
		catalog = append(catalog, fmt.Sprintf(
			"- %s: target %d words, max %d, visual=%s, heuristic fit %.2f (best channel %s)",
			contentType, meta.IdealLength, meta.MaxLength, meta.VisualWeight,
			entry.score, entry.channel,
		))
	}

	input := fmt.Sprintf(
		"%s\n\nCampaign headline: %s\nCampaign body: %s\nRecommended channel: %s\n\nFormat catalog:\n%s\n\nSelect up to %d formats.",
		company.PromptContext(), campaign.Headline, campaign.BodyCopy,
		campaign.ChannelRecommendation, strings.Join(catalog, "\n"), maxItems,
	)

	generated, err := s.generator.Generate(ctx, ai.GenerateRequest{
		Stage:           "content_strategy",
		Instructions:    strategyInstructions,
		Input:           input,
		Temperature:     0.4,
		MaxOutputTokens: 1200,
	})
	if err != nil {
		return strategyOutput{}, &domain.GenerationError{Stage: "content_strategy", Cause: err}
	}

	var output strategyOutput
	if err := json.Unmarshal(extractJSON(generated.Text), &output); err != nil {
		return strategyOutput{}, &domain.GenerationError{
			Stage: "content_strategy",
			Cause: fmt.Errorf("decode strategy output: %w", err),
		}
	}
	return output, nil
}

// normalize validates the adapter's picks and fills gaps from the format
// heuristics. Items with an unknown content type or empty reasoning are
// dropped; an empty final set fails the stage.
func (s *StrategyStage) normalize(
	company *domain.CompanyProfile,
	campaign *domain.Campaign,
	scored map[domain.ContentType]scoredFormat,
	output strategyOutput,
	maxItems int,
) ([]*domain.ContentStrategy, error) {
	now := time.Now().UTC()
	seen := make(map[domain.ContentType]bool, maxItems)
	strategies := make([]*domain.ContentStrategy, 0, maxItems)

	for _, item := range output.Strategies {
		if len(strategies) >= maxItems {
			break
		}
		contentType := domain.ContentType(strings.ToLower(strings.TrimSpace(item.ContentType)))
		if !contentType.Valid() || seen[contentType] {
			s.logger.WithFields(logrus.Fields{
				"campaign_id":  campaign.ID,
				"content_type": item.ContentType,
			}).Warn("dropping strategy item")
			continue
		}
		reasoning := strings.TrimSpace(item.Reasoning)
		if reasoning == "" {
			s.logger.WithField("content_type", string(contentType)).Warn("dropping strategy item without reasoning")
			continue
		}
		seen[contentType] = true

		meta := contentType.Meta()
		targetLength := item.TargetLength
		if targetLength <= 0 || targetLength > meta.MaxLength {
			targetLength = meta.IdealLength
		}
		toneDirection := strings.TrimSpace(item.ToneDirection)
		if toneDirection == "" {
			toneDirection = company.ToneOfVoice
		}
		priority := item.PriorityScore
		if priority <= 0 || priority > 1 {
			priority = scored[contentType].score
		}
		outline := make([]string, 0, len(item.StructureOutline))
		for _, section := range item.StructureOutline {
			if trimmed := strings.TrimSpace(section); trimmed != "" {
				outline = append(outline, trimmed)
			}
		}

		strategies = append(strategies, &domain.ContentStrategy{
			ID:               uuid.NewString(),
			CampaignID:       campaign.ID,
			CompanyID:        company.ID,
			ContentType:      contentType,
			Reasoning:        reasoning,
			TargetLength:     targetLength,
			ToneDirection:    toneDirection,
			StructureOutline: outline,
			PriorityScore:    round2(priority),
			VisualNeeded:     meta.VisualWeight == "high",
			CreatedAt:        now,
		})
	}

	if len(strategies) == 0 {
		return nil, &domain.GenerationError{
			Stage: "content_strategy",
			Cause: fmt.Errorf("no valid strategy in adapter output"),
		}
	}
	return strategies, nil
}

const strategyInstructions = `You are a content strategist. Given a campaign and a catalog of
content formats with heuristic fit scores, pick the formats worth producing.
Respond with a single JSON object and nothing else:
{"strategies": [{"content_type": catalog key, "reasoning": string,
"target_length": word count, "tone_direction": string,
"structure_outline": [section titles], "priority_score": 0..1}]}
Order strategies best first.`
