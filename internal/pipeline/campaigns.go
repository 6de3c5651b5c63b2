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
	"github.com/signalhq/signal-backend/internal/quality"
	"github.com/signalhq/signal-backend/internal/repository"
)

const (
	defaultConceptCount = 3
	maxConceptCount     = 5
)

// CampaignStage turns ranked signals into validated campaign concepts, then
// routes each concept to its best channel. Generation is all-or-nothing: if
// any concept fails validation, nothing is persisted and the job fails. A
// failed safety screen only flags the concept.
type CampaignStage struct {
	records   repository.RecordsRepository
	params    repository.ParamsRepository
	generator ai.Generator
	logger    *logrus.Entry
}

func NewCampaignStage(
	records repository.RecordsRepository,
	params repository.ParamsRepository,
	generator ai.Generator,
	logger *logrus.Entry,
) *CampaignStage {
	return &CampaignStage{records: records, params: params, generator: generator, logger: logger}
}

// CampaignGenerateResult is the job result payload for campaign_generate.
type CampaignGenerateResult struct {
	CompanyID string               `json:"company_id"`
	SignalIDs []string             `json:"signal_ids"`
	Campaigns []CampaignResultItem `json:"campaigns"`
}

type CampaignResultItem struct {
	CampaignID   string   `json:"campaign_id"`
	SignalID     string   `json:"signal_id"`
	Headline     string   `json:"headline"`
	Channel      string   `json:"channel"`
	Confidence   float64  `json:"confidence"`
	SafetyScore  float64  `json:"safety_score"`
	SafetyPassed bool     `json:"safety_passed"`
	Issues       []string `json:"issues,omitempty"`
}

// conceptOutput is the JSON contract the adapter is instructed to return for
// a concept call.
type conceptOutput struct {
	Headline        string `json:"headline"`
	Body            string `json:"body"`
	VisualDirection string `json:"visual_direction"`
	Tone            string `json:"tone"`
	Hook            string `json:"hook"`
}

// routingOutput is the JSON contract for a distribution routing call.
type routingOutput struct {
	Channel   string `json:"channel"`
	Reasoning string `json:"reasoning"`
}

func (s *CampaignStage) Run(
	ctx context.Context,
	company *domain.CompanyProfile,
	payload CampaignGeneratePayload,
	progress func(step, total int),
) (json.RawMessage, error) {
	signals, err := s.resolveSignals(ctx, company, payload.SignalIDs)
	if err != nil {
		return nil, err
	}

	params, err := s.params.GetParameters(ctx, company.ID)
	if err != nil {
		return nil, fmt.Errorf("load parameters: %w", err)
	}
	patterns, err := s.params.ListSharedPatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("load shared patterns: %w", err)
	}

	conceptCount := payload.ConceptCount
	if conceptCount <= 0 {
		conceptCount = defaultConceptCount
	}
	if conceptCount > maxConceptCount {
		conceptCount = maxConceptCount
	}

	threshold := company.SafetyThreshold
	if threshold <= 0 {
		threshold = 0.7
	}

	// Two adapter calls per concept: generation, then routing.
	totalSteps := conceptCount * 2
	step := 0

	validated := make([]*domain.Campaign, 0, conceptCount)
	items := make([]CampaignResultItem, 0, conceptCount)
	now := time.Now().UTC()

	for index := 0; index < conceptCount; index++ {
		signal := signals[index%len(signals)]

		promptContext := NewPromptContext().
			AddCompany(company).
			AddSignal(signal).
			AddWeights(params, 4).
			AddSharedPatterns(patterns, 3).
			Render(2500)

		if progress != nil {
			progress(step, totalSteps)
		}
		concept, err := s.generateConcept(ctx, promptContext, index, conceptCount)
		if err != nil {
			return nil, err
		}
		step++

		if progress != nil {
			progress(step, totalSteps)
		}
		channel, reasoning, err := s.routeConcept(ctx, company, concept)
		if err != nil {
			return nil, err
		}
		step++

		safety := quality.ScreenCopy(concept.Headline, concept.Body)
		passed := safety.Passed(threshold)

		campaign := &domain.Campaign{
			ID:                    uuid.NewString(),
			CompanyID:             company.ID,
			SignalID:              signal.ID,
			Headline:              concept.Headline,
			BodyCopy:              concept.Body,
			VisualDirection:       concept.VisualDirection,
			ChannelRecommendation: channel,
			ChannelReasoning:      reasoning,
			ToneTag:               concept.ToneTag,
			HookTag:               concept.HookTag,
			ConfidenceScore:       concept.Confidence,
			SafetyScore:           safety.Score,
			SafetyPassed:          passed,
			SafetyFlags:           safety.FlagCodes(),
			Status:                domain.CampaignStatusDraft,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		validated = append(validated, campaign)
		items = append(items, CampaignResultItem{
			CampaignID:   campaign.ID,
			SignalID:     signal.ID,
			Headline:     campaign.Headline,
			Channel:      string(channel),
			Confidence:   campaign.ConfidenceScore,
			SafetyScore:  campaign.SafetyScore,
			SafetyPassed: passed,
			Issues:       concept.Issues,
		})
	}

	// All concepts validated and routed; persist as one batch.
	for _, campaign := range validated {
		if err := s.records.CreateCampaign(ctx, campaign); err != nil {
			return nil, fmt.Errorf("persist campaign: %w", err)
		}
	}
	if progress != nil {
		progress(totalSteps, totalSteps)
	}

	signalIDs := make([]string, 0, len(signals))
	for _, signal := range signals {
		signalIDs = append(signalIDs, signal.ID)
	}

	s.logger.WithFields(logrus.Fields{
		"company_id": company.ID,
		"signals":    len(signals),
		"campaigns":  len(validated),
	}).Info("campaign generation complete")

	result := CampaignGenerateResult{CompanyID: company.ID, SignalIDs: signalIDs, Campaigns: items}
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode campaign result: %w", err)
	}
	return encoded, nil
}

func (s *CampaignStage) resolveSignals(
	ctx context.Context,
	company *domain.CompanyProfile,
	signalIDs []string,
) ([]*domain.TrendSignal, error) {
	if len(signalIDs) > 0 {
		signals := make([]*domain.TrendSignal, 0, len(signalIDs))
		for _, signalID := range signalIDs {
			signal, err := s.records.GetSignal(ctx, signalID)
			if err != nil {
				if err == repository.ErrNotFound {
					return nil, fmt.Errorf("%w: signal %s", domain.ErrNotFound, signalID)
				}
				return nil, fmt.Errorf("load signal %s: %w", signalID, err)
			}
			signals = append(signals, signal)
		}
		return signals, nil
	}

	ranked, err := s.records.ListSignals(ctx, repository.SignalListFilter{
		CompanyID: company.ID,
		Limit:     maxConceptCount,
	})
	if err != nil {
		return nil, fmt.Errorf("rank signals: %w", err)
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("%w: no live signals for company %s", domain.ErrNotFound, company.ID)
	}
	return ranked, nil
}

func (s *CampaignStage) generateConcept(
	ctx context.Context,
	promptContext string,
	index, total int,
) (quality.ConceptResult, error) {
	generated, err := s.generator.Generate(ctx, ai.GenerateRequest{
		Stage:           "campaign_concept",
		Instructions:    conceptInstructions,
		Input:           fmt.Sprintf("%s\n\nWrite concept %d of %d. Make it distinct.", promptContext, index+1, total),
		Temperature:     0.8,
		MaxOutputTokens: 900,
	})
	if err != nil {
		return quality.ConceptResult{}, &domain.GenerationError{Stage: "campaign_concept", Cause: err}
	}

	var output conceptOutput
	if err := json.Unmarshal(extractJSON(generated.Text), &output); err != nil {
		return quality.ConceptResult{}, &domain.GenerationError{
			Stage: "campaign_concept",
			Cause: fmt.Errorf("decode concept %d: %w", index+1, err),
		}
	}

	concept, err := quality.ValidateConcept(quality.ConceptCandidate{
		Headline:        output.Headline,
		Body:            output.Body,
		VisualDirection: output.VisualDirection,
		ToneTag:         output.Tone,
		HookTag:         output.Hook,
	})
	if err != nil {
		return quality.ConceptResult{}, &domain.GenerationError{Stage: "campaign_concept", Cause: err}
	}
	return concept, nil
}

func (s *CampaignStage) routeConcept(
	ctx context.Context,
	company *domain.CompanyProfile,
	concept quality.ConceptResult,
) (domain.Channel, string, error) {
	candidates := RankChannels(company)
	candidateNames := make([]string, 0, len(candidates))
	for _, channel := range candidates {
		candidateNames = append(candidateNames, fmt.Sprintf("%s (audience fit %.2f)",
			channel, AudienceFit(company, channel)))
	}

	input := fmt.Sprintf(
		"Brand audience: %s\nHeadline: %s\nBody: %s\nChannels by heuristic fit:\n%s",
		company.TargetAudience, concept.Headline, concept.Body,
		strings.Join(candidateNames, "\n"),
	)

	generated, err := s.generator.Generate(ctx, ai.GenerateRequest{
		Stage:           "distribution_routing",
		Instructions:    routingInstructions,
		Input:           input,
		Temperature:     0.3,
		MaxOutputTokens: 300,
	})
	if err != nil {
		return "", "", &domain.GenerationError{Stage: "distribution_routing", Cause: err}
	}

	var output routingOutput
	if err := json.Unmarshal(extractJSON(generated.Text), &output); err != nil {
		return "", "", &domain.GenerationError{
			Stage: "distribution_routing",
			Cause: fmt.Errorf("decode routing: %w", err),
		}
	}

	channel := domain.Channel(strings.ToLower(strings.TrimSpace(output.Channel)))
	if !channel.Valid() {
		return "", "", &domain.GenerationError{
			Stage: "distribution_routing",
			Cause: fmt.Errorf("unknown channel %q", output.Channel),
		}
	}
	reasoning := strings.TrimSpace(output.Reasoning)
	if reasoning == "" {
		return "", "", &domain.GenerationError{
			Stage: "distribution_routing",
			Cause: fmt.Errorf("empty routing reasoning"),
		}
	}
	return channel, reasoning, nil
}

const conceptInstructions = `You are a senior brand copywriter. Produce one marketing campaign concept.
Respond with a single JSON object and nothing else, using exactly these keys:
{"headline": string (max 20 words), "body": string (50-150 words),
"visual_direction": string describing the accompanying visual,
"tone": one of "tone_confident","tone_playful","tone_urgent","tone_warm",
"hook": one of "hook_question","hook_statistic","hook_story","hook_bold_claim"}`

const routingInstructions = `You route marketing concepts to distribution channels.
Respond with a single JSON object and nothing else:
{"channel": one of "twitter","linkedin","instagram","newsletter",
"reasoning": one or two sentences}`

// extractJSON pulls the first JSON object out of model text that may be
// wrapped in markdown fences or prose.
func extractJSON(text string) json.RawMessage {
	trimmed := strings.TrimSpace(text)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		return json.RawMessage(trimmed[start : end+1])
	}
	return json.RawMessage(trimmed)
}
