package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/repository"
)

func seedCampaign(t *testing.T, records repository.RecordsRepository, companyID string) *domain.Campaign {
	t.Helper()
	now := time.Now().UTC()
	campaign := &domain.Campaign{
		ID:                    "camp-1",
		CompanyID:             companyID,
		SignalID:              "sig-1",
		Headline:              "Adoption odds keep climbing",
		BodyCopy:              "The market keeps moving and brands should move with it.",
		ChannelRecommendation: domain.ChannelLinkedIn,
		Status:                domain.CampaignStatusDraft,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := records.CreateCampaign(context.Background(), campaign); err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
	return campaign
}

func TestStrategyStagePersistsSelectedFormats(t *testing.T) {
	records := repository.NewMemoryRecordsRepository()
	generator := newStubGenerator()
	stage := NewStrategyStage(records, repository.NewMemoryParamsRepository(), generator, testLogger())

	company := &domain.CompanyProfile{ID: "co-1", ToneOfVoice: "confident", TargetAudience: "b2b teams"}
	campaign := seedCampaign(t, records, company.ID)

	raw, err := stage.Run(context.Background(), company, StrategyGeneratePayload{CampaignID: campaign.ID}, nil)
	if err != nil {
		t.Fatalf("expected strategy run to succeed: %v", err)
	}

	var result StrategyGenerateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Strategies) != 2 {
		t.Fatalf("expected 2 strategies from stub output, got %d", len(result.Strategies))
	}

	stored, err := records.ListStrategies(context.Background(), repository.StrategyListFilter{CampaignID: campaign.ID})
	if err != nil || len(stored) != 2 {
		t.Fatalf("expected 2 persisted strategies, got %d err=%v", len(stored), err)
	}
	// The memory repository orders by priority; blog_post carries 0.9.
	if stored[0].ContentType != domain.ContentTypeBlogPost {
		t.Fatalf("expected blog_post ranked first, got %s", stored[0].ContentType)
	}
	if stored[0].TargetLength != 1500 || len(stored[0].StructureOutline) != 3 {
		t.Fatalf("unexpected blog_post strategy: %+v", stored[0])
	}
}

func TestStrategyStageNormalizesAdapterOutput(t *testing.T) {
	records := repository.NewMemoryRecordsRepository()
	generator := newStubGenerator()
	// Unknown format, duplicate, and a reasoning-free item must all be
	// dropped; missing fields fall back to format defaults.
	generator.responses["content_strategy"] = `{"strategies":[
		{"content_type":"whitepaper","reasoning":"not a real format"},
		{"content_type":"tweet_thread","reasoning":"fast distribution","target_length":0,"priority_score":2.5},
		{"content_type":"tweet_thread","reasoning":"duplicate"},
		{"content_type":"newsletter","reasoning":""}]}`
	stage := NewStrategyStage(records, repository.NewMemoryParamsRepository(), generator, testLogger())

	company := &domain.CompanyProfile{ID: "co-1", ToneOfVoice: "warm"}
	campaign := seedCampaign(t, records, company.ID)

	raw, err := stage.Run(context.Background(), company, StrategyGeneratePayload{CampaignID: campaign.ID}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var result StrategyGenerateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Strategies) != 1 || result.Strategies[0].ContentType != "tweet_thread" {
		t.Fatalf("expected only the valid tweet_thread item, got %+v", result.Strategies)
	}
	// target_length 0 falls back to the format's ideal length.
	if result.Strategies[0].TargetLength != 400 {
		t.Fatalf("expected ideal length fallback 400, got %d", result.Strategies[0].TargetLength)
	}
	// priority_score outside (0, 1] falls back to the heuristic score.
	if result.Strategies[0].PriorityScore <= 0 || result.Strategies[0].PriorityScore > 1 {
		t.Fatalf("expected heuristic priority fallback, got %v", result.Strategies[0].PriorityScore)
	}

	stored, err := records.ListStrategies(context.Background(), repository.StrategyListFilter{CampaignID: campaign.ID})
	if err != nil || len(stored) != 1 {
		t.Fatalf("expected one persisted strategy, got %d err=%v", len(stored), err)
	}
	if stored[0].ToneDirection != "warm" {
		t.Fatalf("expected company tone fallback, got %q", stored[0].ToneDirection)
	}
}

func TestStrategyStageFailsWhenNothingValid(t *testing.T) {
	records := repository.NewMemoryRecordsRepository()
	generator := newStubGenerator()
	generator.responses["content_strategy"] = `{"strategies":[{"content_type":"whitepaper","reasoning":"invalid"}]}`
	stage := NewStrategyStage(records, repository.NewMemoryParamsRepository(), generator, testLogger())

	company := &domain.CompanyProfile{ID: "co-1"}
	campaign := seedCampaign(t, records, company.ID)

	_, err := stage.Run(context.Background(), company, StrategyGeneratePayload{CampaignID: campaign.ID}, nil)
	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected generation error for empty valid set, got %v", err)
	}
}

func TestStrategyStageHidesForeignCampaigns(t *testing.T) {
	records := repository.NewMemoryRecordsRepository()
	stage := NewStrategyStage(records, repository.NewMemoryParamsRepository(), newStubGenerator(), testLogger())

	campaign := seedCampaign(t, records, "co-owner")
	other := &domain.CompanyProfile{ID: "co-other"}

	_, err := stage.Run(context.Background(), other, StrategyGeneratePayload{CampaignID: campaign.ID}, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for foreign campaign, got %v", err)
	}

	_, err = stage.Run(context.Background(), other, StrategyGeneratePayload{CampaignID: "missing"}, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown campaign, got %v", err)
	}
}
