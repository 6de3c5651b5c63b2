package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/repository"
)

// SignalSource provides raw market signals from an upstream feed.
type SignalSource interface {
	Fetch(ctx context.Context, categories []string) ([]*domain.TrendSignal, error)
}

// SignalStage pulls fresh signals, scores their relevance for the company,
// applies learned calibration and persists the ranked set.
type SignalStage struct {
	records repository.RecordsRepository
	params  repository.ParamsRepository
	source  SignalSource
	logger  *logrus.Entry
}

func NewSignalStage(
	records repository.RecordsRepository,
	params repository.ParamsRepository,
	source SignalSource,
	logger *logrus.Entry,
) *SignalStage {
	return &SignalStage{records: records, params: params, source: source, logger: logger}
}

// SignalRefreshResult is the job result payload for signal_refresh.
type SignalRefreshResult struct {
	CompanyID string             `json:"company_id"`
	Signals   []RankedSignalItem `json:"signals"`
	FetchedAt time.Time          `json:"fetched_at"`
}

type RankedSignalItem struct {
	SignalID       string  `json:"signal_id"`
	Title          string  `json:"title"`
	Category       string  `json:"category"`
	Relevance      float64 `json:"relevance"`
	Confidence     float64 `json:"confidence"`
	CompositeScore float64 `json:"composite_score"`
}

func (s *SignalStage) Run(
	ctx context.Context,
	company *domain.CompanyProfile,
	payload SignalRefreshPayload,
) (json.RawMessage, error) {
	fetched, err := s.source.Fetch(ctx, payload.Categories)
	if err != nil {
		return nil, &domain.GenerationError{Stage: "signal_fetch", Cause: err}
	}

	calibrations, err := s.params.ListCalibrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load calibrations: %w", err)
	}
	calibIndex := make(map[string]float64, len(calibrations))
	for _, entry := range calibrations {
		calibIndex[calibrationKey(entry.Category, entry.Bucket)] = entry.Adjustment
	}

	limit := payload.Limit
	if limit <= 0 {
		limit = 10
	}

	now := time.Now().UTC()
	for _, signal := range fetched {
		if signal.ID == "" {
			signal.ID = uuid.NewString()
		}
		if signal.SurfacedAt.IsZero() {
			signal.SurfacedAt = now
		}
		if signal.RelevanceScores == nil {
			signal.RelevanceScores = make(map[string]float64)
		}
		signal.RelevanceScores[company.ID] = relevanceScore(signal, company)

		bucket := domain.ProbabilityBucket(signal.Probability)
		adjustment := calibIndex[calibrationKey(signal.Category, bucket)]
		signal.ConfidenceScore = clampUnit(signal.Probability + adjustment)

		if err := s.records.UpsertSignal(ctx, signal); err != nil {
			return nil, fmt.Errorf("persist signal %s: %w", signal.ID, err)
		}
	}

	ranked, err := s.records.ListSignals(ctx, repository.SignalListFilter{
		CompanyID: company.ID,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("rank signals: %w", err)
	}

	items := make([]RankedSignalItem, 0, len(ranked))
	for _, signal := range ranked {
		items = append(items, RankedSignalItem{
			SignalID:       signal.ID,
			Title:          signal.Title,
			Category:       signal.Category,
			Relevance:      signal.RelevanceScores[company.ID],
			Confidence:     signal.ConfidenceScore,
			CompositeScore: signal.CompositeScore(company.ID),
		})
	}

	s.logger.WithFields(logrus.Fields{
		"company_id": company.ID,
		"fetched":    len(fetched),
		"ranked":     len(items),
	}).Info("signal refresh complete")

	result := SignalRefreshResult{CompanyID: company.ID, Signals: items, FetchedAt: now}
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode signal result: %w", err)
	}
	return encoded, nil
}

// relevanceScore estimates how much a signal matters to one brand from
// keyword overlap with its profile. Base 0.2, +0.15 per matched term.
func relevanceScore(signal *domain.TrendSignal, company *domain.CompanyProfile) float64 {
	haystack := strings.ToLower(signal.Title + " " + signal.Category)
	terms := collectProfileTerms(company)

	score := 0.2
	for term := range terms {
		if strings.Contains(haystack, term) {
			score += 0.15
		}
	}
	return clampUnit(score)
}

func collectProfileTerms(company *domain.CompanyProfile) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, field := range []string{company.Industry, company.TargetAudience, company.CampaignGoals} {
		for _, word := range strings.Fields(strings.ToLower(field)) {
			word = strings.Trim(word, ".,;:!?\"'()")
			if len(word) < 4 {
				continue
			}
			terms[word] = struct{}{}
		}
	}
	return terms
}

func calibrationKey(category string, bucket float64) string {
	return fmt.Sprintf("%s|%.2f", category, bucket)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SeedSignalSource serves a fixed signal set when no market feed is
// configured, keeping local development functional.
type SeedSignalSource struct {
	signals []*domain.TrendSignal
}

func NewSeedSignalSource(signals []*domain.TrendSignal) *SeedSignalSource {
	return &SeedSignalSource{signals: signals}
}

func (s *SeedSignalSource) Fetch(_ context.Context, categories []string) ([]*domain.TrendSignal, error) {
	if len(categories) == 0 {
		out := make([]*domain.TrendSignal, 0, len(s.signals))
		for _, signal := range s.signals {
			clone := *signal
			out = append(out, &clone)
		}
		return out, nil
	}

	wanted := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		wanted[strings.ToLower(category)] = struct{}{}
	}
	out := make([]*domain.TrendSignal, 0)
	for _, signal := range s.signals {
		if _, ok := wanted[strings.ToLower(signal.Category)]; ok {
			clone := *signal
			out = append(out, &clone)
		}
	}
	return out, nil
}

// DefaultSeedSignals is the development seed set used when no market feed is
// configured.
func DefaultSeedSignals() []*domain.TrendSignal {
	return []*domain.TrendSignal{
		{
			MarketID:            "mkt-ai-coding",
			Title:               "Will AI coding assistants be used by a majority of developers this year?",
			Category:            "ai_tools",
			Probability:         0.82,
			ProbabilityMomentum: 0.6,
			Volume:              42000,
			VolumeVelocity:      0.7,
		},
		{
			MarketID:            "mkt-remote-work",
			Title:               "Will large tech employers expand remote-first hiring?",
			Category:            "future_of_work",
			Probability:         0.58,
			ProbabilityMomentum: 0.3,
			Volume:              18000,
			VolumeVelocity:      0.4,
		},
		{
			MarketID:            "mkt-creator-economy",
			Title:               "Will short-form video ad spend overtake display this quarter?",
			Category:            "creator_economy",
			Probability:         0.64,
			ProbabilityMomentum: 0.5,
			Volume:              25000,
			VolumeVelocity:      0.55,
		},
		{
			MarketID:            "mkt-data-privacy",
			Title:               "Will new consumer privacy rules pass before year end?",
			Category:            "regulation",
			Probability:         0.41,
			ProbabilityMomentum: 0.2,
			Volume:              9000,
			VolumeVelocity:      0.25,
		},
		{
			MarketID:            "mkt-open-models",
			Title:               "Will open-weight models close the quality gap with frontier APIs?",
			Category:            "ai_tools",
			Probability:         0.47,
			ProbabilityMomentum: 0.45,
			Volume:              31000,
			VolumeVelocity:      0.6,
		},
	}
}
