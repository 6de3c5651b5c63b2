package feedback

import (
	"context"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/repository"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

type fixture struct {
	records *repository.MemoryRecordsRepository
	params  *repository.MemoryParamsRepository
	engine  *Engine
}

func newFixture(t *testing.T, config EngineConfig) *fixture {
	t.Helper()
	records := repository.NewMemoryRecordsRepository()
	params := repository.NewMemoryParamsRepository()
	return &fixture{
		records: records,
		params:  params,
		engine:  NewEngine(records, params, config, nil, testLogger()),
	}
}

// seedOutcome writes a signal, a posted campaign on it and one engagement
// metric, then returns the metric.
func (f *fixture) seedOutcome(
	t *testing.T,
	companyID, suffix string,
	probability, engagement float64,
	recordedAt time.Time,
) *domain.Metric {
	t.Helper()
	ctx := context.Background()

	signal := &domain.TrendSignal{
		ID:          "sig-" + suffix,
		Category:    "ai_tools",
		Probability: probability,
		SurfacedAt:  recordedAt,
	}
	if err := f.records.UpsertSignal(ctx, signal); err != nil {
		t.Fatalf("seed signal: %v", err)
	}

	campaign := &domain.Campaign{
		ID:        "camp-" + suffix,
		CompanyID: companyID,
		SignalID:  signal.ID,
		Headline:  "seeded",
		ToneTag:   "tone_confident",
		HookTag:   "hook_statistic",
		Status:    domain.CampaignStatusPosted,
		CreatedAt: recordedAt,
		UpdatedAt: recordedAt,
	}
	if err := f.records.CreateCampaign(ctx, campaign); err != nil {
		t.Fatalf("seed campaign: %v", err)
	}

	metric := &domain.Metric{
		ID:             "met-" + suffix,
		CampaignID:     campaign.ID,
		CompanyID:      companyID,
		Channel:        domain.ChannelLinkedIn,
		EngagementRate: engagement,
		RecordedAt:     recordedAt,
	}
	if err := f.records.AppendMetric(ctx, metric); err != nil {
		t.Fatalf("seed metric: %v", err)
	}
	return metric
}

func TestWeightsLoopSmoothsAndAdvancesWatermark(t *testing.T) {
	f := newFixture(t, EngineConfig{Alpha: 0.3})
	now := time.Now().UTC()
	f.seedOutcome(t, "co-1", "a", 0.82, 0.42, now)

	result := f.engine.runWeights(context.Background(), "co-1")
	if result.Status != domain.LoopStatusRan || result.Updated != 1 {
		t.Fatalf("unexpected loop result: %+v", result)
	}

	params, err := f.params.GetParameters(context.Background(), "co-1")
	if err != nil {
		t.Fatalf("load params: %v", err)
	}
	// 0.5*0.7 + 0.42*0.3 for every touched dimension.
	for _, dimension := range []string{"tone_confident", "hook_statistic", "channel_linkedin"} {
		if got := params.Weights[dimension]; math.Abs(got-0.476) > 1e-9 {
			t.Fatalf("%s: expected 0.476, got %v", dimension, got)
		}
	}
	if !params.Watermarks[LoopWeights].Equal(now) {
		t.Fatalf("expected watermark at newest metric, got %v", params.Watermarks[LoopWeights])
	}
}

func TestWeightsLoopIsIdempotentAcrossReruns(t *testing.T) {
	f := newFixture(t, EngineConfig{Alpha: 0.3})
	f.seedOutcome(t, "co-1", "a", 0.82, 0.42, time.Now().UTC())

	if result := f.engine.runWeights(context.Background(), "co-1"); result.Status != domain.LoopStatusRan {
		t.Fatalf("first run: %+v", result)
	}
	first, _ := f.params.GetParameters(context.Background(), "co-1")

	rerun := f.engine.runWeights(context.Background(), "co-1")
	if rerun.Status != domain.LoopStatusSkipped || rerun.Reason != "no new metrics" {
		t.Fatalf("expected rerun to skip, got %+v", rerun)
	}
	second, _ := f.params.GetParameters(context.Background(), "co-1")
	if second.Weights["channel_linkedin"] != first.Weights["channel_linkedin"] {
		t.Fatalf("rerun must not move weights: %v vs %v",
			first.Weights["channel_linkedin"], second.Weights["channel_linkedin"])
	}
}

func TestWeightsLoopOnlyFoldsNewMetrics(t *testing.T) {
	f := newFixture(t, EngineConfig{Alpha: 0.3})
	base := time.Now().UTC()
	f.seedOutcome(t, "co-1", "a", 0.82, 0.42, base)

	if result := f.engine.runWeights(context.Background(), "co-1"); result.Updated != 1 {
		t.Fatalf("first run: %+v", result)
	}

	f.seedOutcome(t, "co-1", "b", 0.58, 0.9, base.Add(time.Minute))
	result := f.engine.runWeights(context.Background(), "co-1")
	if result.Status != domain.LoopStatusRan || result.Updated != 1 {
		t.Fatalf("expected exactly the new metric to fold in, got %+v", result)
	}

	params, _ := f.params.GetParameters(context.Background(), "co-1")
	// 0.476*0.7 + 0.9*0.3
	if got := params.Weights["channel_linkedin"]; math.Abs(got-0.6032) > 1e-9 {
		t.Fatalf("expected sequential smoothing to 0.6032, got %v", got)
	}
}

func TestPatternsLoopGatesOnDistinctCompanies(t *testing.T) {
	f := newFixture(t, EngineConfig{MinCompanies: 3})
	now := time.Now().UTC()
	f.seedOutcome(t, "co-1", "a", 0.82, 0.4, now)
	f.seedOutcome(t, "co-2", "b", 0.82, 0.6, now)

	result := f.engine.runPatterns(context.Background())
	if result.Status != domain.LoopStatusRan || result.Updated != 0 {
		t.Fatalf("two companies must not publish a pattern: %+v", result)
	}

	f.seedOutcome(t, "co-3", "c", 0.82, 0.8, now)
	result = f.engine.runPatterns(context.Background())
	if result.Updated != 1 {
		t.Fatalf("expected one published pattern, got %+v", result)
	}

	patterns, err := f.params.ListSharedPatterns(context.Background())
	if err != nil || len(patterns) != 1 {
		t.Fatalf("expected one stored pattern, got %d err=%v", len(patterns), err)
	}
	pattern := patterns[0]
	if pattern.Dimension != "channel_category_bucket" {
		t.Fatalf("unexpected dimension %q", pattern.Dimension)
	}
	if pattern.Value != "linkedin|ai_tools|0.80" {
		t.Fatalf("unexpected feature tuple %q", pattern.Value)
	}
	if pattern.CompanyCount != 3 || pattern.SampleCount != 3 {
		t.Fatalf("unexpected counts: %+v", pattern)
	}
	if math.Abs(pattern.AvgEngagement-0.6) > 1e-9 {
		t.Fatalf("expected rounded mean 0.6, got %v", pattern.AvgEngagement)
	}
}

func TestPatternsLoopIsDeterministic(t *testing.T) {
	f := newFixture(t, EngineConfig{MinCompanies: 3})
	now := time.Now().UTC()
	f.seedOutcome(t, "co-1", "a", 0.82, 0.4, now)
	f.seedOutcome(t, "co-2", "b", 0.82, 0.6, now)
	f.seedOutcome(t, "co-3", "c", 0.82, 0.8, now)

	f.engine.runPatterns(context.Background())
	first, _ := f.params.ListSharedPatterns(context.Background())

	f.engine.runPatterns(context.Background())
	second, _ := f.params.ListSharedPatterns(context.Background())

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one pattern per recompute, got %d and %d", len(first), len(second))
	}
	if first[0].ID != second[0].ID || first[0].AvgEngagement != second[0].AvgEngagement {
		t.Fatalf("recompute over unchanged data must be identical: %+v vs %+v", first[0], second[0])
	}
}

func TestCalibrationLoopClampsAndSmoothes(t *testing.T) {
	f := newFixture(t, EngineConfig{Alpha: 0.3})
	now := time.Now().UTC()
	// Outcome 0.05 against probability 0.95: raw miss -0.9 clamps to -0.3.
	f.seedOutcome(t, "co-1", "a", 0.95, 0.05, now)

	result := f.engine.runCalibration(context.Background(), "co-1")
	if result.Status != domain.LoopStatusRan || result.Updated != 1 {
		t.Fatalf("unexpected loop result: %+v", result)
	}

	entry, err := f.params.GetCalibration(context.Background(), "ai_tools", 0.95)
	if err != nil {
		t.Fatalf("load calibration: %v", err)
	}
	// smooth(0, -0.3) with alpha 0.3.
	if math.Abs(entry.Adjustment-(-0.09)) > 1e-9 {
		t.Fatalf("expected adjustment -0.09, got %v", entry.Adjustment)
	}
	if entry.SampleCount != 1 {
		t.Fatalf("expected one sample, got %d", entry.SampleCount)
	}

	rerun := f.engine.runCalibration(context.Background(), "co-1")
	if rerun.Status != domain.LoopStatusSkipped {
		t.Fatalf("expected watermark to skip the rerun, got %+v", rerun)
	}
}

func TestRunFailsOnlyWhenEveryLoopFails(t *testing.T) {
	f := newFixture(t, EngineConfig{})
	// No data at all: weights and calibration skip, patterns skips.
	result, err := f.engine.Run(context.Background(), "co-1", nil)
	if err != nil {
		t.Fatalf("skipped loops must not fail the run: %v", err)
	}
	if len(result.Loops) != 3 {
		t.Fatalf("expected all three loops, got %+v", result.Loops)
	}
	for _, loop := range result.Loops {
		if loop.Status != domain.LoopStatusSkipped {
			t.Fatalf("expected skip without data, got %+v", loop)
		}
	}

	result, err = f.engine.Run(context.Background(), "co-1", []string{"velocity"})
	if err == nil {
		t.Fatalf("expected error when every requested loop fails, got %+v", result)
	}
	var failed int
	for _, loop := range result.Loops {
		if loop.Status == domain.LoopStatusFailed {
			failed++
			if loop.Loop != "velocity" {
				t.Fatalf("unexpected failed loop %+v", loop)
			}
		}
	}
	if failed != 1 {
		t.Fatalf("expected exactly the unknown loop to fail, got %+v", result.Loops)
	}
}

func TestRunReportsUnrequestedLoopsAsSkipped(t *testing.T) {
	f := newFixture(t, EngineConfig{Alpha: 0.3})
	f.seedOutcome(t, "co-1", "a", 0.82, 0.42, time.Now().UTC())

	result, err := f.engine.Run(context.Background(), "co-1", []string{LoopWeights})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Loops) != 3 {
		t.Fatalf("expected an entry per loop, got %+v", result.Loops)
	}

	byName := make(map[string]domain.LoopResult, len(result.Loops))
	for _, loop := range result.Loops {
		byName[loop.Loop] = loop
	}
	if byName[LoopWeights].Status != domain.LoopStatusRan {
		t.Fatalf("weights should run: %+v", byName[LoopWeights])
	}
	for _, name := range []string{LoopPatterns, LoopCalibration} {
		loop := byName[name]
		if loop.Status != domain.LoopStatusSkipped || loop.Reason != "not requested" {
			t.Fatalf("%s should be marked not requested, got %+v", name, loop)
		}
	}
	if result.Summary != "1 ran, 2 skipped" {
		t.Fatalf("unexpected summary %q", result.Summary)
	}
	if result.TotalLatencyMS < 0 {
		t.Fatalf("negative total latency: %d", result.TotalLatencyMS)
	}
}

func TestWeightsLoopMarksPostedCampaignsCompleted(t *testing.T) {
	f := newFixture(t, EngineConfig{Alpha: 0.3})
	f.seedOutcome(t, "co-1", "a", 0.82, 0.42, time.Now().UTC())

	if result := f.engine.runWeights(context.Background(), "co-1"); result.Status != domain.LoopStatusRan {
		t.Fatalf("unexpected loop result: %+v", result)
	}

	campaign, err := f.records.GetCampaign(context.Background(), "camp-a")
	if err != nil {
		t.Fatalf("load campaign: %v", err)
	}
	if campaign.Status != domain.CampaignStatusCompleted {
		t.Fatalf("expected campaign completed after folding metrics, got %q", campaign.Status)
	}
}

func TestCalibrationRunsSerializeSharedCells(t *testing.T) {
	f := newFixture(t, EngineConfig{Alpha: 0.3})
	now := time.Now().UTC()
	// Same category and bucket for both companies: their runs contend on one
	// calibration cell.
	f.seedOutcome(t, "co-1", "a", 0.82, 0.9, now)
	f.seedOutcome(t, "co-2", "b", 0.82, 0.7, now)

	var wg sync.WaitGroup
	for _, companyID := range []string{"co-1", "co-2"} {
		wg.Add(1)
		go func(companyID string) {
			defer wg.Done()
			if result := f.engine.runCalibration(context.Background(), companyID); result.Status != domain.LoopStatusRan {
				t.Errorf("%s: unexpected loop result: %+v", companyID, result)
			}
		}(companyID)
	}
	wg.Wait()

	entry, err := f.params.GetCalibration(context.Background(), "ai_tools", 0.8)
	if err != nil {
		t.Fatalf("load calibration: %v", err)
	}
	if entry.SampleCount != 2 {
		t.Fatalf("expected both outcomes folded in, got %d samples", entry.SampleCount)
	}
}
