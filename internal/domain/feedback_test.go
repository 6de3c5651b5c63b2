package domain

import "testing"

func TestProbabilityBucket(t *testing.T) {
	cases := []struct {
		probability float64
		bucket      float64
	}{
		{0.0, 0.25},
		{0.49, 0.25},
		{0.5, 0.6},
		{0.69, 0.6},
		{0.7, 0.8},
		{0.89, 0.8},
		{0.9, 0.95},
		{1.0, 0.95},
	}
	for _, tc := range cases {
		if got := ProbabilityBucket(tc.probability); got != tc.bucket {
			t.Fatalf("p=%.2f: expected bucket %.2f, got %.2f", tc.probability, tc.bucket, got)
		}
	}
}

func TestMetricOutcomePrefersExplicitRate(t *testing.T) {
	metric := &Metric{EngagementRate: 0.35, Impressions: 1000, Clicks: 900}
	if got := metric.Outcome(); got != 0.35 {
		t.Fatalf("expected explicit rate 0.35, got %v", got)
	}
}

func TestMetricOutcomeFallsBackToClickThrough(t *testing.T) {
	metric := &Metric{Impressions: 200, Clicks: 50}
	if got := metric.Outcome(); got != 0.25 {
		t.Fatalf("expected CTR 0.25, got %v", got)
	}

	empty := &Metric{}
	if got := empty.Outcome(); got != 0 {
		t.Fatalf("expected zero outcome without data, got %v", got)
	}
}

func TestMetricOutcomeClamped(t *testing.T) {
	metric := &Metric{Impressions: 10, Clicks: 40}
	if got := metric.Outcome(); got != 1 {
		t.Fatalf("expected clamped outcome 1, got %v", got)
	}
}

func TestFeedbackRunResultAggregation(t *testing.T) {
	allFailed := &FeedbackRunResult{Loops: []LoopResult{
		{Loop: "weights", Status: LoopStatusFailed},
		{Loop: "patterns", Status: LoopStatusFailed},
	}}
	if !allFailed.AllFailed() {
		t.Fatalf("expected AllFailed for uniformly failed loops")
	}
	if allFailed.AnyRan() {
		t.Fatalf("expected AnyRan false for failed loops")
	}

	mixed := &FeedbackRunResult{Loops: []LoopResult{
		{Loop: "weights", Status: LoopStatusRan},
		{Loop: "patterns", Status: LoopStatusFailed},
		{Loop: "calibration", Status: LoopStatusSkipped},
	}}
	if mixed.AllFailed() {
		t.Fatalf("a skipped or ran loop must clear AllFailed")
	}
	if !mixed.AnyRan() {
		t.Fatalf("expected AnyRan true with one ran loop")
	}

	empty := &FeedbackRunResult{}
	if empty.AllFailed() {
		t.Fatalf("empty run must not count as all failed")
	}
}

func TestFeedbackRunResultSummarize(t *testing.T) {
	mixed := &FeedbackRunResult{Loops: []LoopResult{
		{Loop: "weights", Status: LoopStatusRan},
		{Loop: "patterns", Status: LoopStatusSkipped},
		{Loop: "calibration", Status: LoopStatusFailed},
	}}
	if got := mixed.Summarize(); got != "1 ran, 1 skipped, 1 failed" {
		t.Fatalf("unexpected summary %q", got)
	}

	empty := &FeedbackRunResult{}
	if got := empty.Summarize(); got != "no loops" {
		t.Fatalf("unexpected empty summary %q", got)
	}
}
