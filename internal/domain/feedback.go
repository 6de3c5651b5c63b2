package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultWeights seeds a company that has never received feedback. Values are
// neutral midpoints so the first smoothing pass moves in either direction.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"tone_confident":  0.5,
		"tone_playful":    0.5,
		"tone_urgent":     0.5,
		"tone_warm":       0.5,
		"hook_question":   0.5,
		"hook_statistic":  0.5,
		"hook_story":      0.5,
		"hook_bold_claim": 0.5,
	}
}

// Parameters is the per-company adaptive state mutated by the feedback engine
// and read by the campaign stage. All read-modify-write cycles on it hold the
// company's "parameters" class lock.
type Parameters struct {
	CompanyID string
	Weights   map[string]float64
	// Watermarks record the newest metric timestamp each loop has folded in,
	// keyed by loop name. A run that finds nothing past its watermark is a
	// no-op.
	Watermarks map[string]time.Time
	UpdatedAt  time.Time
}

// SharedPattern is one anonymized cross-company aggregate. It never carries a
// company identifier and is only published once enough distinct companies
// back it.
type SharedPattern struct {
	ID            string
	Dimension     string // e.g. "tone", "hook", "content_type"
	Value         string
	AvgEngagement float64
	SampleCount   int
	CompanyCount  int
	ComputedAt    time.Time
}

// CalibrationEntry tracks how well signals in one (category, probability
// bucket) cell convert into engagement, smoothed the same way company weights
// are.
type CalibrationEntry struct {
	Category       string
	Bucket         float64
	Adjustment     float64
	SampleCount    int
	LastObservedAt time.Time
	UpdatedAt      time.Time
}

// ProbabilityBucket discretizes a signal probability into a calibration cell.
func ProbabilityBucket(p float64) float64 {
	switch {
	case p < 0.5:
		return 0.25
	case p < 0.7:
		return 0.6
	case p < 0.9:
		return 0.8
	default:
		return 0.95
	}
}

type LoopStatus string

const (
	LoopStatusRan     LoopStatus = "ran"
	LoopStatusSkipped LoopStatus = "skipped"
	LoopStatusFailed  LoopStatus = "failed"
)

// LoopResult reports the outcome of one feedback loop inside a run. Skipped
// carries a reason; Failed carries the error text. A loop the caller did not
// request still gets an entry, skipped with reason "not requested".
type LoopResult struct {
	Loop      string     `json:"loop"`
	Status    LoopStatus `json:"status"`
	Updated   int        `json:"updated"`
	Reason    string     `json:"reason,omitempty"`
	Error     string     `json:"error,omitempty"`
	LatencyMS int64      `json:"latency_ms"`
}

// FeedbackRunResult is the aggregate result of a feedback_trigger job. It
// always carries one entry per loop; per-loop failures are recorded here
// rather than failing the whole run.
type FeedbackRunResult struct {
	CompanyID      string       `json:"company_id"`
	Loops          []LoopResult `json:"loops"`
	Summary        string       `json:"summary"`
	TotalLatencyMS int64        `json:"total_latency_ms"`
	RanAt          time.Time    `json:"ran_at"`
}

// Summarize renders the per-status counts, e.g. "1 ran, 2 skipped".
func (r *FeedbackRunResult) Summarize() string {
	ran, skipped, failed := 0, 0, 0
	for _, l := range r.Loops {
		switch l.Status {
		case LoopStatusRan:
			ran++
		case LoopStatusSkipped:
			skipped++
		case LoopStatusFailed:
			failed++
		}
	}
	parts := make([]string, 0, 3)
	if ran > 0 {
		parts = append(parts, fmt.Sprintf("%d ran", ran))
	}
	if skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", skipped))
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	if len(parts) == 0 {
		return "no loops"
	}
	return strings.Join(parts, ", ")
}

// AnyRan reports whether at least one loop completed its update.
func (r *FeedbackRunResult) AnyRan() bool {
	for _, l := range r.Loops {
		if l.Status == LoopStatusRan {
			return true
		}
	}
	return false
}

// AllFailed reports whether every loop errored, which fails the job.
func (r *FeedbackRunResult) AllFailed() bool {
	if len(r.Loops) == 0 {
		return false
	}
	for _, l := range r.Loops {
		if l.Status != LoopStatusFailed {
			return false
		}
	}
	return true
}
