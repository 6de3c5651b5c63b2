package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/metrics"
	"github.com/signalhq/signal-backend/internal/repository"
)

// Loop names accepted in a feedback_trigger payload.
const (
	LoopWeights     = "weights"
	LoopPatterns    = "patterns"
	LoopCalibration = "calibration"
)

var allLoops = []string{LoopWeights, LoopPatterns, LoopCalibration}

// Engine runs the three feedback loops. Loops are independent: one failing
// never blocks the others, and the run as a whole only fails when every
// requested loop failed.
type Engine struct {
	records      repository.RecordsRepository
	params       repository.ParamsRepository
	alpha        float64
	minCompanies int
	collector    *metrics.Collector
	logger       *logrus.Entry

	// calibMu serializes calibration cell updates. Calibration cells are
	// shared across companies while runs only hold per-company locks, so two
	// companies' runs may touch the same (category, bucket) cell at once.
	calibMu sync.Mutex
}

type EngineConfig struct {
	// Alpha is the exponential smoothing factor in (0, 1].
	Alpha float64
	// MinCompanies gates shared pattern publication.
	MinCompanies int
}

func NewEngine(
	records repository.RecordsRepository,
	params repository.ParamsRepository,
	config EngineConfig,
	collector *metrics.Collector,
	logger *logrus.Entry,
) *Engine {
	alpha := config.Alpha
	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}
	minCompanies := config.MinCompanies
	if minCompanies <= 0 {
		minCompanies = 3
	}
	return &Engine{
		records:      records,
		params:       params,
		alpha:        alpha,
		minCompanies: minCompanies,
		collector:    collector,
		logger:       logger,
	}
}

// Run executes the requested loops for one company. An empty loop list means
// all three. The result always carries one entry per known loop: loops not in
// the request are reported skipped with reason "not requested", and unknown
// requested names get a trailing failed entry.
func (e *Engine) Run(ctx context.Context, companyID string, loops []string) (*domain.FeedbackRunResult, error) {
	runAll := len(loops) == 0
	requested := make(map[string]bool, len(loops))
	unknown := make([]string, 0)
	for _, loop := range loops {
		switch loop {
		case LoopWeights, LoopPatterns, LoopCalibration:
			requested[loop] = true
		default:
			unknown = append(unknown, loop)
		}
	}

	started := time.Now()
	result := &domain.FeedbackRunResult{
		CompanyID: companyID,
		Loops:     make([]domain.LoopResult, 0, len(allLoops)+len(unknown)),
		RanAt:     started.UTC(),
	}

	executed, failed := 0, 0
	record := func(loopResult domain.LoopResult) {
		executed++
		if loopResult.Status == domain.LoopStatusFailed {
			failed++
		}
		if e.collector != nil {
			e.collector.FeedbackLoops.WithLabelValues(loopResult.Loop, string(loopResult.Status)).Inc()
		}
		e.logger.WithFields(logrus.Fields{
			"company_id": companyID,
			"loop":       loopResult.Loop,
			"status":     string(loopResult.Status),
			"updated":    loopResult.Updated,
			"latency_ms": loopResult.LatencyMS,
		}).Info("feedback loop finished")
		result.Loops = append(result.Loops, loopResult)
	}

	for _, loop := range allLoops {
		if !runAll && !requested[loop] {
			result.Loops = append(result.Loops, domain.LoopResult{
				Loop:   loop,
				Status: domain.LoopStatusSkipped,
				Reason: "not requested",
			})
			continue
		}

		loopStarted := time.Now()
		var loopResult domain.LoopResult
		switch loop {
		case LoopWeights:
			loopResult = e.runWeights(ctx, companyID)
		case LoopPatterns:
			loopResult = e.runPatterns(ctx)
		case LoopCalibration:
			loopResult = e.runCalibration(ctx, companyID)
		}
		loopResult.LatencyMS = time.Since(loopStarted).Milliseconds()
		record(loopResult)
	}

	for _, loop := range unknown {
		record(domain.LoopResult{
			Loop:   loop,
			Status: domain.LoopStatusFailed,
			Error:  fmt.Sprintf("unknown loop %q", loop),
		})
	}

	result.TotalLatencyMS = time.Since(started).Milliseconds()
	result.Summary = result.Summarize()

	if executed > 0 && failed == executed {
		return result, fmt.Errorf("all requested feedback loops failed")
	}
	return result, nil
}

// EncodeResult marshals a run result for storage on the job record.
func EncodeResult(result *domain.FeedbackRunResult) (json.RawMessage, error) {
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode feedback result: %w", err)
	}
	return encoded, nil
}

// smooth applies the exponential update newW = oldW*(1-alpha) + score*alpha.
func (e *Engine) smooth(old, score float64) float64 {
	return old*(1-e.alpha) + score*e.alpha
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
