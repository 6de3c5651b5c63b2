package feedback

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/repository"
)

// Calibration adjustments are deltas added to a signal's raw probability when
// scoring confidence, so they stay in a narrow band.
const maxCalibrationDelta = 0.3

// runCalibration is Loop 3: compare realized engagement against the signal's
// predicted probability per (category, probability bucket) cell and smooth the
// difference into the calibration map. Uses the same alpha and watermark rule
// as Loop 1.
func (e *Engine) runCalibration(ctx context.Context, companyID string) domain.LoopResult {
	result := domain.LoopResult{Loop: LoopCalibration, Status: domain.LoopStatusFailed}

	params, err := e.params.GetParameters(ctx, companyID)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	var since *time.Time
	if watermark, ok := params.Watermarks[LoopCalibration]; ok && !watermark.IsZero() {
		since = &watermark
	}
	metricRows, err := e.records.ListMetrics(ctx, companyID, since)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if len(metricRows) == 0 {
		result.Status = domain.LoopStatusSkipped
		result.Reason = "no new metrics"
		return result
	}

	// Calibration cells are global: another company's run may be folding
	// outcomes into the same (category, bucket) cell right now, and the
	// per-company job lock does not cover that.
	e.calibMu.Lock()
	defer e.calibMu.Unlock()

	updated := 0
	newest := params.Watermarks[LoopCalibration]
	for _, metric := range metricRows {
		if metric.RecordedAt.After(newest) {
			newest = metric.RecordedAt
		}

		campaign, err := e.records.GetCampaign(ctx, metric.CampaignID)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"metric_id":   metric.ID,
				"campaign_id": metric.CampaignID,
			}).Warn("skipping metric without campaign")
			continue
		}
		signal, err := e.records.GetSignal(ctx, campaign.SignalID)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"metric_id": metric.ID,
				"signal_id": campaign.SignalID,
			}).Warn("skipping metric without signal")
			continue
		}
		if signal.Category == "" || signal.Probability <= 0 {
			e.logger.WithField("metric_id", metric.ID).Warn("skipping metric with uncalibratable signal")
			continue
		}

		observed := clampDelta(metric.Outcome() - signal.Probability)
		bucket := domain.ProbabilityBucket(signal.Probability)

		entry, err := e.params.GetCalibration(ctx, signal.Category, bucket)
		if err != nil {
			if err != repository.ErrNotFound {
				result.Error = err.Error()
				return result
			}
			entry = &domain.CalibrationEntry{Category: signal.Category, Bucket: bucket}
		}
		entry.Adjustment = clampDelta(e.smooth(entry.Adjustment, observed))
		entry.SampleCount++
		entry.LastObservedAt = metric.RecordedAt
		entry.UpdatedAt = time.Now().UTC()

		if err := e.params.UpsertCalibration(ctx, entry); err != nil {
			result.Error = err.Error()
			return result
		}
		updated++
	}

	if updated == 0 {
		result.Status = domain.LoopStatusSkipped
		result.Reason = "no usable metrics"
		return result
	}

	if params.Watermarks == nil {
		params.Watermarks = make(map[string]time.Time)
	}
	params.Watermarks[LoopCalibration] = newest
	params.UpdatedAt = time.Now().UTC()
	if err := e.params.SaveParameters(ctx, params); err != nil {
		result.Error = err.Error()
		return result
	}

	result.Status = domain.LoopStatusRan
	result.Updated = updated
	return result
}

func clampDelta(v float64) float64 {
	if v < -maxCalibrationDelta {
		return -maxCalibrationDelta
	}
	if v > maxCalibrationDelta {
		return maxCalibrationDelta
	}
	return v
}
