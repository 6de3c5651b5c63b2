package feedback

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/domain"
)

// runPatterns is Loop 2: a full cross-company recompute of anonymized
// performance aggregates. Outcomes are grouped by (channel, signal category,
// probability bucket) and a cell is only published once enough distinct
// companies contribute to it. Recomputing from scratch over the same data
// yields the same rows, so reruns are idempotent.
func (e *Engine) runPatterns(ctx context.Context) domain.LoopResult {
	result := domain.LoopResult{Loop: LoopPatterns, Status: domain.LoopStatusFailed}

	metricRows, err := e.records.ListMetricsSince(ctx, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if len(metricRows) == 0 {
		result.Status = domain.LoopStatusSkipped
		result.Reason = "no metrics recorded"
		return result
	}

	type cell struct {
		sum       float64
		count     int
		companies map[string]struct{}
	}
	cells := make(map[string]*cell)

	for _, metric := range metricRows {
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
		if metric.Channel == "" || signal.Category == "" {
			e.logger.WithField("metric_id", metric.ID).Warn("skipping metric with incomplete feature tuple")
			continue
		}

		bucket := domain.ProbabilityBucket(signal.Probability)
		key := fmt.Sprintf("%s|%s|%.2f", metric.Channel, signal.Category, bucket)
		entry, ok := cells[key]
		if !ok {
			entry = &cell{companies: make(map[string]struct{})}
			cells[key] = entry
		}
		entry.sum += metric.Outcome()
		entry.count++
		entry.companies[metric.CompanyID] = struct{}{}
	}

	keys := make([]string, 0, len(cells))
	for key := range cells {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	now := time.Now().UTC()
	patterns := make([]*domain.SharedPattern, 0, len(keys))
	for _, key := range keys {
		entry := cells[key]
		if len(entry.companies) < e.minCompanies {
			continue
		}
		patterns = append(patterns, &domain.SharedPattern{
			ID:            patternID(key),
			Dimension:     "channel_category_bucket",
			Value:         key,
			AvgEngagement: math.Round(entry.sum/float64(entry.count)*1000) / 1000,
			SampleCount:   entry.count,
			CompanyCount:  len(entry.companies),
			ComputedAt:    now,
		})
	}

	if err := e.params.ReplaceSharedPatterns(ctx, patterns); err != nil {
		result.Error = err.Error()
		return result
	}

	result.Status = domain.LoopStatusRan
	result.Updated = len(patterns)
	return result
}

// patternID derives a stable id from the feature tuple so recomputes produce
// identical rows.
func patternID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}
