package feedback

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/domain"
)

// runWeights is Loop 1: fold each new engagement outcome into the company's
// tone, hook and channel weights with exponential smoothing. The watermark
// makes a rerun over unchanged metrics a no-op.
func (e *Engine) runWeights(ctx context.Context, companyID string) domain.LoopResult {
	result := domain.LoopResult{Loop: LoopWeights, Status: domain.LoopStatusFailed}

	params, err := e.params.GetParameters(ctx, companyID)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	var since *time.Time
	if watermark, ok := params.Watermarks[LoopWeights]; ok && !watermark.IsZero() {
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

	if params.Weights == nil {
		params.Weights = domain.DefaultWeights()
	}

	updated := 0
	newest := params.Watermarks[LoopWeights]
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

		if metric.EngagementRate <= 0 && metric.Impressions == 0 {
			e.logger.WithField("metric_id", metric.ID).Warn("skipping metric without engagement data")
			continue
		}
		outcome := metric.Outcome()

		for _, dimension := range metricDimensions(campaign, metric) {
			old, ok := params.Weights[dimension]
			if !ok {
				old = 0.5
			}
			params.Weights[dimension] = clampUnit(e.smooth(old, outcome))
		}
		updated++

		// A posted campaign whose metrics have been folded in has finished
		// its lifecycle.
		if campaign.Status == domain.CampaignStatusPosted {
			campaign.Status = domain.CampaignStatusCompleted
			campaign.UpdatedAt = time.Now().UTC()
			if err := e.records.UpdateCampaign(ctx, campaign); err != nil {
				e.logger.WithError(err).WithField("campaign_id", campaign.ID).Warn("could not mark campaign completed")
			}
		}
	}

	if updated == 0 {
		result.Status = domain.LoopStatusSkipped
		result.Reason = "no usable metrics"
		return result
	}

	if params.Watermarks == nil {
		params.Watermarks = make(map[string]time.Time)
	}
	params.Watermarks[LoopWeights] = newest
	params.UpdatedAt = time.Now().UTC()
	if err := e.params.SaveParameters(ctx, params); err != nil {
		result.Error = err.Error()
		return result
	}

	result.Status = domain.LoopStatusRan
	result.Updated = updated
	return result
}

// metricDimensions lists the weight dimensions an outcome applies to: the
// campaign's tone and hook tags plus the channel it was measured on.
func metricDimensions(campaign *domain.Campaign, metric *domain.Metric) []string {
	dimensions := make([]string, 0, 3)
	if campaign.ToneTag != "" {
		dimensions = append(dimensions, campaign.ToneTag)
	}
	if campaign.HookTag != "" {
		dimensions = append(dimensions, campaign.HookTag)
	}
	if metric.Channel != "" {
		dimensions = append(dimensions, "channel_"+string(metric.Channel))
	}
	return dimensions
}
