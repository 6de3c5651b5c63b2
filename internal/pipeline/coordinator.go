package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/feedback"
	"github.com/signalhq/signal-backend/internal/repository"
)

// Coordinator maps each job type to its stage sequence. It owns the
// per-job orchestration (company lookup, payload decode, stage chaining) while
// the stages own their generation and persistence.
type Coordinator struct {
	records   repository.RecordsRepository
	signals   *SignalStage
	campaigns *CampaignStage
	strategy  *StrategyStage
	pieces    *PieceStage
	feedback  *feedback.Engine
	logger    *logrus.Entry
}

func NewCoordinator(
	records repository.RecordsRepository,
	signals *SignalStage,
	campaigns *CampaignStage,
	strategy *StrategyStage,
	pieces *PieceStage,
	feedbackEngine *feedback.Engine,
	logger *logrus.Entry,
) *Coordinator {
	return &Coordinator{
		records:   records,
		signals:   signals,
		campaigns: campaigns,
		strategy:  strategy,
		pieces:    pieces,
		feedback:  feedbackEngine,
		logger:    logger,
	}
}

// Execute runs one job to completion and returns its result payload. The
// progress callback is best-effort and may be nil.
func (c *Coordinator) Execute(
	ctx context.Context,
	job *domain.Job,
	progress func(step, total int),
) (json.RawMessage, error) {
	company, err := c.records.GetCompany(ctx, job.CompanyID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, fmt.Errorf("%w: company %s", domain.ErrNotFound, job.CompanyID)
		}
		return nil, fmt.Errorf("load company: %w", err)
	}

	payload := job.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	switch job.Type {
	case domain.JobTypeSignalRefresh:
		var p SignalRefreshPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return c.signals.Run(ctx, company, p)

	case domain.JobTypeCampaignGenerate:
		var p CampaignGeneratePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		// Without explicit signals the campaign draws on a fresh ranking.
		if len(p.SignalIDs) == 0 {
			if _, err := c.signals.Run(ctx, company, SignalRefreshPayload{}); err != nil {
				return nil, err
			}
		}
		return c.campaigns.Run(ctx, company, p, progress)

	case domain.JobTypeStrategyGenerate:
		var p StrategyGeneratePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return c.strategy.Run(ctx, company, p, progress)

	case domain.JobTypePieceGenerate:
		var p PieceGeneratePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return c.pieces.Run(ctx, company, p, progress)

	case domain.JobTypeFeedbackTrigger:
		var p FeedbackTriggerPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		runResult, err := c.feedback.Run(ctx, company.ID, p.Loops)
		if err != nil {
			return nil, err
		}
		return feedback.EncodeResult(runResult)

	default:
		return nil, fmt.Errorf("no stage sequence for job type %q", job.Type)
	}
}
