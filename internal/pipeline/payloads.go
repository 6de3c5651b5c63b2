package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/signalhq/signal-backend/internal/domain"
)

// SignalRefreshPayload requests a re-pull and re-rank of market signals.
type SignalRefreshPayload struct {
	Categories []string `json:"categories,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

// CampaignGeneratePayload requests campaign concepts. When SignalIDs is
// empty the coordinator runs a signal refresh first and uses the top-ranked
// results. ConceptCount is clamped to [1, 5] at execution time.
type CampaignGeneratePayload struct {
	SignalIDs    []string `json:"signal_ids,omitempty"`
	ConceptCount int      `json:"concept_count,omitempty"`
}

// StrategyGeneratePayload requests a content strategy for a campaign.
type StrategyGeneratePayload struct {
	CampaignID string `json:"campaign_id"`
	MaxItems   int    `json:"max_items,omitempty"`
}

// PieceGeneratePayload requests a drafted piece from one strategy.
type PieceGeneratePayload struct {
	StrategyID string `json:"strategy_id"`
}

// FeedbackTriggerPayload requests a feedback run. Loops defaults to all
// three.
type FeedbackTriggerPayload struct {
	Loops []string `json:"loops,omitempty"`
}

var knownLoops = map[string]struct{}{
	"weights":     {},
	"patterns":    {},
	"calibration": {},
}

// ValidatePayload checks a job payload's shape before a Job record exists.
// Failures here are returned synchronously to the submitter.
func ValidatePayload(jobType domain.JobType, companyID string, payload json.RawMessage) error {
	if strings.TrimSpace(companyID) == "" {
		return domain.NewValidationError("company_id is required")
	}
	if !jobType.Valid() {
		return domain.NewValidationError("unknown job type %q", jobType)
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	switch jobType {
	case domain.JobTypeSignalRefresh:
		var p SignalRefreshPayload
		if err := strictUnmarshal(payload, &p); err != nil {
			return err
		}
		if p.Limit < 0 {
			return domain.NewValidationError("limit must not be negative")
		}
	case domain.JobTypeCampaignGenerate:
		var p CampaignGeneratePayload
		if err := strictUnmarshal(payload, &p); err != nil {
			return err
		}
		for _, signalID := range p.SignalIDs {
			if strings.TrimSpace(signalID) == "" {
				return domain.NewValidationError("signal_ids must not contain empty ids")
			}
		}
		if p.ConceptCount < 0 {
			return domain.NewValidationError("concept_count must not be negative")
		}
	case domain.JobTypeStrategyGenerate:
		var p StrategyGeneratePayload
		if err := strictUnmarshal(payload, &p); err != nil {
			return err
		}
		if strings.TrimSpace(p.CampaignID) == "" {
			return domain.NewValidationError("campaign_id is required")
		}
	case domain.JobTypePieceGenerate:
		var p PieceGeneratePayload
		if err := strictUnmarshal(payload, &p); err != nil {
			return err
		}
		if strings.TrimSpace(p.StrategyID) == "" {
			return domain.NewValidationError("strategy_id is required")
		}
	case domain.JobTypeFeedbackTrigger:
		var p FeedbackTriggerPayload
		if err := strictUnmarshal(payload, &p); err != nil {
			return err
		}
		for _, loop := range p.Loops {
			if _, ok := knownLoops[loop]; !ok {
				return domain.NewValidationError("unknown feedback loop %q", loop)
			}
		}
	}
	return nil
}

func strictUnmarshal(payload json.RawMessage, target any) error {
	decoder := json.NewDecoder(strings.NewReader(string(payload)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return domain.NewValidationError("malformed payload: %v", err)
	}
	return nil
}
