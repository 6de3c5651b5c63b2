package handlers

import (
	"time"

	"github.com/signalhq/signal-backend/internal/domain"
)

// View types shape the JSON responses; domain structs stay free of transport
// tags.

type jobView struct {
	JobID         string    `json:"job_id"`
	Type          string    `json:"type"`
	CompanyID     string    `json:"company_id"`
	Status        string    `json:"status"`
	Result        any       `json:"result,omitempty"`
	Error         any       `json:"error,omitempty"`
	ProgressStep  int       `json:"progress_step,omitempty"`
	ProgressTotal int       `json:"progress_total,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newJobView(job *domain.Job) jobView {
	view := jobView{
		JobID:         job.ID,
		Type:          string(job.Type),
		CompanyID:     job.CompanyID,
		Status:        string(job.Status),
		ProgressStep:  job.ProgressStep,
		ProgressTotal: job.ProgressTotal,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
	}
	if len(job.Result) > 0 {
		view.Result = jsonRawOrFallback(job.Result)
	}
	if job.ErrorMessage != "" {
		view.Error = map[string]string{
			"code":    "processing_error",
			"message": job.ErrorMessage,
		}
	}
	return view
}

type companyView struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Industry        string    `json:"industry"`
	Website         string    `json:"website,omitempty"`
	ToneOfVoice     string    `json:"tone_of_voice"`
	TargetAudience  string    `json:"target_audience"`
	CampaignGoals   string    `json:"campaign_goals"`
	Competitors     []string  `json:"competitors,omitempty"`
	ContentHistory  []string  `json:"content_history,omitempty"`
	VisualStyle     string    `json:"visual_style,omitempty"`
	SafetyThreshold float64   `json:"safety_threshold"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func newCompanyView(company *domain.CompanyProfile) companyView {
	return companyView{
		ID:              company.ID,
		Name:            company.Name,
		Industry:        company.Industry,
		Website:         company.Website,
		ToneOfVoice:     company.ToneOfVoice,
		TargetAudience:  company.TargetAudience,
		CampaignGoals:   company.CampaignGoals,
		Competitors:     company.Competitors,
		ContentHistory:  company.ContentHistory,
		VisualStyle:     company.VisualStyle,
		SafetyThreshold: company.SafetyThreshold,
		CreatedAt:       company.CreatedAt,
		UpdatedAt:       company.UpdatedAt,
	}
}

type signalView struct {
	ID                  string     `json:"id"`
	MarketID            string     `json:"market_id,omitempty"`
	Title               string     `json:"title"`
	Category            string     `json:"category"`
	Probability         float64    `json:"probability"`
	ProbabilityMomentum float64    `json:"probability_momentum"`
	Volume              float64    `json:"volume"`
	VolumeVelocity      float64    `json:"volume_velocity"`
	Relevance           float64    `json:"relevance,omitempty"`
	CompositeScore      float64    `json:"composite_score,omitempty"`
	ConfidenceScore     float64    `json:"confidence_score"`
	SurfacedAt          time.Time  `json:"surfaced_at"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
}

func newSignalView(signal *domain.TrendSignal, companyID string) signalView {
	view := signalView{
		ID:                  signal.ID,
		MarketID:            signal.MarketID,
		Title:               signal.Title,
		Category:            signal.Category,
		Probability:         signal.Probability,
		ProbabilityMomentum: signal.ProbabilityMomentum,
		Volume:              signal.Volume,
		VolumeVelocity:      signal.VolumeVelocity,
		ConfidenceScore:     signal.ConfidenceScore,
		SurfacedAt:          signal.SurfacedAt,
		ExpiresAt:           signal.ExpiresAt,
	}
	if companyID != "" {
		view.Relevance = signal.RelevanceScores[companyID]
		view.CompositeScore = signal.CompositeScore(companyID)
	}
	return view
}

type campaignView struct {
	ID                    string    `json:"id"`
	CompanyID             string    `json:"company_id"`
	SignalID              string    `json:"signal_id"`
	Headline              string    `json:"headline"`
	BodyCopy              string    `json:"body_copy"`
	VisualDirection       string    `json:"visual_direction,omitempty"`
	VisualAssetURL        string    `json:"visual_asset_url,omitempty"`
	ChannelRecommendation string    `json:"channel_recommendation"`
	ChannelReasoning      string    `json:"channel_reasoning,omitempty"`
	ToneTag               string    `json:"tone_tag,omitempty"`
	HookTag               string    `json:"hook_tag,omitempty"`
	ConfidenceScore       float64   `json:"confidence_score"`
	SafetyScore           float64   `json:"safety_score"`
	SafetyPassed          bool      `json:"safety_passed"`
	SafetyFlags           []string  `json:"safety_flags,omitempty"`
	Status                string    `json:"status"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func newCampaignView(campaign *domain.Campaign) campaignView {
	return campaignView{
		ID:                    campaign.ID,
		CompanyID:             campaign.CompanyID,
		SignalID:              campaign.SignalID,
		Headline:              campaign.Headline,
		BodyCopy:              campaign.BodyCopy,
		VisualDirection:       campaign.VisualDirection,
		VisualAssetURL:        campaign.VisualAssetURL,
		ChannelRecommendation: string(campaign.ChannelRecommendation),
		ChannelReasoning:      campaign.ChannelReasoning,
		ToneTag:               campaign.ToneTag,
		HookTag:               campaign.HookTag,
		ConfidenceScore:       campaign.ConfidenceScore,
		SafetyScore:           campaign.SafetyScore,
		SafetyPassed:          campaign.SafetyPassed,
		SafetyFlags:           campaign.SafetyFlags,
		Status:                string(campaign.Status),
		CreatedAt:             campaign.CreatedAt,
		UpdatedAt:             campaign.UpdatedAt,
	}
}

type strategyView struct {
	ID               string    `json:"id"`
	CampaignID       string    `json:"campaign_id"`
	CompanyID        string    `json:"company_id"`
	ContentType      string    `json:"content_type"`
	Reasoning        string    `json:"reasoning"`
	TargetLength     int       `json:"target_length"`
	ToneDirection    string    `json:"tone_direction,omitempty"`
	StructureOutline []string  `json:"structure_outline,omitempty"`
	PriorityScore    float64   `json:"priority_score"`
	VisualNeeded     bool      `json:"visual_needed"`
	CreatedAt        time.Time `json:"created_at"`
}

func newStrategyView(strategy *domain.ContentStrategy) strategyView {
	return strategyView{
		ID:               strategy.ID,
		CampaignID:       strategy.CampaignID,
		CompanyID:        strategy.CompanyID,
		ContentType:      string(strategy.ContentType),
		Reasoning:        strategy.Reasoning,
		TargetLength:     strategy.TargetLength,
		ToneDirection:    strategy.ToneDirection,
		StructureOutline: strategy.StructureOutline,
		PriorityScore:    strategy.PriorityScore,
		VisualNeeded:     strategy.VisualNeeded,
		CreatedAt:        strategy.CreatedAt,
	}
}

type pieceView struct {
	ID             string    `json:"id"`
	StrategyID     string    `json:"strategy_id"`
	CampaignID     string    `json:"campaign_id"`
	CompanyID      string    `json:"company_id"`
	ContentType    string    `json:"content_type"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Summary        string    `json:"summary,omitempty"`
	WordCount      int       `json:"word_count"`
	VisualPrompt   string    `json:"visual_prompt,omitempty"`
	VisualAssetURL string    `json:"visual_asset_url,omitempty"`
	QualityScore   float64   `json:"quality_score"`
	BrandAlignment float64   `json:"brand_alignment"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newPieceView(piece *domain.ContentPiece) pieceView {
	return pieceView{
		ID:             piece.ID,
		StrategyID:     piece.StrategyID,
		CampaignID:     piece.CampaignID,
		CompanyID:      piece.CompanyID,
		ContentType:    string(piece.ContentType),
		Title:          piece.Title,
		Body:           piece.Body,
		Summary:        piece.Summary,
		WordCount:      piece.WordCount,
		VisualPrompt:   piece.VisualPrompt,
		VisualAssetURL: piece.VisualAssetURL,
		QualityScore:   piece.QualityScore,
		BrandAlignment: piece.BrandAlignment,
		Status:         string(piece.Status),
		CreatedAt:      piece.CreatedAt,
		UpdatedAt:      piece.UpdatedAt,
	}
}

type patternView struct {
	ID            string    `json:"id"`
	Dimension     string    `json:"dimension"`
	Value         string    `json:"value"`
	AvgEngagement float64   `json:"avg_engagement"`
	SampleCount   int       `json:"sample_count"`
	CompanyCount  int       `json:"company_count"`
	ComputedAt    time.Time `json:"computed_at"`
}

func newPatternView(pattern *domain.SharedPattern) patternView {
	return patternView{
		ID:            pattern.ID,
		Dimension:     pattern.Dimension,
		Value:         pattern.Value,
		AvgEngagement: pattern.AvgEngagement,
		SampleCount:   pattern.SampleCount,
		CompanyCount:  pattern.CompanyCount,
		ComputedAt:    pattern.ComputedAt,
	}
}

type calibrationView struct {
	Category       string    `json:"category"`
	Bucket         float64   `json:"bucket"`
	Adjustment     float64   `json:"adjustment"`
	SampleCount    int       `json:"sample_count"`
	LastObservedAt time.Time `json:"last_observed_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newCalibrationView(entry *domain.CalibrationEntry) calibrationView {
	return calibrationView{
		Category:       entry.Category,
		Bucket:         entry.Bucket,
		Adjustment:     entry.Adjustment,
		SampleCount:    entry.SampleCount,
		LastObservedAt: entry.LastObservedAt,
		UpdatedAt:      entry.UpdatedAt,
	}
}

type parametersView struct {
	CompanyID  string               `json:"company_id"`
	Weights    map[string]float64   `json:"weights"`
	Watermarks map[string]time.Time `json:"watermarks,omitempty"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

func newParametersView(params *domain.Parameters) parametersView {
	return parametersView{
		CompanyID:  params.CompanyID,
		Weights:    params.Weights,
		Watermarks: params.Watermarks,
		UpdatedAt:  params.UpdatedAt,
	}
}

type pagedResponse struct {
	Items    any `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}
