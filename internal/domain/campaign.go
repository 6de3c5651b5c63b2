package domain

import "time"

type Channel string

const (
	ChannelTwitter    Channel = "twitter"
	ChannelLinkedIn   Channel = "linkedin"
	ChannelInstagram  Channel = "instagram"
	ChannelNewsletter Channel = "newsletter"
)

// Channels lists every supported channel in a stable order.
var Channels = []Channel{ChannelTwitter, ChannelLinkedIn, ChannelInstagram, ChannelNewsletter}

func (c Channel) Valid() bool {
	switch c {
	case ChannelTwitter, ChannelLinkedIn, ChannelInstagram, ChannelNewsletter:
		return true
	}
	return false
}

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusApproved  CampaignStatus = "approved"
	CampaignStatusPosted    CampaignStatus = "posted"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// Campaign is one generated marketing concept tied to the signal that
// prompted it. ToneTag and HookTag feed the per-company weight loop once
// engagement metrics arrive. A failed safety screen flags the campaign but
// does not discard it.
type Campaign struct {
	ID                    string
	CompanyID             string
	SignalID              string
	Headline              string
	BodyCopy              string
	VisualDirection       string
	VisualAssetURL        string
	ChannelRecommendation Channel
	ChannelReasoning      string
	ToneTag               string
	HookTag               string
	ConfidenceScore       float64
	SafetyScore           float64
	SafetyPassed          bool
	SafetyFlags           []string
	Status                CampaignStatus
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Metric is one append-only engagement observation for a posted campaign.
// CompanyID is denormalized from the campaign so the feedback loops can scan
// without a join.
type Metric struct {
	ID             string
	CampaignID     string
	CompanyID      string
	Channel        Channel
	Impressions    int64
	Clicks         int64
	EngagementRate float64
	SentimentScore *float64
	RecordedAt     time.Time
}

// Outcome is the engagement score in [0,1] the feedback loops fold in. The
// explicit rate wins; otherwise it falls back to click-through.
func (m *Metric) Outcome() float64 {
	if m.EngagementRate > 0 {
		return clamp01(m.EngagementRate)
	}
	if m.Impressions == 0 {
		return 0
	}
	return clamp01(float64(m.Clicks) / float64(m.Impressions))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
