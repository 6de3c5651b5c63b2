package domain

import (
	"strings"
	"time"
)

// CompanyProfile is the structured brand description produced by intake and
// consumed by every downstream generation stage.
type CompanyProfile struct {
	ID              string
	Name            string
	Industry        string
	Website         string
	ToneOfVoice     string
	TargetAudience  string
	CampaignGoals   string
	Competitors     []string
	ContentHistory  []string
	VisualStyle     string
	SafetyThreshold float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PromptContext serializes the profile into a compact block for adapter
// prompts.
func (p *CompanyProfile) PromptContext() string {
	parts := []string{
		"Company: " + p.Name,
		"Industry: " + p.Industry,
	}
	if p.Website != "" {
		parts = append(parts, "Website: "+p.Website)
	}
	if p.ToneOfVoice != "" {
		parts = append(parts, "Tone: "+p.ToneOfVoice)
	}
	if p.TargetAudience != "" {
		parts = append(parts, "Audience: "+p.TargetAudience)
	}
	if p.CampaignGoals != "" {
		parts = append(parts, "Goals: "+p.CampaignGoals)
	}
	if len(p.Competitors) > 0 {
		parts = append(parts, "Competitors: "+strings.Join(p.Competitors, ", "))
	}
	return strings.Join(parts, "\n")
}
