package pipeline

import (
	"math"
	"sort"
	"strings"

	"github.com/signalhq/signal-backend/internal/domain"
)

// channelProfile carries the static heuristics for routing content to a
// channel: the audience it skews toward, the copy length it rewards and its
// appetite for visuals.
type channelProfile struct {
	idealLength      int
	visualAppetite   string
	audienceKeywords []string
}

var channelProfiles = map[domain.Channel]channelProfile{
	domain.ChannelTwitter: {
		idealLength:    400,
		visualAppetite: "low",
		audienceKeywords: []string{
			"tech", "developer", "startup", "founder", "crypto", "news", "trader",
		},
	},
	domain.ChannelLinkedIn: {
		idealLength:    1200,
		visualAppetite: "medium",
		audienceKeywords: []string{
			"b2b", "professional", "enterprise", "executive", "sales", "career", "saas",
		},
	},
	domain.ChannelInstagram: {
		idealLength:    300,
		visualAppetite: "high",
		audienceKeywords: []string{
			"consumer", "lifestyle", "fashion", "fitness", "creator", "visual", "brand",
		},
	},
	domain.ChannelNewsletter: {
		idealLength:    900,
		visualAppetite: "low",
		audienceKeywords: []string{
			"subscriber", "community", "reader", "loyal", "niche", "depth",
		},
	},
}

// AudienceFit scores how well a channel's typical audience matches the
// company's target audience. Base 0.4, +0.15 per keyword match, capped at 1.
func AudienceFit(company *domain.CompanyProfile, channel domain.Channel) float64 {
	profile, ok := channelProfiles[channel]
	if !ok {
		return 0
	}
	audience := strings.ToLower(company.TargetAudience + " " + company.Industry)
	score := 0.4
	for _, keyword := range profile.audienceKeywords {
		if strings.Contains(audience, keyword) {
			score += 0.15
		}
	}
	return clampUnit(score)
}

// ChannelFit scores a content type on a channel as the mean of length fit,
// visual fit and audience fit.
func ChannelFit(company *domain.CompanyProfile, contentType domain.ContentType, channel domain.Channel) float64 {
	profile, ok := channelProfiles[channel]
	if !ok {
		return 0
	}
	meta := contentType.Meta()

	lengthFit := ratioFit(meta.IdealLength, profile.idealLength)
	visualFit := visualMatch(meta.VisualWeight, profile.visualAppetite)
	audienceFit := AudienceFit(company, channel)

	return clampUnit((lengthFit + visualFit + audienceFit) / 3)
}

// FormatScore is the composite used to rank content formats for a company:
// audience fit and channel alignment dominate, simpler formats break ties.
func FormatScore(company *domain.CompanyProfile, contentType domain.ContentType) (float64, domain.Channel) {
	meta := contentType.Meta()

	bestChannel := domain.Channel("")
	bestFit := 0.0
	bestAudience := 0.0
	for _, channel := range meta.Channels {
		fit := ChannelFit(company, contentType, channel)
		if fit > bestFit {
			bestFit = fit
			bestAudience = AudienceFit(company, channel)
			bestChannel = channel
		}
	}

	score := 0.4*bestAudience + 0.4*bestFit + 0.2*(1-meta.Complexity)
	return round2(clampUnit(score)), bestChannel
}

// RankChannels orders all channels by audience fit for routing prompts.
func RankChannels(company *domain.CompanyProfile) []domain.Channel {
	ranked := append([]domain.Channel(nil), domain.Channels...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return AudienceFit(company, ranked[i]) > AudienceFit(company, ranked[j])
	})
	return ranked
}

func ratioFit(a, b int) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	larger := float64(a)
	smaller := float64(b)
	if smaller > larger {
		larger, smaller = smaller, larger
	}
	return smaller / larger
}

func visualMatch(weight, appetite string) float64 {
	if weight == appetite {
		return 1.0
	}
	if weight == "medium" || appetite == "medium" {
		return 0.6
	}
	return 0.3
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
