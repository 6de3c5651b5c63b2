package domain

import "time"

// TrendSignal is a market-derived content opportunity surfaced by the signal
// refresh stage. Immutable once surfaced except for per-company relevance
// enrichment.
type TrendSignal struct {
	ID                  string
	MarketID            string
	Title               string
	Category            string
	Probability         float64
	ProbabilityMomentum float64
	Volume              float64
	VolumeVelocity      float64
	RelevanceScores     map[string]float64
	ConfidenceScore     float64
	SurfacedAt          time.Time
	ExpiresAt           *time.Time
}

// CompositeScore ranks a signal for one company: velocity and relevance carry
// most of the weight, momentum breaks ties.
func (s *TrendSignal) CompositeScore(companyID string) float64 {
	relevance := 0.0
	if s.RelevanceScores != nil {
		relevance = s.RelevanceScores[companyID]
	}
	return s.VolumeVelocity*0.4 + relevance*0.4 + s.ProbabilityMomentum*0.2
}
