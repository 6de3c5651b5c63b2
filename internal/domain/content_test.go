package domain

import (
	"math"
	"testing"
)

func TestPieceStatusCanTransitionForwardOnly(t *testing.T) {
	cases := []struct {
		from    PieceStatus
		to      PieceStatus
		allowed bool
	}{
		{PieceStatusDraft, PieceStatusReview, true},
		{PieceStatusReview, PieceStatusApproved, true},
		{PieceStatusApproved, PieceStatusPublished, true},
		{PieceStatusDraft, PieceStatusApproved, false},
		{PieceStatusDraft, PieceStatusPublished, false},
		{PieceStatusReview, PieceStatusDraft, false},
		{PieceStatusPublished, PieceStatusDraft, false},
		{PieceStatusPublished, PieceStatusPublished, false},
		{PieceStatusDraft, PieceStatus("archived"), false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestContentTypeMetaCoversEveryFormat(t *testing.T) {
	for _, contentType := range ContentTypes {
		meta := contentType.Meta()
		if meta.IdealLength <= 0 || meta.MaxLength < meta.IdealLength {
			t.Fatalf("%s: implausible length envelope %+v", contentType, meta)
		}
		if len(meta.Channels) == 0 {
			t.Fatalf("%s: no channels configured", contentType)
		}
	}
	if ContentType("press_release").Valid() {
		t.Fatalf("expected unknown content type to be invalid")
	}
}

func TestCompositeScoreWeighting(t *testing.T) {
	signal := &TrendSignal{
		VolumeVelocity:      0.5,
		ProbabilityMomentum: 1.0,
		RelevanceScores:     map[string]float64{"co-1": 0.75},
	}
	// 0.5*0.4 + 0.75*0.4 + 1.0*0.2
	if got := signal.CompositeScore("co-1"); math.Abs(got-0.7) > 1e-9 {
		t.Fatalf("expected composite 0.7, got %v", got)
	}
	// Unknown company contributes zero relevance.
	if got := signal.CompositeScore("co-2"); math.Abs(got-0.4) > 1e-9 {
		t.Fatalf("expected composite 0.4 without relevance, got %v", got)
	}
}
