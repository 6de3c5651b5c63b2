package quality

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrQualityRejected = errors.New("output failed quality checks")

const (
	maxHeadlineWords = 20
	bodyWordsTarget  = 150
	bodyWordsFloor   = 50
	bodyWordsHardMin = 20
	bodyWordsHardMax = 200

	confidencePenaltyPerIssue = 0.1
	minConceptConfidence      = 0.3
)

// ConceptCandidate is one generated campaign concept before validation.
type ConceptCandidate struct {
	Headline        string
	Body            string
	VisualDirection string
	ToneTag         string
	HookTag         string
}

// ConceptResult is the cleaned concept plus the confidence that survived the
// issue penalties.
type ConceptResult struct {
	Headline        string
	Body            string
	VisualDirection string
	ToneTag         string
	HookTag         string
	Confidence      float64
	Issues          []string
}

// ValidateConcept checks a generated campaign concept against the output
// contract. Soft issues each shave confidence; hard violations (empty
// required fields, body far outside bounds) reject the concept outright.
func ValidateConcept(candidate ConceptCandidate) (ConceptResult, error) {
	headline := normalizeText(candidate.Headline)
	body := normalizeText(candidate.Body)
	visual := normalizeText(candidate.VisualDirection)

	if headline == "" {
		return ConceptResult{}, fmt.Errorf("%w: empty headline", ErrQualityRejected)
	}
	if body == "" {
		return ConceptResult{}, fmt.Errorf("%w: empty body copy", ErrQualityRejected)
	}

	issues := make([]string, 0, 4)

	if wordCount(headline) > maxHeadlineWords {
		issues = append(issues, fmt.Sprintf("headline exceeds %d words", maxHeadlineWords))
	}

	bodyWords := wordCount(body)
	if bodyWords < bodyWordsHardMin || bodyWords > bodyWordsHardMax {
		return ConceptResult{}, fmt.Errorf(
			"%w: body word count %d outside hard bounds [%d, %d]",
			ErrQualityRejected, bodyWords, bodyWordsHardMin, bodyWordsHardMax,
		)
	}
	if bodyWords < bodyWordsFloor || bodyWords > bodyWordsTarget {
		issues = append(issues, fmt.Sprintf("body word count %d outside target range [%d, %d]",
			bodyWords, bodyWordsFloor, bodyWordsTarget))
	}

	if hasPlaceholderText(headline) || hasPlaceholderText(body) {
		issues = append(issues, "placeholder text present")
	}

	if visual == "" {
		issues = append(issues, "missing visual direction")
	}

	confidence := clamp01(1.0 - confidencePenaltyPerIssue*float64(len(issues)))
	if confidence < minConceptConfidence {
		return ConceptResult{}, fmt.Errorf(
			"%w: confidence %.2f below floor after %d issues",
			ErrQualityRejected, confidence, len(issues),
		)
	}

	return ConceptResult{
		Headline:        headline,
		Body:            body,
		VisualDirection: visual,
		ToneTag:         strings.ToLower(normalizeText(candidate.ToneTag)),
		HookTag:         strings.ToLower(normalizeText(candidate.HookTag)),
		Confidence:      round2(confidence),
		Issues:          issues,
	}, nil
}

var placeholderMarkers = []string{
	"lorem ipsum",
	"[insert",
	"[placeholder",
	"{{",
	"tbd",
	"xxx",
}

func hasPlaceholderText(value string) bool {
	lowered := strings.ToLower(value)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func normalizeText(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	parts := strings.Fields(trimmed)
	return strings.Join(parts, " ")
}

func wordCount(value string) int {
	return len(strings.Fields(value))
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
