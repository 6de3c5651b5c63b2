package quality

import (
	"fmt"
	"strings"

	"github.com/signalhq/signal-backend/internal/domain"
)

// PieceCandidate is one drafted content piece before validation.
type PieceCandidate struct {
	ContentType  domain.ContentType
	Title        string
	Body         string
	Summary      string
	VisualPrompt string
	TargetLength int
	BrandTone    string
}

// PieceResult is the cleaned piece ready for persistence.
type PieceResult struct {
	Title          string
	Body           string
	Summary        string
	VisualPrompt   string
	WordCount      int
	QualityScore   float64
	BrandAlignment float64
}

// ValidatePiece checks a drafted piece against its format's length envelope.
// Empty output and placeholder text are hard failures; softer misses reduce
// the quality score.
func ValidatePiece(candidate PieceCandidate) (PieceResult, error) {
	title := normalizeText(candidate.Title)
	body := normalizeText(candidate.Body)
	summary := normalizeText(candidate.Summary)
	visual := normalizeText(candidate.VisualPrompt)

	if body == "" {
		return PieceResult{}, fmt.Errorf("%w: empty piece body", ErrQualityRejected)
	}
	if hasPlaceholderText(title) || hasPlaceholderText(body) {
		return PieceResult{}, fmt.Errorf("%w: placeholder text in piece", ErrQualityRejected)
	}

	penalty := 0.0
	meta := candidate.ContentType.Meta()

	words := wordCount(body)
	target := candidate.TargetLength
	if target <= 0 {
		target = meta.IdealLength
	}
	if meta.MaxLength > 0 && words > meta.MaxLength {
		return PieceResult{}, fmt.Errorf(
			"%w: piece word count %d exceeds format maximum %d",
			ErrQualityRejected, words, meta.MaxLength,
		)
	}
	if target > 0 {
		deviation := float64(words-target) / float64(target)
		if deviation < 0 {
			deviation = -deviation
		}
		if deviation > 0.5 {
			penalty += 0.15
		} else if deviation > 0.25 {
			penalty += 0.05
		}
	}

	if title == "" {
		title = truncateAtWord(body, 60)
		penalty += 0.05
	}
	if summary == "" {
		summary = truncateAtWord(body, 200)
		penalty += 0.03
	}
	if meta.VisualWeight == "high" && visual == "" {
		penalty += 0.1
	}

	return PieceResult{
		Title:          title,
		Body:           body,
		Summary:        summary,
		VisualPrompt:   visual,
		WordCount:      words,
		QualityScore:   round2(clamp01(1.0 - penalty)),
		BrandAlignment: round2(brandAlignment(body, candidate.BrandTone)),
	}, nil
}

// brandAlignment is a rough lexical check that the draft reflects the
// brand's stated tone words. Neutral 0.7 when no tone is configured.
func brandAlignment(body, brandTone string) float64 {
	tone := strings.ToLower(normalizeText(brandTone))
	if tone == "" {
		return 0.7
	}
	lowered := strings.ToLower(body)
	matches := 0
	total := 0
	for _, word := range strings.Fields(tone) {
		word = strings.Trim(word, ".,;:")
		if len(word) < 4 {
			continue
		}
		total++
		if strings.Contains(lowered, word) {
			matches++
		}
	}
	if total == 0 {
		return 0.7
	}
	return clamp01(0.5 + 0.5*float64(matches)/float64(total))
}

func truncateAtWord(value string, maxLen int) string {
	if len(value) <= maxLen || maxLen <= 0 {
		return value
	}
	cut := value[:maxLen]
	for i := len(cut) - 1; i > maxLen/2; i-- {
		if cut[i] == ' ' {
			cut = cut[:i]
			break
		}
	}
	return normalizeText(cut)
}
