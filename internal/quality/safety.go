package quality

import (
	"strings"
)

// SafetyFlag names a screening rule that matched.
type SafetyFlag struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SafetyReport is the result of screening generated copy before it is stored.
type SafetyReport struct {
	Score float64      `json:"score"`
	Flags []SafetyFlag `json:"flags,omitempty"`
}

// Passed compares the score against the company's configured threshold.
func (r SafetyReport) Passed(threshold float64) bool {
	return r.Score >= threshold
}

func (r SafetyReport) FlagCodes() []string {
	codes := make([]string, 0, len(r.Flags))
	for _, flag := range r.Flags {
		codes = append(codes, flag.Code)
	}
	return codes
}

// ScreenCopy scores marketing copy for claims a brand should not publish.
// Each matched rule subtracts its weight from a perfect 1.0.
func ScreenCopy(texts ...string) SafetyReport {
	content := strings.ToLower(strings.Join(texts, "\n"))
	if strings.TrimSpace(content) == "" {
		return SafetyReport{Score: 1.0}
	}

	flags := make([]SafetyFlag, 0, 2)
	score := 1.0
	for _, rule := range safetyRules {
		matched := false
		for _, token := range rule.tokens {
			if strings.Contains(content, token) {
				matched = true
				break
			}
		}
		if matched {
			score -= rule.weight
			flags = append(flags, SafetyFlag{Code: rule.code, Message: rule.message})
		}
	}
	if score < 0 {
		score = 0
	}
	return SafetyReport{Score: round2(score), Flags: flags}
}

type safetyRule struct {
	code    string
	message string
	weight  float64
	tokens  []string
}

var safetyRules = []safetyRule{
	{
		code:    "absolute_claim",
		message: "copy makes an absolute or guaranteed-outcome claim",
		weight:  0.2,
		tokens:  []string{"guaranteed", "100% effective", "risk-free", "never fails", "no risk at all"},
	},
	{
		code:    "medical_claim",
		message: "copy makes an unverifiable health claim",
		weight:  0.35,
		tokens:  []string{"cures", "clinically proven", "fda approved", "miracle"},
	},
	{
		code:    "financial_promise",
		message: "copy promises financial returns",
		weight:  0.3,
		tokens:  []string{"guaranteed returns", "double your money", "get rich", "passive income guaranteed"},
	},
	{
		code:    "urgency_pressure",
		message: "copy uses manipulative urgency",
		weight:  0.1,
		tokens:  []string{"act now or lose", "last chance ever", "only today!!!"},
	},
	{
		code:    "competitor_attack",
		message: "copy disparages a competitor by name",
		weight:  0.15,
		tokens:  []string{"unlike the scam", "competitor lies", "they are frauds"},
	},
}
