package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/signalhq/signal-backend/internal/domain"
)

// PromptContext assembles the brand, signal and learned-preference blocks
// that prefix every generation prompt. Blocks are ordered by priority and
// trimmed to a token budget so the adapter input stays bounded.
type PromptContext struct {
	blocks []contextBlock
}

type contextBlock struct {
	priority int
	text     string
}

func NewPromptContext() *PromptContext {
	return &PromptContext{}
}

func (p *PromptContext) AddCompany(company *domain.CompanyProfile) *PromptContext {
	if company != nil {
		p.add(0, company.PromptContext())
	}
	return p
}

func (p *PromptContext) AddSignal(signal *domain.TrendSignal) *PromptContext {
	if signal == nil {
		return p
	}
	p.add(1, fmt.Sprintf(
		"Trend signal: %s\nCategory: %s\nProbability: %.2f (momentum %+.2f)\nVolume velocity: %.2f",
		signal.Title, signal.Category, signal.Probability,
		signal.ProbabilityMomentum, signal.VolumeVelocity,
	))
	return p
}

// AddWeights surfaces the company's strongest learned tone and hook
// preferences so the model leans toward what has engaged before.
func (p *PromptContext) AddWeights(params *domain.Parameters, topN int) *PromptContext {
	if params == nil || len(params.Weights) == 0 {
		return p
	}
	if topN <= 0 {
		topN = 3
	}

	type entry struct {
		tag    string
		weight float64
	}
	entries := make([]entry, 0, len(params.Weights))
	for tag, weight := range params.Weights {
		entries = append(entries, entry{tag, weight})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].weight == entries[j].weight {
			return entries[i].tag < entries[j].tag
		}
		return entries[i].weight > entries[j].weight
	})
	if len(entries) > topN {
		entries = entries[:topN]
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("- %s (%.2f)", e.tag, e.weight))
	}
	p.add(2, "Preferences that performed well for this brand:\n"+strings.Join(lines, "\n"))
	return p
}

// AddSharedPatterns folds in cross-company aggregates. Only the strongest
// few are included; they carry no company identifiers.
func (p *PromptContext) AddSharedPatterns(patterns []*domain.SharedPattern, topN int) *PromptContext {
	if len(patterns) == 0 {
		return p
	}
	if topN <= 0 {
		topN = 3
	}

	sorted := append([]*domain.SharedPattern(nil), patterns...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].AvgEngagement == sorted[j].AvgEngagement {
			return sorted[i].Value < sorted[j].Value
		}
		return sorted[i].AvgEngagement > sorted[j].AvgEngagement
	})
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}

	lines := make([]string, 0, len(sorted))
	for _, pattern := range sorted {
		lines = append(lines, fmt.Sprintf("- %s=%s averages %.2f engagement across the platform",
			pattern.Dimension, pattern.Value, pattern.AvgEngagement))
	}
	p.add(3, "Patterns working across the industry:\n"+strings.Join(lines, "\n"))
	return p
}

func (p *PromptContext) AddFreeform(priority int, text string) *PromptContext {
	p.add(priority, text)
	return p
}

func (p *PromptContext) add(priority int, text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}
	p.blocks = append(p.blocks, contextBlock{priority: priority, text: trimmed})
}

// Render joins the blocks in priority order, dropping the lowest-priority
// ones once the budget is exhausted. A zero budget means no limit.
func (p *PromptContext) Render(maxTokens int) string {
	blocks := append([]contextBlock(nil), p.blocks...)
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].priority < blocks[j].priority })

	builder := strings.Builder{}
	total := 0
	for _, block := range blocks {
		tokens := estimateTokens(block.text)
		if maxTokens > 0 && total+tokens > maxTokens && total > 0 {
			break
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(block.text)
		total += tokens
	}
	return builder.String()
}

func estimateTokens(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	count := len([]rune(trimmed)) / 4
	if count < 1 {
		count = 1
	}
	return count
}
