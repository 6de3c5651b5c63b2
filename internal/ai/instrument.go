package ai

import (
	"context"
	"time"

	"github.com/signalhq/signal-backend/internal/metrics"
)

// InstrumentedGenerator records call counts and latency per stage around an
// inner Generator.
type InstrumentedGenerator struct {
	inner     Generator
	collector *metrics.Collector
}

func NewInstrumentedGenerator(inner Generator, collector *metrics.Collector) *InstrumentedGenerator {
	return &InstrumentedGenerator{inner: inner, collector: collector}
}

func (g *InstrumentedGenerator) Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error) {
	start := time.Now()
	result, err := g.inner.Generate(ctx, request)
	if g.collector != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		g.collector.AdapterCalls.WithLabelValues(request.Stage, status).Inc()
		g.collector.AdapterDuration.WithLabelValues(request.Stage).Observe(time.Since(start).Seconds())
	}
	return result, err
}

func (g *InstrumentedGenerator) Available() bool {
	return g.inner.Available()
}
