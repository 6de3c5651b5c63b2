package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/signalhq/signal-backend/internal/domain"
)

// ParamsRepository persists the adaptive feedback state: per-company weights,
// anonymized shared patterns and signal calibration cells. Callers are
// responsible for serializing read-modify-write cycles per company.
type ParamsRepository interface {
	GetParameters(ctx context.Context, companyID string) (*domain.Parameters, error)
	SaveParameters(ctx context.Context, params *domain.Parameters) error

	ReplaceSharedPatterns(ctx context.Context, patterns []*domain.SharedPattern) error
	ListSharedPatterns(ctx context.Context) ([]*domain.SharedPattern, error)

	UpsertCalibration(ctx context.Context, entry *domain.CalibrationEntry) error
	GetCalibration(ctx context.Context, category string, bucket float64) (*domain.CalibrationEntry, error)
	ListCalibrations(ctx context.Context) ([]*domain.CalibrationEntry, error)
}

// MemoryParamsRepository keeps feedback state in memory.
type MemoryParamsRepository struct {
	mu           sync.RWMutex
	params       map[string]*domain.Parameters
	patterns     []*domain.SharedPattern
	calibrations map[calibKey]*domain.CalibrationEntry
}

type calibKey struct {
	category string
	bucket   float64
}

func NewMemoryParamsRepository() *MemoryParamsRepository {
	return &MemoryParamsRepository{
		params:       make(map[string]*domain.Parameters),
		calibrations: make(map[calibKey]*domain.CalibrationEntry),
	}
}

// GetParameters returns the stored parameters, or a fresh default set when
// the company has never been adjusted.
func (r *MemoryParamsRepository) GetParameters(_ context.Context, companyID string) (*domain.Parameters, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	params, ok := r.params[companyID]
	if !ok {
		return &domain.Parameters{
			CompanyID:  companyID,
			Weights:    domain.DefaultWeights(),
			Watermarks: make(map[string]time.Time),
		}, nil
	}
	return cloneParameters(params), nil
}

func (r *MemoryParamsRepository) SaveParameters(_ context.Context, params *domain.Parameters) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params[params.CompanyID] = cloneParameters(params)
	return nil
}

func (r *MemoryParamsRepository) ReplaceSharedPatterns(_ context.Context, patterns []*domain.SharedPattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	replaced := make([]*domain.SharedPattern, 0, len(patterns))
	for _, pattern := range patterns {
		clone := *pattern
		replaced = append(replaced, &clone)
	}
	r.patterns = replaced
	return nil
}

func (r *MemoryParamsRepository) ListSharedPatterns(_ context.Context) ([]*domain.SharedPattern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]*domain.SharedPattern, 0, len(r.patterns))
	for _, pattern := range r.patterns {
		clone := *pattern
		items = append(items, &clone)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Dimension != items[j].Dimension {
			return items[i].Dimension < items[j].Dimension
		}
		return items[i].Value < items[j].Value
	})
	return items, nil
}

func (r *MemoryParamsRepository) UpsertCalibration(_ context.Context, entry *domain.CalibrationEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *entry
	r.calibrations[calibKey{entry.Category, entry.Bucket}] = &clone
	return nil
}

func (r *MemoryParamsRepository) GetCalibration(
	_ context.Context,
	category string,
	bucket float64,
) (*domain.CalibrationEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.calibrations[calibKey{category, bucket}]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *entry
	return &clone, nil
}

func (r *MemoryParamsRepository) ListCalibrations(_ context.Context) ([]*domain.CalibrationEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]*domain.CalibrationEntry, 0, len(r.calibrations))
	for _, entry := range r.calibrations {
		clone := *entry
		items = append(items, &clone)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].Bucket < items[j].Bucket
	})
	return items, nil
}

func cloneParameters(params *domain.Parameters) *domain.Parameters {
	clone := *params
	clone.Weights = make(map[string]float64, len(params.Weights))
	for k, v := range params.Weights {
		clone.Weights[k] = v
	}
	clone.Watermarks = make(map[string]time.Time, len(params.Watermarks))
	for k, v := range params.Watermarks {
		clone.Watermarks[k] = v
	}
	return &clone
}
