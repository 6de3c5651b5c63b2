package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/signalhq/signal-backend/internal/domain"
)

// SignalListFilter narrows signal listings. Zero-value fields are ignored.
type SignalListFilter struct {
	Category    string
	MinScore    float64
	CompanyID   string
	IncludeDead bool
	Limit       int
}

// CampaignListFilter narrows campaign listings.
type CampaignListFilter struct {
	CompanyID    string
	Status       domain.CampaignStatus
	SignalID     string
	CreatedAfter *time.Time
	Page         int
	PageSize     int
}

// StrategyListFilter narrows strategy listings.
type StrategyListFilter struct {
	CompanyID  string
	CampaignID string
}

// PieceListFilter narrows content piece listings.
type PieceListFilter struct {
	CompanyID  string
	StrategyID string
	Status     domain.PieceStatus
	Page       int
	PageSize   int
}

// RecordsRepository persists the marketing entities the pipeline stages read
// and write.
type RecordsRepository interface {
	CreateCompany(ctx context.Context, company *domain.CompanyProfile) error
	UpdateCompany(ctx context.Context, company *domain.CompanyProfile) error
	GetCompany(ctx context.Context, companyID string) (*domain.CompanyProfile, error)
	ListCompanies(ctx context.Context) ([]*domain.CompanyProfile, error)

	UpsertSignal(ctx context.Context, signal *domain.TrendSignal) error
	GetSignal(ctx context.Context, signalID string) (*domain.TrendSignal, error)
	ListSignals(ctx context.Context, filter SignalListFilter) ([]*domain.TrendSignal, error)

	CreateCampaign(ctx context.Context, campaign *domain.Campaign) error
	UpdateCampaign(ctx context.Context, campaign *domain.Campaign) error
	GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error)
	ListCampaigns(ctx context.Context, filter CampaignListFilter) ([]*domain.Campaign, int, error)
	CountCampaignsSince(ctx context.Context, since time.Time) (int, error)

	AppendMetric(ctx context.Context, metric *domain.Metric) error
	ListMetrics(ctx context.Context, companyID string, since *time.Time) ([]*domain.Metric, error)
	ListMetricsSince(ctx context.Context, since *time.Time) ([]*domain.Metric, error)

	CreateStrategy(ctx context.Context, strategy *domain.ContentStrategy) error
	GetStrategy(ctx context.Context, strategyID string) (*domain.ContentStrategy, error)
	ListStrategies(ctx context.Context, filter StrategyListFilter) ([]*domain.ContentStrategy, error)

	CreatePiece(ctx context.Context, piece *domain.ContentPiece) error
	UpdatePiece(ctx context.Context, piece *domain.ContentPiece) error
	GetPiece(ctx context.Context, pieceID string) (*domain.ContentPiece, error)
	ListPieces(ctx context.Context, filter PieceListFilter) ([]*domain.ContentPiece, int, error)
}

// MemoryRecordsRepository keeps everything in maps guarded by one RWMutex.
// Good enough for local development and the test suite.
type MemoryRecordsRepository struct {
	mu         sync.RWMutex
	companies  map[string]*domain.CompanyProfile
	signals    map[string]*domain.TrendSignal
	campaigns  map[string]*domain.Campaign
	metrics    []*domain.Metric
	strategies map[string]*domain.ContentStrategy
	pieces     map[string]*domain.ContentPiece
}

func NewMemoryRecordsRepository() *MemoryRecordsRepository {
	return &MemoryRecordsRepository{
		companies:  make(map[string]*domain.CompanyProfile),
		signals:    make(map[string]*domain.TrendSignal),
		campaigns:  make(map[string]*domain.Campaign),
		strategies: make(map[string]*domain.ContentStrategy),
		pieces:     make(map[string]*domain.ContentPiece),
	}
}

func (r *MemoryRecordsRepository) CreateCompany(_ context.Context, company *domain.CompanyProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.companies[company.ID] = cloneCompany(company)
	return nil
}

func (r *MemoryRecordsRepository) UpdateCompany(_ context.Context, company *domain.CompanyProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.companies[company.ID]; !ok {
		return ErrNotFound
	}
	r.companies[company.ID] = cloneCompany(company)
	return nil
}

func (r *MemoryRecordsRepository) GetCompany(_ context.Context, companyID string) (*domain.CompanyProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	company, ok := r.companies[companyID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneCompany(company), nil
}

func (r *MemoryRecordsRepository) ListCompanies(_ context.Context) ([]*domain.CompanyProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]*domain.CompanyProfile, 0, len(r.companies))
	for _, company := range r.companies {
		items = append(items, cloneCompany(company))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (r *MemoryRecordsRepository) UpsertSignal(_ context.Context, signal *domain.TrendSignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals[signal.ID] = cloneSignal(signal)
	return nil
}

func (r *MemoryRecordsRepository) GetSignal(_ context.Context, signalID string) (*domain.TrendSignal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	signal, ok := r.signals[signalID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSignal(signal), nil
}

func (r *MemoryRecordsRepository) ListSignals(_ context.Context, filter SignalListFilter) ([]*domain.TrendSignal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	items := make([]*domain.TrendSignal, 0)
	for _, signal := range r.signals {
		if filter.Category != "" && signal.Category != filter.Category {
			continue
		}
		if !filter.IncludeDead && signal.ExpiresAt != nil && signal.ExpiresAt.Before(now) {
			continue
		}
		if filter.CompanyID != "" && filter.MinScore > 0 &&
			signal.CompositeScore(filter.CompanyID) < filter.MinScore {
			continue
		}
		items = append(items, cloneSignal(signal))
	}

	if filter.CompanyID != "" {
		sort.Slice(items, func(i, j int) bool {
			return items[i].CompositeScore(filter.CompanyID) > items[j].CompositeScore(filter.CompanyID)
		})
	} else {
		sort.Slice(items, func(i, j int) bool { return items[i].SurfacedAt.After(items[j].SurfacedAt) })
	}

	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (r *MemoryRecordsRepository) CreateCampaign(_ context.Context, campaign *domain.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaigns[campaign.ID] = cloneCampaign(campaign)
	return nil
}

func (r *MemoryRecordsRepository) UpdateCampaign(_ context.Context, campaign *domain.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campaigns[campaign.ID]; !ok {
		return ErrNotFound
	}
	r.campaigns[campaign.ID] = cloneCampaign(campaign)
	return nil
}

func (r *MemoryRecordsRepository) GetCampaign(_ context.Context, campaignID string) (*domain.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	campaign, ok := r.campaigns[campaignID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneCampaign(campaign), nil
}

func (r *MemoryRecordsRepository) ListCampaigns(
	_ context.Context,
	filter CampaignListFilter,
) ([]*domain.Campaign, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	items := make([]*domain.Campaign, 0)
	for _, campaign := range r.campaigns {
		if filter.CompanyID != "" && campaign.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Status != "" && campaign.Status != filter.Status {
			continue
		}
		if filter.SignalID != "" && campaign.SignalID != filter.SignalID {
			continue
		}
		if filter.CreatedAfter != nil && campaign.CreatedAt.Before(*filter.CreatedAfter) {
			continue
		}
		items = append(items, cloneCampaign(campaign))
	}

	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })

	total := len(items)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []*domain.Campaign{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return items[start:end], total, nil
}

func (r *MemoryRecordsRepository) CountCampaignsSince(_ context.Context, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, campaign := range r.campaigns {
		if !campaign.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRecordsRepository) AppendMetric(_ context.Context, metric *domain.Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, cloneMetric(metric))
	return nil
}

func (r *MemoryRecordsRepository) ListMetrics(
	_ context.Context,
	companyID string,
	since *time.Time,
) ([]*domain.Metric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]*domain.Metric, 0)
	for _, metric := range r.metrics {
		if companyID != "" && metric.CompanyID != companyID {
			continue
		}
		if since != nil && !metric.RecordedAt.After(*since) {
			continue
		}
		items = append(items, cloneMetric(metric))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].RecordedAt.Before(items[j].RecordedAt) })
	return items, nil
}

func (r *MemoryRecordsRepository) ListMetricsSince(ctx context.Context, since *time.Time) ([]*domain.Metric, error) {
	return r.ListMetrics(ctx, "", since)
}

func (r *MemoryRecordsRepository) CreateStrategy(_ context.Context, strategy *domain.ContentStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[strategy.ID] = cloneStrategy(strategy)
	return nil
}

func (r *MemoryRecordsRepository) GetStrategy(_ context.Context, strategyID string) (*domain.ContentStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	strategy, ok := r.strategies[strategyID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneStrategy(strategy), nil
}

func (r *MemoryRecordsRepository) ListStrategies(
	_ context.Context,
	filter StrategyListFilter,
) ([]*domain.ContentStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]*domain.ContentStrategy, 0)
	for _, strategy := range r.strategies {
		if filter.CompanyID != "" && strategy.CompanyID != filter.CompanyID {
			continue
		}
		if filter.CampaignID != "" && strategy.CampaignID != filter.CampaignID {
			continue
		}
		items = append(items, cloneStrategy(strategy))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].PriorityScore == items[j].PriorityScore {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].PriorityScore > items[j].PriorityScore
	})
	return items, nil
}

func (r *MemoryRecordsRepository) CreatePiece(_ context.Context, piece *domain.ContentPiece) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *piece
	r.pieces[piece.ID] = &clone
	return nil
}

func (r *MemoryRecordsRepository) UpdatePiece(_ context.Context, piece *domain.ContentPiece) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pieces[piece.ID]; !ok {
		return ErrNotFound
	}
	clone := *piece
	r.pieces[piece.ID] = &clone
	return nil
}

func (r *MemoryRecordsRepository) GetPiece(_ context.Context, pieceID string) (*domain.ContentPiece, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	piece, ok := r.pieces[pieceID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *piece
	return &clone, nil
}

func (r *MemoryRecordsRepository) ListPieces(
	_ context.Context,
	filter PieceListFilter,
) ([]*domain.ContentPiece, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	items := make([]*domain.ContentPiece, 0)
	for _, piece := range r.pieces {
		if filter.CompanyID != "" && piece.CompanyID != filter.CompanyID {
			continue
		}
		if filter.StrategyID != "" && piece.StrategyID != filter.StrategyID {
			continue
		}
		if filter.Status != "" && piece.Status != filter.Status {
			continue
		}
		clone := *piece
		items = append(items, &clone)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })

	total := len(items)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []*domain.ContentPiece{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return items[start:end], total, nil
}

func cloneCompany(company *domain.CompanyProfile) *domain.CompanyProfile {
	clone := *company
	clone.Competitors = append([]string(nil), company.Competitors...)
	clone.ContentHistory = append([]string(nil), company.ContentHistory...)
	return &clone
}

func cloneSignal(signal *domain.TrendSignal) *domain.TrendSignal {
	clone := *signal
	if signal.RelevanceScores != nil {
		clone.RelevanceScores = make(map[string]float64, len(signal.RelevanceScores))
		for k, v := range signal.RelevanceScores {
			clone.RelevanceScores[k] = v
		}
	}
	if signal.ExpiresAt != nil {
		expires := *signal.ExpiresAt
		clone.ExpiresAt = &expires
	}
	return &clone
}

func cloneCampaign(campaign *domain.Campaign) *domain.Campaign {
	clone := *campaign
	clone.SafetyFlags = append([]string(nil), campaign.SafetyFlags...)
	return &clone
}

func cloneMetric(metric *domain.Metric) *domain.Metric {
	clone := *metric
	if metric.SentimentScore != nil {
		sentiment := *metric.SentimentScore
		clone.SentimentScore = &sentiment
	}
	return &clone
}

func cloneStrategy(strategy *domain.ContentStrategy) *domain.ContentStrategy {
	clone := *strategy
	clone.StructureOutline = append([]string(nil), strategy.StructureOutline...)
	return &clone
}
