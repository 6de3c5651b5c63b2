package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/signalhq/signal-backend/internal/domain"
)

// PostgresRecordsRepository stores entities in Postgres. Slice and map fields
// live in JSONB columns so pgx handles the codec.
type PostgresRecordsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRecordsRepository(pool *pgxpool.Pool) *PostgresRecordsRepository {
	return &PostgresRecordsRepository{pool: pool}
}

func (r *PostgresRecordsRepository) CreateCompany(ctx context.Context, company *domain.CompanyProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO companies (
			id, name, industry, website, tone_of_voice, target_audience,
			campaign_goals, competitors, content_history, visual_style,
			safety_threshold, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		company.ID, company.Name, company.Industry, company.Website,
		company.ToneOfVoice, company.TargetAudience, company.CampaignGoals,
		company.Competitors, company.ContentHistory, company.VisualStyle,
		company.SafetyThreshold, company.CreatedAt, company.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (r *PostgresRecordsRepository) UpdateCompany(ctx context.Context, company *domain.CompanyProfile) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE companies
		SET name = $2, industry = $3, website = $4, tone_of_voice = $5,
			target_audience = $6, campaign_goals = $7, competitors = $8,
			content_history = $9, visual_style = $10, safety_threshold = $11,
			updated_at = $12
		WHERE id = $1
	`,
		company.ID, company.Name, company.Industry, company.Website,
		company.ToneOfVoice, company.TargetAudience, company.CampaignGoals,
		company.Competitors, company.ContentHistory, company.VisualStyle,
		company.SafetyThreshold, company.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRecordsRepository) GetCompany(ctx context.Context, companyID string) (*domain.CompanyProfile, error) {
	var company domain.CompanyProfile
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, industry, website, tone_of_voice, target_audience,
			campaign_goals, competitors, content_history, visual_style,
			safety_threshold, created_at, updated_at
		FROM companies WHERE id = $1
	`, companyID).Scan(
		&company.ID, &company.Name, &company.Industry, &company.Website,
		&company.ToneOfVoice, &company.TargetAudience, &company.CampaignGoals,
		&company.Competitors, &company.ContentHistory, &company.VisualStyle,
		&company.SafetyThreshold, &company.CreatedAt, &company.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query company: %w", err)
	}
	return &company, nil
}

func (r *PostgresRecordsRepository) ListCompanies(ctx context.Context) ([]*domain.CompanyProfile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, industry, website, tone_of_voice, target_audience,
			campaign_goals, competitors, content_history, visual_style,
			safety_threshold, created_at, updated_at
		FROM companies ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.CompanyProfile, 0)
	for rows.Next() {
		var company domain.CompanyProfile
		if err := rows.Scan(
			&company.ID, &company.Name, &company.Industry, &company.Website,
			&company.ToneOfVoice, &company.TargetAudience, &company.CampaignGoals,
			&company.Competitors, &company.ContentHistory, &company.VisualStyle,
			&company.SafetyThreshold, &company.CreatedAt, &company.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		items = append(items, &company)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate companies: %w", rows.Err())
	}
	return items, nil
}

func (r *PostgresRecordsRepository) UpsertSignal(ctx context.Context, signal *domain.TrendSignal) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO signals (
			id, market_id, title, category, probability, probability_momentum,
			volume, volume_velocity, relevance_scores, confidence_score,
			surfaced_at, expires_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			probability = EXCLUDED.probability,
			probability_momentum = EXCLUDED.probability_momentum,
			volume = EXCLUDED.volume,
			volume_velocity = EXCLUDED.volume_velocity,
			relevance_scores = EXCLUDED.relevance_scores,
			confidence_score = EXCLUDED.confidence_score,
			expires_at = EXCLUDED.expires_at
	`,
		signal.ID, signal.MarketID, signal.Title, signal.Category,
		signal.Probability, signal.ProbabilityMomentum, signal.Volume,
		signal.VolumeVelocity, signal.RelevanceScores, signal.ConfidenceScore,
		signal.SurfacedAt, signal.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert signal: %w", err)
	}
	return nil
}

func (r *PostgresRecordsRepository) GetSignal(ctx context.Context, signalID string) (*domain.TrendSignal, error) {
	var signal domain.TrendSignal
	err := r.pool.QueryRow(ctx, `
		SELECT id, market_id, title, category, probability, probability_momentum,
			volume, volume_velocity, relevance_scores, confidence_score,
			surfaced_at, expires_at
		FROM signals WHERE id = $1
	`, signalID).Scan(
		&signal.ID, &signal.MarketID, &signal.Title, &signal.Category,
		&signal.Probability, &signal.ProbabilityMomentum, &signal.Volume,
		&signal.VolumeVelocity, &signal.RelevanceScores, &signal.ConfidenceScore,
		&signal.SurfacedAt, &signal.ExpiresAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query signal: %w", err)
	}
	return &signal, nil
}

func (r *PostgresRecordsRepository) ListSignals(
	ctx context.Context,
	filter SignalListFilter,
) ([]*domain.TrendSignal, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, market_id, title, category, probability, probability_momentum,
			volume, volume_velocity, relevance_scores, confidence_score,
			surfaced_at, expires_at
		FROM signals WHERE 1=1`)

	args := make([]any, 0, 2)
	argIndex := 1
	if filter.Category != "" {
		query.WriteString(fmt.Sprintf(" AND category = $%d", argIndex))
		args = append(args, filter.Category)
		argIndex++
	}
	if !filter.IncludeDead {
		query.WriteString(fmt.Sprintf(" AND (expires_at IS NULL OR expires_at > $%d)", argIndex))
		args = append(args, time.Now())
		argIndex++
	}
	query.WriteString(" ORDER BY surfaced_at DESC")

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.TrendSignal, 0)
	for rows.Next() {
		var signal domain.TrendSignal
		if err := rows.Scan(
			&signal.ID, &signal.MarketID, &signal.Title, &signal.Category,
			&signal.Probability, &signal.ProbabilityMomentum, &signal.Volume,
			&signal.VolumeVelocity, &signal.RelevanceScores, &signal.ConfidenceScore,
			&signal.SurfacedAt, &signal.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		items = append(items, &signal)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate signals: %w", rows.Err())
	}

	// Composite ranking and score cutoffs depend on per-company relevance,
	// which lives in JSONB; filter and sort here rather than in SQL.
	if filter.CompanyID != "" {
		filtered := items[:0]
		for _, signal := range items {
			if filter.MinScore > 0 && signal.CompositeScore(filter.CompanyID) < filter.MinScore {
				continue
			}
			filtered = append(filtered, signal)
		}
		items = filtered
		sortSignalsByScore(items, filter.CompanyID)
	}
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func sortSignalsByScore(items []*domain.TrendSignal, companyID string) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].CompositeScore(companyID) > items[j-1].CompositeScore(companyID); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

const campaignColumns = `id, company_id, signal_id, headline, body_copy,
	visual_direction, visual_asset_url, channel_recommendation,
	channel_reasoning, tone_tag, hook_tag, confidence_score, safety_score,
	safety_passed, safety_flags, status, created_at, updated_at`

func (r *PostgresRecordsRepository) CreateCampaign(ctx context.Context, campaign *domain.Campaign) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO campaigns (`+campaignColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`,
		campaign.ID, campaign.CompanyID, campaign.SignalID, campaign.Headline,
		campaign.BodyCopy, campaign.VisualDirection, campaign.VisualAssetURL,
		string(campaign.ChannelRecommendation), campaign.ChannelReasoning,
		campaign.ToneTag, campaign.HookTag, campaign.ConfidenceScore,
		campaign.SafetyScore, campaign.SafetyPassed, campaign.SafetyFlags,
		string(campaign.Status), campaign.CreatedAt, campaign.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (r *PostgresRecordsRepository) UpdateCampaign(ctx context.Context, campaign *domain.Campaign) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET headline = $2, body_copy = $3, visual_direction = $4,
			visual_asset_url = $5, channel_recommendation = $6,
			channel_reasoning = $7, tone_tag = $8, hook_tag = $9,
			confidence_score = $10, safety_score = $11, safety_passed = $12,
			safety_flags = $13, status = $14, updated_at = $15
		WHERE id = $1
	`,
		campaign.ID, campaign.Headline, campaign.BodyCopy,
		campaign.VisualDirection, campaign.VisualAssetURL,
		string(campaign.ChannelRecommendation), campaign.ChannelReasoning,
		campaign.ToneTag, campaign.HookTag, campaign.ConfidenceScore,
		campaign.SafetyScore, campaign.SafetyPassed, campaign.SafetyFlags,
		string(campaign.Status), campaign.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRecordsRepository) GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	campaign, err := scanCampaign(r.pool.QueryRow(ctx,
		"SELECT "+campaignColumns+" FROM campaigns WHERE id = $1", campaignID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query campaign: %w", err)
	}
	return campaign, nil
}

func (r *PostgresRecordsRepository) ListCampaigns(
	ctx context.Context,
	filter CampaignListFilter,
) ([]*domain.Campaign, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	base := strings.Builder{}
	base.WriteString("FROM campaigns WHERE 1=1")
	args := make([]any, 0, 4)
	argIndex := 1
	if filter.CompanyID != "" {
		base.WriteString(fmt.Sprintf(" AND company_id = $%d", argIndex))
		args = append(args, filter.CompanyID)
		argIndex++
	}
	if filter.Status != "" {
		base.WriteString(fmt.Sprintf(" AND status = $%d", argIndex))
		args = append(args, string(filter.Status))
		argIndex++
	}
	if filter.SignalID != "" {
		base.WriteString(fmt.Sprintf(" AND signal_id = $%d", argIndex))
		args = append(args, filter.SignalID)
		argIndex++
	}
	if filter.CreatedAfter != nil {
		base.WriteString(fmt.Sprintf(" AND created_at >= $%d", argIndex))
		args = append(args, *filter.CreatedAfter)
		argIndex++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+base.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	listQuery := fmt.Sprintf(
		"SELECT "+campaignColumns+" %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		base.String(), len(args)+1, len(args)+2)
	listArgs := append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := r.pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.Campaign, 0)
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		items = append(items, campaign)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate campaigns: %w", rows.Err())
	}
	return items, total, nil
}

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var (
		campaign domain.Campaign
		channel  string
		status   string
	)
	if err := row.Scan(
		&campaign.ID, &campaign.CompanyID, &campaign.SignalID,
		&campaign.Headline, &campaign.BodyCopy, &campaign.VisualDirection,
		&campaign.VisualAssetURL, &channel, &campaign.ChannelReasoning,
		&campaign.ToneTag, &campaign.HookTag, &campaign.ConfidenceScore,
		&campaign.SafetyScore, &campaign.SafetyPassed, &campaign.SafetyFlags,
		&status, &campaign.CreatedAt, &campaign.UpdatedAt,
	); err != nil {
		return nil, err
	}
	campaign.ChannelRecommendation = domain.Channel(channel)
	campaign.Status = domain.CampaignStatus(status)
	return &campaign, nil
}

func (r *PostgresRecordsRepository) CountCampaignsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM campaigns WHERE created_at >= $1", since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count campaigns since: %w", err)
	}
	return count, nil
}

func (r *PostgresRecordsRepository) AppendMetric(ctx context.Context, metric *domain.Metric) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO metrics (
			id, campaign_id, company_id, channel, impressions, clicks,
			engagement_rate, sentiment_score, recorded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		metric.ID, metric.CampaignID, metric.CompanyID, string(metric.Channel),
		metric.Impressions, metric.Clicks, metric.EngagementRate,
		metric.SentimentScore, metric.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert metric: %w", err)
	}
	return nil
}

func (r *PostgresRecordsRepository) ListMetrics(
	ctx context.Context,
	companyID string,
	since *time.Time,
) ([]*domain.Metric, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, campaign_id, company_id, channel, impressions, clicks,
			engagement_rate, sentiment_score, recorded_at
		FROM metrics WHERE 1=1`)
	args := make([]any, 0, 2)
	argIndex := 1
	if companyID != "" {
		query.WriteString(fmt.Sprintf(" AND company_id = $%d", argIndex))
		args = append(args, companyID)
		argIndex++
	}
	if since != nil {
		query.WriteString(fmt.Sprintf(" AND recorded_at > $%d", argIndex))
		args = append(args, *since)
		argIndex++
	}
	query.WriteString(" ORDER BY recorded_at")

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.Metric, 0)
	for rows.Next() {
		var (
			metric  domain.Metric
			channel string
		)
		if err := rows.Scan(
			&metric.ID, &metric.CampaignID, &metric.CompanyID, &channel,
			&metric.Impressions, &metric.Clicks, &metric.EngagementRate,
			&metric.SentimentScore, &metric.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		metric.Channel = domain.Channel(channel)
		items = append(items, &metric)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate metrics: %w", rows.Err())
	}
	return items, nil
}

func (r *PostgresRecordsRepository) ListMetricsSince(ctx context.Context, since *time.Time) ([]*domain.Metric, error) {
	return r.ListMetrics(ctx, "", since)
}

const strategyColumns = `id, campaign_id, company_id, content_type, reasoning,
	target_length, tone_direction, structure_outline, priority_score,
	visual_needed, created_at`

func (r *PostgresRecordsRepository) CreateStrategy(ctx context.Context, strategy *domain.ContentStrategy) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO strategies (`+strategyColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		strategy.ID, strategy.CampaignID, strategy.CompanyID,
		string(strategy.ContentType), strategy.Reasoning, strategy.TargetLength,
		strategy.ToneDirection, strategy.StructureOutline,
		strategy.PriorityScore, strategy.VisualNeeded, strategy.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert strategy: %w", err)
	}
	return nil
}

func (r *PostgresRecordsRepository) GetStrategy(ctx context.Context, strategyID string) (*domain.ContentStrategy, error) {
	strategy, err := scanStrategy(r.pool.QueryRow(ctx,
		"SELECT "+strategyColumns+" FROM strategies WHERE id = $1", strategyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query strategy: %w", err)
	}
	return strategy, nil
}

func (r *PostgresRecordsRepository) ListStrategies(
	ctx context.Context,
	filter StrategyListFilter,
) ([]*domain.ContentStrategy, error) {
	query := strings.Builder{}
	query.WriteString("SELECT " + strategyColumns + " FROM strategies WHERE 1=1")
	args := make([]any, 0, 2)
	argIndex := 1
	if filter.CompanyID != "" {
		query.WriteString(fmt.Sprintf(" AND company_id = $%d", argIndex))
		args = append(args, filter.CompanyID)
		argIndex++
	}
	if filter.CampaignID != "" {
		query.WriteString(fmt.Sprintf(" AND campaign_id = $%d", argIndex))
		args = append(args, filter.CampaignID)
		argIndex++
	}
	query.WriteString(" ORDER BY priority_score DESC, created_at DESC")

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.ContentStrategy, 0)
	for rows.Next() {
		strategy, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		items = append(items, strategy)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate strategies: %w", rows.Err())
	}
	return items, nil
}

func scanStrategy(row pgx.Row) (*domain.ContentStrategy, error) {
	var (
		strategy    domain.ContentStrategy
		contentType string
	)
	if err := row.Scan(
		&strategy.ID, &strategy.CampaignID, &strategy.CompanyID,
		&contentType, &strategy.Reasoning, &strategy.TargetLength,
		&strategy.ToneDirection, &strategy.StructureOutline,
		&strategy.PriorityScore, &strategy.VisualNeeded, &strategy.CreatedAt,
	); err != nil {
		return nil, err
	}
	strategy.ContentType = domain.ContentType(contentType)
	return &strategy, nil
}

const pieceColumns = `id, strategy_id, campaign_id, company_id, content_type,
	title, body, summary, word_count, visual_prompt, visual_asset_url,
	quality_score, brand_alignment, status, created_at, updated_at`

func (r *PostgresRecordsRepository) CreatePiece(ctx context.Context, piece *domain.ContentPiece) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO pieces (`+pieceColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		piece.ID, piece.StrategyID, piece.CampaignID, piece.CompanyID,
		string(piece.ContentType), piece.Title, piece.Body, piece.Summary,
		piece.WordCount, piece.VisualPrompt, piece.VisualAssetURL,
		piece.QualityScore, piece.BrandAlignment, string(piece.Status),
		piece.CreatedAt, piece.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert piece: %w", err)
	}
	return nil
}

func (r *PostgresRecordsRepository) UpdatePiece(ctx context.Context, piece *domain.ContentPiece) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE pieces
		SET title = $2, body = $3, summary = $4, word_count = $5,
			visual_prompt = $6, visual_asset_url = $7, quality_score = $8,
			brand_alignment = $9, status = $10, updated_at = $11
		WHERE id = $1
	`, piece.ID, piece.Title, piece.Body, piece.Summary, piece.WordCount,
		piece.VisualPrompt, piece.VisualAssetURL, piece.QualityScore,
		piece.BrandAlignment, string(piece.Status), piece.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update piece: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRecordsRepository) GetPiece(ctx context.Context, pieceID string) (*domain.ContentPiece, error) {
	piece, err := scanPiece(r.pool.QueryRow(ctx,
		"SELECT "+pieceColumns+" FROM pieces WHERE id = $1", pieceID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query piece: %w", err)
	}
	return piece, nil
}

func scanPiece(row pgx.Row) (*domain.ContentPiece, error) {
	var (
		piece       domain.ContentPiece
		contentType string
		status      string
	)
	if err := row.Scan(
		&piece.ID, &piece.StrategyID, &piece.CampaignID, &piece.CompanyID,
		&contentType, &piece.Title, &piece.Body, &piece.Summary,
		&piece.WordCount, &piece.VisualPrompt, &piece.VisualAssetURL,
		&piece.QualityScore, &piece.BrandAlignment, &status,
		&piece.CreatedAt, &piece.UpdatedAt,
	); err != nil {
		return nil, err
	}
	piece.ContentType = domain.ContentType(contentType)
	piece.Status = domain.PieceStatus(status)
	return &piece, nil
}

func (r *PostgresRecordsRepository) ListPieces(
	ctx context.Context,
	filter PieceListFilter,
) ([]*domain.ContentPiece, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	base := strings.Builder{}
	base.WriteString("FROM pieces WHERE 1=1")
	args := make([]any, 0, 3)
	argIndex := 1
	if filter.CompanyID != "" {
		base.WriteString(fmt.Sprintf(" AND company_id = $%d", argIndex))
		args = append(args, filter.CompanyID)
		argIndex++
	}
	if filter.StrategyID != "" {
		base.WriteString(fmt.Sprintf(" AND strategy_id = $%d", argIndex))
		args = append(args, filter.StrategyID)
		argIndex++
	}
	if filter.Status != "" {
		base.WriteString(fmt.Sprintf(" AND status = $%d", argIndex))
		args = append(args, string(filter.Status))
		argIndex++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+base.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pieces: %w", err)
	}

	listQuery := fmt.Sprintf(
		"SELECT "+pieceColumns+" %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		base.String(), len(args)+1, len(args)+2)
	listArgs := append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := r.pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list pieces: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.ContentPiece, 0)
	for rows.Next() {
		piece, err := scanPiece(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan piece: %w", err)
		}
		items = append(items, piece)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate pieces: %w", rows.Err())
	}
	return items, total, nil
}
