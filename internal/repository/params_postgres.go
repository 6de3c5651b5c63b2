package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/signalhq/signal-backend/internal/domain"
)

type PostgresParamsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresParamsRepository(pool *pgxpool.Pool) *PostgresParamsRepository {
	return &PostgresParamsRepository{pool: pool}
}

func (r *PostgresParamsRepository) GetParameters(ctx context.Context, companyID string) (*domain.Parameters, error) {
	var params domain.Parameters
	err := r.pool.QueryRow(ctx, `
		SELECT company_id, weights, watermarks, updated_at
		FROM parameters WHERE company_id = $1
	`, companyID).Scan(&params.CompanyID, &params.Weights, &params.Watermarks, &params.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return &domain.Parameters{
				CompanyID:  companyID,
				Weights:    domain.DefaultWeights(),
				Watermarks: make(map[string]time.Time),
			}, nil
		}
		return nil, fmt.Errorf("query parameters: %w", err)
	}
	if params.Weights == nil {
		params.Weights = domain.DefaultWeights()
	}
	if params.Watermarks == nil {
		params.Watermarks = make(map[string]time.Time)
	}
	return &params, nil
}

func (r *PostgresParamsRepository) SaveParameters(ctx context.Context, params *domain.Parameters) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO parameters (company_id, weights, watermarks, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (company_id) DO UPDATE SET
			weights = EXCLUDED.weights,
			watermarks = EXCLUDED.watermarks,
			updated_at = EXCLUDED.updated_at
	`, params.CompanyID, params.Weights, params.Watermarks, params.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save parameters: %w", err)
	}
	return nil
}

// ReplaceSharedPatterns swaps the whole aggregate table in one transaction so
// readers never observe a partial recompute.
func (r *PostgresParamsRepository) ReplaceSharedPatterns(ctx context.Context, patterns []*domain.SharedPattern) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin patterns tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM shared_patterns"); err != nil {
		return fmt.Errorf("clear shared patterns: %w", err)
	}
	for _, pattern := range patterns {
		_, err := tx.Exec(ctx, `
			INSERT INTO shared_patterns (
				id, dimension, value, avg_engagement, sample_count,
				company_count, computed_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
			pattern.ID, pattern.Dimension, pattern.Value, pattern.AvgEngagement,
			pattern.SampleCount, pattern.CompanyCount, pattern.ComputedAt,
		)
		if err != nil {
			return fmt.Errorf("insert shared pattern: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit patterns tx: %w", err)
	}
	return nil
}

func (r *PostgresParamsRepository) ListSharedPatterns(ctx context.Context) ([]*domain.SharedPattern, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, dimension, value, avg_engagement, sample_count, company_count, computed_at
		FROM shared_patterns ORDER BY dimension, value
	`)
	if err != nil {
		return nil, fmt.Errorf("list shared patterns: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.SharedPattern, 0)
	for rows.Next() {
		var pattern domain.SharedPattern
		if err := rows.Scan(
			&pattern.ID, &pattern.Dimension, &pattern.Value,
			&pattern.AvgEngagement, &pattern.SampleCount,
			&pattern.CompanyCount, &pattern.ComputedAt,
		); err != nil {
			return nil, fmt.Errorf("scan shared pattern: %w", err)
		}
		items = append(items, &pattern)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate shared patterns: %w", rows.Err())
	}
	return items, nil
}

func (r *PostgresParamsRepository) UpsertCalibration(ctx context.Context, entry *domain.CalibrationEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calibrations (
			category, bucket, adjustment, sample_count, last_observed_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (category, bucket) DO UPDATE SET
			adjustment = EXCLUDED.adjustment,
			sample_count = EXCLUDED.sample_count,
			last_observed_at = EXCLUDED.last_observed_at,
			updated_at = EXCLUDED.updated_at
	`, entry.Category, entry.Bucket, entry.Adjustment, entry.SampleCount,
		entry.LastObservedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert calibration: %w", err)
	}
	return nil
}

func (r *PostgresParamsRepository) GetCalibration(
	ctx context.Context,
	category string,
	bucket float64,
) (*domain.CalibrationEntry, error) {
	var entry domain.CalibrationEntry
	err := r.pool.QueryRow(ctx, `
		SELECT category, bucket, adjustment, sample_count, last_observed_at, updated_at
		FROM calibrations WHERE category = $1 AND bucket = $2
	`, category, bucket).Scan(
		&entry.Category, &entry.Bucket, &entry.Adjustment,
		&entry.SampleCount, &entry.LastObservedAt, &entry.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query calibration: %w", err)
	}
	return &entry, nil
}

func (r *PostgresParamsRepository) ListCalibrations(ctx context.Context) ([]*domain.CalibrationEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category, bucket, adjustment, sample_count, last_observed_at, updated_at
		FROM calibrations ORDER BY category, bucket
	`)
	if err != nil {
		return nil, fmt.Errorf("list calibrations: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.CalibrationEntry, 0)
	for rows.Next() {
		var entry domain.CalibrationEntry
		if err := rows.Scan(
			&entry.Category, &entry.Bucket, &entry.Adjustment,
			&entry.SampleCount, &entry.LastObservedAt, &entry.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan calibration: %w", err)
		}
		items = append(items, &entry)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate calibrations: %w", rows.Err())
	}
	return items, nil
}
