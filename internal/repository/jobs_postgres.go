package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/signalhq/signal-backend/internal/domain"
)

type PostgresJobsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresJobsRepository(ctx context.Context, databaseURL string) (*PostgresJobsRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return &PostgresJobsRepository{pool: pool}, nil
}

// NewPostgresJobsRepositoryFromPool shares an existing pool across
// repositories.
func NewPostgresJobsRepositoryFromPool(pool *pgxpool.Pool) *PostgresJobsRepository {
	return &PostgresJobsRepository{pool: pool}
}

func (r *PostgresJobsRepository) Close() {
	r.pool.Close()
}

func (r *PostgresJobsRepository) CreateJob(ctx context.Context, job *domain.Job) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO jobs (
			id,
			type,
			company_id,
			payload,
			status,
			result,
			error_message,
			progress_step,
			progress_total,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		job.ID,
		string(job.Type),
		job.CompanyID,
		job.Payload,
		string(job.Status),
		job.Result,
		job.ErrorMessage,
		job.ProgressStep,
		job.ProgressTotal,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *PostgresJobsRepository) UpdateJob(ctx context.Context, job *domain.Job) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = $2,
			result = $3,
			error_message = $4,
			progress_step = $5,
			progress_total = $6,
			updated_at = $7
		WHERE id = $1
	`, job.ID, string(job.Status), job.Result, job.ErrorMessage,
		job.ProgressStep, job.ProgressTotal, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresJobsRepository) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	var (
		job     domain.Job
		jobType string
		status  string
		payload []byte
		result  []byte
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, type, company_id, payload, status, result, error_message,
			progress_step, progress_total, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`, jobID).Scan(
		&job.ID,
		&jobType,
		&job.CompanyID,
		&payload,
		&status,
		&result,
		&job.ErrorMessage,
		&job.ProgressStep,
		&job.ProgressTotal,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query job: %w", err)
	}

	job.Type = domain.JobType(jobType)
	job.Status = domain.JobStatus(status)
	job.Payload = json.RawMessage(payload)
	job.Result = json.RawMessage(result)
	return &job, nil
}

func (r *PostgresJobsRepository) ListJobs(
	ctx context.Context,
	filter JobListFilter,
) ([]*domain.Job, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	baseQuery, args := buildJobFilters(filter)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	listQuery := fmt.Sprintf(
		`SELECT id, type, company_id, payload, status, result, error_message,
			progress_step, progress_total, created_at, updated_at
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		baseQuery,
		len(args)+1,
		len(args)+2,
	)
	listArgs := append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	rows, err := r.pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.Job, 0)
	for rows.Next() {
		var (
			job       domain.Job
			jobType   string
			status    string
			payload   []byte
			result    []byte
			createdAt time.Time
			updatedAt time.Time
		)
		if err := rows.Scan(&job.ID, &jobType, &job.CompanyID, &payload, &status, &result,
			&job.ErrorMessage, &job.ProgressStep, &job.ProgressTotal, &createdAt, &updatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		job.Type = domain.JobType(jobType)
		job.Status = domain.JobStatus(status)
		job.Payload = json.RawMessage(payload)
		job.Result = json.RawMessage(result)
		job.CreatedAt = createdAt
		job.UpdatedAt = updatedAt
		items = append(items, &job)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate jobs: %w", rows.Err())
	}
	return items, total, nil
}

func buildJobFilters(filter JobListFilter) (string, []any) {
	query := strings.Builder{}
	query.WriteString("FROM jobs WHERE 1=1")

	args := make([]any, 0, 3)
	argIndex := 1

	if companyID := strings.TrimSpace(filter.CompanyID); companyID != "" {
		query.WriteString(fmt.Sprintf(" AND company_id = $%d", argIndex))
		args = append(args, companyID)
		argIndex++
	}
	if filter.Type != "" {
		query.WriteString(fmt.Sprintf(" AND type = $%d", argIndex))
		args = append(args, string(filter.Type))
		argIndex++
	}
	if filter.Status != "" {
		query.WriteString(fmt.Sprintf(" AND status = $%d", argIndex))
		args = append(args, string(filter.Status))
		argIndex++
	}
	return query.String(), args
}
