package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// JobRepository persists optimization job records: the concrete shape
// behind spec §6's `upsert_job`.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository constructs the repository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job record in QUEUED status.
func (r *JobRepository) Create(ctx context.Context, job *models.JobRecord) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.JobStatusQueued
	}
	if job.Config == nil {
		job.Config = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	const query = `INSERT INTO jobs (id, batch_ids, status, config, logs, fitness_curve, unassigned_count, error, created_at, updated_at)
		VALUES (:id, :batch_ids, :status, :config, :logs, :fitness_curve, :unassigned_count, :error, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// FindByID loads a job by its identifier.
func (r *JobRepository) FindByID(ctx context.Context, id string) (*models.JobRecord, error) {
	const query = `SELECT id, batch_ids, status, config, logs, fitness_curve, unassigned_count, error, created_at, updated_at FROM jobs WHERE id = $1`
	var job models.JobRecord
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns jobs matching filter criteria, most recent first.
func (r *JobRepository) List(ctx context.Context, filter models.JobFilter) ([]models.JobRecord, int, error) {
	base := "FROM jobs WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, batch_ids, status, config, logs, fitness_curve, unassigned_count, error, created_at, updated_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, size, offset)
	var jobs []models.JobRecord
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}
	return jobs, total, nil
}

// UpdateProgress persists the current status, accumulated logs, and fitness
// curve for a running job. Called repeatedly as the Commit Coordinator
// streams progress events.
func (r *JobRepository) UpdateProgress(ctx context.Context, id string, status models.JobStatus, logs []string, fitnessCurve []int64) error {
	query := `UPDATE jobs SET status = $1, logs = $2, fitness_curve = $3, updated_at = $4 WHERE id = $5`
	_, err := r.db.ExecContext(ctx, query, status, pq.StringArray(logs), pq.Int64Array(fitnessCurve), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return nil
}

// Finish marks a job terminal, recording the final unassigned count and
// optional error text.
func (r *JobRepository) Finish(ctx context.Context, id string, status models.JobStatus, unassignedCount int, jobErr *string) error {
	query := `UPDATE jobs SET status = $1, unassigned_count = $2, error = $3, updated_at = $4 WHERE id = $5`
	_, err := r.db.ExecContext(ctx, query, status, unassignedCount, jobErr, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return nil
}
