package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// TimetableRepository persists committed, versioned timetables. It is the
// concrete Entity Store implementation of the write side of spec §6
// (`upsert_timetable`) and the read side that seeds the Resource Index's
// external busy maps (`list_committed_timetables`).
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Commit replaces the published timetable for a batch: any existing
// published version is archived, and the new grid is inserted as the next
// version, published immediately. This implements the Commit Coordinator's
// "delete any existing Timetable document, insert the new grid" contract
// atomically at the per-batch granularity, using archive-rather-than-delete
// so prior versions remain queryable for audit.
func (r *TimetableRepository) Commit(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	target := r.exec(exec)
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	timetable.Status = models.TimetableStatusPublished
	now := time.Now().UTC()
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now

	const archiveQuery = `UPDATE timetables SET status = $1, updated_at = $2 WHERE batch_id = $3 AND status = $4`
	if _, err := target.ExecContext(ctx, archiveQuery, models.TimetableStatusArchived, now, timetable.BatchID, models.TimetableStatusPublished); err != nil {
		return fmt.Errorf("archive prior timetable: %w", err)
	}

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM timetables WHERE batch_id = $1`
	if err := sqlx.GetContext(ctx, target, &timetable.Version, nextVersionQuery, timetable.BatchID); err != nil {
		return fmt.Errorf("compute next timetable version: %w", err)
	}

	const insertQuery = `INSERT INTO timetables (id, batch_id, version, status, grid, fitness_score, unassigned_count, job_id, created_at, updated_at)
		VALUES (:id, :batch_id, :version, :status, :grid, :fitness_score, :unassigned_count, :job_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, timetable); err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}
	return nil
}

// FindPublishedByBatch returns the currently published timetable for a batch.
func (r *TimetableRepository) FindPublishedByBatch(ctx context.Context, batchID string) (*models.Timetable, error) {
	const query = `SELECT id, batch_id, version, status, grid, fitness_score, unassigned_count, job_id, created_at, updated_at
		FROM timetables WHERE batch_id = $1 AND status = $2 ORDER BY version DESC LIMIT 1`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, batchID, models.TimetableStatusPublished); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// FindByID loads a timetable by its identifier.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	const query = `SELECT id, batch_id, version, status, grid, fitness_score, unassigned_count, job_id, created_at, updated_at FROM timetables WHERE id = $1`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// ListVersionsByBatch returns version metadata (without grid payload) for a batch.
func (r *TimetableRepository) ListVersionsByBatch(ctx context.Context, batchID string) ([]models.TimetableVersionMeta, error) {
	const query = `SELECT id, version, status, fitness_score, unassigned_count, created_at
		FROM timetables WHERE batch_id = $1 ORDER BY version DESC`
	var versions []models.TimetableVersionMeta
	if err := r.db.SelectContext(ctx, &versions, query, batchID); err != nil {
		return nil, fmt.Errorf("list timetable versions: %w", err)
	}
	return versions, nil
}

// ListCommittedExcluding returns every published timetable whose batch is
// not among excludeBatchIDs. This is the concrete `list_committed_timetables`
// operation of spec §6, used to seed external busy maps for incremental
// scheduling.
func (r *TimetableRepository) ListCommittedExcluding(ctx context.Context, excludeBatchIDs []string) ([]models.Timetable, error) {
	query := `SELECT id, batch_id, version, status, grid, fitness_score, unassigned_count, job_id, created_at, updated_at
		FROM timetables WHERE status = $1`
	args := []interface{}{models.TimetableStatusPublished}
	if len(excludeBatchIDs) > 0 {
		query += fmt.Sprintf(" AND batch_id <> ALL($%d)", len(args)+1)
		args = append(args, pq.Array(excludeBatchIDs))
	}
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query, args...); err != nil {
		return nil, fmt.Errorf("list committed timetables: %w", err)
	}
	return timetables, nil
}

// Delete removes a timetable version outright. Used by the admin surface to
// discard a draft or an erroneous commit; published history is otherwise
// kept via Commit's archive-not-delete policy.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
