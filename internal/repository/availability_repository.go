package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// AvailabilityRepository persists faculty availability constraints.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListAll returns every constraint carrying the TEACHER_AVAILABILITY rule,
// the set spec §6 requires the Resource Index to seed from.
func (r *AvailabilityRepository) ListAll(ctx context.Context) ([]models.AvailabilityConstraint, error) {
	const query = `SELECT id, faculty_id, rule, unavailable_slots, created_at, updated_at FROM availability_constraints WHERE rule = $1`
	var constraints []models.AvailabilityConstraint
	if err := r.db.SelectContext(ctx, &constraints, query, models.AvailabilityRuleTeacherAvailability); err != nil {
		return nil, fmt.Errorf("list availability constraints: %w", err)
	}
	return constraints, nil
}

// GetByFaculty returns the declared constraint for a faculty member, if any.
func (r *AvailabilityRepository) GetByFaculty(ctx context.Context, facultyID string) (*models.AvailabilityConstraint, error) {
	const query = `SELECT id, faculty_id, rule, unavailable_slots, created_at, updated_at FROM availability_constraints WHERE faculty_id = $1 AND rule = $2`
	var constraint models.AvailabilityConstraint
	if err := r.db.GetContext(ctx, &constraint, query, facultyID, models.AvailabilityRuleTeacherAvailability); err != nil {
		return nil, err
	}
	return &constraint, nil
}

// Upsert creates or replaces the declared unavailable slots for a faculty member.
func (r *AvailabilityRepository) Upsert(ctx context.Context, constraint *models.AvailabilityConstraint) error {
	if constraint.ID == "" {
		constraint.ID = uuid.NewString()
	}
	if constraint.Rule == "" {
		constraint.Rule = models.AvailabilityRuleTeacherAvailability
	}
	if constraint.UnavailableSlots == nil {
		constraint.UnavailableSlots = pq.StringArray{}
	}
	now := time.Now().UTC()
	if constraint.CreatedAt.IsZero() {
		constraint.CreatedAt = now
	}
	constraint.UpdatedAt = now

	const query = `INSERT INTO availability_constraints (id, faculty_id, rule, unavailable_slots, created_at, updated_at)
		VALUES (:id, :faculty_id, :rule, :unavailable_slots, :created_at, :updated_at)
		ON CONFLICT (faculty_id, rule) DO UPDATE
		SET unavailable_slots = EXCLUDED.unavailable_slots,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, constraint); err != nil {
		return fmt.Errorf("upsert availability constraint: %w", err)
	}
	return nil
}

// Delete removes a constraint record.
func (r *AvailabilityRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM availability_constraints WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete availability constraint: %w", err)
	}
	return nil
}
