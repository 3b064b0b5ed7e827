package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// JobStatus is the lifecycle state of an optimization job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCanceled  JobStatus = "CANCELED"
)

// JobRecord tracks one optimization run across its lifetime: the batches it
// targets, the configuration it ran with, and the final fitness curve
// reported by the Commit Coordinator.
type JobRecord struct {
	ID           string        `db:"id" json:"id"`
	BatchIDs     pq.StringArray `db:"batch_ids" json:"batch_ids"`
	Status       JobStatus     `db:"status" json:"status"`
	Config       types.JSONText `db:"config" json:"config"`
	Logs         pq.StringArray `db:"logs" json:"logs"`
	FitnessCurve pq.Int64Array  `db:"fitness_curve" json:"fitness_curve"`
	UnassignedCount int        `db:"unassigned_count" json:"unassigned_count"`
	Error        *string       `db:"error" json:"error,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// JobFilter captures filtering options for listing jobs.
type JobFilter struct {
	Status    JobStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
