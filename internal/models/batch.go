package models

import (
	"time"

	"github.com/lib/pq"
)

// Batch represents a cohort of students taking a shared curriculum. It is
// the atomic scheduling unit: one timetable is produced per batch.
type Batch struct {
	ID           string         `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Size         int            `db:"size" json:"size"`
	CourseIDs    pq.StringArray `db:"course_ids" json:"course_ids"`
	LabIDs       pq.StringArray `db:"lab_ids" json:"lab_ids"`
	AdvisorName  *string        `db:"advisor_name" json:"advisor_name,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// BatchFilter captures filtering options for listing batches.
type BatchFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
