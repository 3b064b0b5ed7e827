package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableStatus represents lifecycle phases for a committed timetable.
type TimetableStatus string

const (
	TimetableStatusDraft     TimetableStatus = "DRAFT"
	TimetableStatusPublished TimetableStatus = "PUBLISHED"
	TimetableStatusArchived  TimetableStatus = "ARCHIVED"
)

// SessionType mirrors the exact wire casing downstream consumers (the
// substitution engine, timetable viewers) depend on.
type SessionType string

const (
	SessionTypeTheory SessionType = "Theory"
	SessionTypeLab    SessionType = "LAB"
)

// SessionCell is one occupied slot in a timetable grid.
type SessionCell struct {
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	FacultyName string      `json:"faculty_name"`
	Room        string      `json:"room"`
	Type        SessionType `json:"type"`
}

// DaySlots maps a decimal slot key ("1".."8") to the cell occupying it, or
// nil when the slot is empty.
type DaySlots map[string]*SessionCell

// Grid is the wire shape of a committed timetable: {Day: {Slot: Cell|null}}.
type Grid map[string]DaySlots

// Timetable is the committed, versioned schedule for one batch. Grid is
// persisted as JSON to match the documented wire shape byte-for-byte; it is
// marshaled/unmarshaled explicitly rather than relying on column-level JSON
// support so the grid key ordering and null handling stay under this
// package's control.
type Timetable struct {
	ID              string          `db:"id" json:"id"`
	BatchID         string          `db:"batch_id" json:"batch_id"`
	Version         int             `db:"version" json:"version"`
	Status          TimetableStatus `db:"status" json:"status"`
	GridJSON        types.JSONText  `db:"grid" json:"-"`
	FitnessScore    int             `db:"fitness_score" json:"fitness_score"`
	UnassignedCount int             `db:"unassigned_count" json:"unassigned_count"`
	JobID           *string         `db:"job_id" json:"job_id,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// TimetableFilter captures filtering options for listing timetables.
type TimetableFilter struct {
	BatchID   string
	Status    TimetableStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// TimetableSummary is a lightweight view of the versions committed for a
// batch, used by list endpoints that don't need the full grid payload.
type TimetableSummary struct {
	BatchID   string    `json:"batch_id"`
	ActiveID  *string   `json:"active_id,omitempty"`
	Versions  []TimetableVersionMeta `json:"versions"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimetableVersionMeta is metadata for one committed version, without the
// grid payload.
type TimetableVersionMeta struct {
	ID              string          `db:"id" json:"id"`
	Version         int             `db:"version" json:"version"`
	Status          TimetableStatus `db:"status" json:"status"`
	FitnessScore    int             `db:"fitness_score" json:"fitness_score"`
	UnassignedCount int             `db:"unassigned_count" json:"unassigned_count"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}
