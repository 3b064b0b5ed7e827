package models

import (
	"time"

	"github.com/lib/pq"
)

// AvailabilityRule names the rule a constraint enforces. Only
// TEACHER_AVAILABILITY is consumed by the scheduler core; other rules may
// exist in storage but are filtered out at read time.
type AvailabilityRule string

const (
	AvailabilityRuleTeacherAvailability AvailabilityRule = "TEACHER_AVAILABILITY"
)

// AvailabilityConstraint records slots a faculty member has declared
// unavailable. Each entry in UnavailableSlots is formatted "Day_Slot",
// e.g. "Mon_1".
type AvailabilityConstraint struct {
	ID               string           `db:"id" json:"id"`
	FacultyID        string           `db:"faculty_id" json:"faculty_id"`
	Rule             AvailabilityRule `db:"rule" json:"rule"`
	UnavailableSlots pq.StringArray   `db:"unavailable_slots" json:"unavailable_slots"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// AvailabilityFilter captures filtering options for listing constraints.
type AvailabilityFilter struct {
	FacultyID string
	Rule      AvailabilityRule
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
