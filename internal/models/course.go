package models

import "time"

// PreferredSession constrains which half of the day a course's theory
// sessions should land in.
type PreferredSession string

const (
	PreferredSessionFN  PreferredSession = "FN"
	PreferredSessionAN  PreferredSession = "AN"
	PreferredSessionAny PreferredSession = "Any"
)

// Course represents a theory subject. It expands to Credits theory sessions
// per batch it is assigned to.
type Course struct {
	ID               string           `db:"id" json:"id"`
	Code             string           `db:"code" json:"code"`
	Name             string           `db:"name" json:"name"`
	Credits          int              `db:"credits" json:"credits"`
	PreferredSession PreferredSession `db:"preferred_session" json:"preferred_session"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures filtering options for listing courses.
type CourseFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
