package models

import (
	"time"

	"github.com/lib/pq"
)

// Faculty represents an instructor eligible to teach a subset of courses
// and labs. Name acts as the display key used throughout generated
// timetables.
type Faculty struct {
	ID                string         `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	Email             string         `db:"email" json:"email"`
	QualifiedCourseIDs pq.StringArray `db:"qualified_course_ids" json:"qualified_course_ids"`
	QualifiedLabIDs   pq.StringArray `db:"qualified_lab_ids" json:"qualified_lab_ids"`
	Active            bool           `db:"active" json:"active"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// FacultyFilter captures filtering options for listing faculty.
type FacultyFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
