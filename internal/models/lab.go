package models

import "time"

// Lab represents a laboratory subject. It always expands to a single
// two-slot contiguous session per batch it is assigned to.
type Lab struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LabFilter captures filtering options for listing labs.
type LabFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
