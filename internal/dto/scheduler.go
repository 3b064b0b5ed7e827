package dto

import "time"

// GenerateJobRequest enqueues an optimization job for one or more batches.
// Unset numeric fields fall back to the configured Scheduler defaults.
type GenerateJobRequest struct {
	BatchIDs               []string `json:"batch_ids" validate:"required,min=1,dive,required"`
	PopulationSize         int      `json:"population_size" validate:"omitempty,min=1,max=64"`
	Iterations             int      `json:"iterations" validate:"omitempty,min=1,max=100000"`
	StrictMode             *bool    `json:"strict_mode"`
	Seed                   *int64   `json:"seed"`
	MaxFacultyPerDayStrict int      `json:"max_faculty_per_day_strict" validate:"omitempty,min=1,max=8"`
	MaxFacultyPerDayRelaxed int     `json:"max_faculty_per_day_relaxed" validate:"omitempty,min=1,max=8"`
	MaxConsecutive         int      `json:"max_consecutive" validate:"omitempty,min=1,max=8"`
}

// GenerateJobResponse returns the identifier of the enqueued job.
type GenerateJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobStatusResponse reports the current state of an optimization job.
type JobStatusResponse struct {
	JobID           string    `json:"job_id"`
	BatchIDs        []string  `json:"batch_ids"`
	Status          string    `json:"status"`
	Logs            []string  `json:"logs"`
	FitnessCurve    []int64   `json:"fitness_curve"`
	UnassignedCount int       `json:"unassigned_count"`
	Error           *string   `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TimetableVersionResponse summarizes one committed version of a batch's
// timetable, without the grid payload.
type TimetableVersionResponse struct {
	ID              string    `json:"id"`
	BatchID         string    `json:"batch_id"`
	Version         int       `json:"version"`
	Status          string    `json:"status"`
	FitnessScore    int       `json:"fitness_score"`
	UnassignedCount int       `json:"unassigned_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// TimetableGridResponse returns a committed timetable's grid in the exact
// wire shape spec §6 mandates: `{Day: {Slot: Cell|null}}`.
type TimetableGridResponse struct {
	ID      string                              `json:"id"`
	BatchID string                              `json:"batch_id"`
	Version int                                 `json:"version"`
	Status  string                              `json:"status"`
	Grid    map[string]map[string]*SessionCellDTO `json:"grid"`
}

// SessionCellDTO mirrors models.SessionCell for wire serialization.
type SessionCellDTO struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	FacultyName string `json:"faculty_name"`
	Room        string `json:"room"`
	Type        string `json:"type"`
}

// CancelJobRequest carries no body; cancellation is addressed by job id in
// the URL. Kept as a named type so handlers have a consistent shape to bind
// against if a reason is added later.
type CancelJobRequest struct{}
