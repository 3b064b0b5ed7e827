// Package scheduler implements the timetable optimization core: session
// expansion, conflict-graph construction and DSATUR ordering, constructive
// assignment, fitness scoring, and genetic refinement. It is embedded by
// internal/service/schedule_generator_service.go as a pure, DB-agnostic
// library; all persistence happens at the service layer through the
// EntityStore interface defined here.
package scheduler

import (
	"fmt"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// SessionKind distinguishes a one-slot theory lecture from a two-slot lab
// block.
type SessionKind int

const (
	KindTheory SessionKind = iota
	KindLab
)

func (k SessionKind) String() string {
	if k == KindLab {
		return "Lab"
	}
	return "Theory"
}

// Day indexes the five scheduled weekdays, Mon..Fri. Slot 9 is deliberately
// never addressable: Slots runs 1..8.
type Day int

const (
	Mon Day = iota
	Tue
	Wed
	Thu
	Fri
)

// Days is the canonical iteration order over the week.
var Days = []Day{Mon, Tue, Wed, Thu, Fri}

var dayNames = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri"}

func (d Day) String() string {
	if d < 0 || int(d) >= len(dayNames) {
		return "?"
	}
	return dayNames[d]
}

// ParseDay maps a "Mon".."Fri" token back to a Day, the inverse of
// Day.String. Used when seeding busy maps from the "Day_Slot" wire encoding
// of AvailabilityConstraint.UnavailableSlots.
func ParseDay(s string) (Day, bool) {
	for i, name := range dayNames {
		if name == s {
			return Day(i), true
		}
	}
	return 0, false
}

const (
	// MinSlot and MaxSlot bound the addressable slot axis. Slot 9 is
	// reserved and never produced or consumed by the scheduler.
	MinSlot = 1
	MaxSlot = 8
)

// FNSlots and ANSlots are the forenoon/afternoon preference windows.
var (
	FNSlots = []int{1, 2, 3, 4}
	ANSlots = []int{5, 6, 7, 8}
)

// SessionID identifies one expanded scheduling atom. Assigned monotonically
// at expansion time and stable through graph construction, assignment, and
// mutation, it is the index the optimizer's session->placement map keys on.
type SessionID int

// Session is one indivisible scheduling unit: a theory lecture instance or
// a lab block. Sessions are immutable once expanded.
type Session struct {
	ID               SessionID
	BatchID          string
	Kind             SessionKind
	SubjectID        string
	SubjectCode      string
	SubjectName      string
	PreferredSession models.PreferredSession
	Duration         int // 1 for theory, 2 for lab
	QualifiedFaculty []string
	// Flagged marks a session whose qualified-faculty pool was empty at
	// expansion time and was given the sentinel "Staff" pool instead.
	Flagged bool
}

// StaffSentinel is substituted as the sole qualified-faculty entry when no
// faculty member qualifies for a subject, so scheduling can still proceed.
const StaffSentinel = "Staff"

// Placement is where a session landed: its day and starting slot, plus the
// faculty and room derived during assignment. For a lab, Slot is the start
// of the {Slot, Slot+1} pair.
type Placement struct {
	Day         Day
	Slot        int
	FacultyName string
	Room        string
}

// Assignment maps each session to its placement. A session absent from the
// map is unassigned.
type Assignment map[SessionID]Placement

// Clone returns a deep-enough copy for mutation: placements are value
// types, so copying the map suffices.
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	for id, p := range a {
		out[id] = p
	}
	return out
}

// SlotSpan returns the slots a session occupies when it starts at start,
// given its duration.
func (s Session) SlotSpan(start int) []int {
	if s.Duration <= 1 {
		return []int{start}
	}
	slots := make([]int, s.Duration)
	for i := range slots {
		slots[i] = start + i
	}
	return slots
}

// Mode controls the hard-constraint strictness applied by the assigner and
// the GA's mutation re-verification.
type Mode struct {
	Strict                 bool
	MaxFacultyPerDayStrict int
	MaxFacultyPerDayRelaxed int
	MaxConsecutive         int
}

// DefaultMode returns the strict mode with its table defaults.
func DefaultMode() Mode {
	return Mode{
		Strict:                  true,
		MaxFacultyPerDayStrict:  4,
		MaxFacultyPerDayRelaxed: 5,
		MaxConsecutive:          2,
	}
}

// FacultyDailyCap returns the active cap for the mode's current strictness.
func (m Mode) FacultyDailyCap() int {
	if m.Strict {
		if m.MaxFacultyPerDayStrict > 0 {
			return m.MaxFacultyPerDayStrict
		}
		return 4
	}
	if m.MaxFacultyPerDayRelaxed > 0 {
		return m.MaxFacultyPerDayRelaxed
	}
	return 5
}

// Relaxed returns a copy of m with Strict cleared, used for the
// strict-then-relaxed retry in seeding.
func (m Mode) Relaxed() Mode {
	m.Strict = false
	return m
}

// Config bundles the configuration options consumed by RunJob.
type Config struct {
	PopulationSize int
	Iterations     int
	Mode           Mode
	Seed           int64
	MaxAttempts    int
	// Workers selects the GA mutation strategy: 1 (or unset) runs the
	// single-chromosome RunGA; >1 fans each generation's mutation and
	// evaluation out across that many goroutines via RunGAParallel.
	Workers int
}

// DefaultConfig returns the package defaults.
func DefaultConfig() Config {
	return Config{
		PopulationSize: 8,
		Iterations:     1000,
		Mode:           DefaultMode(),
		Seed:           1,
		MaxAttempts:    3,
		Workers:        1,
	}
}

// EntityStore is the abstract, read-mostly view the scheduler needs. The
// concrete implementation lives at the service layer, backed by
// internal/repository; the core never imports sqlx or the repository
// package directly, keeping it a pure, independently testable library.
type EntityStore interface {
	Batches() []models.Batch
	Courses() map[string]models.Course
	Labs() map[string]models.Lab
	Faculty() []models.Faculty
	Rooms() []models.Room
	AvailabilityConstraints() []models.AvailabilityConstraint
	// CommittedBusy returns the external faculty/room busy maps seeded
	// from timetables committed for batches outside the current job.
	CommittedBusy() (facultyBusy map[string]map[Day]map[int]bool, roomBusy map[string]map[Day]map[int]bool)
}

// InputError records a non-fatal data-shape problem discovered during
// expansion: the job proceeds with defaults, and the affected session is
// flagged.
type InputError struct {
	BatchID string
	Detail  string
}

func (e InputError) Error() string {
	return fmt.Sprintf("batch %s: %s", e.BatchID, e.Detail)
}
