package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

func buildAndRun(t *testing.T, store *memStore, mode Mode, seed int64) (Assignment, []Session, *ResourceIndex) {
	t.Helper()
	expanded := Expand(store)
	require.NotEmpty(t, expanded.Sessions)
	index := BuildResourceIndex(store)
	graph := BuildConflictGraph(expanded.Sessions)
	colors := DSATURColor(graph)
	assigner := NewAssigner(expanded.Sessions, colors, index, mode, NewRNG(seed))
	assignment, _, _ := assigner.Construct()
	return assignment, expanded.Sessions, index
}

// Scenario 1: single batch, four 3-credit theory courses, five
// weekdays, 6 faculty each qualified for all.
func TestScenario1SingleBatchFourCourses(t *testing.T) {
	store := newMemStore()
	courseIDs := []string{"c1", "c2", "c3", "c4"}
	for _, id := range courseIDs {
		store.addCourse(id, id, 3, models.PreferredSessionAny)
	}
	for i := 0; i < 6; i++ {
		store.addFaculty(alphaName(i), courseIDs, nil)
	}
	store.addLectureHall("R1")
	store.addBatch("b1", courseIDs, nil)

	assignment, sessions, index := buildAndRun(t, store, DefaultMode(), 42)
	assert.Len(t, assignment, 12)

	violations := Verify(assignment, sessions, index, DefaultMode())
	assert.Empty(t, violations)

	fitness := Fitness(assignment, sessions)
	assert.GreaterOrEqual(t, fitness, -30)

	// No course appears twice on the same day for the batch.
	seen := make(map[string]map[Day]bool)
	byID := make(map[SessionID]Session)
	for _, s := range sessions {
		byID[s.ID] = s
	}
	for id, p := range assignment {
		s := byID[id]
		if seen[s.SubjectCode] == nil {
			seen[s.SubjectCode] = make(map[Day]bool)
		}
		assert.False(t, seen[s.SubjectCode][p.Day], "course %s scheduled twice on %s", s.SubjectCode, p.Day)
		seen[s.SubjectCode][p.Day] = true
	}
}

func alphaName(i int) string {
	return string(rune('A'+i)) + "-faculty"
}

// Scenario 2: one 4-credit FN course, one qualified faculty with
// declared unavailability.
func TestScenario2PreferredWindowAndAvailability(t *testing.T) {
	store := newMemStore()
	store.addCourse("c1", "C1", 4, models.PreferredSessionFN)
	store.addFaculty("Dr. A", []string{"c1"}, nil)
	store.addLectureHall("R1")
	store.addBatch("b1", []string{"c1"}, nil)
	store.addUnavailable("Dr. A", "Mon_1", "Tue_1", "Wed_1")

	assignment, sessions, index := buildAndRun(t, store, DefaultMode(), 7)
	violations := Verify(assignment, sessions, index, DefaultMode())
	assert.Empty(t, violations)

	for _, p := range assignment {
		assert.Contains(t, FNSlots, p.Slot)
		if p.Day == Mon || p.Day == Tue || p.Day == Wed {
			assert.NotEqual(t, 1, p.Slot)
		}
	}
}

// Scenario 3: two batches share a single faculty qualified for
// both batches' same subject; faculty's slots must be disjoint across both
// grids.
func TestScenario3SharedFacultyAcrossBatches(t *testing.T) {
	store := newMemStore()
	store.addCourse("c1", "C1", 3, models.PreferredSessionAny)
	store.addFaculty("Dr. Shared", []string{"c1"}, nil)
	store.addLectureHall("R1")
	store.addLectureHall("R2")
	store.addBatch("b1", []string{"c1"}, nil)
	store.addBatch("b2", []string{"c1"}, nil)

	assignment, sessions, index := buildAndRun(t, store, DefaultMode(), 99)
	violations := Verify(assignment, sessions, index, DefaultMode())
	assert.Empty(t, violations)
}

// Scenario 4: batch with one lab and four theory sessions; a
// single-room lab pool.
func TestScenario4LabContiguityAndSingleRoom(t *testing.T) {
	store := newMemStore()
	store.addCourse("c1", "C1", 4, models.PreferredSessionAny)
	store.addLab("l1", "L1")
	store.addFaculty("Dr. A", []string{"c1"}, []string{"l1"})
	store.addLectureHall("R1")
	store.addLabRoom("LAB1")
	store.addBatch("b1", []string{"c1"}, []string{"l1"})

	assignment, sessions, index := buildAndRun(t, store, DefaultMode(), 3)
	violations := Verify(assignment, sessions, index, DefaultMode())
	assert.Empty(t, violations)

	labCount := 0
	for id, p := range assignment {
		var s Session
		for _, candidate := range sessions {
			if candidate.ID == id {
				s = candidate
			}
		}
		if s.Kind == KindLab {
			labCount++
			assert.GreaterOrEqual(t, p.Slot, MinSlot)
			assert.LessOrEqual(t, p.Slot, MaxSlot-1)
			assert.Equal(t, "LAB1", p.Room)
		}
	}
	assert.LessOrEqual(t, labCount, 1)
}

// Scenario 5: incremental job. Faculty already scheduled Mon_1 in
// a prior committed timetable must never be placed there again.
func TestScenario5IncrementalExternalBusy(t *testing.T) {
	store := newMemStore()
	store.addCourse("c1", "C1", 1, models.PreferredSessionAny)
	store.addFaculty("Dr. Shared", []string{"c1"}, nil)
	store.addLectureHall("R1")
	store.addBatch("b1", []string{"c1"}, nil)
	store.addExternalFacultyBusy("Dr. Shared", Mon, 1)

	assignment, sessions, index := buildAndRun(t, store, DefaultMode(), 11)
	violations := Verify(assignment, sessions, index, DefaultMode())
	assert.Empty(t, violations)
	for _, p := range assignment {
		if p.Day == Mon {
			assert.NotEqual(t, 1, p.Slot)
		}
	}
}

func TestConstructReproducibleBySeed(t *testing.T) {
	store := newMemStore()
	store.addCourse("c1", "C1", 3, models.PreferredSessionAny)
	store.addFaculty("Dr. A", []string{"c1"}, nil)
	store.addLectureHall("R1")
	store.addBatch("b1", []string{"c1"}, nil)

	a1, _, _ := buildAndRun(t, store, DefaultMode(), 55)
	a2, _, _ := buildAndRun(t, store, DefaultMode(), 55)
	assert.Equal(t, a1, a2)
}

func TestBatchDefaultRoomRoundRobin(t *testing.T) {
	store := newMemStore()
	store.addLectureHall("R1")
	store.addLectureHall("R2")
	store.addBatch("b1", nil, nil)
	store.addBatch("b2", nil, nil)
	store.addBatch("b3", nil, nil)

	idx := BuildResourceIndex(store)
	assert.Equal(t, "R1", idx.BatchDefaultRoom["b1"])
	assert.Equal(t, "R2", idx.BatchDefaultRoom["b2"])
	assert.Equal(t, "R1", idx.BatchDefaultRoom["b3"])
}
