package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

func baseIndex() *ResourceIndex {
	store := newMemStore()
	store.addLectureHall("R1")
	store.addLabRoom("LAB1")
	return BuildResourceIndex(store)
}

func TestVerifyDetectsBatchDoubleBooking(t *testing.T) {
	s1 := Session{ID: 0, BatchID: "b1", Kind: KindTheory, Duration: 1, QualifiedFaculty: []string{"A"}}
	s2 := Session{ID: 1, BatchID: "b1", Kind: KindTheory, Duration: 1, QualifiedFaculty: []string{"B"}}
	assignment := Assignment{
		0: {Day: Mon, Slot: 1, FacultyName: "A", Room: "R1"},
		1: {Day: Mon, Slot: 1, FacultyName: "B", Room: "R1"},
	}
	violations := Verify(assignment, []Session{s1, s2}, baseIndex(), DefaultMode())
	assertHasInvariant(t, violations, "I1")
}

func TestVerifyDetectsFacultyDoubleBooking(t *testing.T) {
	s1 := Session{ID: 0, BatchID: "b1", Kind: KindTheory, Duration: 1, QualifiedFaculty: []string{"A"}}
	s2 := Session{ID: 1, BatchID: "b2", Kind: KindTheory, Duration: 1, QualifiedFaculty: []string{"A"}}
	assignment := Assignment{
		0: {Day: Mon, Slot: 1, FacultyName: "A", Room: "R1"},
		1: {Day: Mon, Slot: 1, FacultyName: "A", Room: "R1"},
	}
	violations := Verify(assignment, []Session{s1, s2}, baseIndex(), DefaultMode())
	assertHasInvariant(t, violations, "I2")
}

func TestVerifyDetectsUnqualifiedFaculty(t *testing.T) {
	s1 := Session{ID: 0, BatchID: "b1", Kind: KindTheory, Duration: 1, QualifiedFaculty: []string{"A"}}
	assignment := Assignment{0: {Day: Mon, Slot: 1, FacultyName: "B", Room: "R1"}}
	violations := Verify(assignment, []Session{s1}, baseIndex(), DefaultMode())
	assertHasInvariant(t, violations, "I8")
}

func TestVerifyDetectsRoomKindMismatch(t *testing.T) {
	s1 := Session{ID: 0, BatchID: "b1", Kind: KindTheory, Duration: 1, QualifiedFaculty: []string{"A"}}
	assignment := Assignment{0: {Day: Mon, Slot: 1, FacultyName: "A", Room: "LAB1"}}
	violations := Verify(assignment, []Session{s1}, baseIndex(), DefaultMode())
	assertHasInvariant(t, violations, "I10")
}

func TestVerifyDetectsExternalFacultyClash(t *testing.T) {
	store := newMemStore()
	store.addLectureHall("R1")
	store.addExternalFacultyBusy("A", Mon, 1)
	idx := BuildResourceIndex(store)

	s1 := Session{ID: 0, BatchID: "b1", Kind: KindTheory, Duration: 1, QualifiedFaculty: []string{"A"}}
	assignment := Assignment{0: {Day: Mon, Slot: 1, FacultyName: "A", Room: "R1"}}
	violations := Verify(assignment, []Session{s1}, idx, DefaultMode())
	assertHasInvariant(t, violations, "I2")
}

func TestVerifyDetectsDeclaredUnavailability(t *testing.T) {
	store := newMemStore()
	store.addLectureHall("R1")
	store.addUnavailable("A", "Mon_1")
	idx := BuildResourceIndex(store)

	s1 := Session{ID: 0, BatchID: "b1", Kind: KindTheory, Duration: 1, QualifiedFaculty: []string{"A"}}
	assignment := Assignment{0: {Day: Mon, Slot: 1, FacultyName: "A", Room: "R1"}}
	violations := Verify(assignment, []Session{s1}, idx, DefaultMode())
	assertHasInvariant(t, violations, "I9")
}

func TestVerifyDetectsTheoryRepeatSameDay(t *testing.T) {
	s1 := Session{ID: 0, BatchID: "b1", Kind: KindTheory, SubjectCode: "C1", Duration: 1, QualifiedFaculty: []string{"A"}}
	s2 := Session{ID: 1, BatchID: "b1", Kind: KindTheory, SubjectCode: "C1", Duration: 1, QualifiedFaculty: []string{"B"}}
	assignment := Assignment{
		0: {Day: Mon, Slot: 1, FacultyName: "A", Room: "R1"},
		1: {Day: Mon, Slot: 2, FacultyName: "B", Room: "R1"},
	}
	violations := Verify(assignment, []Session{s1, s2}, baseIndex(), DefaultMode())
	assertHasInvariant(t, violations, "I7")
}

func TestVerifyDetectsFacultyDailyCapExceeded(t *testing.T) {
	mode := DefaultMode()
	sessions := make([]Session, 0)
	assignment := Assignment{}
	for i := 0; i < mode.FacultyDailyCap()+1; i++ {
		id := SessionID(i)
		sessions = append(sessions, Session{ID: id, BatchID: "b" + string(rune('0'+i)), Kind: KindTheory, Duration: 1, QualifiedFaculty: []string{"A"}})
		assignment[id] = Placement{Day: Mon, Slot: i + 1, FacultyName: "A", Room: "R1"}
	}
	violations := Verify(assignment, sessions, baseIndex(), mode)
	assertHasInvariant(t, violations, "I5")
}

func TestVerifyDetectsContinuityBoundExceeded(t *testing.T) {
	mode := DefaultMode()
	sessions := make([]Session, 0)
	assignment := Assignment{}
	for i := 0; i < mode.MaxConsecutive+1; i++ {
		id := SessionID(i)
		sessions = append(sessions, Session{ID: id, BatchID: "b" + string(rune('0'+i)), Kind: KindTheory, Duration: 1, QualifiedFaculty: []string{"A"}})
		assignment[id] = Placement{Day: Mon, Slot: i + 1, FacultyName: "A", Room: "R1"}
	}
	violations := Verify(assignment, sessions, baseIndex(), mode)
	assertHasInvariant(t, violations, "I6")
}

func TestVerifyCleanAssignmentHasNoViolations(t *testing.T) {
	s1 := Session{ID: 0, BatchID: "b1", Kind: KindTheory, SubjectCode: "C1", Duration: 1, QualifiedFaculty: []string{"A"}, PreferredSession: models.PreferredSessionAny}
	assignment := Assignment{0: {Day: Mon, Slot: 1, FacultyName: "A", Room: "R1"}}
	violations := Verify(assignment, []Session{s1}, baseIndex(), DefaultMode())
	assert.Empty(t, violations)
}

func assertHasInvariant(t *testing.T, violations []Violation, tag string) {
	t.Helper()
	for _, v := range violations {
		if v.Invariant == tag {
			return
		}
	}
	t.Fatalf("expected a %s violation, got %+v", tag, violations)
}
