package scheduler

import "fmt"

// Violation describes one broken invariant, identified by its tag
// (I1..I10).
type Violation struct {
	Invariant string
	SessionID SessionID
	Detail    string
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s: session %d: %s", v.Invariant, v.SessionID, v.Detail)
}

// Verify recomputes every placement from scratch and checks invariants
// I1-I10, maintaining running per-faculty-day load/slot sets,
// per-room-slot sets, and per-batch-slot sets, collecting every violation
// found (one session may produce several). idx
// supplies the external busy maps and declared
// unavailability that exist independent of this assignment; it is not
// mutated.
func Verify(assignment Assignment, sessions []Session, idx *ResourceIndex, mode Mode) []Violation {
	byID := make(map[SessionID]Session, len(sessions))
	for _, s := range sessions {
		byID[s.ID] = s
	}

	batchSlot := make(map[string]map[Day]map[int]SessionID)
	facultySlot := make(map[string]map[Day]map[int]SessionID)
	roomSlot := make(map[string]map[Day]map[int]SessionID)
	facultyDayLoad := make(map[string]map[Day]int)
	batchDayTheory := make(map[string]map[Day]map[string]bool)

	var violations []Violation

	for id, placement := range assignment {
		session, ok := byID[id]
		if !ok {
			continue
		}
		slots := session.SlotSpan(placement.Slot)

		// I4: lab contiguity.
		if session.Kind == KindLab && placement.Slot+1 > MaxSlot {
			violations = append(violations, Violation{"I4", id, "lab start slot leaves no room for its second slot"})
		}

		// I8: qualification.
		if !containsStr(session.QualifiedFaculty, placement.FacultyName) {
			violations = append(violations, Violation{"I8", id, "assigned faculty not in qualified pool"})
		}

		// I10: room kind.
		roomIsLabRoom := containsStr(idx.LabPool, placement.Room)
		if session.Kind == KindTheory && roomIsLabRoom {
			violations = append(violations, Violation{"I10", id, "theory session placed in a lab room"})
		}
		if session.Kind == KindLab && !roomIsLabRoom {
			violations = append(violations, Violation{"I10", id, "lab session placed outside the lab pool"})
		}

		for _, slot := range slots {
			// I1: batch exclusion.
			if existing, ok := lookup(batchSlot, session.BatchID, placement.Day, slot); ok && existing != id {
				violations = append(violations, Violation{"I1", id, "batch double-booked"})
			} else {
				set(batchSlot, session.BatchID, placement.Day, slot, id)
			}

			// I2: faculty exclusion (including externally committed).
			if existing, ok := lookup(facultySlot, placement.FacultyName, placement.Day, slot); ok && existing != id {
				violations = append(violations, Violation{"I2", id, "faculty double-booked"})
			} else {
				set(facultySlot, placement.FacultyName, placement.Day, slot, id)
			}
			if idx.ExternalFacultyBusy[placement.FacultyName] != nil && idx.ExternalFacultyBusy[placement.FacultyName][placement.Day][slot] {
				violations = append(violations, Violation{"I2", id, "faculty clashes with externally committed timetable"})
			}

			// I3: room exclusion (including externally committed).
			if existing, ok := lookup(roomSlot, placement.Room, placement.Day, slot); ok && existing != id {
				violations = append(violations, Violation{"I3", id, "room double-booked"})
			} else {
				set(roomSlot, placement.Room, placement.Day, slot, id)
			}
			if idx.ExternalRoomBusy[placement.Room] != nil && idx.ExternalRoomBusy[placement.Room][placement.Day][slot] {
				violations = append(violations, Violation{"I3", id, "room clashes with externally committed timetable"})
			}

			// I9: availability.
			if idx.DeclaredUnavail[placement.FacultyName] != nil && idx.DeclaredUnavail[placement.FacultyName][placement.Day][slot] {
				violations = append(violations, Violation{"I9", id, "faculty declared unavailable at this slot"})
			}
		}

		if facultyDayLoad[placement.FacultyName] == nil {
			facultyDayLoad[placement.FacultyName] = make(map[Day]int)
		}
		facultyDayLoad[placement.FacultyName][placement.Day] += len(slots)

		if session.Kind == KindTheory {
			if batchDayTheory[session.BatchID] == nil {
				batchDayTheory[session.BatchID] = make(map[Day]map[string]bool)
			}
			if batchDayTheory[session.BatchID][placement.Day] == nil {
				batchDayTheory[session.BatchID][placement.Day] = make(map[string]bool)
			}
			// I7: theory uniqueness/day.
			if batchDayTheory[session.BatchID][placement.Day][session.SubjectCode] {
				violations = append(violations, Violation{"I7", id, "theory course repeats on the same batch-day"})
			}
			batchDayTheory[session.BatchID][placement.Day][session.SubjectCode] = true
		}
	}

	// I5/I6 need the full per-faculty-day slot set, recomputed per faculty.
	facultyDaySlots := make(map[string]map[Day][]int)
	for id, placement := range assignment {
		session, ok := byID[id]
		if !ok {
			continue
		}
		if facultyDaySlots[placement.FacultyName] == nil {
			facultyDaySlots[placement.FacultyName] = make(map[Day][]int)
		}
		facultyDaySlots[placement.FacultyName][placement.Day] = append(facultyDaySlots[placement.FacultyName][placement.Day], session.SlotSpan(placement.Slot)...)
	}

	dailyCap := mode.FacultyDailyCap()
	for faculty, days := range facultyDayLoad {
		for day, load := range days {
			if load > dailyCap {
				violations = append(violations, Violation{"I5", -1, faculty + " exceeds daily teaching cap on " + day.String()})
			}
		}
	}
	for faculty, days := range facultyDaySlots {
		for day, slots := range days {
			present := make(map[int]bool, len(slots))
			for _, s := range slots {
				present[s] = true
			}
			if idx.DeclaredUnavail[faculty] != nil {
				for s := range idx.DeclaredUnavail[faculty][day] {
					present[s] = true
				}
			}
			if longestRun(present) > mode.MaxConsecutive {
				violations = append(violations, Violation{"I6", -1, faculty + " exceeds continuity bound on " + day.String()})
			}
		}
	}

	return violations
}

func lookup(m map[string]map[Day]map[int]SessionID, key string, day Day, slot int) (SessionID, bool) {
	if m[key] == nil || m[key][day] == nil {
		return 0, false
	}
	id, ok := m[key][day][slot]
	return id, ok
}

func set(m map[string]map[Day]map[int]SessionID, key string, day Day, slot int, id SessionID) {
	if m[key] == nil {
		m[key] = make(map[Day]map[int]SessionID)
	}
	if m[key][day] == nil {
		m[key][day] = make(map[int]SessionID)
	}
	m[key][day][slot] = id
}

func containsStr(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
