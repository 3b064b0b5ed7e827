package scheduler

import (
	"sort"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// ResourceIndex precomputes the fast-lookup structures the Constructive
// Assigner and Genetic Optimizer share for the lifetime of a job. It is
// single-owner per job: concurrent jobs never share one.
type ResourceIndex struct {
	ExternalFacultyBusy map[string]map[Day]map[int]bool
	ExternalRoomBusy    map[string]map[Day]map[int]bool
	DeclaredUnavail     map[string]map[Day]map[int]bool
	BatchDefaultRoom    map[string]string
	LabPool             []string

	// internal mutable busy state, seeded from the external maps and
	// grown as the assigner/optimizer place sessions.
	facultyBusy map[string]map[Day]map[int]bool
	roomBusy    map[string]map[Day]map[int]bool
	batchBusy   map[string]map[Day]map[int]bool
}

// BuildResourceIndex assembles the index from the entity store.
// batchDefaultRoom assignment is round-robin over lecture halls sorted by
// room number, i-th batch (by store.Batches() order) getting the i-th
// lecture hall mod N.
func BuildResourceIndex(store EntityStore) *ResourceIndex {
	idx := &ResourceIndex{
		DeclaredUnavail:  make(map[string]map[Day]map[int]bool),
		BatchDefaultRoom: make(map[string]string),
		facultyBusy:      make(map[string]map[Day]map[int]bool),
		roomBusy:         make(map[string]map[Day]map[int]bool),
		batchBusy:        make(map[string]map[Day]map[int]bool),
	}

	idx.ExternalFacultyBusy, idx.ExternalRoomBusy = store.CommittedBusy()
	if idx.ExternalFacultyBusy == nil {
		idx.ExternalFacultyBusy = make(map[string]map[Day]map[int]bool)
	}
	if idx.ExternalRoomBusy == nil {
		idx.ExternalRoomBusy = make(map[string]map[Day]map[int]bool)
	}

	for _, c := range store.AvailabilityConstraints() {
		if c.Rule != models.AvailabilityRuleTeacherAvailability {
			continue
		}
		for _, token := range c.UnavailableSlots {
			day, slot, ok := parseDaySlot(token)
			if !ok {
				continue
			}
			markBusy(idx.DeclaredUnavail, c.FacultyID, day, slot)
		}
	}

	var lectureHalls []string
	for _, room := range store.Rooms() {
		switch room.Type {
		case models.RoomTypeLectureHall:
			lectureHalls = append(lectureHalls, room.Number)
		case models.RoomTypeLab:
			idx.LabPool = append(idx.LabPool, room.Number)
		}
	}
	sort.Strings(lectureHalls)
	sort.Strings(idx.LabPool)

	batches := store.Batches()
	if len(lectureHalls) > 0 {
		for i, b := range batches {
			idx.BatchDefaultRoom[b.ID] = lectureHalls[i%len(lectureHalls)]
		}
	}

	// Seed mutable busy state from the four unioned sources, so
	// IsFacultyBusy/IsRoomBusy answer against the full picture without the
	// caller re-unioning every query (: "all four busy structures
	// are unioned when testing availability").
	for name, days := range idx.ExternalFacultyBusy {
		for day, slots := range days {
			for slot := range slots {
				markBusy(idx.facultyBusy, name, day, slot)
			}
		}
	}
	for name, days := range idx.DeclaredUnavail {
		for day, slots := range days {
			for slot := range slots {
				markBusy(idx.facultyBusy, name, day, slot)
			}
		}
	}
	for room, days := range idx.ExternalRoomBusy {
		for day, slots := range days {
			for slot := range slots {
				markBusy(idx.roomBusy, room, day, slot)
			}
		}
	}

	return idx
}

func parseDaySlot(token string) (Day, int, bool) {
	// Format is "Day_Slot", e.g. "Mon_1".
	idx := -1
	for i := 0; i < len(token); i++ {
		if token[i] == '_' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, 0, false
	}
	day, ok := ParseDay(token[:idx])
	if !ok {
		return 0, 0, false
	}
	slot := 0
	for i := idx + 1; i < len(token); i++ {
		c := token[i]
		if c < '0' || c > '9' {
			return 0, 0, false
		}
		slot = slot*10 + int(c-'0')
	}
	if slot < MinSlot || slot > MaxSlot {
		return 0, 0, false
	}
	return day, slot, true
}

func markBusy(m map[string]map[Day]map[int]bool, key string, day Day, slot int) {
	if m[key] == nil {
		m[key] = make(map[Day]map[int]bool)
	}
	if m[key][day] == nil {
		m[key][day] = make(map[int]bool)
	}
	m[key][day][slot] = true
}

func clearBusy(m map[string]map[Day]map[int]bool, key string, day Day, slot int) {
	if m[key] == nil || m[key][day] == nil {
		return
	}
	delete(m[key][day], slot)
}

// IsFacultyBusy reports whether faculty is occupied at (day, slot), across
// external commitments, declared unavailability, and in-job assignments.
func (idx *ResourceIndex) IsFacultyBusy(faculty string, day Day, slot int) bool {
	return idx.facultyBusy[faculty] != nil && idx.facultyBusy[faculty][day] != nil && idx.facultyBusy[faculty][day][slot]
}

// IsRoomBusy reports whether room is occupied at (day, slot).
func (idx *ResourceIndex) IsRoomBusy(room string, day Day, slot int) bool {
	return idx.roomBusy[room] != nil && idx.roomBusy[room][day] != nil && idx.roomBusy[room][day][slot]
}

// IsBatchBusy reports whether batch already has a session at (day, slot).
func (idx *ResourceIndex) IsBatchBusy(batch string, day Day, slot int) bool {
	return idx.batchBusy[batch] != nil && idx.batchBusy[batch][day] != nil && idx.batchBusy[batch][day][slot]
}

// ReserveFaculty marks faculty busy at (day, slot).
func (idx *ResourceIndex) ReserveFaculty(faculty string, day Day, slot int) {
	markBusy(idx.facultyBusy, faculty, day, slot)
}

// ReleaseFaculty frees faculty at (day, slot), used by mutation rollback.
func (idx *ResourceIndex) ReleaseFaculty(faculty string, day Day, slot int) {
	clearBusy(idx.facultyBusy, faculty, day, slot)
}

// ReserveRoom marks room busy at (day, slot).
func (idx *ResourceIndex) ReserveRoom(room string, day Day, slot int) {
	markBusy(idx.roomBusy, room, day, slot)
}

// ReleaseRoom frees room at (day, slot).
func (idx *ResourceIndex) ReleaseRoom(room string, day Day, slot int) {
	clearBusy(idx.roomBusy, room, day, slot)
}

// ReserveBatch marks batch busy at (day, slot).
func (idx *ResourceIndex) ReserveBatch(batch string, day Day, slot int) {
	markBusy(idx.batchBusy, batch, day, slot)
}

// ReleaseBatch frees batch at (day, slot).
func (idx *ResourceIndex) ReleaseBatch(batch string, day Day, slot int) {
	clearBusy(idx.batchBusy, batch, day, slot)
}

// Snapshot returns a deep copy suitable for a GA worker's private mutable
// state (: "each worker holds its own candidate copy").
func (idx *ResourceIndex) Snapshot() *ResourceIndex {
	out := &ResourceIndex{
		ExternalFacultyBusy: idx.ExternalFacultyBusy,
		ExternalRoomBusy:    idx.ExternalRoomBusy,
		DeclaredUnavail:     idx.DeclaredUnavail,
		BatchDefaultRoom:    idx.BatchDefaultRoom,
		LabPool:             idx.LabPool,
		facultyBusy:         deepCopyBusy(idx.facultyBusy),
		roomBusy:            deepCopyBusy(idx.roomBusy),
		batchBusy:           deepCopyBusy(idx.batchBusy),
	}
	return out
}

func deepCopyBusy(src map[string]map[Day]map[int]bool) map[string]map[Day]map[int]bool {
	out := make(map[string]map[Day]map[int]bool, len(src))
	for k, days := range src {
		dOut := make(map[Day]map[int]bool, len(days))
		for d, slots := range days {
			sOut := make(map[int]bool, len(slots))
			for s, v := range slots {
				sOut[s] = v
			}
			dOut[d] = sOut
		}
		out[k] = dOut
	}
	return out
}
