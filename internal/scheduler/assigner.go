package scheduler

import (
	"github.com/hashicorp/go-multierror"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// Assigner walks sessions in DSATUR order and greedily assigns
// (day, slot, faculty, room), honoring all hard constraints.
type Assigner struct {
	Sessions []Session
	Colors   map[SessionID]int
	Index    *ResourceIndex
	Mode     Mode
	RNG      *RNG
}

// NewAssigner builds an assigner over a pre-colored session set.
func NewAssigner(sessions []Session, colors map[SessionID]int, index *ResourceIndex, mode Mode, rng *RNG) *Assigner {
	return &Assigner{Sessions: sessions, Colors: colors, Index: index, Mode: mode, RNG: rng}
}

// assignState tracks per-(batch,day) theory-course-seen set and per-faculty-day
// slot counters/sets, scoped to one Construct call.
type assignState struct {
	theoryDayUsage map[string]map[Day]map[string]bool // batch -> day -> subjectCode seen
	facultyDayLoad map[string]map[Day]int
}

func newAssignState() *assignState {
	return &assignState{
		theoryDayUsage: make(map[string]map[Day]map[string]bool),
		facultyDayLoad: make(map[string]map[Day]int),
	}
}

func (st *assignState) hasTheoryToday(batch string, day Day, code string) bool {
	return st.theoryDayUsage[batch] != nil && st.theoryDayUsage[batch][day] != nil && st.theoryDayUsage[batch][day][code]
}

func (st *assignState) markTheoryToday(batch string, day Day, code string) {
	if st.theoryDayUsage[batch] == nil {
		st.theoryDayUsage[batch] = make(map[Day]map[string]bool)
	}
	if st.theoryDayUsage[batch][day] == nil {
		st.theoryDayUsage[batch][day] = make(map[string]bool)
	}
	st.theoryDayUsage[batch][day][code] = true
}

func (st *assignState) facultyLoad(faculty string, day Day) int {
	if st.facultyDayLoad[faculty] == nil {
		return 0
	}
	return st.facultyDayLoad[faculty][day]
}

func (st *assignState) addFacultyLoad(faculty string, day Day, n int) {
	if st.facultyDayLoad[faculty] == nil {
		st.facultyDayLoad[faculty] = make(map[Day]int)
	}
	st.facultyDayLoad[faculty][day] += n
}

// Construct performs one full constructive pass, honoring strict/relaxed
// mode, and returns the resulting assignment plus any sessions that could
// not be placed. Per-session placement failures never abort the walk; they
// accumulate into a *multierror.Error log surfaced to the caller alongside
// the partial assignment.
func (a *Assigner) Construct() (Assignment, []SessionID, *multierror.Error) {
	assignment := make(Assignment)
	var unassigned []SessionID
	var failures *multierror.Error

	ordered := AssignmentOrder(a.Sessions, a.Colors)
	state := newAssignState()
	// Track the set of slots occupied within each (batch, day), used by
	// the compactness test.
	batchDaySlots := make(map[string]map[Day][]int)

	for _, session := range ordered {
		if a.placeSession(session, assignment, state, batchDaySlots) {
			continue
		}
		unassigned = append(unassigned, session.ID)
		failures = multierror.Append(failures, InputError{
			BatchID: session.BatchID,
			Detail:  "no (day, slot, faculty, room) tuple satisfied constraints for session " + session.SubjectCode,
		})
	}

	return assignment, unassigned, failures
}

func (a *Assigner) placeSession(session Session, assignment Assignment, state *assignState, batchDaySlots map[string]map[Day][]int) bool {
	days := a.RNG.ShuffledDays()
	candidateStarts := a.candidateStarts(session)

	for _, day := range days {
		starts := a.RNG.ShuffledInts(candidateStarts)
		for _, start := range starts {
			if session.Kind == KindLab && start > MaxSlot-1 {
				continue
			}
			slots := session.SlotSpan(start)
			if !a.batchSlotTest(session, day, slots, state) {
				continue
			}
			if a.Mode.Strict && !a.compactnessTest(session.BatchID, day, slots, batchDaySlots) {
				continue
			}

			faculty, ok := a.pickFaculty(session, day, slots, state)
			if !ok {
				continue
			}

			room, ok := a.pickRoom(session, day, slots)
			if !ok {
				continue
			}

			a.commit(session, day, start, faculty, room, assignment, state, batchDaySlots)
			return true
		}
	}
	return false
}

// candidateStarts filters start slots by preferred_session (
// step 2).
func (a *Assigner) candidateStarts(session Session) []int {
	switch session.PreferredSession {
	case models.PreferredSessionFN:
		return FNSlots
	case models.PreferredSessionAN:
		return ANSlots
	default:
		starts := make([]int, 0, MaxSlot)
		for s := MinSlot; s <= MaxSlot; s++ {
			starts = append(starts, s)
		}
		return starts
	}
}

// batchSlotTest requires that slots be empty in the batch's day, and that
// a theory course appear at most once per day per batch (I7).
func (a *Assigner) batchSlotTest(session Session, day Day, slots []int, state *assignState) bool {
	for _, slot := range slots {
		if a.Index.IsBatchBusy(session.BatchID, day, slot) {
			return false
		}
	}
	if session.Kind == KindTheory && state.hasTheoryToday(session.BatchID, day, session.SubjectCode) {
		return false
	}
	return true
}

// compactnessTest is strict-mode only: it rejects placements that would
// leave a mid-day gap greater than 2 slots.
func (a *Assigner) compactnessTest(batch string, day Day, slots []int, batchDaySlots map[string]map[Day][]int) bool {
	existing := batchDaySlots[batch][day]
	occ := make([]int, 0, len(existing)+len(slots))
	occ = append(occ, existing...)
	occ = append(occ, slots...)
	return maxGap(occ) <= 2
}

func maxGap(slots []int) int {
	if len(slots) < 2 {
		return 0
	}
	sorted := append([]int(nil), slots...)
	sortInts(sorted)
	max := 0
	for i := 1; i < len(sorted); i++ {
		if gap := sorted[i] - sorted[i-1]; gap > max {
			max = gap
		}
	}
	return max
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// pickFaculty iterates qualified faculty in shuffled order, applying
// availability (I9), the mode's daily cap (I5), and, in strict mode,
// continuity (I6).
func (a *Assigner) pickFaculty(session Session, day Day, slots []int, state *assignState) (string, bool) {
	dailyCap := a.Mode.FacultyDailyCap()
	for _, faculty := range a.RNG.ShuffledStrings(session.QualifiedFaculty) {
		available := true
		for _, slot := range slots {
			if a.Index.IsFacultyBusy(faculty, day, slot) {
				available = false
				break
			}
		}
		if !available {
			continue
		}
		if state.facultyLoad(faculty, day)+len(slots) > dailyCap {
			continue
		}
		if a.Mode.Strict && !a.continuityTest(faculty, day, slots) {
			continue
		}
		return faculty, true
	}
	return "", false
}

// continuityTest checks that the longest run of consecutive slots a
// faculty would occupy (declared-unavailable ∪ already-assigned ∪
// candidate) does not exceed MaxConsecutive.
func (a *Assigner) continuityTest(faculty string, day Day, candidate []int) bool {
	union := make(map[int]bool)
	if a.Index.DeclaredUnavail[faculty] != nil {
		for slot := range a.Index.DeclaredUnavail[faculty][day] {
			union[slot] = true
		}
	}
	if a.Index.facultyBusy[faculty] != nil {
		for slot := range a.Index.facultyBusy[faculty][day] {
			union[slot] = true
		}
	}
	for _, slot := range candidate {
		union[slot] = true
	}
	return longestRun(union) <= a.Mode.MaxConsecutive
}

func longestRun(present map[int]bool) int {
	longest := 0
	for s := MinSlot; s <= MaxSlot; s++ {
		if !present[s] {
			continue
		}
		run := 0
		for t := s; t <= MaxSlot && present[t]; t++ {
			run++
		}
		if run > longest {
			longest = run
		}
		// Each start slot rescans its run (O(n^2)); harmless since
		// MaxSlot is tiny, kept simple for clarity.
	}
	return longest
}

// pickRoom assigns rooms: theory uses the fixed batch_default_room with
// no fallback search; lab iterates the lab pool for the first free option.
func (a *Assigner) pickRoom(session Session, day Day, slots []int) (string, bool) {
	if session.Kind == KindTheory {
		room, ok := a.Index.BatchDefaultRoom[session.BatchID]
		if !ok {
			return "", false
		}
		for _, slot := range slots {
			if a.Index.IsRoomBusy(room, day, slot) {
				return "", false
			}
		}
		return room, true
	}

	for _, room := range a.Index.LabPool {
		free := true
		for _, slot := range slots {
			if a.Index.IsRoomBusy(room, day, slot) {
				free = false
				break
			}
		}
		if free {
			return room, true
		}
	}
	return "", false
}

func (a *Assigner) commit(session Session, day Day, start int, faculty, room string, assignment Assignment, state *assignState, batchDaySlots map[string]map[Day][]int) {
	slots := session.SlotSpan(start)
	assignment[session.ID] = Placement{Day: day, Slot: start, FacultyName: faculty, Room: room}

	for _, slot := range slots {
		a.Index.ReserveBatch(session.BatchID, day, slot)
		a.Index.ReserveFaculty(faculty, day, slot)
		a.Index.ReserveRoom(room, day, slot)
	}
	state.addFacultyLoad(faculty, day, len(slots))
	if session.Kind == KindTheory {
		state.markTheoryToday(session.BatchID, day, session.SubjectCode)
	}
	if batchDaySlots[session.BatchID] == nil {
		batchDaySlots[session.BatchID] = make(map[Day][]int)
	}
	batchDaySlots[session.BatchID][day] = append(batchDaySlots[session.BatchID][day], slots...)
}
