package scheduler

import "github.com/noah-isme/sma-adp-api/internal/models"

// memStore is a minimal in-memory EntityStore fixture for scheduler tests,
// mirroring the shape newXFixture(t, cfg) helpers take in this codebase's
// other _test.go files.
type memStore struct {
	batches     []models.Batch
	courses     map[string]models.Course
	labs        map[string]models.Lab
	faculty     []models.Faculty
	rooms       []models.Room
	constraints []models.AvailabilityConstraint

	externalFacultyBusy map[string]map[Day]map[int]bool
	externalRoomBusy    map[string]map[Day]map[int]bool
}

func newMemStore() *memStore {
	return &memStore{
		courses: make(map[string]models.Course),
		labs:    make(map[string]models.Lab),
	}
}

func (m *memStore) Batches() []models.Batch                    { return m.batches }
func (m *memStore) Courses() map[string]models.Course          { return m.courses }
func (m *memStore) Labs() map[string]models.Lab                { return m.labs }
func (m *memStore) Faculty() []models.Faculty                  { return m.faculty }
func (m *memStore) Rooms() []models.Room                       { return m.rooms }
func (m *memStore) AvailabilityConstraints() []models.AvailabilityConstraint {
	return m.constraints
}
func (m *memStore) CommittedBusy() (map[string]map[Day]map[int]bool, map[string]map[Day]map[int]bool) {
	return m.externalFacultyBusy, m.externalRoomBusy
}

func (m *memStore) addCourse(id, code string, credits int, pref models.PreferredSession) {
	m.courses[id] = models.Course{ID: id, Code: code, Name: code, Credits: credits, PreferredSession: pref}
}

func (m *memStore) addLab(id, code string) {
	m.labs[id] = models.Lab{ID: id, Code: code, Name: code}
}

func (m *memStore) addFaculty(name string, courseIDs, labIDs []string) {
	m.faculty = append(m.faculty, models.Faculty{
		ID:                 name,
		Name:               name,
		Email:              name + "@example.test",
		QualifiedCourseIDs: courseIDs,
		QualifiedLabIDs:    labIDs,
		Active:             true,
	})
}

func (m *memStore) addLectureHall(number string) {
	m.rooms = append(m.rooms, models.Room{ID: number, Number: number, Type: models.RoomTypeLectureHall, Capacity: 60})
}

func (m *memStore) addLabRoom(number string) {
	m.rooms = append(m.rooms, models.Room{ID: number, Number: number, Type: models.RoomTypeLab, Capacity: 30})
}

func (m *memStore) addBatch(id string, courseIDs, labIDs []string) {
	m.batches = append(m.batches, models.Batch{ID: id, Name: id, Size: 30, CourseIDs: courseIDs, LabIDs: labIDs})
}

func (m *memStore) addUnavailable(facultyID string, tokens ...string) {
	m.constraints = append(m.constraints, models.AvailabilityConstraint{
		FacultyID:        facultyID,
		Rule:             models.AvailabilityRuleTeacherAvailability,
		UnavailableSlots: tokens,
	})
}

func (m *memStore) addExternalFacultyBusy(faculty string, day Day, slot int) {
	if m.externalFacultyBusy == nil {
		m.externalFacultyBusy = make(map[string]map[Day]map[int]bool)
	}
	markBusy(m.externalFacultyBusy, faculty, day, slot)
}
