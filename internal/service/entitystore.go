package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/repository"
	"github.com/noah-isme/sma-adp-api/internal/scheduler"
)

// resourceIndexCacheTTL bounds how long a job's qualified-faculty/room
// lookups stay cached; jobs run long enough that a stale cache entry from
// a previous job could otherwise leak into this one.
const resourceIndexCacheTTL = 2 * time.Minute

// RepositoryEntityStore adapts the repository layer to scheduler.EntityStore.
// It loads every input the job needs once, up front, so the scheduler core
// never touches sqlx or blocks on I/O mid-run: one store per job, never
// shared across concurrent jobs.
type RepositoryEntityStore struct {
	batches     []models.Batch
	courses     map[string]models.Course
	labs        map[string]models.Lab
	faculty     []models.Faculty
	rooms       []models.Room
	constraints []models.AvailabilityConstraint

	externalFacultyBusy map[string]map[scheduler.Day]map[int]bool
	externalRoomBusy    map[string]map[scheduler.Day]map[int]bool
}

// LoadEntityStore gathers every batch in batchIDs, the courses/labs they
// reference, all active faculty, all rooms, declared availability
// constraints, and the committed timetables of every other batch (to seed
// the external busy maps for incremental scheduling).
func LoadEntityStore(
	ctx context.Context,
	batchIDs []string,
	batchRepo *repository.BatchRepository,
	courseRepo *repository.CourseRepository,
	labRepo *repository.LabRepository,
	facultyRepo *repository.FacultyRepository,
	roomRepo *repository.RoomRepository,
	availabilityRepo *repository.AvailabilityRepository,
	timetableRepo *repository.TimetableRepository,
	cache *CacheService,
) (*RepositoryEntityStore, error) {
	batches, err := batchRepo.ListByIDs(ctx, batchIDs)
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("no batches found for %v", batchIDs)
	}

	var courseIDs, labIDs []string
	seenCourse := make(map[string]bool)
	seenLab := make(map[string]bool)
	for _, b := range batches {
		for _, id := range b.CourseIDs {
			if !seenCourse[id] {
				seenCourse[id] = true
				courseIDs = append(courseIDs, id)
			}
		}
		for _, id := range b.LabIDs {
			if !seenLab[id] {
				seenLab[id] = true
				labIDs = append(labIDs, id)
			}
		}
	}

	courseList, err := courseRepo.ListByIDs(ctx, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	courses := make(map[string]models.Course, len(courseList))
	for _, c := range courseList {
		courses[c.ID] = c
	}

	labList, err := labRepo.ListByIDs(ctx, labIDs)
	if err != nil {
		return nil, fmt.Errorf("load labs: %w", err)
	}
	labs := make(map[string]models.Lab, len(labList))
	for _, l := range labList {
		labs[l.ID] = l
	}

	faculty, err := loadActiveFacultyCached(ctx, cache, facultyRepo)
	if err != nil {
		return nil, fmt.Errorf("load faculty: %w", err)
	}
	facultyNameByID := make(map[string]string, len(faculty))
	for _, f := range faculty {
		facultyNameByID[f.ID] = f.Name
	}

	rooms, err := loadRoomsCached(ctx, cache, roomRepo)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	rawConstraints, err := availabilityRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load availability constraints: %w", err)
	}
	// The scheduler core keys its DeclaredUnavail map by the same string it
	// later compares against Placement.FacultyName, so constraints recorded
	// against a faculty's ID must be rewritten to carry the faculty's name.
	constraints := make([]models.AvailabilityConstraint, 0, len(rawConstraints))
	for _, c := range rawConstraints {
		name, ok := facultyNameByID[c.FacultyID]
		if !ok {
			continue
		}
		c.FacultyID = name
		constraints = append(constraints, c)
	}

	committed, err := timetableRepo.ListCommittedExcluding(ctx, batchIDs)
	if err != nil {
		return nil, fmt.Errorf("load committed timetables: %w", err)
	}
	facultyBusy, roomBusy, err := busyMapsFromTimetables(committed)
	if err != nil {
		return nil, err
	}

	return &RepositoryEntityStore{
		batches:             batches,
		courses:             courses,
		labs:                labs,
		faculty:             faculty,
		rooms:               rooms,
		constraints:         constraints,
		externalFacultyBusy: facultyBusy,
		externalRoomBusy:    roomBusy,
	}, nil
}

const (
	facultyCacheKey = "scheduler:resourceindex:faculty:active"
	roomsCacheKey   = "scheduler:resourceindex:rooms:all"
)

// loadActiveFacultyCached memoizes the active-faculty list behind a short
// TTL: a multi-batch generation run calls LoadEntityStore once per job, but
// a burst of jobs queued back to back shouldn't each pay for a fresh table
// scan of a list that rarely changes mid-burst.
func loadActiveFacultyCached(ctx context.Context, cache *CacheService, repo *repository.FacultyRepository) ([]models.Faculty, error) {
	if cache.Enabled() {
		var cached []models.Faculty
		if hit, err := cache.Get(ctx, facultyCacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}
	faculty, err := repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if cache.Enabled() {
		_ = cache.Set(ctx, facultyCacheKey, faculty, resourceIndexCacheTTL)
	}
	return faculty, nil
}

// loadRoomsCached memoizes the combined lecture-hall/lab room list the same
// way loadActiveFacultyCached does for faculty.
func loadRoomsCached(ctx context.Context, cache *CacheService, repo *repository.RoomRepository) ([]models.Room, error) {
	if cache.Enabled() {
		var cached []models.Room
		if hit, err := cache.Get(ctx, roomsCacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}
	lectureHalls, err := repo.ListByType(ctx, models.RoomTypeLectureHall)
	if err != nil {
		return nil, fmt.Errorf("load lecture halls: %w", err)
	}
	labRooms, err := repo.ListByType(ctx, models.RoomTypeLab)
	if err != nil {
		return nil, fmt.Errorf("load lab rooms: %w", err)
	}
	rooms := make([]models.Room, 0, len(lectureHalls)+len(labRooms))
	rooms = append(rooms, lectureHalls...)
	rooms = append(rooms, labRooms...)
	if cache.Enabled() {
		_ = cache.Set(ctx, roomsCacheKey, rooms, resourceIndexCacheTTL)
	}
	return rooms, nil
}

func busyMapsFromTimetables(timetables []models.Timetable) (map[string]map[scheduler.Day]map[int]bool, map[string]map[scheduler.Day]map[int]bool, error) {
	facultyBusy := make(map[string]map[scheduler.Day]map[int]bool)
	roomBusy := make(map[string]map[scheduler.Day]map[int]bool)

	for _, tt := range timetables {
		if len(tt.GridJSON) == 0 {
			continue
		}
		grid := make(models.Grid)
		if err := json.Unmarshal(tt.GridJSON, &grid); err != nil {
			return nil, nil, fmt.Errorf("decode committed grid for batch %s: %w", tt.BatchID, err)
		}
		for dayToken, slots := range grid {
			day, ok := scheduler.ParseDay(dayToken)
			if !ok {
				continue
			}
			for slotToken, cell := range slots {
				if cell == nil {
					continue
				}
				slot, err := parseSlotToken(slotToken)
				if err != nil {
					continue
				}
				markSlotBusy(facultyBusy, cell.FacultyName, day, slot)
				markSlotBusy(roomBusy, cell.Room, day, slot)
			}
		}
	}
	return facultyBusy, roomBusy, nil
}

func parseSlotToken(token string) (int, error) {
	var slot int
	if _, err := fmt.Sscanf(token, "%d", &slot); err != nil {
		return 0, err
	}
	return slot, nil
}

func markSlotBusy(m map[string]map[scheduler.Day]map[int]bool, key string, day scheduler.Day, slot int) {
	if key == "" {
		return
	}
	if m[key] == nil {
		m[key] = make(map[scheduler.Day]map[int]bool)
	}
	if m[key][day] == nil {
		m[key][day] = make(map[int]bool)
	}
	m[key][day][slot] = true
}

// Batches implements scheduler.EntityStore.
func (s *RepositoryEntityStore) Batches() []models.Batch { return s.batches }

// Courses implements scheduler.EntityStore.
func (s *RepositoryEntityStore) Courses() map[string]models.Course { return s.courses }

// Labs implements scheduler.EntityStore.
func (s *RepositoryEntityStore) Labs() map[string]models.Lab { return s.labs }

// Faculty implements scheduler.EntityStore.
func (s *RepositoryEntityStore) Faculty() []models.Faculty { return s.faculty }

// Rooms implements scheduler.EntityStore.
func (s *RepositoryEntityStore) Rooms() []models.Room { return s.rooms }

// AvailabilityConstraints implements scheduler.EntityStore.
func (s *RepositoryEntityStore) AvailabilityConstraints() []models.AvailabilityConstraint {
	return s.constraints
}

// CommittedBusy implements scheduler.EntityStore.
func (s *RepositoryEntityStore) CommittedBusy() (map[string]map[scheduler.Day]map[int]bool, map[string]map[scheduler.Day]map[int]bool) {
	return s.externalFacultyBusy, s.externalRoomBusy
}
