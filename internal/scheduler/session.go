package scheduler

import (
	"sort"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// ExpandResult bundles the expanded session list with any non-fatal input
// errors discovered along the way.
type ExpandResult struct {
	Sessions []Session
	Warnings []InputError
}

// Expand converts the academic plan of each batch into a flat, deterministic
// list of Sessions. Batches are processed in the order given by
// store.Batches(); within a batch, course sessions are emitted before lab
// sessions, each in the order the batch lists course_ids/lab_ids.
func Expand(store EntityStore) ExpandResult {
	courses := store.Courses()
	labs := store.Labs()
	qualifiedByCourse, qualifiedByLab := qualificationIndex(store.Faculty())

	var result ExpandResult
	nextID := SessionID(0)

	for _, batch := range store.Batches() {
		if len(batch.CourseIDs) == 0 && len(batch.LabIDs) == 0 {
			result.Warnings = append(result.Warnings, InputError{
				BatchID: batch.ID,
				Detail:  "batch has no courses or labs assigned",
			})
			continue
		}

		for _, courseID := range batch.CourseIDs {
			course, ok := courses[courseID]
			if !ok {
				result.Warnings = append(result.Warnings, InputError{
					BatchID: batch.ID,
					Detail:  "referenced course " + courseID + " not found, skipped",
				})
				continue
			}
			credits := course.Credits
			if credits <= 0 {
				result.Warnings = append(result.Warnings, InputError{
					BatchID: batch.ID,
					Detail:  "course " + course.Code + " has non-positive credits, defaulted to 3",
				})
				credits = 3
			}
			preferred := course.PreferredSession
			if preferred != models.PreferredSessionFN && preferred != models.PreferredSessionAN && preferred != models.PreferredSessionAny {
				result.Warnings = append(result.Warnings, InputError{
					BatchID: batch.ID,
					Detail:  "course " + course.Code + " has malformed preferred_session, defaulted to Any",
				})
				preferred = models.PreferredSessionAny
			}

			qualified, flagged := facultyPoolFor(qualifiedByCourse[course.ID])
			if flagged {
				result.Warnings = append(result.Warnings, InputError{
					BatchID: batch.ID,
					Detail:  "no qualified faculty for course " + course.Code + ", using sentinel Staff pool",
				})
			}

			for i := 0; i < credits; i++ {
				result.Sessions = append(result.Sessions, Session{
					ID:               nextID,
					BatchID:          batch.ID,
					Kind:             KindTheory,
					SubjectID:        course.ID,
					SubjectCode:      course.Code,
					SubjectName:      course.Name,
					PreferredSession: preferred,
					Duration:         1,
					QualifiedFaculty: qualified,
					Flagged:          flagged,
				})
				nextID++
			}
		}

		for _, labID := range batch.LabIDs {
			lab, ok := labs[labID]
			if !ok {
				result.Warnings = append(result.Warnings, InputError{
					BatchID: batch.ID,
					Detail:  "referenced lab " + labID + " not found, skipped",
				})
				continue
			}
			qualified, flagged := facultyPoolFor(qualifiedByLab[lab.ID])
			if flagged {
				result.Warnings = append(result.Warnings, InputError{
					BatchID: batch.ID,
					Detail:  "no qualified faculty for lab " + lab.Code + ", using sentinel Staff pool",
				})
			}

			result.Sessions = append(result.Sessions, Session{
				ID:               nextID,
				BatchID:          batch.ID,
				Kind:             KindLab,
				SubjectID:        lab.ID,
				SubjectCode:      lab.Code,
				SubjectName:      lab.Name,
				PreferredSession: models.PreferredSessionAny,
				Duration:         2,
				QualifiedFaculty: qualified,
				Flagged:          flagged,
			})
			nextID++
		}
	}

	return result
}

// qualificationIndex scans faculty once and builds subject -> qualified
// faculty name lookups.
func qualificationIndex(faculty []models.Faculty) (byCourse, byLab map[string][]string) {
	byCourse = make(map[string][]string)
	byLab = make(map[string][]string)
	for _, f := range faculty {
		for _, courseID := range f.QualifiedCourseIDs {
			byCourse[courseID] = append(byCourse[courseID], f.Name)
		}
		for _, labID := range f.QualifiedLabIDs {
			byLab[labID] = append(byLab[labID], f.Name)
		}
	}
	for _, names := range byCourse {
		sort.Strings(names)
	}
	for _, names := range byLab {
		sort.Strings(names)
	}
	return byCourse, byLab
}

func facultyPoolFor(names []string) (pool []string, flagged bool) {
	if len(names) == 0 {
		return []string{StaffSentinel}, true
	}
	return names, false
}
