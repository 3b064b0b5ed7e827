package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// EventKind tags a ProgressEvent's payload, modeled as a push channel of
// variant events rather than a cooperative-suspension generator.
type EventKind int

const (
	EventStatus EventKind = iota
	EventProgress
	EventLog
	EventResult
	EventDone
)

// ProgressEvent is one line of the job progress stream. Exactly one of
// Status/Progress/Message/Result is meaningful, selected by Kind.
type ProgressEvent struct {
	Kind     EventKind
	Status   string
	Progress int
	Message  string
	Result   *JobResult
}

// JobResult is what the Commit Coordinator hands back once a job reaches a
// terminal state.
type JobResult struct {
	Assignment      Assignment
	Sessions        []Session
	Unassigned      []SessionID
	FitnessCurve    []int
	FitnessScore    int
	Status          string // COMPLETED, FAILED, CANCELED
	Logs            []string
	Err             error
}

// Status tokens.
const (
	StatusExpanding   = "EXPANDING"
	StatusIndexing    = "INDEXING"
	StatusColoring    = "COLORING"
	StatusSeeding     = "SEEDING"
	StatusOptimizing  = "OPTIMIZING"
	StatusValidating  = "VALIDATING"
	StatusCompleted   = "COMPLETED"
	StatusFailed      = "FAILED"
	StatusCanceled    = "CANCELED"
)

// RunJob orchestrates the full pipeline: expansion, resource indexing,
// conflict graph/DSATUR, seeded constructive assignment, genetic
// refinement, a final sanity validation pass, and emission of a progress
// event stream. It retries the whole seed-and-optimize pipeline up to
// cfg.MaxAttempts times, keeping the best-scoring attempt across retries.
// events may be nil, in which case progress is only logged.
func RunJob(ctx context.Context, store EntityStore, cfg Config, logger *zap.Logger, events chan<- ProgressEvent) JobResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	emit := func(e ProgressEvent) {
		if events != nil {
			events <- e
		}
	}
	logLine := func(format string, args ...interface{}) string {
		msg := fmt.Sprintf(format, args...)
		emit(ProgressEvent{Kind: EventLog, Message: msg})
		logger.Sugar().Info(msg)
		return msg
	}

	var logs []string
	record := func(format string, args ...interface{}) {
		logs = append(logs, logLine(format, args...))
	}

	emit(ProgressEvent{Kind: EventStatus, Status: StatusExpanding})
	expanded := Expand(store)
	for _, w := range expanded.Warnings {
		record("input warning: %s", w.Error())
	}
	if len(expanded.Sessions) == 0 {
		result := JobResult{Status: StatusFailed, Logs: logs, Err: fmt.Errorf("no sessions to schedule")}
		emit(ProgressEvent{Kind: EventStatus, Status: StatusFailed})
		emit(ProgressEvent{Kind: EventDone})
		return result
	}
	emit(ProgressEvent{Kind: EventProgress, Progress: 10})

	emit(ProgressEvent{Kind: EventStatus, Status: StatusIndexing})
	index := BuildResourceIndex(store)
	emit(ProgressEvent{Kind: EventProgress, Progress: 20})

	emit(ProgressEvent{Kind: EventStatus, Status: StatusColoring})
	graph := BuildConflictGraph(expanded.Sessions)
	colors := DSATURColor(graph)
	emit(ProgressEvent{Kind: EventProgress, Progress: 30})

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var bestResult Result
	var bestUnassigned []SessionID
	haveBest := false

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return finishCanceled(ctx, emit, logs, bestResult, expanded.Sessions, bestUnassigned, haveBest)
		default:
		}

		record("attempt %d/%d: seeding population", attempt, maxAttempts)
		emit(ProgressEvent{Kind: EventStatus, Status: StatusSeeding})

		attemptIndex := index.Snapshot()
		optimizer := NewOptimizer(expanded.Sessions, colors, attemptIndex, cfg)
		population, seedErrs := optimizer.SeedPopulation()
		if seedErrs != nil && len(seedErrs.Errors) > 0 {
			record("attempt %d: %d sessions unplaceable during seeding", attempt, len(seedErrs.Errors))
		}
		if len(population) == 0 {
			continue
		}
		emit(ProgressEvent{Kind: EventProgress, Progress: 40})

		emit(ProgressEvent{Kind: EventStatus, Status: StatusOptimizing})
		var result Result
		if cfg.Workers > 1 {
			var gaErr error
			result, gaErr = optimizer.RunGAParallel(ctx, population, cfg.Workers)
			if gaErr != nil {
				record("attempt %d: parallel GA failed, falling back to serial: %s", attempt, gaErr.Error())
				result = optimizer.RunGA(ctx, population)
			}
		} else {
			result = optimizer.RunGA(ctx, population)
		}
		unassigned := unassignedOf(expanded.Sessions, result.Best)

		if !haveBest || result.BestFitness > bestResult.BestFitness {
			bestResult = result
			bestUnassigned = unassigned
			haveBest = true
		}
		record("attempt %d: best fitness %d, %d unassigned", attempt, result.BestFitness, len(unassigned))

		select {
		case <-ctx.Done():
			return finishCanceled(ctx, emit, logs, bestResult, expanded.Sessions, bestUnassigned, haveBest)
		default:
		}
	}

	emit(ProgressEvent{Kind: EventProgress, Progress: 80})

	if !haveBest {
		emit(ProgressEvent{Kind: EventStatus, Status: StatusFailed})
		emit(ProgressEvent{Kind: EventDone})
		return JobResult{Status: StatusFailed, Logs: logs, Err: fmt.Errorf("no attempt produced a usable assignment")}
	}

	emit(ProgressEvent{Kind: EventStatus, Status: StatusValidating})
	violations := Verify(bestResult.Best, expanded.Sessions, index, cfg.Mode)
	if len(violations) > 0 {
		for _, v := range violations {
			record("final validation violation: %s", v.Error())
		}
		emit(ProgressEvent{Kind: EventStatus, Status: StatusFailed})
		emit(ProgressEvent{Kind: EventDone})
		return JobResult{
			Status: StatusFailed,
			Logs:   logs,
			Err:    fmt.Errorf("final validation found %d invariant violations, refusing to commit", len(violations)),
		}
	}
	emit(ProgressEvent{Kind: EventProgress, Progress: 95})

	final := JobResult{
		Assignment:   bestResult.Best,
		Sessions:     expanded.Sessions,
		Unassigned:   bestUnassigned,
		FitnessCurve: bestResult.FitnessCurve,
		FitnessScore: bestResult.BestFitness,
		Status:       StatusCompleted,
		Logs:         logs,
	}
	emit(ProgressEvent{Kind: EventStatus, Status: StatusCompleted})
	emit(ProgressEvent{Kind: EventProgress, Progress: 100})
	emit(ProgressEvent{Kind: EventResult, Result: &final})
	emit(ProgressEvent{Kind: EventDone})
	return final
}

func finishCanceled(ctx context.Context, emit func(ProgressEvent), logs []string, best Result, sessions []Session, unassigned []SessionID, haveBest bool) JobResult {
	emit(ProgressEvent{Kind: EventStatus, Status: StatusCanceled})
	result := JobResult{
		Sessions: sessions,
		Status:   StatusCanceled,
		Logs:     logs,
		Err:      ctx.Err(),
	}
	if haveBest {
		result.Assignment = best.Best
		result.Unassigned = unassigned
		result.FitnessCurve = best.FitnessCurve
		result.FitnessScore = best.BestFitness
	}
	emit(ProgressEvent{Kind: EventResult, Result: &result})
	emit(ProgressEvent{Kind: EventDone})
	return result
}

func unassignedOf(sessions []Session, assignment Assignment) []SessionID {
	var out []SessionID
	for _, s := range sessions {
		if _, ok := assignment[s.ID]; !ok {
			out = append(out, s.ID)
		}
	}
	return out
}

// BuildGrid renders an assignment into the wire grid shape 
// mandates: {Day: {Slot: Cell|null}}, slot keys as decimal strings "1".."8".
// Cell.Type carries the exact casing downstream consumers depend on
// ("Theory" / "LAB").
func BuildGrid(assignment Assignment, sessions []Session) map[string]map[string]*Cell {
	byID := make(map[SessionID]Session, len(sessions))
	for _, s := range sessions {
		byID[s.ID] = s
	}

	grid := make(map[string]map[string]*Cell, len(Days))
	for _, day := range Days {
		dayMap := make(map[string]*Cell, MaxSlot)
		for slot := MinSlot; slot <= MaxSlot; slot++ {
			dayMap[fmt.Sprintf("%d", slot)] = nil
		}
		grid[day.String()] = dayMap
	}

	for id, placement := range assignment {
		session, ok := byID[id]
		if !ok {
			continue
		}
		cell := &Cell{
			Code:        session.SubjectCode,
			Name:        session.SubjectName,
			FacultyName: placement.FacultyName,
			Room:        placement.Room,
			Type:        cellType(session.Kind),
		}
		for _, slot := range session.SlotSpan(placement.Slot) {
			grid[placement.Day.String()][fmt.Sprintf("%d", slot)] = cell
		}
	}
	return grid
}

// Cell is one occupied slot in the wire grid.
type Cell struct {
	Code        string
	Name        string
	FacultyName string
	Room        string
	Type        string
}

func cellType(kind SessionKind) string {
	if kind == KindLab {
		return "LAB"
	}
	return "Theory"
}
