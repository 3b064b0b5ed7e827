package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/repository"
	"github.com/noah-isme/sma-adp-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
	"github.com/noah-isme/sma-adp-api/pkg/jobs"
)

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

const scheduleJobType = "schedule_generate"

// ScheduleGeneratorConfig governs default optimizer behaviour when a
// request omits an option (spec §6's configuration table).
type ScheduleGeneratorConfig struct {
	PopulationSize int
	Iterations     int
	Mode           scheduler.Mode
	Seed           int64
	MaxAttempts    int
	GAWorkers      int
}

// ScheduleGeneratorService orchestrates internal/scheduler against
// persistence: it enqueues optimization jobs, runs the pure scheduler core
// against a repository-backed Entity Store, streams progress, and commits
// the resulting timetables per batch.
type ScheduleGeneratorService struct {
	db            *sqlx.DB
	batches       *repository.BatchRepository
	courses       *repository.CourseRepository
	labs          *repository.LabRepository
	faculty       *repository.FacultyRepository
	rooms         *repository.RoomRepository
	availability  *repository.AvailabilityRepository
	timetables    *repository.TimetableRepository
	jobRepo       *repository.JobRepository
	queue         jobDispatcher
	validate      *validator.Validate
	logger        *zap.Logger
	defaultConfig scheduler.Config
	registry      *jobRegistry
	cache         *CacheService
}

// SetQueue wires the job queue after construction, for callers that must
// build the queue's handler from the service itself (the queue's Handler
// is s.Process, so the two can't be constructed in a single step).
func (s *ScheduleGeneratorService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// NewScheduleGeneratorService wires the optimizer against its persistence
// dependencies and the background job queue. Pass nil for queue and call
// SetQueue once the queue has been constructed with this service's Process
// method as its handler.
func NewScheduleGeneratorService(
	db *sqlx.DB,
	batches *repository.BatchRepository,
	courses *repository.CourseRepository,
	labs *repository.LabRepository,
	faculty *repository.FacultyRepository,
	rooms *repository.RoomRepository,
	availability *repository.AvailabilityRepository,
	timetables *repository.TimetableRepository,
	jobRepo *repository.JobRepository,
	queue jobDispatcher,
	validate *validator.Validate,
	logger *zap.Logger,
	cache *CacheService,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultCfg := scheduler.DefaultConfig()
	if cfg.PopulationSize > 0 {
		defaultCfg.PopulationSize = cfg.PopulationSize
	}
	if cfg.Iterations > 0 {
		defaultCfg.Iterations = cfg.Iterations
	}
	if cfg.Mode.MaxFacultyPerDayStrict > 0 || cfg.Mode.MaxFacultyPerDayRelaxed > 0 || cfg.Mode.MaxConsecutive > 0 {
		defaultCfg.Mode = cfg.Mode
	}
	if cfg.Seed != 0 {
		defaultCfg.Seed = cfg.Seed
	}
	if cfg.MaxAttempts > 0 {
		defaultCfg.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.GAWorkers > 0 {
		defaultCfg.Workers = cfg.GAWorkers
	}
	return &ScheduleGeneratorService{
		db:            db,
		batches:       batches,
		courses:       courses,
		labs:          labs,
		faculty:       faculty,
		rooms:         rooms,
		availability:  availability,
		timetables:    timetables,
		jobRepo:       jobRepo,
		queue:         queue,
		validate:      validate,
		logger:        logger,
		defaultConfig: defaultCfg,
		registry:      newJobRegistry(),
		cache:         cache,
	}
}

// Generate validates and persists a new optimization job, then enqueues it
// for background processing.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateJobRequest) (*dto.GenerateJobResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}

	cfg := s.buildConfig(req)
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode job configuration")
	}

	job := &models.JobRecord{
		BatchIDs: req.BatchIDs,
		Status:   models.JobStatusQueued,
		Config:   types.JSONText(cfgJSON),
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create job record")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: scheduleJobType}); err != nil {
		errText := err.Error()
		_ = s.jobRepo.Finish(ctx, job.ID, models.JobStatusFailed, 0, &errText)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue job")
	}

	return &dto.GenerateJobResponse{JobID: job.ID, Status: string(job.Status)}, nil
}

func (s *ScheduleGeneratorService) buildConfig(req dto.GenerateJobRequest) scheduler.Config {
	cfg := s.defaultConfig
	if req.PopulationSize > 0 {
		cfg.PopulationSize = req.PopulationSize
	}
	if req.Iterations > 0 {
		cfg.Iterations = req.Iterations
	}
	if req.StrictMode != nil {
		cfg.Mode.Strict = *req.StrictMode
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.MaxFacultyPerDayStrict > 0 {
		cfg.Mode.MaxFacultyPerDayStrict = req.MaxFacultyPerDayStrict
	}
	if req.MaxFacultyPerDayRelaxed > 0 {
		cfg.Mode.MaxFacultyPerDayRelaxed = req.MaxFacultyPerDayRelaxed
	}
	if req.MaxConsecutive > 0 {
		cfg.Mode.MaxConsecutive = req.MaxConsecutive
	}
	return cfg
}

// Process is the pkg/jobs.Handler run by the worker queue for every
// scheduleJobType job. It never returns an error: internal/scheduler.RunJob
// already encodes its own retry policy (cfg.MaxAttempts), so a queue-level
// retry would only repeat work the job itself has already given up on.
func (s *ScheduleGeneratorService) Process(ctx context.Context, job jobs.Job) error {
	record, err := s.jobRepo.FindByID(ctx, job.ID)
	if err != nil {
		s.logger.Sugar().Errorw("job record not found", "job_id", job.ID, "error", err)
		return nil
	}

	var cfg scheduler.Config
	if len(record.Config) > 0 {
		if err := json.Unmarshal(record.Config, &cfg); err != nil {
			s.logger.Sugar().Warnw("failed to decode job config, using defaults", "job_id", job.ID, "error", err)
			cfg = s.defaultConfig
		}
	} else {
		cfg = s.defaultConfig
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.registry.register(job.ID, cancel)
	defer s.registry.unregister(job.ID)

	if err := s.jobRepo.UpdateProgress(ctx, job.ID, models.JobStatusRunning, nil, nil); err != nil {
		s.logger.Sugar().Warnw("failed to mark job running", "job_id", job.ID, "error", err)
	}

	store, err := LoadEntityStore(runCtx, record.BatchIDs, s.batches, s.courses, s.labs, s.faculty, s.rooms, s.availability, s.timetables, s.cache)
	if err != nil {
		errText := err.Error()
		_ = s.jobRepo.Finish(ctx, job.ID, models.JobStatusFailed, 0, &errText)
		s.registry.broadcastDone(job.ID)
		return nil
	}

	events := make(chan scheduler.ProgressEvent, 64)
	forwardDone := make(chan struct{})
	var logs []string
	var fitnessCurve []int64
	go func() {
		defer close(forwardDone)
		for e := range events {
			s.registry.broadcast(job.ID, e)
			if e.Kind == scheduler.EventLog {
				logs = append(logs, e.Message)
			}
			if e.Kind == scheduler.EventStatus {
				_ = s.jobRepo.UpdateProgress(ctx, job.ID, models.JobStatus(e.Status), logs, fitnessCurve)
			}
		}
	}()

	result := scheduler.RunJob(runCtx, store, cfg, s.logger, events)
	close(events)
	<-forwardDone

	fitnessCurve = toInt64Slice(result.FitnessCurve)
	status := statusFromScheduler(result.Status)

	if status == models.JobStatusCompleted || (status == models.JobStatusCanceled && len(result.Assignment) > 0) {
		if commitErr := s.commitResult(ctx, record, result); commitErr != nil {
			errText := commitErr.Error()
			_ = s.jobRepo.Finish(ctx, job.ID, models.JobStatusFailed, len(result.Unassigned), &errText)
			s.registry.broadcastDone(job.ID)
			return nil
		}
	}

	_ = s.jobRepo.UpdateProgress(ctx, job.ID, status, logs, fitnessCurve)
	var errText *string
	if result.Err != nil {
		msg := result.Err.Error()
		errText = &msg
	}
	_ = s.jobRepo.Finish(ctx, job.ID, status, len(result.Unassigned), errText)
	s.registry.broadcastDone(job.ID)
	return nil
}

// wireGrid converts the scheduler's internal grid representation to the
// JSON-tagged models.Grid shape the wire contract mandates: scheduler.Cell
// carries no tags of its own since the core package never imports encoding
// concerns.
func wireGrid(grid map[string]map[string]*scheduler.Cell) models.Grid {
	out := make(models.Grid, len(grid))
	for day, slots := range grid {
		daySlots := make(models.DaySlots, len(slots))
		for slot, cell := range slots {
			if cell == nil {
				daySlots[slot] = nil
				continue
			}
			daySlots[slot] = &models.SessionCell{
				Code:        cell.Code,
				Name:        cell.Name,
				FacultyName: cell.FacultyName,
				Room:        cell.Room,
				Type:        models.SessionType(cell.Type),
			}
		}
		out[day] = daySlots
	}
	return out
}

func statusFromScheduler(status string) models.JobStatus {
	switch status {
	case scheduler.StatusCompleted:
		return models.JobStatusCompleted
	case scheduler.StatusCanceled:
		return models.JobStatusCanceled
	default:
		return models.JobStatusFailed
	}
}

func toInt64Slice(in []int) []int64 {
	if in == nil {
		return nil
	}
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

// commitResult splits the job's combined assignment back out per batch and
// writes one timetable version per batch inside a single transaction, so a
// partially-failed commit never leaves some batches updated and others
// stale.
func (s *ScheduleGeneratorService) commitResult(ctx context.Context, job *models.JobRecord, result scheduler.JobResult) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sessionsByBatch := make(map[string][]scheduler.Session)
	for _, sess := range result.Sessions {
		sessionsByBatch[sess.BatchID] = append(sessionsByBatch[sess.BatchID], sess)
	}

	for _, batchID := range job.BatchIDs {
		sessions := sessionsByBatch[batchID]
		assignment := make(scheduler.Assignment)
		unassignedCount := 0
		sessionInBatch := make(map[scheduler.SessionID]bool, len(sessions))
		for _, sess := range sessions {
			sessionInBatch[sess.ID] = true
		}
		for id, placement := range result.Assignment {
			if sessionInBatch[id] {
				assignment[id] = placement
			}
		}
		for _, id := range result.Unassigned {
			if sessionInBatch[id] {
				unassignedCount++
			}
		}

		grid := wireGrid(scheduler.BuildGrid(assignment, sessions))
		gridJSON, err := json.Marshal(grid)
		if err != nil {
			return fmt.Errorf("encode grid for batch %s: %w", batchID, err)
		}

		timetable := &models.Timetable{
			BatchID:         batchID,
			FitnessScore:    result.FitnessScore,
			UnassignedCount: unassignedCount,
			GridJSON:        types.JSONText(gridJSON),
			JobID:           &job.ID,
		}
		if err := s.timetables.Commit(ctx, tx, timetable); err != nil {
			return fmt.Errorf("commit timetable for batch %s: %w", batchID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// Status reports the current lifecycle state of a job.
func (s *ScheduleGeneratorService) Status(ctx context.Context, jobID string) (*dto.JobStatusResponse, error) {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load job")
	}
	return &dto.JobStatusResponse{
		JobID:           job.ID,
		BatchIDs:        job.BatchIDs,
		Status:          string(job.Status),
		Logs:            job.Logs,
		FitnessCurve:    job.FitnessCurve,
		UnassignedCount: job.UnassignedCount,
		Error:           job.Error,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}, nil
}

// Cancel requests cancellation of a running job. Cancellation is
// cooperative: the job's context is canceled, RunJob returns the best
// assignment it has seen, and Process commits that best-effort result
// before the job is finished as CANCELED, exactly as spec §7's
// cancellation policy describes.
func (s *ScheduleGeneratorService) Cancel(jobID string) error {
	if !s.registry.cancel(jobID) {
		return appErrors.Clone(appErrors.ErrNotFound, "job is not running")
	}
	return nil
}

// Subscribe registers a channel that receives every progress event emitted
// by the named job from this point forward. The returned function must be
// called to release the subscription.
func (s *ScheduleGeneratorService) Subscribe(jobID string) (<-chan scheduler.ProgressEvent, func()) {
	return s.registry.subscribe(jobID)
}

// Versions lists the committed timetable versions for a batch.
func (s *ScheduleGeneratorService) Versions(ctx context.Context, batchID string) ([]dto.TimetableVersionResponse, error) {
	versions, err := s.timetables.ListVersionsByBatch(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable versions")
	}
	out := make([]dto.TimetableVersionResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, dto.TimetableVersionResponse{
			ID:              v.ID,
			BatchID:         batchID,
			Version:         v.Version,
			Status:          string(v.Status),
			FitnessScore:    v.FitnessScore,
			UnassignedCount: v.UnassignedCount,
			CreatedAt:       v.CreatedAt,
		})
	}
	return out, nil
}

// Grid returns a committed timetable's grid in the exact wire shape spec §6
// mandates.
func (s *ScheduleGeneratorService) Grid(ctx context.Context, timetableID string) (*dto.TimetableGridResponse, error) {
	timetable, err := s.timetables.FindByID(ctx, timetableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	grid := make(map[string]map[string]*dto.SessionCellDTO)
	if len(timetable.GridJSON) > 0 {
		if err := json.Unmarshal(timetable.GridJSON, &grid); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode timetable grid")
		}
	}
	return &dto.TimetableGridResponse{
		ID:      timetable.ID,
		BatchID: timetable.BatchID,
		Version: timetable.Version,
		Status:  string(timetable.Status),
		Grid:    grid,
	}, nil
}

// PublishedGrid returns the currently published timetable for a batch.
func (s *ScheduleGeneratorService) PublishedGrid(ctx context.Context, batchID string) (*dto.TimetableGridResponse, error) {
	timetable, err := s.timetables.FindPublishedByBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no published timetable for batch")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return s.Grid(ctx, timetable.ID)
}

// Timetable returns the raw timetable record, grid included, for callers
// (such as the export handler) that need more than the wire DTO.
func (s *ScheduleGeneratorService) Timetable(ctx context.Context, id string) (*models.Timetable, error) {
	timetable, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return timetable, nil
}

// DeleteTimetable discards one timetable version outright.
func (s *ScheduleGeneratorService) DeleteTimetable(ctx context.Context, id string) error {
	if err := s.timetables.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	return nil
}

// FormatLine renders a progress event in the line-oriented wire format
// spec §6 mandates: "STATUS:<TOKEN>", "PROGRESS:<int>", "[HH:MM:SS] <text>",
// terminated by "DONE".
func FormatLine(e scheduler.ProgressEvent) string {
	switch e.Kind {
	case scheduler.EventStatus:
		return "STATUS:" + e.Status
	case scheduler.EventProgress:
		return fmt.Sprintf("PROGRESS:%d", e.Progress)
	case scheduler.EventLog:
		return fmt.Sprintf("[%s] %s", time.Now().UTC().Format("15:04:05"), e.Message)
	case scheduler.EventDone:
		return "DONE"
	default:
		return ""
	}
}

// jobRegistry tracks the cancel function and progress subscribers for each
// job currently being processed, mirroring the in-memory proposal-cache
// pattern this codebase already uses for ephemeral per-request state.
type jobRegistry struct {
	mu          sync.RWMutex
	cancels     map[string]context.CancelFunc
	subscribers map[string]map[int]chan scheduler.ProgressEvent
	nextID      int
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{
		cancels:     make(map[string]context.CancelFunc),
		subscribers: make(map[string]map[int]chan scheduler.ProgressEvent),
	}
}

func (r *jobRegistry) register(jobID string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[jobID] = cancel
}

func (r *jobRegistry) unregister(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, jobID)
}

func (r *jobRegistry) cancel(jobID string) bool {
	r.mu.RLock()
	cancel, ok := r.cancels[jobID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

func (r *jobRegistry) subscribe(jobID string) (<-chan scheduler.ProgressEvent, func()) {
	ch := make(chan scheduler.ProgressEvent, 32)
	r.mu.Lock()
	if r.subscribers[jobID] == nil {
		r.subscribers[jobID] = make(map[int]chan scheduler.ProgressEvent)
	}
	id := r.nextID
	r.nextID++
	r.subscribers[jobID][id] = ch
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if subs, ok := r.subscribers[jobID]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(r.subscribers, jobID)
			}
		}
		close(ch)
	}
	return ch, cancel
}

func (r *jobRegistry) broadcast(jobID string, e scheduler.ProgressEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.subscribers[jobID] {
		select {
		case ch <- e:
		default:
		}
	}
}

func (r *jobRegistry) broadcastDone(jobID string) {
	r.broadcast(jobID, scheduler.ProgressEvent{Kind: scheduler.EventDone})
}
