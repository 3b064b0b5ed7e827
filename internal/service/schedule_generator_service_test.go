package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/scheduler"
)

func TestBuildConfigOverridesDefaults(t *testing.T) {
	svc := &ScheduleGeneratorService{defaultConfig: scheduler.DefaultConfig()}

	strict := false
	seed := int64(42)
	req := dto.GenerateJobRequest{
		BatchIDs:               []string{"b1"},
		PopulationSize:         20,
		Iterations:             500,
		StrictMode:             &strict,
		Seed:                   &seed,
		MaxFacultyPerDayStrict: 6,
	}

	cfg := svc.buildConfig(req)
	assert.Equal(t, 20, cfg.PopulationSize)
	assert.Equal(t, 500, cfg.Iterations)
	assert.False(t, cfg.Mode.Strict)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 6, cfg.Mode.MaxFacultyPerDayStrict)
	// untouched fields keep the default.
	assert.Equal(t, scheduler.DefaultConfig().Mode.MaxConsecutive, cfg.Mode.MaxConsecutive)
}

func TestBuildConfigKeepsDefaultsWhenUnset(t *testing.T) {
	svc := &ScheduleGeneratorService{defaultConfig: scheduler.DefaultConfig()}
	cfg := svc.buildConfig(dto.GenerateJobRequest{BatchIDs: []string{"b1"}})
	assert.Equal(t, scheduler.DefaultConfig(), cfg)
}

func TestWireGridConvertsCellsAndPreservesNils(t *testing.T) {
	grid := map[string]map[string]*scheduler.Cell{
		"Mon": {
			"1": {Code: "CS101", Name: "Data Structures", FacultyName: "Dr. Rao", Room: "LH-1", Type: "Theory"},
			"2": nil,
		},
	}

	wire := wireGrid(grid)
	require.Contains(t, wire, "Mon")
	require.Contains(t, wire["Mon"], "1")
	require.Nil(t, wire["Mon"]["2"])

	cell := wire["Mon"]["1"]
	assert.Equal(t, "CS101", cell.Code)
	assert.Equal(t, "Dr. Rao", cell.FacultyName)
	assert.Equal(t, models.SessionType("Theory"), cell.Type)
}

func TestStatusFromScheduler(t *testing.T) {
	assert.Equal(t, models.JobStatusCompleted, statusFromScheduler(scheduler.StatusCompleted))
	assert.Equal(t, models.JobStatusCanceled, statusFromScheduler(scheduler.StatusCanceled))
	assert.Equal(t, models.JobStatusFailed, statusFromScheduler(scheduler.StatusFailed))
	assert.Equal(t, models.JobStatusFailed, statusFromScheduler("whatever"))
}

func TestToInt64Slice(t *testing.T) {
	assert.Nil(t, toInt64Slice(nil))
	assert.Equal(t, []int64{1, 2, 3}, toInt64Slice([]int{1, 2, 3}))
}

func TestFormatLine(t *testing.T) {
	assert.Equal(t, "STATUS:OPTIMIZING", FormatLine(scheduler.ProgressEvent{Kind: scheduler.EventStatus, Status: "OPTIMIZING"}))
	assert.Equal(t, "PROGRESS:42", FormatLine(scheduler.ProgressEvent{Kind: scheduler.EventProgress, Progress: 42}))
	assert.Equal(t, "DONE", FormatLine(scheduler.ProgressEvent{Kind: scheduler.EventDone}))
	line := FormatLine(scheduler.ProgressEvent{Kind: scheduler.EventLog, Message: "seeded population"})
	assert.True(t, strings.HasSuffix(line, "seeded population"))
	assert.True(t, strings.HasPrefix(line, "["))
}

func TestJobRegistryBroadcastAndCancel(t *testing.T) {
	r := newJobRegistry()

	_, cancel := context.WithCancel(context.Background())
	r.register("job-1", cancel)
	require.True(t, r.cancel("job-1"))
	require.False(t, r.cancel("missing-job"))

	ch, unsubscribe := r.subscribe("job-1")
	defer unsubscribe()

	r.broadcast("job-1", scheduler.ProgressEvent{Kind: scheduler.EventStatus, Status: "SEEDING"})
	select {
	case e := <-ch:
		assert.Equal(t, "SEEDING", e.Status)
	default:
		t.Fatal("expected a buffered event on the subscriber channel")
	}

	r.broadcastDone("job-1")
	select {
	case e := <-ch:
		assert.Equal(t, scheduler.EventDone, e.Kind)
	default:
		t.Fatal("expected a DONE event on the subscriber channel")
	}
}
