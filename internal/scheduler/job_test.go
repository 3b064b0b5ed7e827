package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

func jobStoreFixture() *memStore {
	store := newMemStore()
	courseIDs := []string{"c1", "c2"}
	for _, id := range courseIDs {
		store.addCourse(id, id, 2, models.PreferredSessionAny)
	}
	store.addFaculty("Dr. A", courseIDs, nil)
	store.addFaculty("Dr. B", courseIDs, nil)
	store.addLectureHall("R1")
	store.addLectureHall("R2")
	store.addBatch("b1", courseIDs, nil)
	return store
}

func drainEvents(events <-chan ProgressEvent, out *[]ProgressEvent) {
	for e := range events {
		*out = append(*out, e)
	}
}

func TestRunJobCompletesAndEmitsEventSequence(t *testing.T) {
	store := jobStoreFixture()
	cfg := DefaultConfig()
	cfg.PopulationSize = 4
	cfg.Iterations = 100
	cfg.Seed = 5

	events := make(chan ProgressEvent, 256)
	var collected []ProgressEvent
	done := make(chan struct{})
	go func() {
		drainEvents(events, &collected)
		close(done)
	}()

	result := RunJob(context.Background(), store, cfg, zap.NewNop(), events)
	close(events)
	<-done

	require.Equal(t, StatusCompleted, result.Status)
	assert.NoError(t, result.Err)
	assert.NotEmpty(t, result.Assignment)

	var sawResult, sawDone bool
	for _, e := range collected {
		if e.Kind == EventResult {
			sawResult = true
		}
		if e.Kind == EventDone {
			sawDone = true
		}
	}
	assert.True(t, sawResult)
	assert.True(t, sawDone)

	violations := Verify(result.Assignment, result.Sessions, BuildResourceIndex(store), cfg.Mode)
	assert.Empty(t, violations)
}

// Scenario 6: a 5ms deadline against a 1000-iteration run ends the job
// with status CANCELED (or COMPLETED if it finishes first), not an error exit.
func TestRunJobCancellationMidOptimization(t *testing.T) {
	store := jobStoreFixture()
	cfg := DefaultConfig()
	cfg.PopulationSize = 4
	cfg.Iterations = 1000
	cfg.Seed = 9

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	result := RunJob(ctx, store, cfg, zap.NewNop(), nil)
	assert.Contains(t, []string{StatusCanceled, StatusCompleted}, result.Status)
}

func TestRunJobFailsCleanlyWithNoSessions(t *testing.T) {
	store := newMemStore()
	cfg := DefaultConfig()
	result := RunJob(context.Background(), store, cfg, zap.NewNop(), nil)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Error(t, result.Err)
}

func TestBuildGridShapeAndCasing(t *testing.T) {
	session := Session{ID: 0, BatchID: "b1", Kind: KindLab, SubjectCode: "C1L", SubjectName: "C1 Lab", Duration: 2}
	assignment := Assignment{0: {Day: Mon, Slot: 1, FacultyName: "Dr. A", Room: "LAB1"}}

	grid := BuildGrid(assignment, []Session{session})
	require.Contains(t, grid, "Mon")
	require.Contains(t, grid["Mon"], "1")
	require.Contains(t, grid["Mon"], "2")
	require.NotNil(t, grid["Mon"]["1"])
	assert.Equal(t, "LAB", grid["Mon"]["1"].Type)
	assert.Equal(t, grid["Mon"]["1"], grid["Mon"]["2"])
	assert.Nil(t, grid["Tue"]["1"])
}

func TestRunJobUsesParallelGAWhenWorkersConfigured(t *testing.T) {
	store := jobStoreFixture()
	cfg := DefaultConfig()
	cfg.PopulationSize = 4
	cfg.Iterations = 100
	cfg.Seed = 5
	cfg.Workers = 4

	result := RunJob(context.Background(), store, cfg, zap.NewNop(), nil)

	require.Equal(t, StatusCompleted, result.Status)
	assert.NoError(t, result.Err)
	violations := Verify(result.Assignment, result.Sessions, BuildResourceIndex(store), cfg.Mode)
	assert.Empty(t, violations)
}

func TestRunJobReproducibleAcrossRuns(t *testing.T) {
	store := jobStoreFixture()
	cfg := DefaultConfig()
	cfg.PopulationSize = 4
	cfg.Iterations = 80
	cfg.Seed = 21

	r1 := RunJob(context.Background(), store, cfg, zap.NewNop(), nil)
	r2 := RunJob(context.Background(), store, cfg, zap.NewNop(), nil)
	assert.Equal(t, r1.FitnessScore, r2.FitnessScore)
	assert.Equal(t, r1.Assignment, r2.Assignment)
}
