package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

func optimizerFixture(t *testing.T) (*Optimizer, []Session) {
	t.Helper()
	store := newMemStore()
	courseIDs := []string{"c1", "c2", "c3"}
	for _, id := range courseIDs {
		store.addCourse(id, id, 2, models.PreferredSessionAny)
	}
	for i := 0; i < 4; i++ {
		store.addFaculty(alphaName(i), courseIDs, nil)
	}
	store.addLectureHall("R1")
	store.addLectureHall("R2")
	store.addBatch("b1", courseIDs, nil)

	expanded := Expand(store)
	require.NotEmpty(t, expanded.Sessions)
	index := BuildResourceIndex(store)
	graph := BuildConflictGraph(expanded.Sessions)
	colors := DSATURColor(graph)

	cfg := DefaultConfig()
	cfg.PopulationSize = 5
	cfg.Iterations = 200
	cfg.Seed = 17
	return NewOptimizer(expanded.Sessions, colors, index, cfg), expanded.Sessions
}

func TestSeedPopulationProducesScoredCandidates(t *testing.T) {
	opt, _ := optimizerFixture(t)
	population, errs := opt.SeedPopulation()
	require.NotEmpty(t, population)
	assert.Nil(t, errs)
	for i := 1; i < len(population); i++ {
		assert.GreaterOrEqual(t, population[i-1].Fitness, population[i].Fitness)
	}
}

func TestRunGANeverWorsensBestFitness(t *testing.T) {
	opt, _ := optimizerFixture(t)
	population, _ := opt.SeedPopulation()
	require.NotEmpty(t, population)
	initial := population[0].Fitness

	result := opt.RunGA(context.Background(), population)
	assert.GreaterOrEqual(t, result.BestFitness, initial)
	assert.NotEmpty(t, result.FitnessCurve)
}

func TestRunGARespectsCancellation(t *testing.T) {
	opt, _ := optimizerFixture(t)
	population, _ := opt.SeedPopulation()
	require.NotEmpty(t, population)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := opt.RunGA(ctx, population)
	assert.Equal(t, population[0].Fitness, result.BestFitness)
}

func TestRunGAParallelNeverWorsensBestFitness(t *testing.T) {
	opt, _ := optimizerFixture(t)
	population, _ := opt.SeedPopulation()
	require.NotEmpty(t, population)

	result, err := opt.RunGAParallel(context.Background(), population, 4)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.BestFitness, population[0].Fitness)
}

func TestElitismRetainsTopPerformers(t *testing.T) {
	opt, sessions := optimizerFixture(t)
	population, _ := opt.SeedPopulation()
	require.NotEmpty(t, population)

	rng := NewRNG(3)
	next := Elitism(population, rng, sessions, opt.Index, opt.Config.Mode)
	require.Len(t, next, len(population))
	assert.Equal(t, population[0].Fitness, next[0].Fitness)
}

func TestMutateNeverMovesOutOfPreferredWindow(t *testing.T) {
	opt, _ := optimizerFixture(t)
	session := Session{ID: 0, BatchID: "b1", Kind: KindTheory, Duration: 1, PreferredSession: models.PreferredSessionFN, QualifiedFaculty: []string{"A"}}
	opt.Sessions = []Session{session}
	assignment := Assignment{0: {Day: Mon, Slot: 1, FacultyName: "A", Room: "R1"}}

	rng := NewRNG(1)
	for i := 0; i < 20; i++ {
		mutated := opt.mutate(assignment, rng)
		if mutated == nil {
			continue
		}
		assert.Contains(t, FNSlots, (*mutated)[0].Slot)
	}
}
