package scheduler

import (
	"context"
	"sort"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// Candidate is one scored member of the GA population.
type Candidate struct {
	Assignment Assignment
	Fitness    int
}

// Optimizer is the Genetic Optimizer of : a population of
// assignments produced by the Constructive Assigner, refined by
// single-session mutation, selected by fitness, within a fixed iteration
// budget.
type Optimizer struct {
	Sessions []Session
	Colors   map[SessionID]int
	Index    *ResourceIndex
	Config   Config
}

// NewOptimizer builds an optimizer over a colored session set.
func NewOptimizer(sessions []Session, colors map[SessionID]int, index *ResourceIndex, cfg Config) *Optimizer {
	return &Optimizer{Sessions: sessions, Colors: colors, Index: index, Config: cfg}
}

// SeedPopulation runs the Constructive Assigner with P distinct seeds
//. A seed that fails to leave a usable assignment in
// strict mode is retried once in relaxed mode. Failures across seeds
// accumulate into the returned *multierror.Error without aborting the
// remaining seeds.
func (o *Optimizer) SeedPopulation() ([]Candidate, *multierror.Error) {
	var population []Candidate
	var errs *multierror.Error

	for i := 0; i < o.Config.PopulationSize; i++ {
		seed := o.Config.Seed + int64(i)
		idx := o.Index.Snapshot()
		assigner := NewAssigner(o.Sessions, o.Colors, idx, o.Config.Mode, NewRNG(seed))
		assignment, unassigned, failures := assigner.Construct()

		if len(unassigned) == len(o.Sessions) && o.Config.Mode.Strict {
			idx = o.Index.Snapshot()
			relaxed := NewAssigner(o.Sessions, o.Colors, idx, o.Config.Mode.Relaxed(), NewRNG(seed))
			assignment, unassigned, failures = relaxed.Construct()
		}
		if failures != nil {
			errs = multierror.Append(errs, failures.Errors...)
		}
		population = append(population, Candidate{
			Assignment: assignment,
			Fitness:    Fitness(assignment, o.Sessions),
		})
		_ = unassigned
	}

	sort.Slice(population, func(i, j int) bool { return population[i].Fitness > population[j].Fitness })
	return population, errs
}

// Result is what RunGA returns: the best assignment seen across every
// evaluated candidate, plus the fitness curve sampled every 50 iterations
//.
type Result struct {
	Best         Assignment
	BestFitness  int
	FitnessCurve []int
}

// RunGA executes the mutation loop for up to Config.Iterations generations
//, checking ctx for cancellation at least once per
// iteration. On cancellation the best assignment observed so far is
// returned with no error; the caller maps this to STATUS:CANCELED.
func (o *Optimizer) RunGA(ctx context.Context, population []Candidate) Result {
	if len(population) == 0 {
		return Result{}
	}
	best := population[0]
	curve := make([]int, 0, o.Config.Iterations/50+1)
	rng := NewRNG(o.Config.Seed)

	for iter := 0; iter < o.Config.Iterations; iter++ {
		select {
		case <-ctx.Done():
			return Result{Best: best.Assignment, BestFitness: best.Fitness, FitnessCurve: curve}
		default:
		}

		candidate := o.mutate(best.Assignment, rng)
		if candidate != nil {
			if violations := Verify(*candidate, o.Sessions, o.Index, o.Config.Mode); len(violations) == 0 {
				fit := Fitness(*candidate, o.Sessions)
				if fit > best.Fitness {
					best = Candidate{Assignment: *candidate, Fitness: fit}
				}
			}
		}

		if iter%50 == 0 {
			curve = append(curve, best.Fitness)
		}
	}
	curve = append(curve, best.Fitness)
	return Result{Best: best.Assignment, BestFitness: best.Fitness, FitnessCurve: curve}
}

// RunGAParallel is a parallel variant: each generation fans
// mutation+evaluation for a batch of candidate moves across workers, each
// with its own RNG and candidate copy, joined with errgroup.Group;
// adopting a new best is serialized on the caller's goroutine after the
// group completes.
func (o *Optimizer) RunGAParallel(ctx context.Context, population []Candidate, workers int) (Result, error) {
	if len(population) == 0 {
		return Result{}, nil
	}
	if workers < 1 {
		workers = 1
	}
	best := population[0]
	curve := make([]int, 0, o.Config.Iterations/50+1)
	baseSeed := o.Config.Seed

	generations := o.Config.Iterations / workers
	if generations == 0 {
		generations = 1
	}

	for gen := 0; gen < generations; gen++ {
		select {
		case <-ctx.Done():
			return Result{Best: best.Assignment, BestFitness: best.Fitness, FitnessCurve: curve}, nil
		default:
		}

		snapshotBest := best
		results := make([]*Candidate, workers)

		g, gctx := errgroup.WithContext(ctx)
		for w := 0; w < workers; w++ {
			w := w
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return nil
				default:
				}
				workerRNG := NewRNG(baseSeed + int64(gen*workers+w) + 1)
				candidate := o.mutate(snapshotBest.Assignment, workerRNG)
				if candidate == nil {
					return nil
				}
				if violations := Verify(*candidate, o.Sessions, o.Index, o.Config.Mode); len(violations) > 0 {
					return nil
				}
				results[w] = &Candidate{Assignment: *candidate, Fitness: Fitness(*candidate, o.Sessions)}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Result{Best: best.Assignment, BestFitness: best.Fitness, FitnessCurve: curve}, err
		}

		for _, r := range results {
			if r != nil && r.Fitness > best.Fitness {
				best = *r
			}
		}

		if gen%50 == 0 {
			curve = append(curve, best.Fitness)
		}
	}

	curve = append(curve, best.Fitness)
	return Result{Best: best.Assignment, BestFitness: best.Fitness, FitnessCurve: curve}, nil
}

// mutate implements : pick a random session, day, and
// slot (respecting preferred_session and the lab-start bound), reject
// without evaluation if it would violate I2/I3 against the busy maps held
// by o.Index. Clashes with the assignment's own other sessions are not
// checked here; RunGA, RunGAParallel and Elitism reject those through
// Verify before evaluating fitness. Returns nil when no session exists or
// the move is rejected pre-evaluation.
func (o *Optimizer) mutate(assignment Assignment, rng *RNG) *Assignment {
	if len(assignment) == 0 {
		return nil
	}
	ids := make([]SessionID, 0, len(assignment))
	for id := range assignment {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	target := Pick(rng, ids)

	var session Session
	found := false
	for _, s := range o.Sessions {
		if s.ID == target {
			session, found = s, true
			break
		}
	}
	if !found {
		return nil
	}

	day := Pick(rng, Days)
	starts := sessionStarts(session)
	if len(starts) == 0 {
		return nil
	}
	start := Pick(rng, starts)
	if session.Kind == KindLab && start > MaxSlot-1 {
		return nil
	}

	current := assignment[target]
	slots := session.SlotSpan(start)
	for _, slot := range slots {
		if day == current.Day && slot == current.Slot {
			continue
		}
		if o.Index.IsFacultyBusy(current.FacultyName, day, slot) || o.Index.IsRoomBusy(current.Room, day, slot) {
			return nil
		}
	}

	next := assignment.Clone()
	next[target] = Placement{Day: day, Slot: start, FacultyName: current.FacultyName, Room: current.Room}
	return &next
}

func sessionStarts(session Session) []int {
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

// Elitism retains the top 30% of a scored population and fills the
// remainder by single-session swap mutation drawn from the top 50%, the
// seed-population-based variant's elitism rule.
func Elitism(population []Candidate, rng *RNG, sessions []Session, idx *ResourceIndex, mode Mode) []Candidate {
	if len(population) == 0 {
		return population
	}
	sort.Slice(population, func(i, j int) bool { return population[i].Fitness > population[j].Fitness })

	eliteCount := (len(population)*3 + 9) / 10
	if eliteCount < 1 {
		eliteCount = 1
	}
	topHalf := (len(population) + 1) / 2
	if topHalf < 1 {
		topHalf = 1
	}

	next := make([]Candidate, 0, len(population))
	next = append(next, population[:eliteCount]...)

	opt := &Optimizer{Sessions: sessions, Index: idx, Config: Config{Mode: mode}}
	for len(next) < len(population) {
		parent := population[rng.Intn(topHalf)]
		mutated := opt.mutate(parent.Assignment, rng)
		if mutated == nil {
			next = append(next, parent)
			continue
		}
		if violations := Verify(*mutated, sessions, idx, mode); len(violations) > 0 {
			next = append(next, parent)
			continue
		}
		next = append(next, Candidate{Assignment: *mutated, Fitness: Fitness(*mutated, sessions)})
	}
	return next
}
