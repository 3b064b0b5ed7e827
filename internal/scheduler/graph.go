package scheduler

import "sort"

// ConflictGraph is the session-vs-session conflict graph of .
// Nodes are session indices into the Sessions slice; edges are stored as an
// adjacency set per node.
type ConflictGraph struct {
	Sessions  []Session
	Adjacency map[SessionID]map[SessionID]bool
}

// BuildConflictGraph constructs the graph: an edge (a, b) exists iff the
// sessions share a batch, or both have a single-member qualified-faculty
// pool naming the same faculty.
func BuildConflictGraph(sessions []Session) *ConflictGraph {
	g := &ConflictGraph{
		Sessions:  sessions,
		Adjacency: make(map[SessionID]map[SessionID]bool, len(sessions)),
	}
	for _, s := range sessions {
		g.Adjacency[s.ID] = make(map[SessionID]bool)
	}

	byBatch := make(map[string][]SessionID)
	for _, s := range sessions {
		byBatch[s.BatchID] = append(byBatch[s.BatchID], s.ID)
	}
	for _, ids := range byBatch {
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				g.addEdge(ids[i], ids[j])
			}
		}
	}

	for i := 0; i < len(sessions); i++ {
		a := sessions[i]
		if len(a.QualifiedFaculty) != 1 {
			continue
		}
		for j := i + 1; j < len(sessions); j++ {
			b := sessions[j]
			if a.BatchID == b.BatchID {
				continue // already linked above
			}
			if len(b.QualifiedFaculty) == 1 && a.QualifiedFaculty[0] == b.QualifiedFaculty[0] {
				g.addEdge(a.ID, b.ID)
			}
		}
	}

	return g
}

func (g *ConflictGraph) addEdge(a, b SessionID) {
	g.Adjacency[a][b] = true
	g.Adjacency[b][a] = true
}

// Degree returns a node's original degree, used as the DSATUR tiebreak.
func (g *ConflictGraph) Degree(id SessionID) int {
	return len(g.Adjacency[id])
}

// DSATURColor runs saturation-degree-based greedy coloring.
// Colors are an ordering heuristic, never a time slot. Ties break by
// original degree, then by SessionID (assignment order), for a fully
// reproducible coloring.
func DSATURColor(g *ConflictGraph) map[SessionID]int {
	colors := make(map[SessionID]int, len(g.Sessions))
	saturation := make(map[SessionID]map[int]bool, len(g.Sessions))
	uncolored := make(map[SessionID]bool, len(g.Sessions))
	for _, s := range g.Sessions {
		saturation[s.ID] = make(map[int]bool)
		uncolored[s.ID] = true
	}

	for len(uncolored) > 0 {
		next := pickMaxSaturation(g, uncolored, saturation)
		color := smallestAvailableColor(g, next, colors)
		colors[next] = color
		delete(uncolored, next)
		for neighbor := range g.Adjacency[next] {
			if uncolored[neighbor] {
				saturation[neighbor][color] = true
			}
		}
	}
	return colors
}

func pickMaxSaturation(g *ConflictGraph, uncolored map[SessionID]bool, saturation map[SessionID]map[int]bool) SessionID {
	var candidates []SessionID
	for id := range uncolored {
		candidates = append(candidates, id)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	best := candidates[0]
	bestSat := len(saturation[best])
	bestDeg := g.Degree(best)
	for _, id := range candidates[1:] {
		sat := len(saturation[id])
		deg := g.Degree(id)
		if sat > bestSat || (sat == bestSat && deg > bestDeg) {
			best, bestSat, bestDeg = id, sat, deg
		}
	}
	return best
}

func smallestAvailableColor(g *ConflictGraph, id SessionID, colors map[SessionID]int) int {
	used := make(map[int]bool)
	for neighbor := range g.Adjacency[id] {
		if c, ok := colors[neighbor]; ok {
			used[c] = true
		}
	}
	for c := 0; ; c++ {
		if !used[c] {
			return c
		}
	}
}

// AssignmentOrder sorts sessions by the key mandates: Lab before
// Theory, then color ascending, then duration descending (a no-op
// tiebreaker since duration is implied by kind, kept for fidelity to the
// documented key).
func AssignmentOrder(sessions []Session, colors map[SessionID]int) []Session {
	ordered := make([]Session, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Kind != b.Kind {
			return a.Kind == KindLab
		}
		if colors[a.ID] != colors[b.ID] {
			return colors[a.ID] < colors[b.ID]
		}
		if a.Duration != b.Duration {
			return a.Duration > b.Duration
		}
		return a.ID < b.ID
	})
	return ordered
}
