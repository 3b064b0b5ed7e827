package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

func sess(id SessionID, batch string, faculty ...string) Session {
	return Session{ID: id, BatchID: batch, Kind: KindTheory, Duration: 1, QualifiedFaculty: faculty, PreferredSession: models.PreferredSessionAny}
}

func TestBuildConflictGraphSameBatchEdges(t *testing.T) {
	sessions := []Session{
		sess(0, "b1", "A"),
		sess(1, "b1", "B"),
		sess(2, "b2", "C"),
	}
	g := BuildConflictGraph(sessions)
	assert.True(t, g.Adjacency[0][1])
	assert.True(t, g.Adjacency[1][0])
	assert.False(t, g.Adjacency[0][2])
}

func TestBuildConflictGraphDedicatedFacultyEdge(t *testing.T) {
	sessions := []Session{
		sess(0, "b1", "A"),
		sess(1, "b2", "A"), // different batch, same single-qualified faculty
		sess(2, "b3", "A", "B"), // pool size 2: rule doesn't apply
	}
	g := BuildConflictGraph(sessions)
	assert.True(t, g.Adjacency[0][1])
	assert.False(t, g.Adjacency[0][2])
}

func TestDSATURColorProducesProperColoring(t *testing.T) {
	sessions := []Session{
		sess(0, "b1", "A"),
		sess(1, "b1", "B"),
		sess(2, "b1", "C"),
		sess(3, "b2", "D"),
	}
	g := BuildConflictGraph(sessions)
	colors := DSATURColor(g)
	require.Len(t, colors, 4)

	for id, neighbors := range g.Adjacency {
		for n := range neighbors {
			assert.NotEqual(t, colors[id], colors[n], "adjacent nodes %d and %d share a color", id, n)
		}
	}
}

func TestAssignmentOrderLabsFirst(t *testing.T) {
	theory := sess(0, "b1", "A")
	lab := Session{ID: 1, BatchID: "b1", Kind: KindLab, Duration: 2, QualifiedFaculty: []string{"A"}}
	colors := map[SessionID]int{0: 0, 1: 0}
	ordered := AssignmentOrder([]Session{theory, lab}, colors)
	assert.Equal(t, KindLab, ordered[0].Kind)
}

func TestDSATURDeterministicTiebreak(t *testing.T) {
	sessions := []Session{sess(0, "b1", "A"), sess(1, "b2", "B")}
	g := BuildConflictGraph(sessions)
	c1 := DSATURColor(g)
	c2 := DSATURColor(g)
	assert.Equal(t, c1, c2)
}
