package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

func TestExpandCountsAndOrder(t *testing.T) {
	store := newMemStore()
	store.addCourse("c1", "CS101", 3, models.PreferredSessionFN)
	store.addCourse("c2", "CS102", 2, models.PreferredSessionAny)
	store.addLab("l1", "CS101L")
	store.addFaculty("Dr. A", []string{"c1", "c2"}, []string{"l1"})
	store.addBatch("b1", []string{"c1", "c2"}, []string{"l1"})

	result := Expand(store)
	require.Len(t, result.Sessions, 3+2+1)
	assert.Empty(t, result.Warnings)

	// Theory sessions for c1 precede c2, which precede the lab: per batch,
	// per course in listed order, then labs.
	assert.Equal(t, "CS101", result.Sessions[0].SubjectCode)
	assert.Equal(t, "CS101", result.Sessions[2].SubjectCode)
	assert.Equal(t, "CS102", result.Sessions[3].SubjectCode)
	assert.Equal(t, KindLab, result.Sessions[5].Kind)
	assert.Equal(t, 2, result.Sessions[5].Duration)
}

func TestExpandSentinelStaffWhenUnqualified(t *testing.T) {
	store := newMemStore()
	store.addCourse("c1", "CS101", 1, models.PreferredSessionAny)
	store.addBatch("b1", []string{"c1"}, nil)
	// No faculty at all.

	result := Expand(store)
	require.Len(t, result.Sessions, 1)
	assert.True(t, result.Sessions[0].Flagged)
	assert.Equal(t, []string{StaffSentinel}, result.Sessions[0].QualifiedFaculty)
	assert.NotEmpty(t, result.Warnings)
}

func TestExpandDefaultsMalformedCredits(t *testing.T) {
	store := newMemStore()
	store.addCourse("c1", "CS101", 0, models.PreferredSessionAny)
	store.addFaculty("Dr. A", []string{"c1"}, nil)
	store.addBatch("b1", []string{"c1"}, nil)

	result := Expand(store)
	require.Len(t, result.Sessions, 3) // credits default 3, 
	assert.NotEmpty(t, result.Warnings)
}

func TestSessionTotalMatchesSpecFormula(t *testing.T) {
	store := newMemStore()
	store.addCourse("c1", "CS101", 4, models.PreferredSessionAny)
	store.addLab("l1", "L1")
	store.addLab("l2", "L2")
	store.addFaculty("Dr. A", []string{"c1"}, []string{"l1", "l2"})
	store.addBatch("b1", []string{"c1"}, []string{"l1", "l2"})
	store.addBatch("b2", []string{"c1"}, nil)

	result := Expand(store)
	// Σ_batch (Σ_c credits(c) + |labs|) = (4+2) + (4+0) = 10
	assert.Len(t, result.Sessions, 10)
}
