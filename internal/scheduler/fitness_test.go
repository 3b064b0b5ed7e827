package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

func TestFitnessPenalizesPreferredViolation(t *testing.T) {
	session := Session{ID: 0, BatchID: "b1", Kind: KindTheory, Duration: 1, PreferredSession: models.PreferredSessionFN}
	inWindow := Assignment{0: {Day: Mon, Slot: 1, FacultyName: "A", Room: "R1"}}
	outWindow := Assignment{0: {Day: Mon, Slot: 5, FacultyName: "A", Room: "R1"}}

	fIn := Fitness(inWindow, []Session{session})
	fOut := Fitness(outWindow, []Session{session})
	assert.Greater(t, fIn, fOut)
}

func TestFitnessPenalizesEmptyBatchDay(t *testing.T) {
	session := Session{ID: 0, BatchID: "b1", Kind: KindTheory, Duration: 1, PreferredSession: models.PreferredSessionAny}
	a := Assignment{0: {Day: Mon, Slot: 1, FacultyName: "A", Room: "R1"}}
	score := Fitness(a, []Session{session})
	// 4 empty days (Tue..Fri) at -15 each = -60, no other penalties for
	// a single clean session on Mon.
	assert.Equal(t, -60, score)
}

func TestFitnessPenalizesIntraDayGap(t *testing.T) {
	s1 := Session{ID: 0, BatchID: "b1", Kind: KindTheory, Duration: 1, PreferredSession: models.PreferredSessionAny}
	s2 := Session{ID: 1, BatchID: "b1", Kind: KindTheory, Duration: 1, PreferredSession: models.PreferredSessionAny}
	tight := Assignment{
		0: {Day: Mon, Slot: 1, FacultyName: "A", Room: "R1"},
		1: {Day: Mon, Slot: 2, FacultyName: "A", Room: "R1"},
	}
	gappy := Assignment{
		0: {Day: Mon, Slot: 1, FacultyName: "A", Room: "R1"},
		1: {Day: Mon, Slot: 4, FacultyName: "A", Room: "R1"},
	}
	fTight := Fitness(tight, []Session{s1, s2})
	fGappy := Fitness(gappy, []Session{s1, s2})
	assert.Greater(t, fTight, fGappy)
}

func TestFitnessPenalizesExtraLab(t *testing.T) {
	l1 := Session{ID: 0, BatchID: "b1", Kind: KindLab, Duration: 2}
	l2 := Session{ID: 1, BatchID: "b1", Kind: KindLab, Duration: 2}
	oneLab := Assignment{0: {Day: Mon, Slot: 1, FacultyName: "A", Room: "L1"}}
	twoLabs := Assignment{
		0: {Day: Mon, Slot: 1, FacultyName: "A", Room: "L1"},
		1: {Day: Mon, Slot: 3, FacultyName: "A", Room: "L2"},
	}
	fOne := Fitness(oneLab, []Session{l1})
	fTwo := Fitness(twoLabs, []Session{l1, l2})
	assert.Less(t, fTwo, fOne)
}
