package scheduler

import (
	"sort"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// Fitness weights, .
const (
	weightPreferredViolation = -20
	weightEmptyBatchDay      = -15
	weightGapSlot            = -5
	weightOverloadSlot       = -10
	weightMeanDeviationSlot  = -2
	weightLateTheory         = -2
	weightExtraLab           = -20

	overloadThreshold = 5
	lateTheorySlot    = 4
)

// Fitness is a pure function scoring a full assignment against the
// soft-constraint objective. Higher is better; no floor.
func Fitness(assignment Assignment, sessions []Session) int {
	byID := make(map[SessionID]Session, len(sessions))
	for _, s := range sessions {
		byID[s.ID] = s
	}

	type batchDay struct {
		batch string
		day   Day
	}
	slotsByBatchDay := make(map[batchDay][]int)
	labsByBatchDay := make(map[batchDay]int)
	batches := make(map[string]bool)
	score := 0

	for id, placement := range assignment {
		session, ok := byID[id]
		if !ok {
			continue
		}
		batches[session.BatchID] = true

		if session.Kind == KindTheory {
			if violatesPreferredWindow(session.PreferredSession, placement.Slot) {
				score += weightPreferredViolation
			}
			if placement.Slot > lateTheorySlot {
				score += weightLateTheory
			}
		}

		key := batchDay{batch: session.BatchID, day: placement.Day}
		for _, slot := range session.SlotSpan(placement.Slot) {
			slotsByBatchDay[key] = append(slotsByBatchDay[key], slot)
		}
		if session.Kind == KindLab {
			labsByBatchDay[key]++
		}
	}

	for batch := range batches {
		dayCounts := make(map[Day]int)
		for _, day := range Days {
			key := batchDay{batch: batch, day: day}
			slots := slotsByBatchDay[key]
			if len(slots) == 0 {
				score += weightEmptyBatchDay
				continue
			}
			sorted := append([]int(nil), slots...)
			sort.Ints(sorted)
			span := sorted[len(sorted)-1] - sorted[0] + 1
			gap := span - len(sorted)
			score += gap * weightGapSlot

			if len(sorted) > overloadThreshold {
				score += (len(sorted) - overloadThreshold) * weightOverloadSlot
			}

			dayCounts[day] = len(sorted)

			if extra := labsByBatchDay[key] - 1; extra > 0 {
				score += extra * weightExtraLab
			}
		}

		score += meanDeviationPenalty(dayCounts)
	}

	return score
}

func violatesPreferredWindow(pref models.PreferredSession, slot int) bool {
	switch pref {
	case models.PreferredSessionFN:
		return !containsInt(FNSlots, slot)
	case models.PreferredSessionAN:
		return !containsInt(ANSlots, slot)
	default:
		return false
	}
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func meanDeviationPenalty(dayCounts map[Day]int) int {
	if len(dayCounts) == 0 {
		return 0
	}
	total := 0
	for _, c := range dayCounts {
		total += c
	}
	mean := float64(total) / float64(len(Days))

	penalty := 0
	for _, day := range Days {
		count := dayCounts[day]
		dev := float64(count) - mean
		if dev < 0 {
			dev = -dev
		}
		penalty += int(dev) * weightMeanDeviationSlot
	}
	return penalty
}
