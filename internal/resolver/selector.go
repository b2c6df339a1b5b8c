package resolver

import "kanji/internal/availability"

// SelectBest returns the slot with the highest score. Ties go to the slot
// that comes first in the sequence. It returns false for an empty sequence.
// scores must be aligned with slots.
func SelectBest(slots []availability.Slot, scores []int) (availability.Slot, bool) {
	best := bestIndex(scores[:min(len(slots), len(scores))])
	if best < 0 {
		return availability.Slot{}, false
	}
	return slots[best], true
}

// bestIndex is the position of the first maximum, or -1 when scores is empty.
func bestIndex(scores []int) int {
	best := -1
	for i, s := range scores {
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	return best
}
