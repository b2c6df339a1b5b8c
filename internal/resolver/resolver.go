package resolver

import "kanji/internal/availability"

// SlotScore is the diagnostic trace entry for one candidate slot.
type SlotScore struct {
	Slot         availability.Slot
	Attendance   int
	PriorityFree int
	Satisfies    bool
	Score        int
	Excluded     bool // outside the requested time of day
}

// Result is the outcome of Resolve. Found is false when no slot could be
// chosen; Slot is then the zero value.
type Result struct {
	Slot                     availability.Slot
	Found                    bool
	Attendance               int
	PriorityFree             int
	SatisfiesHardConstraints bool
	Trace                    []SlotScore
}

// FallbackCaveat explains a winner that misses a priority participant.
const FallbackCaveat = "no slot fits every priority participant; showing the best-attendance fallback"

// Fallback reports whether the winner misses at least one priority
// participant, i.e. it was chosen on attendance alone.
func (r Result) Fallback() bool {
	return r.Found && !r.SatisfiesHardConstraints
}

// Caveat returns FallbackCaveat for a fallback winner and "" otherwise.
func (r Result) Caveat() string {
	if r.Fallback() {
		return FallbackCaveat
	}
	return ""
}

// Resolve scores every candidate slot and selects the winner.
func Resolve(req Request) Result {
	res := Result{Trace: make([]SlotScore, 0, len(req.Slots))}

	// Candidates carry their trace position as Index; the winner's own
	// Slot is taken back from the trace.
	var (
		candidates []availability.Slot
		scores     []int
	)
	for i, slot := range req.Slots {
		entry := SlotScore{
			Slot:         slot,
			Attendance:   req.Attendance(i),
			PriorityFree: req.PriorityFree(i),
			Satisfies:    req.SatisfiesHardConstraints(i),
			Score:        req.Score(i),
		}
		if req.TimeOfDay != nil && !req.TimeOfDay.Contains(slot) {
			entry.Excluded = true
		} else {
			c := slot
			c.Index = i
			candidates = append(candidates, c)
			scores = append(scores, entry.Score)
		}
		res.Trace = append(res.Trace, entry)
	}

	best, ok := SelectBest(candidates, scores)
	if !ok {
		return res
	}
	w := res.Trace[best.Index]
	res.Slot = w.Slot
	res.Found = true
	res.Attendance = w.Attendance
	res.PriorityFree = w.PriorityFree
	res.SatisfiesHardConstraints = w.Satisfies
	return res
}
