package resolver

// Bonus is added to the score of every slot that satisfies the hard
// constraints. It exceeds any attendance count, so such a slot always
// outranks one that does not.
func (r Request) Bonus() int {
	return len(r.Priority) + len(r.Regular) + 1
}

// Attendance counts regular participants free at slot i.
func (r Request) Attendance(i int) int {
	n := 0
	for _, id := range r.Regular {
		if r.Matrix.Free(id, i) {
			n++
		}
	}
	return n
}

// PriorityFree counts priority participants free at slot i.
func (r Request) PriorityFree(i int) int {
	n := 0
	for _, id := range r.Priority {
		if r.Matrix.Free(id, i) {
			n++
		}
	}
	return n
}

// Score ranks slot i: its attendance, plus Bonus when the hard constraints hold.
func (r Request) Score(i int) int {
	score := r.Attendance(i)
	if r.SatisfiesHardConstraints(i) {
		score += r.Bonus()
	}
	return score
}
