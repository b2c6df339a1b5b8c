package availability

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

var (
	ErrLengthMismatch = errors.New("availability length does not match slot count")
	ErrInvalidWindow  = errors.New("invalid time-of-day window")
)

// Status is a participant's state at one slot. The zero value is Busy.
type Status uint8

const (
	Busy Status = iota
	Free
)

func (s Status) String() string {
	if s == Free {
		return "free"
	}
	return "busy"
}

// Matrix maps participant IDs to one Status per candidate slot.
// Missing participants and out-of-range lookups read as busy.
type Matrix map[string][]Status

// Free reports whether the participant is free at the slot index.
func (m Matrix) Free(id string, slot int) bool {
	row, ok := m[id]
	if !ok || slot < 0 || slot >= len(row) {
		return false
	}
	return row[slot] == Free
}

// Validate rejects rows whose length differs from slotCount.
func (m Matrix) Validate(slotCount int) error {
	for _, id := range slices.Sorted(maps.Keys(m)) {
		if len(m[id]) != slotCount {
			return fmt.Errorf("%w: participant %q has %d entries, want %d", ErrLengthMismatch, id, len(m[id]), slotCount)
		}
	}
	return nil
}

// Interval is a raw busy range. All-day intervals carry calendar dates:
// Start is the first day and End the day after the last one.
type Interval struct {
	Start  time.Time
	End    time.Time
	AllDay bool
}

// Covers reports whether the interval makes the participant busy at the slot.
func (iv Interval) Covers(s Slot) bool {
	if !iv.AllDay {
		return s.Overlaps(iv.Start, iv.End)
	}
	first := civilDay(iv.Start)
	end := civilDay(iv.End)
	if end <= first {
		end = civilDay(iv.Start.AddDate(0, 0, 1))
	}
	day := civilDay(s.Start)
	return day >= first && day < end
}

// civilDay orders calendar dates without regard to time zone.
func civilDay(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// Raw is the unnormalized availability of one participant.
type Raw struct {
	Busy  []Interval
	Flags []Status // explicit per-slot flags; nil when only intervals are known
}

// Build normalizes raw per-participant data into a Matrix aligned to slots.
// A slot is busy when any busy interval covers it or its explicit flag is
// busy. Participants absent from raw are left out and therefore busy
// everywhere.
func Build(slots []Slot, raw map[string]Raw) (Matrix, error) {
	m := make(Matrix, len(raw))
	for _, id := range slices.Sorted(maps.Keys(raw)) {
		r := raw[id]
		if r.Flags != nil && len(r.Flags) != len(slots) {
			return nil, fmt.Errorf("%w: participant %q has %d flags, want %d", ErrLengthMismatch, id, len(r.Flags), len(slots))
		}
		row := make([]Status, len(slots))
		for i, s := range slots {
			row[i] = Free
			if r.Flags != nil {
				row[i] = r.Flags[i]
			}
			if row[i] == Free && busyAt(r.Busy, s) {
				row[i] = Busy
			}
		}
		m[id] = row
	}
	return m, nil
}

func busyAt(busy []Interval, s Slot) bool {
	for _, iv := range busy {
		if iv.Covers(s) {
			return true
		}
	}
	return false
}
