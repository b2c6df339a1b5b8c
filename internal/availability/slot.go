package availability

import (
	"fmt"
	"time"
)

const (
	DayLabelLayout  = "2006-01-02"
	HourLabelLayout = "2006-01-02T15:04"
)

// Slot is one discrete candidate unit of schedulable time.
// Slots of a request are ordered chronologically and Index is the position
// in that sequence.
type Slot struct {
	Index int
	Start time.Time
	End   time.Time
	Label string
}

// Overlaps reports whether [start, end) intersects the slot.
func (s Slot) Overlaps(start, end time.Time) bool {
	return start.Before(s.End) && end.After(s.Start)
}

// TimeOfDay is a daily window given as offsets from local midnight.
type TimeOfDay struct {
	From time.Duration
	To   time.Duration
}

// ParseTimeOfDay parses a window such as "18:00"-"21:00". "24:00" is accepted as an end.
func ParseTimeOfDay(from, to string) (*TimeOfDay, error) {
	f, err := parseClock(from)
	if err != nil {
		return nil, err
	}
	t, err := parseClock(to)
	if err != nil {
		return nil, err
	}
	w := &TimeOfDay{From: f, To: t}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

func parseClock(s string) (time.Duration, error) {
	if s == "24:00" {
		return 24 * time.Hour, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad clock time %q", ErrInvalidWindow, s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Validate checks that the window is non-empty and inside one day.
func (w TimeOfDay) Validate() error {
	if w.From < 0 || w.To > 24*time.Hour || w.From >= w.To {
		return fmt.Errorf("%w: %s-%s", ErrInvalidWindow, w.From, w.To)
	}
	return nil
}

// On returns the window's bounds on the calendar day of t, in t's location.
func (w TimeOfDay) On(t time.Time) (time.Time, time.Time) {
	return clockOn(t, w.From), clockOn(t, w.To)
}

// Contains reports whether the slot lies inside the window on the slot's own day.
func (w TimeOfDay) Contains(s Slot) bool {
	from, to := w.On(s.Start)
	return !s.Start.Before(from) && !s.End.After(to)
}

// clockOn builds the wall-clock time d after midnight on t's day.
func clockOn(t time.Time, d time.Duration) time.Time {
	y, m, day := t.Date()
	return wallClock(y, m, day, int(d/time.Hour), int(d%time.Hour/time.Minute), t.Location())
}

// wallClock returns the instant at which loc's clocks read h:min on the civil
// date y-m-d. Out-of-range fields normalize as in time.Date. A reading that a
// DST jump skips resolves to the end of the gap.
func wallClock(y int, m time.Month, d, h, minute int, loc *time.Location) time.Time {
	t := time.Date(y, m, d, h, minute, 0, 0, loc)
	want := time.Date(y, m, d, h, minute, 0, 0, time.UTC)
	got := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	switch {
	case got.Before(want):
		_, end := t.ZoneBounds()
		return end
	case got.After(want):
		start, _ := t.ZoneBounds()
		return start
	}
	return t
}

// DayStart returns the first instant of the civil date y-m-d in loc. That is
// midnight unless a DST jump skips it.
func DayStart(y int, m time.Month, d int, loc *time.Location) time.Time {
	return wallClock(y, m, d, 0, 0, loc)
}

// civilDates lists the calendar dates from first to last inclusive, as seen
// in loc, each as midnight UTC.
func civilDates(first, last time.Time, loc *time.Location) []time.Time {
	fy, fm, fd := first.In(loc).Date()
	ly, lm, ld := last.In(loc).Date()
	end := time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC)
	var dates []time.Time
	for d := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC); !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// DaySlots returns one slot per calendar day from first to last inclusive,
// in loc. With a window each slot covers only the window on that day.
func DaySlots(first, last time.Time, loc *time.Location, window *TimeOfDay) []Slot {
	var slots []Slot
	for _, date := range civilDates(first, last, loc) {
		y, m, d := date.Date()
		start, end := DayStart(y, m, d, loc), DayStart(y, m, d+1, loc)
		if window != nil {
			start, end = window.On(start)
		}
		if !end.After(start) {
			continue
		}
		slots = append(slots, Slot{
			Index: len(slots),
			Start: start,
			End:   end,
			Label: date.Format(DayLabelLayout),
		})
	}
	return slots
}

// HourSlots returns step-long slots inside window on every day from first to
// last inclusive, in loc. Slots whose wall-clock hour a DST jump skips are
// left out.
func HourSlots(first, last time.Time, loc *time.Location, window TimeOfDay, step time.Duration) []Slot {
	if step <= 0 {
		step = time.Hour
	}
	var slots []Slot
	for _, date := range civilDates(first, last, loc) {
		y, m, d := date.Date()
		dayStart := DayStart(y, m, d, loc)
		for off := window.From; off+step <= window.To; off += step {
			start, end := clockOn(dayStart, off), clockOn(dayStart, off+step)
			if !end.After(start) {
				continue
			}
			slots = append(slots, Slot{
				Index: len(slots),
				Start: start,
				End:   end,
				Label: date.Add(off).Format(HourLabelLayout),
			})
		}
	}
	return slots
}
