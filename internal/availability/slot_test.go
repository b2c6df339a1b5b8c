package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaySlots(t *testing.T) {
	first := time.Date(2026, time.November, 2, 15, 0, 0, 0, time.UTC)
	last := time.Date(2026, time.November, 4, 0, 0, 0, 0, time.UTC)

	slots := DaySlots(first, last, time.UTC, nil)

	require.Len(t, slots, 3)
	for i, s := range slots {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, 24*time.Hour, s.End.Sub(s.Start))
	}
	assert.Equal(t, "2026-11-02", slots[0].Label)
	assert.Equal(t, "2026-11-04", slots[2].Label)
}

func TestDaySlots_NarrowedToWindow(t *testing.T) {
	loc := tokyo(t)
	first := time.Date(2026, time.November, 2, 0, 0, 0, 0, loc)
	window := &TimeOfDay{From: 18 * time.Hour, To: 21 * time.Hour}

	slots := DaySlots(first, first, loc, window)

	require.Len(t, slots, 1)
	assert.Equal(t, time.Date(2026, time.November, 2, 18, 0, 0, 0, loc), slots[0].Start)
	assert.Equal(t, time.Date(2026, time.November, 2, 21, 0, 0, 0, loc), slots[0].End)
	assert.True(t, window.Contains(slots[0]))
}

func TestDaySlots_EmptyRange(t *testing.T) {
	first := time.Date(2026, time.November, 5, 0, 0, 0, 0, time.UTC)

	assert.Empty(t, DaySlots(first, first.AddDate(0, 0, -1), time.UTC, nil))
}

func TestHourSlots_AcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// Clocks go back on 2026-11-01.
	first := time.Date(2026, time.October, 31, 0, 0, 0, 0, loc)
	last := time.Date(2026, time.November, 1, 0, 0, 0, 0, loc)

	slots := HourSlots(first, last, loc, TimeOfDay{From: 9 * time.Hour, To: 11 * time.Hour}, time.Hour)

	require.Len(t, slots, 4)
	assert.Equal(t, "2026-11-01T09:00", slots[2].Label)
	assert.Equal(t, 9, slots[2].Start.Hour())
	assert.Equal(t, 3, slots[3].Index)
}

// Santiago skips 00:00 on 2026-09-06: clocks jump from 24:00 to 01:00.
func santiago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)
	return loc
}

func TestDaySlots_SkippedMidnight(t *testing.T) {
	loc := santiago(t)
	first := time.Date(2026, time.September, 5, 0, 0, 0, 0, loc)
	last := time.Date(2026, time.September, 8, 12, 0, 0, 0, loc)

	slots := DaySlots(first, last, loc, nil)

	require.Len(t, slots, 4)
	labels := make([]string, 0, len(slots))
	for i, s := range slots {
		labels = append(labels, s.Label)
		assert.Equal(t, i, s.Index)
		assert.Equal(t, s.Label, s.Start.In(loc).Format(DayLabelLayout))
		if i > 0 {
			assert.True(t, slots[i-1].End.Equal(s.Start), "slot %d does not follow slot %d", i, i-1)
		}
	}
	assert.Equal(t, []string{"2026-09-05", "2026-09-06", "2026-09-07", "2026-09-08"}, labels)

	// The short day starts when clocks jump, at 04:00 UTC.
	assert.True(t, slots[1].Start.Equal(time.Date(2026, time.September, 6, 4, 0, 0, 0, time.UTC)))
	assert.Equal(t, 23*time.Hour, slots[1].End.Sub(slots[1].Start))
	assert.Equal(t, 0, slots[2].Start.In(loc).Hour())
}

func TestDaySlots_SkippedMidnightWithWindow(t *testing.T) {
	loc := santiago(t)
	first := time.Date(2026, time.September, 5, 0, 0, 0, 0, loc)
	window := &TimeOfDay{From: 18 * time.Hour, To: 21 * time.Hour}

	slots := DaySlots(first, first.AddDate(0, 0, 2), loc, window)

	require.Len(t, slots, 3)
	assert.Equal(t, "2026-09-06", slots[1].Label)
	assert.Equal(t, time.Date(2026, time.September, 6, 18, 0, 0, 0, loc), slots[1].Start)
	assert.True(t, window.Contains(slots[1]))
}

func TestHourSlots_SkippedMidnight(t *testing.T) {
	loc := santiago(t)
	first := time.Date(2026, time.September, 5, 0, 0, 0, 0, loc)
	last := time.Date(2026, time.September, 8, 0, 0, 0, 0, loc)

	slots := HourSlots(first, last, loc, TimeOfDay{From: 9 * time.Hour, To: 10 * time.Hour}, time.Hour)

	require.Len(t, slots, 4)
	for i, s := range slots {
		assert.Equal(t, time.Date(2026, time.September, 5+i, 9, 0, 0, 0, loc), s.Start)
		assert.Equal(t, s.Start.Format(HourLabelLayout), s.Label)
	}
}

func TestHourSlots_SkippedHourIsLeftOut(t *testing.T) {
	loc := santiago(t)
	day := time.Date(2026, time.September, 6, 12, 0, 0, 0, loc)

	slots := HourSlots(day, day, loc, TimeOfDay{From: 0, To: 3 * time.Hour}, time.Hour)

	require.Len(t, slots, 2)
	assert.Equal(t, "2026-09-06T01:00", slots[0].Label)
	assert.Equal(t, "2026-09-06T02:00", slots[1].Label)
	assert.Equal(t, 0, slots[0].Index)
}

func TestDayStart(t *testing.T) {
	loc := santiago(t)

	assert.True(t, DayStart(2026, time.September, 6, loc).Equal(time.Date(2026, time.September, 6, 4, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2026, time.September, 7, 0, 0, 0, 0, loc), DayStart(2026, time.September, 7, loc))
	assert.Equal(t, time.Date(2026, time.November, 2, 0, 0, 0, 0, time.UTC), DayStart(2026, time.November, 2, time.UTC))
}

func TestParseTimeOfDay(t *testing.T) {
	w, err := ParseTimeOfDay("18:30", "24:00")
	require.NoError(t, err)
	assert.Equal(t, 18*time.Hour+30*time.Minute, w.From)
	assert.Equal(t, 24*time.Hour, w.To)

	_, err = ParseTimeOfDay("21:00", "18:00")
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = ParseTimeOfDay("evening", "21:00")
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestTimeOfDay_Contains(t *testing.T) {
	w := TimeOfDay{From: 9 * time.Hour, To: 17 * time.Hour}
	day := time.Date(2026, time.November, 2, 0, 0, 0, 0, time.UTC)

	assert.True(t, w.Contains(Slot{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)}))
	assert.True(t, w.Contains(Slot{Start: day.Add(16 * time.Hour), End: day.Add(17 * time.Hour)}))
	assert.False(t, w.Contains(Slot{Start: day.Add(8 * time.Hour), End: day.Add(9 * time.Hour)}))
	assert.False(t, w.Contains(Slot{Start: day, End: day.AddDate(0, 0, 1)}))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("")
	require.NoError(t, err)
	assert.Equal(t, RoleRegular, r)

	r, err = ParseRole(" Priority ")
	require.NoError(t, err)
	assert.Equal(t, RolePriority, r)

	_, err = ParseRole("vip")
	assert.Error(t, err)
}
