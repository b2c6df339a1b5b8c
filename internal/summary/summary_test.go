package summary

import (
	"bytes"
	"errors"
	"kanji/internal/availability"
	"kanji/internal/collector"
	"kanji/internal/resolver"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() (*collector.Report, resolver.Result) {
	day := time.Date(2026, time.November, 2, 0, 0, 0, 0, time.UTC)
	req := resolver.Request{
		Slots: availability.DaySlots(day, day.AddDate(0, 0, 1), time.UTC, nil),
		Matrix: availability.Matrix{
			"a": {availability.Free, availability.Busy},
			"b": {availability.Free, availability.Free},
		},
		Priority: []string{"lead"},
		Regular:  []string{"a", "b"},
	}
	report := &collector.Report{
		ID:       "res-1",
		Request:  req,
		Pending:  []string{"c"},
		Failures: []collector.Failure{{Participant: "lead", Source: "google", Err: errors.New("token expired")}},
	}
	return report, resolver.Resolve(req)
}

func TestNew(t *testing.T) {
	report, result := fixture()

	s := New("Standup", report, result)

	assert.Equal(t, "res-1", s.ResolutionID)
	require.NotNil(t, s.Slot)
	assert.Equal(t, "2026-11-02", s.Slot.Label)
	assert.Equal(t, 2, s.Attendance)
	assert.Equal(t, 1, s.PriorityTotal)
	assert.Equal(t, 2, s.RegularTotal)
	assert.False(t, s.SatisfiesHardConstraints)
	assert.Equal(t, resolver.FallbackCaveat, s.Caveat)
	assert.Equal(t, []Failure{{Participant: "lead", Source: "google", Error: "token expired"}}, s.Failures)
	assert.Len(t, s.Trace, 2)
}

func TestRender(t *testing.T) {
	report, result := fixture()
	var buf bytes.Buffer

	New("Standup", report, result).Render(&buf)

	out := buf.String()
	assert.Contains(t, out, "Best slot:  2026-11-02")
	assert.Contains(t, out, "Attendance: 2/2 regular, 0/1 priority")
	assert.Contains(t, out, resolver.FallbackCaveat)
	assert.Contains(t, out, "Pending:    c")
	assert.Contains(t, out, "lead (google): token expired")
	assert.Contains(t, out, "selected")
}

func TestRender_NoSlot(t *testing.T) {
	report := &collector.Report{ID: "res-2"}
	var buf bytes.Buffer

	New("", report, resolver.Resolve(report.Request)).Render(&buf)

	assert.Equal(t, "Result:     no slot found\n", buf.String())
}
