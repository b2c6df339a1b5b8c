package meeting

import (
	"kanji/internal/availability"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dinnerPlan = `
title: Team dinner
timezone: Asia/Tokyo
from: 2026-11-02
to: 2026-11-04
time_of_day: { from: "18:00", to: "21:00" }
participants:
  - id: alice
    role: priority
    source: { type: google, account: work }
  - id: bob
    source: { type: caldav, calendar: Home }
  - id: carol
    source: { type: manual }
    free: ["2026-11-03", "2026-11-04"]
  - id: dave
    busy:
      - { start: "2026-11-02T18:30", end: "2026-11-02T19:30" }
      - { start: "2026-11-04" }
  - id: erin
`

func TestParse_DinnerPlan(t *testing.T) {
	p, err := Parse([]byte(dinnerPlan), time.UTC)
	require.NoError(t, err)

	assert.Equal(t, "Team dinner", p.Title)
	assert.Equal(t, "Asia/Tokyo", p.Location().String())
	assert.Equal(t, GranularityDay, p.Granularity)
	assert.Equal(t, []string{"alice"}, p.Priority())
	assert.Equal(t, []string{"bob", "carol", "dave", "erin"}, p.Regular())

	require.NotNil(t, p.Window())
	assert.Equal(t, 18*time.Hour, p.Window().From)

	slots := p.Slots()
	require.Len(t, slots, 3)
	assert.Equal(t, "2026-11-02", slots[0].Label)
	assert.Equal(t, 18, slots[0].Start.Hour())
	assert.Equal(t, 21, slots[0].End.Hour())

	google := p.Participants[0].Source
	assert.Equal(t, SourceGoogle, google.Type)
	assert.Equal(t, "primary", google.Calendar)
	assert.Equal(t, SourceManual, p.Participants[4].Source.Type)
}

func TestParticipant_Manual(t *testing.T) {
	p, err := Parse([]byte(dinnerPlan), time.UTC)
	require.NoError(t, err)
	slots := p.Slots()

	raw, ok := p.Participants[2].Manual(slots)
	require.True(t, ok)
	assert.Equal(t, []availability.Status{availability.Busy, availability.Free, availability.Free}, raw.Flags)

	raw, ok = p.Participants[3].Manual(slots)
	require.True(t, ok)
	assert.Nil(t, raw.Flags)
	require.Len(t, raw.Busy, 2)
	assert.False(t, raw.Busy[0].AllDay)
	assert.True(t, raw.Busy[1].AllDay)

	m, err := availability.Build(slots, map[string]availability.Raw{"dave": raw})
	require.NoError(t, err)
	assert.Equal(t, []availability.Status{availability.Busy, availability.Free, availability.Busy}, m["dave"])

	_, ok = p.Participants[4].Manual(slots)
	assert.False(t, ok, "erin has not answered")
}

func TestParse_HourGranularity(t *testing.T) {
	p, err := Parse([]byte(`
from: 2026-11-02
to: 2026-11-03
granularity: hour
participants: [{ id: a }]
`), time.UTC)
	require.NoError(t, err)

	slots := p.Slots()
	require.Len(t, slots, 18)
	assert.Equal(t, "2026-11-02T09:00", slots[0].Label)
	assert.Equal(t, "2026-11-03T17:00", slots[17].Label)
	assert.Nil(t, p.Window())
}

func TestParse_SkippedMidnightKeepsEveryDay(t *testing.T) {
	p, err := Parse([]byte(`
timezone: America/Santiago
from: 2026-09-06
to: 2026-09-08
participants:
  - id: carol
    free: ["2026-09-06", "2026-09-08"]
  - id: dave
    busy: [{ start: "2026-09-06" }]
`), time.UTC)
	require.NoError(t, err)

	slots := p.Slots()
	require.Len(t, slots, 3)
	assert.Equal(t, "2026-09-06", slots[0].Label)
	assert.Equal(t, "2026-09-08", slots[2].Label)
	first, _ := p.Range()
	assert.Equal(t, 6, first.In(p.Location()).Day())

	carol, ok := p.Participants[0].Manual(slots)
	require.True(t, ok)
	assert.Equal(t, []availability.Status{availability.Free, availability.Busy, availability.Free}, carol.Flags)

	dave, ok := p.Participants[1].Manual(slots)
	require.True(t, ok)
	m, err := availability.Build(slots, map[string]availability.Raw{"dave": dave})
	require.NoError(t, err)
	assert.Equal(t, []availability.Status{availability.Busy, availability.Free, availability.Free}, m["dave"])
}

func TestParse_JSON(t *testing.T) {
	p, err := Parse([]byte(`{"from":"2026-11-02","to":"2026-11-02","participants":[{"id":"a","role":"priority","free":["2026-11-02"]}]}`), time.UTC)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, p.Priority())
	assert.Len(t, p.Slots(), 1)
}

func TestParse_DefaultLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	p, err := Parse([]byte("from: 2026-11-02\nto: 2026-11-02\n"), loc)
	require.NoError(t, err)

	assert.Equal(t, loc, p.Location())
	first, last := p.Range()
	assert.Equal(t, first, last)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "from: [unterminated"},
		{"missing dates", "participants: [{id: a}]"},
		{"reversed range", "from: 2026-11-05\nto: 2026-11-02"},
		{"too long", "from: 2026-01-01\nto: 2028-01-01"},
		{"bad timezone", "timezone: Mars/Olympus\nfrom: 2026-11-02\nto: 2026-11-02"},
		{"bad granularity", "from: 2026-11-02\nto: 2026-11-02\ngranularity: week"},
		{"bad window", "from: 2026-11-02\nto: 2026-11-02\ntime_of_day: {from: '20:00', to: '08:00'}"},
		{"empty id", "from: 2026-11-02\nto: 2026-11-02\nparticipants: [{id: ' '}]"},
		{"duplicate id", "from: 2026-11-02\nto: 2026-11-02\nparticipants: [{id: a}, {id: a}]"},
		{"unknown role", "from: 2026-11-02\nto: 2026-11-02\nparticipants: [{id: a, role: boss}]"},
		{"unknown source", "from: 2026-11-02\nto: 2026-11-02\nparticipants: [{id: a, source: {type: outlook}}]"},
		{"google without account", "from: 2026-11-02\nto: 2026-11-02\nparticipants: [{id: a, source: {type: google}}]"},
		{"caldav without calendar", "from: 2026-11-02\nto: 2026-11-02\nparticipants: [{id: a, source: {type: caldav}}]"},
		{"free on calendar source", "from: 2026-11-02\nto: 2026-11-02\nparticipants: [{id: a, source: {type: caldav, calendar: x}, free: ['2026-11-02']}]"},
		{"free outside range", "from: 2026-11-02\nto: 2026-11-02\nparticipants: [{id: a, free: ['2026-12-24']}]"},
		{"unparseable busy", "from: 2026-11-02\nto: 2026-11-02\nparticipants: [{id: a, busy: [{start: soon}]}]"},
		{"empty busy", "from: 2026-11-02\nto: 2026-11-02\nparticipants: [{id: a, busy: [{start: '2026-11-02T10:00'}]}]"},
		{"mixed busy", "from: 2026-11-02\nto: 2026-11-02\nparticipants: [{id: a, busy: [{start: '2026-11-02', end: '2026-11-02T10:00'}]}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), time.UTC)
			assert.ErrorIs(t, err, ErrInvalidPlan)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(dinnerPlan), 0o644))

	p, err := Load(path, nil)
	require.NoError(t, err)
	assert.Len(t, p.Participants, 5)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
