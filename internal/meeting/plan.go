// Package meeting describes a meeting to resolve: its date range, slot
// granularity and participants with their availability sources.
package meeting

import (
	"errors"
	"fmt"
	"kanji/internal/availability"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPlan wraps every validation failure of a plan.
var ErrInvalidPlan = errors.New("invalid meeting plan")

// maxRangeDays bounds the candidate range so a typo cannot create years of slots.
const maxRangeDays = 366

type Granularity string

const (
	GranularityDay  Granularity = "day"
	GranularityHour Granularity = "hour"
)

type SourceType string

const (
	SourceManual SourceType = "manual"
	SourceGoogle SourceType = "google"
	SourceCalDAV SourceType = "caldav"
)

// Plan is one meeting as written by the organizer.
type Plan struct {
	Title        string        `yaml:"title"`
	Timezone     string        `yaml:"timezone"`
	From         string        `yaml:"from"`
	To           string        `yaml:"to"`
	Granularity  Granularity   `yaml:"granularity"`
	TimeOfDay    *Window       `yaml:"time_of_day"`
	Participants []Participant `yaml:"participants"`

	loc    *time.Location
	window *availability.TimeOfDay
	first  time.Time
	last   time.Time
	slots  []availability.Slot
}

// Window is a daily time range such as 18:00-21:00.
type Window struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Participant is one invitee and where their availability comes from.
type Participant struct {
	ID     string   `yaml:"id"`
	Role   string   `yaml:"role"`
	Source Source   `yaml:"source"`
	Free   []string `yaml:"free"` // manual: slot keys the participant can attend
	Busy   []Busy   `yaml:"busy"` // manual: busy ranges

	role      availability.Role
	freeSlots map[string]struct{}
	busy      []availability.Interval
}

// Source points at a participant's calendar.
type Source struct {
	Type     SourceType `yaml:"type"`
	Account  string     `yaml:"account"`  // google: token account name
	Calendar string     `yaml:"calendar"` // google: calendar ID; caldav: path or display name
}

// Busy is a manually entered busy range. Values are RFC 3339 timestamps,
// local "2006-01-02T15:04" times, or plain dates for whole days.
type Busy struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Load reads and validates a plan file.
func Load(path string, defaultLoc *time.Location) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read meeting plan: %w", err)
	}
	return Parse(data, defaultLoc)
}

// Parse decodes a YAML or JSON plan and validates it. defaultLoc is used
// when the plan names no time zone.
func Parse(data []byte, defaultLoc *time.Location) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if err := p.Validate(defaultLoc); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the plan and prepares its slots.
func (p *Plan) Validate(defaultLoc *time.Location) error {
	p.loc = defaultLoc
	if p.loc == nil {
		p.loc = time.UTC
	}
	if p.Timezone != "" {
		loc, err := time.LoadLocation(p.Timezone)
		if err != nil {
			return fmt.Errorf("%w: invalid timezone %q", ErrInvalidPlan, p.Timezone)
		}
		p.loc = loc
	}

	// Dates are civil; they become instants only once placed in the zone.
	from, err := time.Parse(availability.DayLabelLayout, p.From)
	if err != nil {
		return fmt.Errorf("%w: invalid from date %q", ErrInvalidPlan, p.From)
	}
	to, err := time.Parse(availability.DayLabelLayout, p.To)
	if err != nil {
		return fmt.Errorf("%w: invalid to date %q", ErrInvalidPlan, p.To)
	}
	if to.Before(from) {
		return fmt.Errorf("%w: to %s is before from %s", ErrInvalidPlan, p.To, p.From)
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		return fmt.Errorf("%w: range longer than %d days", ErrInvalidPlan, maxRangeDays)
	}
	p.first = availability.DayStart(from.Year(), from.Month(), from.Day(), p.loc)
	p.last = availability.DayStart(to.Year(), to.Month(), to.Day(), p.loc)

	p.window = nil
	if p.TimeOfDay != nil {
		w, err := availability.ParseTimeOfDay(p.TimeOfDay.From, p.TimeOfDay.To)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPlan, err)
		}
		p.window = w
	}

	switch p.Granularity {
	case "", GranularityDay:
		p.Granularity = GranularityDay
		p.slots = availability.DaySlots(p.first, p.last, p.loc, p.window)
	case GranularityHour:
		window := availability.TimeOfDay{From: 9 * time.Hour, To: 18 * time.Hour}
		if p.window != nil {
			window = *p.window
		}
		p.slots = availability.HourSlots(p.first, p.last, p.loc, window, time.Hour)
	default:
		return fmt.Errorf("%w: unknown granularity %q", ErrInvalidPlan, p.Granularity)
	}

	labels := make(map[string]struct{}, len(p.slots))
	for _, s := range p.slots {
		labels[s.Label] = struct{}{}
	}

	seen := make(map[string]struct{}, len(p.Participants))
	for i := range p.Participants {
		part := &p.Participants[i]
		part.ID = strings.TrimSpace(part.ID)
		if part.ID == "" {
			return fmt.Errorf("%w: participant %d has no id", ErrInvalidPlan, i+1)
		}
		if _, dup := seen[part.ID]; dup {
			return fmt.Errorf("%w: duplicate participant %q", ErrInvalidPlan, part.ID)
		}
		seen[part.ID] = struct{}{}
		if err := part.validate(p.loc, labels); err != nil {
			return fmt.Errorf("%w: participant %q: %v", ErrInvalidPlan, part.ID, err)
		}
	}
	return nil
}

func (part *Participant) validate(loc *time.Location, labels map[string]struct{}) error {
	role, err := availability.ParseRole(part.Role)
	if err != nil {
		return err
	}
	part.role = role

	switch part.Source.Type {
	case "":
		part.Source.Type = SourceManual
	case SourceManual, SourceCalDAV:
	case SourceGoogle:
		if part.Source.Account == "" {
			return errors.New("google source needs an account")
		}
		if part.Source.Calendar == "" {
			part.Source.Calendar = "primary"
		}
	default:
		return fmt.Errorf("unknown source type %q", part.Source.Type)
	}
	if part.Source.Type != SourceManual && (len(part.Free) > 0 || len(part.Busy) > 0) {
		return fmt.Errorf("free/busy entries need a manual source, not %s", part.Source.Type)
	}
	if part.Source.Type == SourceCalDAV && part.Source.Calendar == "" {
		return errors.New("caldav source needs a calendar")
	}

	part.freeSlots = nil
	if len(part.Free) > 0 {
		part.freeSlots = make(map[string]struct{}, len(part.Free))
		for _, key := range part.Free {
			if _, ok := labels[key]; !ok {
				return fmt.Errorf("free entry %q is not a candidate slot", key)
			}
			part.freeSlots[key] = struct{}{}
		}
	}

	part.busy = part.busy[:0]
	for _, b := range part.Busy {
		iv, err := parseBusy(b, loc)
		if err != nil {
			return err
		}
		part.busy = append(part.busy, iv)
	}
	return nil
}

func parseBusy(b Busy, loc *time.Location) (availability.Interval, error) {
	start, startDate, err := parseWhen(b.Start, loc)
	if err != nil {
		return availability.Interval{}, err
	}
	end, endDate := start, startDate
	if b.End != "" {
		if end, endDate, err = parseWhen(b.End, loc); err != nil {
			return availability.Interval{}, err
		}
	}
	if startDate != endDate {
		return availability.Interval{}, fmt.Errorf("busy range %s-%s mixes dates and times", b.Start, b.End)
	}
	if startDate {
		// Plain dates are inclusive in plans, exclusive in intervals.
		return availability.Interval{Start: start, End: end.AddDate(0, 0, 1), AllDay: true}, nil
	}
	if !end.After(start) {
		return availability.Interval{}, fmt.Errorf("busy range %s-%s is empty", b.Start, b.End)
	}
	return availability.Interval{Start: start, End: end}, nil
}

func parseWhen(s string, loc *time.Location) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	if t, err := time.ParseInLocation(availability.HourLabelLayout, s, loc); err == nil {
		return t, false, nil
	}
	if t, err := time.Parse(availability.DayLabelLayout, s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("cannot parse time %q", s)
}

// Location is the zone candidate slots are generated in.
func (p *Plan) Location() *time.Location { return p.loc }

// Window is the requested time-of-day filter, or nil.
func (p *Plan) Window() *availability.TimeOfDay { return p.window }

// Range returns the first and last candidate day.
func (p *Plan) Range() (time.Time, time.Time) { return p.first, p.last }

// Slots returns the chronological candidate slots.
func (p *Plan) Slots() []availability.Slot { return p.slots }

// Roster lists participants with their roles in plan order.
func (p *Plan) Roster() []availability.Participant {
	out := make([]availability.Participant, 0, len(p.Participants))
	for _, part := range p.Participants {
		out = append(out, availability.Participant{ID: part.ID, Role: part.role})
	}
	return out
}

// Priority returns the IDs of priority participants in plan order.
func (p *Plan) Priority() []string { return p.idsWithRole(availability.RolePriority) }

// Regular returns the IDs of regular participants in plan order.
func (p *Plan) Regular() []string { return p.idsWithRole(availability.RoleRegular) }

func (p *Plan) idsWithRole(role availability.Role) []string {
	var ids []string
	for _, part := range p.Participants {
		if part.role == role {
			ids = append(ids, part.ID)
		}
	}
	return ids
}

// Responded reports whether a manual participant entered any availability.
func (part Participant) Responded() bool {
	return len(part.Free) > 0 || len(part.Busy) > 0
}

// Manual converts a manual participant's answers into raw availability for
// slots. It returns false when the participant has not responded yet.
func (part Participant) Manual(slots []availability.Slot) (availability.Raw, bool) {
	if !part.Responded() {
		return availability.Raw{}, false
	}
	raw := availability.Raw{Busy: part.busy}
	if part.freeSlots != nil {
		raw.Flags = make([]availability.Status, len(slots))
		for i, s := range slots {
			if _, ok := part.freeSlots[s.Label]; ok {
				raw.Flags[i] = availability.Free
			}
		}
	}
	return raw, true
}
