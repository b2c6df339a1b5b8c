package caldav

import (
	"kanji/internal/models"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

// toInternalEvents flattens calendar objects into busy events inside
// [from, to), expanding recurrences.
func toInternalEvents(logger *slog.Logger, objects []caldav.CalendarObject, from, to time.Time, loc *time.Location) []*models.Event {
	var events []*models.Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}

		// Instances moved or edited by an override must not also be
		// produced by the master's recurrence rule.
		overridden := make(map[int64]struct{})
		for _, child := range obj.Data.Children {
			if child.Name != ical.CompEvent {
				continue
			}
			if rid := child.Props.Get(ical.PropRecurrenceID); rid != nil {
				if t, err := rid.DateTime(zoneFor(rid, loc)); err == nil {
					overridden[t.Unix()] = struct{}{}
				}
			}
		}

		for _, child := range obj.Data.Children {
			if child.Name != ical.CompEvent || !blocksTime(child) {
				continue
			}
			evs, err := expand(child, obj.Path, from, to, loc, overridden)
			if err != nil {
				logger.Warn("Skipping unreadable CalDAV event", "path", obj.Path, "error", err)
				continue
			}
			events = append(events, evs...)
		}
	}
	return events
}

func blocksTime(comp *ical.Component) bool {
	if p := comp.Props.Get(ical.PropTransparency); p != nil && strings.EqualFold(p.Value, "TRANSPARENT") {
		return false
	}
	if p := comp.Props.Get(ical.PropStatus); p != nil && strings.EqualFold(p.Value, "CANCELLED") {
		return false
	}
	return true
}

// zoneFor is the zone a date-time property is read in. Dates are civil and
// read in UTC so a skipped local midnight cannot move them to the day before.
func zoneFor(p *ical.Prop, loc *time.Location) *time.Location {
	if p.ValueType() == ical.ValueDate {
		return time.UTC
	}
	return loc
}

func expand(comp *ical.Component, source string, from, to time.Time, loc *time.Location, overridden map[int64]struct{}) ([]*models.Event, error) {
	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return nil, nil
	}
	allDay := startProp.ValueType() == ical.ValueDate
	loc = zoneFor(startProp, loc)

	ev := ical.Event{Component: comp}
	start, err := ev.DateTimeStart(loc)
	if err != nil {
		return nil, err
	}
	end, err := ev.DateTimeEnd(loc)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		if !allDay {
			return nil, nil // instantaneous, blocks nothing
		}
		end = start.AddDate(0, 0, 1)
	}

	base := models.Event{Source: source}
	if p := comp.Props.Get(ical.PropUID); p != nil {
		base.ID = p.Value
	}
	if p := comp.Props.Get(ical.PropSummary); p != nil {
		base.Title = p.Value
	}
	base.AllDay = allDay

	occurrence := func(s time.Time) *models.Event {
		e := base
		e.StartTime = s
		if allDay {
			e.EndTime = s.AddDate(0, 0, int(end.Sub(start).Hours()+12)/24)
		} else {
			e.EndTime = s.Add(end.Sub(start))
		}
		return &e
	}

	// Overrides are single instances even though they share the master's UID.
	if comp.Props.Get(ical.PropRecurrenceID) != nil {
		return []*models.Event{occurrence(start)}, nil
	}

	set, err := ev.RecurrenceSet(loc)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return []*models.Event{occurrence(start)}, nil
	}

	var out []*models.Event
	for _, s := range set.Between(from.Add(-end.Sub(start)), to, true) {
		if _, skip := overridden[s.Unix()]; skip {
			continue
		}
		out = append(out, occurrence(s))
	}
	return out, nil
}
