// Package callwindow evaluates when a student is reachable, given their
// uploaded class schedule. It mirrors the rules the share page applies in
// the browser: during a class the answer is always "in session", outside
// classes the daytime window between 07:00 and 21:30 local time is good,
// and everything else should be avoided.
package callwindow

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/emersion/go-ical"
)

// Status classifies a moment in the schedule owner's local time.
type Status string

const (
	StatusInClass Status = "CLASS IN SESSION"
	StatusGood    Status = "GOOD TO CALL"
	StatusAvoid   Status = "AVOID CALLING"
)

// Tone returns the display tone for the status, matching the pill colors
// on the share page.
func (s Status) Tone() string {
	if s == StatusGood {
		return "safe"
	}
	return "avoid"
}

// The good-to-call window in minutes of the local day, inclusive.
const (
	goodWindowStartMin = 7 * 60
	goodWindowEndMin   = 21*60 + 30
)

// Event is one class meeting from the schedule.
type Event struct {
	Summary string
	Start   time.Time
	End     time.Time
}

// Schedule is a parsed calendar pinned to the owner's timezone.
type Schedule struct {
	Events   []Event
	TZID     string
	Location *time.Location
}

// Parse decodes iCalendar bytes into a Schedule. The schedule timezone is
// taken from the first VTIMEZONE component, falling back to the first
// event's TZID parameter and then to UTC. Events without a parseable
// DTSTART are skipped rather than failing the whole schedule.
func Parse(data []byte) (*Schedule, error) {
	dec := ical.NewDecoder(bytes.NewReader(data))

	var cals []*ical.Calendar
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse calendar: %w", err)
		}
		cals = append(cals, cal)
	}
	if len(cals) == 0 {
		return nil, fmt.Errorf("no calendar data")
	}

	tzid, loc := detectTimezone(cals)

	sched := &Schedule{
		TZID:     tzid,
		Location: loc,
	}

	for _, cal := range cals {
		for _, ev := range cal.Events() {
			start, err := ev.DateTimeStart(loc)
			if err != nil || start.IsZero() {
				continue
			}
			end, err := ev.DateTimeEnd(loc)
			if err != nil || end.IsZero() {
				end = start
			}

			summary := ""
			if prop := ev.Props.Get(ical.PropSummary); prop != nil {
				if text, err := prop.Text(); err == nil {
					summary = text
				}
			}

			sched.Events = append(sched.Events, Event{
				Summary: summary,
				Start:   start,
				End:     end,
			})
		}
	}

	return sched, nil
}

// detectTimezone finds the schedule timezone: VTIMEZONE first, then the
// first event DTSTART with a TZID parameter, then UTC.
func detectTimezone(cals []*ical.Calendar) (string, *time.Location) {
	for _, cal := range cals {
		for _, child := range cal.Children {
			if child.Name != ical.CompTimezone {
				continue
			}
			prop := child.Props.Get(ical.PropTimezoneID)
			if prop == nil {
				continue
			}
			if loc, err := time.LoadLocation(prop.Value); err == nil {
				return prop.Value, loc
			}
		}
	}

	for _, cal := range cals {
		for _, child := range cal.Children {
			if child.Name != ical.CompEvent {
				continue
			}
			prop := child.Props.Get(ical.PropDateTimeStart)
			if prop == nil {
				continue
			}
			tzid := prop.Params.Get(ical.ParamTimezoneID)
			if tzid == "" {
				continue
			}
			if loc, err := time.LoadLocation(tzid); err == nil {
				return tzid, loc
			}
		}
	}

	return "UTC", time.UTC
}

// StatusAt classifies the instant t. A class in session wins over the
// time-of-day window; both event boundaries count as in session.
func (s *Schedule) StatusAt(t time.Time) Status {
	for _, ev := range s.Events {
		if !t.Before(ev.Start) && !t.After(ev.End) {
			return StatusInClass
		}
	}

	local := t.In(s.Location)
	mins := local.Hour()*60 + local.Minute()
	if mins >= goodWindowStartMin && mins <= goodWindowEndMin {
		return StatusGood
	}
	return StatusAvoid
}

// NextEventAfter returns the event with the earliest start strictly after
// t, or false when nothing is left.
func (s *Schedule) NextEventAfter(t time.Time) (Event, bool) {
	var (
		next  Event
		found bool
	)
	for _, ev := range s.Events {
		if !ev.Start.After(t) {
			continue
		}
		if !found || ev.Start.Before(next.Start) {
			next = ev
			found = true
		}
	}
	return next, found
}

// DayPart names the part of the owner's local day at t.
func (s *Schedule) DayPart(t time.Time) string {
	switch h := t.In(s.Location).Hour(); {
	case h < 7:
		return "Very Early Morning"
	case h < 12:
		return "Morning"
	case h < 17:
		return "Afternoon"
	case h < 21:
		return "Evening"
	default:
		return "Night"
	}
}

// FormatUntil renders the gap between from and to the way the share page
// does: "2 hr 5 min" past the first hour, "42 minutes" under it.
func FormatUntil(from, to time.Time) string {
	diffMins := int(math.Round(to.Sub(from).Minutes()))
	hours := diffMins / 60
	minutes := diffMins % 60
	if hours > 0 {
		return fmt.Sprintf("%d hr %d min", hours, minutes)
	}
	return fmt.Sprintf("%d minutes", minutes)
}
