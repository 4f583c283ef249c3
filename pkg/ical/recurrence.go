package ical

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/rs/zerolog"
	"github.com/teambition/rrule-go"
)

// DefaultMaxOccurrences caps how many instances a single expansion may yield.
// Unbounded rules over a wide window truncate at this cap instead of
// exhausting memory.
const DefaultMaxOccurrences = 5000

// Expander turns a recurrence set (master component plus exception
// overrides) into concrete occurrence components inside a time window.
// Every emitted component carries RECURRENCE-ID and no RRULE, and exception
// overrides replace the computed instance they name.
type Expander struct {
	timeZone *time.Location
	logger   zerolog.Logger

	// MaxOccurrences overrides DefaultMaxOccurrences when positive.
	MaxOccurrences int
}

func NewExpander(tz *time.Location, logger zerolog.Logger) *Expander {
	if tz == nil {
		tz = time.Local
	}
	return &Expander{timeZone: tz, logger: logger}
}

// Expand expands every component of the set whose name is in kinds (nil
// means all kinds) into occurrences overlapping the closed [start, end]
// window, in chronological order.
func (ex *Expander) Expand(set []*ical.Component, kinds map[string]bool, start, end time.Time) ([]*ical.Component, error) {
	var masters, overrides []*ical.Component
	for _, comp := range set {
		if HasProp(comp, ical.PropRecurrenceID) {
			overrides = append(overrides, comp)
		} else {
			masters = append(masters, comp)
		}
	}

	var out []*ical.Component
	consumed := make(map[*ical.Component]bool)

	for _, master := range masters {
		if kinds != nil && !kinds[master.Name] {
			continue
		}
		occs, err := ex.expandMaster(master, overrides, consumed, start, end)
		if err != nil {
			return nil, err
		}
		out = append(out, occs...)
	}

	// Overrides not claimed by a computed instance (including sets with no
	// master at all) stand on their own when they land inside the window.
	for _, ov := range overrides {
		if consumed[ov] {
			continue
		}
		if kinds != nil && !kinds[ov.Name] {
			continue
		}
		if ex.overlapsWindow(ov, start, end) {
			out = append(out, stripRecurrenceRule(CloneComponent(ov)))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, erra := Start(out[i], ex.timeZone)
		b, errb := Start(out[j], ex.timeZone)
		if erra != nil || errb != nil {
			return false
		}
		return a.Time.Before(b.Time)
	})
	return out, nil
}

func (ex *Expander) expandMaster(master *ical.Component, overrides []*ical.Component, consumed map[*ical.Component]bool, start, end time.Time) ([]*ical.Component, error) {
	rruleProp := master.Props.Get(ical.PropRecurrenceRule)
	if rruleProp == nil {
		// Plain member of the set, nothing to compute.
		if ex.overlapsWindow(master, start, end) {
			return []*ical.Component{CloneComponent(master)}, nil
		}
		return nil, nil
	}

	mstart, err := Start(master, ex.timeZone)
	if err != nil {
		return nil, fmt.Errorf("cannot expand %s %q: %w", master.Name, UID(master), err)
	}
	dur := ex.effectiveDuration(master, mstart)

	rule, err := rrule.StrToRRule(strings.TrimSpace(rruleProp.Value))
	if err != nil {
		return nil, fmt.Errorf("invalid RRULE on %q: %w", UID(master), err)
	}
	rule.DTStart(mstart.Time)

	var set rrule.Set
	set.RRule(rule)
	for _, exd := range propDateTimes(master, ical.PropExceptionDates, mstart.Time.Location()) {
		set.ExDate(exd.Time.In(mstart.Time.Location()))
	}
	for _, rd := range propDateTimes(master, ical.PropRecurrenceDates, mstart.Time.Location()) {
		set.RDate(rd.Time)
	}

	// Widen the lower bound so occurrences already in progress at the window
	// start are still produced.
	loc := mstart.Time.Location()
	times := set.Between(start.In(loc).Add(-dur), end.In(loc), true)

	maxOcc := ex.MaxOccurrences
	if maxOcc <= 0 {
		maxOcc = DefaultMaxOccurrences
	}
	if len(times) > maxOcc {
		ex.logger.Warn().
			Str("uid", UID(master)).
			Int("cap", maxOcc).
			Msg("recurrence expansion truncated")
		times = times[:maxOcc]
	}

	var out []*ical.Component
	for _, t := range times {
		if ov := findOverride(overrides, t, mstart.DateOnly); ov != nil {
			consumed[ov] = true
			if ex.overlapsWindow(ov, start, end) {
				out = append(out, stripRecurrenceRule(CloneComponent(ov)))
			}
			continue
		}
		occ := ex.synthesizeOccurrence(master, mstart, t, dur)
		if ex.overlapsWindow(occ, start, end) {
			out = append(out, occ)
		}
	}
	return out, nil
}

// synthesizeOccurrence clones the master onto a concrete instance time:
// DTSTART (and DTEND/DUE, if the master carried one) are shifted, the
// recurrence properties are removed, and RECURRENCE-ID is set.
func (ex *Expander) synthesizeOccurrence(master *ical.Component, mstart DateTime, t time.Time, dur time.Duration) *ical.Component {
	occ := CloneComponent(master)
	instance := DateTime{Time: t, DateOnly: mstart.DateOnly}
	SetDateTime(occ, ical.PropDateTimeStart, instance)

	endProp := ical.PropDateTimeEnd
	if master.Name == ical.CompToDo {
		endProp = ical.PropDue
	}
	if HasProp(master, endProp) {
		SetDateTime(occ, endProp, DateTime{Time: t.Add(dur), DateOnly: mstart.DateOnly})
	}

	occ.Props.Del(ical.PropRecurrenceRule)
	occ.Props.Del(ical.PropRecurrenceDates)
	occ.Props.Del(ical.PropExceptionDates)
	SetDateTime(occ, ical.PropRecurrenceID, instance)
	return occ
}

func (ex *Expander) effectiveDuration(comp *ical.Component, start DateTime) time.Duration {
	if end, err := End(comp, ex.timeZone); err == nil {
		return end.Time.Sub(start.Time)
	}
	if start.DateOnly {
		return 24 * time.Hour
	}
	return 0
}

// overlapsWindow reports whether the component's effective interval touches
// the closed [start, end] window.
func (ex *Expander) overlapsWindow(comp *ical.Component, start, end time.Time) bool {
	cstart, err := Start(comp, ex.timeZone)
	if err != nil {
		// No start at all: only reachable for undated todos, which span any
		// window.
		return true
	}
	cend := cstart.Time.Add(ex.effectiveDuration(comp, cstart))
	return !cstart.Time.After(end) && !cend.Before(start)
}

func findOverride(overrides []*ical.Component, t time.Time, dateOnly bool) *ical.Component {
	for _, ov := range overrides {
		rid, err := PropDateTime(ov, ical.PropRecurrenceID, t.Location())
		if err != nil || rid.IsZero() {
			continue
		}
		if dateOnly || rid.DateOnly {
			y1, m1, d1 := rid.Time.Date()
			y2, m2, d2 := t.In(rid.Time.Location()).Date()
			if y1 == y2 && m1 == m2 && d1 == d2 {
				return ov
			}
			continue
		}
		if rid.Time.Equal(t) {
			return ov
		}
	}
	return nil
}

func stripRecurrenceRule(comp *ical.Component) *ical.Component {
	comp.Props.Del(ical.PropRecurrenceRule)
	return comp
}

func propDateTimes(comp *ical.Component, name string, loc *time.Location) []DateTime {
	var out []DateTime
	for _, p := range comp.Props.Values(name) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			dt, err := parseDateTimeValue(part, loc)
			if err != nil {
				continue
			}
			out = append(out, dt)
		}
	}
	return out
}
