// Package ical provides helpers over emersion/go-ical components: effective
// start/end computation, category extraction, deep cloning, and recurrence
// expansion of VEVENT/VTODO/VJOURNAL recurrence sets.
package ical

import (
	"errors"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// ErrIncomplete is returned when a component lacks the timestamps needed to
// compute an effective start or end.
var ErrIncomplete = errors.New("ical: incomplete component")

// DateMin and DateMax bound open-ended query windows.
var (
	DateMin = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	DateMax = time.Date(2038, 1, 1, 0, 0, 0, 0, time.UTC)
)

// DateTime is an instant plus whether the underlying property carried a
// whole-day DATE value rather than a DATE-TIME.
type DateTime struct {
	Time     time.Time
	DateOnly bool
}

func (dt DateTime) IsZero() bool { return dt.Time.IsZero() }

// UID returns the component's UID, or "" if unset.
func UID(comp *ical.Component) string {
	if p := comp.Props.Get(ical.PropUID); p != nil {
		return p.Value
	}
	return ""
}

// HasProp reports whether the component carries the named property.
func HasProp(comp *ical.Component, name string) bool {
	return comp.Props.Get(name) != nil
}

// IsRecurring reports whether the component carries an RRULE.
func IsRecurring(comp *ical.Component) bool {
	return HasProp(comp, ical.PropRecurrenceRule)
}

// PropDateTime parses the named date/time property. Date-only values resolve
// to midnight in loc; floating date-times resolve in loc; a TZID parameter
// takes precedence. Returns a zero DateTime when the property is absent.
func PropDateTime(comp *ical.Component, name string, loc *time.Location) (DateTime, error) {
	p := comp.Props.Get(name)
	if p == nil {
		return DateTime{}, nil
	}
	return parseDateTimeProp(p, loc)
}

func parseDateTimeProp(p *ical.Prop, loc *time.Location) (DateTime, error) {
	tz := loc
	if tzid := p.Params.Get(ical.ParamTimezoneID); tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			tz = l
		}
	}
	return parseDateTimeValue(p.Value, tz)
}

// ParseDateTime parses a raw iCalendar DATE or DATE-TIME value. Date-only
// and floating forms resolve in loc, the "Z" form in UTC.
func ParseDateTime(s string, loc *time.Location) (DateTime, error) {
	return parseDateTimeValue(s, loc)
}

func parseDateTimeValue(s string, loc *time.Location) (DateTime, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)

	if len(s) == 8 {
		t, err := time.ParseInLocation("20060102", s, loc)
		return DateTime{Time: t, DateOnly: true}, err
	}
	if len(s) == 15 {
		t, err := time.ParseInLocation("20060102T150405", s, loc)
		return DateTime{Time: t}, err
	}
	if len(s) == 16 && strings.HasSuffix(s, "Z") {
		t, err := time.Parse("20060102T150405Z", s)
		return DateTime{Time: t}, err
	}

	t, err := time.Parse(time.RFC3339, s)
	return DateTime{Time: t}, err
}

// Start returns the component's DTSTART. ErrIncomplete if absent.
func Start(comp *ical.Component, loc *time.Location) (DateTime, error) {
	dt, err := PropDateTime(comp, ical.PropDateTimeStart, loc)
	if err != nil {
		return DateTime{}, err
	}
	if dt.IsZero() {
		return DateTime{}, ErrIncomplete
	}
	return dt, nil
}

// End returns the component's effective end: DTEND (DUE for a VTODO), or
// DTSTART plus DURATION when a duration is given instead. ErrIncomplete when
// no end can be derived.
func End(comp *ical.Component, loc *time.Location) (DateTime, error) {
	endProp := ical.PropDateTimeEnd
	if comp.Name == ical.CompToDo {
		endProp = ical.PropDue
	}
	dt, err := PropDateTime(comp, endProp, loc)
	if err != nil {
		return DateTime{}, err
	}
	if !dt.IsZero() {
		return dt, nil
	}
	if p := comp.Props.Get(ical.PropDuration); p != nil {
		dur, err := ParseDuration(p.Value)
		if err != nil {
			return DateTime{}, err
		}
		start, err := Start(comp, loc)
		if err != nil {
			return DateTime{}, err
		}
		return DateTime{Time: start.Time.Add(dur), DateOnly: start.DateOnly}, nil
	}
	return DateTime{}, ErrIncomplete
}

// Categories returns all individual category names of the component, in
// declaration order. A missing CATEGORIES property yields an empty slice.
func Categories(comp *ical.Component) []string {
	var cats []string
	for _, p := range comp.Props.Values(ical.PropCategories) {
		cats = append(cats, splitTextList(p.Value)...)
	}
	return cats
}

// splitTextList splits an iCalendar multi-value text on unescaped commas and
// removes text escaping from each element.
func splitTextList(s string) []string {
	var out []string
	var cur strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			switch r {
			case 'n', 'N':
				cur.WriteRune('\n')
			default:
				cur.WriteRune(r)
			}
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	out = append(out, cur.String())

	trimmed := out[:0]
	for _, v := range out {
		if v = strings.TrimSpace(v); v != "" {
			trimmed = append(trimmed, v)
		}
	}
	return trimmed
}

// Alarms returns the component's VALARM subcomponents.
func Alarms(comp *ical.Component) []*ical.Component {
	var alarms []*ical.Component
	for _, child := range comp.Children {
		if child.Name == ical.CompAlarm {
			alarms = append(alarms, child)
		}
	}
	return alarms
}

// CloneProps deep-copies a property map, including parameters.
func CloneProps(props ical.Props) ical.Props {
	out := make(ical.Props, len(props))
	for name, ps := range props {
		cp := make([]ical.Prop, len(ps))
		copy(cp, ps)
		for i := range cp {
			params := make(ical.Params, len(ps[i].Params))
			for k, vs := range ps[i].Params {
				params[k] = append([]string(nil), vs...)
			}
			cp[i].Params = params
		}
		out[name] = cp
	}
	return out
}

// CloneComponent deep-copies a component, its properties, parameters and
// children, so occurrence synthesis never mutates the caller's calendar.
func CloneComponent(comp *ical.Component) *ical.Component {
	children := make([]*ical.Component, len(comp.Children))
	for i, child := range comp.Children {
		children[i] = CloneComponent(child)
	}
	return &ical.Component{Name: comp.Name, Props: CloneProps(comp.Props), Children: children}
}

// SetDateTime writes a date/time property, keeping whole-day values as DATE.
func SetDateTime(comp *ical.Component, name string, dt DateTime) {
	p := ical.NewProp(name)
	switch {
	case dt.DateOnly:
		p.Value = dt.Time.Format("20060102")
		p.Params.Set(ical.ParamValue, "DATE")
	case dt.Time.Location() == time.UTC:
		p.Value = dt.Time.Format("20060102T150405Z")
	default:
		p.Value = dt.Time.Format("20060102T150405")
		if name := dt.Time.Location().String(); strings.Contains(name, "/") {
			p.Params.Set(ical.ParamTimezoneID, name)
		}
	}
	comp.Props.Set(p)
}
