package search

import (
	"fmt"

	"github.com/emersion/go-ical"

	icalutil "github.com/sonroyaalmerol/ical-search/pkg/ical"
)

// CalendarHolder is implemented by wrapper types that carry a parsed
// calendar, such as objects fetched from a CalDAV server.
type CalendarHolder interface {
	ICalendar() *ical.Calendar
}

// unwrap coerces the supported input shapes onto a calendar. A bare
// component that is not itself a VCALENDAR is wrapped in a synthetic one.
func unwrap(v any) (*ical.Calendar, error) {
	switch c := v.(type) {
	case CalendarHolder:
		return c.ICalendar(), nil
	case *ical.Calendar:
		return c, nil
	case *ical.Component:
		if c.Name == ical.CompCalendar {
			return &ical.Calendar{Component: c}, nil
		}
		return &ical.Calendar{Component: &ical.Component{
			Name:     ical.CompCalendar,
			Props:    make(ical.Props),
			Children: []*ical.Component{c},
		}}, nil
	default:
		return nil, fmt.Errorf("search: unsupported input type %T", v)
	}
}

// normalizeComponents unwraps the input, strips VTIMEZONE subcomponents and
// validates that what remains is a single entry or a well-formed recurrence
// set sharing one UID. The returned slice keeps the calendar's declaration
// order, master first.
func normalizeComponents(v any) ([]*ical.Component, error) {
	cal, err := unwrap(v)
	if err != nil {
		return nil, err
	}

	var comps []*ical.Component
	for _, child := range cal.Children {
		if child.Name == ical.CompTimezone {
			continue
		}
		comps = append(comps, child)
	}
	if len(comps) == 0 {
		return nil, ErrEmptyInput
	}

	if len(comps) > 1 {
		first := comps[0]
		if !icalutil.IsRecurring(first) && !icalutil.HasProp(first, ical.PropRecurrenceID) {
			return nil, fmt.Errorf("%w: first component has neither RRULE nor RECURRENCE-ID", ErrInvalidRecurrenceSet)
		}
		for _, comp := range comps[1:] {
			if !icalutil.HasProp(comp, ical.PropRecurrenceID) {
				return nil, fmt.Errorf("%w: override without RECURRENCE-ID", ErrInvalidRecurrenceSet)
			}
			if icalutil.IsRecurring(comp) {
				return nil, fmt.Errorf("%w: override carries an RRULE", ErrInvalidRecurrenceSet)
			}
		}
	}

	uid := icalutil.UID(comps[0])
	for _, comp := range comps[1:] {
		if icalutil.UID(comp) != uid {
			return nil, fmt.Errorf("%w: %q and %q", ErrMixedUIDs, uid, icalutil.UID(comp))
		}
	}
	return comps, nil
}
