// Package icaltest provides small fixture builders for calendar tests.
package icaltest

import (
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	icalutil "github.com/sonroyaalmerol/ical-search/pkg/ical"
)

// NewComponent returns a component of the given kind with a fresh UID.
func NewComponent(name string) *ical.Component {
	comp := ical.NewComponent(name)
	comp.Props.SetText(ical.PropUID, uuid.NewString())
	return comp
}

// Event, Todo and Journal build empty components of the matching kind.
func Event() *ical.Component   { return NewComponent(ical.CompEvent) }
func Todo() *ical.Component    { return NewComponent(ical.CompToDo) }
func Journal() *ical.Component { return NewComponent(ical.CompJournal) }

// Text sets a text property and returns the component for chaining.
func Text(comp *ical.Component, name, value string) *ical.Component {
	comp.Props.SetText(name, value)
	return comp
}

// Categories sets the CATEGORIES property from individual names. Text would
// escape the separating commas, turning the list into one name.
func Categories(comp *ical.Component, names ...string) *ical.Component {
	p := ical.NewProp(ical.PropCategories)
	p.Value = strings.Join(names, ",")
	comp.Props.Set(p)
	return comp
}

// RRule sets a raw RRULE value, bypassing text escaping of the rule's
// semicolons.
func RRule(comp *ical.Component, rule string) *ical.Component {
	p := ical.NewProp(ical.PropRecurrenceRule)
	p.Value = rule
	comp.Props.Set(p)
	return comp
}

// Time sets a date-time property.
func Time(comp *ical.Component, name string, t time.Time) *ical.Component {
	icalutil.SetDateTime(comp, name, icalutil.DateTime{Time: t})
	return comp
}

// Date sets a whole-day DATE property.
func Date(comp *ical.Component, name string, t time.Time) *ical.Component {
	icalutil.SetDateTime(comp, name, icalutil.DateTime{Time: t, DateOnly: true})
	return comp
}

// Alarm attaches a VALARM with the given TRIGGER value and returns the
// alarm so callers can add REPEAT or DURATION.
func Alarm(comp *ical.Component, trigger string) *ical.Component {
	alarm := ical.NewComponent(ical.CompAlarm)
	alarm.Props.SetText(ical.PropAction, "DISPLAY")
	p := ical.NewProp(ical.PropTrigger)
	p.Value = trigger
	alarm.Props.Set(p)
	comp.Children = append(comp.Children, alarm)
	return alarm
}

// Calendar wraps components into a VCALENDAR with the usual headers.
func Calendar(comps ...*ical.Component) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, "-//ical-search//test//EN")
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Children = append(cal.Children, comps...)
	return cal
}

// SameUID copies the UID of src onto dst, for building recurrence sets.
func SameUID(dst, src *ical.Component) *ical.Component {
	dst.Props.SetText(ical.PropUID, icalutil.UID(src))
	return dst
}
