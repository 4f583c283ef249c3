package search

import (
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	icalutil "github.com/sonroyaalmerol/ical-search/pkg/ical"
)

// matchesAlarmRange reports whether any VALARM of the component fires inside
// the alarm window. Relative triggers anchor on the component end when
// RELATED=END and an end is known, otherwise on the start; alarms with no
// usable anchor are skipped. REPEAT with DURATION also tests each snoozed
// instant. Components without alarms never match.
func (s *Searcher) matchesAlarmRange(comp *ical.Component, q resolvedQuery) bool {
	alarms := icalutil.Alarms(comp)
	if len(alarms) == 0 {
		return false
	}

	compStart, err := icalutil.Start(comp, q.loc)
	hasStart := err == nil && !compStart.IsZero()
	compEnd, err := icalutil.End(comp, q.loc)
	hasEnd := err == nil && !compEnd.IsZero()

	for _, alarm := range alarms {
		trigger := alarm.Props.Get(ical.PropTrigger)
		if trigger == nil {
			continue
		}

		var fire time.Time
		if icalutil.IsDuration(trigger.Value) {
			offset, err := icalutil.ParseDuration(trigger.Value)
			if err != nil {
				s.Logger.Debug().
					Str("uid", icalutil.UID(comp)).
					Str("trigger", trigger.Value).
					Msg("skipping alarm with malformed trigger")
				continue
			}
			switch {
			case trigger.Params.Get(ical.ParamRelated) == "END" && hasEnd:
				fire = compEnd.Time.Add(offset)
			case hasStart:
				fire = compStart.Time.Add(offset)
			default:
				continue
			}
		} else {
			dt, err := icalutil.ParseDateTime(trigger.Value, q.loc)
			if err != nil {
				s.Logger.Debug().
					Str("uid", icalutil.UID(comp)).
					Str("trigger", trigger.Value).
					Msg("skipping alarm with malformed trigger")
				continue
			}
			fire = dt.Time
		}

		repeats := 0
		if p := alarm.Props.Get(ical.PropRepeat); p != nil {
			if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil && n > 0 {
				repeats = n
			}
		}
		var snooze time.Duration
		if p := alarm.Props.Get(ical.PropDuration); p != nil {
			snooze, _ = icalutil.ParseDuration(p.Value)
		}

		for i := 0; i <= repeats; i++ {
			if alarmWindowContains(q, fire.Add(snooze*time.Duration(i))) {
				return true
			}
			if snooze == 0 {
				break
			}
		}
	}
	return false
}

// alarmWindowContains tests [alarmStart, alarmEnd) containment, with either
// bound optional.
func alarmWindowContains(q resolvedQuery, t time.Time) bool {
	switch {
	case q.alarmStart != nil && q.alarmEnd != nil:
		return !t.Before(*q.alarmStart) && t.Before(*q.alarmEnd)
	case q.alarmStart != nil:
		return !t.Before(*q.alarmStart)
	case q.alarmEnd != nil:
		return t.Before(*q.alarmEnd)
	}
	return true
}
