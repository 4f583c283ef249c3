package search

import (
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	icalutil "github.com/sonroyaalmerol/ical-search/pkg/ical"
)

// matchesTimeRange implements RFC 4791 time-range semantics per component
// kind. Each kind derives an effective [compStart, compEnd) interval first,
// then the query window is tested for overlap.
func matchesTimeRange(comp *ical.Component, q resolvedQuery) (bool, error) {
	compEnd, err := icalutil.End(comp, q.loc)
	hasEnd := err == nil
	if err != nil && !errors.Is(err, icalutil.ErrIncomplete) {
		return false, err
	}

	compStart, err := icalutil.Start(comp, q.loc)
	hasStart := err == nil
	if err != nil && !errors.Is(err, icalutil.ErrIncomplete) {
		return false, err
	}

	switch comp.Name {
	case ical.CompEvent:
		// DTSTART is mandatory for events.
		if !hasStart {
			return false, fmt.Errorf("VEVENT %q: %w", icalutil.UID(comp), icalutil.ErrIncomplete)
		}
		if !hasEnd {
			compEnd = compStart
			if compStart.DateOnly {
				compEnd.Time = compStart.Time.Add(24 * time.Hour)
			}
			hasEnd = true
		}

	case ical.CompToDo:
		// Start and end stand in for each other when only one is given.
		if hasEnd && !hasStart {
			compStart, hasStart = compEnd, true
		}
		if hasStart && !hasEnd {
			compEnd, hasEnd = compStart, true
		}
		if !hasStart {
			if created, perr := icalutil.PropDateTime(comp, ical.PropCreated, q.loc); perr == nil && !created.IsZero() {
				compStart, hasStart = created, true
			}
			if completed, perr := icalutil.PropDateTime(comp, ical.PropCompleted, q.loc); perr == nil && !completed.IsZero() {
				compEnd, hasEnd = completed, true
			}
		}
		if hasStart && hasEnd && compEnd.Time.Before(compStart.Time) {
			compStart, compEnd = compEnd, compStart
		}
		// A fully undated todo is pending over any window.
		if !hasStart && !hasEnd {
			compStart = icalutil.DateTime{Time: icalutil.DateMin}
			compEnd = icalutil.DateTime{Time: icalutil.DateMax}
			hasStart, hasEnd = true, true
		}

	case ical.CompJournal:
		if !hasStart {
			return false, nil
		}
		compEnd = compStart
		if compStart.DateOnly {
			compEnd.Time = compStart.Time.Add(24 * time.Hour)
		}
		hasEnd = true
	}

	// Zero-length intervals would never overlap a half-open window.
	if hasStart && hasEnd && compStart.Time.Equal(compEnd.Time) {
		compEnd.Time = compEnd.Time.Add(time.Second)
	}

	switch {
	case q.start != nil && q.end != nil && hasEnd:
		return q.start.Before(compEnd.Time) && q.end.After(compStart.Time), nil
	case q.end != nil && hasStart:
		return q.end.After(compStart.Time), nil
	case q.start != nil && hasEnd:
		return q.start.Before(compEnd.Time), nil
	}
	return true, nil
}
