package search

import (
	"strconv"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"github.com/sonroyaalmerol/ical-search/internal/icaltest"
	"github.com/sonroyaalmerol/ical-search/pkg/collation"
)

func TestKindFlags(t *testing.T) {
	event := icaltest.Time(icaltest.Event(), ical.PropDateTimeStart, time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC))
	todo := icaltest.Todo()
	journal := icaltest.Time(icaltest.Journal(), ical.PropDateTimeStart, time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC))

	t.Run("unset flags accept everything", func(t *testing.T) {
		s := New()
		for _, comp := range []*ical.Component{event, todo, journal} {
			if !checkMatch(t, s, comp) {
				t.Errorf("%s should match with no kind flags set", comp.Name)
			}
		}
	})

	t.Run("one true flag excludes the others", func(t *testing.T) {
		s := New()
		s.Todo = ptr(true)
		if !checkMatch(t, s, todo) {
			t.Error("todo should match")
		}
		if checkMatch(t, s, event) || checkMatch(t, s, journal) {
			t.Error("events and journals default to excluded once todo is requested")
		}
	})

	t.Run("explicit false only excludes that kind", func(t *testing.T) {
		s := New()
		s.Journal = ptr(false)
		if checkMatch(t, s, journal) {
			t.Error("journal explicitly excluded")
		}
		if !checkMatch(t, s, event) || !checkMatch(t, s, todo) {
			t.Error("other kinds stay accepted when only an exclusion is given")
		}
	})

	t.Run("mixed explicit flags", func(t *testing.T) {
		s := New()
		s.Event = ptr(true)
		s.Journal = ptr(true)
		if !checkMatch(t, s, event) || !checkMatch(t, s, journal) {
			t.Error("both requested kinds should match")
		}
		if checkMatch(t, s, todo) {
			t.Error("todo defaults to excluded")
		}
	})
}

func TestCompletedTodos(t *testing.T) {
	completed := icaltest.Text(icaltest.Todo(), ical.PropStatus, "COMPLETED")
	cancelled := icaltest.Text(icaltest.Todo(), ical.PropStatus, "CANCELLED")
	stamped := icaltest.Time(icaltest.Todo(), ical.PropCompleted, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	open := icaltest.Text(icaltest.Todo(), ical.PropStatus, "NEEDS-ACTION")

	t.Run("todo query hides finished todos", func(t *testing.T) {
		s := New()
		s.Todo = ptr(true)
		for _, comp := range []*ical.Component{completed, cancelled, stamped} {
			if checkMatch(t, s, comp) {
				t.Errorf("finished todo (%v) should be excluded by default", comp.Props.Get(ical.PropStatus))
			}
		}
		if !checkMatch(t, s, open) {
			t.Error("open todo should match")
		}
	})

	t.Run("include completed override", func(t *testing.T) {
		s := New()
		s.Todo = ptr(true)
		s.IncludeCompleted = ptr(true)
		if !checkMatch(t, s, completed) {
			t.Error("IncludeCompleted should keep finished todos")
		}
	})

	t.Run("kindless query keeps finished todos", func(t *testing.T) {
		if !checkMatch(t, New(), completed) {
			t.Error("without an explicit todo query, finished todos stay included")
		}
	})

	t.Run("completed events are unaffected", func(t *testing.T) {
		event := icaltest.Text(icaltest.Event(), ical.PropStatus, "CANCELLED")
		s := New()
		s.Event = ptr(true)
		s.IncludeCompleted = ptr(false)
		if !checkMatch(t, s, event) {
			t.Error("status handling applies to todos only")
		}
	})
}

func newRecurrenceSet(t *testing.T, count int) (*ical.Component, *ical.Calendar) {
	t.Helper()
	master := icaltest.Time(icaltest.Event(), ical.PropDateTimeStart, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	icaltest.Text(master, ical.PropSummary, "weekly sync")
	p := ical.NewProp(ical.PropRecurrenceRule)
	p.Value = "FREQ=WEEKLY;COUNT=" + strconv.Itoa(count)
	master.Props.Set(p)
	return master, icaltest.Calendar(master)
}

func TestExpandReturnsOccurrences(t *testing.T) {
	_, cal := newRecurrenceSet(t, 10)

	s := New()
	s.Location = time.UTC
	s.Expand = true
	s.Start = ptr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	s.End = ptr(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))

	res, err := s.CheckComponent(cal, false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Matched {
		t.Fatal("recurring event inside the window should match")
	}
	// Mondays June 2, 9, 16, 23, 30.
	if len(res.Components) != 5 {
		t.Fatalf("got %d occurrences, want 5", len(res.Components))
	}
	for _, occ := range res.Components {
		if occ.Props.Get(ical.PropRecurrenceRule) != nil {
			t.Error("occurrences must not carry RRULE")
		}
		if occ.Props.Get(ical.PropRecurrenceID) == nil {
			t.Error("occurrences must carry RECURRENCE-ID")
		}
	}
}

func TestUndefFilterSurvivesExpansion(t *testing.T) {
	// The master has no RECURRENCE-ID, so the undef filter passes on it.
	// Expansion then synthesizes a RECURRENCE-ID onto every occurrence;
	// the filter must not be re-applied to properties the expansion added.
	_, cal := newRecurrenceSet(t, 4)

	s := New()
	s.Location = time.UTC
	s.Expand = true
	s.Start = ptr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	s.End = ptr(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	if err := s.AddPropertyFilter("recurrence-id", "", OpUndef, collation.Binary, ""); err != nil {
		t.Fatal(err)
	}

	res, err := s.CheckComponent(cal, false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Matched {
		t.Fatal("undef passed on the master, the set should match")
	}
	if len(res.Components) != 4 {
		t.Fatalf("got %d occurrences, want 4", len(res.Components))
	}
	for _, occ := range res.Components {
		if occ.Props.Get(ical.PropRecurrenceID) == nil {
			t.Error("surviving occurrences still carry the synthesized RECURRENCE-ID")
		}
	}
}

func TestNonExpandReturnsOriginals(t *testing.T) {
	master, cal := newRecurrenceSet(t, 10)

	s := New()
	s.Location = time.UTC
	s.Start = ptr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	s.End = ptr(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))

	res, err := s.CheckComponent(cal, false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Matched {
		t.Fatal("should match")
	}
	if len(res.Components) != 1 || res.Components[0] != master {
		t.Fatal("non-expand match should hand back the original components")
	}
}

func TestExpandOnlySkipsFilters(t *testing.T) {
	master, cal := newRecurrenceSet(t, 4)
	icaltest.Text(master, ical.PropSummary, "does not match the filter")

	s := New()
	s.Location = time.UTC
	s.Expand = true
	s.Start = ptr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	s.End = ptr(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	if err := s.AddPropertyFilter("summary", "no such text", OpContains, collation.Binary, ""); err != nil {
		t.Fatal(err)
	}

	res, err := s.CheckComponent(cal, true)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Matched || len(res.Components) != 4 {
		t.Fatalf("expand-only should expand without filtering, got %d components", len(res.Components))
	}

	// Without Expand, expand-only passes the input through untouched.
	s.Expand = false
	res, err = s.CheckComponent(cal, true)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Matched || len(res.Components) != 1 {
		t.Fatalf("got %d components, want the original back", len(res.Components))
	}
}

func TestFailingMasterKeepsMatchingOverride(t *testing.T) {
	master, _ := newRecurrenceSet(t, 4)
	icaltest.Text(master, ical.PropSummary, "weekly sync")

	override := icaltest.SameUID(icaltest.Event(), master)
	icaltest.Time(override, ical.PropRecurrenceID, time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC))
	icaltest.Time(override, ical.PropDateTimeStart, time.Date(2025, 6, 9, 14, 0, 0, 0, time.UTC))
	icaltest.Text(override, ical.PropSummary, "special edition")

	cal := icaltest.Calendar(master, override)

	s := New()
	s.Location = time.UTC
	s.Expand = true
	s.Start = ptr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	s.End = ptr(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	if err := s.AddPropertyFilter("summary", "special", OpContains, collation.Binary, ""); err != nil {
		t.Fatal(err)
	}

	res, err := s.CheckComponent(cal, false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Matched {
		t.Fatal("the override matches the filter, so the set matches")
	}
	if len(res.Components) != 1 {
		t.Fatalf("got %d occurrences, want only the override", len(res.Components))
	}
	if got := res.Components[0].Props.Get(ical.PropSummary).Value; got != "special edition" {
		t.Errorf("surviving occurrence summary = %q", got)
	}
}

func TestRecurringTodoWithFinishedExceptions(t *testing.T) {
	// Weekly todo with ten instances; two exceptions are finished and must
	// vanish from a todo query.
	master := icaltest.Time(icaltest.Todo(), ical.PropDateTimeStart, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	p := ical.NewProp(ical.PropRecurrenceRule)
	p.Value = "FREQ=WEEKLY;COUNT=10"
	master.Props.Set(p)

	makeException := func(week int, status string) *ical.Component {
		at := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC).AddDate(0, 0, 7*week)
		exc := icaltest.SameUID(icaltest.Todo(), master)
		icaltest.Time(exc, ical.PropRecurrenceID, at)
		icaltest.Time(exc, ical.PropDateTimeStart, at)
		icaltest.Text(exc, ical.PropStatus, status)
		return exc
	}
	cal := icaltest.Calendar(master, makeException(1, "COMPLETED"), makeException(3, "CANCELLED"))

	s := New()
	s.Location = time.UTC
	s.Todo = ptr(true)
	s.Expand = true
	s.Start = ptr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	s.End = ptr(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))

	res, err := s.CheckComponent(cal, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Components) != 8 {
		t.Fatalf("got %d occurrences, want 8 (10 minus 2 finished exceptions)", len(res.Components))
	}
	for _, occ := range res.Components {
		if isCompletedTodo(occ) {
			t.Error("a finished exception slipped through")
		}
	}
}

func TestSearcherIsReusable(t *testing.T) {
	s := New()
	s.Todo = ptr(true)
	todo := icaltest.Todo()
	event := icaltest.Time(icaltest.Event(), ical.PropDateTimeStart, time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		if !checkMatch(t, s, todo) {
			t.Fatalf("iteration %d: todo should match", i)
		}
		if checkMatch(t, s, event) {
			t.Fatalf("iteration %d: event must not match", i)
		}
	}
	if s.Event != nil || s.Journal != nil || s.IncludeCompleted != nil {
		t.Error("evaluation must not mutate the query fields")
	}
}
