// Package search filters, expands and sorts iCalendar components. A
// Searcher is configured once (component kinds, time windows, property
// filters, sort keys) and then evaluated against any number of calendars or
// bare components.
package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/ical-search/pkg/collation"
	icalutil "github.com/sonroyaalmerol/ical-search/pkg/ical"
)

// Operator is a property filter comparison.
type Operator string

const (
	// OpContains matches when the filter value occurs as a substring of the
	// property text. For category filters it is a membership/subset test.
	OpContains Operator = "contains"
	// OpEquals matches when the property text equals the filter value.
	OpEquals Operator = "=="
	// OpUndef matches when the property is absent from the component.
	OpUndef Operator = "undef"
)

// reservedOperators are part of the filter grammar but have no
// implementation yet. Registering one fails with ErrNotImplemented so
// callers never silently get contains semantics for a comparison they
// didn't ask for.
var reservedOperators = map[Operator]bool{
	"~": true, "<": true, ">": true, "<=": true, ">=": true,
	"!=": true, "<>": true, "def": true,
}

type propertyFilter struct {
	key    string
	op     Operator
	value  string
	values []string

	contains func(needle, haystack string) bool
	equal    func(a, b string) bool
}

type sortKey struct {
	key     string
	reverse bool
	keyFn   func(s string) []byte
}

// Searcher holds a query. The zero value matches every VEVENT, VTODO and
// VJOURNAL; fields narrow it down. Component kind flags are tri-state: when
// any flag is explicitly true, unset flags default to false, otherwise all
// kinds are accepted.
type Searcher struct {
	Event   *bool
	Todo    *bool
	Journal *bool

	// Start and End bound the component time range. Either may be nil for
	// an open end.
	Start *time.Time
	End   *time.Time

	// AlarmStart and AlarmEnd bound alarm trigger instants.
	AlarmStart *time.Time
	AlarmEnd   *time.Time

	// IncludeCompleted controls whether completed or cancelled todos
	// survive. When nil it defaults to false if Todo is explicitly true,
	// true otherwise.
	IncludeCompleted *bool

	// Expand replaces matching recurring components by their concrete
	// occurrences inside [Start, End].
	Expand bool

	// Location resolves date-only and floating timestamps. Defaults to
	// time.Local.
	Location *time.Location

	// MaxOccurrences caps recurrence expansion per component. Zero uses
	// the package default.
	MaxOccurrences int

	Logger zerolog.Logger

	propFilters []propertyFilter
	sortKeys    []sortKey
}

// New returns a Searcher that matches everything and logs nowhere.
func New() *Searcher {
	return &Searcher{Logger: zerolog.Nop()}
}

// AddPropertyFilter registers a filter on the named property. For OpUndef
// the value is ignored. The keys "category" (singular, substring against
// each name) and "categories" (plural, set semantics against the split
// CATEGORIES value) are special; any other key names a property verbatim.
func (s *Searcher) AddPropertyFilter(key, value string, op Operator, coll collation.Collation, locale string) error {
	switch op {
	case OpContains, OpEquals, OpUndef:
	default:
		if reservedOperators[op] {
			return fmt.Errorf("%w: %q", ErrNotImplemented, op)
		}
		return fmt.Errorf("%w: %q", ErrUnsupportedOperator, op)
	}

	f := propertyFilter{op: op}
	switch k := strings.ToLower(key); k {
	case "category", "categories":
		f.key = k
	default:
		f.key = strings.ToUpper(key)
	}

	if op != OpUndef {
		f.value = value
		if f.key == "categories" {
			for _, part := range strings.Split(value, ",") {
				if part = strings.TrimSpace(part); part != "" {
					f.values = append(f.values, part)
				}
			}
		}
		var err error
		if f.contains, err = collation.ContainsFunc(coll, locale); err != nil {
			return err
		}
		if f.equal, err = collation.EqualFunc(coll, locale); err != nil {
			return err
		}
	}

	s.propFilters = append(s.propFilters, f)
	return nil
}

// AddSortKey appends a sort key. Keys are applied in registration order;
// reverse inverts the ordering of this key only.
func (s *Searcher) AddSortKey(key string, reverse bool, coll collation.Collation, locale string) error {
	fn, err := collation.SortKeyFunc(coll, locale)
	if err != nil {
		return err
	}
	s.sortKeys = append(s.sortKeys, sortKey{
		key:     strings.ToLower(key),
		reverse: reverse,
		keyFn:   fn,
	})
	return nil
}

// resolvedQuery is the per-evaluation view of the Searcher fields, with all
// tri-state defaults settled. Evaluation never mutates the Searcher itself,
// so one Searcher can be reused across inputs and goroutines.
type resolvedQuery struct {
	start, end           *time.Time
	alarmStart, alarmEnd *time.Time

	kinds            map[string]bool
	allKinds         bool
	includeCompleted bool
	loc              *time.Location
}

func (s *Searcher) resolve() resolvedQuery {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}

	includeCompleted := s.Todo == nil || !*s.Todo
	if s.IncludeCompleted != nil {
		includeCompleted = *s.IncludeCompleted
	}

	anyTrue := (s.Event != nil && *s.Event) ||
		(s.Todo != nil && *s.Todo) ||
		(s.Journal != nil && *s.Journal)
	flag := func(f *bool) bool {
		if f != nil {
			return *f
		}
		return !anyTrue
	}
	kinds := map[string]bool{
		ical.CompEvent:   flag(s.Event),
		ical.CompToDo:    flag(s.Todo),
		ical.CompJournal: flag(s.Journal),
	}

	return resolvedQuery{
		start:            s.Start,
		end:              s.End,
		alarmStart:       s.AlarmStart,
		alarmEnd:         s.AlarmEnd,
		kinds:            kinds,
		allKinds:         kinds[ical.CompEvent] && kinds[ical.CompToDo] && kinds[ical.CompJournal],
		includeCompleted: includeCompleted,
		loc:              loc,
	}
}

func (q resolvedQuery) window() (time.Time, time.Time) {
	start, end := icalutil.DateMin, icalutil.DateMax
	if q.start != nil {
		start = *q.start
	}
	if q.end != nil {
		end = *q.end
	}
	return start, end
}

// MatchResult is the outcome of evaluating one input.
type MatchResult struct {
	// Matched reports whether the input satisfies the query.
	Matched bool
	// Components holds the matching occurrences when Expand is set, or the
	// validated original components otherwise. Empty when Matched is false.
	Components []*ical.Component
}

// CheckComponent evaluates one input (calendar, bare component or
// CalendarHolder) against the query. With expandOnly set, filtering is
// skipped and only recurrence expansion applies; combined with an unset
// Expand flag the input passes through validated but untouched.
func (s *Searcher) CheckComponent(component any, expandOnly bool) (MatchResult, error) {
	comps, err := normalizeComponents(component)
	if err != nil {
		return MatchResult{}, err
	}
	if expandOnly && !s.Expand {
		return MatchResult{Matched: true, Components: comps}, nil
	}

	q := s.resolve()
	working := comps

	// A recurring master whose static properties already fail can never
	// contribute occurrences, but its exception overrides still can: drop
	// the master from the working set and remember that override-only
	// occurrences must not get the undef shortcut below.
	masterPassed := true
	recurring := icalutil.IsRecurring(comps[0])
	if recurring && !expandOnly {
		if !s.staticMatch(comps[0], q) {
			working = working[1:]
			masterPassed = false
		}
	}

	expanded := false
	if recurring && len(working) > 0 {
		kinds := q.kinds
		if expandOnly {
			kinds = map[string]bool{
				ical.CompEvent:   true,
				ical.CompToDo:    true,
				ical.CompJournal: true,
			}
		}
		exp := icalutil.NewExpander(q.loc, s.Logger)
		exp.MaxOccurrences = s.MaxOccurrences
		wstart, wend := q.window()
		working, err = exp.Expand(working, kinds, wstart, wend)
		if err != nil {
			return MatchResult{}, err
		}
		expanded = true
	}

	if !expandOnly {
		// Synthesized occurrences inherit every static property from a
		// master that already passed, so re-running undef filters against
		// them can only flip on properties the expansion added (like
		// RECURRENCE-ID); skip them in that case.
		skipUndef := expanded && masterPassed
		working, err = s.applyFilters(working, q, skipUndef)
		if err != nil {
			return MatchResult{}, err
		}
	}

	if s.Expand {
		return MatchResult{Matched: len(working) > 0, Components: working}, nil
	}
	if len(working) == 0 {
		return MatchResult{}, nil
	}
	return MatchResult{Matched: true, Components: comps}, nil
}

// staticMatch runs the filters that do not depend on occurrence times:
// component kind, completed-todo exclusion and property filters.
func (s *Searcher) staticMatch(comp *ical.Component, q resolvedQuery) bool {
	if !q.allKinds && !q.kinds[comp.Name] {
		return false
	}
	if !q.includeCompleted && isCompletedTodo(comp) {
		return false
	}
	return s.matchesPropertyFilters(comp, false)
}

// applyFilters keeps the candidates that pass the whole filter pipeline:
// time range, kind, completed todos, property filters, alarm range.
func (s *Searcher) applyFilters(candidates []*ical.Component, q resolvedQuery, skipUndef bool) ([]*ical.Component, error) {
	var out []*ical.Component
	for _, comp := range candidates {
		if q.start != nil || q.end != nil {
			ok, err := matchesTimeRange(comp, q)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		if !q.allKinds && !q.kinds[comp.Name] {
			continue
		}
		if !q.includeCompleted && isCompletedTodo(comp) {
			continue
		}
		if !s.matchesPropertyFilters(comp, skipUndef) {
			continue
		}
		if q.alarmStart != nil || q.alarmEnd != nil {
			if !s.matchesAlarmRange(comp, q) {
				continue
			}
		}
		out = append(out, comp)
	}
	return out, nil
}

// isCompletedTodo reports whether a VTODO is finished: STATUS COMPLETED or
// CANCELLED, or a COMPLETED timestamp.
func isCompletedTodo(comp *ical.Component) bool {
	if comp.Name != ical.CompToDo {
		return false
	}
	if p := comp.Props.Get(ical.PropStatus); p != nil {
		switch strings.ToUpper(strings.TrimSpace(p.Value)) {
		case "COMPLETED", "CANCELLED":
			return true
		}
	}
	return icalutil.HasProp(comp, ical.PropCompleted)
}
