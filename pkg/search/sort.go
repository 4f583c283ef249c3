package search

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/ncruces/go-strftime"

	icalutil "github.com/sonroyaalmerol/ical-search/pkg/ical"
)

// sortTimeLayout renders date-times so that lexicographic byte order equals
// chronological order.
const sortTimeLayout = "%F%H%M%S"

// dateTimeSortProps are rendered through sortTimeLayout instead of their raw
// property text.
var dateTimeSortProps = map[string]bool{
	ical.PropDateTimeStart: true,
	ical.PropDateTimeEnd:   true,
	ical.PropDue:           true,
	ical.PropCompleted:     true,
	ical.PropCreated:       true,
	ical.PropDateTimeStamp: true,
	ical.PropLastModified:  true,
	ical.PropRecurrenceID:  true,
}

// numericSortProps compare as numbers rather than text.
var numericSortProps = map[string]bool{
	ical.PropPriority:        true,
	ical.PropSequence:        true,
	ical.PropPercentComplete: true,
}

// SortValue is one element of a component's sort tuple, either an opaque
// byte key or a number.
type SortValue struct {
	isNumber bool
	bytes    []byte
	number   float64
}

func bytesSortValue(b []byte) SortValue { return SortValue{bytes: b} }

func textSortValue(s string) SortValue { return SortValue{bytes: []byte(s)} }

func numberSortValue(f float64) SortValue { return SortValue{isNumber: true, number: f} }

func boolSortValue(b bool) SortValue {
	if b {
		return numberSortValue(1)
	}
	return numberSortValue(0)
}

// reversed inverts the ordering of a single value: numbers negate, byte keys
// complement so longer prefixes still order correctly.
func (v SortValue) reversed() SortValue {
	if v.isNumber {
		return numberSortValue(-v.number)
	}
	inv := make([]byte, len(v.bytes))
	for i, b := range v.bytes {
		inv[i] = ^b
	}
	return bytesSortValue(inv)
}

// Compare orders two values. Numbers sort before byte keys so tuples built
// from the same key list always compare element-wise without panics.
func (v SortValue) Compare(o SortValue) int {
	switch {
	case v.isNumber && o.isNumber:
		switch {
		case v.number < o.number:
			return -1
		case v.number > o.number:
			return 1
		}
		return 0
	case v.isNumber:
		return -1
	case o.isNumber:
		return 1
	}
	return bytes.Compare(v.bytes, o.bytes)
}

func compareSortTuples(a, b []SortValue) int {
	for i := range a {
		if i >= len(b) {
			return 1
		}
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	if len(a) < len(b) {
		return -1
	}
	return 0
}

// SortingValue computes the sort tuple of one input under the registered
// sort keys. The tuple compares element-wise; reverse keys are already
// inverted.
func (s *Searcher) SortingValue(component any) ([]SortValue, error) {
	cal, err := unwrap(component)
	if err != nil {
		return nil, err
	}
	var comp *ical.Component
	for _, child := range cal.Children {
		if child.Name != ical.CompTimezone {
			comp = child
			break
		}
	}
	if comp == nil {
		return nil, ErrEmptyInput
	}

	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	now := time.Now().In(loc)

	out := make([]SortValue, 0, len(s.sortKeys))
	for _, sk := range s.sortKeys {
		v, err := sortValueFor(comp, sk, loc, now)
		if err != nil {
			return nil, err
		}
		if sk.reverse {
			v = v.reversed()
		}
		out = append(out, v)
	}
	return out, nil
}

func sortValueFor(comp *ical.Component, sk sortKey, loc *time.Location, now time.Time) (SortValue, error) {
	switch sk.key {
	case "isnt_overdue":
		due, err := icalutil.PropDateTime(comp, ical.PropDue, loc)
		if err != nil {
			return SortValue{}, err
		}
		overdue := !due.IsZero() && strftime.Format(sortTimeLayout, due.Time) < strftime.Format(sortTimeLayout, now)
		return boolSortValue(!overdue), nil
	case "hasnt_started":
		start, err := icalutil.PropDateTime(comp, ical.PropDateTimeStart, loc)
		if err != nil {
			return SortValue{}, err
		}
		pending := !start.IsZero() && strftime.Format(sortTimeLayout, start.Time) > strftime.Format(sortTimeLayout, now)
		return boolSortValue(pending), nil
	case "category", "categories":
		cats := icalutil.Categories(comp)
		return bytesSortValue(sk.keyFn(strings.Join(cats, ","))), nil
	}

	name := strings.ToUpper(sk.key)
	p := comp.Props.Get(name)
	if p == nil {
		return defaultSortValue(comp, sk.key), nil
	}

	if dateTimeSortProps[name] {
		if dt, err := icalutil.ParseDateTime(p.Value, loc); err == nil {
			return textSortValue(strftime.Format(sortTimeLayout, dt.Time)), nil
		}
	}
	if numericSortProps[name] {
		if n, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64); err == nil {
			return numberSortValue(n), nil
		}
	}
	return bytesSortValue(sk.keyFn(propText(p))), nil
}

// defaultSortValue supplies the value used when a component lacks the sort
// property: todos without DUE sort far in the future, components without
// DTSTART far in the past, and STATUS falls back to the kind's initial
// state. The DUE sentinel is a fixed "2050-01-01": entries dated beyond it
// order after undated ones.
func defaultSortValue(comp *ical.Component, key string) SortValue {
	switch key {
	case "due":
		return textSortValue("2050-01-01")
	case "dtstart":
		return textSortValue("1970-01-01")
	case "priority":
		return numberSortValue(0)
	case "status":
		switch comp.Name {
		case ical.CompToDo:
			return textSortValue("NEEDS-ACTION")
		case ical.CompJournal:
			return textSortValue("FINAL")
		}
		return textSortValue("TENTATIVE")
	}
	return textSortValue("")
}

// Sort returns a stably sorted copy of items under the registered sort
// keys. Without keys it returns an unsorted copy.
func (s *Searcher) Sort(items []any) ([]any, error) {
	out := make([]any, len(items))
	copy(out, items)
	if len(s.sortKeys) == 0 {
		return out, nil
	}

	tuples := make([][]SortValue, len(out))
	for i, item := range out {
		t, err := s.SortingValue(item)
		if err != nil {
			return nil, err
		}
		tuples[i] = t
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return compareSortTuples(tuples[idx[i]], tuples[idx[j]]) < 0
	})

	sorted := make([]any, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted, nil
}
