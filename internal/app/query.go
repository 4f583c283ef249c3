package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/sonroyaalmerol/ical-search/pkg/search"
)

type predicate struct {
	field string
	op    search.Operator
	value string
}

// parsePredicates turns --where clauses into property filters. Supported
// forms: "PROP==value" (equality), "PROP~value" (substring) and "PROP?"
// (property absent).
func parsePredicates(wheres []string) ([]predicate, error) {
	out := make([]predicate, 0, len(wheres))
	for _, w := range wheres {
		s := strings.TrimSpace(w)
		if s == "" {
			continue
		}
		var p predicate
		switch {
		case strings.Contains(s, "=="):
			i := strings.Index(s, "==")
			p = predicate{field: s[:i], op: search.OpEquals, value: s[i+2:]}
		case strings.Contains(s, "~"):
			i := strings.Index(s, "~")
			p = predicate{field: s[:i], op: search.OpContains, value: s[i+1:]}
		case strings.HasSuffix(s, "?"):
			p = predicate{field: strings.TrimSuffix(s, "?"), op: search.OpUndef}
		default:
			return nil, fmt.Errorf("invalid where clause: %s", w)
		}
		p.field = strings.TrimSpace(p.field)
		p.value = strings.Trim(strings.TrimSpace(p.value), "\"")
		if p.field == "" {
			return nil, fmt.Errorf("invalid where clause: %s", w)
		}
		out = append(out, p)
	}
	return out, nil
}

type sortSpec struct {
	key     string
	reverse bool
}

// parseSortSpecs turns --sort values ("due", "priority:desc") into sort
// keys.
func parseSortSpecs(keys []string) ([]sortSpec, error) {
	out := make([]sortSpec, 0, len(keys))
	for _, k := range keys {
		s := strings.TrimSpace(k)
		if s == "" {
			continue
		}
		spec := sortSpec{key: s}
		if i := strings.IndexByte(s, ':'); i >= 0 {
			spec.key = s[:i]
			switch dir := strings.ToLower(s[i+1:]); dir {
			case "desc":
				spec.reverse = true
			case "asc", "":
			default:
				return nil, fmt.Errorf("invalid sort direction %q in %q", dir, k)
			}
		}
		if spec.key == "" {
			return nil, fmt.Errorf("invalid sort key: %s", k)
		}
		out = append(out, spec)
	}
	return out, nil
}

var timeLayouts = []string{
	time.RFC3339,
	"20060102T150405Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"20060102",
}

// parseTime accepts RFC 3339, iCalendar basic format and bare dates. Forms
// without an offset resolve in loc.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		var t time.Time
		var err error
		if strings.Contains(layout, "Z07") || strings.HasSuffix(layout, "Z") {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, loc)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}
