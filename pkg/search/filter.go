package search

import (
	"github.com/emersion/go-ical"

	icalutil "github.com/sonroyaalmerol/ical-search/pkg/ical"
)

// Filter evaluates each item (calendar, bare component or CalendarHolder)
// and returns the survivors in a new slice. Without Expand, survivors are
// the original items. With Expand, matched calendars are rebuilt around
// their matching occurrences, keeping the calendar's own properties and
// VTIMEZONE subcomponents; splitExpanded additionally puts each occurrence
// into a calendar of its own. Bare component items expand to bare
// occurrence components.
func (s *Searcher) Filter(items []any, splitExpanded bool) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		res, err := s.CheckComponent(item, false)
		if err != nil {
			return nil, err
		}
		if !res.Matched {
			continue
		}
		if !s.Expand {
			out = append(out, item)
			continue
		}

		if comp, ok := item.(*ical.Component); ok && comp.Name != ical.CompCalendar {
			for _, occ := range res.Components {
				out = append(out, occ)
			}
			continue
		}

		cal, err := unwrap(item)
		if err != nil {
			return nil, err
		}
		if splitExpanded {
			for _, occ := range res.Components {
				out = append(out, rebuildCalendar(cal, []*ical.Component{occ}))
			}
		} else {
			out = append(out, rebuildCalendar(cal, res.Components))
		}
	}
	return out, nil
}

// FilterCalendar evaluates the subcomponents of a single calendar, grouped
// by UID so recurrence sets stay together, and returns a new calendar
// holding only the matching groups (or their occurrences when Expand is
// set). Returns nil when nothing matches.
func (s *Searcher) FilterCalendar(cal *ical.Calendar) (*ical.Calendar, error) {
	type group struct {
		uid   string
		comps []*ical.Component
	}
	var groups []*group
	byUID := make(map[string]*group)
	for _, child := range cal.Children {
		if child.Name == ical.CompTimezone {
			continue
		}
		uid := icalutil.UID(child)
		g := byUID[uid]
		if g == nil {
			g = &group{uid: uid}
			byUID[uid] = g
			groups = append(groups, g)
		}
		g.comps = append(g.comps, child)
	}

	var matched []*ical.Component
	for _, g := range groups {
		probe := &ical.Calendar{Component: &ical.Component{
			Name:     ical.CompCalendar,
			Props:    make(ical.Props),
			Children: g.comps,
		}}
		res, err := s.CheckComponent(probe, false)
		if err != nil {
			return nil, err
		}
		if !res.Matched {
			continue
		}
		if s.Expand {
			matched = append(matched, res.Components...)
		} else {
			matched = append(matched, g.comps...)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}
	return rebuildCalendar(cal, matched), nil
}

// rebuildCalendar wraps components in a fresh calendar carrying the
// original's properties and VTIMEZONE definitions.
func rebuildCalendar(orig *ical.Calendar, comps []*ical.Component) *ical.Calendar {
	root := &ical.Component{
		Name:  ical.CompCalendar,
		Props: icalutil.CloneProps(orig.Props),
	}
	for _, child := range orig.Children {
		if child.Name == ical.CompTimezone {
			root.Children = append(root.Children, icalutil.CloneComponent(child))
		}
	}
	root.Children = append(root.Children, comps...)
	return &ical.Calendar{Component: root}
}
