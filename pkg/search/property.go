package search

import (
	"github.com/emersion/go-ical"

	icalutil "github.com/sonroyaalmerol/ical-search/pkg/ical"
)

// matchesPropertyFilters reports whether the component satisfies every
// registered property filter. skipUndef suppresses undef filters for
// synthesized occurrences whose master already passed them.
func (s *Searcher) matchesPropertyFilters(comp *ical.Component, skipUndef bool) bool {
	for _, f := range s.propFilters {
		if !matchesPropertyFilter(comp, f, skipUndef) {
			return false
		}
	}
	return true
}

func matchesPropertyFilter(comp *ical.Component, f propertyFilter, skipUndef bool) bool {
	isCategory := f.key == "category" || f.key == "categories"
	var cats []string
	if isCategory {
		cats = icalutil.Categories(comp)
	}

	switch f.op {
	case OpUndef:
		if skipUndef {
			return true
		}
		if isCategory {
			return len(cats) == 0
		}
		return !icalutil.HasProp(comp, f.key)

	case OpContains:
		switch f.key {
		case "category":
			// Singular form: substring match against each category name.
			for _, c := range cats {
				if f.contains(f.value, c) {
					return true
				}
			}
			return false
		case "categories":
			// Plural form: every requested name must be present.
			if len(cats) == 0 {
				return false
			}
			return containsAllCategories(f, cats)
		}
		p := comp.Props.Get(f.key)
		if p == nil {
			return false
		}
		return f.contains(f.value, propText(p))

	case OpEquals:
		switch f.key {
		case "category":
			for _, c := range cats {
				if f.equal(f.value, c) {
					return true
				}
			}
			return false
		case "categories":
			// Plural form: the sets must coincide.
			if len(cats) != len(f.values) {
				return false
			}
			return containsAllCategories(f, cats)
		}
		p := comp.Props.Get(f.key)
		if p == nil {
			return false
		}
		return f.equal(f.value, propText(p))
	}
	return false
}

func containsAllCategories(f propertyFilter, cats []string) bool {
	for _, want := range f.values {
		found := false
		for _, c := range cats {
			if f.equal(want, c) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// propText returns the unescaped text of a property, falling back to the
// raw value for non-text properties.
func propText(p *ical.Prop) string {
	if text, err := p.Text(); err == nil {
		return text
	}
	return p.Value
}
