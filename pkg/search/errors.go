package search

import "errors"

var (
	// ErrEmptyInput means a calendar or component carried no VEVENT, VTODO
	// or VJOURNAL entries to evaluate.
	ErrEmptyInput = errors.New("search: no components to evaluate")

	// ErrInvalidRecurrenceSet means a multi-component input is not a valid
	// recurrence set: the first entry must carry RRULE or RECURRENCE-ID, and
	// every later entry must be a RECURRENCE-ID override without an RRULE.
	ErrInvalidRecurrenceSet = errors.New("search: invalid recurrence set")

	// ErrMixedUIDs means the entries of one input do not share a single UID.
	ErrMixedUIDs = errors.New("search: components with differing UIDs")

	// ErrUnsupportedOperator means a property filter operator is not part of
	// the filter grammar at all.
	ErrUnsupportedOperator = errors.New("search: unsupported operator")

	// ErrNotImplemented means an operator is recognized but has no
	// implementation yet.
	ErrNotImplemented = errors.New("search: operator not implemented")
)
