// Package collation selects text comparison and sort-key functions for
// calendar property matching and sorting.
//
// Binary and case-insensitive collations are plain byte/fold comparisons.
// The Unicode and Locale collations use the Unicode Collation Algorithm
// via golang.org/x/text, with Locale applying CLDR tailoring for a given
// locale identifier (e.g. "de_DE").
package collation

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/search"
)

// Collation identifies a text comparison strategy.
type Collation string

const (
	// Binary compares byte-for-byte (case-sensitive). This is the default.
	Binary Collation = "binary"
	// CaseInsensitive compares with simple Unicode case folding.
	CaseInsensitive Collation = "case-insensitive"
	// Unicode uses the UCA root collation, ignoring case.
	Unicode Collation = "unicode"
	// Locale uses CLDR collation rules for a specific locale, ignoring case.
	// Requires a locale identifier.
	Locale Collation = "locale"
)

var (
	ErrUnknown       = errors.New("collation: unknown collation")
	ErrMissingLocale = errors.New("collation: locale collation requires a locale")
)

// ContainsFunc returns a substring predicate: it reports whether needle
// occurs in haystack under the given collation.
func ContainsFunc(c Collation, locale string) (func(needle, haystack string) bool, error) {
	switch c {
	case Binary, "":
		return func(needle, haystack string) bool {
			return strings.Contains(haystack, needle)
		}, nil
	case CaseInsensitive:
		return func(needle, haystack string) bool {
			return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
		}, nil
	case Unicode, Locale:
		tag, err := parseTag(c, locale)
		if err != nil {
			return nil, err
		}
		m := search.New(tag, search.IgnoreCase)
		return func(needle, haystack string) bool {
			start, _ := m.IndexString(haystack, needle)
			return start >= 0
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknown, c)
	}
}

// EqualFunc returns an equality predicate under the given collation.
// For Unicode and Locale collations two strings are equal when their
// collation sort keys are equal.
func EqualFunc(c Collation, locale string) (func(a, b string) bool, error) {
	switch c {
	case Binary, "":
		return func(a, b string) bool { return a == b }, nil
	case CaseInsensitive:
		return strings.EqualFold, nil
	case Unicode, Locale:
		tag, err := parseTag(c, locale)
		if err != nil {
			return nil, err
		}
		col := collate.New(tag, collate.IgnoreCase)
		return func(a, b string) bool {
			return col.CompareString(a, b) == 0
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknown, c)
	}
}

// SortKeyFunc returns a function producing an opaque byte sequence that
// sorts the way the collation orders strings.
func SortKeyFunc(c Collation, locale string) (func(s string) []byte, error) {
	switch c {
	case Binary, "":
		return func(s string) []byte { return []byte(s) }, nil
	case CaseInsensitive:
		return func(s string) []byte { return []byte(strings.ToLower(s)) }, nil
	case Unicode, Locale:
		tag, err := parseTag(c, locale)
		if err != nil {
			return nil, err
		}
		col := collate.New(tag, collate.IgnoreCase)
		var buf collate.Buffer
		return func(s string) []byte {
			key := col.KeyFromString(&buf, s)
			out := bytes.Clone(key)
			buf.Reset()
			return out
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknown, c)
	}
}

func parseTag(c Collation, locale string) (language.Tag, error) {
	if c == Unicode {
		return language.Und, nil
	}
	if locale == "" {
		return language.Und, ErrMissingLocale
	}
	// Accept both CLDR-style "de_DE" and BCP 47 "de-DE".
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return language.Und, fmt.Errorf("collation: bad locale %q: %w", locale, err)
	}
	return tag, nil
}
