package ical

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses an RFC 5545 duration ("P1D", "-PT30M", "P2W",
// "P1DT12H"). The sign prefix matters for alarm triggers, which are usually
// negative offsets.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	orig := s

	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("invalid duration %q", orig)
	}

	var weeks, days, hours, minutes, seconds int
	var inTime bool
	var current strings.Builder

	for _, r := range s[1:] {
		switch r {
		case 'W':
			if n, err := strconv.Atoi(current.String()); err == nil {
				weeks = n
			}
			current.Reset()
		case 'D':
			if n, err := strconv.Atoi(current.String()); err == nil {
				days = n
			}
			current.Reset()
		case 'T':
			inTime = true
			current.Reset()
		case 'H':
			if inTime {
				if n, err := strconv.Atoi(current.String()); err == nil {
					hours = n
				}
			}
			current.Reset()
		case 'M':
			if inTime {
				if n, err := strconv.Atoi(current.String()); err == nil {
					minutes = n
				}
			}
			current.Reset()
		case 'S':
			if inTime {
				if n, err := strconv.Atoi(current.String()); err == nil {
					seconds = n
				}
			}
			current.Reset()
		default:
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("invalid duration %q", orig)
			}
			current.WriteRune(r)
		}
	}

	d := time.Duration(weeks)*7*24*time.Hour +
		time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second
	if neg {
		d = -d
	}
	return d, nil
}

// IsDuration reports whether a property value is a duration rather than an
// absolute date-time, which is how alarm TRIGGER values distinguish relative
// from absolute triggers.
func IsDuration(value string) bool {
	v := strings.TrimSpace(value)
	v = strings.TrimPrefix(v, "-")
	v = strings.TrimPrefix(v, "+")
	return strings.HasPrefix(v, "P")
}
