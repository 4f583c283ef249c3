package app

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sonroyaalmerol/ical-search/pkg/search"
)

func TestParsePredicates(t *testing.T) {
	got, err := parsePredicates([]string{
		"SUMMARY~review",
		`STATUS=="NEEDS-ACTION"`,
		"LOCATION?",
		"  ",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []predicate{
		{field: "SUMMARY", op: search.OpContains, value: "review"},
		{field: "STATUS", op: search.OpEquals, value: "NEEDS-ACTION"},
		{field: "LOCATION", op: search.OpUndef},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(predicate{})); diff != "" {
		t.Errorf("predicates mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePredicatesInvalid(t *testing.T) {
	for _, in := range []string{"SUMMARY", "==value", "?"} {
		if _, err := parsePredicates([]string{in}); err == nil {
			t.Errorf("parsePredicates(%q) should fail", in)
		}
	}
}

func TestParseSortSpecs(t *testing.T) {
	got, err := parseSortSpecs([]string{"due", "priority:desc", "summary:asc"})
	if err != nil {
		t.Fatal(err)
	}
	want := []sortSpec{
		{key: "due"},
		{key: "priority", reverse: true},
		{key: "summary"},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(sortSpec{})); diff != "" {
		t.Errorf("sort specs mismatch (-want +got):\n%s", diff)
	}

	if _, err := parseSortSpecs([]string{"due:sideways"}); err == nil {
		t.Error("bad direction should fail")
	}
}

func TestParseTime(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-06-14T09:30:00Z", time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC)},
		{"20250614T093000Z", time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC)},
		{"2025-06-14T09:30:00", time.Date(2025, 6, 14, 9, 30, 0, 0, berlin)},
		{"2025-06-14", time.Date(2025, 6, 14, 0, 0, 0, 0, berlin)},
		{"20250614", time.Date(2025, 6, 14, 0, 0, 0, 0, berlin)},
	}
	for _, tt := range tests {
		got, err := parseTime(tt.in, berlin)
		if err != nil {
			t.Fatalf("parseTime(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := parseTime("yesterday", berlin); err == nil {
		t.Error("unparseable time should fail")
	}
}
