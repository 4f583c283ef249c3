// Package app implements the ical-search command line interface: it builds
// a search query from flags, runs it over iCalendar files or stdin, and
// writes the matching calendars back out as iCalendar.
package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sonroyaalmerol/ical-search/internal/logging"
	"github.com/sonroyaalmerol/ical-search/pkg/collation"
	"github.com/sonroyaalmerol/ical-search/pkg/search"
)

type options struct {
	event   bool
	todo    bool
	journal bool

	start      string
	end        string
	alarmStart string
	alarmEnd   string

	includeCompleted bool
	expand           bool
	splitExpanded    bool

	wheres   []string
	sortKeys []string

	collation string
	locale    string
	timezone  string

	maxOccurrences int
	logLevel       string
}

// Execute runs the root command and returns a process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ical-search:", err)
		return 1
	}
	return 0
}

func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "ical-search [flags] [file.ics ...]",
		Short: "Filter, expand and sort iCalendar data",
		Long: `ical-search reads iCalendar files (or stdin) and writes the components
matching the query back out as iCalendar. Recurring components can be
expanded into concrete occurrences within the queried time range.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	f := root.Flags()
	f.BoolVar(&opts.event, "event", false, "Match VEVENT components")
	f.BoolVar(&opts.todo, "todo", false, "Match VTODO components")
	f.BoolVar(&opts.journal, "journal", false, "Match VJOURNAL components")
	f.StringVar(&opts.start, "start", "", "Range start (RFC 3339, 20060102T150405Z or 2006-01-02)")
	f.StringVar(&opts.end, "end", "", "Range end")
	f.StringVar(&opts.alarmStart, "alarm-start", "", "Alarm trigger range start")
	f.StringVar(&opts.alarmEnd, "alarm-end", "", "Alarm trigger range end")
	f.BoolVar(&opts.includeCompleted, "include-completed", false, "Keep completed and cancelled todos")
	f.BoolVar(&opts.expand, "expand", false, "Expand recurring components into occurrences")
	f.BoolVar(&opts.splitExpanded, "split-expanded", false, "Emit each occurrence as its own calendar (implies --expand)")
	f.StringArrayVar(&opts.wheres, "where", nil, `Property filter: "PROP==value", "PROP~value" or "PROP?"`)
	f.StringArrayVar(&opts.sortKeys, "sort", nil, `Sort key, e.g. "due" or "priority:desc"`)
	f.StringVar(&opts.collation, "collation", string(collation.Binary), "Text collation: binary|case-insensitive|unicode|locale")
	f.StringVar(&opts.locale, "locale", "", `Locale for --collation=locale, e.g. "de_DE"`)
	f.StringVar(&opts.timezone, "tz", "", "IANA timezone for dates and floating times (default local)")
	f.IntVar(&opts.maxOccurrences, "max-occurrences", 0, "Cap on expanded occurrences per component (0 = default)")
	f.StringVar(&opts.logLevel, "log-level", "warn", "Log level: trace|debug|info|warn|error")

	return root
}

// buildSearcher resolves flags into a configured Searcher. Kind and
// include-completed flags only take effect when set explicitly, so their
// tri-state defaults stay intact.
func buildSearcher(cmd *cobra.Command, opts *options) (*search.Searcher, error) {
	s := search.New()
	s.Logger = logging.New(opts.logLevel, cmd.ErrOrStderr())

	loc := time.Local
	if opts.timezone != "" {
		var err error
		if loc, err = time.LoadLocation(opts.timezone); err != nil {
			return nil, fmt.Errorf("invalid timezone: %w", err)
		}
	}
	s.Location = loc

	flagBool := func(name string, v bool) *bool {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		return &v
	}
	s.Event = flagBool("event", opts.event)
	s.Todo = flagBool("todo", opts.todo)
	s.Journal = flagBool("journal", opts.journal)
	s.IncludeCompleted = flagBool("include-completed", opts.includeCompleted)

	flagTime := func(name, v string) (*time.Time, error) {
		if v == "" {
			return nil, nil
		}
		t, err := parseTime(v, loc)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", name, err)
		}
		return &t, nil
	}
	var err error
	if s.Start, err = flagTime("start", opts.start); err != nil {
		return nil, err
	}
	if s.End, err = flagTime("end", opts.end); err != nil {
		return nil, err
	}
	if s.AlarmStart, err = flagTime("alarm-start", opts.alarmStart); err != nil {
		return nil, err
	}
	if s.AlarmEnd, err = flagTime("alarm-end", opts.alarmEnd); err != nil {
		return nil, err
	}

	s.Expand = opts.expand || opts.splitExpanded
	s.MaxOccurrences = opts.maxOccurrences

	coll := collation.Collation(opts.collation)
	preds, err := parsePredicates(opts.wheres)
	if err != nil {
		return nil, err
	}
	for _, p := range preds {
		if err := s.AddPropertyFilter(p.field, p.value, p.op, coll, opts.locale); err != nil {
			return nil, err
		}
	}
	specs, err := parseSortSpecs(opts.sortKeys)
	if err != nil {
		return nil, err
	}
	for _, spec := range specs {
		if err := s.AddSortKey(spec.key, spec.reverse, coll, opts.locale); err != nil {
			return nil, err
		}
	}
	return s, nil
}
