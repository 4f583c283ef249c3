package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/emersion/go-ical"
	"github.com/spf13/cobra"
)

// run executes the query over every input and writes matching calendars to
// stdout. With no file arguments the calendar stream is read from stdin.
func run(cmd *cobra.Command, opts *options, args []string) error {
	searcher, err := buildSearcher(cmd, opts)
	if err != nil {
		return err
	}

	var cals []*ical.Calendar
	if len(args) == 0 {
		if cals, err = decodeStream(cmd.InOrStdin()); err != nil {
			return fmt.Errorf("stdin: %w", err)
		}
	} else {
		for _, path := range args {
			if path == "-" {
				read, err := decodeStream(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("stdin: %w", err)
				}
				cals = append(cals, read...)
				continue
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			read, err := decodeStream(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			cals = append(cals, read...)
		}
	}

	items := make([]any, len(cals))
	for i, cal := range cals {
		items[i] = cal
	}

	matched, err := searcher.Filter(items, opts.splitExpanded)
	if err != nil {
		return err
	}
	if len(opts.sortKeys) > 0 {
		if matched, err = searcher.Sort(matched); err != nil {
			return err
		}
	}

	enc := ical.NewEncoder(cmd.OutOrStdout())
	for _, item := range matched {
		cal, ok := item.(*ical.Calendar)
		if !ok {
			continue
		}
		if err := enc.Encode(cal); err != nil {
			return err
		}
	}
	return nil
}

// decodeStream reads every calendar from a concatenated iCalendar stream.
func decodeStream(r io.Reader) ([]*ical.Calendar, error) {
	dec := ical.NewDecoder(r)
	var out []*ical.Calendar
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, cal)
	}
}
