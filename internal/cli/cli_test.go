package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/triplog/internal/config"
	"github.com/roach88/triplog/internal/emoji"
	"github.com/roach88/triplog/internal/record"
)

// env is a fake process environment.
func env(vars map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, opts *RootOptions, args ...string) (string, string, error) {
	t.Helper()
	if opts.Lookup == nil {
		opts.Lookup = env(nil)
	}

	cmd := newRootCommand(opts)
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))

	err := cmd.ExecuteContext(context.Background())
	t.Cleanup(opts.stopMetrics)
	return out.String(), errOut.String(), err
}

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func date(s string) record.Date {
	d, err := record.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixedNow() time.Time {
	return time.Date(2027, 6, 1, 12, 0, 0, 0, time.UTC)
}

// seedRecords is the collection most tests start from.
func seedRecords() []record.Record {
	return []record.Record{
		{
			ID:        "1",
			Name:      "Lisbon",
			Country:   "Portugal",
			Emoji:     emoji.MustFromCountryCode("PT"),
			VisitedOn: date("2027-10-31"),
			Notes:     "Pastel de nata",
			Position:  record.Position{Lat: 38.7223, Lng: -9.1393},
		},
		{
			ID:        "2",
			Name:      "Rome",
			Country:   "Italy",
			Emoji:     emoji.MustFromCountryCode("IT"),
			VisitedOn: date("2027-05-01"),
			Position:  record.Position{Lat: 41.9, Lng: 12.5},
		},
	}
}
