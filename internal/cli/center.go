package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/triplog/internal/position"
	"github.com/roach88/triplog/internal/record"
)

// CenterOptions holds flags for the center command.
type CenterOptions struct {
	*RootOptions
	Route  string
	Locate bool
}

// CenterResult is the JSON payload of the center command.
type CenterResult struct {
	Center      record.Position  `json:"center"`
	Route       string           `json:"route,omitempty"`
	Pending     *record.Position `json:"pending,omitempty"`
	Geolocation *record.Position `json:"geolocation,omitempty"`
}

// NewCenterCommand creates the center command.
func NewCenterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CenterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "center",
		Short: "Print where the map would be centered",
		Long: `Resolve the map center from a route and, optionally, the host position.

A geolocation fix wins over lat/lng in the route; with neither the map
centers on 40,0. On the form route the lat/lng pair is also the pending
coordinate of a new city.

Example:
  triplog center --route "form?lat=38.72&lng=-9.14"
  triplog center --locate`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCenter(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Route, "route", "", `current route, e.g. "form?lat=1&lng=2"`)
	cmd.Flags().BoolVar(&opts.Locate, "locate", false, "request the host position (home or GeoIP)")

	return cmd
}

func runCenter(opts *CenterOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loc, closeLoc, err := opts.locator()
	if err != nil {
		return err
	}
	defer closeLoc()

	resolver := position.NewResolver(loc, position.WithLogger(opts.Logger))
	if opts.Route != "" {
		if err := resolver.Navigate(opts.Route); err != nil {
			_ = formatter.Error(CodeConfig, "invalid --route", err.Error())
			return WrapExitError(ExitCommandError, "invalid --route", err)
		}
	}
	if opts.Locate {
		if err := resolver.GetPosition(cmd.Context()); err != nil {
			return formatter.Fail(ExitFailure, resolver.State().Error, err)
		}
	}

	st := resolver.State()
	result := CenterResult{
		Center:      st.Center,
		Route:       st.Route,
		Pending:     st.Pending,
		Geolocation: st.Geolocation,
	}
	return formatter.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "center:      %s\n", result.Center)
		if result.Pending != nil {
			fmt.Fprintf(w, "pending:     %s\n", result.Pending)
		}
		if result.Geolocation != nil {
			fmt.Fprintf(w, "geolocation: %s\n", result.Geolocation)
		}
	})
}
