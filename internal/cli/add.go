package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/triplog/internal/cities"
	"github.com/roach88/triplog/internal/draft"
	"github.com/roach88/triplog/internal/record"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Lat        float64
	Lng        float64
	Name       string
	Date       string
	Notes      string
	GeocodeURL string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a city from a point on the map",
		Long: `Reverse-geocode a point and save it as a visited city.

The point fills in the city name, country and flag. The name, visit date
and notes can be overridden; the visit date defaults to today. Points that
are not inside a country (open sea, poles) are refused.

Example:
  triplog add --lat 38.7279 --lng -9.1409
  triplog add --lat 41.9 --lng 12.5 --date 2027-05-01 --notes "Gelato"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Lat, "lat", 0, "latitude of the point (required)")
	cmd.Flags().Float64Var(&opts.Lng, "lng", 0, "longitude of the point (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "city name (defaults to the geocoded name)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "visit date, YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes about the trip")
	cmd.Flags().StringVar(&opts.GeocodeURL, "geocode-url", "", "reverse geocoding base URL (overrides config)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	return cmd
}

func runAdd(opts *AddOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	point := record.Position{Lat: opts.Lat, Lng: opts.Lng}
	if !point.Valid() {
		_ = formatter.Error(CodeInvalid, fmt.Sprintf("position %s is out of range", point), nil)
		return NewExitError(ExitCommandError, "invalid position")
	}
	var visited record.Date
	if opts.Date != "" {
		d, err := record.ParseDate(opts.Date)
		if err != nil {
			_ = formatter.Error(CodeInvalid, "invalid --date", err.Error())
			return WrapExitError(ExitCommandError, "invalid --date", err)
		}
		visited = d
	}

	sess, release, err := opts.mountSession(ctx)
	if sess == nil {
		return err
	}
	defer release()
	if err != nil {
		formatter.VerboseLog("Initial load failed: %v", err)
	}

	geo, closeGeo, err := opts.geocoder(ctx, opts.GeocodeURL)
	if err != nil {
		return err
	}
	defer closeGeo()

	// Clicking the map routes to the creation view with the point in the URL;
	// the form reads its pending coordinate from there.
	resolver := sess.Position()
	target, err := resolver.Click(point)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid position", err)
	}
	formatter.VerboseLog("Navigated to %s", target)
	pending, _ := resolver.Pending()

	form := draft.New(geo, sess.Cities(), opts.Now, draft.WithLogger(opts.Logger))
	d, err := form.Prepare(ctx, &pending)
	if err != nil {
		return formatter.Fail(ExitFailure, draft.Message(err), err)
	}
	formatter.VerboseLog("Geocoded %s as %q (%s)", pending, d.Name, d.Country)

	if opts.Name != "" {
		d.Name = opts.Name
	}
	if !visited.IsZero() {
		d.VisitedOn = visited
	}
	d.Notes = opts.Notes

	created, err := form.Submit(ctx, d)
	if errors.Is(err, draft.ErrIncomplete) {
		return formatter.Fail(ExitCommandError, "No city name for this point; pass --name", err)
	}
	if err != nil {
		return formatter.Fail(ExitFailure, failureMessage(sess.Cities(), cities.MsgCreateCity), err)
	}

	return formatter.Success(created, func(w io.Writer) {
		fmt.Fprintf(w, "Added city %s: %s\n", created.ID, cityLine(created))
	})
}
