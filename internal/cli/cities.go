package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/triplog/internal/cities"
	"github.com/roach88/triplog/internal/record"
)

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Count  int             `json:"count"`
	Cities []record.Record `json:"cities"`
}

// DeleteResult is the JSON payload of the delete command.
type DeleteResult struct {
	Deleted   record.ID `json:"deleted"`
	Remaining int       `json:"remaining"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List visited cities",
		Long: `Fetch the whole collection and print one line per city.

Example:
  triplog list
  triplog list --format json --api-url http://localhost:8000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sess, release, err := opts.mountSession(cmd.Context())
	if sess == nil {
		return err
	}
	defer release()
	if err != nil {
		return formatter.Fail(ExitFailure, sess.Cities().Err(), err)
	}

	records := sess.Cities().Records()
	formatter.VerboseLog("Loaded %d record(s) from %s", len(records), opts.Config.APIURL)

	result := ListResult{Count: len(records), Cities: records}
	return formatter.Success(result, func(w io.Writer) {
		if len(records) == 0 {
			fmt.Fprintln(w, "No cities yet. Add your first city by clicking on a city on the map.")
			return
		}
		fmt.Fprintf(w, "%d %s\n", len(records), plural(len(records), "city", "cities"))
		for _, r := range records {
			fmt.Fprintf(w, "  %-4s %s\n", r.ID, cityLine(r))
		}
	})
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one city",
		Long: `Fetch a single city by id and print it.

Example:
  triplog show 73930385`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, cmd, args[0])
		},
	}
}

func runShow(opts *RootOptions, cmd *cobra.Command, id record.ID) error {
	formatter := opts.formatter(cmd)

	sess, release, err := opts.mountSession(cmd.Context())
	if sess == nil {
		return err
	}
	defer release()
	if err != nil {
		formatter.VerboseLog("Initial load failed: %v", err)
	}

	store := sess.Cities()
	if err := store.Get(cmd.Context(), id); err != nil {
		return formatter.Fail(ExitFailure, failureMessage(store, cities.MsgFetchCity), err)
	}
	current, ok := store.Current()
	if !ok {
		return formatter.Fail(ExitFailure, cities.MsgFetchCity, nil)
	}

	return formatter.Success(current, func(w io.Writer) {
		fmt.Fprintln(w, cityLine(current))
		fmt.Fprintf(w, "  id:       %s\n", current.ID)
		fmt.Fprintf(w, "  visited:  %s\n", current.VisitedOn)
		fmt.Fprintf(w, "  position: %s\n", current.Position)
		if current.Notes != "" {
			fmt.Fprintf(w, "  notes:    %s\n", current.Notes)
		}
	})
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a city",
		Long: `Delete a city from the remote collection.

Example:
  triplog delete 73930385`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, cmd, args[0])
		},
	}
}

func runDelete(opts *RootOptions, cmd *cobra.Command, id record.ID) error {
	formatter := opts.formatter(cmd)

	sess, release, err := opts.mountSession(cmd.Context())
	if sess == nil {
		return err
	}
	defer release()
	if err != nil {
		formatter.VerboseLog("Initial load failed: %v", err)
	}

	store := sess.Cities()
	if err := store.Delete(cmd.Context(), id); err != nil {
		return formatter.Fail(ExitFailure, failureMessage(store, cities.MsgDeleteCity), err)
	}

	result := DeleteResult{Deleted: id, Remaining: len(store.Records())}
	return formatter.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Deleted city %s (%d remaining)\n", result.Deleted, result.Remaining)
	})
}

// failureMessage prefers the message the store recorded for the failure.
func failureMessage(store *cities.Store, fallback string) string {
	if msg := store.Err(); msg != "" {
		return msg
	}
	return fallback
}

// cityLine renders "🇵🇹 Lisbon, Portugal  2027-10-31  38.72,-9.14".
func cityLine(r record.Record) string {
	name := r.Name
	if r.Emoji != "" {
		name = r.Emoji + " " + name
	}
	if r.Country != "" {
		name += ", " + r.Country
	}
	return fmt.Sprintf("%s  %s  %s", name, r.VisitedOn, r.Position)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
