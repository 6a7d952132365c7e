package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/triplog/internal/cities"
	"github.com/roach88/triplog/internal/journal"
	"github.com/roach88/triplog/internal/record"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Session  string
}

// JournalEntry is one action in the journal command output.
type JournalEntry struct {
	Seq     int64           `json:"seq"`
	Kind    cities.Kind     `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JournalState is the replayed collection state.
type JournalState struct {
	Records []record.Record `json:"records"`
	Current *record.Record  `json:"current,omitempty"`
	Loading bool            `json:"loading"`
	Error   string          `json:"error,omitempty"`
}

// JournalResult is the JSON payload of the journal command for one session.
type JournalResult struct {
	Session string         `json:"session"`
	Entries []JournalEntry `json:"entries"`
	State   JournalState   `json:"state"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the recorded actions of past sessions",
		Long: `Read the action journal.

Without --session, lists the recorded sessions. With --session, prints the
session's actions in order and the collection state they fold into.

Example:
  triplog journal --db ./triplog.db
  triplog journal --db ./triplog.db --session 019a...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal database (defaults to the configured journal)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session token to replay")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	path := opts.Database
	if path == "" {
		path = opts.Config.Journal
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no journal: pass --db or set journal in the config")
	}
	// Opening creates the file, so check first to report a typo instead.
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}

	j, err := journal.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer j.Close()

	if opts.Session == "" {
		sessions, err := j.Sessions(ctx)
		if err != nil {
			_ = formatter.Error(CodeJournal, "failed to read sessions", err.Error())
			return WrapExitError(ExitCommandError, "failed to read sessions", err)
		}
		return formatter.Success(sessions, func(w io.Writer) {
			if len(sessions) == 0 {
				fmt.Fprintln(w, "(no sessions)")
				return
			}
			for _, s := range sessions {
				fmt.Fprintln(w, s)
			}
		})
	}

	entries, err := j.Entries(ctx, opts.Session)
	if err != nil {
		_ = formatter.Error(CodeJournal, "failed to read journal", err.Error())
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	state, err := j.Replay(ctx, opts.Session)
	if err != nil {
		_ = formatter.Error(CodeJournal, "failed to replay journal", err.Error())
		return WrapExitError(ExitCommandError, "failed to replay journal", err)
	}

	result := JournalResult{
		Session: opts.Session,
		Entries: make([]JournalEntry, 0, len(entries)),
		State: JournalState{
			Records: state.Records,
			Current: state.Current,
			Loading: state.Loading,
			Error:   state.Error,
		},
	}
	if result.State.Records == nil {
		result.State.Records = []record.Record{}
	}
	for _, e := range entries {
		je := JournalEntry{Seq: e.Seq, Kind: e.Kind}
		if e.Payload != "" && e.Payload != "{}" && e.Payload != "null" {
			je.Payload = json.RawMessage(e.Payload)
		}
		result.Entries = append(result.Entries, je)
	}

	return formatter.Success(result, func(w io.Writer) {
		outputJournalText(w, result, opts.Verbose)
	})
}

func outputJournalText(w io.Writer, result JournalResult, verbose bool) {
	fmt.Fprintf(w, "Journal for session: %s\n", result.Session)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Actions ===")
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "  (no actions)")
	}
	for _, e := range result.Entries {
		fmt.Fprintf(w, "  [%d] %s\n", e.Seq, e.Kind)
		if verbose && e.Payload != nil {
			fmt.Fprintf(w, "      %s\n", e.Payload)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== State ===")
	fmt.Fprintf(w, "  records: %d\n", len(result.State.Records))
	for _, r := range result.State.Records {
		fmt.Fprintf(w, "    %-4s %s\n", r.ID, cityLine(r))
	}
	if result.State.Current != nil {
		fmt.Fprintf(w, "  current: %s\n", result.State.Current.ID)
	}
	fmt.Fprintf(w, "  loading: %t\n", result.State.Loading)
	if result.State.Error != "" {
		fmt.Fprintf(w, "  error:   %s\n", result.State.Error)
	}
}
