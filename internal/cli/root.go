package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/triplog/internal/config"
	"github.com/roach88/triplog/internal/metrics"
	"github.com/roach88/triplog/internal/session"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	ConfigPath  string
	EnvFiles    []string
	APIURL      string
	MetricsAddr string

	// Config is populated by the root PersistentPreRunE.
	Config config.Config

	// Logger is populated by the root PersistentPreRunE.
	Logger *slog.Logger

	// Tokens allows overriding the session token generator (for testing).
	// If nil, sessions use session.UUIDv7Generator.
	Tokens session.TokenGenerator

	// Now allows overriding the clock behind default visit dates (for testing).
	// If nil, defaults to time.Now.
	Now func() time.Time

	// Lookup allows overriding the environment (for testing).
	// If nil, the process environment is used.
	Lookup config.LookupFunc

	metricsSrv *http.Server
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the triplog CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

// Execute runs the CLI against the process arguments.
func Execute(ctx context.Context) error {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	defer opts.stopMetrics()
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triplog",
		Short: "triplog - a travel log of visited cities",
		Long: `Keep a log of the cities you have visited.

Records live in a remote /cities collection. New entries start from a point
on the map: the point is reverse-geocoded into a city, country and flag,
then saved with a visit date and notes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if err := opts.loadConfig(cmd); err != nil {
				return err
			}
			return opts.startMetrics()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", []string{".env"}, "dotenv files to read (missing files are skipped)")
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", "", "collection base URL (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")

	// Add subcommands
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewCenterCommand(opts))
	cmd.AddCommand(NewFlagCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))

	return cmd
}

// loadConfig reads the config file, dotenv files and environment, applies
// flag overrides and installs the process logger.
func (o *RootOptions) loadConfig(cmd *cobra.Command) error {
	lookup := o.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg, err := config.LoadWith(o.ConfigPath, o.EnvFiles, lookup)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.APIURL != "" {
		cfg.APIURL = o.APIURL
		if err := cfg.Validate(); err != nil {
			return WrapExitError(ExitCommandError, "invalid --api-url", err)
		}
	}
	o.Config = cfg

	o.Logger = cfg.NewLogger(cmd.ErrOrStderr(), o.Verbose)
	slog.SetDefault(o.Logger)
	return nil
}

// startMetrics serves /metrics on MetricsAddr until stopMetrics is called.
func (o *RootOptions) startMetrics() error {
	if o.MetricsAddr == "" || o.metricsSrv != nil {
		return nil
	}
	ln, err := net.Listen("tcp", o.MetricsAddr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen for metrics", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	o.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server stopped", "error", err)
		}
	}(o.metricsSrv)
	slog.Debug("serving metrics", "addr", ln.Addr().String())
	return nil
}

func (o *RootOptions) stopMetrics() {
	if o.metricsSrv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = o.metricsSrv.Shutdown(ctx)
	o.metricsSrv = nil
}

// formatter builds the OutputFormatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
