package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/triplog/internal/emoji"
)

// FlagResult is the JSON payload of the flag command.
type FlagResult struct {
	Code string `json:"code"`
	Flag string `json:"flag"`
}

// NewFlagCommand creates the flag command.
func NewFlagCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flag <country-code>",
		Short: "Print the flag emoji for a country code",
		Long: `Convert a two-letter ISO 3166-1 country code into its flag emoji.

Example:
  triplog flag PT`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			flag, err := emoji.FromCountryCode(args[0])
			if err != nil {
				return formatter.Fail(ExitCommandError, err.Error(), err)
			}
			result := FlagResult{Code: strings.ToUpper(args[0]), Flag: flag}
			return formatter.Success(result, func(w io.Writer) {
				fmt.Fprintln(w, result.Flag)
			})
		},
	}
}
