package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/app/verification"
)

var ErrInvalidConfig = errors.New("configuration has errors")

// NewVerifyCommand checks the configuration file without connecting anywhere.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the configuration file offline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := rootOpts.loadStore()
			if err != nil {
				return err
			}

			v := verification.New(store, nil, nil, verification.Options{})
			report := v.VerifyConfig(verification.Static)
			fmt.Fprintln(cmd.OutOrStdout(), report.String())
			if report.HasErrors() {
				return ErrInvalidConfig
			}
			return nil
		},
	}
}
