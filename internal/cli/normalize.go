package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/infrastructure/config"
)

func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Apply configuration corrections and write the file back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, env, err := rootOpts.loadStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if _, err := os.Stat(env.ConfigPath); errors.Is(err, os.ErrNotExist) {
				if err := config.WriteFile(env.ConfigPath, store.Persisted()); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote default configuration to %s\n", env.ConfigPath)
				return nil
			}

			if store.Save() {
				fmt.Fprintln(out, "configuration already normalized")
				return nil
			}
			fmt.Fprintf(out, "configuration corrected and written to %s\n", env.ConfigPath)
			return nil
		},
	}
}
