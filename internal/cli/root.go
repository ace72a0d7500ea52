// Package cli holds the discordlink command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/infrastructure/config"
)

// RootOptions carries flags shared by every command. Empty values fall back
// to the environment.
type RootOptions struct {
	ConfigPath   string
	DatabasePath string
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "discordlink",
		Short:         "Bridge between an Eco server and Discord",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "configuration file (defaults to $DISCORDLINK_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.DatabasePath, "db", "", "sqlite database (defaults to $DISCORDLINK_DB)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewNormalizeCommand(opts))

	return cmd
}

func (o *RootOptions) env() (*config.Env, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	if o.ConfigPath != "" {
		env.ConfigPath = o.ConfigPath
	}
	if o.DatabasePath != "" {
		env.DatabasePath = o.DatabasePath
	}
	return env, nil
}

// loadStore reads the document the same way the bridge does at startup.
func (o *RootOptions) loadStore() (*config.Store, *config.Env, error) {
	env, err := o.env()
	if err != nil {
		return nil, nil, err
	}
	data, err := config.LoadFile(env.ConfigPath, config.Defaults(env.ChatlogDir))
	if err != nil {
		return nil, nil, err
	}
	store := config.NewStore(data,
		config.WithPath(env.ConfigPath),
		config.WithChatlogDir(env.ChatlogDir),
		config.WithTokenOverride(env.BotToken),
	)
	return store, env, nil
}
