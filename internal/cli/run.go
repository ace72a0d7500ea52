package cli

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/app/runtime"
)

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var noServer bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bridge until interrupted",
		Long: `Run the bridge until interrupted.

SIGINT and SIGTERM stop the bridge. SIGHUP reloads the configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridgeWith(cmd, rootOpts, noServer)
		},
	}

	cmd.Flags().BoolVar(&noServer, "no-server", false, "do not listen for the game server")

	return cmd
}

func runBridge(cmd *cobra.Command, opts *RootOptions) error {
	return runBridgeWith(cmd, opts, false)
}

func runBridgeWith(cmd *cobra.Command, opts *RootOptions, noServer bool) error {
	env, err := opts.env()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := runtime.Start(ctx, runtime.Options{Env: env, DisableServer: noServer})
	if err != nil {
		return err
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			log.Println("discordlink: shutting down")
			return run.Stop()
		case <-hup:
			log.Println("discordlink: reloading configuration")
			if err := run.Reload(); err != nil {
				log.Printf("discordlink: reload failed: %v", err)
			}
		}
	}
}
