package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"plexsync/cmd/generator"
	"plexsync/cmd/verifier"
	"plexsync/cmd/watcher"
	"plexsync/pkg/config"
	"plexsync/pkg/logging"
)

const (
	exitFailure     = 1
	exitConfigError = 2
)

var configFile string

type runFunc func(ctx context.Context, cfg *config.Config) error

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		logging.Error("%v", err)
	}
	logging.Sync()

	switch {
	case err == nil:
	case config.IsConfigError(err):
		os.Exit(exitConfigError)
	default:
		os.Exit(exitFailure)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "plexsync",
		Short: "Generate .m3u8 playlists from media folders and upload them to Plex",
		Long: `plexsync turns every subfolder of a playlist folder into an extended M3U
playlist, rewrites local media paths into the paths the Plex server sees, uploads
the playlists to a Plex library and optionally verifies the result.

Every flag can also be set through the environment as PLEXSYNC_<FLAG>, with dashes
written as underscores (for example PLEXSYNC_PLEX_TOKEN), or in a --config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")

	root.AddCommand(
		newModeCmd(config.ModeGenerate, "generate", "Generate (and optionally upload) playlists", generator.Generate),
		newModeCmd(config.ModeVerify, "verify", "Verify uploaded playlists in Plex", verifier.Verify),
		newModeCmd(config.ModeWatch, "watch", "Keep playlists up to date as media files change", watcher.Watch),
	)
	return root
}

func newModeCmd(mode config.Mode, use, short string, run runFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.NewViper(configFile)
			if err != nil {
				return err
			}
			if err := config.BindFlags(v, cmd.Flags()); err != nil {
				return err
			}

			cfg, err := config.Load(v, mode)
			if err != nil {
				return err
			}
			logging.SetVerbose(cfg.Verbose)
			logging.Debug("Running %s with playlist folder %s", mode, cfg.Paths.PlaylistFolder)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = run(ctx, cfg)
			if errors.Is(err, context.Canceled) {
				logging.Warn("Interrupted; files already written are kept")
			}
			return err
		},
	}
	config.RegisterFlags(cmd.Flags(), mode)
	return cmd
}
