package watcher

import (
	"context"
	"errors"
	"fmt"

	"plexsync/cmd/generator"
	"plexsync/pkg/config"
	"plexsync/pkg/constants"
	"plexsync/pkg/logging"
	"plexsync/pkg/pipeline"
	"plexsync/pkg/plex"
	"plexsync/pkg/watch"
)

// Watch runs a full incremental pass and then keeps each playlist up to date as
// media files change, until ctx is canceled.
func Watch(ctx context.Context, cfg *config.Config) error {
	client := plex.NewClient(cfg.Plex, cfg.HTTP)

	sectionID, err := generator.ResolveSection(ctx, cfg, client)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(cfg, client)
	writer := generator.NewReportWriter(cfg)

	summary, err := runner.Run(ctx, sectionID)
	generator.WriteOutputs(cfg, writer, summary)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("initial pass aborted: %w", err)
	}
	summary.Log()
	if err := summary.Err(cfg.Verify.Strict); err != nil {
		logging.Error("Initial pass: %v", err)
	}

	refresh := func(ctx context.Context, name string) {
		logging.Info("Changes detected in '%s'", name)
		s, err := runner.Refresh(ctx, name, sectionID)
		generator.WriteOutputs(cfg, writer, s)
		if err != nil {
			if ctx.Err() == nil {
				logging.Error("Refresh of '%s' failed: %v", name, err)
			}
			return
		}
		s.Log()
	}

	w, err := watch.New(cfg.Paths.PlaylistFolder, constants.ExtensionSet(cfg.Generate.Extensions), cfg.Watch.SettleDelay, refresh)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
