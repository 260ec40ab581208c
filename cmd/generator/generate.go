package generator

import (
	"context"
	"fmt"

	"plexsync/pkg/config"
	"plexsync/pkg/logging"
	"plexsync/pkg/pipeline"
	"plexsync/pkg/plex"
	"plexsync/pkg/report"
)

// Generate runs one pass over the playlist folder: generate, upload, verify and
// write the master playlist.
func Generate(ctx context.Context, cfg *config.Config) error {
	client := plex.NewClient(cfg.Plex, cfg.HTTP)

	sectionID, err := ResolveSection(ctx, cfg, client)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(cfg, client)
	summary, err := runner.Run(ctx, sectionID)

	WriteOutputs(cfg, NewReportWriter(cfg), summary)
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}

	summary.Log()
	return summary.Err(cfg.Verify.Strict)
}

// ResolveSection looks up the library section once per run. It returns "" when
// nothing will be uploaded.
func ResolveSection(ctx context.Context, cfg *config.Config, client *plex.Client) (string, error) {
	if !cfg.NeedsSection() {
		logging.Debug("Generate-only run; skipping library lookup")
		return "", nil
	}
	sectionID, err := client.SectionID(ctx, cfg.Plex.LibraryName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve library '%s': %w", cfg.Plex.LibraryName, err)
	}
	return sectionID, nil
}

// NewReportWriter returns nil unless a report file is configured.
func NewReportWriter(cfg *config.Config) *report.Writer {
	if cfg.Output.ReportFile == "" {
		return nil
	}
	return report.NewWriter(cfg.Output.ReportFile)
}
