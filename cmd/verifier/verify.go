package verifier

import (
	"context"
	"fmt"

	"plexsync/cmd/generator"
	"plexsync/pkg/config"
	"plexsync/pkg/pipeline"
	"plexsync/pkg/plex"
)

// Verify checks every playlist folder against the server without generating or
// uploading.
func Verify(ctx context.Context, cfg *config.Config) error {
	client := plex.NewClient(cfg.Plex, cfg.HTTP)
	runner := pipeline.NewRunner(cfg, client)

	summary, err := runner.VerifyOnly(ctx)
	generator.WriteOutputs(cfg, generator.NewReportWriter(cfg), summary)
	if err != nil {
		return fmt.Errorf("verification aborted: %w", err)
	}

	summary.Log()
	return summary.Err(cfg.Verify.Strict)
}
