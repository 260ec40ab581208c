package generator

import (
	"plexsync/pkg/config"
	"plexsync/pkg/logging"
	"plexsync/pkg/metrics"
	"plexsync/pkg/pipeline"
	"plexsync/pkg/report"
)

// WriteOutputs writes the optional JSON report and metrics textfile. Failures are
// logged; they never change the outcome of the run.
func WriteOutputs(cfg *config.Config, writer *report.Writer, summary *pipeline.Summary) {
	if summary == nil {
		return
	}

	if writer != nil {
		writer.Add(summary)
		if err := writer.Write(summary.SectionID, cfg.Paths.MasterFile); err != nil {
			logging.Warn("Failed to write report: %v", err)
		} else {
			logging.Debug("Report written to %s", writer.Path)
		}
	}

	if cfg.Output.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			logging.Warn("%v", err)
		}
	}
}
