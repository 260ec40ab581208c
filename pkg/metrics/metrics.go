// Package metrics holds the Prometheus collectors for a plexsync run. They live in
// their own registry, which is written to a node-exporter textfile at the end of a
// run because the tool serves no HTTP endpoint.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every plexsync collector.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// Run metrics
var (
	RunsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "plexsync_runs_total",
			Help: "Total number of generate passes",
		},
	)

	LastRunTimestamp = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "plexsync_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last finished pass",
		},
	)

	LastRunDuration = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "plexsync_last_run_duration_seconds",
			Help: "Duration of the last pass in seconds",
		},
	)
)

// Playlist metrics
var (
	PlaylistsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexsync_playlists_total",
			Help: "Playlists processed, by final state",
		},
		[]string{"state"},
	)

	PlaylistFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexsync_playlist_failures_total",
			Help: "Playlist failures, by the stage that failed",
		},
		[]string{"stage"},
	)

	TracksWritten = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "plexsync_tracks_written_total",
			Help: "Track entries written or appended to playlists",
		},
	)

	UnmappedPaths = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "plexsync_unmapped_paths_total",
			Help: "Paths written unchanged because they did not start with the local root",
		},
	)
)

// Plex metrics
var (
	UploadsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexsync_uploads_total",
			Help: "Playlist uploads, by status",
		},
		[]string{"status"}, // "success", "http_error", "transport_error"
	)

	UploadDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plexsync_upload_duration_seconds",
			Help:    "Duration of playlist uploads in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	MismatchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexsync_verify_mismatches_total",
			Help: "Verification mismatches, by kind",
		},
		[]string{"kind"},
	)
)

// WriteTextfile writes the current value of every collector to path in the
// Prometheus text format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
