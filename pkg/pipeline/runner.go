// Package pipeline drives a plexsync run: every subdirectory of the playlist folder
// is scanned, written, uploaded and verified in order, then the master playlist is
// rebuilt. A failing playlist halts at its own stage while the others continue.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"plexsync/pkg/config"
	"plexsync/pkg/constants"
	"plexsync/pkg/httpClient"
	"plexsync/pkg/logging"
	"plexsync/pkg/media"
	"plexsync/pkg/metrics"
	"plexsync/pkg/playlist"
	"plexsync/pkg/plex"
	"plexsync/pkg/remap"
	"plexsync/pkg/staging"
	"plexsync/pkg/utils"
	"plexsync/pkg/verify"
)

// Server is the part of the Plex API a run talks to.
type Server interface {
	verify.Source
	Upload(ctx context.Context, filePath, remotePath, sectionID string) (plex.UploadResult, error)
}

type Runner struct {
	cfg    *config.Config
	rule   remap.Rule
	reader *media.Reader
	exts   map[string]bool
	server Server

	// mu serializes passes; watch mode calls Refresh from timer goroutines.
	mu     sync.Mutex
	listed map[string]bool
}

// NewRunner builds a runner for cfg. server may be nil when nothing is uploaded or
// verified.
func NewRunner(cfg *config.Config, server Server) *Runner {
	return &Runner{
		cfg:    cfg,
		rule:   remap.NewRule(cfg.Paths.LocalRoot, cfg.Paths.PlexRoot, cfg.Generate.EncodeSpaces),
		reader: media.NewReader(cfg.Generate.FFprobePath, cfg.Generate.ProbeTimeout),
		exts:   constants.ExtensionSet(cfg.Generate.Extensions),
		server: server,
		listed: make(map[string]bool),
	}
}

func (r *Runner) verifying() bool {
	return r.server != nil && (r.cfg.Verify.Uploads || r.cfg.Verify.Content)
}

func (r *Runner) uploading() bool {
	return r.server != nil && r.cfg.ShouldUpload()
}

// Run processes every subdirectory of the playlist folder. sectionID is the
// resolved library section and is only used for uploads. The returned error is
// non-nil only for failures that stop the whole run, such as an unreadable playlist
// folder or cancellation; per-playlist failures are in the summary.
func (r *Runner) Run(ctx context.Context, sectionID string) (*Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := &Summary{SectionID: sectionID, MasterFile: r.cfg.Paths.MasterFile, Started: time.Now()}
	defer r.finish(summary)

	names, err := utils.ListSubdirs(r.cfg.Paths.PlaylistFolder)
	if err != nil {
		return summary, err
	}
	if len(names) == 0 {
		logging.Warn("No subdirectories found in %s", r.cfg.Paths.PlaylistFolder)
	}

	summary.Mode = r.mode(names)
	logging.Info("Processing %d playlists (%s)", len(names), summary.Mode)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Results = append(summary.Results, r.process(ctx, name, summary.Mode, sectionID))
	}

	if r.uploading() {
		uploaded := 0
		for _, res := range summary.Results {
			if res.Uploaded {
				uploaded++
			}
		}
		logging.Info("Playlist upload finished. %d/%d playlists uploaded successfully.", uploaded, len(summary.Results))
	}

	if r.verifying() {
		r.verifyAll(ctx, summary.Results)
	}

	r.listed = make(map[string]bool)
	for _, res := range summary.Results {
		if res.Generated {
			r.listed[res.Name] = true
		}
	}
	summary.MasterErr = r.writeMaster()

	return summary, ctx.Err()
}

// Refresh reprocesses the single playlist name incrementally and rewrites the
// master playlist.
func (r *Runner) Refresh(ctx context.Context, name, sectionID string) (*Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := &Summary{SectionID: sectionID, MasterFile: r.cfg.Paths.MasterFile, Started: time.Now(), Mode: playlist.ModeIncremental}
	defer r.finish(summary)

	if !utils.PathExists(r.cfg.GetPlaylistDir(name)) {
		logging.Info("Playlist folder %s was removed", name)
		delete(r.listed, name)
		summary.MasterErr = r.writeMaster()
		return summary, nil
	}

	res := r.process(ctx, name, playlist.ModeIncremental, sectionID)
	summary.Results = append(summary.Results, res)
	if r.verifying() {
		r.verifyAll(ctx, summary.Results)
	}

	if res.Generated {
		r.listed[name] = true
	} else {
		delete(r.listed, name)
	}
	summary.MasterErr = r.writeMaster()
	return summary, ctx.Err()
}

// VerifyOnly checks every subdirectory name against the server without generating
// or uploading anything. Content is compared for the playlist files that exist.
func (r *Runner) VerifyOnly(ctx context.Context) (*Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := &Summary{MasterFile: r.cfg.Paths.MasterFile, Started: time.Now(), Mode: playlist.ModeUseExisting}
	defer r.finish(summary)

	names, err := utils.ListSubdirs(r.cfg.Paths.PlaylistFolder)
	if err != nil {
		return summary, err
	}

	v := verify.New(r.server)
	if err := v.Load(ctx); err != nil {
		return summary, fmt.Errorf("failed to fetch playlists from Plex: %w", err)
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res := &Result{
			Name:      name,
			Path:      r.cfg.GetPlaylistPath(name),
			Mode:      playlist.ModeUseExisting,
			State:     StatePassedThrough,
			Generated: utils.PathExists(r.cfg.GetPlaylistPath(name)),
		}
		r.verifyOne(ctx, v, res)
		summary.Results = append(summary.Results, res)
	}

	logging.Info("Checked %d playlists against Plex", len(names))
	return summary, nil
}

// mode picks how playlists are produced. In regenerate mode, when every playlist
// file already exists and --force is not set, the existing files are used as they
// are.
func (r *Runner) mode(names []string) playlist.Mode {
	switch {
	case r.cfg.Generate.UseExisting:
		return playlist.ModeUseExisting
	case r.cfg.Generate.Incremental:
		return playlist.ModeIncremental
	case r.cfg.Generate.Force || len(names) == 0:
		return playlist.ModeRegenerate
	}

	for _, name := range names {
		if !utils.PathExists(r.cfg.GetPlaylistPath(name)) {
			return playlist.ModeRegenerate
		}
	}
	logging.Info("All playlists already exist; using them as they are (pass --force to regenerate)")
	return playlist.ModeUseExisting
}

func (r *Runner) process(ctx context.Context, name string, mode playlist.Mode, sectionID string) *Result {
	res := &Result{
		Name:  name,
		Path:  r.cfg.GetPlaylistPath(name),
		Mode:  mode,
		State: StateScanned,
	}
	logging.Info("Processing playlist '%s'", name)

	if !r.generate(ctx, res) {
		return res
	}

	if !r.uploading() {
		res.State = StateSkippedUpload
		return res
	}
	r.upload(ctx, res, sectionID)
	return res
}

// generate produces the playlist file. It reports whether later stages should run.
func (r *Runner) generate(ctx context.Context, res *Result) bool {
	if res.Mode == playlist.ModeUseExisting {
		if !utils.PathExists(res.Path) {
			res.fail(StageGenerate, &playlist.IOError{Op: "read", Path: res.Path, Err: os.ErrNotExist})
			logging.Error("%v", res.Err)
			return false
		}
		res.State = StatePassedThrough
		res.Generated = true
		logging.Debug("Using existing playlist %s", res.Path)
		return true
	}

	entries, err := media.Scan(ctx, r.cfg.GetPlaylistDir(res.Name), r.exts, r.reader)
	if err != nil {
		res.fail(StageScan, err)
		logging.Error("%v", res.Err)
		return false
	}
	if len(entries) == 0 {
		if r.cfg.Generate.SkipEmpty {
			res.State = StateSkippedEmpty
			logging.Info("Skipping '%s': no media files", res.Name)
			return false
		}
		logging.Warn("No media files found in '%s'; writing an empty playlist", res.Name)
	}

	lines := make([]playlist.Line, 0, len(entries))
	for _, e := range entries {
		p, ok := r.rule.Remap(e.Path)
		if !ok {
			res.Unmapped++
			logging.Warn("File path '%s' does not start with '%s'. Using original path.", e.Path, r.rule.LocalRoot)
		}
		lines = append(lines, playlist.Line{Path: p, Duration: e.Duration, Title: e.Title})
	}

	if res.Mode == playlist.ModeIncremental {
		added, err := playlist.AppendNew(res.Path, lines)
		if err != nil {
			res.fail(StageGenerate, err)
			logging.Error("%v", res.Err)
			return false
		}
		res.Added = len(added)
		res.Tracks = len(lines)
		res.State = StateIncrementallyUpdated
		logging.Info("Updated playlist: %s (%d new tracks)", res.Path, res.Added)
	} else {
		if err := playlist.WriteFull(res.Path, lines); err != nil {
			res.fail(StageGenerate, err)
			logging.Error("%v", res.Err)
			return false
		}
		res.Added = len(lines)
		res.Tracks = len(lines)
		res.State = StateRegenerated
		logging.Info("Generated playlist: %s (%d tracks)", res.Path, res.Tracks)
	}
	res.Generated = true
	return true
}

func (r *Runner) upload(ctx context.Context, res *Result, sectionID string) {
	staged, err := staging.Stage(ctx, res.Path)
	if err != nil {
		res.fail(StageUpload, err)
		logging.Error("%v", res.Err)
		return
	}

	remote, ok := r.rule.Remap(staged)
	if !ok {
		res.Unmapped++
		logging.Warn("File path '%s' does not start with '%s'. Using original path.", staged, r.rule.LocalRoot)
	}

	logging.Info("Uploading '%s' with remapped path '%s'...", staged, remote)
	start := time.Now()
	result, err := r.server.Upload(ctx, staged, remote, sectionID)
	metrics.UploadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(uploadStatus(err)).Inc()
		res.fail(StageUpload, err)
		logging.Error("%v", res.Err)
		return
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	res.Uploaded = true
	res.PlaylistID = result.PlaylistID
	res.State = StateUploaded
	logging.Info("Successfully uploaded: %s", staged)
}

// uploadStatus labels a failed upload: rejected by the server or never answered.
func uploadStatus(err error) string {
	if httpClient.IsHTTPError(err) {
		return "http_error"
	}
	return "transport_error"
}

// verifyAll checks every playlist that got through generation and upload. The
// server's playlist list is fetched once.
func (r *Runner) verifyAll(ctx context.Context, results []*Result) {
	var pending []*Result
	for _, res := range results {
		if res.Generated && res.State != StateFailed {
			pending = append(pending, res)
		}
	}
	if len(pending) == 0 {
		return
	}

	v := verify.New(r.server)
	if err := v.Load(ctx); err != nil {
		logging.Error("Error fetching playlists from Plex for verification: %v", err)
		for _, res := range pending {
			res.fail(StageVerify, err)
		}
		return
	}

	for _, res := range pending {
		r.verifyOne(ctx, v, res)
	}
}

func (r *Runner) verifyOne(ctx context.Context, v *verify.Verifier, res *Result) {
	if r.cfg.Verify.Uploads {
		if m := v.CheckExistence(res.Name); m != nil {
			r.record(res, *m)
			res.State = StateVerified
			return
		}
	}

	if r.cfg.Verify.Content && !utils.PathExists(res.Path) {
		logging.Warn("No local playlist %s; skipping content check of '%s'", res.Path, res.Name)
		if !r.cfg.Verify.Uploads {
			res.State = StateSkippedVerify
			return
		}
	} else if r.cfg.Verify.Content {
		lines, err := playlist.ReadFile(res.Path)
		if err != nil {
			res.fail(StageVerify, err)
			logging.Error("%v", res.Err)
			return
		}
		titles := playlist.Titles(lines)
		logging.Info("Local playlist '%s' has %d tracks.", res.Name, len(titles))

		m, err := v.CheckContent(ctx, res.Name, titles)
		if err != nil {
			res.fail(StageVerify, err)
			logging.Error("%v", res.Err)
			return
		}
		if m != nil {
			r.record(res, *m)
		}
	}

	if len(res.Mismatches) == 0 {
		logging.Info("Playlist '%s' matches between local and Plex.", res.Name)
	}
	res.State = StateVerified
}

func (r *Runner) record(res *Result, m verify.Mismatch) {
	res.Mismatches = append(res.Mismatches, m)
	metrics.MismatchesTotal.WithLabelValues(string(m.Kind)).Inc()
	verify.LogMismatch(m)
}

// writeMaster rewrites the master playlist from the playlists that currently exist.
func (r *Runner) writeMaster() error {
	names := make([]string, 0, len(r.listed))
	for name := range r.listed {
		names = append(names, name)
	}
	sort.Strings(names)

	var master playlist.Master
	for _, name := range names {
		p, _ := r.rule.Remap(r.cfg.GetPlaylistPath(name))
		master.Add(p)
	}

	if err := master.Write(r.cfg.Paths.MasterFile); err != nil {
		logging.Error("Error generating master playlist: %v", err)
		return err
	}
	logging.Info("Master playlist generated at: %s", r.cfg.Paths.MasterFile)
	return nil
}

func (r *Runner) finish(s *Summary) {
	s.Duration = time.Since(s.Started)
	s.tally()

	metrics.RunsTotal.Inc()
	metrics.LastRunTimestamp.SetToCurrentTime()
	metrics.LastRunDuration.Set(s.Duration.Seconds())
	metrics.TracksWritten.Add(float64(s.addedTracks()))
	metrics.UnmappedPaths.Add(float64(s.Stats.Unmapped))
	for _, res := range s.Results {
		metrics.PlaylistsTotal.WithLabelValues(res.State.String()).Inc()
		if res.State == StateFailed {
			metrics.PlaylistFailures.WithLabelValues(res.FailedStage.String()).Inc()
		}
	}
}
