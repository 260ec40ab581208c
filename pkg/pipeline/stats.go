package pipeline

import (
	"fmt"
	"time"

	"plexsync/pkg/logging"
	"plexsync/pkg/playlist"
	"plexsync/pkg/verify"
)

// Result is the outcome of one playlist.
type Result struct {
	Name  string
	Path  string
	Mode  playlist.Mode
	State State
	// Generated is set once the playlist file exists on disk for this run.
	Generated   bool
	Uploaded    bool
	FailedStage Stage
	Err         error

	Tracks     int
	Added      int
	Unmapped   int
	PlaylistID string
	Mismatches []verify.Mismatch
}

func (r *Result) fail(stage Stage, err error) {
	r.State = StateFailed
	r.FailedStage = stage
	r.Err = &StageError{Playlist: r.Name, Stage: stage, Err: err}
}

// Failed reports whether the playlist halted at stage.
func (r *Result) Failed(stage Stage) bool {
	return r.State == StateFailed && r.FailedStage == stage
}

// RunStats tracks aggregate counters across a run.
type RunStats struct {
	Total           int
	Generated       int
	SkippedEmpty    int
	GenerateFailed  int
	UploadAttempted int
	Uploaded        int
	UploadFailed    int
	Verified        int
	VerifyFailed    int
	Mismatches      int
	Tracks          int
	Unmapped        int
}

// Summary is everything a run produced.
type Summary struct {
	Results    []*Result
	Stats      RunStats
	Mode       playlist.Mode
	SectionID  string
	MasterFile string
	MasterErr  error
	Started    time.Time
	Duration   time.Duration
}

func (s *Summary) tally() {
	stats := RunStats{Total: len(s.Results)}
	for _, r := range s.Results {
		stats.Tracks += r.Tracks
		stats.Unmapped += r.Unmapped
		stats.Mismatches += len(r.Mismatches)
		if r.Generated {
			stats.Generated++
		}
		if r.Uploaded {
			stats.UploadAttempted++
			stats.Uploaded++
		}
		switch {
		case r.State == StateSkippedEmpty:
			stats.SkippedEmpty++
		case r.State == StateVerified:
			stats.Verified++
		case r.Failed(StageScan), r.Failed(StageGenerate):
			stats.GenerateFailed++
		case r.Failed(StageUpload):
			stats.UploadAttempted++
			stats.UploadFailed++
		case r.Failed(StageVerify):
			stats.VerifyFailed++
		}
	}
	s.Stats = stats
}

// Err applies the exit policy: generation failures always fail the run, upload and
// verification problems only when strict is set.
func (s *Summary) Err(strict bool) error {
	if s.Stats.GenerateFailed > 0 {
		return fmt.Errorf("%d of %d playlists: %w", s.Stats.GenerateFailed, s.Stats.Total, ErrGenerationFailed)
	}
	if s.MasterErr != nil {
		return fmt.Errorf("%w: %v", ErrGenerationFailed, s.MasterErr)
	}
	if !strict {
		return nil
	}
	if s.Stats.UploadFailed > 0 {
		return fmt.Errorf("%d of %d playlists: %w", s.Stats.UploadFailed, s.Stats.UploadAttempted, ErrUploadFailed)
	}
	if s.Stats.VerifyFailed > 0 || s.Stats.Mismatches > 0 {
		return fmt.Errorf("%d failures, %d mismatches: %w", s.Stats.VerifyFailed, s.Stats.Mismatches, ErrVerifyFailed)
	}
	return nil
}

func (s *Summary) addedTracks() int {
	n := 0
	for _, r := range s.Results {
		n += r.Added
	}
	return n
}

// Log writes the end-of-run summary, listing every failure and mismatch.
func (s *Summary) Log() {
	st := s.Stats
	logging.Info("Run finished in %s: %d playlists, %d generated, %d skipped, %d failed",
		s.Duration.Round(time.Millisecond), st.Total, st.Generated, st.SkippedEmpty, st.GenerateFailed+st.UploadFailed+st.VerifyFailed)
	if st.UploadAttempted > 0 {
		logging.Info("%d/%d playlists uploaded", st.Uploaded, st.UploadAttempted)
	}
	if st.Unmapped > 0 {
		logging.Warn("%d paths did not start with the local root and were written unchanged", st.Unmapped)
	}
	for _, r := range s.Results {
		if r.Err != nil {
			logging.Error("  %v", r.Err)
		}
	}
	if st.Mismatches > 0 {
		logging.Warn("Verification found %d mismatches:", st.Mismatches)
		for _, r := range s.Results {
			for _, m := range r.Mismatches {
				logging.Warn("  %s", m)
			}
		}
	}
}
