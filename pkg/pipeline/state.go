package pipeline

import (
	"errors"
	"fmt"
)

// State is where a playlist ended up in a run.
type State int

const (
	StateScanned State = iota
	StateRegenerated
	StateIncrementallyUpdated
	StatePassedThrough
	StateSkippedEmpty
	StateUploaded
	StateSkippedUpload
	StateVerified
	StateSkippedVerify
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateScanned:
		return "scanned"
	case StateRegenerated:
		return "regenerated"
	case StateIncrementallyUpdated:
		return "incrementally-updated"
	case StatePassedThrough:
		return "passed-through"
	case StateSkippedEmpty:
		return "skipped-empty"
	case StateUploaded:
		return "uploaded"
	case StateSkippedUpload:
		return "skipped-upload"
	case StateVerified:
		return "verified"
	case StateSkippedVerify:
		return "skipped-verify"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stage names the step a playlist failed in.
type Stage int

const (
	StageNone Stage = iota
	StageScan
	StageGenerate
	StageUpload
	StageVerify
)

func (s Stage) String() string {
	switch s {
	case StageScan:
		return "scan"
	case StageGenerate:
		return "generate"
	case StageUpload:
		return "upload"
	case StageVerify:
		return "verify"
	default:
		return "none"
	}
}

// StageError ties a per-playlist failure to the stage that produced it.
type StageError struct {
	Playlist string
	Stage    Stage
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("playlist %s: %s failed: %v", e.Playlist, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Run outcomes that make the process exit non-zero.
var (
	ErrGenerationFailed = errors.New("playlist generation failed")
	ErrUploadFailed     = errors.New("playlist upload failed")
	ErrVerifyFailed     = errors.New("playlist verification failed")
)
