package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"plexsync/pkg/logging"
	"plexsync/pkg/utils"
)

// Metadata is what a playlist line needs from a media file.
type Metadata struct {
	Duration int
	Title    string
}

// Reader extracts titles from embedded tags and durations from ffprobe.
// Every failure degrades to the filename stem and a zero duration.
type Reader struct {
	probePath string
	timeout   time.Duration
	probe     func(ctx context.Context, path string) (float64, error)
}

// NewReader resolves ffprobePath on PATH. An empty or missing binary disables duration
// probing; titles are still read from tags.
func NewReader(ffprobePath string, timeout time.Duration) *Reader {
	r := &Reader{timeout: timeout}

	if ffprobePath == "" {
		logging.Debug("Duration probing disabled")
		return r
	}

	resolved := ffprobePath
	if !filepath.IsAbs(ffprobePath) {
		found, err := exec.LookPath(ffprobePath)
		if err != nil {
			logging.Warn("ffprobe not found (%s); durations will be written as 0", ffprobePath)
			return r
		}
		resolved = found
	} else if !utils.PathExists(ffprobePath) {
		logging.Warn("ffprobe not found at %s; durations will be written as 0", ffprobePath)
		return r
	}

	r.probePath = resolved
	r.probe = r.runProbe
	return r
}

// Read never fails.
func (r *Reader) Read(ctx context.Context, path string) Metadata {
	meta := Metadata{Title: CleanTitle(utils.FileStem(path))}

	if title, err := readTitle(path); err != nil {
		logging.Debug("No tag title for %s: %v", path, err)
	} else if title != "" {
		meta.Title = title
	}

	if r != nil && r.probe != nil {
		probeCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			probeCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		seconds, err := r.probe(probeCtx, path)
		if err != nil {
			logging.Debug("Failed to probe duration of %s: %v", path, err)
		} else if seconds > 0 {
			meta.Duration = int(seconds)
		}
	}

	return meta
}

func readTitle(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return "", err
	}
	return CleanTitle(m.Title()), nil
}

// CleanTitle folds line breaks into spaces so a title cannot split an #EXTINF line.
func CleanTitle(title string) string {
	title = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(title)
	return strings.TrimSpace(title)
}

func (r *Reader) runProbe(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, r.probePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %q: %w", path, err)
	}
	return ParseProbeDuration(out)
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ParseProbeDuration reads format.duration from ffprobe JSON output.
func ParseProbeDuration(data []byte) (float64, error) {
	var raw probeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	if raw.Format.Duration == "" {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}
	seconds, err := strconv.ParseFloat(raw.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw.Format.Duration, err)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("negative duration %v", seconds)
	}
	return seconds, nil
}
