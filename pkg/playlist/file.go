package playlist

import (
	"bytes"
	"fmt"
	"os"

	"plexsync/pkg/logging"
)

// IOError reports a playlist file that could not be read or written. It fails only
// the playlist it belongs to.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s playlist %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// WriteFull overwrites path with a playlist holding lines.
func WriteFull(path string, lines []Line) error {
	if err := os.WriteFile(path, Render(lines), 0644); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// AppendNew appends the lines whose Path is not yet listed in the playlist at path and
// returns them. Existing bytes are left untouched. A missing or blank file is written
// in full; an unparsable one is treated as listing nothing.
func AppendNew(path string, lines []Line) ([]Line, error) {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	if len(bytes.TrimSpace(existing)) == 0 {
		logging.Debug("No existing entries in %s; writing a new playlist", path)
		fresh := dedupe(lines, nil)
		if err := WriteFull(path, fresh); err != nil {
			return nil, err
		}
		return fresh, nil
	}

	known, err := pathSet(existing)
	if err != nil {
		logging.Warn("Existing playlist %s could not be parsed (%v); appending all entries", path, err)
	} else {
		logging.Info("Found %d existing tracks in %s", len(known), path)
	}

	added := dedupe(lines, known)
	if len(added) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	if !bytes.HasSuffix(existing, []byte("\n")) {
		buf.WriteByte('\n')
	}
	for _, l := range added {
		writeLine(&buf, l)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return nil, &IOError{Op: "append to", Path: path, Err: err}
	}
	return added, nil
}

// ReadFile returns the entries of the playlist at path.
func ReadFile(path string) ([]Line, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	lines, err := decodeBytes(data)
	if err != nil {
		return nil, &IOError{Op: "parse", Path: path, Err: err}
	}
	return lines, nil
}

// dedupe drops lines whose path is in known or repeats an earlier line.
func dedupe(lines []Line, known map[string]bool) []Line {
	seen := make(map[string]bool, len(known)+len(lines))
	for p := range known {
		seen[p] = true
	}
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if seen[l.Path] {
			logging.Debug("Skipping already listed track: %s", l.Path)
			continue
		}
		seen[l.Path] = true
		out = append(out, l)
	}
	return out
}
