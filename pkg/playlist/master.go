package playlist

import (
	"bytes"
	"os"

	"plexsync/pkg/constants"
	"plexsync/pkg/utils"
)

// Master is the index of every playlist processed in a run.
type Master struct {
	Entries []string
}

func (m *Master) Add(path string) {
	m.Entries = append(m.Entries, path)
}

// Render returns #EXTM3U followed by one path per line.
func (m *Master) Render() []byte {
	var buf bytes.Buffer
	buf.WriteString(constants.M3UHeader)
	buf.WriteByte('\n')
	for _, e := range m.Entries {
		buf.WriteString(e)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Write overwrites path with the master playlist.
func (m *Master) Write(path string) error {
	if err := utils.ValidateWritablePath(path); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.WriteFile(path, m.Render(), 0644); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
