// Package playlist reads and writes extended M3U playlists.
//
// Written files always start with a single #EXTM3U line followed by
// "#EXTINF:<seconds>,<title>" / "<path>" pairs. Titles and durations of existing
// files are decoded with grafov/m3u8. Incremental updates match on every path line,
// including plain M3U entries without #EXTINF.
package playlist

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/grafov/m3u8"

	"plexsync/pkg/constants"
)

// Mode selects how a playlist file is produced.
type Mode int

const (
	ModeRegenerate Mode = iota
	ModeIncremental
	ModeUseExisting
)

func (m Mode) String() string {
	switch m {
	case ModeRegenerate:
		return "regenerate"
	case ModeIncremental:
		return "incremental"
	case ModeUseExisting:
		return "use-existing"
	default:
		return "unknown"
	}
}

// Line is one playlist entry with its path already remapped.
type Line struct {
	Path     string
	Duration int
	Title    string
}

// Render returns the full content of a playlist holding lines.
func Render(lines []Line) []byte {
	var buf bytes.Buffer
	buf.WriteString(constants.M3UHeader)
	buf.WriteByte('\n')
	for _, l := range lines {
		writeLine(&buf, l)
	}
	return buf.Bytes()
}

func writeLine(buf *bytes.Buffer, l Line) {
	duration := l.Duration
	if duration < 0 {
		duration = 0
	}
	buf.WriteString(constants.ExtInfTag)
	buf.WriteString(strconv.Itoa(duration))
	buf.WriteByte(',')
	buf.WriteString(l.Title)
	buf.WriteByte('\n')
	buf.WriteString(l.Path)
	buf.WriteByte('\n')
}

// Decode parses playlist content into its entries. A header-only playlist yields no
// entries and no error.
func Decode(r io.Reader) ([]Line, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}
	return decodeBytes(data)
}

func checkHeader(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if !bytes.HasPrefix(trimmed, []byte(constants.M3UHeader)) {
		return nil, fmt.Errorf("missing %s header", constants.M3UHeader)
	}
	return trimmed, nil
}

// pathSet returns every path listed in data, with or without a preceding #EXTINF.
func pathSet(data []byte) (map[string]bool, error) {
	trimmed, err := checkHeader(data)
	if err != nil {
		return nil, err
	}
	paths := make(map[string]bool)
	for _, line := range bytes.Split(trimmed, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		paths[string(line)] = true
	}
	return paths, nil
}

func decodeBytes(data []byte) ([]Line, error) {
	trimmed, err := checkHeader(data)
	if err != nil {
		return nil, err
	}
	if !bytes.Contains(trimmed, []byte(constants.ExtInfTag)) {
		return nil, nil
	}

	pl, listType, err := m3u8.DecodeFrom(bytes.NewReader(trimmed), false)
	if err != nil {
		return nil, fmt.Errorf("failed to decode playlist: %w", err)
	}
	if listType != m3u8.MEDIA {
		return nil, fmt.Errorf("expected media playlist but got master")
	}

	media := pl.(*m3u8.MediaPlaylist)
	lines := make([]Line, 0, media.Count())
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		lines = append(lines, Line{
			Path:     seg.URI,
			Duration: int(seg.Duration),
			Title:    seg.Title,
		})
	}
	return lines, nil
}

// Titles returns the #EXTINF titles of lines in order.
func Titles(lines []Line) []string {
	titles := make([]string, 0, len(lines))
	for _, l := range lines {
		titles = append(titles, l.Title)
	}
	return titles
}
