package constants

import (
	"strings"
	"time"
)

const (
	PlaylistExt = ".m3u8"
	UploadExt   = ".m3u"
	M3UHeader   = "#EXTM3U"
	ExtInfTag   = "#EXTINF:"

	DefaultMasterFile   = "master.m3u8"
	DefaultUploadPath   = "/playlists/upload"
	DefaultFFprobePath  = "ffprobe"
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultProbeTimeout = 10 * time.Second
	DefaultSettleDelay  = 5 * time.Second

	HTTPUserAgent = "plexsync/1.0"
	EnvPrefix     = "PLEXSYNC"
)

// DefaultExtensions is the media allow-list used when none is configured.
var DefaultExtensions = []string{".mp3", ".flac", ".wav", ".aac", ".ogg", ".wma", ".m4a"}

// ExtensionSet lowercases exts, adds a missing leading dot and drops blanks.
func ExtensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = normalizeExt(ext)
		if ext == "" {
			continue
		}
		set[ext] = true
	}
	return set
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
