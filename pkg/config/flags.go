package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag names double as viper keys; PLEXSYNC_<NAME> with dashes as underscores
// sets the same value from the environment.
const (
	KeyPlaylistFolder = "playlist-folder"
	KeyLocalRoot      = "local-root"
	KeyPlexRoot       = "plex-root"
	KeyMasterFile     = "master-file"
	KeyPlexURL        = "plex-url"
	KeyPlexToken      = "plex-token"
	KeyLibraryName    = "library-name"
	KeyAPIURL         = "api-url"
	KeyTimeout        = "timeout"
	KeyIncremental    = "incremental"
	KeyGenerateOnly   = "generate-only"
	KeyUseExisting    = "use-existing"
	KeyEncodeSpaces   = "encode-spaces"
	KeyForce          = "force"
	KeySkipEmpty      = "skip-empty"
	KeyExtensions     = "extensions"
	KeyFFprobe        = "ffprobe"
	KeyVerifyUploads  = "verify-uploads"
	KeyVerifyContent  = "verify-content"
	KeyStrict         = "strict"
	KeySettleDelay    = "settle-delay"
	KeyReportFile     = "report-file"
	KeyMetricsFile    = "metrics-file"
	KeyVerbose        = "verbose"
)

// RegisterFlags declares the flags used by mode on fs.
func RegisterFlags(fs *pflag.FlagSet, mode Mode) {
	d := Default()

	fs.String(KeyPlaylistFolder, "", "Folder containing playlist subdirectories (required)")
	fs.String(KeyPlexURL, "", "Base URL of the Plex server, e.g. http://localhost:32400 (required)")
	fs.String(KeyPlexToken, "", "Plex authentication token (required)")
	fs.Duration(KeyTimeout, d.HTTP.Timeout, "Timeout for each Plex API request")
	fs.Bool(KeyVerifyContent, false, "Compare local #EXTINF titles with the items of each Plex playlist")
	fs.Bool(KeyStrict, false, "Exit non-zero when uploads fail or verification finds mismatches")
	fs.String(KeyReportFile, "", "Write a JSON run report to this file")
	fs.String(KeyMetricsFile, "", "Write run metrics in Prometheus text format to this file")
	fs.BoolP(KeyVerbose, "v", false, "Enable debug logging")

	if mode == ModeVerify {
		return
	}

	fs.String(KeyLocalRoot, "", "Local root of the media files, replaced in every written path (required)")
	fs.String(KeyPlexRoot, "", "Plex server root that replaces --local-root (required)")
	fs.String(KeyLibraryName, "", "Name of the Plex library section to upload into (required)")
	fs.String(KeyAPIURL, "", "Playlist upload endpoint (default <plex-url>/playlists/upload)")
	fs.String(KeyMasterFile, d.Paths.MasterFile, "Path of the master playlist")
	fs.Bool(KeyIncremental, false, "Append only new tracks to existing playlists")
	fs.Bool(KeyGenerateOnly, false, "Generate playlists only; skip upload")
	fs.Bool(KeyEncodeSpaces, false, "Encode spaces as %20 in written paths")
	fs.Bool(KeySkipEmpty, false, "Skip folders without media files instead of writing header-only playlists")
	fs.StringSlice(KeyExtensions, d.Generate.Extensions, "Media file extensions to include")
	fs.String(KeyFFprobe, d.Generate.FFprobePath, "ffprobe binary used for durations; empty disables probing")
	fs.Bool(KeyVerifyUploads, false, "Check that every playlist exists on Plex by name")

	if mode == ModeWatch {
		fs.Duration(KeySettleDelay, d.Watch.SettleDelay, "Quiet period after a file change before regenerating")
		return
	}

	fs.Bool(KeyUseExisting, false, "Use existing .m3u8 files; skip regeneration")
	fs.Bool(KeyForce, false, "Regenerate even when every playlist file already exists")
}

// BindFlags makes v resolve keys from fs.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	return v.BindPFlags(fs)
}
