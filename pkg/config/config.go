package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"plexsync/pkg/constants"
)

type Config struct {
	Paths    PathsConfig
	Plex     PlexConfig
	HTTP     HTTPConfig
	Generate GenerateConfig
	Verify   VerifyConfig
	Watch    WatchConfig
	Output   OutputConfig
	Verbose  bool
}

type PathsConfig struct {
	PlaylistFolder string
	LocalRoot      string
	PlexRoot       string
	MasterFile     string
}

type PlexConfig struct {
	BaseURL     string
	Token       string
	LibraryName string
	UploadURL   string
}

type HTTPConfig struct {
	Timeout   time.Duration
	UserAgent string
}

type GenerateConfig struct {
	Incremental  bool
	GenerateOnly bool
	UseExisting  bool
	EncodeSpaces bool
	Force        bool
	SkipEmpty    bool
	Extensions   []string
	FFprobePath  string
	ProbeTimeout time.Duration
}

type VerifyConfig struct {
	Uploads bool
	Content bool
	// Strict makes upload failures and verification mismatches fail the run.
	Strict bool
}

type WatchConfig struct {
	SettleDelay time.Duration
}

type OutputConfig struct {
	ReportFile  string
	MetricsFile string
}

// Mode selects which settings are required.
type Mode int

const (
	ModeGenerate Mode = iota
	ModeVerify
	ModeWatch
)

func (m Mode) String() string {
	switch m {
	case ModeGenerate:
		return "generate"
	case ModeVerify:
		return "verify"
	case ModeWatch:
		return "watch"
	default:
		return "unknown"
	}
}

var defaultConfig = Config{
	Paths: PathsConfig{
		MasterFile: constants.DefaultMasterFile,
	},
	HTTP: HTTPConfig{
		Timeout:   constants.DefaultHTTPTimeout,
		UserAgent: constants.HTTPUserAgent,
	},
	Generate: GenerateConfig{
		Extensions:   constants.DefaultExtensions,
		FFprobePath:  constants.DefaultFFprobePath,
		ProbeTimeout: constants.DefaultProbeTimeout,
	},
	Watch: WatchConfig{
		SettleDelay: constants.DefaultSettleDelay,
	},
}

// Default returns a copy of the built-in defaults.
func Default() Config {
	cfg := defaultConfig
	cfg.Generate.Extensions = append([]string(nil), defaultConfig.Generate.Extensions...)
	return cfg
}

// Load overlays values set in v (flags, PLEXSYNC_* environment, config file) on the
// defaults and validates the result for mode. Every failure is a *ConfigError.
func Load(v *viper.Viper, mode Mode) (*Config, error) {
	cfg := Default()

	if v != nil {
		cfg.loadFromViper(v)
	}

	if err := cfg.resolveAndValidatePaths(mode); err != nil {
		return nil, err
	}

	if err := cfg.validate(mode); err != nil {
		return nil, err
	}

	switch mode {
	case ModeWatch:
		// Watch mode only ever appends to the playlists it maintains.
		cfg.Generate.Incremental = true
	case ModeVerify:
		cfg.Verify.Uploads = true
	}

	return &cfg, nil
}

// NewViper returns a viper instance reading PLEXSYNC_* environment variables and,
// when configFile is non-empty, that file.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, &ConfigError{Field: "config", Reason: fmt.Sprintf("failed to read %s: %v", configFile, err)}
		}
	}
	return v, nil
}

func (c *Config) loadFromViper(v *viper.Viper) {
	if v.IsSet(KeyPlaylistFolder) {
		c.Paths.PlaylistFolder = v.GetString(KeyPlaylistFolder)
	}
	if v.IsSet(KeyLocalRoot) {
		c.Paths.LocalRoot = v.GetString(KeyLocalRoot)
	}
	if v.IsSet(KeyPlexRoot) {
		c.Paths.PlexRoot = v.GetString(KeyPlexRoot)
	}
	if v.IsSet(KeyMasterFile) {
		c.Paths.MasterFile = v.GetString(KeyMasterFile)
	}

	if v.IsSet(KeyPlexURL) {
		c.Plex.BaseURL = v.GetString(KeyPlexURL)
	}
	if v.IsSet(KeyPlexToken) {
		c.Plex.Token = v.GetString(KeyPlexToken)
	}
	if v.IsSet(KeyLibraryName) {
		c.Plex.LibraryName = v.GetString(KeyLibraryName)
	}
	if v.IsSet(KeyAPIURL) {
		c.Plex.UploadURL = v.GetString(KeyAPIURL)
	}

	if v.IsSet(KeyTimeout) {
		c.HTTP.Timeout = v.GetDuration(KeyTimeout)
	}

	if v.IsSet(KeyIncremental) {
		c.Generate.Incremental = v.GetBool(KeyIncremental)
	}
	if v.IsSet(KeyGenerateOnly) {
		c.Generate.GenerateOnly = v.GetBool(KeyGenerateOnly)
	}
	if v.IsSet(KeyUseExisting) {
		c.Generate.UseExisting = v.GetBool(KeyUseExisting)
	}
	if v.IsSet(KeyEncodeSpaces) {
		c.Generate.EncodeSpaces = v.GetBool(KeyEncodeSpaces)
	}
	if v.IsSet(KeyForce) {
		c.Generate.Force = v.GetBool(KeyForce)
	}
	if v.IsSet(KeySkipEmpty) {
		c.Generate.SkipEmpty = v.GetBool(KeySkipEmpty)
	}
	if v.IsSet(KeyExtensions) {
		c.Generate.Extensions = splitList(v.GetStringSlice(KeyExtensions))
	}
	if v.IsSet(KeyFFprobe) {
		c.Generate.FFprobePath = v.GetString(KeyFFprobe)
	}

	if v.IsSet(KeyVerifyUploads) {
		c.Verify.Uploads = v.GetBool(KeyVerifyUploads)
	}
	if v.IsSet(KeyVerifyContent) {
		c.Verify.Content = v.GetBool(KeyVerifyContent)
	}
	if v.IsSet(KeyStrict) {
		c.Verify.Strict = v.GetBool(KeyStrict)
	}

	if v.IsSet(KeySettleDelay) {
		c.Watch.SettleDelay = v.GetDuration(KeySettleDelay)
	}

	if v.IsSet(KeyReportFile) {
		c.Output.ReportFile = v.GetString(KeyReportFile)
	}
	if v.IsSet(KeyMetricsFile) {
		c.Output.MetricsFile = v.GetString(KeyMetricsFile)
	}

	if v.IsSet(KeyVerbose) {
		c.Verbose = v.GetBool(KeyVerbose)
	}
}

func (c *Config) resolveAndValidatePaths(mode Mode) error {
	if c.Paths.PlaylistFolder == "" {
		return missing(KeyPlaylistFolder)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return &ConfigError{Field: KeyPlaylistFolder, Reason: fmt.Sprintf("failed to get working directory: %v", err)}
	}

	// Only join with cwd if path is not already absolute
	if !filepath.IsAbs(c.Paths.PlaylistFolder) {
		c.Paths.PlaylistFolder = filepath.Join(cwd, c.Paths.PlaylistFolder)
	}
	c.Paths.PlaylistFolder = filepath.Clean(c.Paths.PlaylistFolder)

	info, err := os.Stat(c.Paths.PlaylistFolder)
	if err != nil {
		return &ConfigError{Field: KeyPlaylistFolder, Reason: fmt.Sprintf("cannot be read: %v", err)}
	}
	if !info.IsDir() {
		return &ConfigError{Field: KeyPlaylistFolder, Reason: "is not a directory"}
	}

	if mode == ModeVerify {
		return nil
	}

	if c.Paths.LocalRoot != "" && !filepath.IsAbs(c.Paths.LocalRoot) && !isWindowsAbs(c.Paths.LocalRoot) {
		c.Paths.LocalRoot = filepath.Join(cwd, c.Paths.LocalRoot)
	}
	if c.Paths.MasterFile != "" && !filepath.IsAbs(c.Paths.MasterFile) {
		c.Paths.MasterFile = filepath.Join(cwd, c.Paths.MasterFile)
	}

	return nil
}

type requirement struct {
	key   string
	value string
}

func (c *Config) validate(mode Mode) error {
	required := []requirement{
		{KeyPlexURL, c.Plex.BaseURL},
		{KeyPlexToken, c.Plex.Token},
	}
	if mode != ModeVerify {
		required = append(required,
			requirement{KeyLocalRoot, c.Paths.LocalRoot},
			requirement{KeyPlexRoot, c.Paths.PlexRoot},
			requirement{KeyLibraryName, c.Plex.LibraryName},
		)
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return missing(r.key)
		}
	}

	base, err := url.Parse(c.Plex.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return &ConfigError{Field: KeyPlexURL, Reason: fmt.Sprintf("must be an http(s) URL, got %q", c.Plex.BaseURL)}
	}
	c.Plex.BaseURL = strings.TrimRight(c.Plex.BaseURL, "/")

	if c.Plex.UploadURL == "" {
		c.Plex.UploadURL = c.Plex.BaseURL + constants.DefaultUploadPath
	} else if u, err := url.Parse(c.Plex.UploadURL); err != nil || u.Host == "" {
		return &ConfigError{Field: KeyAPIURL, Reason: fmt.Sprintf("must be an absolute URL, got %q", c.Plex.UploadURL)}
	}

	if c.HTTP.Timeout <= 0 {
		return &ConfigError{Field: KeyTimeout, Reason: "must be positive"}
	}

	if mode == ModeVerify {
		return nil
	}

	if c.Generate.UseExisting && c.Generate.Incremental {
		return &ConfigError{Field: KeyUseExisting, Reason: "cannot be combined with --" + KeyIncremental}
	}
	if mode == ModeWatch && c.Generate.UseExisting {
		return &ConfigError{Field: KeyUseExisting, Reason: "is not supported in watch mode"}
	}
	if len(constants.ExtensionSet(c.Generate.Extensions)) == 0 {
		return &ConfigError{Field: KeyExtensions, Reason: "must list at least one extension"}
	}
	if mode == ModeWatch && c.Watch.SettleDelay <= 0 {
		return &ConfigError{Field: KeySettleDelay, Reason: "must be positive"}
	}

	return nil
}

// ShouldUpload reports whether playlists are sent to the server in this run.
func (c *Config) ShouldUpload() bool {
	return !c.Generate.GenerateOnly
}

// NeedsSection reports whether the library section id must be resolved.
func (c *Config) NeedsSection() bool {
	return c.ShouldUpload()
}

// GetPlaylistDir returns the folder holding the playlist called name.
func (c *Config) GetPlaylistDir(name string) string {
	return filepath.Join(c.Paths.PlaylistFolder, name)
}

// GetPlaylistPath returns <folder>/<name>/<name>.m3u8.
func (c *Config) GetPlaylistPath(name string) string {
	return filepath.Join(c.GetPlaylistDir(name), name+constants.PlaylistExt)
}

// isWindowsAbs recognizes drive-letter roots such as C:\Music, which filepath.IsAbs
// rejects on non-Windows hosts.
func isWindowsAbs(p string) bool {
	return len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}

// splitList flattens comma-separated items, which is how list values arrive from
// the environment.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
