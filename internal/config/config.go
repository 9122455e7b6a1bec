package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir      string `toml:"work_dir"`
	CompletedDir string `toml:"completed_dir"`
	LogDir       string `toml:"log_dir"`
	APIBind      string `toml:"api_bind"`
}

// Network contains upstream request configuration shared by the resolver
// and the extractor.
type Network struct {
	// ProxyURL routes all in-process library calls when set. Scheme must
	// be http or https. Falls back to AUDIOPRESS_PROXY_URL.
	ProxyURL               string `toml:"proxy_url"`
	MetadataTimeoutSeconds int    `toml:"metadata_timeout_seconds"`
	DownloadTimeoutSeconds int    `toml:"download_timeout_seconds"`
}

// Tools contains external executable configuration.
type Tools struct {
	// FFmpegPath overrides PATH resolution of the encoder. Falls back to
	// AUDIOPRESS_FFMPEG.
	FFmpegPath            string `toml:"ffmpeg_path"`
	FFprobePath           string `toml:"ffprobe_path"`
	ProbeTimeoutSeconds   int    `toml:"probe_timeout_seconds"`
	ExtractTimeoutMinutes int    `toml:"extract_timeout_minutes"`
}

// Limits contains the policy ceilings applied to every job.
type Limits struct {
	MaxDurationSeconds int     `toml:"max_duration_seconds"`
	ArtifactTTLDays    int     `toml:"artifact_ttl_days"`
	RequestsPerSecond  float64 `toml:"requests_per_second"`
	RequestBurst       int     `toml:"request_burst"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for audiopress.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Network Network `toml:"network"`
	Tools   Tools   `toml:"tools"`
	Limits  Limits  `toml:"limits"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/audiopress/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("audiopress.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.CompletedDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MetadataTimeout bounds each in-process metadata attempt.
func (c *Config) MetadataTimeout() time.Duration {
	return time.Duration(c.Network.MetadataTimeoutSeconds) * time.Second
}

// DownloadTimeout bounds a full stream download or tool extraction.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Network.DownloadTimeoutSeconds) * time.Second
}

// ProbeTimeout bounds one external tool version probe.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Tools.ProbeTimeoutSeconds) * time.Second
}

// ExtractTimeout bounds one external tool extraction run.
func (c *Config) ExtractTimeout() time.Duration {
	return time.Duration(c.Tools.ExtractTimeoutMinutes) * time.Minute
}

// MaxDuration is the longest video the service will convert.
func (c *Config) MaxDuration() time.Duration {
	return time.Duration(c.Limits.MaxDurationSeconds) * time.Second
}

// ArtifactTTL is how long completed artifacts stay downloadable.
func (c *Config) ArtifactTTL() time.Duration {
	return time.Duration(c.Limits.ArtifactTTLDays) * 24 * time.Hour
}

// FFmpegBinary returns the configured encoder executable, defaulting to
// PATH resolution of "ffmpeg".
func (c *Config) FFmpegBinary() string {
	if path := strings.TrimSpace(c.Tools.FFmpegPath); path != "" {
		return path
	}
	return "ffmpeg"
}

// FFprobeBinary returns the media probe executable used for verification.
func (c *Config) FFprobeBinary() string {
	if path := strings.TrimSpace(c.Tools.FFprobePath); path != "" {
		return path
	}
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
