package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNetwork()
	c.normalizeTools()
	c.normalizeLimits()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CompletedDir) == "" {
		c.Paths.CompletedDir = defaultCompletedDir
	}
	if c.Paths.CompletedDir, err = expandPath(c.Paths.CompletedDir); err != nil {
		return fmt.Errorf("paths.completed_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeNetwork() {
	c.Network.ProxyURL = strings.TrimSpace(c.Network.ProxyURL)
	if c.Network.ProxyURL == "" {
		if value, ok := os.LookupEnv("AUDIOPRESS_PROXY_URL"); ok {
			c.Network.ProxyURL = strings.TrimSpace(value)
		}
	}
	if c.Network.MetadataTimeoutSeconds <= 0 {
		c.Network.MetadataTimeoutSeconds = defaultMetadataTimeoutSeconds
	}
	if c.Network.DownloadTimeoutSeconds <= 0 {
		c.Network.DownloadTimeoutSeconds = defaultDownloadTimeoutSeconds
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpegPath = strings.TrimSpace(c.Tools.FFmpegPath)
	if c.Tools.FFmpegPath == "" {
		if value, ok := os.LookupEnv("AUDIOPRESS_FFMPEG"); ok {
			c.Tools.FFmpegPath = strings.TrimSpace(value)
		}
	}
	c.Tools.FFprobePath = strings.TrimSpace(c.Tools.FFprobePath)
	if c.Tools.ProbeTimeoutSeconds <= 0 {
		c.Tools.ProbeTimeoutSeconds = defaultProbeTimeoutSeconds
	}
	if c.Tools.ExtractTimeoutMinutes <= 0 {
		c.Tools.ExtractTimeoutMinutes = defaultExtractTimeoutMinutes
	}
}

func (c *Config) normalizeLimits() {
	if c.Limits.MaxDurationSeconds <= 0 {
		c.Limits.MaxDurationSeconds = defaultMaxDurationSeconds
	}
	if c.Limits.ArtifactTTLDays <= 0 {
		c.Limits.ArtifactTTLDays = defaultArtifactTTLDays
	}
	if c.Limits.RequestsPerSecond <= 0 {
		c.Limits.RequestsPerSecond = defaultRequestsPerSecond
	}
	if c.Limits.RequestBurst <= 0 {
		c.Limits.RequestBurst = defaultRequestBurst
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
