package config

const (
	defaultWorkDir      = "~/.local/share/audiopress/work"
	defaultCompletedDir = "~/.local/share/audiopress/completed"
	defaultLogDir       = "~/.local/share/audiopress/logs"
	defaultAPIBind      = "127.0.0.1:7496"

	defaultMetadataTimeoutSeconds = 10
	defaultDownloadTimeoutSeconds = 600
	defaultProbeTimeoutSeconds    = 5
	defaultExtractTimeoutMinutes  = 10

	defaultMaxDurationSeconds = 600
	defaultArtifactTTLDays    = 5
	defaultRequestsPerSecond  = 5.0
	defaultRequestBurst       = 10

	defaultLogLevel = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:      defaultWorkDir,
			CompletedDir: defaultCompletedDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		Network: Network{
			MetadataTimeoutSeconds: defaultMetadataTimeoutSeconds,
			DownloadTimeoutSeconds: defaultDownloadTimeoutSeconds,
		},
		Tools: Tools{
			ProbeTimeoutSeconds:   defaultProbeTimeoutSeconds,
			ExtractTimeoutMinutes: defaultExtractTimeoutMinutes,
		},
		Limits: Limits{
			MaxDurationSeconds: defaultMaxDurationSeconds,
			ArtifactTTLDays:    defaultArtifactTTLDays,
			RequestsPerSecond:  defaultRequestsPerSecond,
			RequestBurst:       defaultRequestBurst,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
