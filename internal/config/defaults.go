package config

const (
	defaultSidecarFileName = ".checksums"
	defaultHashTool        = "sha256sum"
	defaultVerifyPercent   = 100
	defaultLockWaitSeconds = 2
	defaultHistoryPath     = "~/.local/share/scrub/history.db"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Sidecar: Sidecar{
			FileName: defaultSidecarFileName,
			HashTool: defaultHashTool,
		},
		Verify: Verify{
			Percent:         defaultVerifyPercent,
			LockWaitSeconds: defaultLockWaitSeconds,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
