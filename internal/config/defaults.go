package config

const (
	defaultStateDir         = "~/.local/share/archivist"
	defaultPollInterval     = 15
	defaultOperationTimeout = 600
	defaultCompressionLevel = 6
	defaultLogFormat        = "auto"
	defaultLogLevel         = "info"

	// EnvLogDir overrides paths.log_dir.
	EnvLogDir = "ARCHIVIST_LOG_DIR"
	// EnvFlagDir overrides paths.flag_dir.
	EnvFlagDir = "ARCHIVIST_FLAG_DIR"
	// EnvStateDir overrides paths.state_dir.
	EnvStateDir = "ARCHIVIST_STATE_DIR"
)

// Default returns a Config populated with repository defaults. The log and
// flag directories have no default and must be supplied.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Archive: Archive{
			PollInterval:     defaultPollInterval,
			OperationTimeout: defaultOperationTimeout,
			CompressionLevel: defaultCompressionLevel,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
