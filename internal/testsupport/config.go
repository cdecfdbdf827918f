package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"archivist/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The log and flag directories exist on return, mirroring a live ingest host.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.FlagDir = filepath.Join(base, "flags")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Archive.PollInterval = 1
	cfgVal.Archive.OperationTimeout = 30

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	for _, dir := range []string{cfgVal.Paths.LogDir, cfgVal.Paths.FlagDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := cfgVal.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithOperationTimeout overrides archive.operation_timeout (seconds).
func WithOperationTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.OperationTimeout = seconds
	}
}

// WithCompressionLevel overrides archive.compression_level.
func WithCompressionLevel(level int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.CompressionLevel = level
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
