package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"archivist/internal/config"
)

func ingestDirs(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	logDir := filepath.Join(base, "logs")
	flagDir := filepath.Join(base, "flags")
	for _, dir := range []string{logDir, flagDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return logDir, flagDir
}

func TestLoadFromEnvironment(t *testing.T) {
	logDir, flagDir := ingestDirs(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.EnvLogDir, logDir)
	t.Setenv(config.EnvFlagDir, flagDir)
	t.Setenv(config.EnvStateDir, "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Paths.LogDir != logDir {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, logDir)
	}
	if cfg.Paths.FlagDir != flagDir {
		t.Fatalf("unexpected flag dir: got %q want %q", cfg.Paths.FlagDir, flagDir)
	}
	wantState := filepath.Join(tempHome, ".local", "share", "archivist")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.PollInterval().Seconds() != 15 {
		t.Fatalf("expected default poll interval of 15s, got %s", cfg.PollInterval())
	}
	if cfg.Logging.Format != "auto" {
		t.Fatalf("expected default log format auto, got %q", cfg.Logging.Format)
	}
	if cfg.ArchiveRoot() != filepath.Join(logDir, "archive") {
		t.Fatalf("unexpected archive root %q", cfg.ArchiveRoot())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(cfg.Paths.StateDir); err != nil || !info.IsDir() {
		t.Fatalf("expected state dir to exist: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	logDir, flagDir := ingestDirs(t)
	t.Setenv(config.EnvLogDir, "")
	t.Setenv(config.EnvFlagDir, "")
	configPath := filepath.Join(t.TempDir(), "archivist.toml")

	type payload struct {
		Paths struct {
			LogDir   string `toml:"log_dir"`
			FlagDir  string `toml:"flag_dir"`
			StateDir string `toml:"state_dir"`
		} `toml:"paths"`
		Archive struct {
			PollInterval int `toml:"poll_interval"`
		} `toml:"archive"`
	}
	custom := payload{}
	custom.Paths.LogDir = logDir
	custom.Paths.FlagDir = flagDir
	custom.Paths.StateDir = filepath.Join(t.TempDir(), "state")
	custom.Archive.PollInterval = 30
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Archive.PollInterval != 30 {
		t.Fatalf("expected poll interval override, got %d", cfg.Archive.PollInterval)
	}
	if cfg.Paths.StateDir != custom.Paths.StateDir {
		t.Fatalf("expected state dir override, got %q", cfg.Paths.StateDir)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	logDir, flagDir := ingestDirs(t)
	otherLogs, _ := ingestDirs(t)
	configPath := filepath.Join(t.TempDir(), "archivist.toml")
	content := "[paths]\nlog_dir = \"" + logDir + "\"\nflag_dir = \"" + flagDir + "\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.EnvLogDir, otherLogs)
	t.Setenv(config.EnvFlagDir, "")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.LogDir != otherLogs {
		t.Fatalf("expected env log dir %q, got %q", otherLogs, cfg.Paths.LogDir)
	}
	if cfg.Paths.FlagDir != flagDir {
		t.Fatalf("expected file flag dir %q, got %q", flagDir, cfg.Paths.FlagDir)
	}
}

func TestLoadFailsFast(t *testing.T) {
	logDir, flagDir := ingestDirs(t)
	missing := filepath.Join(t.TempDir(), "missing")
	notDir := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(notDir, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	tests := []struct {
		name    string
		logDir  string
		flagDir string
		want    string
	}{
		{"missing log dir", "", flagDir, "paths.log_dir is required"},
		{"missing flag dir", logDir, "", "paths.flag_dir is required"},
		{"nonexistent log dir", missing, flagDir, "does not exist"},
		{"flag dir is a file", logDir, notDir, "is not a directory"},
		{"same directory", logDir, logDir, "must be different"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			t.Setenv(config.EnvLogDir, tc.logDir)
			t.Setenv(config.EnvFlagDir, tc.flagDir)
			_, _, _, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateArchiveAndLogging(t *testing.T) {
	logDir, flagDir := ingestDirs(t)
	base := config.Default()
	base.Paths.LogDir = logDir
	base.Paths.FlagDir = flagDir
	base.Paths.StateDir = t.TempDir()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero poll interval", func(c *config.Config) { c.Archive.PollInterval = 0 }},
		{"negative timeout", func(c *config.Config) { c.Archive.OperationTimeout = -1 }},
		{"compression level too high", func(c *config.Config) { c.Archive.CompressionLevel = 10 }},
		{"unknown log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"unknown log level", func(c *config.Config) { c.Logging.Level = "trace" }},
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	logDir, flagDir := ingestDirs(t)
	t.Setenv(config.EnvLogDir, logDir)
	t.Setenv(config.EnvFlagDir, flagDir)
	configPath := filepath.Join(t.TempDir(), "archivist.toml")
	if err := os.WriteFile(configPath, []byte("[archive]\nretention_days = 30\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected parse error for unknown key")
	}
}

func TestCreateSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if parsed.Archive.PollInterval != 15 {
		t.Fatalf("expected sample poll interval 15, got %d", parsed.Archive.PollInterval)
	}
	if parsed.Logging.Format != "auto" {
		t.Fatalf("expected sample log format auto, got %q", parsed.Logging.Format)
	}
}
