package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if err := requireDirectory("paths.log_dir", EnvLogDir, c.Paths.LogDir); err != nil {
		return err
	}
	if err := requireDirectory("paths.flag_dir", EnvFlagDir, c.Paths.FlagDir); err != nil {
		return err
	}
	if filepath.Clean(c.Paths.LogDir) == filepath.Clean(c.Paths.FlagDir) {
		return errors.New("paths.log_dir and paths.flag_dir must be different directories")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func requireDirectory(key, env, path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%s is required. Set %s or edit the config file (create with 'archivist config init')", key, env)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: directory %q does not exist", key, path)
		}
		return fmt.Errorf("%s: stat %q: %w", key, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %q is not a directory", key, path)
	}
	return nil
}

func (c *Config) validateArchive() error {
	if c.Archive.PollInterval <= 0 {
		return errors.New("archive.poll_interval must be positive (seconds)")
	}
	if c.Archive.OperationTimeout < 0 {
		return errors.New("archive.operation_timeout must be zero (disabled) or positive (seconds)")
	}
	if c.Archive.CompressionLevel < -1 || c.Archive.CompressionLevel > 9 {
		return errors.New("archive.compression_level must be between -1 and 9")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console, json, or auto)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
