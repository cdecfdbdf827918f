package preflight

import (
	"archivist/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Flag directory", cfg.Paths.FlagDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckSameFilesystem("Archive filesystem", cfg.Paths.LogDir, cfg.ArchiveRoot()),
		CheckFreeSpace("Log directory free space", cfg.Paths.LogDir, MinFreeBytes),
	}
}
