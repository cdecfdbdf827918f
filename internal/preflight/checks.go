package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// MinFreeBytes is the free space below which the log directory check fails.
const MinFreeBytes = 512 * 1024 * 1024

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSameFilesystem reports whether target (or its nearest existing parent)
// lives on the same device as base. A mismatch still works but turns every
// archive move into a verified copy.
func CheckSameFilesystem(name, base, target string) Result {
	var baseStat unix.Stat_t
	if err := unix.Stat(base, &baseStat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", base, err)}
	}
	existing, err := nearestExisting(target)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", target, err)}
	}
	var targetStat unix.Stat_t
	if err := unix.Stat(existing, &targetStat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", existing, err)}
	}
	if baseStat.Dev != targetStat.Dev {
		return Result{Name: name, Detail: fmt.Sprintf("%s (different filesystem; moves fall back to copy)", target)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (same filesystem as log directory)", target)}
}

// CheckFreeSpace verifies at least minFree bytes are available at path.
func CheckFreeSpace(name, path string, minFree uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := st.Bavail * uint64(st.Bsize)
	if free < minFree {
		return Result{Name: name, Detail: fmt.Sprintf("%s free, below %s", humanize.Bytes(free), humanize.Bytes(minFree))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s free", humanize.Bytes(free))}
}

func nearestExisting(path string) (string, error) {
	current := filepath.Clean(path)
	for {
		_, err := os.Stat(current)
		if err == nil {
			return current, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}
		current = parent
	}
}
