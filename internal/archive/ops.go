package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sys/unix"

	"archivist/internal/fileutil"
)

// CompressStats summarizes one ConcatCompress call.
type CompressStats struct {
	InputBytes  int64
	OutputBytes int64
	// Missing lists sources that vanished before they could be read.
	Missing []string
}

// Ops is the filesystem surface used by Writer.
type Ops interface {
	// Glob lists regular files in dir whose names start with prefix and end
	// with suffix, in lexical order.
	Glob(ctx context.Context, dir, prefix, suffix string) ([]string, error)
	// Exists reports whether path exists.
	Exists(ctx context.Context, path string) (bool, error)
	// ConcatCompress appends one gzip member holding the concatenation of
	// sources to dst. Sources that no longer exist are skipped. On failure dst
	// is restored to its previous length.
	ConcatCompress(ctx context.Context, dst string, sources []string) (CompressStats, error)
	// Move places src at dst. An existing dst is extended with src's bytes.
	// If src cannot be removed after a copy, dst is restored and an error is
	// returned.
	Move(ctx context.Context, src, dst string) error
	// Remove deletes path. A missing path is not an error.
	Remove(ctx context.Context, path string) error
}

// OSOps implements Ops on the local filesystem.
type OSOps struct {
	// Level is the gzip compression level, -1 through 9.
	Level  int
	rename func(oldpath, newpath string) error
	remove func(path string) error
}

// NewOSOps returns filesystem operations compressing at level.
func NewOSOps(level int) *OSOps {
	return &OSOps{Level: level, rename: os.Rename, remove: os.Remove}
}

func (o *OSOps) Glob(ctx context.Context, dir, prefix, suffix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		if len(name) < len(prefix)+len(suffix) {
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		matches = append(matches, filepath.Join(dir, name))
	}
	sort.Strings(matches)
	return matches, nil
}

func (o *OSOps) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (o *OSOps) ConcatCompress(ctx context.Context, dst string, sources []string) (CompressStats, error) {
	var stats CompressStats

	_, statErr := os.Stat(dst)
	created := errors.Is(statErr, fs.ErrNotExist)

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return stats, err
	}
	info, err := out.Stat()
	if err != nil {
		_ = out.Close()
		return stats, err
	}
	offset := info.Size()

	rollback := func(cause error) (CompressStats, error) {
		if created {
			_ = out.Close()
			_ = os.Remove(dst)
		} else {
			_ = out.Truncate(offset)
			_ = out.Close()
		}
		return CompressStats{}, cause
	}

	zw, err := gzip.NewWriterLevel(out, o.Level)
	if err != nil {
		return rollback(err)
	}
	for _, src := range sources {
		n, err := copyInto(ctx, zw, src)
		stats.InputBytes += n
		if errors.Is(err, errVanished) {
			stats.Missing = append(stats.Missing, src)
			continue
		}
		if err != nil {
			return rollback(fmt.Errorf("read %s: %w", filepath.Base(src), err))
		}
	}
	if err := zw.Close(); err != nil {
		return rollback(fmt.Errorf("finish gzip stream: %w", err))
	}
	if err := out.Sync(); err != nil {
		return rollback(fmt.Errorf("sync staging file: %w", err))
	}
	final, err := out.Stat()
	if err != nil {
		return rollback(err)
	}
	if err := out.Close(); err != nil {
		return CompressStats{}, err
	}
	stats.OutputBytes = final.Size() - offset
	return stats, nil
}

var errVanished = errors.New("source vanished")

func copyInto(ctx context.Context, w io.Writer, src string) (int64, error) {
	in, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, errVanished
	}
	if err != nil {
		return 0, err
	}
	defer in.Close()
	return io.Copy(w, fileutil.NewContextReader(ctx, in))
}

func (o *OSOps) Move(ctx context.Context, src, dst string) error {
	exists, err := o.Exists(ctx, dst)
	if err != nil {
		return err
	}
	if !exists {
		err := o.rename(src, dst)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EXDEV) {
			return err
		}
	}
	var before int64
	if exists {
		info, err := os.Stat(dst)
		if err != nil {
			return err
		}
		before = info.Size()
	}
	if _, err := fileutil.AppendFileVerified(ctx, src, dst); err != nil {
		return err
	}
	if err := o.remove(src); err != nil && !errors.Is(err, fs.ErrNotExist) {
		// src stays in place for a retry, so its bytes must not remain in dst.
		var undo error
		if exists {
			undo = os.Truncate(dst, before)
		} else {
			undo = os.Remove(dst)
		}
		return fmt.Errorf("remove %s after copy: %w", filepath.Base(src), errors.Join(err, undo))
	}
	return nil
}

func (o *OSOps) Remove(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
