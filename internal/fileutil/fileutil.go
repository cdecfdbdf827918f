package fileutil

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// contextReader aborts a stream once its context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

// NewContextReader wraps r so reads fail with ctx.Err() after cancellation.
func NewContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &contextReader{ctx: ctx, r: r}
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// AppendFileVerified streams src onto the end of dst with SHA256 + size
// integrity verification, creating dst when it does not exist. On any failure
// dst is restored to its previous length (or removed if it was created).
func AppendFileVerified(ctx context.Context, src, dst string) (int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	_, statErr := os.Stat(dst)
	created := errors.Is(statErr, fs.ErrNotExist)

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, err
	}
	outInfo, err := out.Stat()
	if err != nil {
		_ = out.Close()
		return 0, fmt.Errorf("stat destination: %w", err)
	}
	offset := outInfo.Size()

	rollback := func(cause error) (int64, error) {
		if created {
			_ = out.Close()
			_ = os.Remove(dst)
			return 0, cause
		}
		_ = out.Truncate(offset)
		_ = out.Close()
		return 0, cause
	}

	srcHasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(NewContextReader(ctx, in), srcHasher))
	if err != nil {
		return rollback(err)
	}
	if written != srcSize {
		return rollback(fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written))
	}
	if err := out.Sync(); err != nil {
		return rollback(fmt.Errorf("sync destination: %w", err))
	}

	dstHash, err := hashRange(dst, offset, written)
	if err != nil {
		return rollback(fmt.Errorf("verify destination: %w", err))
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHash) {
		return rollback(fmt.Errorf("copy hash mismatch: file corrupted during copy"))
	}

	if err := out.Close(); err != nil {
		return 0, err
	}
	return written, nil
}

func hashRange(path string, offset, length int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hasher := sha256.New()
	n, err := io.Copy(hasher, io.NewSectionReader(f, offset, length))
	if err != nil {
		return nil, err
	}
	if n != length {
		return nil, fmt.Errorf("short read: expected %d bytes, read %d", length, n)
	}
	return hasher.Sum(nil), nil
}
