package archive

import "errors"

var (
	// ErrNoSources reports a job with no raw logs and no staged data.
	ErrNoSources = errors.New("no raw logs")
	// ErrSnapshot reports a failure listing the raw logs.
	ErrSnapshot = errors.New("snapshot raw logs")
	// ErrCompress reports a failure writing the staging file.
	ErrCompress = errors.New("compress raw logs")
	// ErrMove reports a failure placing the staging file into the archive.
	ErrMove = errors.New("move staging file")
)
