package domain

import "errors"

// Error classes used across the pipeline. Wrap them with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	// ErrConfiguration means a required root directory is missing or unusable.
	ErrConfiguration = errors.New("configuration error")
	// ErrFileIO is a per-file read or write failure. It never aborts a batch.
	ErrFileIO = errors.New("file i/o error")
	// ErrLineProcessing is a per-line failure. The line is dropped.
	ErrLineProcessing = errors.New("line processing error")
	// ErrPackaging means the archive could not be created.
	ErrPackaging = errors.New("packaging error")
	// ErrEncoding means the archive could not be turned into an artifact.
	// The archive is left in place.
	ErrEncoding = errors.New("encoding error")
	// ErrRunInProgress means another backup holds the output directory lock.
	ErrRunInProgress = errors.New("backup run already in progress")
)
