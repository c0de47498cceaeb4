package domain

import "context"

// ErrorSink is the side channel for ErrorRecords.
// Record must never fail or panic; implementations swallow their own errors
// so they cannot mask the failure being reported. Safe for concurrent use.
type ErrorSink interface {
	Record(message string)
}

// Encoder turns a packaged archive into the final artifact and removes the
// archive on success. It is a reversible encoding, not encryption; a real
// authenticated cipher can be dropped in behind the same contract.
type Encoder interface {
	// Name identifies the encoding mode, e.g. "base64".
	Name() string

	// Encode writes the artifact next to archivePath and returns its path.
	// On error the archive must be left untouched.
	Encode(archivePath string) (string, error)
}

// ArtifactCatalog records finished artifacts in an external index.
type ArtifactCatalog interface {
	SaveArtifact(ctx context.Context, artifact Artifact) error
}

// RunRecorder publishes run reports to an external consumer.
type RunRecorder interface {
	RecordRun(ctx context.Context, report RunReport) error
}
