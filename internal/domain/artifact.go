package domain

import "time"

// Artifact is a finished backup file handed to the output directory.
type Artifact struct {
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	Encoding  string    `json:"encoding"`
	RunID     string    `json:"run_id"`
}

// RunOutcome is the terminal state of a backup run.
type RunOutcome string

const (
	OutcomeDone   RunOutcome = "done"
	OutcomeNoOp   RunOutcome = "noop"
	OutcomeFailed RunOutcome = "failed"
)

// RunReport summarizes one backup invocation for external consumers.
type RunReport struct {
	RunID           string        `json:"run_id"`
	Outcome         RunOutcome    `json:"outcome"`
	StartedAt       time.Time     `json:"start_time"`
	FinishedAt      time.Time     `json:"end_time"`
	Duration        time.Duration `json:"backup_duration_ns"`
	SizeBeforeBytes int64         `json:"size_before_bytes"`
	SizeAfterBytes  int64         `json:"size_after_bytes"`
	FileCount       int           `json:"file_count"`
	ArtifactPath    string        `json:"artifact_path,omitempty"`
	Error           string        `json:"error,omitempty"`
}
