package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/logvault/internal/adapter/fsutil"
	"github.com/V4T54L/logvault/internal/adapter/lock"
	"github.com/V4T54L/logvault/internal/adapter/metrics"
	"github.com/V4T54L/logvault/internal/domain"
)

// State is a step of a backup run.
type State string

const (
	StateIdle            State = "idle"
	StateMeasuringBefore State = "measuring_before"
	StatePackaging       State = "packaging"
	StateNoOp            State = "noop"
	StateEncoding        State = "encoding"
	StateMeasuringAfter  State = "measuring_after"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// Packager turns a set of files into one archive. An empty file set yields
// an empty path and no archive.
type Packager interface {
	Pack(files []string, root string) (string, error)
}

// BackupResult describes a finished run.
type BackupResult struct {
	RunID    string
	Outcome  domain.RunOutcome
	Artifact *domain.Artifact
	Report   domain.RunReport
	States   []State
}

// BackupUseCase packages the sanitized directory into one encoded artifact.
type BackupUseCase struct {
	lister       FileLister
	packager     Packager
	encoder      domain.Encoder
	logger       *slog.Logger
	sanitizedDir string
	outputDir    string
	now          func() time.Time

	catalog  domain.ArtifactCatalog
	recorder domain.RunRecorder
	metrics  *metrics.BackupMetrics
}

// NewBackupUseCase creates a new BackupUseCase.
func NewBackupUseCase(lister FileLister, packager Packager, encoder domain.Encoder, logger *slog.Logger, sanitizedDir, outputDir string) *BackupUseCase {
	return &BackupUseCase{
		lister:       lister,
		packager:     packager,
		encoder:      encoder,
		logger:       logger.With("component", "backup"),
		sanitizedDir: sanitizedDir,
		outputDir:    outputDir,
		now:          time.Now,
	}
}

// WithCatalog registers every produced artifact in c.
func (uc *BackupUseCase) WithCatalog(c domain.ArtifactCatalog) *BackupUseCase {
	uc.catalog = c
	return uc
}

// WithRecorder publishes every run report to r.
func (uc *BackupUseCase) WithRecorder(r domain.RunRecorder) *BackupUseCase {
	uc.recorder = r
	return uc
}

// WithMetrics attaches Prometheus gauges.
func (uc *BackupUseCase) WithMetrics(m *metrics.BackupMetrics) *BackupUseCase {
	uc.metrics = m
	return uc
}

// WithClock overrides time.Now.
func (uc *BackupUseCase) WithClock(now func() time.Time) *BackupUseCase {
	uc.now = now
	return uc
}

type backupRun struct {
	logger *slog.Logger
	states []State
}

func (r *backupRun) enter(s State) {
	r.states = append(r.states, s)
	r.logger.Debug("Backup state", "state", string(s))
}

// Run executes one backup. Done and NoOp return a nil error; any other
// outcome returns an error wrapping one of the domain error classes.
func (uc *BackupUseCase) Run(ctx context.Context) (*BackupResult, error) {
	runID := uuid.NewString()
	run := &backupRun{logger: uc.logger.With("run_id", runID)}
	run.enter(StateIdle)

	start := uc.now().UTC()
	report := domain.RunReport{RunID: runID, StartedAt: start}

	result, err := uc.run(ctx, run, &report)
	report.FinishedAt = uc.now().UTC()
	report.Duration = report.FinishedAt.Sub(start)

	if err != nil {
		run.enter(StateFailed)
		report.Outcome = domain.OutcomeFailed
		report.Error = err.Error()
		run.logger.Error("Backup failed", "error", err)
	}
	if uc.metrics != nil {
		uc.metrics.RunsTotal.WithLabelValues(string(report.Outcome)).Inc()
	}
	uc.publish(ctx, run.logger, report)

	if result == nil {
		result = &BackupResult{}
	}
	result.RunID = runID
	result.Outcome = report.Outcome
	result.Report = report
	result.States = run.states
	return result, err
}

func (uc *BackupUseCase) run(ctx context.Context, run *backupRun, report *domain.RunReport) (*BackupResult, error) {
	if err := uc.checkDirs(); err != nil {
		return nil, err
	}

	runLock := lock.New(uc.outputDir)
	if err := runLock.TryAcquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := runLock.Release(); err != nil {
			run.logger.Warn("Failed to release run lock", "error", err)
		}
	}()

	run.enter(StateMeasuringBefore)
	report.SizeBeforeBytes = fsutil.DirSize(uc.sanitizedDir, run.logger)

	run.enter(StatePackaging)
	files, err := uc.lister.List(uc.sanitizedDir)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", domain.ErrPackaging, uc.sanitizedDir, err)
	}
	report.FileCount = len(files)

	archivePath, err := uc.packager.Pack(files, uc.sanitizedDir)
	if err != nil {
		return nil, asClass(err, domain.ErrPackaging)
	}
	if archivePath == "" {
		run.enter(StateNoOp)
		report.Outcome = domain.OutcomeNoOp
		run.logger.Info("No sanitized files found, nothing to back up", "sanitized_dir", uc.sanitizedDir)
		return &BackupResult{}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: cancelled before encoding, archive kept at %s: %v", domain.ErrEncoding, archivePath, err)
	}

	run.enter(StateEncoding)
	artifactPath, err := uc.encoder.Encode(archivePath)
	if err != nil {
		return nil, asClass(err, domain.ErrEncoding)
	}
	report.ArtifactPath = artifactPath

	run.enter(StateMeasuringAfter)
	info, err := os.Stat(artifactPath)
	if err != nil {
		run.logger.Warn("Cannot stat artifact", "path", artifactPath, "error", err)
	} else {
		report.SizeAfterBytes = info.Size()
	}
	end := uc.now().UTC()
	duration := end.Sub(report.StartedAt)

	run.logger.Info("metrics",
		"size_before_bytes", report.SizeBeforeBytes,
		"size_after_bytes", report.SizeAfterBytes,
		"backup_duration_seconds", duration.Seconds(),
		"start_time", report.StartedAt.Format(time.RFC3339),
		"end_time", end.Format(time.RFC3339),
	)
	if uc.metrics != nil {
		uc.metrics.ObserveBackup(report.SizeBeforeBytes, report.SizeAfterBytes, duration, end)
	}

	artifact := &domain.Artifact{
		Path:      artifactPath,
		SizeBytes: report.SizeAfterBytes,
		CreatedAt: end,
		Encoding:  uc.encoder.Name(),
		RunID:     report.RunID,
	}
	if uc.catalog != nil {
		if err := uc.catalog.SaveArtifact(ctx, *artifact); err != nil {
			run.logger.Warn("Failed to catalog artifact", "path", artifactPath, "error", err)
		}
	}

	run.enter(StateDone)
	report.Outcome = domain.OutcomeDone
	run.logger.Info("Backup completed", "artifact", artifactPath, "files", report.FileCount)
	return &BackupResult{Artifact: artifact}, nil
}

// checkDirs validates the sanitized root and prepares the output directory.
// The output directory must not live under the sanitized root, otherwise
// each run would archive the previous artifacts.
func (uc *BackupUseCase) checkDirs() error {
	info, err := os.Stat(uc.sanitizedDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: sanitized directory %s is not available", domain.ErrConfiguration, uc.sanitizedDir)
	}
	if within(uc.sanitizedDir, uc.outputDir) {
		return fmt.Errorf("%w: backup directory %s is inside sanitized directory %s", domain.ErrConfiguration, uc.outputDir, uc.sanitizedDir)
	}
	if err := os.MkdirAll(uc.outputDir, 0755); err != nil {
		return fmt.Errorf("%w: cannot create backup directory %s: %v", domain.ErrConfiguration, uc.outputDir, err)
	}
	return nil
}

func (uc *BackupUseCase) publish(ctx context.Context, logger *slog.Logger, report domain.RunReport) {
	if uc.recorder == nil {
		return
	}
	if err := uc.recorder.RecordRun(ctx, report); err != nil {
		logger.Warn("Failed to publish run report", "error", err)
	}
}

func within(root, path string) bool {
	absRoot, err1 := filepath.Abs(root)
	absPath, err2 := filepath.Abs(path)
	if err1 != nil || err2 != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// asClass makes sure err carries class for errors.Is checks.
func asClass(err, class error) error {
	if errors.Is(err, class) {
		return err
	}
	return fmt.Errorf("%w: %v", class, err)
}
