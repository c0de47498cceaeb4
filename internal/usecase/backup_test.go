package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/V4T54L/logvault/internal/adapter/archive"
	"github.com/V4T54L/logvault/internal/adapter/encoding"
	"github.com/V4T54L/logvault/internal/adapter/fsutil"
	"github.com/V4T54L/logvault/internal/adapter/lock"
	"github.com/V4T54L/logvault/internal/adapter/metrics"
	"github.com/V4T54L/logvault/internal/domain"
	"github.com/V4T54L/logvault/internal/domain/mocks"
)

// steppingClock returns base, base+1s, base+2s, ... on each call.
func steppingClock(base time.Time) func() time.Time {
	var mu sync.Mutex
	next := base
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Second)
		return t
	}
}

type backupFixture struct {
	sanitized string
	output    string
	encoder   *encoding.Base64Encoder
	archiver  *archive.Archiver
}

func newBackupFixture(t *testing.T) backupFixture {
	t.Helper()
	root := t.TempDir()
	f := backupFixture{
		sanitized: filepath.Join(root, "sanitized"),
		output:    filepath.Join(root, "backups"),
		encoder:   encoding.NewBase64Encoder(discardLogger()),
	}
	if err := os.MkdirAll(f.sanitized, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	clock := steppingClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	f.archiver = archive.NewArchiver(f.output, discardLogger()).WithClock(clock)
	return f
}

func (f backupFixture) useCase(enc domain.Encoder) *BackupUseCase {
	return NewBackupUseCase(fsutil.NewWalker(true), f.archiver, enc, discardLogger(), f.sanitized, f.output)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Name() == lock.FileName {
			continue
		}
		names = append(names, e.Name())
	}
	return names
}

func TestBackupUseCase_Run(t *testing.T) {
	t.Run("No files is a successful no-op", func(t *testing.T) {
		f := newBackupFixture(t)
		enc := &mocks.MockEncoder{Next: f.encoder}
		recorder := &mocks.MockRunRecorder{}
		reg := metrics.NewRegistry()
		uc := f.useCase(enc).WithRecorder(recorder).WithMetrics(reg.Backup)

		res, err := uc.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Outcome != domain.OutcomeNoOp {
			t.Errorf("Outcome = %v, want %v", res.Outcome, domain.OutcomeNoOp)
		}
		if res.Artifact != nil {
			t.Errorf("expected no artifact, got %+v", res.Artifact)
		}
		if len(enc.Encoded) != 0 {
			t.Errorf("encoder must not run on no-op, called with %v", enc.Encoded)
		}
		if got := listDir(t, f.output); len(got) != 0 {
			t.Errorf("output dir should be empty, got %v", got)
		}
		wantStates := []State{StateIdle, StateMeasuringBefore, StatePackaging, StateNoOp}
		if !equalStates(res.States, wantStates) {
			t.Errorf("States = %v, want %v", res.States, wantStates)
		}
		if len(recorder.Reports) != 1 || recorder.Reports[0].Outcome != domain.OutcomeNoOp {
			t.Errorf("expected one noop report, got %+v", recorder.Reports)
		}
		if got := testutil.ToFloat64(reg.Backup.RunsTotal.WithLabelValues("noop")); got != 1 {
			t.Errorf("noop runs = %v, want 1", got)
		}
	})

	t.Run("Artifact restores to the sanitized files", func(t *testing.T) {
		f := newBackupFixture(t)
		files := map[string]string{
			"app.log":           "login_attempt email=<email:8c87b489ce35>\n",
			"nested/worker.log": "customer_id=54321\n",
		}
		for name, content := range files {
			writeFile(t, filepath.Join(f.sanitized, name), content)
		}

		catalog := &mocks.MockArtifactCatalog{}
		reg := metrics.NewRegistry()
		uc := f.useCase(f.encoder).WithCatalog(catalog).WithMetrics(reg.Backup)

		res, err := uc.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Outcome != domain.OutcomeDone {
			t.Fatalf("Outcome = %v, want %v", res.Outcome, domain.OutcomeDone)
		}
		if res.Artifact == nil || !strings.HasSuffix(res.Artifact.Path, archive.Ext+encoding.ArtifactSuffix) {
			t.Fatalf("unexpected artifact %+v", res.Artifact)
		}
		if res.Artifact.SizeBytes <= 0 {
			t.Errorf("artifact size = %d, want > 0", res.Artifact.SizeBytes)
		}
		if res.Report.SizeBeforeBytes == 0 || res.Report.FileCount != 2 {
			t.Errorf("report = %+v", res.Report)
		}
		if got := listDir(t, f.output); len(got) != 1 {
			t.Errorf("expected only the artifact in output, got %v", got)
		}
		wantStates := []State{StateIdle, StateMeasuringBefore, StatePackaging, StateEncoding, StateMeasuringAfter, StateDone}
		if !equalStates(res.States, wantStates) {
			t.Errorf("States = %v, want %v", res.States, wantStates)
		}
		if len(catalog.Artifacts) != 1 || catalog.Artifacts[0].RunID != res.RunID {
			t.Errorf("catalog = %+v", catalog.Artifacts)
		}
		if got := testutil.ToFloat64(reg.Backup.SizeAfterBytes); got != float64(res.Artifact.SizeBytes) {
			t.Errorf("size_after gauge = %v, want %d", got, res.Artifact.SizeBytes)
		}

		dest := t.TempDir()
		n, err := NewRestoreUseCase(f.encoder, discardLogger()).Restore(res.Artifact.Path, dest)
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if n != len(files) {
			t.Errorf("restored %d files, want %d", n, len(files))
		}
		for name, content := range files {
			if got := readFile(t, filepath.Join(dest, name)); got != content {
				t.Errorf("%s = %q, want %q", name, got, content)
			}
		}
	})

	t.Run("Consecutive runs produce distinct artifacts", func(t *testing.T) {
		f := newBackupFixture(t)
		writeFile(t, filepath.Join(f.sanitized, "app.log"), "same content\n")
		uc := f.useCase(f.encoder)

		first, err := uc.Run(context.Background())
		if err != nil {
			t.Fatalf("first Run() error = %v", err)
		}
		second, err := uc.Run(context.Background())
		if err != nil {
			t.Fatalf("second Run() error = %v", err)
		}
		if first.Artifact.Path == second.Artifact.Path {
			t.Fatalf("both runs wrote %s", first.Artifact.Path)
		}
		if first.RunID == second.RunID {
			t.Errorf("run IDs should differ")
		}

		for _, res := range []*BackupResult{first, second} {
			dest := t.TempDir()
			if _, err := NewRestoreUseCase(f.encoder, discardLogger()).Restore(res.Artifact.Path, dest); err != nil {
				t.Fatalf("Restore() error = %v", err)
			}
			if got := readFile(t, filepath.Join(dest, "app.log")); got != "same content\n" {
				t.Errorf("restored content = %q", got)
			}
		}
	})

	t.Run("Same-second rerun fails before packaging", func(t *testing.T) {
		f := newBackupFixture(t)
		fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		f.archiver = archive.NewArchiver(f.output, discardLogger()).WithClock(func() time.Time { return fixed })
		writeFile(t, filepath.Join(f.sanitized, "app.log"), "x\n")
		enc := &mocks.MockEncoder{Next: f.encoder}
		uc := f.useCase(enc)

		if _, err := uc.Run(context.Background()); err != nil {
			t.Fatalf("first Run() error = %v", err)
		}
		res, err := uc.Run(context.Background())
		if !errors.Is(err, domain.ErrPackaging) {
			t.Fatalf("second Run() error = %v, want ErrPackaging", err)
		}
		if len(enc.Encoded) != 1 {
			t.Errorf("encoder called %d times, want 1", len(enc.Encoded))
		}
		for _, s := range res.States {
			if s == StateEncoding {
				t.Errorf("second run reached %v", StateEncoding)
			}
		}
		if got := listDir(t, f.output); len(got) != 1 || got[0] != archive.Name(fixed)+encoding.ArtifactSuffix {
			t.Errorf("output dir = %v, want only the first artifact", got)
		}
	})

	t.Run("Encoder failure keeps the archive", func(t *testing.T) {
		f := newBackupFixture(t)
		writeFile(t, filepath.Join(f.sanitized, "app.log"), "x\n")
		recorder := &mocks.MockRunRecorder{}
		enc := &mocks.MockEncoder{Err: errors.New("disk full")}
		uc := f.useCase(enc).WithRecorder(recorder)

		res, err := uc.Run(context.Background())
		if !errors.Is(err, domain.ErrEncoding) {
			t.Fatalf("Run() error = %v, want ErrEncoding", err)
		}
		if res.Outcome != domain.OutcomeFailed {
			t.Errorf("Outcome = %v, want %v", res.Outcome, domain.OutcomeFailed)
		}
		if len(enc.Encoded) != 1 {
			t.Fatalf("expected one encode call, got %v", enc.Encoded)
		}
		if _, err := os.Stat(enc.Encoded[0]); err != nil {
			t.Errorf("archive should be preserved: %v", err)
		}
		if last := res.States[len(res.States)-1]; last != StateFailed {
			t.Errorf("last state = %v, want %v", last, StateFailed)
		}
		if len(recorder.Reports) != 1 || recorder.Reports[0].Error == "" {
			t.Errorf("expected a failed report with error, got %+v", recorder.Reports)
		}
	})

	t.Run("Missing sanitized directory is a configuration error", func(t *testing.T) {
		f := newBackupFixture(t)
		if err := os.RemoveAll(f.sanitized); err != nil {
			t.Fatalf("remove: %v", err)
		}
		res, err := f.useCase(f.encoder).Run(context.Background())
		if !errors.Is(err, domain.ErrConfiguration) {
			t.Fatalf("Run() error = %v, want ErrConfiguration", err)
		}
		if res.Outcome != domain.OutcomeFailed {
			t.Errorf("Outcome = %v, want %v", res.Outcome, domain.OutcomeFailed)
		}
	})

	t.Run("Output inside sanitized directory is rejected", func(t *testing.T) {
		f := newBackupFixture(t)
		uc := NewBackupUseCase(fsutil.NewWalker(true), f.archiver, f.encoder, discardLogger(), f.sanitized, filepath.Join(f.sanitized, "backups"))

		if _, err := uc.Run(context.Background()); !errors.Is(err, domain.ErrConfiguration) {
			t.Fatalf("Run() error = %v, want ErrConfiguration", err)
		}
	})

	t.Run("Held lock refuses to run", func(t *testing.T) {
		f := newBackupFixture(t)
		writeFile(t, filepath.Join(f.sanitized, "app.log"), "x\n")
		held := lock.New(f.output)
		if err := held.TryAcquire(); err != nil {
			t.Fatalf("TryAcquire() error = %v", err)
		}
		defer held.Release()

		_, err := f.useCase(f.encoder).Run(context.Background())
		if !errors.Is(err, domain.ErrRunInProgress) {
			t.Fatalf("Run() error = %v, want ErrRunInProgress", err)
		}
	})

	t.Run("Catalog failure does not fail the run", func(t *testing.T) {
		f := newBackupFixture(t)
		writeFile(t, filepath.Join(f.sanitized, "app.log"), "x\n")
		uc := f.useCase(f.encoder).
			WithCatalog(&mocks.MockArtifactCatalog{SaveErr: errors.New("db down")}).
			WithRecorder(&mocks.MockRunRecorder{RecordErr: errors.New("redis down")})

		res, err := uc.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Outcome != domain.OutcomeDone {
			t.Errorf("Outcome = %v, want %v", res.Outcome, domain.OutcomeDone)
		}
	})
}

func equalStates(got, want []State) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
