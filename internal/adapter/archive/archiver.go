package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/V4T54L/logvault/internal/adapter/encoding"
	"github.com/V4T54L/logvault/internal/adapter/fsutil"
	"github.com/V4T54L/logvault/internal/domain"
)

const (
	// Ext is the archive file extension.
	Ext = ".tar.gz"

	namePrefix   = "backup-"
	timestampFmt = "20060102-150405"
	archivePerm  = 0644
)

// Name returns the archive file name for a run started at t. Second
// precision: two runs in the same second collide and the second one fails.
func Name(t time.Time) string {
	return namePrefix + t.UTC().Format(timestampFmt) + Ext
}

// Archiver packages sanitized files into a single gzip-compressed tarball.
type Archiver struct {
	outputDir string
	logger    *slog.Logger
	now       func() time.Time
}

// NewArchiver creates an Archiver that writes into outputDir.
func NewArchiver(outputDir string, logger *slog.Logger) *Archiver {
	return &Archiver{
		outputDir: outputDir,
		logger:    logger.With("component", "archiver"),
		now:       time.Now,
	}
}

// WithClock returns a copy of a using now as its time source.
func (a *Archiver) WithClock(now func() time.Time) *Archiver {
	cp := *a
	cp.now = now
	return &cp
}

// Pack writes files into a new archive and returns its path. Entry names are
// relative to root. With no files it returns "" and touches nothing.
func (a *Archiver) Pack(files []string, root string) (string, error) {
	if len(files) == 0 {
		a.logger.Info("No files to package, archive not created")
		return "", nil
	}

	path := filepath.Join(a.outputDir, Name(a.now()))
	// The encoder removes the archive, so a finished run from the same second
	// only shows up as the encoded artifact.
	for _, existing := range []string{path, path + encoding.ArtifactSuffix} {
		if _, err := os.Stat(existing); err == nil {
			return "", fmt.Errorf("%w: %s already exists", domain.ErrPackaging, existing)
		}
	}

	a.logger.Info("Creating archive", "path", path, "file_count", len(files))

	tmp, err := fsutil.CreatePartial(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPackaging, err)
	}

	gz := gzip.NewWriter(tmp)
	tw := tar.NewWriter(gz)

	for _, file := range files {
		if err := addFile(tw, file, root); err != nil {
			tw.Close()
			gz.Close()
			fsutil.Discard(tmp)
			return "", fmt.Errorf("%w: %v", domain.ErrPackaging, err)
		}
	}

	if err := tw.Close(); err != nil {
		gz.Close()
		fsutil.Discard(tmp)
		return "", fmt.Errorf("%w: failed to finish tar stream: %v", domain.ErrPackaging, err)
	}
	if err := gz.Close(); err != nil {
		fsutil.Discard(tmp)
		return "", fmt.Errorf("%w: failed to finish gzip stream: %v", domain.ErrPackaging, err)
	}
	if err := fsutil.Commit(tmp, path, archivePerm); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPackaging, err)
	}

	a.logger.Info("Archive created", "path", path)
	return path, nil
}

// EntryName returns the archive entry name for file under root.
func EntryName(file, root string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", file, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("file %s is outside archive root %s", file, root)
	}
	return filepath.ToSlash(rel), nil
}

func addFile(tw *tar.Writer, file, root string) error {
	name, err := EntryName(file, root)
	if err != nil {
		return err
	}

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", file, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", file)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to build tar header for %s: %w", file, err)
	}
	hdr.Name = name
	// Owner names are host specific and not needed on restore.
	hdr.Uname, hdr.Gname = "", ""

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", file, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to copy %s into archive: %w", file, err)
	}
	return nil
}
