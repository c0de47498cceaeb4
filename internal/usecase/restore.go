package usecase

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/V4T54L/logvault/internal/adapter/archive"
	"github.com/V4T54L/logvault/internal/adapter/encoding"
)

// Decoder reverses an encoder, streaming the archive bytes to w.
type Decoder interface {
	Decode(artifactPath string, w io.Writer) error
}

// RestoreUseCase unpacks an encoded artifact back into plain files.
type RestoreUseCase struct {
	decoder Decoder
	logger  *slog.Logger
}

// NewRestoreUseCase creates a new RestoreUseCase.
func NewRestoreUseCase(decoder Decoder, logger *slog.Logger) *RestoreUseCase {
	return &RestoreUseCase{
		decoder: decoder,
		logger:  logger.With("component", "restore"),
	}
}

// Restore decodes artifactPath and extracts its entries into destDir. It
// returns the number of files restored.
func (uc *RestoreUseCase) Restore(artifactPath, destDir string) (int, error) {
	if !strings.HasSuffix(artifactPath, encoding.ArtifactSuffix) {
		uc.logger.Warn("Artifact name has no encoding suffix", "path", artifactPath, "suffix", encoding.ArtifactSuffix)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create restore directory %s: %w", destDir, err)
	}

	pr, pw := io.Pipe()
	decodeErr := make(chan error, 1)
	go func() {
		err := uc.decoder.Decode(artifactPath, pw)
		pw.CloseWithError(err)
		decodeErr <- err
	}()

	count, extractErr := archive.Extract(pr, destDir)
	// Unblocks the decoder if extraction stopped early.
	pr.Close()
	derr := <-decodeErr

	if derr != nil && !errors.Is(derr, io.ErrClosedPipe) {
		return count, fmt.Errorf("failed to restore %s: %w", artifactPath, derr)
	}
	if extractErr != nil {
		return count, fmt.Errorf("failed to restore %s: %w", artifactPath, extractErr)
	}

	uc.logger.Info("Artifact restored", "artifact", artifactPath, "dest", destDir, "files", count)
	return count, nil
}
