// Package encoding turns archives into backup artifacts.
//
// The transform here is base64: it is reversible by anyone and gives no
// confidentiality. It exists so the archive -> artifact seam is in place; a
// real authenticated cipher can implement domain.Encoder without changes to
// the backup use case.
package encoding

import (
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/V4T54L/logvault/internal/adapter/fsutil"
	"github.com/V4T54L/logvault/internal/domain"
)

const (
	// ArtifactSuffix is appended to the archive name to form the artifact name.
	ArtifactSuffix = ".enc"

	ModeBase64    = "base64"
	ModeBase64URL = "base64url"

	artifactPerm = 0644
)

// Base64Encoder implements domain.Encoder with a base64 alphabet.
type Base64Encoder struct {
	name   string
	enc    *base64.Encoding
	logger *slog.Logger
}

// NewBase64Encoder uses the standard padded alphabet.
func NewBase64Encoder(logger *slog.Logger) *Base64Encoder {
	return &Base64Encoder{name: ModeBase64, enc: base64.StdEncoding, logger: logger.With("component", "encoder")}
}

// NewBase64URLEncoder uses the URL-safe padded alphabet.
func NewBase64URLEncoder(logger *slog.Logger) *Base64Encoder {
	return &Base64Encoder{name: ModeBase64URL, enc: base64.URLEncoding, logger: logger.With("component", "encoder")}
}

// Select returns the encoder for mode. Unknown modes log a warning and fall
// back to standard base64.
func Select(mode string, logger *slog.Logger) *Base64Encoder {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeBase64:
		return NewBase64Encoder(logger)
	case ModeBase64URL:
		return NewBase64URLEncoder(logger)
	default:
		logger.Warn("Unsupported encoding mode, using base64", "mode", mode)
		return NewBase64Encoder(logger)
	}
}

// Name returns the encoding mode.
func (e *Base64Encoder) Name() string {
	return e.name
}

// Encode writes archivePath+".enc" and removes the archive. The artifact
// appears only once fully written. The archive is kept if anything before
// the final rename fails.
func (e *Base64Encoder) Encode(archivePath string) (string, error) {
	artifactPath := archivePath + ArtifactSuffix
	if _, err := os.Stat(artifactPath); err == nil {
		return "", fmt.Errorf("%w: artifact %s already exists", domain.ErrEncoding, artifactPath)
	}

	e.logger.Info("Encoding archive", "source", archivePath, "target", artifactPath, "mode", e.name)

	src, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to open archive %s: %v", domain.ErrEncoding, archivePath, err)
	}
	defer src.Close()

	tmp, err := fsutil.CreatePartial(artifactPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEncoding, err)
	}

	w := base64.NewEncoder(e.enc, tmp)
	if _, err := io.Copy(w, src); err != nil {
		fsutil.Discard(tmp)
		return "", fmt.Errorf("%w: failed to encode %s: %v", domain.ErrEncoding, archivePath, err)
	}
	if err := w.Close(); err != nil {
		fsutil.Discard(tmp)
		return "", fmt.Errorf("%w: failed to flush encoder for %s: %v", domain.ErrEncoding, archivePath, err)
	}
	if err := fsutil.Commit(tmp, artifactPath, artifactPerm); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEncoding, err)
	}

	src.Close()
	if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
		// The artifact is complete; a leftover archive is only clutter.
		e.logger.Warn("Failed to remove archive after encoding", "path", archivePath, "error", err)
	}

	e.logger.Info("Encoding completed", "artifact", artifactPath)
	return artifactPath, nil
}

// Decode writes the archive bytes stored in artifactPath to w.
func (e *Base64Encoder) Decode(artifactPath string, w io.Writer) error {
	f, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("failed to open artifact %s: %w", artifactPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, base64.NewDecoder(e.enc, f)); err != nil {
		return fmt.Errorf("failed to decode artifact %s: %w", artifactPath, err)
	}
	return nil
}
