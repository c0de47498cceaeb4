package errorlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const filePerm = 0644

// FileSink appends ErrorRecords to a plain text file, one per line:
//
//	[2024-05-01T10:00:00.123456789Z] message
//
// Record never fails. If the file cannot be opened or written the record is
// dropped and the handle is reopened on the next call.
type FileSink struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	file *os.File
}

// NewFileSink creates a sink writing to path. The file is opened lazily.
func NewFileSink(path string, logger *slog.Logger) *FileSink {
	return &FileSink{
		path:   path,
		logger: logger.With("component", "error_sink"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Path returns the error log location.
func (s *FileSink) Path() string {
	return s.path
}

// Record appends one timestamped line. Newlines in message are flattened so a
// record always occupies exactly one line.
func (s *FileSink) Record(message string) {
	message = strings.ReplaceAll(message, "\n", " ")
	line := fmt.Sprintf("[%s] %s\n", s.now().Format(time.RFC3339Nano), message)

	s.logger.Warn(message)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		if err := s.open(); err != nil {
			s.logger.Debug("error log unavailable, record dropped", "path", s.path, "error", err)
			return
		}
	}

	if _, err := s.file.WriteString(line); err != nil {
		s.logger.Debug("failed to append error record", "path", s.path, "error", err)
		_ = s.file.Close()
		s.file = nil
	}
}

func (s *FileSink) open() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return err
	}
	s.file = f
	return nil
}

// Close syncs and closes the file if it is open.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		s.logger.Error("Failed to sync error log", "error", err)
	}
	err := s.file.Close()
	s.file = nil
	return err
}
