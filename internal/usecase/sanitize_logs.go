package usecase

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/V4T54L/logvault/internal/adapter/fsutil"
	"github.com/V4T54L/logvault/internal/adapter/metrics"
	"github.com/V4T54L/logvault/internal/adapter/pii"
	"github.com/V4T54L/logvault/internal/domain"
)

const (
	sanitizedFilePerm = 0644
	readBufferSize    = 64 * 1024
)

// LineAnonymizer masks PII in a single line.
type LineAnonymizer interface {
	Apply(line string) (string, []pii.Match)
}

// FileSanitizer anonymizes one raw log file into one sanitized file.
type FileSanitizer struct {
	anonymizer   LineAnonymizer
	sink         domain.ErrorSink
	logger       *slog.Logger
	maxLineBytes int
	metrics      *metrics.SanitizeMetrics

	openFile func(name string) (io.ReadCloser, error)
}

// NewFileSanitizer creates a FileSanitizer. Lines longer than maxLineBytes
// (excluding the newline) are dropped and recorded.
func NewFileSanitizer(anonymizer LineAnonymizer, sink domain.ErrorSink, logger *slog.Logger, maxLineBytes int) *FileSanitizer {
	return &FileSanitizer{
		anonymizer:   anonymizer,
		sink:         sink,
		logger:       logger.With("component", "file_sanitizer"),
		maxLineBytes: maxLineBytes,
		openFile: func(name string) (io.ReadCloser, error) {
			return os.Open(name)
		},
	}
}

// WithMetrics attaches Prometheus counters.
func (s *FileSanitizer) WithMetrics(m *metrics.SanitizeMetrics) *FileSanitizer {
	s.metrics = m
	return s
}

// Sanitize reads inputPath line by line and writes the anonymized lines to
// outputPath. A failing line is recorded and dropped; the rest of the file
// still goes through. When the input cannot be opened or read, or the output
// cannot be written, one ErrorRecord is written, outputPath is left as it
// was and an error wrapping domain.ErrFileIO is returned.
func (s *FileSanitizer) Sanitize(inputPath, outputPath string) (processed, failed int, err error) {
	in, err := s.openFile(inputPath)
	if err != nil {
		s.sink.Record(describeReadError(inputPath, err))
		return 0, 0, fmt.Errorf("%w: open %s: %v", domain.ErrFileIO, inputPath, err)
	}
	defer in.Close()

	tmp, err := fsutil.CreatePartial(outputPath)
	if err != nil {
		s.sink.Record(describeWriteError(outputPath, err))
		return 0, 0, fmt.Errorf("%w: %v", domain.ErrFileIO, err)
	}

	br := bufio.NewReaderSize(in, readBufferSize)
	bw := bufio.NewWriter(tmp)

	for idx := 0; ; idx++ {
		line, terminated, tooLong, rerr := readLine(br, s.maxLineBytes)
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			fsutil.Discard(tmp)
			s.sink.Record(describeReadError(inputPath, rerr))
			return processed, failed, fmt.Errorf("%w: read %s: %v", domain.ErrFileIO, inputPath, rerr)
		}

		if tooLong {
			failed++
			s.sink.Record(fmt.Sprintf("Error processing line %d in %s: line exceeds %d bytes", idx, inputPath, s.maxLineBytes))
			continue
		}

		out, matches, lerr := s.anonymizeLine(string(line))
		if lerr != nil {
			failed++
			s.sink.Record(fmt.Sprintf("Error processing line %d in %s: %v", idx, inputPath, lerr))
			continue
		}
		s.countMasks(matches)

		if terminated {
			out += "\n"
		}
		if _, werr := bw.WriteString(out); werr != nil {
			fsutil.Discard(tmp)
			s.sink.Record(describeWriteError(outputPath, werr))
			return processed, failed, fmt.Errorf("%w: write %s: %v", domain.ErrFileIO, outputPath, werr)
		}
		processed++
	}

	if werr := bw.Flush(); werr != nil {
		fsutil.Discard(tmp)
		s.sink.Record(describeWriteError(outputPath, werr))
		return processed, failed, fmt.Errorf("%w: write %s: %v", domain.ErrFileIO, outputPath, werr)
	}
	if werr := fsutil.Commit(tmp, outputPath, sanitizedFilePerm); werr != nil {
		s.sink.Record(describeWriteError(outputPath, werr))
		return processed, failed, fmt.Errorf("%w: %v", domain.ErrFileIO, werr)
	}

	if s.metrics != nil {
		s.metrics.LinesTotal.WithLabelValues("ok").Add(float64(processed))
		s.metrics.LinesTotal.WithLabelValues("dropped").Add(float64(failed))
	}
	s.logger.Debug("Sanitized file", "input", inputPath, "output", outputPath, "lines", processed, "dropped", failed)
	return processed, failed, nil
}

// anonymizeLine isolates a single line: a panic in a detector costs that
// line only. The panic value is not reported since it may quote the input.
func (s *FileSanitizer) anonymizeLine(line string) (out string, matches []pii.Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: anonymizer panicked", domain.ErrLineProcessing)
		}
	}()
	out, matches = s.anonymizer.Apply(line)
	return out, matches, nil
}

func (s *FileSanitizer) countMasks(matches []pii.Match) {
	if s.metrics == nil {
		return
	}
	for _, m := range matches {
		s.metrics.MasksTotal.WithLabelValues(m.Label).Inc()
	}
}

// readLine returns the next line without its trailing '\n'. terminated
// reports whether the newline was present. A line longer than max is
// consumed entirely and reported with tooLong set. io.EOF is returned only
// when no bytes remain.
func readLine(r *bufio.Reader, max int) (line []byte, terminated, tooLong bool, err error) {
	read := 0
	for {
		chunk, rerr := r.ReadSlice('\n')
		read += len(chunk)

		content := chunk
		if rerr == nil {
			content = chunk[:len(chunk)-1]
		}
		if !tooLong {
			if len(line)+len(content) > max {
				tooLong = true
				line = nil
			} else {
				line = append(line, content...)
			}
		}

		switch {
		case rerr == nil:
			return line, true, tooLong, nil
		case errors.Is(rerr, bufio.ErrBufferFull):
			continue
		case errors.Is(rerr, io.EOF):
			if read == 0 {
				return nil, false, false, io.EOF
			}
			return line, false, tooLong, nil
		default:
			return nil, false, false, rerr
		}
	}
}

func describeReadError(path string, err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Sprintf("Input file not found: %s", path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Sprintf("Permission denied reading: %s", path)
	default:
		return fmt.Sprintf("Error reading %s: %v", path, err)
	}
}

func describeWriteError(path string, err error) string {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Sprintf("Permission denied writing: %s", path)
	}
	return fmt.Sprintf("Error writing %s: %v", path, err)
}

// SanitizeSummary reports the outcome of one sanitize run.
type SanitizeSummary struct {
	FilesTotal     int
	FilesFailed    int
	LinesProcessed int
	LinesFailed    int
	Duration       time.Duration
}

// FileLister enumerates files below a directory.
type FileLister interface {
	List(dir string) ([]string, error)
}

// SanitizeLogsUseCase anonymizes every raw log file into the sanitized
// directory, mirroring relative paths.
type SanitizeLogsUseCase struct {
	sanitizer    *FileSanitizer
	walker       *fsutil.Walker
	sink         domain.ErrorSink
	logger       *slog.Logger
	rawDir       string
	sanitizedDir string
	workers      int
	metrics      *metrics.SanitizeMetrics
}

// NewSanitizeLogsUseCase creates the use case. workers bounds how many files
// are processed at once; lines within a file are always sequential.
func NewSanitizeLogsUseCase(sanitizer *FileSanitizer, walker *fsutil.Walker, sink domain.ErrorSink, logger *slog.Logger, rawDir, sanitizedDir string, workers int) *SanitizeLogsUseCase {
	if workers < 1 {
		workers = 1
	}
	return &SanitizeLogsUseCase{
		sanitizer:    sanitizer,
		walker:       walker,
		sink:         sink,
		logger:       logger.With("component", "sanitize_logs"),
		rawDir:       rawDir,
		sanitizedDir: sanitizedDir,
		workers:      workers,
	}
}

// WithMetrics attaches Prometheus metrics.
func (uc *SanitizeLogsUseCase) WithMetrics(m *metrics.SanitizeMetrics) *SanitizeLogsUseCase {
	uc.metrics = m
	return uc
}

// Run processes every file under the raw directory. A missing raw directory
// or an unusable sanitized directory fails the run with
// domain.ErrConfiguration. Per-file and per-line failures are recorded and
// counted but do not fail the run.
func (uc *SanitizeLogsUseCase) Run(ctx context.Context) (SanitizeSummary, error) {
	start := time.Now()
	var summary SanitizeSummary

	info, err := os.Stat(uc.rawDir)
	if err != nil || !info.IsDir() {
		uc.sink.Record(fmt.Sprintf("Input directory does not exist: %s", uc.rawDir))
		return summary, fmt.Errorf("%w: raw log directory %s is not available", domain.ErrConfiguration, uc.rawDir)
	}
	if within(uc.sanitizedDir, uc.rawDir) {
		uc.sink.Record(fmt.Sprintf("Sanitized directory %s contains raw directory %s", uc.sanitizedDir, uc.rawDir))
		return summary, fmt.Errorf("%w: raw directory %s is inside sanitized directory %s", domain.ErrConfiguration, uc.rawDir, uc.sanitizedDir)
	}
	if err := os.MkdirAll(uc.sanitizedDir, 0755); err != nil {
		uc.sink.Record(describeWriteError(uc.sanitizedDir, err))
		return summary, fmt.Errorf("%w: cannot create sanitized directory %s: %v", domain.ErrConfiguration, uc.sanitizedDir, err)
	}

	walker := uc.walker.WithSkipHandler(func(path string, err error) {
		uc.sink.Record(describeReadError(path, err))
	})
	files, err := walker.List(uc.rawDir)
	if err != nil {
		uc.sink.Record(describeReadError(uc.rawDir, err))
		return summary, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	jobs := make(chan string)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	uc.logger.Info("Starting sanitize run", "raw_dir", uc.rawDir, "sanitized_dir", uc.sanitizedDir, "files", len(files), "workers", uc.workers)

	for i := 0; i < uc.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for input := range jobs {
				processed, failed, ferr := uc.sanitizeOne(input)

				mu.Lock()
				summary.FilesTotal++
				summary.LinesProcessed += processed
				summary.LinesFailed += failed
				if ferr != nil {
					summary.FilesFailed++
				}
				mu.Unlock()

				if uc.metrics != nil {
					status := "ok"
					if ferr != nil {
						status = "error"
					}
					uc.metrics.FilesTotal.WithLabelValues(status).Inc()
				}
			}
		}()
	}

Feed:
	for _, input := range files {
		if uc.isOwnOutput(input) {
			continue
		}
		select {
		case jobs <- input:
		case <-ctx.Done():
			break Feed
		}
	}
	close(jobs)
	wg.Wait()

	summary.Duration = time.Since(start)
	if uc.metrics != nil {
		uc.metrics.RunDuration.Set(summary.Duration.Seconds())
	}

	uc.logger.Info("Sanitize run finished",
		"files", summary.FilesTotal,
		"files_failed", summary.FilesFailed,
		"lines", summary.LinesProcessed,
		"lines_dropped", summary.LinesFailed,
		"duration_ms", summary.Duration.Milliseconds(),
	)
	return summary, ctx.Err()
}

func (uc *SanitizeLogsUseCase) sanitizeOne(input string) (int, int, error) {
	rel, err := filepath.Rel(uc.rawDir, input)
	if err != nil {
		uc.sink.Record(fmt.Sprintf("Cannot map %s into %s: %v", input, uc.sanitizedDir, err))
		return 0, 0, fmt.Errorf("%w: %v", domain.ErrFileIO, err)
	}
	return uc.sanitizer.Sanitize(input, filepath.Join(uc.sanitizedDir, rel))
}

// isOwnOutput guards against a sanitized directory nested inside the raw one.
func (uc *SanitizeLogsUseCase) isOwnOutput(path string) bool {
	return within(uc.sanitizedDir, path)
}
