package fsutil

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// DirSize totals the sizes of regular files under dir, skipping in-flight
// .partial files the same way Walker.List does. A missing directory
// counts as 0 and logs a warning; unreadable entries are skipped.
func DirSize(dir string, logger *slog.Logger) int64 {
	if _, err := os.Stat(dir); err != nil {
		logger.Warn("directory not available for size measurement", "path", dir, "error", err)
		return 0
	}

	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("skipping entry during size measurement", "path", path, "error", err)
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || IsPartial(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			logger.Warn("failed to stat file", "path", path, "error", err)
			return nil
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		logger.Error("failed to measure directory size", "path", dir, "error", err)
	}
	return total
}
