package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneLogs deletes files in dir matching pattern whose modification time is
// older than retentionDays. keep is never removed. Zero days disables pruning.
// It returns the number of files removed.
func PruneLogs(logger *slog.Logger, dir, pattern string, retentionDays int, keep string) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keepAbs, _ := filepath.Abs(keep)

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if matched, err := filepath.Match(pattern, entry.Name()); err != nil || !matched {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if abs, err := filepath.Abs(path); err == nil && abs == keepAbs {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on the state directory"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
