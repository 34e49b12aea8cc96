// Package diagbundle writes support bundles: a zip of the daemon's log files,
// a sanitized copy of its configuration and a short system description.
package diagbundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"feishu-tray/internal/logging"
)

// Entry names inside the bundle.
const (
	ConfigSource    = "config.json"
	ConfigEntry     = "config-sanitized.json"
	SystemInfoEntry = "system-info.txt"
)

// LogFiles are copied verbatim when present in the daemon data directory.
var LogFiles = []string{"daemon.json", "proxy-debug.log", "proxy-hook-debug.log"}

// DataDirResolver yields the daemon data directory. endpoint.Locator
// satisfies it.
type DataDirResolver interface {
	DataDir() (string, error)
	LockFilePath() (string, error)
}

// Result describes a written bundle.
type Result struct {
	Path     string   `json:"path" yaml:"path"`
	BundleID string   `json:"bundle_id" yaml:"bundle_id"`
	Entries  []string `json:"entries" yaml:"entries"`
}

// Exporter builds diagnostic bundles.
type Exporter struct {
	dirs    DataDirResolver
	version string
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// New returns an Exporter reporting version in system-info.txt.
func New(dirs DataDirResolver, version string, logger *slog.Logger) *Exporter {
	return &Exporter{
		dirs:    dirs,
		version: version,
		logger:  logging.NewComponentLogger(logger, "diagbundle"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Export writes the bundle to dest. On failure the error names dest; a
// partially written archive is left in place.
func (e *Exporter) Export(dest string) (Result, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return Result{}, errors.New("export diagnostics: destination path is empty")
	}
	dataDir, err := e.dirs.DataDir()
	if err != nil {
		return Result{}, fmt.Errorf("export diagnostics: resolve data directory: %w", err)
	}
	lockPath, err := e.dirs.LockFilePath()
	if err != nil {
		return Result{}, fmt.Errorf("export diagnostics: resolve lock file: %w", err)
	}

	file, err := os.Create(dest)
	if err != nil {
		return Result{}, fmt.Errorf("export diagnostics: create %s: %w", dest, err)
	}

	result := Result{Path: dest, BundleID: e.newID()}
	if err := e.write(file, dataDir, lockPath, &result); err != nil {
		_ = file.Close()
		e.logger.Warn("diagnostic export aborted",
			logging.String("path", dest),
			logging.Error(err),
			logging.String(logging.FieldEventType, "diag_export_failed"),
			logging.String(logging.FieldErrorHint, "check disk space and permissions on the destination"),
			logging.String(logging.FieldImpact, "partial archive left on disk"),
		)
		return result, fmt.Errorf("export diagnostics to %s (partial archive left in place): %w", dest, err)
	}
	if err := file.Close(); err != nil {
		return result, fmt.Errorf("export diagnostics: close %s: %w", dest, err)
	}

	e.logger.Info("diagnostic bundle written",
		logging.String("path", dest),
		logging.String("bundle_id", result.BundleID),
		logging.Int("entries", len(result.Entries)),
		logging.String(logging.FieldEventType, "diag_export_complete"),
	)
	return result, nil
}

func (e *Exporter) write(w io.Writer, dataDir, lockPath string, result *Result) error {
	archive := zip.NewWriter(w)

	for _, name := range LogFiles {
		data, err := readOptional(filepath.Join(dataDir, name))
		if err != nil {
			return err
		}
		if data == nil {
			continue
		}
		if err := addEntry(archive, name, data, e.now()); err != nil {
			return err
		}
		result.Entries = append(result.Entries, name)
	}

	raw, err := readOptional(filepath.Join(dataDir, ConfigSource))
	if err != nil {
		return err
	}
	if raw != nil {
		sanitized, err := SanitizeJSON(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", ConfigSource, err)
		}
		if err := addEntry(archive, ConfigEntry, sanitized, e.now()); err != nil {
			return err
		}
		result.Entries = append(result.Entries, ConfigEntry)
	}

	_, statErr := os.Stat(lockPath)
	info := e.systemInfo(statErr == nil, result.BundleID)
	if err := addEntry(archive, SystemInfoEntry, []byte(info), e.now()); err != nil {
		return err
	}
	result.Entries = append(result.Entries, SystemInfoEntry)

	if err := archive.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func (e *Exporter) systemInfo(lockExists bool, bundleID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "version: %s\n", e.version)
	fmt.Fprintf(&b, "os: %s\n", runtime.GOOS)
	fmt.Fprintf(&b, "arch: %s\n", runtime.GOARCH)
	fmt.Fprintf(&b, "lock_file_exists: %s\n", strconv.FormatBool(lockExists))
	fmt.Fprintf(&b, "timestamp: %s\n", e.now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "bundle_id: %s\n", bundleID)
	return b.String()
}

// readOptional returns nil data when path does not exist.
func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func addEntry(archive *zip.Writer, name string, data []byte, modified time.Time) error {
	header := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified}
	writer, err := archive.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
