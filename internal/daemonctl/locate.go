package daemonctl

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const defaultExecutable = "feishu-cli"

// CandidateDirs lists where the daemon binary is looked for, in order: beside
// the running executable, its resources folder, the macOS bundle Resources
// folder and the configured resource directory.
func (s *Supervisor) CandidateDirs() []string {
	var dirs []string
	if self, err := s.selfPath(); err == nil {
		if resolved, err := filepath.EvalSymlinks(self); err == nil {
			self = resolved
		}
		dir := filepath.Dir(self)
		dirs = append(dirs,
			dir,
			filepath.Join(dir, "resources"),
			filepath.Clean(filepath.Join(dir, "..", "Resources")),
		)
	}
	if s.opts.ResourceDir != "" {
		dirs = append(dirs, s.opts.ResourceDir)
	}
	return dirs
}

// ExecutableName is the configured name with the platform suffix.
func (s *Supervisor) ExecutableName() string {
	name := s.opts.Executable
	if runtime.GOOS == "windows" && !strings.EqualFold(filepath.Ext(name), ".exe") {
		name += ".exe"
	}
	return name
}

// LocateExecutable returns the first executable candidate.
func (s *Supervisor) LocateExecutable() (string, error) {
	name := s.ExecutableName()
	dirs := s.CandidateDirs()
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s not in %s", ErrExecutableNotFound, name, strings.Join(dirs, ", "))
}
