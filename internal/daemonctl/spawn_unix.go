//go:build !windows

package daemonctl

import (
	"os/exec"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

func isExecutable(path string) bool {
	return unix.Access(path, unix.X_OK) == nil
}

// launchDetached starts the daemon in its own session with stdio on the null
// device and releases the handle.
func launchDetached(path string, args []string) error {
	cmd := exec.Command(path, args...)
	cmd.Dir = filepath.Dir(path)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
