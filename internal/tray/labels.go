package tray

import "strconv"

const (
	StatusReading    = "Daemon: reading status"
	StatusRunning    = "Daemon: running"
	StatusNotRunning = "Daemon: not running"
)

// SessionsText renders the active session count label.
func SessionsText(n int64) string {
	return "Active sessions: " + strconv.FormatInt(n, 10)
}
