// Package endpoint resolves where the feishu-cli daemon can be reached.
//
// The daemon publishes its address in a lock file under the user's home
// directory. When that file is missing, unreadable, malformed or carries an
// empty address, the platform default is used instead. Nothing is cached: each
// request resolves again, which costs at most one small file read.
package endpoint

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Kind discriminates the two local channel types.
type Kind string

const (
	KindSocket Kind = "socket"
	KindPipe   Kind = "pipe"
)

const (
	// DefaultAppDir is the daemon's directory under the home directory.
	DefaultAppDir = ".feishu-cli"
	// LockFileName is published by the daemon while it runs.
	LockFileName = "daemon.json"
	// SocketFileName is the POSIX default socket inside the app directory.
	SocketFileName = "daemon.sock"

	pipePrefix = `\\.\pipe\`
)

// ErrNoHome reports that neither USERPROFILE nor HOME is set.
var ErrNoHome = errors.New("home directory not set")

// Endpoint is a resolved daemon address.
type Endpoint struct {
	Kind    Kind
	Address string
}

// Parse classifies a raw address.
func Parse(address string) Endpoint {
	if strings.HasPrefix(address, pipePrefix) {
		return Endpoint{Kind: KindPipe, Address: address}
	}
	return Endpoint{Kind: KindSocket, Address: address}
}

func (e Endpoint) String() string {
	return e.Address
}

// LockFileRecord is the daemon's published lock file.
type LockFileRecord struct {
	PID int    `json:"pid"`
	IPC string `json:"ipc"`
}

// Locator resolves endpoints for one app directory.
type Locator struct {
	appDir string
	getenv func(string) string
}

// NewLocator returns a Locator for appDir, or DefaultAppDir when empty.
func NewLocator(appDir string) *Locator {
	appDir = strings.TrimSpace(appDir)
	if appDir == "" {
		appDir = DefaultAppDir
	}
	return &Locator{appDir: appDir, getenv: os.Getenv}
}

// Home returns the first non-empty of USERPROFILE and HOME.
func (l *Locator) Home() (string, error) {
	for _, key := range []string{"USERPROFILE", "HOME"} {
		if value := strings.TrimSpace(l.getenv(key)); value != "" {
			return value, nil
		}
	}
	return "", ErrNoHome
}

// DataDir is <home>/<app dir>, where the daemon keeps its files.
func (l *Locator) DataDir() (string, error) {
	home, err := l.Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, l.appDir), nil
}

// LockFilePath is <home>/<app dir>/daemon.json.
func (l *Locator) LockFilePath() (string, error) {
	dir, err := l.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, LockFileName), nil
}

// ReadLockFile returns the parsed lock file. Any read or parse problem, or an
// empty ipc field, reports false.
func (l *Locator) ReadLockFile() (LockFileRecord, bool) {
	path, err := l.LockFilePath()
	if err != nil {
		return LockFileRecord{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return LockFileRecord{}, false
	}
	var record LockFileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return LockFileRecord{}, false
	}
	if strings.TrimSpace(record.IPC) == "" {
		return LockFileRecord{}, false
	}
	return record, true
}

// Resolve returns the lock file endpoint when usable, else the platform default.
func (l *Locator) Resolve() (Endpoint, error) {
	dir, err := l.DataDir()
	if err != nil {
		return Endpoint{}, err
	}
	if record, ok := l.ReadLockFile(); ok {
		return Parse(record.IPC), nil
	}
	return Parse(defaultAddress(dir, l.appDir)), nil
}
