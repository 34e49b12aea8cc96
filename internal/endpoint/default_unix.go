//go:build !windows

package endpoint

import "path/filepath"

func defaultAddress(dataDir, _ string) string {
	return filepath.Join(dataDir, SocketFileName)
}
