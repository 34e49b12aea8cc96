//go:build windows

package endpoint

import "strings"

func defaultAddress(_ string, appDir string) string {
	return pipePrefix + strings.TrimPrefix(appDir, ".")
}
