package updatecheck

import (
	"strconv"
	"strings"
)

// Normalize strips a leading "v" and anything from the first "-".
//
//	Normalize("v1.3.0-beta") == "1.3.0"
func Normalize(tag string) string {
	v := strings.TrimSpace(tag)
	v = strings.TrimPrefix(v, "v")
	if idx := strings.Index(v, "-"); idx >= 0 {
		v = v[:idx]
	}
	return v
}

// components splits a normalized version into major, minor and patch.
// Missing or non-numeric parts are 0 and parts past the third are ignored.
func components(v string) [3]int {
	var out [3]int
	for i, part := range strings.Split(v, ".") {
		if i >= len(out) {
			break
		}
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out[i] = n
		}
	}
	return out
}

// Greater reports whether a is a newer version than b. Both sides are
// normalized first.
func Greater(a, b string) bool {
	av, bv := components(Normalize(a)), components(Normalize(b))
	for i := range av {
		if av[i] != bv[i] {
			return av[i] > bv[i]
		}
	}
	return false
}
