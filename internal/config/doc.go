// Package config loads and validates the companion's TOML configuration.
//
// Load starts from Default, overlays the file when present, expands "~" in
// path fields and then validates the result. Callers receive the resolved
// path and whether the file existed so the CLI can point at `init-config`.
package config
