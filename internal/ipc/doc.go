// Package ipc talks to the feishu-cli daemon over its local channel.
//
// Every request opens a fresh connection, writes one JSON line, reads one JSON
// line back and closes the connection. Transport failures of every kind
// collapse into ErrUnreachable. Client sits on top and maps each daemon verb
// to a typed method whose unavailable result is a fixed default, so callers at
// the UI boundary never see a hard failure.
package ipc
