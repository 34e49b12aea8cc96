// Package uibridge exposes daemon operations and tray state to the settings
// window over a loopback WebSocket.
//
// Each inbound message names a command. Commands run on their own goroutine
// and reply through a single writer per connection, so a slow daemon call
// never holds up another command or a tray push.
package uibridge
