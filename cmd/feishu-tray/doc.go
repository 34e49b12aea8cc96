// Package main hosts the feishu-tray entrypoint and command graph.
//
// `feishu-tray run` is the long-lived companion: it keeps the feishu-cli
// daemon alive, refreshes the tray labels and serves the settings window over
// the UI bridge. The remaining commands are one-shot views of the same
// operations for terminals and scripts.
package main
