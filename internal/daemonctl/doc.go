// Package daemonctl supervises the feishu-cli daemon process.
//
// The daemon is observed only through status probes, never through a process
// handle. A Supervisor probes once, and when the daemon is down it finds the
// bundled executable, spawns it detached and polls on a fixed cadence until it
// answers or the attempt budget runs out.
package daemonctl
