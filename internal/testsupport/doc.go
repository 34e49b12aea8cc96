// Package testsupport provides fixtures shared by package tests: a fake
// daemon listening on a Unix socket, a temporary home directory with an
// optional lock file, and a config rooted in a temp directory.
package testsupport
