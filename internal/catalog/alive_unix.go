//go:build !windows

package catalog

import "golang.org/x/sys/unix"

// alive reports whether a pid still exists, without touching the process.
// Signal 0 performs permission and existence checks only; EPERM still means
// the process is there.
func alive(pid int32) bool {
	err := unix.Kill(int(pid), 0)
	return err == nil || err == unix.EPERM
}
