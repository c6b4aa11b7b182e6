//go:build windows

package catalog

import "github.com/shirou/gopsutil/v3/process"

func alive(pid int32) bool {
	ok, err := process.PidExists(pid)
	return err == nil && ok
}
