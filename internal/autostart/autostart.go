// Package autostart registers the exporter to start with the system:
// a systemd unit on Linux, a launchd job on macOS, and a Windows service.
package autostart

// Manager provides platform-specific autostart installation.
type Manager interface {
	IsInstalled() (bool, error)
	Install(execPath string) error
	Uninstall() error
	ServiceName() string
}
