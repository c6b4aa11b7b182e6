//go:build linux || darwin

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		"/usr/local/jvm-exporter/config.yaml",
		"/etc/jvm-exporter/config.yaml",
		filepath.Join(home, ".jvm-exporter", "config.yaml"),
	}
}
