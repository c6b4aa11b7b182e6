//go:build windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	local := os.Getenv("LOCALAPPDATA")
	programData := os.Getenv("ProgramData")
	return []string{
		filepath.Join(programData, "JvmExporter", "config.yaml"),
		filepath.Join(local, "JvmExporter", "config.yaml"),
	}
}
