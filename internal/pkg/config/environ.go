package config

import (
	"path/filepath"
	"strings"
)

const libraryPathVar = "LD_LIBRARY_PATH"

// Environ renders the settings over a base environment as
// JOBBERGATE_AGENT_* variables for the daemon process. Any JOBBERGATE_AGENT_*
// entries already present in the base are dropped first so the daemon only
// sees the resolved snapshot. The library search path is augmented with the
// lib directory next to the agent installation.
func (settings Settings) Environ(base []string, installDir string) []string {
	environ := make([]string, 0, len(base)+32)

	libraryPath := ""
	for _, entry := range base {
		if strings.HasPrefix(entry, EnvPrefix) {
			continue
		}

		if value, ok := strings.CutPrefix(entry, libraryPathVar+"="); ok {
			libraryPath = value
			continue
		}

		environ = append(environ, entry)
	}

	for _, opt := range options() {
		value, ok := opt.get(&settings)
		if !ok {
			continue
		}

		environ = append(environ, EnvVarName(opt.name)+"="+value)
	}

	environ = append(environ, libraryPathVar+"="+augmentLibraryPath(libraryPath, installDir))

	return environ
}

// augmentLibraryPath prepends the installation-relative lib directory to the
// existing library search path.
func augmentLibraryPath(existing string, installDir string) string {
	libDir := filepath.Join(installDir, "lib")
	if existing == "" {
		return libDir
	}

	return libDir + string(filepath.ListSeparator) + existing
}
