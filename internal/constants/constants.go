// Package constants defines the constants used in the application.
package constants

import (
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// CmdName is the name of the command line tool.
	CmdName = "parques"

	// DefaultAppFolder is the name of the default root folder.
	DefaultAppFolder = "parques"

	// DefaultLogLevel is the default log level selected without any verbosity flags.
	// Vendor data anomalies are reported at this level.
	DefaultLogLevel = slog.LevelWarn

	// RegistryFileName is the base name of the park registry file looked up in the config folder.
	RegistryFileName = "parks.toml"

	// Version is the version of the application.
	Version = "Dev"
)

type options struct {
	baseDir func() (string, error)
}

type option func(*options)

// GetDefaultRegistryPath returns the path of the registry file in the user config folder,
// or an empty string when the user has no config folder.
func GetDefaultRegistryPath(opts ...option) string {
	o := options{baseDir: os.UserConfigDir}
	for _, opt := range opts {
		opt(&o)
	}

	dir, err := o.baseDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, DefaultAppFolder, RegistryFileName)
}
