package model

import (
	"os"
	"path/filepath"
)

// ConfigDirName is the per-user directory holding config.yaml and the disk cache
const ConfigDirName = ".panicbutton"

// ConfigDir returns $HOME/.panicbutton, or a relative .panicbutton when HOME is unknown
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ConfigDirName
	}
	return filepath.Join(home, ConfigDirName)
}

// DefaultCacheDir is the conventional location for the optional disk cache
func DefaultCacheDir() string {
	return filepath.Join(ConfigDir(), "cache")
}
