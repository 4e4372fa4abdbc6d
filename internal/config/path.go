package config

import (
	"os"
	"path/filepath"
)

const appName = "geyserd"

// DefaultDataDir returns the OS data directory for geyserd, falling back to
// ./data when no home directory is known.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	return dataDirUnder(home, isDir)
}

// dataDirUnder picks the first platform data root that exists, or a dot
// directory in home.
func dataDirUnder(home string, exists func(string) bool) string {
	candidates := []struct{ parent, dir string }{
		{"/var/lib", filepath.Join("/var/lib", appName)},
		{filepath.Join(home, "Library"), filepath.Join(home, "Library", "Application Support", appName)},
		{filepath.Join(home, "AppData"), filepath.Join(home, "AppData", "Local", appName)},
	}
	for _, c := range candidates {
		if exists(c.parent) {
			return c.dir
		}
	}
	return filepath.Join(home, "."+appName)
}

// ReplayDir is where the Pebble replay backend keeps its scratch files.
func (c Config) ReplayDir() string {
	if c.Replay.DataDir != "" {
		return c.Replay.DataDir
	}
	return filepath.Join(DefaultDataDir(), "replay")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
