// Package paths resolves the configuration and data directories and the
// default owner recorded on new artifacts.
package paths

import (
	"os"
	"path/filepath"
)

// CWD-relative directory names used when nothing overrides them.
const (
	DefaultConfigDirName = ".waymark"
	DefaultDataDirName   = ".waymark/data"
)

// Environment variable overrides.
const (
	EnvConfigDir = "WAYMARK_CONFIG_DIR"
	EnvDataDir   = "WAYMARK_DATA_DIR"
	EnvOwner     = "WAYMARK_OWNER"
)

// UnknownOwner is recorded when no owner can be resolved.
const UnknownOwner = "unknown"

// getwd can be overridden in tests.
var getwd = os.Getwd

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > WAYMARK_CONFIG_DIR env > $(CWD)/.waymark.
// The result is always absolute.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return fromCWD(DefaultConfigDirName)
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > WAYMARK_DATA_DIR env > $(CWD)/.waymark/data.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return fromCWD(DefaultDataDirName)
}

// ResolveOwner returns the owner for new artifacts: flag > configYAMLValue >
// WAYMARK_OWNER > GITHUB_ACTOR > USER > USERNAME > "unknown".
func ResolveOwner(flag, configYAMLValue string) string {
	if flag != "" {
		return flag
	}
	if configYAMLValue != "" {
		return configYAMLValue
	}
	for _, key := range []string{EnvOwner, "GITHUB_ACTOR", "USER", "USERNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return UnknownOwner
}

func fromCWD(name string) (string, error) {
	cwd, err := getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, filepath.FromSlash(name)), nil
}
