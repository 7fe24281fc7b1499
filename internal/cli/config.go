package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/waymark/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDataDir      = "data_dir"
	cfgKeyArtifactRoot = "artifact_root"
	cfgKeySlugMaxLen   = "slug_max_length"
	cfgKeyLockTimeout  = "lock_timeout"
	cfgKeyLockRetries  = "lock_retries"
	cfgKeyLockWait     = "lock_retry_wait"
	cfgKeyLogLevel     = "log_level"
	cfgKeyOwner        = "owner"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# waymark configuration

# Index and audit log location (overridable by --data-dir or WAYMARK_DATA_DIR)
# data_dir:

# Where plans/, specs/ and exec/ live, relative to the working directory
artifact_root: ai_docs

slug_max_length: 60

# Bounded wait for the index lock, and retries after a timeout
lock_timeout: 5s
lock_retries: 3
lock_retry_wait: 200ms

# debug, info, warn or error
log_level: info

# Owner recorded on new artifacts (default: WAYMARK_OWNER, then $USER)
# owner:
`

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyArtifactRoot, types.DefaultArtifactRoot)
	v.SetDefault(cfgKeySlugMaxLen, types.DefaultSlugMaxLen)
	v.SetDefault(cfgKeyLockTimeout, types.DefaultLockTimeout)
	v.SetDefault(cfgKeyLockRetries, types.DefaultLockRetries)
	v.SetDefault(cfgKeyLockWait, types.DefaultLockRetryWait)
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// configFromViper maps the loaded keys onto types.Config. data_dir is
// returned as written; the caller resolves it against flags and env.
func configFromViper(v *viper.Viper) (types.Config, error) {
	cfg := types.Config{
		DataDir:       v.GetString(cfgKeyDataDir),
		ArtifactRoot:  v.GetString(cfgKeyArtifactRoot),
		SlugMaxLen:    v.GetInt(cfgKeySlugMaxLen),
		LockTimeout:   v.GetDuration(cfgKeyLockTimeout),
		LockRetries:   v.GetInt(cfgKeyLockRetries),
		LockRetryWait: v.GetDuration(cfgKeyLockWait),
	}
	switch strings.ToLower(v.GetString(cfgKeyLogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return cfg, fmt.Errorf("%s: unknown level %q", cfgKeyLogLevel, v.GetString(cfgKeyLogLevel))
	}
	return cfg, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in configDir.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
