package types

import "time"

// Config holds the index location and the tunables of the generator and
// the lock discipline.
type Config struct {
	DataDir       string        `json:"data_dir" yaml:"data_dir"`
	ArtifactRoot  string        `json:"artifact_root" yaml:"artifact_root"`
	SlugMaxLen    int           `json:"slug_max_length" yaml:"slug_max_length"`
	LockTimeout   time.Duration `json:"lock_timeout" yaml:"lock_timeout"`
	LockRetries   int           `json:"lock_retries" yaml:"lock_retries"`
	LockRetryWait time.Duration `json:"lock_retry_wait" yaml:"lock_retry_wait"`
}

// Defaults applied by WithDefaults.
const (
	DefaultLockTimeout   = 5 * time.Second
	DefaultLockRetries   = 3
	DefaultLockRetryWait = 200 * time.Millisecond
	DefaultArtifactRoot  = "ai_docs"

	minSlugMaxLen = 8
)

// File names inside DataDir.
const (
	IndexFileName = "index.jsonl"
	LockFileName  = "index.lock"
	AuditFileName = "audit.jsonl"
	AuditLockName = "audit.lock"
)

// WithDefaults returns a copy of c with zero fields replaced by defaults.
// DataDir is left alone; callers resolve it.
func (c Config) WithDefaults() Config {
	if c.SlugMaxLen == 0 {
		c.SlugMaxLen = DefaultSlugMaxLen
	}
	if c.LockTimeout == 0 {
		c.LockTimeout = DefaultLockTimeout
	}
	if c.LockRetryWait == 0 {
		c.LockRetryWait = DefaultLockRetryWait
	}
	if c.ArtifactRoot == "" {
		c.ArtifactRoot = DefaultArtifactRoot
	}
	return c
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	if c.SlugMaxLen < minSlugMaxLen {
		return ErrSlugMaxLenInvalid
	}
	if c.LockTimeout <= 0 {
		return ErrLockTimeoutInvalid
	}
	if c.LockRetries < 0 {
		return ErrLockRetriesInvalid
	}
	return nil
}
