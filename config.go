// File: config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Layer configuration. Values come from DefaultConfig, then an optional TOML
// file named by THREADLAYER_CONFIG, then individual environment variables,
// each source overriding the previous one.

package threadlayer

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/momentics/threadlayer/api"
	"github.com/momentics/threadlayer/backend"
)

// Environment variables read by FromEnv.
const (
	EnvConfigFile = "THREADLAYER_CONFIG"
	EnvNumThreads = "THREADLAYER_NUM_THREADS"
	EnvLayer      = "THREADLAYER_THREADING_LAYER"
	EnvChunkSize  = "THREADLAYER_CHUNK_SIZE"
	EnvPinThreads = "THREADLAYER_PIN_THREADS"
	EnvLockPath   = "THREADLAYER_LOCK_PATH"
)

// Config holds parameters fixed for the lifetime of a Layer. Thread count and
// chunk size can still be tuned at runtime through the Layer methods or
// Control; they are only the starting values here.
type Config struct {
	NumThreads int    `toml:"num_threads"`     // Workers launched; upper bound for SetNumThreads
	Layer      string `toml:"threading_layer"` // Layer name or safety class
	ChunkSize  int    `toml:"chunk_size"`      // Initial chunk size, 0 for even split
	PinThreads bool   `toml:"pin_threads"`     // Pin team workers to CPUs
	LockPath   string `toml:"lock_path"`       // Cross-process initialization lock file, empty to disable
}

// DefaultConfig returns default configuration values.
func DefaultConfig() Config {
	return Config{
		NumThreads: runtime.GOMAXPROCS(0),
		Layer:      string(backend.ModeDefault),
	}
}

// Validate checks every field and normalizes Layer.
func (c *Config) Validate() error {
	if c.NumThreads < 1 {
		return api.Errorf(api.ErrCodeConfig, "Number of threads specified must be > 0, got %d", c.NumThreads)
	}
	if c.ChunkSize < 0 {
		return api.Errorf(api.ErrCodeConfig, "The parallel chunk size must be non-negative, got %d", c.ChunkSize)
	}
	mode, err := backend.ParseMode(c.Layer)
	if err != nil {
		return err
	}
	c.Layer = string(mode)
	return nil
}

// LoadFile overlays the TOML file at path onto c. Unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return api.Errorf(api.ErrCodeConfig, "config file %s", path).Wrap(err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return api.Errorf(api.ErrCodeConfig, "config file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// FromEnv builds a validated Config from the process environment.
func FromEnv() (Config, error) {
	return loadConfig(os.LookupEnv)
}

func loadConfig(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	if path, ok := lookup(EnvConfigFile); ok && path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvNumThreads); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return envError(EnvNumThreads, v, err)
		}
		c.NumThreads = n
	}
	if v, ok := lookup(EnvLayer); ok {
		c.Layer = v
	}
	if v, ok := lookup(EnvChunkSize); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return envError(EnvChunkSize, v, err)
		}
		c.ChunkSize = n
	}
	if v, ok := lookup(EnvPinThreads); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return envError(EnvPinThreads, v, err)
		}
		c.PinThreads = b
	}
	if v, ok := lookup(EnvLockPath); ok {
		c.LockPath = v
	}
	return nil
}

func envError(name, value string, cause error) error {
	return api.NewError(api.ErrCodeConfig,
		fmt.Sprintf("Environment variable '%s' is defined but its associated value '%s' could not be parsed", name, value)).
		Wrap(cause)
}
