package threadlayer

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/threadlayer/api"
)

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "threadlayer.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.NumThreads)
	assert.Equal(t, "default", cfg.Layer)
	assert.Zero(t, cfg.ChunkSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Environment(t *testing.T) {
	cfg, err := loadConfig(envOf(map[string]string{
		EnvNumThreads: "3",
		EnvLayer:      "ThreadSafe",
		EnvChunkSize:  "16",
		EnvPinThreads: "true",
		EnvLockPath:   "/tmp/threadlayer.lock",
	}))
	require.NoError(t, err)
	assert.Equal(t, Config{
		NumThreads: 3,
		Layer:      "threadsafe",
		ChunkSize:  16,
		PinThreads: true,
		LockPath:   "/tmp/threadlayer.lock",
	}, cfg)
}

func TestLoadConfig_FileThenEnvironment(t *testing.T) {
	path := writeConfig(t, `
num_threads = 6
threading_layer = "workqueue"
chunk_size = 32
`)
	cfg, err := loadConfig(envOf(map[string]string{EnvConfigFile: path}))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.NumThreads)
	assert.Equal(t, "workqueue", cfg.Layer)
	assert.Equal(t, 32, cfg.ChunkSize)

	cfg, err = loadConfig(envOf(map[string]string{EnvConfigFile: path, EnvNumThreads: "2"}))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.NumThreads, "environment overrides the file")
	assert.Equal(t, 32, cfg.ChunkSize)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		message string
	}{
		{"unparsable threads", map[string]string{EnvNumThreads: "four"}, "'THREADLAYER_NUM_THREADS' is defined but its associated value 'four' could not be parsed"},
		{"zero threads", map[string]string{EnvNumThreads: "0"}, "Number of threads specified must be > 0, got 0"},
		{"unknown layer", map[string]string{EnvLayer: "omp"}, "The threading layer requested 'omp' is unknown"},
		{"negative chunk", map[string]string{EnvChunkSize: "-2"}, "non-negative"},
		{"bad bool", map[string]string{EnvPinThreads: "sometimes"}, "THREADLAYER_PIN_THREADS"},
		{"missing file", map[string]string{EnvConfigFile: "/nonexistent/threadlayer.toml"}, "config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(envOf(tt.env))
			require.Error(t, err)
			assert.ErrorIs(t, err, api.ErrConfig)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadFile_UnknownKey(t *testing.T) {
	path := writeConfig(t, "num_threads = 2\nthreads = 4\n")
	cfg := DefaultConfig()
	err := cfg.LoadFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrConfig)
	assert.Contains(t, err.Error(), "unknown keys threads")
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvNumThreads, "5")
	t.Setenv(EnvLayer, "safe")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.NumThreads)
	assert.Equal(t, "safe", cfg.Layer)
}
