package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/mlkit/storage"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mlkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output:
  dir: /tmp/artifacts
  versioned: true
train:
  test_size: 0.25
  average: weighted
search:
  trials: 30
  sampler: tpe
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/artifacts", cfg.Output.Dir)
	assert.True(t, cfg.Output.Versioned)
	assert.Equal(t, 0.25, cfg.Train.TestSize)
	assert.Equal(t, "weighted", cfg.Train.Average)
	assert.Equal(t, int64(42), cfg.Train.Seed)
	assert.Equal(t, 30, cfg.Search.Trials)
	assert.Equal(t, "tpe", cfg.Search.Sampler)
	assert.Equal(t, 10, cfg.Search.Folds)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MLKIT_OUTPUT_DIR", "env_models")
	t.Setenv("MLKIT_TRAIN_TEST_SIZE", "0.3")
	t.Setenv("MLKIT_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env_models", cfg.Output.Dir)
	assert.Equal(t, 0.3, cfg.Train.TestSize)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"test size":    "MLKIT_TRAIN_TEST_SIZE=1.5",
		"average":      "MLKIT_TRAIN_AVERAGE=mean",
		"sampler":      "MLKIT_SEARCH_SAMPLER=grid",
		"scale":        "MLKIT_TRAIN_SCALE=log",
		"storage type": "MLKIT_STORAGE_TYPE=ftp",
		"log level":    "MLKIT_LOG_LEVEL=trace",
		"s3 missing":   "MLKIT_STORAGE_TYPE=s3",
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			k, v, _ := strings.Cut(kv, "=")
			t.Setenv(k, v)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestStore(t *testing.T) {
	cfg := Default()
	cfg.Output.Dir = t.TempDir()
	s, err := cfg.Store()
	require.NoError(t, err)
	posix, ok := s.(*storage.POSIX)
	require.True(t, ok)
	assert.Equal(t, cfg.Output.Dir, posix.Dir)

	cfg.Storage = StorageConfig{Type: "s3", S3: storage.S3Config{
		Endpoint: "localhost:9000",
		Bucket:   "models",
		Prefix:   "mlkit",
	}}
	require.NoError(t, cfg.Validate())
	s, err = cfg.Store()
	require.NoError(t, err)
	s3, ok := s.(*storage.S3)
	require.True(t, ok)
	assert.Equal(t, "models", s3.Bucket)
	assert.Equal(t, "mlkit", s3.Prefix)

	cfg.Storage.Type = "ftp"
	_, err = cfg.Store()
	assert.Error(t, err)
}
