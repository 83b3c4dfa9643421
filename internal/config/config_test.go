package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-cbvs/internal/log"
	"github.com/robert-malhotra/go-cbvs/seis"
)

var envVars = []string{
	"CBVS_LOG_LEVEL", "CBVS_LOG_FORMAT", "CBVS_NO_SEISWRITE_REGULARISATION",
	"CBVS_ENFORCE_SURVINFO_SEISWRITE", "CBVS_STACK_DUPLICATES", "CBVS_MAX_FILE_SIZE",
	"CBVS_BRICKS", "CBVS_CATALOG",
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		if v, ok := os.LookupEnv(name); ok {
			require.NoError(t, os.Unsetenv(name))
			t.Cleanup(func() { os.Setenv(name, v) })
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.True(t, cfg.Write.EnforceRegular)
	assert.False(t, cfg.Write.Regularize)
	assert.Equal(t, seis.Default2DWindow, cfg.Write.Window2D)
}

func TestSaveAndLoadConfig(t *testing.T) {
	clearEnvVars(t)
	path := filepath.Join(t.TempDir(), "conf", "cbvs.yaml")

	cfg := DefaultConfig()
	cfg.Write.StackDuplicates = true
	cfg.Write.SampleType = "int16"
	cfg.Storage.Bricks = "H`64`8"
	cfg.Storage.MaxFileSize = 1 << 30
	cfg.Catalog = "catalog.yaml"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path, "")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEnvOverrides(t *testing.T) {
	clearEnvVars(t)
	path := filepath.Join(t.TempDir(), "cbvs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("write:\n  regularize: false\nstorage:\n  maxFileSize: 100\n"), 0o644))

	t.Setenv("CBVS_NO_SEISWRITE_REGULARISATION", "true")
	t.Setenv("CBVS_ENFORCE_SURVINFO_SEISWRITE", "1")
	t.Setenv("CBVS_MAX_FILE_SIZE", "2048")
	t.Setenv("CBVS_LOG_LEVEL", "DEBUG")

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)
	assert.False(t, cfg.Write.EnforceRegular)
	assert.True(t, cfg.Write.Regularize)
	assert.Equal(t, int64(2048), cfg.Storage.MaxFileSize)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
}

func TestDotEnv(t *testing.T) {
	clearEnvVars(t)
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("CBVS_CATALOG=/surveys/catalog.yaml\nCBVS_BRICKS=H`32`4\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("CBVS_CATALOG")
		os.Unsetenv("CBVS_BRICKS")
	})

	cfg, err := LoadConfig("", envPath)
	require.NoError(t, err)
	assert.Equal(t, "/surveys/catalog.yaml", cfg.Catalog)
	assert.Equal(t, "H`32`4", cfg.Storage.Bricks)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"sample type": func(c *Config) { c.Write.SampleType = "complex" },
		"bricks":      func(c *Config) { c.Storage.Bricks = "V`2" },
		"byte order":  func(c *Config) { c.Storage.ByteOrder = "middle" },
		"file size":   func(c *Config) { c.Storage.MaxFileSize = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), seis.ErrConfiguration)
		})
	}
}

func TestOptionBuilders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Bricks = "H`16"
	cfg.Storage.ByteOrder = "big"

	sopts, err := cfg.SeisOptions(log.Nop())
	require.NoError(t, err)
	assert.Len(t, sopts, 6)

	copts, err := cfg.CodecOptions(log.Nop())
	require.NoError(t, err)
	assert.Len(t, copts, 5)

	cfg.Write.SampleType = "bad"
	_, err = cfg.SeisOptions(log.Nop())
	assert.ErrorIs(t, err, seis.ErrConfiguration)
}
