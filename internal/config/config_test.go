package config

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	return loadConfig(fs, args)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := load(t, "--db-path", "/tmp/seforim/seforim.db", "--env-file", "/nonexistent")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 5, cfg.Search.Near)
	assert.Equal(t, 2000, cfg.Storage.BatchSize)
	assert.False(t, cfg.Search.BaseBookOnly)
}

func TestLoadConfig_IndexPathDefaultsBesideDatabase(t *testing.T) {
	cfg, err := load(t, "--db-path", "/tmp/seforim/seforim.db", "--env-file", "/nonexistent")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/seforim", "index"), cfg.Storage.TextIndexPath)
}

func TestLoadConfig_RequiresDatabasePath(t *testing.T) {
	_, err := load(t, "--env-file", "/nonexistent")
	require.Error(t, err)
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	cfg, err := load(t,
		"--db-path", "/data/seforim.db",
		"--index-path", "/data/idx",
		"--near", "0",
		"--base-book-only", "true",
		"--batch-size", "500",
		"--env-file", "/nonexistent",
	)
	require.NoError(t, err)

	assert.Equal(t, "/data/idx", cfg.Storage.TextIndexPath)
	assert.Equal(t, 0, cfg.Search.Near)
	assert.True(t, cfg.Search.BaseBookOnly)
	assert.Equal(t, 500, cfg.Storage.BatchSize)
}

func TestLoadConfig_RejectsInvalidEnvironment(t *testing.T) {
	_, err := load(t,
		"--db-path", "/data/seforim.db",
		"--env", "weird",
		"--env-file", "/nonexistent",
	)
	require.Error(t, err)
}

func TestLoadConfig_RejectsNegativeBatchSize(t *testing.T) {
	_, err := load(t,
		"--db-path", "/data/seforim.db",
		"--batch-size", "-5",
		"--env-file", "/nonexistent",
	)
	require.Error(t, err)
}
