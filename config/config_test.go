package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/serjogas/galleria/config"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GALLERIA_AUTH_SECRET", "test-secret")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "test-secret", cfg.Auth.Secret)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "galleria.db", cfg.Database.DSN)
	assert.Equal(t, "users", cfg.Database.Table)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "galleria-images", cfg.Storage.Bucket)
	assert.Equal(t, 604800, cfg.Storage.PresignExpiry)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.True(t, cfg.Gallery.SkipDuplicates)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingSecret(t *testing.T) {
	_, err := config.Load(nil, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GALLERIA_AUTH_SECRET", "test-secret")
	t.Setenv("GALLERIA_SERVER_PORT", "9090")
	t.Setenv("GALLERIA_DATABASE_TYPE", "memory")
	t.Setenv("GALLERIA_LOG_LEVEL", "debug")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Type)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Setenv("GALLERIA_AUTH_SECRET", "test-secret")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 3000
storage:
  bucket: photos
  presign_expiry: 900
gallery:
  skip_duplicates: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "photos", cfg.Storage.Bucket)
	assert.Equal(t, 900, cfg.Storage.PresignExpiry)
	assert.False(t, cfg.Gallery.SkipDuplicates)
}

func TestLoad_FlagOverrides(t *testing.T) {
	t.Setenv("GALLERIA_AUTH_SECRET", "test-secret")
	t.Setenv("GALLERIA_DATABASE_TYPE", "sqlite")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("db-type", "", "")
	flags.String("bucket", "", "")
	require.NoError(t, flags.Parse([]string{"--db-type=dynamo", "--bucket=flag-bucket"}))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	// Flags outrank the environment.
	assert.Equal(t, "dynamo", cfg.Database.Type)
	assert.Equal(t, "flag-bucket", cfg.Storage.Bucket)
}

func TestLoad_UnchangedFlagsIgnored(t *testing.T) {
	t.Setenv("GALLERIA_AUTH_SECRET", "test-secret")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("bucket", "flag-default", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	// A flag left at its default must not clobber the configured value.
	assert.Equal(t, "galleria-images", cfg.Storage.Bucket)
}

func TestLoad_InvalidDatabaseType(t *testing.T) {
	t.Setenv("GALLERIA_AUTH_SECRET", "test-secret")
	t.Setenv("GALLERIA_DATABASE_TYPE", "postgres")

	_, err := config.Load(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}
