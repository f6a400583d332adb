package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir()) // keep a developer .env out of the test
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 15*time.Minute, cfg.S3.PresignExpiry)
	assert.Equal(t, 5*time.Second, cfg.Submissions.LockTTL)
	assert.False(t, cfg.Submissions.LockEvaluated)
	assert.False(t, cfg.S3.Enabled())
	assert.False(t, cfg.Admin.Enabled())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	chdir(t, t.TempDir())
	dir := t.TempDir()
	yaml := []byte(`
database:
  driver: memory
jwt:
  secret: from-file
  expiration: 30m
submissions:
  lock_evaluated: true
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 30*time.Minute, cfg.JWT.Expiration)
	assert.True(t, cfg.Submissions.LockEvaluated)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	chdir(t, t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("jwt: [unclosed"), 0o600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "missing secret", cfg: Config{Database: DatabaseConfig{Driver: DriverMemory}}, wantErr: true},
		{name: "memory driver", cfg: Config{JWT: JWTConfig{Secret: "s"}, Database: DatabaseConfig{Driver: DriverMemory}}},
		{name: "mongo without uri", cfg: Config{JWT: JWTConfig{Secret: "s"}, Database: DatabaseConfig{Driver: DriverMongo, Name: "db"}}, wantErr: true},
		{name: "mongo ok", cfg: Config{JWT: JWTConfig{Secret: "s"}, Database: DatabaseConfig{Driver: DriverMongo, URI: "mongodb://x", Name: "db"}}},
		{name: "unknown driver", cfg: Config{JWT: JWTConfig{Secret: "s"}, Database: DatabaseConfig{Driver: "sqlite"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
