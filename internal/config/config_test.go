package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory so no config file or .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "data/diary.db", cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, "diary.sid", cfg.Session.CookieName)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, DevSessionSecret, cfg.Session.Secret)
	assert.Equal(t, 12, cfg.Security.BcryptCost)
	assert.Equal(t, "blog", cfg.Entries.Visibility)
	assert.Equal(t, "diary-exports", cfg.Storage.KeyPrefix)
	assert.Equal(t, "us-east-1", cfg.Storage.Region)
}

func TestLoad_PrefixedEnv(t *testing.T) {
	isolate(t)
	t.Setenv("DIARY_SERVER_ADDR", ":8080")
	t.Setenv("DIARY_SESSION_MAXAGE", "90m")
	t.Setenv("DIARY_SESSION_STORE", "Redis")
	t.Setenv("DIARY_ENTRIES_VISIBILITY", "journal")
	t.Setenv("DIARY_SECURITY_BCRYPTCOST", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 90*time.Minute, cfg.Session.MaxAge)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, "journal", cfg.Entries.Visibility)
	assert.Equal(t, 10, cfg.Security.BcryptCost)
}

func TestLoad_LegacyEnv(t *testing.T) {
	isolate(t)
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("BCRYPT_ROUNDS", "8")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Session.Secret)
	assert.Equal(t, 8, cfg.Security.BcryptCost)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, "smtp.example.com", cfg.Mail.Host)
	assert.Equal(t, 2525, cfg.Mail.Port)
}

func TestLoad_PrefixedWinsOverLegacy(t *testing.T) {
	isolate(t)
	t.Setenv("SESSION_SECRET", "legacy")
	t.Setenv("DIARY_SESSION_SECRET", "prefixed")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Session.Secret)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DIARY_DATABASE_PATH=/tmp/from-dotenv.db\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DIARY_DATABASE_PATH") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-dotenv.db", cfg.Database.Path)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)
	body := "server:\n  addr: \":9000\"\nentries:\n  visibility: journal\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "journal", cfg.Entries.Visibility)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"production without secret": {"DIARY_SERVER_ENV": "production"},
		"unknown store":             {"DIARY_SESSION_STORE": "memcached"},
		"unknown visibility":        {"DIARY_ENTRIES_VISIBILITY": "everyone"},
		"non-positive max age":      {"DIARY_SESSION_MAXAGE": "0s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
