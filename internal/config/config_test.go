package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.NotNil(t, cfg.Profiles)
	assert.Empty(t, cfg.Profiles)
	assert.Equal(t, DefaultBaseURL, cfg.Defaults.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Defaults.TimeoutDuration())
	assert.Equal(t, BackendFile, cfg.Credentials.Backend)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelayDuration())
	assert.Zero(t, cfg.Retry.MaxDelayDuration())
	assert.Equal(t, 30*time.Second, cfg.Server.StatsCacheDuration())
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.Equal(t, DefaultBaseURL, cfg.Defaults.BaseURL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.NotNil(t, cfg.Profiles)
}

func TestLoad_WithConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `current_profile: production
profiles:
  production:
    account_id: acct-prod
    token: admin-prod-token
    base_url: https://licensing.example.com/v1
    email: ops@example.com
credentials:
  backend: redis
  redis_url: redis://localhost:6379/2
retry:
  max_retries: 5
  base_delay: 250ms
  max_delay: 10s
audit:
  enabled: true
  secret: s3cret
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0600))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.CurrentProfile)
	require.Contains(t, cfg.Profiles, "production")
	p := cfg.Profiles["production"]
	assert.Equal(t, "acct-prod", p.AccountID)
	assert.Equal(t, "admin-prod-token", p.Token)
	assert.Equal(t, "ops@example.com", p.Email)
	assert.Equal(t, "https://licensing.example.com/v1", cfg.BaseURL(""))

	assert.Equal(t, BackendRedis, cfg.Credentials.Backend)
	assert.Equal(t, "redis://localhost:6379/2", cfg.Credentials.RedisURL)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelayDuration())
	assert.Equal(t, 10*time.Second, cfg.Retry.MaxDelayDuration())
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "keyhawk.audit", cfg.Audit.Subject)
	assert.Equal(t, "nats://localhost:4222", cfg.Audit.NatsURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("profiles: [unclosed"), 0600))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoad_WithEnvironmentOverrides(t *testing.T) {
	t.Setenv("KHAWK_BASE_URL", "http://localhost:3000/v1")
	t.Setenv("KHAWK_LOG_LEVEL", "debug")
	t.Setenv("KHAWK_ACCOUNT_ID", "acct-env")
	t.Setenv("KHAWK_TOKEN", "env-token")
	t.Setenv("KHAWK_CREDENTIALS_BACKEND", "redis")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000/v1", cfg.Defaults.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "acct-env", cfg.EnvAccountID)
	assert.Equal(t, "env-token", cfg.EnvToken)
	assert.Equal(t, BackendRedis, cfg.Credentials.Backend)
}

func TestLoad_ConfigDirEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ConfigDirEnv, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("current_profile: staging\n"), 0600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.CurrentProfile)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), cfg.Path())
}

func TestSave(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NoError(t, cfg.SaveProfile("work", Profile{AccountID: "acct-1", Token: "tok"}))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(configPath))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())

	reloaded, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "work", reloaded.CurrentProfile)
	assert.Equal(t, "tok", reloaded.Profiles["work"].Token)
	assert.Equal(t, "30s", reloaded.Defaults.Timeout)
}

func TestSave_DoesNotPersistEnvCredentials(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("KHAWK_TOKEN", "env-only")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NoError(t, cfg.Save())

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "env-only")
}

func TestClearToken(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.SaveProfile("", Profile{AccountID: "acct-1", Token: "tok", BaseURL: "http://x", Email: "a@b.c"}))

	require.NoError(t, cfg.ClearToken(""))
	p, err := cfg.GetProfile("")
	require.NoError(t, err)
	assert.Empty(t, p.Token)
	assert.Equal(t, "acct-1", p.AccountID)
	assert.Equal(t, "http://x", p.BaseURL)
	assert.Equal(t, "a@b.c", p.Email)

	assert.Error(t, cfg.ClearToken("nope"))
}

func TestRemoveProfile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.SaveProfile("temp", Profile{AccountID: "a"}))

	require.NoError(t, cfg.RemoveProfile("temp"))
	assert.NotContains(t, cfg.Profiles, "temp")
	assert.Empty(t, cfg.CurrentProfile)
	assert.Error(t, cfg.RemoveProfile("temp"))
}

func TestBaseURLAndKeyPrefix(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL("missing"))
	assert.Equal(t, "khawk:default", cfg.KeyPrefix(""))
	assert.Equal(t, "khawk:staging", cfg.KeyPrefix("staging"))

	cfg.Credentials.KeyPrefix = "ops"
	assert.Equal(t, "ops", cfg.KeyPrefix("staging"))
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseDuration("", 5*time.Second))
	assert.Equal(t, 5*time.Second, parseDuration("bogus", 5*time.Second))
	assert.Equal(t, 5*time.Second, parseDuration("-1s", 5*time.Second))
	assert.Equal(t, 2*time.Minute, parseDuration("2m", 5*time.Second))
}
