package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, cnf Configuration) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pixloom.json")
	data, err := json.Marshal(cnf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfigFile(t, Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432/pixloom"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
	})

	require.NoError(t, loadConfigFromFile(path))

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "Pixloom Server", cnf.ProjectName)
	assert.Equal(t, DEFAULT_PORT, cnf.Server.Port)
	assert.Equal(t, "https://api.replicate.com", cnf.Provider.BaseURL)
	assert.Equal(t, 3*time.Second, cnf.Provider.PollInterval())
	assert.Equal(t, 480*time.Second, cnf.Provider.Deadline())
	assert.Equal(t, 15*time.Second, cnf.Provider.FetchTimeout())
	assert.Equal(t, 3, cnf.Provider.FetchRetries)
	assert.Equal(t, "access_token_cookie", cnf.Auth.CookieName)
	assert.Equal(t, time.Hour, cnf.Auth.TokenTTL())
	assert.Equal(t, "new:job", cnf.Queue.JobQueue)
}

func TestLoadConfig_MissingDataSource(t *testing.T) {
	path := writeConfigFile(t, Configuration{
		Redis: RedisConfig{Dns: "localhost:6379"},
	})
	assert.Error(t, loadConfigFromFile(path))
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("PIXLOOM_PROVIDER_TOKEN", "r8_test_token")
	t.Setenv("PIXLOOM_SERVER_PORT", "7001")

	path := writeConfigFile(t, Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432/pixloom"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
	})
	require.NoError(t, loadConfigFromFile(path))

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "r8_test_token", cnf.Provider.Token)
	assert.Equal(t, "7001", cnf.Server.Port)
}

func TestRateLimitDefaults(t *testing.T) {
	rps := 10.0
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432/pixloom"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		RateLimit:  RateLimitConfig{RequestsPerSecond: &rps},
	}
	require.NoError(t, cnf.validateAndAddDefaults())
	require.NotNil(t, cnf.RateLimit.Burst)
	assert.Equal(t, 20, *cnf.RateLimit.Burst)
}
