package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks the variables Load reads so the host environment does not
// leak into tests. Viper treats empty values as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "DATABASE_PATH", "REDIS_URL", "LOG_LEVEL",
		"BOOKING_HTTP_PORT", "BOOKING_DATABASE_PATH", "BOOKING_CACHE_REDIS_URL",
		"BOOKING_LOGGING_LEVEL", "BOOKING_CACHE_DRIVER", "BOOKING_APP_TIMEZONE",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "booking.db", cfg.Database.Path)
	assert.Equal(t, "local", cfg.Cache.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ReportTTL)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Seed.Enabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FileThenEnv(t *testing.T) {
	// GIVEN: A YAML file setting port and timezone
	// WHEN: BOOKING_HTTP_PORT and the REDIS_URL alias are also set
	// THEN: Environment wins over the file

	clearEnv(t)
	path := writeFile(t, `
app:
  environment: production
  timezone: Asia/Jakarta
http:
  port: 9000
  read_timeout: 3s
cache:
  driver: redis
  report_ttl: 30s
`)
	t.Setenv("BOOKING_HTTP_PORT", "9100")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.HTTP.Port)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, 30*time.Second, cfg.Cache.ReportTTL)
	assert.False(t, cfg.IsDevelopment())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jakarta", loc.String())
}

func TestLoad_Aliases(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_PATH", "/tmp/courts.db")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTP.Port)
	assert.Equal(t, "/tmp/courts.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			App:      AppConfig{Timezone: "UTC"},
			HTTP:     HTTPConfig{Port: 8080},
			Database: DatabaseConfig{Path: "x.db"},
			Cache:    CacheConfig{Driver: "local"},
			Logging:  LoggingConfig{Format: "json"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.HTTP.Port = 0 }},
		{"port too high", func(c *Config) { c.HTTP.Port = 70000 }},
		{"blank database", func(c *Config) { c.Database.Path = " " }},
		{"redis without url", func(c *Config) { c.Cache.Driver = "redis" }},
		{"unknown driver", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"unknown format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad timezone", func(c *Config) { c.App.Timezone = "Mars/Olympus" }},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
