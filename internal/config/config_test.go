package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "this-is-a-very-long-jwt-secret-for-testing-32+"

// validEnv sets the minimum required env vars for a valid config.
func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost:5432/testdb")
	t.Setenv("AUTH_JWT_SECRET", testSecret)
}

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
server:
  host: "127.0.0.1"
  port: 9090
  shutdown_timeout: "5s"
  send_rate_per_min: 10

database:
  driver: postgres
  dsn: "postgres://u:p@localhost:5432/testdb"
  max_conns: 10

auth:
  jwt_secret: "this-is-a-very-long-jwt-secret-for-testing-32+"
  jwt_issuer: "shop"

inquiry:
  max_per_user: 5
  max_total: 10
  legacy_passphrase: "old-secret"

lease:
  backend: redis
  ttl: "20s"
  wait: "2s"

redis:
  url: "redis://cache:6379/1"

notify:
  backend: asynq
  queue: "mail"

log:
  level: debug
  format: text
`

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeYAML(t, dir, validYAML))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.SendRatePerMin)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, "shop", cfg.Auth.JWTIssuer)
	assert.Equal(t, 5, cfg.Inquiry.MaxPerUser)
	assert.Equal(t, 4000, cfg.Inquiry.MaxMessageLength)
	assert.Equal(t, "old-secret", cfg.Inquiry.LegacyPassphrase)
	assert.Equal(t, LeaseRedis, cfg.Lease.Backend)
	assert.Equal(t, 20*time.Second, cfg.Lease.TTL)
	assert.Equal(t, 50*time.Millisecond, cfg.Lease.RetryInterval)
	assert.Equal(t, "mail", cfg.Notify.Queue)
	assert.True(t, cfg.UsesRedis())
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeYAML(t, dir, validYAML))
	t.Setenv("INQUIRY_MAX_TOTAL", "12")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Inquiry.MaxTotal)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	validEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 17, cfg.Inquiry.MaxPerUser)
	assert.Equal(t, 34, cfg.Inquiry.MaxTotal)
	assert.Equal(t, 30*time.Second, cfg.Lease.TTL)
	assert.Equal(t, 5*time.Second, cfg.Lease.Wait)
	assert.Equal(t, NotifyLog, cfg.Notify.Backend)
	assert.False(t, cfg.Migrate.OnStart)
	assert.False(t, cfg.UsesRedis())
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			Database: DatabaseConfig{Driver: DriverMemory},
			Auth:     AuthConfig{JWTSecret: testSecret},
			Inquiry:  InquiryConfig{MaxPerUser: 17, MaxTotal: 34, MaxMessageLength: 4000},
			Lease:    LeaseConfig{Backend: LeaseMemory, TTL: 30 * time.Second, Wait: 5 * time.Second, RetryInterval: 50 * time.Millisecond},
			Notify:   NotifyConfig{Backend: NotifyNone},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = DriverPostgres }, "database.dsn"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "database.driver"},
		{"pg lease on memory", func(c *Config) { c.Lease.Backend = LeasePostgres }, "requires database.driver postgres"},
		{"wait beyond ttl", func(c *Config) { c.Lease.Wait = time.Minute }, "lease.wait"},
		{"per user above total", func(c *Config) { c.Inquiry.MaxPerUser = 40 }, "exceeds"},
		{"redis missing url", func(c *Config) { c.Notify.Backend = NotifyAsynq }, "redis.url"},
		{"unknown notify", func(c *Config) { c.Notify.Backend = "sms" }, "notify.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "error %q should mention %q", err, tt.want)
		})
	}
}
