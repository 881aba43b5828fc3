package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Inquiry  InquiryConfig  `yaml:"inquiry"`
	Lease    LeaseConfig    `yaml:"lease"`
	Redis    RedisConfig    `yaml:"redis"`
	Notify   NotifyConfig   `yaml:"notify"`
	Log      LogConfig      `yaml:"log"`
	CORS     CORSConfig     `yaml:"cors"`
	Migrate  MigrateConfig  `yaml:"migrate"`
}

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Lease backends.
const (
	LeasePostgres = "postgres"
	LeaseRedis    = "redis"
	LeaseMemory   = "memory"
)

// Notification backends.
const (
	NotifyLog   = "log"
	NotifyAsynq = "asynq"
	NotifyNone  = "none"
)

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PUT,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type,X-Request-Id"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"              env:"SERVER_HOST"              env-default:"0.0.0.0"`
	Port            int           `yaml:"port"              env:"SERVER_PORT"              env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"      env:"SERVER_READ_TIMEOUT"      env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"     env:"SERVER_WRITE_TIMEOUT"     env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"      env:"SERVER_IDLE_TIMEOUT"      env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"  env:"SERVER_SHUTDOWN_TIMEOUT"  env-default:"10s"`
	SendRatePerMin  int           `yaml:"send_rate_per_min" env:"SERVER_SEND_RATE_PER_MIN" env-default:"30"`
}

// DatabaseConfig holds storage settings. DSN is required for the postgres driver.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"             env:"DATABASE_DRIVER"             env-default:"postgres"`
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// AuthConfig holds access token validation settings.
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"       env:"AUTH_JWT_SECRET"       env-required:"true"`
	JWTIssuer      string        `yaml:"jwt_issuer"       env:"AUTH_JWT_ISSUER"       env-default:"marketplace"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"AUTH_ACCESS_TOKEN_TTL" env-default:"15m"`
}

// InquiryConfig holds conversation limits.
type InquiryConfig struct {
	MaxPerUser       int    `yaml:"max_per_user"       env:"INQUIRY_MAX_PER_USER"       env-default:"17"`
	MaxTotal         int    `yaml:"max_total"          env:"INQUIRY_MAX_TOTAL"          env-default:"34"`
	MaxMessageLength int    `yaml:"max_message_length" env:"INQUIRY_MAX_MESSAGE_LENGTH" env-default:"4000"`
	LegacyPassphrase string `yaml:"legacy_passphrase"  env:"INQUIRY_LEGACY_PASSPHRASE"`
}

// LeaseConfig controls per-inquiry append serialization.
type LeaseConfig struct {
	Backend       string        `yaml:"backend"        env:"LEASE_BACKEND"        env-default:"postgres"`
	TTL           time.Duration `yaml:"ttl"            env:"LEASE_TTL"            env-default:"30s"`
	Wait          time.Duration `yaml:"wait"           env:"LEASE_WAIT"           env-default:"5s"`
	RetryInterval time.Duration `yaml:"retry_interval" env:"LEASE_RETRY_INTERVAL" env-default:"50ms"`
	KeyPrefix     string        `yaml:"key_prefix"     env:"LEASE_KEY_PREFIX"     env-default:"lease:"`
}

// RedisConfig is shared by the redis lease backend and the asynq notifier.
type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
}

// NotifyConfig selects how inquiry events leave the service.
type NotifyConfig struct {
	Backend       string        `yaml:"backend"        env:"NOTIFY_BACKEND"        env-default:"log"`
	Queue         string        `yaml:"queue"          env:"NOTIFY_QUEUE"          env-default:"notifications"`
	MaxRetry      int           `yaml:"max_retry"      env:"NOTIFY_MAX_RETRY"      env-default:"5"`
	Concurrency   int           `yaml:"concurrency"    env:"NOTIFY_CONCURRENCY"    env-default:"16"`
	Timeout       time.Duration `yaml:"timeout"        env:"NOTIFY_TIMEOUT"        env-default:"5s"`
	RelayInterval time.Duration `yaml:"relay_interval" env:"NOTIFY_RELAY_INTERVAL" env-default:"30s"`
	RelayMinAge   time.Duration `yaml:"relay_min_age"  env:"NOTIFY_RELAY_MIN_AGE"  env-default:"1m"`
	RelayBatch    int           `yaml:"relay_batch"    env:"NOTIFY_RELAY_BATCH"    env-default:"100"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// MigrateConfig controls schema migration at startup.
type MigrateConfig struct {
	OnStart bool `yaml:"on_start" env:"MIGRATE_ON_START" env-default:"false"`
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Lease.Backend == LeaseRedis || c.Notify.Backend == NotifyAsynq
}
