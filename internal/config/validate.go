package config

import (
	"errors"
	"fmt"
	"slices"
)

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret)))
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("database.driver must be postgres or memory (got %q)", c.Database.Driver))
	}

	if !slices.Contains([]string{LeasePostgres, LeaseRedis, LeaseMemory}, c.Lease.Backend) {
		errs = append(errs, fmt.Errorf("lease.backend must be postgres, redis or memory (got %q)", c.Lease.Backend))
	}
	if c.Lease.Backend == LeasePostgres && c.Database.Driver != DriverPostgres {
		errs = append(errs, errors.New("lease.backend postgres requires database.driver postgres"))
	}
	if c.Lease.Wait <= 0 || c.Lease.TTL <= 0 || c.Lease.RetryInterval <= 0 {
		errs = append(errs, errors.New("lease ttl, wait and retry_interval must be positive"))
	}
	if c.Lease.Wait >= c.Lease.TTL {
		errs = append(errs, fmt.Errorf("lease.wait (%s) must be shorter than lease.ttl (%s)", c.Lease.Wait, c.Lease.TTL))
	}

	if !slices.Contains([]string{NotifyLog, NotifyAsynq, NotifyNone}, c.Notify.Backend) {
		errs = append(errs, fmt.Errorf("notify.backend must be log, asynq or none (got %q)", c.Notify.Backend))
	}

	if c.Inquiry.MaxPerUser <= 0 || c.Inquiry.MaxTotal <= 0 {
		errs = append(errs, errors.New("inquiry.max_per_user and inquiry.max_total must be positive"))
	}
	if c.Inquiry.MaxPerUser > c.Inquiry.MaxTotal {
		errs = append(errs, fmt.Errorf("inquiry.max_per_user (%d) exceeds inquiry.max_total (%d)", c.Inquiry.MaxPerUser, c.Inquiry.MaxTotal))
	}
	if c.Inquiry.MaxMessageLength <= 0 {
		errs = append(errs, errors.New("inquiry.max_message_length must be positive"))
	}

	if c.UsesRedis() && c.Redis.URL == "" {
		errs = append(errs, errors.New("redis.url is required by the configured lease or notify backend"))
	}

	return errors.Join(errs...)
}
