// Package cache provides the byte-oriented cache behind the reporting views.
//
// Two backends exist: Local (in-process map with TTL) and Redis. Reports are
// derived data, so every caller must tolerate a miss and recompute.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Cache stores opaque values under string keys.
type Cache interface {
	// Get returns ok=false on a miss or an expired entry.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value; ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	DriverLocal = "local"
	DriverRedis = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver          string
	RedisURL        string
	CleanupInterval time.Duration
}

// New builds the configured backend. When Redis cannot be reached the
// local cache is used instead and the failure is logged.
func New(opts Options, log *zap.Logger) (Cache, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch strings.ToLower(opts.Driver) {
	case "", DriverLocal:
		return NewLocal(opts.CleanupInterval, log), nil
	case DriverRedis:
		c, err := NewRedis(opts.RedisURL, log)
		if err != nil {
			log.Warn("redis unavailable, falling back to local cache", zap.Error(err))
			return NewLocal(opts.CleanupInterval, log), nil
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", opts.Driver)
	}
}
