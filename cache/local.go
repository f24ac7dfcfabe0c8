package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Local is an in-memory cache with periodic cleanup of expired entries.
type Local struct {
	data   map[string]entry
	mu     sync.RWMutex
	log    *zap.Logger
	now    func() time.Time
	stopCh chan struct{}
	once   sync.Once
}

// NewLocal creates a cache whose cleanup loop runs every interval
// (one minute when interval <= 0). Close stops the loop.
func NewLocal(interval time.Duration, log *zap.Logger) *Local {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Local{
		data:   make(map[string]entry),
		log:    log,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	go c.cleanupLoop(interval)

	log.Info("local report cache initialized", zap.Duration("cleanup_interval", interval))
	return c
}

func (c *Local) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || c.expired(e) {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (c *Local) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.data[key] = e
	return nil
}

func (c *Local) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *Local) Ping(context.Context) error { return nil }

// Len returns the number of stored entries, expired ones included.
func (c *Local) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *Local) Close() error {
	c.once.Do(func() { close(c.stopCh) })
	return nil
}

func (c *Local) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(c.now())
}

func (c *Local) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Local) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.data {
		if c.expired(e) {
			delete(c.data, key)
			removed++
		}
	}
	if removed > 0 {
		c.log.Debug("cache cleanup completed", zap.Int("expired_entries", removed))
	}
}
