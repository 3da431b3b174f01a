package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Manager provides Redis-backed submission throttling per reporter
type Manager struct {
	redis  *redis.Client
	quota  int
	window time.Duration
}

// NewManager connects to Redis and returns a submission limiter
func NewManager(redisURL string, quota int, window time.Duration) (*Manager, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Manager{redis: client, quota: quota, window: window}, nil
}

func (m *Manager) Close() error { return m.redis.Close() }

// SetQuota allows tests to override the per-window quota
func (m *Manager) SetQuota(quota int) { m.quota = quota }

func (m *Manager) windowKey(reporterID string, now time.Time) string {
	window := now.Unix() / int64(m.window.Seconds())
	return fmt.Sprintf("submit:%s:%d", reporterID, window)
}

// CheckSubmission counts a submission attempt against the reporter's quota.
// Returns allowed=false with seconds until the window resets when exhausted.
func (m *Manager) CheckSubmission(ctx context.Context, reporterID string) (allowed bool, remaining int, resetSec int, err error) {
	now := time.Now().UTC()
	key := m.windowKey(reporterID, now)

	// Use INCR and set TTL if first time
	pipe := m.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, m.window)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return false, 0, 0, err
	}

	count := int(incr.Val())
	if count > m.quota {
		windowSec := int64(m.window.Seconds())
		secPassed := int(now.Unix() % windowSec)
		return false, 0, int(windowSec) - secPassed, nil
	}
	return true, m.quota - count, 0, nil
}

// Usage returns the number of submissions counted in the current window
func (m *Manager) Usage(ctx context.Context, reporterID string) (int, error) {
	key := m.windowKey(reporterID, time.Now().UTC())
	val, err := m.redis.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}
