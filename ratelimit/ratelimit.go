// Package ratelimit throttles requests per caller and route.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"edumedia/common"
	"edumedia/logger"
)

// Store decides whether one more hit for key fits in limit per window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// MemoryStore keeps a token bucket per key in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	limiters map[string]*entry
	now      func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{limiters: map[string]*entry{}, now: time.Now}
}

func (m *MemoryStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)}
		m.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// Prune drops buckets idle for longer than idle.
func (m *MemoryStore) Prune(idle time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-idle)
	for k, e := range m.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(m.limiters, k)
		}
	}
}

// StartPruner prunes a memory store every interval until ctx is done. Other
// stores expire their own keys; for them it does nothing and returns false.
func StartPruner(ctx context.Context, store Store, interval, idle time.Duration) bool {
	m, ok := store.(*MemoryStore)
	if !ok {
		return false
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Prune(idle)
			}
		}
	}()
	return true
}

// RedisStore counts hits in fixed windows shared by every instance.
type RedisStore struct {
	rdb *goredis.Client
}

func NewRedisStore(addr string) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (r *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().UnixNano()/int64(window))
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

// Open returns a redis store when addr is set, otherwise a memory store.
func Open(addr string, log *logger.Logger) Store {
	if addr == "" {
		return NewMemoryStore()
	}
	store, err := NewRedisStore(addr)
	if err != nil {
		log.Warn("redis rate limiter unavailable, using memory", "addr", addr, "error", err)
		return NewMemoryStore()
	}
	log.Info("rate limiter backed by redis", "addr", addr)
	return store
}

// Limit allows limit requests per window per client IP on the route it guards.
// Store errors let the request through.
func Limit(store Store, name string, limit int, window time.Duration, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := name + ":" + c.ClientIP()
		ok, err := store.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			log.Warn("rate limiter failed open", "route", name, "error", err)
			c.Next()
			return
		}
		if !ok {
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.Response{
				Success: false,
				Error:   "Too many requests, try again later",
			})
			return
		}
		c.Next()
	}
}
