// Package ratelimit provides per-client request limiting backed by token buckets.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRequestsPerMinute = 60
	defaultBurst             = 10
	defaultCleanupInterval   = 5 * time.Minute
	defaultIdleTTL           = 10 * time.Minute
)

// Config controls the limiter.
type Config struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
	CleanupInterval   time.Duration
	IdleTTL           time.Duration
}

// Info describes the outcome of a single Allow call.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per client identifier.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	clients map[string]*client
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewLimiter creates a Limiter and starts its idle-client cleanup loop when enabled.
func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = defaultRequestsPerMinute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}

	l := &Limiter{
		cfg:     cfg,
		clients: make(map[string]*client),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if cfg.Enabled {
		go l.cleanupLoop()
	}
	return l
}

// Allow consumes one token for clientID.
func (l *Limiter) Allow(clientID string) Info {
	if l == nil || !l.cfg.Enabled {
		return Info{Allowed: true}
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[clientID]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(float64(l.cfg.RequestsPerMinute)/60), l.cfg.Burst)}
		l.clients[clientID] = c
	}
	c.lastSeen = now

	info := Info{Limit: l.cfg.RequestsPerMinute}
	reservation := c.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return info
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		info.RetryAfter = delay
		return info
	}

	info.Allowed = true
	info.Remaining = int(math.Max(0, math.Floor(c.limiter.TokensAt(now))))
	return info
}

// Stop terminates the cleanup loop. It is safe to call more than once.
func (l *Limiter) Stop() {
	if l == nil {
		return
	}
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.cleanup(l.now())
		}
	}
}

func (l *Limiter) cleanup(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, c := range l.clients {
		if now.Sub(c.lastSeen) > l.cfg.IdleTTL {
			delete(l.clients, id)
			removed++
		}
	}
	return removed
}
