package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token bucket. Tokens refill continuously at rate per
// second up to burst.
type Limiter struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
}

func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Allow consumes one token if available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill(time.Now())
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

func (l *Limiter) refill(now time.Time) {
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now
}

type entry struct {
	limiter  *Limiter
	lastSeen time.Time
}

// Registry hands out one limiter per key (user id) and evicts
// limiters that have been idle for a while.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	rate    float64
	burst   int

	idleAfter time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewRegistry(rate float64, burst int) *Registry {
	r := &Registry{
		entries:   make(map[string]*entry),
		rate:      rate,
		burst:     burst,
		idleAfter: 10 * time.Minute,
	}
	r.stop = make(chan struct{})
	go r.evictLoop()
	return r
}

// Get returns the limiter for key, creating it on first use.
func (r *Registry) Get(key string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		e = &entry{limiter: NewLimiter(r.rate, r.burst)}
		r.entries[key] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

// Remove drops the limiter for key.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

// Stop ends the background eviction loop.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *Registry) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.mu.Lock()
			for key, e := range r.entries {
				if now.Sub(e.lastSeen) > r.idleAfter {
					delete(r.entries, key)
				}
			}
			r.mu.Unlock()
		}
	}
}
