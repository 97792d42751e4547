// Package ratelimit bounds request throughput per client identity with
// per-key token buckets: a budget of N requests per window, refilled
// continuously. Counters are process-local; swapping in a shared store would
// only require another implementation of Admit.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	// Limit is the configured budget per window, for error payloads.
	Limit int
	// RetryAfter is how long the client should wait before retrying.
	// Zero when Allowed.
	RetryAfter time.Duration
}

// Limiter admits requests per client key. Safe for concurrent use;
// admissions for the same key are atomically counted by the underlying
// bucket, so concurrent load cannot over-admit.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*entry
	budget  int
	window  time.Duration

	stopJanitor chan struct{}
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// New builds a Limiter with the given budget per window.
// Zero or negative arguments fall back to 30 requests per minute.
func New(budget int, window time.Duration) *Limiter {
	if budget <= 0 {
		budget = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	l := &Limiter{
		buckets:     make(map[string]*entry),
		budget:      budget,
		window:      window,
		stopJanitor: make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Admit checks whether the client identified by key may proceed.
func (l *Limiter) Admit(key string) Decision {
	l.mu.Lock()
	e, ok := l.buckets[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(rate.Every(l.window/time.Duration(l.budget)), l.budget)}
		l.buckets[key] = e
	}
	e.lastSeen = time.Now()
	l.mu.Unlock()

	r := e.lim.Reserve()
	if delay := r.Delay(); delay > 0 {
		// Not admitted: hand the budget back and report when to retry.
		r.Cancel()
		return Decision{Allowed: false, Limit: l.budget, RetryAfter: delay}
	}
	return Decision{Allowed: true, Limit: l.budget}
}

// Close stops the idle-entry janitor.
func (l *Limiter) Close() {
	close(l.stopJanitor)
}

// janitor drops buckets idle for two windows so one-off clients do not
// accumulate forever.
func (l *Limiter) janitor() {
	t := time.NewTicker(l.window)
	defer t.Stop()
	for {
		select {
		case <-l.stopJanitor:
			return
		case now := <-t.C:
			l.mu.Lock()
			for k, e := range l.buckets {
				if now.Sub(e.lastSeen) > 2*l.window {
					delete(l.buckets, k)
				}
			}
			l.mu.Unlock()
		}
	}
}
