// Package ratelimit bounds the outbound request rate to each music provider.
//
// The [Limiter] keeps one sliding-window counter per provider id. All
// concurrent sync tasks share the same window for a given provider, so the
// long-run call rate never exceeds the configured ceiling regardless of how
// many tasks run at once. The limiter only delays callers; it never rejects.
//
// A provider-reported "too many requests" response is fed back via
// [Limiter.Hold], which suppresses further admissions for that provider until
// the retry-after deadline passes, even if the window itself has capacity.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config is the per-provider rate ceiling: MaxRequests per rolling Window.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultConfig is applied to providers with no explicit configuration.
var DefaultConfig = Config{MaxRequests: 100, Window: time.Minute}

type providerWindow struct {
	admissions []time.Time
	holdUntil  time.Time
}

// Limiter admits or delays outbound provider calls under per-provider
// sliding-window ceilings. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	configs map[string]Config
	windows map[string]*providerWindow
	now     func() time.Time
}

// New creates a limiter with the given per-provider configurations.
// Providers absent from configs fall back to [DefaultConfig].
func New(configs map[string]Config) *Limiter {
	if configs == nil {
		configs = map[string]Config{}
	}
	return &Limiter{
		configs: configs,
		windows: make(map[string]*providerWindow),
		now:     time.Now,
	}
}

func (l *Limiter) configFor(providerID string) Config {
	if cfg, ok := l.configs[providerID]; ok && cfg.MaxRequests > 0 && cfg.Window > 0 {
		return cfg
	}
	return DefaultConfig
}

func (l *Limiter) windowFor(providerID string) *providerWindow {
	w, ok := l.windows[providerID]
	if !ok {
		w = &providerWindow{}
		l.windows[providerID] = w
	}
	return w
}

// tryAcquire admits the caller immediately (returning 0) or returns how long
// to wait before the next attempt can possibly succeed.
func (l *Limiter) tryAcquire(providerID string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg := l.configFor(providerID)
	w := l.windowFor(providerID)
	now := l.now()

	if now.Before(w.holdUntil) {
		return w.holdUntil.Sub(now)
	}

	cutoff := now.Add(-cfg.Window)
	kept := w.admissions[:0]
	for _, at := range w.admissions {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	w.admissions = kept

	if len(w.admissions) < cfg.MaxRequests {
		w.admissions = append(w.admissions, now)
		return 0
	}

	return w.admissions[0].Add(cfg.Window).Sub(now)
}

// Acquire blocks until a request slot is available for the provider or the
// context is done. It never drops a call; exceeding a maximum wait is the
// caller's decision via ctx.
func (l *Limiter) Acquire(ctx context.Context, providerID string) error {
	for {
		wait := l.tryAcquire(providerID)
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Hold suppresses admissions for the provider until retryAfter elapses,
// regardless of window occupancy. Other providers are unaffected. A shorter
// hold never truncates a longer one already in place.
func (l *Limiter) Hold(providerID string, retryAfter time.Duration) {
	if retryAfter <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windowFor(providerID)
	until := l.now().Add(retryAfter)
	if until.After(w.holdUntil) {
		w.holdUntil = until
	}
}

// Admitted returns how many calls were admitted for the provider within its
// current window. Used by status output and tests.
func (l *Limiter) Admitted(providerID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg := l.configFor(providerID)
	w := l.windowFor(providerID)
	cutoff := l.now().Add(-cfg.Window)

	count := 0
	for _, at := range w.admissions {
		if at.After(cutoff) {
			count++
		}
	}
	return count
}
