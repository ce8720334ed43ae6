package login

import (
	"strings"
	"sync"
	"time"
)

// Throttle tracks failed login attempts per normalized identity and imposes a
// temporary lockout once maxAttempts failures land inside one failure window.
// All state is in-process and owned by the instance; nothing is persisted.
type Throttle struct {
	mu     sync.Mutex
	states map[string]*attemptState

	maxAttempts   int
	failureWindow time.Duration
	blockDuration time.Duration

	now func() time.Time
}

type attemptState struct {
	failures       int
	firstFailureAt time.Time
	blockedUntil   time.Time // zero while not blocked
}

type ThrottleConfig struct {
	MaxAttempts   int
	FailureWindow time.Duration
	BlockDuration time.Duration
	Now           func() time.Time // nil means time.Now
}

func NewThrottle(cfg ThrottleConfig) *Throttle {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Throttle{
		states:        make(map[string]*attemptState),
		maxAttempts:   cfg.MaxAttempts,
		failureWindow: cfg.FailureWindow,
		blockDuration: cfg.BlockDuration,
		now:           now,
	}
}

// IsBlocked reports whether a lockout is active for the key. An expired
// lockout entry is evicted on the way.
func (t *Throttle) IsBlocked(key string) bool {
	k := normalizeKey(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[k]
	if !ok {
		return false
	}
	if state.blockedUntil.IsZero() {
		return false
	}
	if t.now().Before(state.blockedUntil) {
		return true
	}
	delete(t.states, k)
	return false
}

// RecordFailure counts one failed attempt. The read-modify-write happens
// under the lock, so two concurrent failures for the same key cannot both
// observe a stale counter.
func (t *Throttle) RecordFailure(key string) {
	k := normalizeKey(key)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[k]
	if !ok {
		state = &attemptState{}
		t.states[k] = state
	}

	// A fresh window starts when there is none, or the current one elapsed.
	if state.firstFailureAt.IsZero() || now.After(state.firstFailureAt.Add(t.failureWindow)) {
		state.failures = 0
		state.firstFailureAt = now
		state.blockedUntil = time.Time{}
	}

	state.failures++
	if state.failures >= t.maxAttempts {
		state.blockedUntil = now.Add(t.blockDuration)
	}
}

// RecordSuccess wipes all state for the key.
func (t *Throttle) RecordSuccess(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, normalizeKey(key))
}

// Prune drops entries that can no longer influence a decision: expired
// lockouts and stale counting windows. Identities that failed once and never
// came back would otherwise sit in the map forever.
func (t *Throttle) Prune() int {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for k, state := range t.states {
		if !state.blockedUntil.IsZero() {
			if !now.Before(state.blockedUntil) {
				delete(t.states, k)
				removed++
			}
			continue
		}
		if now.After(state.firstFailureAt.Add(t.failureWindow)) {
			delete(t.states, k)
			removed++
		}
	}
	return removed
}

// Sweep prunes on every tick in a background goroutine. The returned stop
// function ends it.
func (t *Throttle) Sweep(interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				t.Prune()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
