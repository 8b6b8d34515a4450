package session

import (
	"context"
	"sync"

	"github.com/ppiankov/claimcheck/internal/metrics"
)

// Locker hands out one exclusive lock per key. Waiters on the same key are
// admitted in arrival order; different keys never contend. Idle keys are
// released so the map does not grow with every session ever seen.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	token chan struct{}
	refs  int
}

// NewLocker creates an empty locker
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free or ctx ends. The returned func releases the
// lock and is safe to call more than once.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{token: make(chan struct{}, 1)}
		kl.token <- struct{}{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()
	metrics.SessionsActive.Inc()

	select {
	case <-kl.token:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			kl.token <- struct{}{}
			l.release(key, kl)
		})
	}, nil
}

func (l *Locker) release(key string, kl *keyLock) {
	metrics.SessionsActive.Dec()
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// Held returns the number of keys with a holder or waiter
func (l *Locker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
