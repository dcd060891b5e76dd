// Package keylock provides mutual exclusion per key, so engine runs for one
// game day or one season never overlap while runs for different keys do.
package keylock

import (
	"context"
	"errors"
	"sync"
)

var ErrLocked = errors.New("key is locked")

// Locker hands out one lock per key. The zero value is ready to use.
type Locker[K comparable] struct {
	mu   sync.Mutex
	held map[K]chan struct{}
}

// TryLock takes the lock for key without waiting. It returns ErrLocked when
// another holder has it.
func (l *Locker[K]) TryLock(key K) (unlock func(), err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, ErrLocked
	}
	return l.acquire(key), nil
}

// Lock waits for the lock on key until it is free or ctx is done.
func (l *Locker[K]) Lock(ctx context.Context, key K) (unlock func(), err error) {
	for {
		l.mu.Lock()
		released, busy := l.held[key]
		if !busy {
			unlock := l.acquire(key)
			l.mu.Unlock()
			return unlock, nil
		}
		l.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// acquire must be called with l.mu held.
func (l *Locker[K]) acquire(key K) func() {
	if l.held == nil {
		l.held = make(map[K]chan struct{})
	}
	released := make(chan struct{})
	l.held[key] = released

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
			close(released)
		})
	}
}

// Held reports whether key is currently locked.
func (l *Locker[K]) Held(key K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, busy := l.held[key]
	return busy
}
