package morestickers

import (
	"context"
	"sync"
)

// Release hands the Mutex to the next waiter. Calling it more than once has no
// further effect.
type Release func()

// Mutex serializes asynchronous critical sections. Holders are granted the
// lock strictly in the order Lock was called. There is no timeout: a holder
// that never calls its Release blocks every later waiter forever.
//
// The zero value is an unlocked Mutex.
type Mutex struct {
	mu sync.Mutex
	// current is closed when the most recent holder releases. nil means
	// nobody has ever locked.
	current chan struct{}
}

// Lock joins the queue and returns a channel that delivers this caller's
// Release once every earlier caller has released.
func (m *Mutex) Lock() <-chan Release {
	next := make(chan struct{})

	m.mu.Lock()
	prev := m.current
	m.current = next
	m.mu.Unlock()

	var once sync.Once
	release := Release(func() {
		once.Do(func() { close(next) })
	})

	grant := make(chan Release, 1)
	if prev == nil {
		grant <- release
		return grant
	}
	go func() {
		<-prev
		grant <- release
	}()
	return grant
}

// Acquire blocks until the lock is granted or ctx is done. A waiter that
// gives up keeps its place in the queue and passes the lock on as soon as it
// is granted, so later waiters still proceed in order.
func (m *Mutex) Acquire(ctx context.Context) (Release, error) {
	grant := m.Lock()
	select {
	case release := <-grant:
		return release, nil
	case <-ctx.Done():
		go func() {
			release := <-grant
			release()
		}()
		return nil, ctx.Err()
	}
}

// Do runs fn while holding the lock.
func (m *Mutex) Do(ctx context.Context, fn func() error) error {
	release, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
