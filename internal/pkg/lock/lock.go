// Package lock provides exclusive, expiring locks for batch operations and a
// keyed mutex for serializing writes to a single record.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockHeld is returned by TryAcquire when another owner holds the key.
var ErrLockHeld = errors.New("lock is held by another owner")

// Release frees a lock obtained from TryAcquire. Releasing twice is a no-op.
type Release func(ctx context.Context) error

// Locker hands out non-blocking, expiring locks. A held lock is renewed in
// the background until released, so ttl bounds how long a crashed owner
// blocks the key rather than how long a live owner may work.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// keepAlive calls renew every ttl/3 until stop is called or renew reports
// that the lock was lost. stop waits for the renewer to exit.
func keepAlive(ttl time.Duration, renew func() bool) (stop func()) {
	interval := ttl / 3
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if !renew() {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-finished
	}
}
