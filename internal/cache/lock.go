package cache

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Locker takes shared (read) or exclusive (write) advisory locks on a
// per-entry lockfile. Per spec §4.6: timeout 5s, non-blocking with graceful
// degradation — if the lock cannot be taken in time, the returned bool is
// true ("degraded": proceed without cache-write safety) and err is nil, not
// a hard failure.
type Locker interface {
	Lock(dir string, timeout time.Duration) (unlock func(), degraded bool, err error)
	RLock(dir string, timeout time.Duration) (unlock func(), degraded bool, err error)
}

// FlockLocker takes real OS advisory locks via golang.org/x/sys/unix.Flock
// on a `<dir>.lock` sibling file, polling at a fixed interval until timeout.
type FlockLocker struct {
	pollInterval time.Duration
}

// NewFlockLocker returns the production Locker.
func NewFlockLocker() *FlockLocker {
	return &FlockLocker{pollInterval: 50 * time.Millisecond}
}

func (l *FlockLocker) Lock(dir string, timeout time.Duration) (func(), bool, error) {
	return l.acquire(dir, timeout, unix.LOCK_EX)
}

func (l *FlockLocker) RLock(dir string, timeout time.Duration) (func(), bool, error) {
	return l.acquire(dir, timeout, unix.LOCK_SH)
}

func (l *FlockLocker) acquire(dir string, timeout time.Duration, how int) (func(), bool, error) {
	path := dir + ".lock"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return func() {}, true, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return func() {}, true, nil
	}

	deadline := time.Now().Add(timeout)
	for {
		err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB)
		if err == nil {
			return func() {
				_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
				_ = f.Close()
			}, false, nil
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			return func() {}, true, nil
		}
		time.Sleep(l.pollInterval)
	}
}

// MemLocker is an in-process Locker for tests running against an
// afero.MemMapFs, where there is no real file descriptor to flock.
type MemLocker struct {
	mu      sync.Mutex
	held    map[string]bool
}

// NewMemLocker returns a test-only Locker backed by a Go mutex per dir.
func NewMemLocker() *MemLocker {
	return &MemLocker{held: map[string]bool{}}
}

func (l *MemLocker) Lock(dir string, timeout time.Duration) (func(), bool, error) {
	return l.acquire(dir, timeout)
}

func (l *MemLocker) RLock(dir string, timeout time.Duration) (func(), bool, error) {
	return l.acquire(dir, timeout)
}

func (l *MemLocker) acquire(dir string, timeout time.Duration) (func(), bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		l.mu.Lock()
		if !l.held[dir] {
			l.held[dir] = true
			l.mu.Unlock()
			return func() {
				l.mu.Lock()
				delete(l.held, dir)
				l.mu.Unlock()
			}, false, nil
		}
		l.mu.Unlock()
		if time.Now().After(deadline) {
			return func() {}, true, nil
		}
		time.Sleep(time.Millisecond)
	}
}
