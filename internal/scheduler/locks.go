package scheduler

import "sync"

// LedgerWriterLock is the lock every ledger-mutating path must hold. The
// scheduled execution job and manual triggers share it, so at most one
// decision batch touches the ledger at a time.
const LedgerWriterLock = "ledger-writer"

// LockRegistry hands out named mutexes. Locks are created on first use and
// live for the process lifetime.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*sync.Mutex)}
}

func (r *LockRegistry) get(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.locks[name]; ok {
		return l
	}
	l := &sync.Mutex{}
	r.locks[name] = l
	return l
}

// Acquire blocks until the named lock is held and returns its release func.
func (r *LockRegistry) Acquire(name string) func() {
	l := r.get(name)
	l.Lock()
	return l.Unlock
}

// TryAcquire attempts the named lock without blocking. The release func is
// nil when the lock is already held elsewhere.
func (r *LockRegistry) TryAcquire(name string) (func(), bool) {
	l := r.get(name)
	if !l.TryLock() {
		return nil, false
	}
	return l.Unlock, true
}
