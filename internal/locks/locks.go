package locks

import "sync"

// Registry hands out one mutex per key so that reconciliation and cleanup
// for the same batch never overlap. Entries are created lazily and live
// until Drop is called for the key.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

func (r *Registry) lockFor(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}

// WithLock runs fn while holding the key's mutex. The mutex is released on
// every exit path, panics included.
func (r *Registry) WithLock(key string, fn func() error) error {
	lock := r.lockFor(key)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// Drop removes the key's entry. Only safe once nothing can reference the
// key again, i.e. after the batch row is deleted.
func (r *Registry) Drop(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, key)
}

// Len reports the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
