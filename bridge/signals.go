package bridge

import "sync"

// Delegate receives the signals addressed to one module instance.
type Delegate func(name string)

// SignalRegistry routes signals raised by the host binding to the module
// instance that owns them. It is an explicit object owned by the caller; the
// generated C++ holds one per process.
type SignalRegistry struct {
	mu        sync.RWMutex
	delegates map[uintptr]Delegate
}

func NewSignalRegistry() *SignalRegistry {
	return &SignalRegistry{delegates: map[uintptr]Delegate{}}
}

// Register installs d for id, replacing any previous delegate.
func (r *SignalRegistry) Register(id uintptr, d Delegate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delegates[id] = d
}

// Unregister removes the delegate of id. Unknown ids are ignored.
func (r *SignalRegistry) Unregister(id uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.delegates, id)
}

// Emit delivers name to the delegate of id and reports whether one existed.
// The delegate runs outside the registry lock.
func (r *SignalRegistry) Emit(id uintptr, name string) bool {
	r.mu.RLock()
	d, ok := r.delegates[id]
	r.mu.RUnlock()
	if !ok {
		log.Debugf("no delegate for module %#x, dropping %s", id, name)
		return false
	}
	d(name)
	return true
}
