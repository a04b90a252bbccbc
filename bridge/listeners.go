// Package bridge models the runtime contracts of the generated C++ bridge:
// listener bookkeeping, signal delegation, the worker pool and teardown. The
// emitted TurboModule classes follow the same rules.
package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("craby.bridge")

// ListenerID identifies one subscription. IDs increase monotonically per
// registry and are never reused.
type ListenerID uint64

// Listener is a JS callback subscribed to a signal.
type Listener func()

// ListenerRegistry holds the listeners of one module instance, keyed by
// signal name.
type ListenerRegistry struct {
	next atomic.Uint64

	mu      sync.Mutex
	byEvent map[string]map[ListenerID]Listener
}

func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{byEvent: map[string]map[ListenerID]Listener{}}
}

// Subscribe adds fn under event. The returned unsubscribe function removes
// exactly this subscription and may be called any number of times.
func (r *ListenerRegistry) Subscribe(event string, fn Listener) (ListenerID, func()) {
	id := ListenerID(r.next.Add(1) - 1)

	r.mu.Lock()
	listeners, ok := r.byEvent[event]
	if !ok {
		listeners = map[ListenerID]Listener{}
		r.byEvent[event] = listeners
	}
	listeners[id] = fn
	r.mu.Unlock()

	return id, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if listeners, ok := r.byEvent[event]; ok {
			delete(listeners, id)
		}
	}
}

// Emit invokes every listener of event and returns how many ran. Listeners
// are snapshotted under the lock and called outside it, so a listener may
// subscribe or unsubscribe. A panicking listener does not stop the others.
func (r *ListenerRegistry) Emit(event string) int {
	r.mu.Lock()
	snapshot := make([]Listener, 0, len(r.byEvent[event]))
	for _, fn := range r.byEvent[event] {
		snapshot = append(snapshot, fn)
	}
	r.mu.Unlock()

	for _, fn := range snapshot {
		invokeListener(event, fn)
	}
	return len(snapshot)
}

func invokeListener(event string, fn Listener) {
	defer func() {
		if r := recover(); r != nil {
			log.Warningf("listener of %s panicked: %v", event, r)
		}
	}()
	fn()
}

// Len returns the number of listeners subscribed to event.
func (r *ListenerRegistry) Len(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byEvent[event])
}

// Clear drops every listener.
func (r *ListenerRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.byEvent)
}
