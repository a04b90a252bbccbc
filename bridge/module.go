package bridge

import (
	"fmt"
	"slices"
	"sync/atomic"
)

// Module is one live TurboModule instance: its listeners, its pool and its
// registration with the signal registry.
type Module struct {
	id        uintptr
	signals   []string
	registry  *SignalRegistry
	pool      *WorkerPool
	listeners *ListenerRegistry

	invalidated atomic.Bool
}

// NewModule wires a module instance. A module with signals registers its
// delegate with registry immediately.
func NewModule(id uintptr, signals []string, registry *SignalRegistry, pool *WorkerPool) *Module {
	m := &Module{
		id:        id,
		signals:   signals,
		registry:  registry,
		pool:      pool,
		listeners: NewListenerRegistry(),
	}
	if len(signals) > 0 {
		registry.Register(id, m.emit)
	}
	return m
}

// ID returns the instance id passed to the host binding.
func (m *Module) ID() uintptr { return m.id }

// Subscribe adds a listener for a declared signal.
func (m *Module) Subscribe(signal string, fn Listener) (func(), error) {
	if !slices.Contains(m.signals, signal) {
		return nil, fmt.Errorf("unknown signal %q", signal)
	}
	if m.invalidated.Load() {
		return nil, fmt.Errorf("module %#x is invalidated", m.id)
	}
	_, unsubscribe := m.listeners.Subscribe(signal, fn)
	return unsubscribe, nil
}

// Listeners exposes the listener registry of the instance.
func (m *Module) Listeners() *ListenerRegistry { return m.listeners }

// Call runs a method body on the pool. It reports false once the module
// has been invalidated.
func (m *Module) Call(task func()) bool {
	if m.invalidated.Load() {
		return false
	}
	return m.pool.Enqueue(task)
}

// emit is the delegate handed to the signal registry. Listener invocation
// is deferred to the pool, mirroring the hop to the JS thread.
func (m *Module) emit(name string) {
	if m.invalidated.Load() {
		return
	}
	m.pool.Enqueue(func() { m.listeners.Emit(name) })
}

// Invalidate tears the instance down exactly once: listeners are cleared,
// the delegate is unregistered and the pool is shut down. It reports
// whether this call performed the teardown.
func (m *Module) Invalidate() bool {
	if !m.invalidated.CompareAndSwap(false, true) {
		return false
	}
	m.listeners.Clear()
	if len(m.signals) > 0 {
		m.registry.Unregister(m.id)
	}
	m.pool.Shutdown()
	log.Debugf("module %#x invalidated", m.id)
	return true
}
