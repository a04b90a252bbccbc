package gen

import (
	"fmt"
	"io/fs"
	"sort"
	"sync"
)

// Artifact is a single generated file.
type Artifact struct {
	Path    string // Slash-separated, relative to the project root
	Content []byte
	// Overwrite is false for one-time scaffolds. The writer never replaces an
	// existing scaffold; it parks the new content in the scratch directory.
	Overwrite bool
}

// Generator is the interface all emitters implement.
// Each emitter renders the schema set into the files of one target (the C++
// bridge, the Rust host binding, or one platform FFI shim).
// Adding a target requires only implementing this interface and calling
// Register() in init().
type Generator interface {
	// Name returns the emitter name (e.g., "cxx", "rust", "android").
	Name() string

	// Stale lists previously generated files under fsys that this emitter
	// owns, so files of renamed or removed modules can be cleaned up. fsys is
	// rooted at the project root.
	Stale(ctx *Context, fsys fs.FS) ([]string, error)

	// Generate renders the artifacts for every schema in ctx.
	Generate(ctx *Context) ([]*Artifact, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Generator{}
)

// Register adds a generator factory to the registry.
// Typically called from init() in each generator's file.
func Register(name string, factory func() Generator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("generator %q already registered", name))
	}
	registry[name] = factory
}

// Get returns a new instance of the named generator.
func Get(name string) (Generator, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[name]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// All returns the names of all registered generators, sorted.
func All() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Order is the fixed emitter sequence of a run. The bridge comes first so
// later emitters can rely on the class and bridge symbols it defines.
var Order = []string{"cxx", "rust", "android", "ios"}

// Pipeline instantiates the emitters of Order.
func Pipeline() ([]Generator, error) {
	gens := make([]Generator, 0, len(Order))
	for _, name := range Order {
		g, ok := Get(name)
		if !ok {
			return nil, fmt.Errorf("generator %q is not registered", name)
		}
		gens = append(gens, g)
	}
	return gens, nil
}
