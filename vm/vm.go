package vm

import (
	"sync"

	"github.com/PuraLingua/pura-lingua-sub001/object"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

// Resource is a handle-table entry for a native resource the runtime
// manages on behalf of managed code: a loaded dynamic library, an open
// file descriptor, and so on (§C.4). The corpus has no dlopen wrapper
// to ground a concrete loader on, so ResourceTable only owns the slab
// and lets a caller plug in the close behavior that makes sense for
// the resource kind.
type Resource struct {
	Kind  string
	Value uintptr
	Close func() error
}

// ResourceTable is an append-mostly slab of open native resources,
// indexed by the handle managed code passes back on every call.
// Grounded on the original's dynamic-library-handle slab (opened once,
// looked up by index), reimplemented here as a plain mutex-guarded Go
// slice since no dlopen wrapper exists anywhere in the retrieval
// corpus to ground an actual loader on (see DESIGN.md).
type ResourceTable struct {
	mu        sync.Mutex
	resources []*Resource
}

func NewResourceTable() *ResourceTable { return &ResourceTable{} }

// Open appends r and returns its handle.
func (t *ResourceTable) Open(r *Resource) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resources = append(t.resources, r)
	return uint32(len(t.resources) - 1)
}

func (t *ResourceTable) Get(handle uint32) (*Resource, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(handle) >= len(t.resources) || t.resources[handle] == nil {
		return nil, newError(UnknownResource, "handle %d", handle)
	}
	return t.resources[handle], nil
}

// Close runs the resource's Close hook, if any, and forgets it.
func (t *ResourceTable) Close(handle uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(handle) >= len(t.resources) || t.resources[handle] == nil {
		return newError(UnknownResource, "handle %d", handle)
	}
	r := t.resources[handle]
	t.resources[handle] = nil
	if r.Close != nil {
		return r.Close()
	}
	return nil
}

// staticEntry lazily allocates a type's static field block exactly
// once. It does not run the type's static constructor.
type staticEntry struct {
	once sync.Once
	ref  object.ManagedReference
	err  error
}

// VM is the top-level runtime: the assembly manager every CPU resolves
// types through, the static field storage shared by every CPU, and the
// native resource table (§4, §6).
type VM struct {
	mgr *typesystem.AssemblyManager

	resources *ResourceTable

	cpusMu sync.RWMutex
	cpus   []*CPU

	staticsMu sync.Mutex
	statics   map[*typesystem.MethodTable]*staticEntry

	registerSize int
	maxStack     int
}

// Config bundles the per-CPU limits a VM hands to every CPU it spawns.
// Shaped the same as config.CPUConfig, but kept as its own type here:
// vm is a leaf package with no dependency on config, and a caller
// wiring config.CPUConfig in copies the two fields across at the
// boundary.
type Config struct {
	RegisterCount int
	MaxCallDepth  int
}

// DefaultConfig matches the file format's 8-bit register-index field
// (register count 255) and a conservative call-depth ceiling.
func DefaultConfig() Config {
	return Config{RegisterCount: 255, MaxCallDepth: 4096}
}

func NewVM(mgr *typesystem.AssemblyManager, cfg Config) *VM {
	return &VM{
		mgr:          mgr,
		resources:    NewResourceTable(),
		statics:      make(map[*typesystem.MethodTable]*staticEntry),
		registerSize: cfg.RegisterCount,
		maxStack:     cfg.MaxCallDepth,
	}
}

func (v *VM) Manager() *typesystem.AssemblyManager { return v.mgr }
func (v *VM) Resources() *ResourceTable            { return v.resources }

// NewCPU spawns a CPU bound to this VM and registers it so the garbage
// collector can enumerate every thread's roots.
func (v *VM) NewCPU() *CPU {
	c := NewCPU(v, v.registerSize, v.maxStack)
	v.cpusMu.Lock()
	v.cpus = append(v.cpus, c)
	v.cpusMu.Unlock()
	return c
}

// CPUs returns every CPU this VM has spawned, the call-stack roots the
// garbage collector's mark phase walks (§4.7).
func (v *VM) CPUs() []*CPU {
	v.cpusMu.RLock()
	defer v.cpusMu.RUnlock()
	out := make([]*CPU, len(v.cpus))
	copy(out, v.cpus)
	return out
}

// StaticStorage returns table's static field block, allocating it
// zero-filled on first use. It does not run the owning type's static
// constructor.
func (v *VM) StaticStorage(table *typesystem.MethodTable) (object.ManagedReference, error) {
	v.staticsMu.Lock()
	e, ok := v.statics[table]
	if !ok {
		e = &staticEntry{}
		v.statics[table] = e
	}
	v.staticsMu.Unlock()

	e.once.Do(func() {
		e.ref, e.err = object.CommonAlloc(v.mgr, table, true)
	})
	return e.ref, e.err
}

// StaticRoots returns the static field block of every type that has
// been touched so far, a permanent root set for the garbage
// collector's mark phase (§4.7) alongside each CPU's call-stack roots.
func (v *VM) StaticRoots() []object.ManagedReference {
	v.staticsMu.Lock()
	defer v.staticsMu.Unlock()
	out := make([]object.ManagedReference, 0, len(v.statics))
	for _, e := range v.statics {
		if e.err == nil {
			out = append(out, e.ref)
		}
	}
	return out
}
