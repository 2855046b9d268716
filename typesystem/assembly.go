package typesystem

import "sync"

// CoreTypeId names one of the standard-library types the runtime needs
// to refer to independently of any user assembly (§4.9). The ordering
// is a wire-level contract shared by every component that needs to
// recognize a core type by identity (object accessors, the GC, the
// foreign-call marshaler) without resolving a TypeRef, so it lives
// here rather than inside the stdlib package that builds the actual
// Class/Struct objects at these positions.
type CoreTypeId uint32

const (
	CoreObject CoreTypeId = iota
	CoreValueType

	CoreVoid

	CoreNullable1

	CoreBoolean

	CoreUInt8
	CoreUInt16
	CoreUInt32
	CoreUInt64
	CoreUSize

	CoreInt8
	CoreInt16
	CoreInt32
	CoreInt64
	CoreISize

	CoreChar

	CorePointer

	CoreNonPurusCallConfiguration
	CoreNonPurusCallType

	CoreDynamicLibrary

	CoreArray1
	CoreString
	CoreLargeString

	CoreException
	CoreInvalidEnumException
	CoreWin32Exception
	CoreErrnoException
	CoreDlErrorException
)

// CoreAssemblyName is the reserved assembly name the manager looks
// for when it needs the standard library (§4.9).
const CoreAssemblyName = "!"

// Assembly is a loaded collection of type definitions (§3 "Assembly").
// Types are appended once at load time and never removed, so readers
// only need to coordinate with writers, never with each other.
type Assembly struct {
	manager *AssemblyManager
	name    string
	isCore  bool

	mu    sync.RWMutex
	types []TypeHandle
}

// NewAssembly creates an assembly with no types. Call AssemblyManager.Add
// to register it before resolving any TypeRef against it.
func NewAssembly(name string, isCore bool) *Assembly {
	return &Assembly{name: name, isCore: isCore}
}

func (a *Assembly) Name() string   { return a.name }
func (a *Assembly) IsCore() bool   { return a.isCore }
func (a *Assembly) Manager() *AssemblyManager { return a.manager }

// AddType appends a freshly-loaded type and returns its index within
// this assembly.
func (a *Assembly) AddType(h TypeHandle) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := uint32(len(a.types))
	a.types = append(a.types, h)
	return idx
}

// GetType looks up a type by its assembly-local index.
func (a *Assembly) GetType(index uint32) (TypeHandle, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if int(index) >= len(a.types) {
		return TypeHandle{}, newError(IndexOutOfRange, "assembly %q has %d types, index %d requested", a.name, len(a.types), index)
	}
	return a.types[index], nil
}

// Len reports how many types are currently registered.
func (a *Assembly) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.types)
}

// AssemblyManager is the process-wide registry of loaded assemblies
// (§4.3 "AssemblyManager"): name-based lookup, TypeRef resolution, and
// the fixed mapping from CoreTypeId to the standard library's types.
// All public methods are safe for concurrent use.
type AssemblyManager struct {
	mu         sync.RWMutex
	assemblies map[string]*Assembly
	core       *Assembly
}

func NewAssemblyManager() *AssemblyManager {
	return &AssemblyManager{assemblies: make(map[string]*Assembly)}
}

// Add registers an assembly under its name. Re-registering the same
// name is an error: assemblies are meant to be loaded exactly once per
// process, matching the spec's "assemblies are never unloaded" stance.
func (m *AssemblyManager) Add(a *Assembly) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.assemblies[a.name]; exists {
		return newError(DuplicateAssembly, "assembly %q already registered", a.name)
	}

	a.manager = m
	m.assemblies[a.name] = a
	if a.isCore {
		m.core = a
	}
	return nil
}

// GetByName looks up a previously registered assembly.
func (m *AssemblyManager) GetByName(name string) (*Assembly, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assemblies[name]
	if !ok {
		return nil, newError(UnknownAssembly, "%q", name)
	}
	return a, nil
}

// Core returns the standard library assembly, if one has been
// registered yet.
func (m *AssemblyManager) Core() (*Assembly, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.core == nil {
		return nil, newError(UnknownAssembly, "core assembly not yet registered")
	}
	return m.core, nil
}

// GetCoreType resolves a CoreTypeId against the core assembly. Core
// type ids are assigned sequentially as the core assembly is built, so
// this is a direct index into its type table.
func (m *AssemblyManager) GetCoreType(id CoreTypeId) (TypeHandle, error) {
	core, err := m.Core()
	if err != nil {
		return TypeHandle{}, err
	}
	return core.GetType(uint32(id))
}

// Resolve links a TypeRef against its named assembly, instantiating a
// generic definition when the ref carries type arguments (§4.4).
func (m *AssemblyManager) Resolve(ref *TypeRef) (TypeHandle, error) {
	asm, err := m.GetByName(ref.Assembly)
	if err != nil {
		return TypeHandle{}, err
	}

	def, err := asm.GetType(ref.Index)
	if err != nil {
		return TypeHandle{}, err
	}

	if ref.Args == nil {
		return def, nil
	}

	args := make([]TypeHandle, len(ref.Args))
	for i, a := range ref.Args {
		resolved, err := a.Resolve(m)
		if err != nil {
			return TypeHandle{}, err
		}
		args[i] = resolved
	}

	switch def.kind {
	case HandleStruct:
		inst, err := def.structure.Instantiate(m, args)
		if err != nil {
			return TypeHandle{}, err
		}
		return StructHandle(inst), nil
	case HandleClass:
		inst, err := def.class.Instantiate(m, args)
		if err != nil {
			return TypeHandle{}, err
		}
		return ClassHandle(inst), nil
	default:
		return TypeHandle{}, newError(IncompatibleGenericArity, "%s is not generic", def)
	}
}
