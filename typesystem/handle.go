package typesystem

import (
	"fmt"
	"sync/atomic"
)

// Kind tags which concrete shape a TypeHandle refers to. Go has no sum
// types, so a handle is represented the same way the runtime lays it
// out in memory: a tag plus exactly one live pointer.
type HandleKind uint8

const (
	HandleClass HandleKind = iota
	HandleStruct
	HandleInterface
)

func (k HandleKind) String() string {
	switch k {
	case HandleClass:
		return "Class"
	case HandleStruct:
		return "Struct"
	case HandleInterface:
		return "Interface"
	default:
		return "HandleKind(?)"
	}
}

// TypeHandle is a resolved, loaded reference to a class, struct or
// interface (§3 "TypeHandle"). It is a small value type safe to copy
// and compare: two handles are equal iff they name the same loaded
// type object.
type TypeHandle struct {
	kind      HandleKind
	class     *Class
	structure *Struct
	iface     *Interface
}

func ClassHandle(c *Class) TypeHandle         { return TypeHandle{kind: HandleClass, class: c} }
func StructHandle(s *Struct) TypeHandle       { return TypeHandle{kind: HandleStruct, structure: s} }
func InterfaceHandle(i *Interface) TypeHandle { return TypeHandle{kind: HandleInterface, iface: i} }

func (h TypeHandle) Kind() HandleKind { return h.kind }
func (h TypeHandle) IsZero() bool     { return h.class == nil && h.structure == nil && h.iface == nil }

func (h TypeHandle) Class() (*Class, bool) {
	if h.kind != HandleClass {
		return nil, false
	}
	return h.class, true
}

func (h TypeHandle) Struct() (*Struct, bool) {
	if h.kind != HandleStruct {
		return nil, false
	}
	return h.structure, true
}

func (h TypeHandle) Interface() (*Interface, bool) {
	if h.kind != HandleInterface {
		return nil, false
	}
	return h.iface, true
}

// Name returns the declared name of the underlying type, regardless of
// its concrete kind.
func (h TypeHandle) Name() string {
	switch h.kind {
	case HandleClass:
		return h.class.name
	case HandleStruct:
		return h.structure.name
	case HandleInterface:
		return h.iface.name
	default:
		return "<invalid>"
	}
}

// MethodTable returns the vtable owned by the underlying type.
func (h TypeHandle) MethodTable() *MethodTable {
	switch h.kind {
	case HandleClass:
		return h.class.table
	case HandleStruct:
		return h.structure.table
	default:
		return nil
	}
}

func (h TypeHandle) IsValueType() bool { return h.kind == HandleStruct }

func (h TypeHandle) String() string {
	return fmt.Sprintf("%s(%s)", h.kind, h.Name())
}

// TypeRef is an unresolved, cross-assembly type reference as it
// appears in the file format before an assembly manager has linked it
// (§3 "TypeRef"). Index variant leaves Args nil; Specific variant
// carries the generic arguments to instantiate the referenced
// definition with.
type TypeRef struct {
	Assembly string
	Index    uint32
	Args     []*MaybeUnloadedTypeHandle
}

func (r *TypeRef) String() string {
	if r.Args == nil {
		return fmt.Sprintf("%s[%d]", r.Assembly, r.Index)
	}
	return fmt.Sprintf("%s[%d]<%d args>", r.Assembly, r.Index, len(r.Args))
}

// resolvedState is the payload published into a MaybeUnloadedTypeHandle
// once resolution completes. Before that, the slot holds either a
// *TypeRef or a generic parameter index under the same atomic pointer,
// tagged by loaded=false.
type resolvedState struct {
	ref       *TypeRef
	typeVar   int
	isTypeVar bool
	handle    TypeHandle
	loaded    bool
}

// MaybeUnloadedTypeHandle is a lazily-resolved type reference (§3,
// §4.3): it starts out wrapping an unresolved TypeRef and is resolved
// at most once, after which every reader observes the resolved handle.
// Resolution is published with a single atomic compare-and-swap so
// concurrent resolvers race harmlessly to the same answer.
type MaybeUnloadedTypeHandle struct {
	state atomic.Pointer[resolvedState]
}

// NewUnloaded wraps a TypeRef that has not yet been resolved.
func NewUnloaded(ref *TypeRef) *MaybeUnloadedTypeHandle {
	h := &MaybeUnloadedTypeHandle{}
	h.state.Store(&resolvedState{ref: ref})
	return h
}

// NewTypeVar wraps a reference to the index-th generic parameter of
// the enclosing type or method. It only resolves meaningfully after
// substitution during instantiation (§4.4); resolving one directly
// against an assembly manager is a programming error in the loader.
func NewTypeVar(index int) *MaybeUnloadedTypeHandle {
	h := &MaybeUnloadedTypeHandle{}
	h.state.Store(&resolvedState{typeVar: index, isTypeVar: true})
	return h
}

// TypeVarIndex reports the generic parameter index if h is an
// unsubstituted type variable reference.
func (h *MaybeUnloadedTypeHandle) TypeVarIndex() (int, bool) {
	cur := h.state.Load()
	return cur.typeVar, cur.isTypeVar
}

// NewLoaded wraps an already-resolved handle, skipping resolution
// entirely. Used for fields and parameters built directly from runtime
// objects rather than deserialized from a file.
func NewLoaded(handle TypeHandle) *MaybeUnloadedTypeHandle {
	h := &MaybeUnloadedTypeHandle{}
	h.state.Store(&resolvedState{handle: handle, loaded: true})
	return h
}

// Loaded reports whether the handle has already been resolved, without
// triggering resolution.
func (h *MaybeUnloadedTypeHandle) Loaded() bool {
	return h.state.Load().loaded
}

// Resolve returns the loaded TypeHandle, resolving it against mgr on
// first use. Resolution is idempotent and safe to call concurrently;
// resolvers that lose the publish race simply reread the winner's
// result instead of retrying resolution.
func (h *MaybeUnloadedTypeHandle) Resolve(mgr *AssemblyManager) (TypeHandle, error) {
	cur := h.state.Load()
	if cur.loaded {
		return cur.handle, nil
	}
	if cur.isTypeVar {
		return TypeHandle{}, newError(UnresolvedTypeRef, "type variable %d was never substituted", cur.typeVar)
	}

	resolved, err := mgr.Resolve(cur.ref)
	if err != nil {
		return TypeHandle{}, err
	}

	next := &resolvedState{handle: resolved, loaded: true}
	if h.state.CompareAndSwap(cur, next) {
		return resolved, nil
	}

	// Someone else published first; their answer is authoritative.
	return h.state.Load().handle, nil
}

func (h *MaybeUnloadedTypeHandle) String() string {
	cur := h.state.Load()
	if cur.loaded {
		return cur.handle.String()
	}
	return cur.ref.String()
}
