package typesystem

import (
	"sync"
	"sync/atomic"
)

// PointerSize is the size, in bytes, of a ManagedReference on the
// target platform this runtime is built for. The object model only
// ever targets 64-bit hosts (§4.5), so this is a constant rather than
// a runtime.GOARCH switch.
const PointerSize uintptr = 8

// Layout is the computed field placement for either the instance or
// static storage of a class or struct (§4.5). It is produced once per
// MethodTable per storage kind and cached; recomputing it is only ever
// an optimization opportunity, never a correctness requirement, since
// the inputs (Fields, their resolved Types) do not change after the
// owning type finishes loading.
type Layout struct {
	Size    uintptr
	Align   uintptr
	Offsets map[*Field]uintptr
}

// MethodTable is the vtable plus field-layout cache shared by every
// object of a class or struct (§4.4 "MethodTable"). Go's garbage
// collector makes the Rust original's NonNull back-references
// unnecessary: MethodTable simply holds a normal pointer to its owning
// Class or Struct, and the owner holds a pointer back, with no special
// handling required to break the cycle.
type MethodTable struct {
	owner TypeHandle

	mu      sync.Mutex
	methods []*Method
	vtable  []*Method

	instanceLayout atomic.Pointer[Layout]
	staticLayout   atomic.Pointer[Layout]

	coreID    CoreTypeId
	hasCoreID bool
}

// SetCoreTypeID tags this table as belonging to one of the standard
// library's well-known types, set once by the stdlib package while it
// builds the core assembly.
func (mt *MethodTable) SetCoreTypeID(id CoreTypeId) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.coreID, mt.hasCoreID = id, true
}

// CoreTypeID reports the well-known id this table was tagged with, if
// any (§4.9). Object accessors use this to check an object's runtime
// type without resolving a TypeRef.
func (mt *MethodTable) CoreTypeID() (CoreTypeId, bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return mt.coreID, mt.hasCoreID
}

// NewMethodTable builds a vtable for a freshly-defined type. base is
// the parent's method table, or nil for a type with no base (System::
// Object, every struct, and a class whose parent is not yet loaded;
// see baseTableOf). methods are
// the type's own declared methods, in declaration order.
//
// Slot assignment: a virtual, non-override method gets a new slot
// appended to the inherited vtable. A method marked override replaces
// the first inherited slot with a matching name, which stands in for
// the full cross-assembly method-id protocol (§4.9) that a single
// in-process runtime has no need to reconstruct at load time.
func NewMethodTable(owner TypeHandle, base *MethodTable, methods []*Method) *MethodTable {
	mt := &MethodTable{owner: owner, methods: methods}

	if base != nil {
		base.mu.Lock()
		mt.vtable = append([]*Method(nil), base.vtable...)
		base.mu.Unlock()
	}

	for _, m := range methods {
		m.table = mt
		switch {
		case m.Attr.IsOverride():
			slot := mt.findSlotByName(m.Name)
			if slot < 0 {
				slot = len(mt.vtable)
				mt.vtable = append(mt.vtable, m)
			} else {
				mt.vtable[slot] = m
			}
			m.slot = slot
		case m.IsVirtual():
			m.slot = len(mt.vtable)
			mt.vtable = append(mt.vtable, m)
		default:
			m.slot = -1
		}
	}

	return mt
}

func (mt *MethodTable) findSlotByName(name string) int {
	for i, m := range mt.vtable {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// Owner returns the class or struct this table belongs to.
func (mt *MethodTable) Owner() TypeHandle { return mt.owner }

// Methods returns every method declared directly on the owning type,
// virtual or not.
func (mt *MethodTable) Methods() []*Method {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return mt.methods
}

// Virtual resolves a vtable slot index to the most-derived method
// installed there, used by the CPU's call-virtual instruction (§4.6).
func (mt *MethodTable) Virtual(slot int) (*Method, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if slot < 0 || slot >= len(mt.vtable) {
		return nil, newError(IndexOutOfRange, "vtable has %d slots, slot %d requested", len(mt.vtable), slot)
	}
	return mt.vtable[slot], nil
}

// FindVirtual resolves a vtable slot by its method name, used by the
// garbage collector to locate a type's destructor slot (§4.7) without
// the caller having to know its numeric index.
func (mt *MethodTable) FindVirtual(name string) (*Method, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	for _, m := range mt.vtable {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, newError(IndexOutOfRange, "no virtual method named %s", name)
}

// VtableLen reports the number of virtual slots, inherited and own.
func (mt *MethodTable) VtableLen() int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return len(mt.vtable)
}

// InstanceLayout computes (or returns the cached) field layout for
// objects of this type, walking the inheritance chain so that base
// class fields occupy the lowest offsets (§4.5).
func (mt *MethodTable) InstanceLayout(mgr *AssemblyManager) (*Layout, error) {
	if l := mt.instanceLayout.Load(); l != nil {
		return l, nil
	}

	fields, err := mt.instanceFields(mgr)
	if err != nil {
		return nil, err
	}

	l, err := computeLayout(mgr, fields)
	if err != nil {
		return nil, err
	}

	if mt.instanceLayout.CompareAndSwap(nil, l) {
		return l, nil
	}
	return mt.instanceLayout.Load(), nil
}

// StaticLayout computes (or returns the cached) layout for this type's
// static fields, which live in one process-wide block per type rather
// than per object.
func (mt *MethodTable) StaticLayout(mgr *AssemblyManager) (*Layout, error) {
	if l := mt.staticLayout.Load(); l != nil {
		return l, nil
	}

	var statics []*Field
	mt.mu.Lock()
	for _, f := range mt.methodsFields() {
		if f.IsStatic() {
			statics = append(statics, f)
		}
	}
	mt.mu.Unlock()

	l, err := computeLayout(mgr, statics)
	if err != nil {
		return nil, err
	}

	if mt.staticLayout.CompareAndSwap(nil, l) {
		return l, nil
	}
	return mt.staticLayout.Load(), nil
}

// InstanceFields returns every non-static field this type's objects
// carry, base class fields first, the same traversal InstanceLayout
// uses to compute offsets. Exposed so the garbage collector can walk
// an object's reference-typed fields without recomputing the chain
// itself.
func (mt *MethodTable) InstanceFields(mgr *AssemblyManager) ([]*Field, error) {
	return mt.instanceFields(mgr)
}

// instanceFields walks from the root of the inheritance chain down to
// this type, collecting non-static fields in base-to-derived order.
func (mt *MethodTable) instanceFields(mgr *AssemblyManager) ([]*Field, error) {
	var chain []*MethodTable
	for cur := mt; cur != nil; cur = cur.parentTable(mgr) {
		chain = append(chain, cur)
	}

	var fields []*Field
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].methodsFields() {
			if !f.IsStatic() {
				fields = append(fields, f)
			}
		}
	}
	return fields, nil
}

func (mt *MethodTable) methodsFields() []*Field {
	switch mt.owner.kind {
	case HandleClass:
		return mt.owner.class.Fields
	case HandleStruct:
		return mt.owner.structure.Fields
	default:
		return nil
	}
}

func (mt *MethodTable) parentTable(mgr *AssemblyManager) *MethodTable {
	switch mt.owner.kind {
	case HandleClass:
		if mt.owner.class.Parent == nil {
			return nil
		}
		h, err := mt.owner.class.Parent.Resolve(mgr)
		if err != nil {
			return nil
		}
		return h.MethodTable()
	default:
		return nil
	}
}

// computeLayout lays fields out sequentially, aligning each to the
// natural alignment of its own type and padding the overall size to
// the layout's own alignment, matching the host C ABI's struct layout
// rules (§4.5, tested against scenario S1).
func computeLayout(mgr *AssemblyManager, fields []*Field) (*Layout, error) {
	l := &Layout{Offsets: make(map[*Field]uintptr, len(fields)), Align: 1}

	var cursor uintptr
	for _, f := range fields {
		handle, err := f.Type.Resolve(mgr)
		if err != nil {
			return nil, wrapLayout(err, "field %s", f.Name)
		}

		size, align, err := SizeAlign(mgr, handle)
		if err != nil {
			return nil, wrapLayout(err, "field %s", f.Name)
		}

		cursor = alignUp(cursor, align)
		l.Offsets[f] = cursor
		cursor += size
		if align > l.Align {
			l.Align = align
		}
	}

	l.Size = alignUp(cursor, l.Align)
	return l, nil
}

func alignUp(v, align uintptr) uintptr {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

func wrapLayout(err error, format string, args ...any) *Error {
	return &Error{Kind: LayoutOverflow, Message: newError(LayoutOverflow, format, args...).Message, Err: err}
}

// SizeAlign reports the size and alignment a value of handle occupies
// when embedded as a field (§4.5). Reference types (classes) are
// always pointer-sized regardless of their own instance layout; value
// types (structs) either carry an intrinsic primitive size (for the
// standard library's Int32/Boolean/... leaves) or are computed
// recursively from their own fields.
func SizeAlign(mgr *AssemblyManager, h TypeHandle) (size, align uintptr, err error) {
	switch h.kind {
	case HandleClass, HandleInterface:
		return PointerSize, PointerSize, nil
	case HandleStruct:
		s := h.structure
		if s.Primitive {
			return s.PrimitiveSize, s.PrimitiveAlign, nil
		}
		l, err := s.table.InstanceLayout(mgr)
		if err != nil {
			return 0, 0, err
		}
		if l.Align == 0 {
			return 0, 1, nil
		}
		return l.Size, l.Align, nil
	default:
		return 0, 0, newError(LayoutOverflow, "unhandled handle kind %s", h.kind)
	}
}
