package object

import (
	"unsafe"

	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

// ManagedReference is a nullable pointer to a heap object (§3
// "ManagedReference"). The zero value is the null reference.
type ManagedReference struct {
	ptr unsafe.Pointer
}

// Null is the canonical null managed reference.
var Null = ManagedReference{}

func (r ManagedReference) IsNull() bool { return r.ptr == nil }

// Equal reports whether two references point at the same object
// (reference equality, not structural equality).
func (r ManagedReference) Equal(o ManagedReference) bool { return r.ptr == o.ptr }

func (r ManagedReference) header() (*rawHeader, error) {
	if r.IsNull() {
		return nil, newError(NullReference, "")
	}
	return headerAt(r.ptr), nil
}

// MethodTable returns the object's method table, used by virtual and
// interface dispatch and by the garbage collector to walk reference
// fields.
func (r ManagedReference) MethodTable() (*typesystem.MethodTable, error) {
	h, err := r.header()
	if err != nil {
		return nil, err
	}
	return h.table, nil
}

// Header exposes the mark bit for the garbage collector's mark and
// sweep phases (§4.7).
func (r ManagedReference) Header() (ObjectHeader, error) {
	h, err := r.header()
	if err != nil {
		return 0, err
	}
	return h.header, nil
}

// SetMarked flips the object's mark bit, used by the GC's mark phase.
func (r ManagedReference) SetMarked(marked bool) error {
	h, err := r.header()
	if err != nil {
		return err
	}
	if marked {
		h.header |= headerMarked
	} else {
		h.header &^= headerMarked
	}
	return nil
}

// dataPtr returns a pointer to the byte immediately following the
// header, where field or element storage begins.
func (r ManagedReference) dataPtr() unsafe.Pointer {
	return unsafe.Add(r.ptr, dataOffset)
}

// alloc reserves a zeroed block of totalSize bytes (header included),
// writes the header and method table pointer, and returns a reference
// to it. The backing array is an ordinary Go allocation: Go's runtime
// GC keeps it alive for as long as the returned ManagedReference (or
// anything derived from it) is reachable, while this runtime's own
// mark-and-sweep GC (package gc) tracks liveness independently through
// the ObjectHeader mark bit and the CPU's memory-record list, exactly
// as the spec describes. Sweeping an object means dropping the last Go
// pointer to it, at which point the host GC reclaims the memory; the
// managed GC never calls into allocator/free primitives directly.
func alloc(totalSize uintptr, table *typesystem.MethodTable, isStatic bool) (ManagedReference, error) {
	if totalSize > 1<<34 {
		return ManagedReference{}, newError(AllocationTooLarge, "%d bytes", totalSize)
	}

	buf := make([]byte, totalSize)
	ptr := unsafe.Pointer(&buf[0])

	h := headerAt(ptr)
	h.header = NewObjectHeader(isStatic)
	h.table = table

	return ManagedReference{ptr: ptr}, nil
}

// CommonAlloc allocates a plain object (a class instance, or a type's
// static field block) sized to table's instance or static layout
// (§4.5, §4.4 mirroring `ManagedReference::common_alloc`).
func CommonAlloc(mgr *typesystem.AssemblyManager, table *typesystem.MethodTable, isStatic bool) (ManagedReference, error) {
	var layout *typesystem.Layout
	var err error
	if isStatic {
		layout, err = table.StaticLayout(mgr)
	} else {
		layout, err = table.InstanceLayout(mgr)
	}
	if err != nil {
		return ManagedReference{}, err
	}

	return alloc(dataOffset+layout.Size, table, isStatic)
}

// BoxStruct allocates a class-shaped box around a copy of a struct
// value's raw bytes, used when a value type needs to be passed where a
// reference type is expected (boxing).
func BoxStruct(boxTable *typesystem.MethodTable, structSize uintptr, src unsafe.Pointer) (ManagedReference, error) {
	r, err := alloc(dataOffset+structSize, boxTable, false)
	if err != nil {
		return ManagedReference{}, err
	}
	if structSize > 0 {
		dst := r.dataPtr()
		copy(unsafe.Slice((*byte)(dst), structSize), unsafe.Slice((*byte)(src), structSize))
	}
	return r, nil
}

// PointerBits returns r's address as a raw 64-bit pattern, the
// encoding a reference-typed field or array element is stored as
// inside another object's byte storage (null encodes as zero). The
// target stays reachable to Go's own garbage collector independently
// of this encoding, through the CPU.MemoryRecords list every
// allocation is registered in — that Go-typed list, not the raw bytes
// field storage holds, is what this runtime relies on to keep objects
// alive between this runtime's own mark-and-sweep cycles.
func PointerBits(r ManagedReference) uint64 { return uint64(uintptr(r.ptr)) }

// FromPointerBits reconstructs the ManagedReference PointerBits
// encoded, for reading a reference-typed field or array element back
// out of raw storage.
func FromPointerBits(bits uint64) ManagedReference {
	return ManagedReference{ptr: unsafe.Pointer(uintptr(bits))}
}

// UnboxBits reads the first 8 bytes of a boxed value type's storage,
// the inverse of BoxStruct for value types small enough to live in a
// single register cell.
func UnboxBits(r ManagedReference) (uint64, error) {
	if _, err := r.header(); err != nil {
		return 0, err
	}
	return *(*uint64)(r.dataPtr()), nil
}

// FieldAccessor resolves declared-field offsets for a plain object
// reference (§3 "FieldAccessor").
type FieldAccessor struct {
	ref    ManagedReference
	layout *typesystem.Layout
}

// NewFieldAccessor views r as a plain field-bearing object, computing
// (or reusing the cached) instance layout for its runtime type.
func NewFieldAccessor(mgr *typesystem.AssemblyManager, r ManagedReference) (*FieldAccessor, error) {
	table, err := r.MethodTable()
	if err != nil {
		return nil, err
	}
	layout, err := table.InstanceLayout(mgr)
	if err != nil {
		return nil, err
	}
	return &FieldAccessor{ref: r, layout: layout}, nil
}

// NewStaticFieldAccessor views r as a type's static field block,
// allocated by CommonAlloc(mgr, table, true), resolving offsets
// against the type's static layout rather than its instance layout.
func NewStaticFieldAccessor(mgr *typesystem.AssemblyManager, r ManagedReference) (*FieldAccessor, error) {
	table, err := r.MethodTable()
	if err != nil {
		return nil, err
	}
	layout, err := table.StaticLayout(mgr)
	if err != nil {
		return nil, err
	}
	return &FieldAccessor{ref: r, layout: layout}, nil
}

// Field returns a pointer to f's storage within the object.
func (a *FieldAccessor) Field(f *typesystem.Field) (unsafe.Pointer, error) {
	off, ok := a.layout.Offsets[f]
	if !ok {
		return nil, newError(IndexOutOfRange, "field %s is not part of this object's layout", f.Name)
	}
	return unsafe.Add(a.ref.dataPtr(), off), nil
}
