package object

import (
	"unsafe"

	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

// elementKindOffset holds a flag word recording whether the array's
// elements are references worth the collector recursing into, set
// once at allocation time since a method table is shared by every
// array regardless of its element type (§4.9 "System::Array`1").
const elementKindOffset = dataOffset + 8

// elementsOffset is where an array's element storage begins: the
// shared header, a usize element count, then the element-kind flag.
const elementsOffset = elementKindOffset + 8

// ArrayAccessor views a reference as a length-prefixed array of
// fixed-size elements (§3 "ArrayAccessor"). Strings reuse this exact
// layout with element size 2 (UTF-16 code units); only the method
// table distinguishes a string from a plain Char array.
type ArrayAccessor struct {
	ref         ManagedReference
	elementSize uintptr
}

// NewArrayAccessor views r as an array whose elements are elementSize
// bytes wide. The caller supplies elementSize (obtained from the
// array's element type handle via typesystem.SizeAlign) rather than
// having the accessor rediscover it, since the accessor itself has no
// way to name the element type without walking back through the
// owning assembly's generic arguments.
func NewArrayAccessor(r ManagedReference, elementSize uintptr) (*ArrayAccessor, error) {
	if r.IsNull() {
		return nil, newError(NullReference, "")
	}
	return &ArrayAccessor{ref: r, elementSize: elementSize}, nil
}

// AllocArray allocates a new array object of the given length.
// elementIsRef records whether each element slot holds a managed
// reference, so a later mark pass knows whether to recurse into the
// array's contents without having to re-resolve the element type.
func AllocArray(table *typesystem.MethodTable, elementSize uintptr, length int, elementIsRef bool) (ManagedReference, error) {
	if length < 0 {
		return ManagedReference{}, newError(IndexOutOfRange, "negative length %d", length)
	}
	total := elementsOffset + elementSize*uintptr(length)
	r, err := alloc(total, table, false)
	if err != nil {
		return ManagedReference{}, err
	}
	*(*uint64)(r.dataPtr()) = uint64(length)
	*(*uint64)(unsafe.Add(r.ptr, elementKindOffset)) = boolToWord(elementIsRef)
	return r, nil
}

func boolToWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// ElementIsRef reports whether this array's elements are managed
// references, as recorded by AllocArray.
func (a *ArrayAccessor) ElementIsRef() (bool, error) {
	if _, err := a.ref.header(); err != nil {
		return false, err
	}
	return *(*uint64)(unsafe.Add(a.ref.ptr, elementKindOffset)) != 0, nil
}

// Len returns the element count stored in the array's length prefix.
func (a *ArrayAccessor) Len() (int, error) {
	if _, err := a.ref.header(); err != nil {
		return 0, err
	}
	return int(*(*uint64)(a.ref.dataPtr())), nil
}

// ElementPtr returns a pointer to the i-th element's storage.
func (a *ArrayAccessor) ElementPtr(i int) (unsafe.Pointer, error) {
	n, err := a.Len()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= n {
		return nil, newError(IndexOutOfRange, "index %d, length %d", i, n)
	}
	base := unsafe.Add(a.ref.ptr, elementsOffset)
	return unsafe.Add(base, uintptr(i)*a.elementSize), nil
}

// Bytes returns the array's element storage as a raw byte slice.
func (a *ArrayAccessor) Bytes() ([]byte, error) {
	n, err := a.Len()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	base := unsafe.Add(a.ref.ptr, elementsOffset)
	return unsafe.Slice((*byte)(base), uintptr(n)*a.elementSize), nil
}
