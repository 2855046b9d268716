package object

import (
	"unsafe"

	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

// LargeStringAccessor views a reference as a usize byte-length prefix
// and raw UTF-8 bytes starting at elementsOffset, one unused 8-byte
// word after the prefix, used for strings too long
// to be worth the code-unit indexing a regular String offers (§3
// "LargeStringAccessor"). It shares the UTF-16 String's length-prefix
// offset but not its element interpretation, since the payload is
// already UTF-8 with a one-byte element size.
type LargeStringAccessor struct {
	ref ManagedReference
}

// NewLargeStringAccessor views r as a large string, validating its
// method table identifies it as one.
func NewLargeStringAccessor(r ManagedReference) (*LargeStringAccessor, error) {
	table, err := r.MethodTable()
	if err != nil {
		return nil, err
	}
	if id, ok := table.CoreTypeID(); !ok || id != typesystem.CoreLargeString {
		return nil, newError(WrongAccessorKind, "not a System::LargeString")
	}
	return &LargeStringAccessor{ref: r}, nil
}

// NewManagedLargeString allocates a new large string object holding a
// copy of s's UTF-8 bytes.
func NewManagedLargeString(largeStringTable *typesystem.MethodTable, s string) (ManagedReference, error) {
	total := elementsOffset + uintptr(len(s))
	r, err := alloc(total, largeStringTable, false)
	if err != nil {
		return ManagedReference{}, err
	}

	*(*uint64)(r.dataPtr()) = uint64(len(s))
	if len(s) > 0 {
		dst := unsafe.Slice((*byte)(unsafe.Add(r.ptr, elementsOffset)), len(s))
		copy(dst, s)
	}
	return r, nil
}

// String returns the stored UTF-8 payload.
func (l *LargeStringAccessor) String() (string, error) {
	n := *(*uint64)(l.ref.dataPtr())
	if n == 0 {
		return "", nil
	}
	base := unsafe.Add(l.ref.ptr, elementsOffset)
	return string(unsafe.Slice((*byte)(base), n)), nil
}

// Len returns the byte length of the stored payload.
func (l *LargeStringAccessor) Len() (int, error) {
	return int(*(*uint64)(l.ref.dataPtr())), nil
}
