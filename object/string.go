package object

import (
	"unicode/utf16"
	"unsafe"

	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

// charSize is the width, in bytes, of a System::Char element: a UTF-16
// code unit, matching the host platform's native string representation
// rather than a full Unicode scalar value.
const charSize = 2

// StringAccessor views a reference as a NUL-terminated UTF-16 array,
// the same physical layout as ArrayAccessor<Char> (§3 "StringAccessor").
// A string's method table points at System::String rather than
// System::Array`1<Char>; only that distinguishes the two at runtime.
type StringAccessor struct {
	array *ArrayAccessor
}

// NewStringAccessor views r as a string, validating that its method
// table actually identifies it as one.
func NewStringAccessor(r ManagedReference) (*StringAccessor, error) {
	table, err := r.MethodTable()
	if err != nil {
		return nil, err
	}
	if id, ok := table.CoreTypeID(); !ok || id != typesystem.CoreString {
		return nil, newError(WrongAccessorKind, "not a System::String")
	}

	arr, err := NewArrayAccessor(r, charSize)
	if err != nil {
		return nil, err
	}
	return &StringAccessor{array: arr}, nil
}

// NewManagedString allocates a new string object from a Go string,
// encoding it as UTF-16 with a trailing NUL code unit.
func NewManagedString(stringTable *typesystem.MethodTable, s string) (ManagedReference, error) {
	units := utf16.Encode([]rune(s))
	units = append(units, 0)

	r, err := AllocArray(stringTable, charSize, len(units), false)
	if err != nil {
		return ManagedReference{}, err
	}

	dst := unsafe.Slice((*uint16)(unsafe.Add(r.ptr, elementsOffset)), len(units))
	copy(dst, units)
	return r, nil
}

// String decodes the stored UTF-16 units, dropping the trailing NUL
// terminator, using Unicode replacement characters for invalid
// surrogate pairs.
func (s *StringAccessor) String() (string, error) {
	n, err := s.array.Len()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}

	base := unsafe.Add(s.array.ref.ptr, elementsOffset)
	units := unsafe.Slice((*uint16)(base), n)
	if units[n-1] == 0 {
		units = units[:n-1]
	}
	return string(utf16.Decode(units)), nil
}

// RawLen returns the code unit count including the NUL terminator.
func (s *StringAccessor) RawLen() (int, error) { return s.array.Len() }
