// Package object implements the managed object model: object headers,
// managed references, and the kind-checked accessor views
// (FieldAccessor, ArrayAccessor, StringAccessor, LargeStringAccessor)
// over the uniform byte layout every heap object shares (§4.5).
//
// Every object begins with a fixed, 16-byte header: a one-byte
// ObjectHeader (padded for alignment) followed by a pointer to the
// object's MethodTable. What follows the header depends on the
// object's kind: plain classes lay out their declared fields, arrays
// and strings additionally store a length prefix ahead of their
// element storage, and large strings store their UTF-8 byte length
// ahead of raw bytes.
package object

import (
	"unsafe"

	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

// ObjectHeader packs the garbage collector's mark bit alongside a flag
// for whether the block holds a type's static fields rather than an
// instance (§4.5, §4.7).
type ObjectHeader uint8

const (
	headerMarked ObjectHeader = 1 << 0
	headerStatic ObjectHeader = 1 << 1
)

// NewObjectHeader builds a freshly-allocated, unmarked header.
func NewObjectHeader(isStatic bool) ObjectHeader {
	if isStatic {
		return headerStatic
	}
	return 0
}

func (h ObjectHeader) Marked() bool   { return h&headerMarked != 0 }
func (h ObjectHeader) IsStatic() bool { return h&headerStatic != 0 }

// headerSize is the size, in bytes, of the header plus the method
// table pointer that immediately follows it. Every object's payload
// (fields, or length+elements) begins at this offset.
const headerSize = 16

// dataOffset is where an object's own fields or element storage begin,
// identical for every object kind.
const dataOffset = headerSize

type rawHeader struct {
	header ObjectHeader
	_      [7]byte
	table  *typesystem.MethodTable
}

func headerAt(p unsafe.Pointer) *rawHeader { return (*rawHeader)(p) }
