package typesystem

import "github.com/PuraLingua/pura-lingua-sub001/attrs"

// CustomAttribute is an opaque, name-addressed annotation attached to a
// type, field, or method (§3). The runtime does not interpret these
// itself; they exist for tooling and for the standard library's own
// reflection surface.
type CustomAttribute struct {
	Name string
	Data []byte
}

// Field describes one instance or static field of a class or struct
// (§3 "Field"). Its offset within an object is not stored here: it is
// computed once by the owning MethodTable's layout pass and memoized
// there, since the same Field may need different offsets under
// different generic instantiations.
type Field struct {
	Name             string
	Attr             attrs.FieldAttr
	Type             *MaybeUnloadedTypeHandle
	CustomAttributes []CustomAttribute
}

func NewField(name string, attr attrs.FieldAttr, ty *MaybeUnloadedTypeHandle) *Field {
	return &Field{Name: name, Attr: attr, Type: ty}
}

func (f *Field) IsStatic() bool { return f.Attr.IsStatic() }
