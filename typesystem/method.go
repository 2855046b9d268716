package typesystem

import "github.com/PuraLingua/pura-lingua-sub001/attrs"

// BodyKind tags the three ways a Method can be implemented (§3
// "Method"). The standard library's default object methods
// (`ToString`, `Finalize`, and similar) are implemented directly in Go
// rather than as either bytecode or a foreign-call thunk, the same way
// the original runtime wires them as plain Rust functions taking the
// calling CPU, the Method descriptor and the receiver rather than
// going through its foreign-call marshaler.
type BodyKind uint8

const (
	BytecodeBody BodyKind = iota
	NativeBody
	IntrinsicBody
)

func (k BodyKind) String() string {
	switch k {
	case NativeBody:
		return "Native"
	case IntrinsicBody:
		return "Intrinsic"
	default:
		return "Bytecode"
	}
}

// MethodBody is implemented by the vm package's concrete method body
// representations (bytecode instruction streams, foreign-call thunks,
// Go-native intrinsics). Defining the interface here rather than
// importing vm avoids a cycle: vm needs typesystem's type handles far
// more than typesystem needs vm's instruction encoding.
type MethodBody interface {
	BodyKind() BodyKind
}

// Parameter describes one formal parameter of a method (§3
// "Parameter").
type Parameter struct {
	Type *MaybeUnloadedTypeHandle
	Attr attrs.ParameterAttr
}

// GenericBounds records, for each generic parameter of a method or
// type, the set of interfaces an instantiating argument must satisfy
// (§3, §4.4). An empty bound list for a parameter means it is
// unconstrained.
type GenericBounds struct {
	ParamCount int
	Bounds     [][]TypeHandle
}

func (b *GenericBounds) arity() int {
	if b == nil {
		return 0
	}
	return b.ParamCount
}

// Method describes one method of a class, struct or interface (§3
// "Method"). Table is set once, when the owning MethodTable is built,
// and gives a method access to its vtable slot and sibling methods
// without needing a separate lookup.
type Method struct {
	Name       string
	Attr       attrs.MethodAttr
	Convention attrs.CallConvention
	Parameters []Parameter
	ReturnType *MaybeUnloadedTypeHandle
	Bounds     *GenericBounds
	Body       MethodBody

	table *MethodTable
	slot  int
}

func NewMethod(name string, attr attrs.MethodAttr, conv attrs.CallConvention, params []Parameter, ret *MaybeUnloadedTypeHandle) *Method {
	return &Method{Name: name, Attr: attr, Convention: conv, Parameters: params, ReturnType: ret, slot: -1}
}

func (m *Method) IsStatic() bool            { return m.Attr.IsStatic() }
func (m *Method) IsVirtual() bool           { return m.Attr.IsVirtual() }
func (m *Method) IsAbstract() bool          { return m.Attr.IsAbstract() }
func (m *Method) IsConstructor() bool       { return m.Attr.IsConstructor() }
func (m *Method) IsStaticConstructor() bool { return m.Attr.IsStaticConstructor() }

// Table returns the vtable this method was installed into.
func (m *Method) Table() *MethodTable { return m.table }

// Slot returns the method's index in its owning vtable, or -1 if it
// has not been installed into one yet.
func (m *Method) Slot() int { return m.slot }
