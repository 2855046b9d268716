// Package attrs defines the packed attribute bitfields used throughout
// the type system: visibility and modifiers for types, fields, methods
// and parameters, plus the calling-convention tag carried by methods.
package attrs

import "strings"

// Visibility is the access level shared by types, fields and methods.
type Visibility uint8

const (
	Private Visibility = iota
	Internal
	Protected
	Public
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Internal:
		return "internal"
	case Protected:
		return "protected"
	case Public:
		return "public"
	default:
		return "visibility(?)"
	}
}

// visibilityMask and visibilityShift carve the low bits of each
// attribute word out for the shared Visibility value, leaving the
// remaining bits for kind-specific flags.
const (
	visibilityMask  = 0b11
	visibilityShift = 0
	flagShift       = 2
)

// TypeAttr packs a class/struct/interface's visibility plus modifier
// flags into a single 16-bit word.
type TypeAttr uint16

const (
	TypeAbstract TypeAttr = 1 << (flagShift + iota)
	TypeSealed
	TypeInterface
	TypeValueType
)

func NewTypeAttr(v Visibility, flags TypeAttr) TypeAttr {
	return TypeAttr(v&visibilityMask)<<visibilityShift | flags
}

func (a TypeAttr) Visibility() Visibility { return Visibility(a>>visibilityShift) & visibilityMask }
func (a TypeAttr) IsAbstract() bool       { return a&TypeAbstract != 0 }
func (a TypeAttr) IsSealed() bool         { return a&TypeSealed != 0 }
func (a TypeAttr) IsInterface() bool      { return a&TypeInterface != 0 }
func (a TypeAttr) IsValueType() bool      { return a&TypeValueType != 0 }

func (a TypeAttr) String() string {
	var b strings.Builder
	b.WriteString(a.Visibility().String())
	if a.IsAbstract() {
		b.WriteString(" abstract")
	}
	if a.IsSealed() {
		b.WriteString(" sealed")
	}
	if a.IsInterface() {
		b.WriteString(" interface")
	}
	if a.IsValueType() {
		b.WriteString(" valuetype")
	}
	return b.String()
}

// FieldAttr packs a field's visibility, storage class and reference
// mode.
type FieldAttr uint16

const (
	FieldStatic FieldAttr = 1 << (flagShift + iota)
	FieldByRef
	FieldReadOnly
	FieldLiteral
)

func NewFieldAttr(v Visibility, flags FieldAttr) FieldAttr {
	return FieldAttr(v&visibilityMask)<<visibilityShift | flags
}

func (a FieldAttr) Visibility() Visibility { return Visibility(a>>visibilityShift) & visibilityMask }
func (a FieldAttr) IsStatic() bool         { return a&FieldStatic != 0 }
func (a FieldAttr) IsByRef() bool          { return a&FieldByRef != 0 }
func (a FieldAttr) IsReadOnly() bool       { return a&FieldReadOnly != 0 }
func (a FieldAttr) IsLiteral() bool        { return a&FieldLiteral != 0 }

// MethodAttr packs a method's visibility and its static, virtual,
// override, abstract, constructor and static-constructor flags.
type MethodAttr uint16

const (
	MethodStatic MethodAttr = 1 << (flagShift + iota)
	MethodVirtual
	MethodOverride
	MethodAbstract
	MethodConstructor
	MethodStaticConstructor
)

func NewMethodAttr(v Visibility, flags MethodAttr) MethodAttr {
	return MethodAttr(v&visibilityMask)<<visibilityShift | flags
}

func (a MethodAttr) Visibility() Visibility { return Visibility(a>>visibilityShift) & visibilityMask }
func (a MethodAttr) IsStatic() bool         { return a&MethodStatic != 0 }
func (a MethodAttr) IsVirtual() bool        { return a&MethodVirtual != 0 }
func (a MethodAttr) IsOverride() bool       { return a&MethodOverride != 0 }
func (a MethodAttr) IsAbstract() bool       { return a&MethodAbstract != 0 }
func (a MethodAttr) IsConstructor() bool    { return a&MethodConstructor != 0 }
func (a MethodAttr) IsStaticConstructor() bool {
	return a&MethodStaticConstructor != 0
}

// ParameterAttr marks whether a parameter is passed by reference (i.e.
// the CPU passes a pointer to the argument's storage rather than the
// value itself).
type ParameterAttr uint8

const (
	ParamByRef ParameterAttr = 1 << iota
	ParamOut
)

func (a ParameterAttr) IsByRef() bool { return a&ParamByRef != 0 }
func (a ParameterAttr) IsOut() bool   { return a&ParamOut != 0 }

// CallConvention selects the platform ABI used to pass arguments and
// receive results, for both managed and foreign methods.
type CallConvention uint8

const (
	PlatformDefault CallConvention = iota
	CDecl
	CDeclWithVararg
	Stdcall
	Fastcall
	Win64
	SystemV
)

func (c CallConvention) String() string {
	switch c {
	case PlatformDefault:
		return "platform-default"
	case CDecl:
		return "cdecl"
	case CDeclWithVararg:
		return "cdecl-vararg"
	case Stdcall:
		return "stdcall"
	case Fastcall:
		return "fastcall"
	case Win64:
		return "win64"
	case SystemV:
		return "sysv"
	default:
		return "call-convention(?)"
	}
}
