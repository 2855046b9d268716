package binaryfmt

import (
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// ElementKind is the tag of an ElementType (§4.1).
type ElementKind uint8

const (
	ElemVoid ElementKind = iota
	ElemBoolean
	ElemChar
	ElemI8
	ElemU8
	ElemI16
	ElemU16
	ElemI32
	ElemU32
	ElemI64
	ElemU64
	ElemUsize
	ElemIsize
	ElemString
	ElemObject
	ElemPointer
	ElemByRef
	ElemValueType
	ElemClass
	ElemTypeVar
	ElemArray
	ElemGenericInst
)

// ElementType is a primitive or compound type descriptor used inside
// method signatures and field declarations before they are resolved
// against a loaded assembly.
type ElementType struct {
	Kind ElementKind

	// Pointer, ByRef: the pointee.
	Elem *ElementType

	// ValueType, Class, Array: the referenced type.
	Type TypeToken

	// TypeVar: the generic parameter index.
	Var uint32

	// GenericInst: the generic definition plus its arguments.
	GenericArgs []TypeToken
}

func (e ElementType) String() string {
	switch e.Kind {
	case ElemPointer:
		return fmt.Sprintf("*%s", e.Elem)
	case ElemByRef:
		return fmt.Sprintf("&%s", e.Elem)
	case ElemValueType, ElemClass, ElemArray:
		return fmt.Sprintf("%s(%s)", e.kindName(), e.Type)
	case ElemTypeVar:
		return fmt.Sprintf("TypeVar(%d)", e.Var)
	case ElemGenericInst:
		return fmt.Sprintf("GenericInst(%s, %v)", e.Type, e.GenericArgs)
	default:
		return e.kindName()
	}
}

func (e ElementType) kindName() string {
	switch e.Kind {
	case ElemVoid:
		return "Void"
	case ElemBoolean:
		return "Boolean"
	case ElemChar:
		return "Char"
	case ElemI8:
		return "I8"
	case ElemU8:
		return "U8"
	case ElemI16:
		return "I16"
	case ElemU16:
		return "U16"
	case ElemI32:
		return "I32"
	case ElemU32:
		return "U32"
	case ElemI64:
		return "I64"
	case ElemU64:
		return "U64"
	case ElemUsize:
		return "Usize"
	case ElemIsize:
		return "Isize"
	case ElemString:
		return "String"
	case ElemObject:
		return "Object"
	case ElemPointer:
		return "Pointer"
	case ElemByRef:
		return "ByRef"
	case ElemValueType:
		return "ValueType"
	case ElemClass:
		return "Class"
	case ElemTypeVar:
		return "TypeVar"
	case ElemArray:
		return "Array"
	case ElemGenericInst:
		return "GenericInst"
	default:
		return fmt.Sprintf("ElementKind(%d)", e.Kind)
	}
}

// WriteElementType serializes an ElementType to a section (§4.1): a
// u8 kind tag followed by kind-specific payload.
func WriteElementType(b *cryptobyte.Builder, e ElementType) {
	WriteU8(b, uint8(e.Kind))
	switch e.Kind {
	case ElemPointer, ElemByRef:
		WriteElementType(b, *e.Elem)
	case ElemValueType, ElemClass, ElemArray:
		WriteTypeToken(b, e.Type)
	case ElemTypeVar:
		WriteU32(b, e.Var)
	case ElemGenericInst:
		WriteTypeToken(b, e.Type)
		WriteSlice(b, e.GenericArgs, WriteTypeToken)
	}
}

// ReadElementType deserializes an ElementType previously written by
// WriteElementType.
func ReadElementType(s *cryptobyte.String) (ElementType, error) {
	kindByte, err := ReadU8(s)
	if err != nil {
		return ElementType{}, err
	}
	kind := ElementKind(kindByte)
	if kind > ElemGenericInst {
		return ElementType{}, newError(InvalidTag, "element type kind %d", kindByte)
	}

	e := ElementType{Kind: kind}
	switch kind {
	case ElemPointer, ElemByRef:
		inner, err := ReadElementType(s)
		if err != nil {
			return ElementType{}, err
		}
		e.Elem = &inner
	case ElemValueType, ElemClass, ElemArray:
		tok, err := ReadTypeToken(s)
		if err != nil {
			return ElementType{}, err
		}
		e.Type = tok
	case ElemTypeVar:
		v, err := ReadU32(s)
		if err != nil {
			return ElementType{}, err
		}
		e.Var = v
	case ElemGenericInst:
		tok, err := ReadTypeToken(s)
		if err != nil {
			return ElementType{}, err
		}
		args, err := ReadSlice(s, ReadTypeToken)
		if err != nil {
			return ElementType{}, err
		}
		e.Type = tok
		e.GenericArgs = args
	}

	return e, nil
}
