package binaryfmt

import (
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// ItemKind tags which kind of item table an ItemToken indexes into
// (§4.1). Values match the Rust original's ItemType discriminants
// exactly, since they are a stable wire format.
type ItemKind uint8

const (
	KindTypeDef         ItemKind = 0x00
	KindTypeRef         ItemKind = 0x01
	KindTypeSpec        ItemKind = 0x02
	KindMethod          ItemKind = 0x03
	KindMethodSpec      ItemKind = 0x04
	KindMethodByRuntime ItemKind = 0x05
	KindField           ItemKind = 0x06
	KindGeneric         ItemKind = 0xFF
)

func (k ItemKind) String() string {
	switch k {
	case KindTypeDef:
		return "TypeDef"
	case KindTypeRef:
		return "TypeRef"
	case KindTypeSpec:
		return "TypeSpec"
	case KindMethod:
		return "Method"
	case KindMethodSpec:
		return "MethodSpec"
	case KindMethodByRuntime:
		return "MethodByRuntime"
	case KindField:
		return "Field"
	case KindGeneric:
		return "Generic"
	default:
		return fmt.Sprintf("ItemKind(%#x)", uint8(k))
	}
}

// IsTypeKind reports whether k identifies one of the type-table kinds
// (TypeDef, TypeRef, TypeSpec, or Generic).
func (k ItemKind) IsTypeKind() bool {
	switch k {
	case KindTypeDef, KindTypeRef, KindTypeSpec, KindGeneric:
		return true
	default:
		return false
	}
}

// IsMethodKind reports whether k identifies one of the method-table
// kinds (Method, MethodSpec, or MethodByRuntime).
func (k ItemKind) IsMethodKind() bool {
	switch k {
	case KindMethod, KindMethodSpec, KindMethodByRuntime:
		return true
	default:
		return false
	}
}

// ItemToken is a 32-bit tagged reference to a type, method or field
// inside the holding assembly (§4.1, §4.2): the low 8 bits are an
// ItemKind, the high 24 bits are an index into the owning assembly's
// table for that kind.
type ItemToken uint32

// NewItemToken packs a kind and index into a single token. index must
// fit in 24 bits.
func NewItemToken(kind ItemKind, index uint32) ItemToken {
	return ItemToken(uint32(kind) | (index&0xFFFFFF)<<8)
}

func (t ItemToken) Kind() ItemKind  { return ItemKind(t & 0xFF) }
func (t ItemToken) Index() uint32   { return uint32(t) >> 8 }
func (t ItemToken) String() string  { return fmt.Sprintf("(%s)%d", t.Kind(), t.Index()) }

// TypeToken narrows ItemToken to the TypeDef/TypeRef/TypeSpec/Generic
// subset of kinds.
type TypeToken ItemToken

func NewTypeToken(kind ItemKind, index uint32) TypeToken {
	return TypeToken(NewItemToken(kind, index))
}
func (t TypeToken) Kind() ItemKind   { return ItemToken(t).Kind() }
func (t TypeToken) Index() uint32    { return ItemToken(t).Index() }
func (t TypeToken) String() string   { return ItemToken(t).String() }
func (t TypeToken) AsItem() ItemToken { return ItemToken(t) }

// MethodToken narrows ItemToken to the Method/MethodSpec/MethodByRuntime
// subset of kinds.
type MethodToken ItemToken

func NewMethodToken(kind ItemKind, index uint32) MethodToken {
	return MethodToken(NewItemToken(kind, index))
}
func (t MethodToken) Kind() ItemKind   { return ItemToken(t).Kind() }
func (t MethodToken) Index() uint32    { return ItemToken(t).Index() }
func (t MethodToken) String() string   { return ItemToken(t).String() }
func (t MethodToken) AsItem() ItemToken { return ItemToken(t) }

// Tokens share their little-endian on-wire bytes (§4.2).

func WriteItemToken(b *cryptobyte.Builder, t ItemToken) { WriteU32(b, uint32(t)) }

func ReadItemToken(s *cryptobyte.String) (ItemToken, error) {
	v, err := ReadU32(s)
	return ItemToken(v), err
}

func WriteTypeToken(b *cryptobyte.Builder, t TypeToken) { WriteU32(b, uint32(t)) }

func ReadTypeToken(s *cryptobyte.String) (TypeToken, error) {
	v, err := ReadU32(s)
	if err != nil {
		return 0, err
	}
	tok := TypeToken(v)
	if !tok.Kind().IsTypeKind() {
		return 0, newError(InvalidTag, "type token has non-type kind %s", tok.Kind())
	}
	return tok, nil
}

func WriteMethodToken(b *cryptobyte.Builder, t MethodToken) { WriteU32(b, uint32(t)) }

func ReadMethodToken(s *cryptobyte.String) (MethodToken, error) {
	v, err := ReadU32(s)
	if err != nil {
		return 0, err
	}
	tok := MethodToken(v)
	if !tok.Kind().IsMethodKind() {
		return 0, newError(InvalidTag, "method token has non-method kind %s", tok.Kind())
	}
	return tok, nil
}
