package assemblyio

import (
	"github.com/PuraLingua/pura-lingua-sub001/binaryfmt"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

// typeRefFor turns a wire TypeToken into an unresolved TypeRef, either
// local to the assembly being decoded (KindTypeDef) or against one of
// its declared external references (KindTypeRef).
func (d *decoder) typeRefFor(tok binaryfmt.TypeToken) (*typesystem.TypeRef, error) {
	switch tok.Kind() {
	case binaryfmt.KindTypeDef:
		return &typesystem.TypeRef{Assembly: d.assemblyName, Index: tok.Index()}, nil
	case binaryfmt.KindTypeRef:
		if int(tok.Index()) >= len(d.externalRefs) {
			return nil, newError(InvalidFormat, "external reference %d out of range (have %d)", tok.Index(), len(d.externalRefs))
		}
		ref := d.externalRefs[tok.Index()]
		return &typesystem.TypeRef{Assembly: ref.Assembly, Index: ref.Index}, nil
	default:
		return nil, newError(InvalidFormat, "type token has unsupported kind %s", tok.Kind())
	}
}

func (d *decoder) resolveTypeToken(tok binaryfmt.TypeToken) (*typesystem.MaybeUnloadedTypeHandle, error) {
	ref, err := d.typeRefFor(tok)
	if err != nil {
		return nil, err
	}
	return typesystem.NewUnloaded(ref), nil
}

func coreHandle(id typesystem.CoreTypeId) *typesystem.MaybeUnloadedTypeHandle {
	return typesystem.NewUnloaded(&typesystem.TypeRef{Assembly: typesystem.CoreAssemblyName, Index: uint32(id)})
}

// resolveElement turns a decoded ElementType into the lazily-resolved
// handle a Field, Parameter or return type actually stores. The
// baked-in primitive kinds (ElemI32 and friends) always resolve
// against the core assembly regardless of which assembly is being
// decoded, since every assembly can assume the standard library exists
// without declaring a dependency on it (§4.9).
func (d *decoder) resolveElement(e binaryfmt.ElementType) (*typesystem.MaybeUnloadedTypeHandle, error) {
	switch e.Kind {
	case binaryfmt.ElemVoid:
		return coreHandle(typesystem.CoreVoid), nil
	case binaryfmt.ElemBoolean:
		return coreHandle(typesystem.CoreBoolean), nil
	case binaryfmt.ElemChar:
		return coreHandle(typesystem.CoreChar), nil
	case binaryfmt.ElemI8:
		return coreHandle(typesystem.CoreInt8), nil
	case binaryfmt.ElemU8:
		return coreHandle(typesystem.CoreUInt8), nil
	case binaryfmt.ElemI16:
		return coreHandle(typesystem.CoreInt16), nil
	case binaryfmt.ElemU16:
		return coreHandle(typesystem.CoreUInt16), nil
	case binaryfmt.ElemI32:
		return coreHandle(typesystem.CoreInt32), nil
	case binaryfmt.ElemU32:
		return coreHandle(typesystem.CoreUInt32), nil
	case binaryfmt.ElemI64:
		return coreHandle(typesystem.CoreInt64), nil
	case binaryfmt.ElemU64:
		return coreHandle(typesystem.CoreUInt64), nil
	case binaryfmt.ElemUsize:
		return coreHandle(typesystem.CoreUSize), nil
	case binaryfmt.ElemIsize:
		return coreHandle(typesystem.CoreISize), nil
	case binaryfmt.ElemString:
		return coreHandle(typesystem.CoreString), nil
	case binaryfmt.ElemObject:
		return coreHandle(typesystem.CoreObject), nil
	case binaryfmt.ElemPointer:
		return coreHandle(typesystem.CorePointer), nil
	case binaryfmt.ElemByRef:
		// ByRef is carried on the Parameter/Field attribute bits
		// rather than modeled as a distinct handle kind; the pointee's
		// own type is what a reader of the resolved handle needs.
		return d.resolveElement(*e.Elem)
	case binaryfmt.ElemValueType, binaryfmt.ElemClass:
		return d.resolveTypeToken(e.Type)
	case binaryfmt.ElemArray:
		elem, err := d.resolveTypeToken(e.Type)
		if err != nil {
			return nil, err
		}
		return typesystem.NewUnloaded(&typesystem.TypeRef{
			Assembly: typesystem.CoreAssemblyName,
			Index:    uint32(typesystem.CoreArray1),
			Args:     []*typesystem.MaybeUnloadedTypeHandle{elem},
		}), nil
	case binaryfmt.ElemTypeVar:
		return typesystem.NewTypeVar(int(e.Var)), nil
	case binaryfmt.ElemGenericInst:
		ref, err := d.typeRefFor(e.Type)
		if err != nil {
			return nil, err
		}
		args := make([]*typesystem.MaybeUnloadedTypeHandle, len(e.GenericArgs))
		for i, a := range e.GenericArgs {
			h, err := d.resolveTypeToken(a)
			if err != nil {
				return nil, err
			}
			args[i] = h
		}
		ref.Args = args
		return typesystem.NewUnloaded(ref), nil
	default:
		return nil, newError(InvalidFormat, "unsupported element kind %d", e.Kind)
	}
}

// localField resolves a (type index, field index) pair against types
// already built for this assembly.
func (d *decoder) localField(typeIndex, fieldIndex uint32) (*typesystem.Field, error) {
	if int(typeIndex) >= len(d.types) {
		return nil, newError(InvalidFormat, "field reference: type index %d out of range", typeIndex)
	}
	entry := d.types[typeIndex]
	if int(fieldIndex) >= len(entry.fields) {
		return nil, newError(InvalidFormat, "field reference: index %d out of range for type %d", fieldIndex, typeIndex)
	}
	return entry.fields[fieldIndex], nil
}

// localMethod resolves a (type index, method index) pair against types
// already built for this assembly.
func (d *decoder) localMethod(typeIndex, methodIndex uint32) (*typesystem.Method, error) {
	if int(typeIndex) >= len(d.types) {
		return nil, newError(InvalidFormat, "method reference: type index %d out of range", typeIndex)
	}
	entry := d.types[typeIndex]
	if int(methodIndex) >= len(entry.methods) {
		return nil, newError(InvalidFormat, "method reference: index %d out of range for type %d", methodIndex, typeIndex)
	}
	return entry.methods[methodIndex], nil
}

// staticTableCarrier returns some method declared directly on
// typeIndex, so a decoded static field instruction can reuse
// vm/dispatch.go's existing convention of resolving static storage
// through Instruction.Method.Table() rather than a separate type
// operand. A type with static fields but no methods at all cannot be
// targeted this way.
func (d *decoder) staticTableCarrier(typeIndex uint32) (*typesystem.Method, error) {
	if int(typeIndex) >= len(d.types) {
		return nil, newError(InvalidFormat, "static field reference: type index %d out of range", typeIndex)
	}
	entry := d.types[typeIndex]
	if len(entry.methods) == 0 {
		return nil, newError(InvalidFormat, "type %d has static fields but declares no method to carry its table", typeIndex)
	}
	return entry.methods[0], nil
}
