package assemblyio

import (
	"golang.org/x/crypto/cryptobyte"

	"github.com/PuraLingua/pura-lingua-sub001/attrs"
	"github.com/PuraLingua/pura-lingua-sub001/binaryfmt"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

// On-disk assembly body layout, read off File.Cursor() once ParseFile
// has split off the shared string interner (§4.1, §4.3, §6):
//
//	string              assembly name
//	u64                 external reference count
//	ExternalRef[]        external references
//	u64                 type count
//	TypeHeader[]         type headers, in declaration order
//	TypeBody[]           field and method records, same order as headers
//
// ExternalRef:
//
//	string              referenced assembly's name
//	u32                 that assembly's local type index
//
// TypeHeader:
//
//	u8                  kind (0 class, 1 struct, 2 interface)
//	string              name
//	u16                 attribute word (attrs.TypeAttr, stored raw)
//	u32                 generic arity
//	bool + TypeToken    parent (class only; absent for struct/interface)
//	u64 + TypeToken[]   extends list (interface only; empty otherwise)
//
// A type's TypeDef token index is its position in this declaration
// order, matching binaryfmt.KindTypeDef's index semantics.
//
// TypeBody (same order as TypeHeader; fields are absent for interfaces,
// which carry no storage of their own):
//
//	u64                 field count
//	Field[]
//	u64                 method count
//	Method[]
//
// Field: string name, u16 attr, ElementType type.
//
// Method: string name, u16 attr, u8 calling convention, u64 param
// count, Param[] (ElementType type, u8 attr), bool has-return,
// ElementType return type (if present), then a body record.
// Interface methods carry a body record too, always written as
// wireBodyNone, so every method in the file decodes through the same
// path regardless of which kind of type declares it.
//
// Body record: u8 kind (0 none, 1 bytecode, 2 native).
//
//	bytecode: u32 local count, u64 instruction count, Instruction[],
//	          u64 handler count, Handler[]
//	native:   u8 call type, string library, string symbol, u32 ordinal
//
// Instruction: u8 op, u8 dst, u8 a, u8 b, u64 imm, u64 raw jump target
// (JumpTarget's bitfield matches the wire representation exactly), then
// three optional operands (bool presence + payload): a type
// (ElementType), a field (u32 owner type index + u32 field index, both
// local to this assembly) and a method (u32 owner type index + u32
// method index, same scheme).
//
// Handler: one try/catch region (§7 ERROR HANDLING DESIGN). u32
// try-start index, u32 try-end index (exclusive), u32 catch target
// index, u8 catch register, then one optional operand (bool presence +
// ElementType) naming the caught type; absent means "catch any."
// OpThrow's unwind search scans a method's own Handler[] each time a
// step returns a thrown exception, matching the innermost-enclosing-
// try semantics a single flat per-method table is enough to express
// without a nesting tree.
//
// Field and method operands only resolve within the assembly being
// decoded: OpCallVirtual/OpCallInterface dispatch through the
// receiver's own runtime method table at call time (vm/dispatch.go),
// so a declared method only needs to carry the right vtable slot and
// shape, not a fully cross-assembly-resolved identity. A type with
// static fields but no methods of its own cannot be targeted by a
// static field instruction, since OpLoadStaticField/OpStoreStaticField
// resolve their owning type's storage through an arbitrary method
// declared on it (vm/dispatch.go's staticFieldOp calls
// instr.Method.Table()) rather than through a type operand.

type externalRef struct {
	Assembly string
	Index    uint32
}

// typeEntry tracks one type across the two decode passes: readTypeBody
// builds its real Fields/Methods (every field and parameter type
// resolves lazily through a typesystem.MaybeUnloadedTypeHandle, so
// nothing here needs every other type to already exist), leaving each
// method's body as a rawBody; resolveBodies then turns those raw
// records into real vm.Bytecode/*vm.NativeThunk values, now that every
// type in the assembly has a stable Field/Method identity to point at.
type typeEntry struct {
	kind     uint8
	handle   typesystem.TypeHandle
	class    *typesystem.Class
	struct_  *typesystem.Struct
	iface    *typesystem.Interface
	fields   []*typesystem.Field
	methods  []*typesystem.Method
	rawBodies []rawBody
}

const (
	wireKindClass     = 0
	wireKindStruct    = 1
	wireKindInterface = 2
)

const (
	wireBodyNone     = 0
	wireBodyBytecode = 1
	wireBodyNative   = 2
)

type decoder struct {
	mgr          *typesystem.AssemblyManager
	assemblyName string
	externalRefs []externalRef
	types        []*typeEntry
}

func decodeAssembly(file *binaryfmt.File, mgr *typesystem.AssemblyManager) (*typesystem.Assembly, error) {
	name, err := file.ReadString()
	if err != nil {
		return nil, wrapError(InvalidFormat, err, "assembly name")
	}

	d := &decoder{mgr: mgr, assemblyName: name}
	cur := file.Cursor()

	refs, err := binaryfmt.ReadSlice(cur, func(s *cryptobyte.String) (externalRef, error) {
		asmName, err := file.ReadString()
		if err != nil {
			return externalRef{}, err
		}
		idx, err := binaryfmt.ReadU32(s)
		if err != nil {
			return externalRef{}, err
		}
		return externalRef{Assembly: asmName, Index: idx}, nil
	})
	if err != nil {
		return nil, wrapError(InvalidFormat, err, "external references")
	}
	d.externalRefs = refs

	typeCount, err := binaryfmt.ReadU64(cur)
	if err != nil {
		return nil, wrapError(InvalidFormat, err, "type count")
	}

	headers := make([]typeHeader, 0, typeCount)
	for i := uint64(0); i < typeCount; i++ {
		h, err := d.readTypeHeader(file)
		if err != nil {
			return nil, wrapError(InvalidFormat, err, "type %d header", i)
		}
		headers = append(headers, h)
	}

	for i, h := range headers {
		entry, err := d.readTypeBody(file, h)
		if err != nil {
			return nil, wrapError(InvalidFormat, err, "type %d (%s) body", i, h.name)
		}
		d.types = append(d.types, entry)
	}

	asm := typesystem.NewAssembly(name, false)
	for _, entry := range d.types {
		asm.AddType(entry.handle)
	}

	for i, entry := range d.types {
		if err := d.resolveBodies(entry); err != nil {
			return nil, wrapError(InvalidFormat, err, "type %d (%s) method bodies", i, headers[i].name)
		}
	}

	if err := mgr.Add(asm); err != nil {
		return nil, wrapError(InvalidFormat, err, "register %s", name)
	}

	return asm, nil
}

type typeHeader struct {
	kind         uint8
	name         string
	attr         uint16
	genericArity uint32
	hasParent    bool
	parent       binaryfmt.TypeToken
	extends      []binaryfmt.TypeToken
}

func (d *decoder) readTypeHeader(file *binaryfmt.File) (typeHeader, error) {
	cur := file.Cursor()

	kind, err := binaryfmt.ReadU8(cur)
	if err != nil {
		return typeHeader{}, err
	}
	name, err := file.ReadString()
	if err != nil {
		return typeHeader{}, err
	}
	attr, err := binaryfmt.ReadU16(cur)
	if err != nil {
		return typeHeader{}, err
	}
	arity, err := binaryfmt.ReadU32(cur)
	if err != nil {
		return typeHeader{}, err
	}

	h := typeHeader{kind: kind, name: name, attr: attr, genericArity: arity}

	if kind == wireKindClass {
		parent, err := binaryfmt.ReadOption(cur, binaryfmt.ReadTypeToken)
		if err != nil {
			return typeHeader{}, err
		}
		if parent != nil {
			h.hasParent = true
			h.parent = *parent
		}
	}

	if kind == wireKindInterface {
		extends, err := binaryfmt.ReadSlice(cur, binaryfmt.ReadTypeToken)
		if err != nil {
			return typeHeader{}, err
		}
		h.extends = extends
	}

	return h, nil
}

func (d *decoder) readTypeBody(file *binaryfmt.File, h typeHeader) (*typeEntry, error) {
	typeAttr := attrs.TypeAttr(h.attr)

	switch h.kind {
	case wireKindInterface:
		methods, raw, err := d.readMethods(file)
		if err != nil {
			return nil, err
		}
		extends := make([]*typesystem.MaybeUnloadedTypeHandle, len(h.extends))
		for i, tok := range h.extends {
			handle, err := d.resolveTypeToken(tok)
			if err != nil {
				return nil, err
			}
			extends[i] = handle
		}
		iface := typesystem.NewInterface(h.name, typeAttr, methods, extends)
		return &typeEntry{kind: h.kind, handle: typesystem.InterfaceHandle(iface), iface: iface, methods: methods, rawBodies: raw}, nil

	case wireKindStruct:
		fields, err := d.readFields(file)
		if err != nil {
			return nil, err
		}
		methods, raw, err := d.readMethods(file)
		if err != nil {
			return nil, err
		}
		s := typesystem.NewStruct(h.name, typeAttr, fields, methods)
		if h.genericArity > 0 {
			s.Bounds = &typesystem.GenericBounds{ParamCount: int(h.genericArity)}
		}
		return &typeEntry{kind: h.kind, handle: typesystem.StructHandle(s), struct_: s, fields: fields, methods: methods, rawBodies: raw}, nil

	default:
		fields, err := d.readFields(file)
		if err != nil {
			return nil, err
		}
		methods, raw, err := d.readMethods(file)
		if err != nil {
			return nil, err
		}
		var parent *typesystem.MaybeUnloadedTypeHandle
		if h.hasParent {
			p, err := d.resolveTypeToken(h.parent)
			if err != nil {
				return nil, err
			}
			parent = p
		}
		c := typesystem.NewClass(h.name, typeAttr, parent, fields, methods)
		if h.genericArity > 0 {
			c.Bounds = &typesystem.GenericBounds{ParamCount: int(h.genericArity)}
		}
		return &typeEntry{kind: h.kind, handle: typesystem.ClassHandle(c), class: c, fields: fields, methods: methods, rawBodies: raw}, nil
	}
}

func (d *decoder) readFields(file *binaryfmt.File) ([]*typesystem.Field, error) {
	cur := file.Cursor()
	count, err := binaryfmt.ReadU64(cur)
	if err != nil {
		return nil, err
	}
	fields := make([]*typesystem.Field, 0, count)
	for i := uint64(0); i < count; i++ {
		name, err := file.ReadString()
		if err != nil {
			return nil, err
		}
		attr, err := binaryfmt.ReadU16(cur)
		if err != nil {
			return nil, err
		}
		elem, err := binaryfmt.ReadElementType(cur)
		if err != nil {
			return nil, err
		}
		ty, err := d.resolveElement(elem)
		if err != nil {
			return nil, err
		}
		fields = append(fields, typesystem.NewField(name, attrs.FieldAttr(attr), ty))
	}
	return fields, nil
}

// readMethods decodes every method's full signature plus its raw,
// unresolved body record. The body is fully consumed here (the file's
// cursor is forward-only) but its Field/Method operands are left as
// bare indices until resolveBodies runs, once every type in the
// assembly has a stable identity to resolve them against.
func (d *decoder) readMethods(file *binaryfmt.File) ([]*typesystem.Method, []rawBody, error) {
	cur := file.Cursor()
	count, err := binaryfmt.ReadU64(cur)
	if err != nil {
		return nil, nil, err
	}
	methods := make([]*typesystem.Method, 0, count)
	bodies := make([]rawBody, 0, count)
	for i := uint64(0); i < count; i++ {
		name, err := file.ReadString()
		if err != nil {
			return nil, nil, err
		}
		attr, err := binaryfmt.ReadU16(cur)
		if err != nil {
			return nil, nil, err
		}
		conv, err := binaryfmt.ReadU8(cur)
		if err != nil {
			return nil, nil, err
		}

		paramCount, err := binaryfmt.ReadU64(cur)
		if err != nil {
			return nil, nil, err
		}
		params := make([]typesystem.Parameter, 0, paramCount)
		for j := uint64(0); j < paramCount; j++ {
			elem, err := binaryfmt.ReadElementType(cur)
			if err != nil {
				return nil, nil, err
			}
			pAttr, err := binaryfmt.ReadU8(cur)
			if err != nil {
				return nil, nil, err
			}
			ty, err := d.resolveElement(elem)
			if err != nil {
				return nil, nil, err
			}
			params = append(params, typesystem.Parameter{Type: ty, Attr: attrs.ParameterAttr(pAttr)})
		}

		hasReturn, err := binaryfmt.ReadBool(cur)
		if err != nil {
			return nil, nil, err
		}
		var ret *typesystem.MaybeUnloadedTypeHandle
		if hasReturn {
			elem, err := binaryfmt.ReadElementType(cur)
			if err != nil {
				return nil, nil, err
			}
			ret, err = d.resolveElement(elem)
			if err != nil {
				return nil, nil, err
			}
		}

		body, err := readRawBody(file)
		if err != nil {
			return nil, nil, err
		}

		methods = append(methods, typesystem.NewMethod(name, attrs.MethodAttr(attr), attrs.CallConvention(conv), params, ret))
		bodies = append(bodies, body)
	}
	return methods, bodies, nil
}

func (d *decoder) resolveBodies(entry *typeEntry) error {
	for i, m := range entry.methods {
		body, err := d.resolveBody(m, entry.rawBodies[i])
		if err != nil {
			return wrapError(InvalidFormat, err, "method %s", m.Name)
		}
		m.Body = body
	}
	return nil
}
