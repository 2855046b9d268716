package assemblyio

import (
	"github.com/PuraLingua/pura-lingua-sub001/binaryfmt"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
	"github.com/PuraLingua/pura-lingua-sub001/vm"
)

// rawInstruction mirrors vm.Instruction exactly except that its Type
// operand is still an unresolved binaryfmt.ElementType and its
// Field/Method operands are still bare (type index, member index)
// pairs local to the assembly being decoded, since the real
// *typesystem.Field/*typesystem.Method objects they name may not exist
// yet when the instruction stream is first read off the wire.
type rawInstruction struct {
	op  uint8
	dst uint8
	a   uint8
	b   uint8

	imm       uint64
	targetRaw uint64

	hasType bool
	typeRef binaryfmt.ElementType

	hasField    bool
	fieldType   uint32
	fieldIndex  uint32

	hasMethod   bool
	methodType  uint32
	methodIndex uint32
}

// rawHandler mirrors vm.ExceptionHandler, with its catch type still an
// unresolved binaryfmt.ElementType.
type rawHandler struct {
	tryStart int
	tryEnd   int
	catchPC  int
	catchReg uint8

	hasCatchType bool
	catchType    binaryfmt.ElementType
}

// rawBody is a method body as read off the wire, before its Field and
// Method operands have been resolved against the rest of the assembly.
type rawBody struct {
	kind uint8

	numLocals    uint32
	instructions []rawInstruction
	handlers     []rawHandler

	callType uint8
	library  string
	symbol   string
	ordinal  uint32
}

func readRawBody(file *binaryfmt.File) (rawBody, error) {
	cur := file.Cursor()
	kind, err := binaryfmt.ReadU8(cur)
	if err != nil {
		return rawBody{}, err
	}

	switch kind {
	case wireBodyNone:
		return rawBody{kind: kind}, nil

	case wireBodyBytecode:
		numLocals, err := binaryfmt.ReadU32(cur)
		if err != nil {
			return rawBody{}, err
		}
		count, err := binaryfmt.ReadU64(cur)
		if err != nil {
			return rawBody{}, err
		}
		instrs := make([]rawInstruction, 0, count)
		for i := uint64(0); i < count; i++ {
			instr, err := readRawInstruction(file)
			if err != nil {
				return rawBody{}, wrapError(InvalidFormat, err, "instruction %d", i)
			}
			instrs = append(instrs, instr)
		}

		handlerCount, err := binaryfmt.ReadU64(cur)
		if err != nil {
			return rawBody{}, err
		}
		handlers := make([]rawHandler, 0, handlerCount)
		for i := uint64(0); i < handlerCount; i++ {
			h, err := readRawHandler(file)
			if err != nil {
				return rawBody{}, wrapError(InvalidFormat, err, "exception handler %d", i)
			}
			handlers = append(handlers, h)
		}

		return rawBody{kind: kind, numLocals: numLocals, instructions: instrs, handlers: handlers}, nil

	case wireBodyNative:
		callType, err := binaryfmt.ReadU8(cur)
		if err != nil {
			return rawBody{}, err
		}
		library, err := file.ReadString()
		if err != nil {
			return rawBody{}, err
		}
		symbol, err := file.ReadString()
		if err != nil {
			return rawBody{}, err
		}
		ordinal, err := binaryfmt.ReadU32(cur)
		if err != nil {
			return rawBody{}, err
		}
		return rawBody{kind: kind, callType: callType, library: library, symbol: symbol, ordinal: ordinal}, nil

	default:
		return rawBody{}, newError(InvalidFormat, "unknown body kind %d", kind)
	}
}

func readRawInstruction(file *binaryfmt.File) (rawInstruction, error) {
	cur := file.Cursor()

	op, err := binaryfmt.ReadU8(cur)
	if err != nil {
		return rawInstruction{}, err
	}
	dst, err := binaryfmt.ReadU8(cur)
	if err != nil {
		return rawInstruction{}, err
	}
	a, err := binaryfmt.ReadU8(cur)
	if err != nil {
		return rawInstruction{}, err
	}
	b, err := binaryfmt.ReadU8(cur)
	if err != nil {
		return rawInstruction{}, err
	}
	imm, err := binaryfmt.ReadU64(cur)
	if err != nil {
		return rawInstruction{}, err
	}
	targetRaw, err := binaryfmt.ReadU64(cur)
	if err != nil {
		return rawInstruction{}, err
	}

	instr := rawInstruction{op: op, dst: dst, a: a, b: b, imm: imm, targetRaw: targetRaw}

	hasType, err := binaryfmt.ReadBool(cur)
	if err != nil {
		return rawInstruction{}, err
	}
	if hasType {
		elem, err := binaryfmt.ReadElementType(cur)
		if err != nil {
			return rawInstruction{}, err
		}
		instr.hasType = true
		instr.typeRef = elem
	}

	hasField, err := binaryfmt.ReadBool(cur)
	if err != nil {
		return rawInstruction{}, err
	}
	if hasField {
		ft, err := binaryfmt.ReadU32(cur)
		if err != nil {
			return rawInstruction{}, err
		}
		fi, err := binaryfmt.ReadU32(cur)
		if err != nil {
			return rawInstruction{}, err
		}
		instr.hasField = true
		instr.fieldType = ft
		instr.fieldIndex = fi
	}

	hasMethod, err := binaryfmt.ReadBool(cur)
	if err != nil {
		return rawInstruction{}, err
	}
	if hasMethod {
		mt, err := binaryfmt.ReadU32(cur)
		if err != nil {
			return rawInstruction{}, err
		}
		mi, err := binaryfmt.ReadU32(cur)
		if err != nil {
			return rawInstruction{}, err
		}
		instr.hasMethod = true
		instr.methodType = mt
		instr.methodIndex = mi
	}

	return instr, nil
}

func readRawHandler(file *binaryfmt.File) (rawHandler, error) {
	cur := file.Cursor()

	tryStart, err := binaryfmt.ReadU32(cur)
	if err != nil {
		return rawHandler{}, err
	}
	tryEnd, err := binaryfmt.ReadU32(cur)
	if err != nil {
		return rawHandler{}, err
	}
	catchPC, err := binaryfmt.ReadU32(cur)
	if err != nil {
		return rawHandler{}, err
	}
	catchReg, err := binaryfmt.ReadU8(cur)
	if err != nil {
		return rawHandler{}, err
	}

	h := rawHandler{tryStart: int(tryStart), tryEnd: int(tryEnd), catchPC: int(catchPC), catchReg: catchReg}

	hasCatchType, err := binaryfmt.ReadBool(cur)
	if err != nil {
		return rawHandler{}, err
	}
	if hasCatchType {
		elem, err := binaryfmt.ReadElementType(cur)
		if err != nil {
			return rawHandler{}, err
		}
		h.hasCatchType = true
		h.catchType = elem
	}

	return h, nil
}

// resolveBody turns a rawBody into the typesystem.MethodBody vm.CPU
// actually dispatches: vm.Bytecode for a managed body, *vm.NativeThunk
// for a foreign one, or nil for an abstract/interface declaration.
func (d *decoder) resolveBody(m *typesystem.Method, raw rawBody) (typesystem.MethodBody, error) {
	switch raw.kind {
	case wireBodyNone:
		return nil, nil

	case wireBodyNative:
		paramTypes := make([]*typesystem.MaybeUnloadedTypeHandle, len(m.Parameters))
		for i, p := range m.Parameters {
			paramTypes[i] = p.Type
		}
		return &vm.NativeThunk{
			Descriptor: vm.ForeignCallDescriptor{
				Config: vm.NonPurusCallConfiguration{
					Type:       vm.NonPurusCallType(raw.callType),
					Library:    raw.library,
					Symbol:     raw.symbol,
					Ordinal:    raw.ordinal,
					Convention: m.Convention,
				},
				ParamTypes: paramTypes,
				ReturnType: m.ReturnType,
			},
		}, nil

	case wireBodyBytecode:
		instrs := make([]vm.Instruction, 0, len(raw.instructions))
		for i, ri := range raw.instructions {
			instr, err := d.resolveInstruction(ri)
			if err != nil {
				return nil, wrapError(InvalidFormat, err, "instruction %d", i)
			}
			instrs = append(instrs, instr)
		}

		handlers := make([]vm.ExceptionHandler, 0, len(raw.handlers))
		for i, rh := range raw.handlers {
			h, err := d.resolveHandler(rh)
			if err != nil {
				return nil, wrapError(InvalidFormat, err, "exception handler %d", i)
			}
			handlers = append(handlers, h)
		}

		return vm.Bytecode{Instructions: instrs, NumLocals: int(raw.numLocals), Handlers: handlers}, nil

	default:
		return nil, newError(InvalidFormat, "unknown body kind %d", raw.kind)
	}
}

func (d *decoder) resolveHandler(rh rawHandler) (vm.ExceptionHandler, error) {
	h := vm.ExceptionHandler{
		TryStart: rh.tryStart,
		TryEnd:   rh.tryEnd,
		CatchPC:  rh.catchPC,
		CatchReg: rh.catchReg,
	}
	if rh.hasCatchType {
		ty, err := d.resolveElement(rh.catchType)
		if err != nil {
			return vm.ExceptionHandler{}, err
		}
		h.CatchType = ty
	}
	return h, nil
}

func (d *decoder) resolveInstruction(ri rawInstruction) (vm.Instruction, error) {
	instr := vm.Instruction{
		Op:     vm.Opcode(ri.op),
		Dst:    ri.dst,
		A:      ri.a,
		B:      ri.b,
		Imm:    ri.imm,
		Target: vm.JumpTarget(ri.targetRaw),
	}

	if ri.hasType {
		ty, err := d.resolveElement(ri.typeRef)
		if err != nil {
			return vm.Instruction{}, err
		}
		instr.Type = ty
	}

	if ri.hasField {
		field, err := d.localField(ri.fieldType, ri.fieldIndex)
		if err != nil {
			return vm.Instruction{}, err
		}
		instr.Field = field

		if instr.Op == vm.OpLoadStaticField || instr.Op == vm.OpStoreStaticField {
			carrier, err := d.staticTableCarrier(ri.fieldType)
			if err != nil {
				return vm.Instruction{}, err
			}
			instr.Method = carrier
		}
	}

	if ri.hasMethod {
		method, err := d.localMethod(ri.methodType, ri.methodIndex)
		if err != nil {
			return vm.Instruction{}, err
		}
		instr.Method = method
	}

	return instr, nil
}
