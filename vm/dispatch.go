package vm

import (
	"unsafe"

	"github.com/PuraLingua/pura-lingua-sub001/object"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

// step executes one instruction, returning the next program counter,
// the method's return value and whether execution should stop (set
// only by OpReturn).
func (c *CPU) step(frame *Frame, instr Instruction) (next int, ret Register, done bool, err error) {
	switch instr.Op {
	case OpNop:
		return frame.PC + 1, Register{}, false, nil

	case OpLoadConst:
		if err := frame.Regs.Set(instr.Dst, FromBits(instr.Imm)); err != nil {
			return 0, Register{}, false, err
		}

	case OpMove:
		v, err := frame.Regs.Get(instr.A)
		if err != nil {
			return 0, Register{}, false, err
		}
		if err := frame.Regs.Set(instr.Dst, v); err != nil {
			return 0, Register{}, false, err
		}

	case OpAdd, OpSub, OpMul, OpDiv:
		if err := c.arith(frame, instr); err != nil {
			return 0, Register{}, false, err
		}

	case OpNewObject:
		if err := c.newObject(frame, instr); err != nil {
			return 0, Register{}, false, err
		}

	case OpLoadField, OpStoreField:
		if err := c.fieldOp(frame, instr); err != nil {
			return 0, Register{}, false, err
		}

	case OpLoadStaticField, OpStoreStaticField:
		if err := c.staticFieldOp(frame, instr); err != nil {
			return 0, Register{}, false, err
		}

	case OpNewArray:
		if err := c.newArray(frame, instr); err != nil {
			return 0, Register{}, false, err
		}

	case OpLoadElement, OpStoreElement:
		if err := c.elementOp(frame, instr); err != nil {
			return 0, Register{}, false, err
		}

	case OpArrayLen:
		if err := c.arrayLen(frame, instr); err != nil {
			return 0, Register{}, false, err
		}

	case OpBox:
		if err := c.box(frame, instr); err != nil {
			return 0, Register{}, false, err
		}

	case OpUnbox:
		if err := c.unbox(frame, instr); err != nil {
			return 0, Register{}, false, err
		}

	case OpCallStatic, OpCallVirtual, OpCallInterface, OpCallNative:
		r, err := c.dispatchCall(frame, instr)
		if err != nil {
			return 0, Register{}, false, err
		}
		if err := frame.Regs.Set(instr.Dst, r); err != nil {
			return 0, Register{}, false, err
		}

	case OpJump:
		n, err := instr.Target.Resolve(frame.PC)
		if err != nil {
			return 0, Register{}, false, err
		}
		return n, Register{}, false, nil

	case OpJumpIfFalse, OpJumpIfTrue:
		v, err := frame.Regs.Get(instr.A)
		if err != nil {
			return 0, Register{}, false, err
		}
		truth := v.Bits != 0
		if (instr.Op == OpJumpIfFalse) == !truth {
			n, err := instr.Target.Resolve(frame.PC)
			if err != nil {
				return 0, Register{}, false, err
			}
			return n, Register{}, false, nil
		}

	case OpReturn:
		v, err := frame.Regs.Get(instr.A)
		if err != nil {
			return 0, Register{}, false, err
		}
		return 0, v, true, nil

	case OpThrow:
		v, err := frame.Regs.Get(instr.A)
		if err != nil {
			return 0, Register{}, false, err
		}
		if !v.IsRef() || v.Ref.IsNull() {
			return 0, Register{}, false, newError(NullDereference, "Throw on a null or non-reference register")
		}
		return 0, Register{}, false, &ThrownException{Ref: v.Ref}

	default:
		return 0, Register{}, false, newError(TypeMismatch, "unimplemented opcode %s", instr.Op)
	}

	return frame.PC + 1, Register{}, false, nil
}

func (c *CPU) arith(frame *Frame, instr Instruction) error {
	a, err := frame.Regs.Get(instr.A)
	if err != nil {
		return err
	}
	b, err := frame.Regs.Get(instr.B)
	if err != nil {
		return err
	}

	ai, bi := int64(a.Bits), int64(b.Bits)
	var r int64
	switch instr.Op {
	case OpAdd:
		r = ai + bi
	case OpSub:
		r = ai - bi
	case OpMul:
		r = ai * bi
	case OpDiv:
		if bi == 0 {
			return newError(DivideByZero, "")
		}
		r = ai / bi
	}
	return frame.Regs.Set(instr.Dst, FromBits(uint64(r)))
}

func (c *CPU) newObject(frame *Frame, instr Instruction) error {
	handle, err := instr.Type.Resolve(c.vm.mgr)
	if err != nil {
		return err
	}
	table := handle.MethodTable()
	if table == nil {
		return newError(TypeMismatch, "NewObject target is not a class or struct")
	}

	r, err := object.CommonAlloc(c.vm.mgr, table, false)
	if err != nil {
		return err
	}
	c.RecordAllocation(r, handle.Kind())
	return frame.Regs.Set(instr.Dst, FromRef(r))
}

func (c *CPU) fieldOp(frame *Frame, instr Instruction) error {
	obj, err := frame.Regs.Get(instr.A)
	if err != nil {
		return err
	}
	if !obj.IsRef() {
		return newError(NullDereference, "field access on a non-reference register")
	}

	acc, err := object.NewFieldAccessor(c.vm.mgr, obj.Ref)
	if err != nil {
		return err
	}
	ptr, err := acc.Field(instr.Field)
	if err != nil {
		return err
	}
	word, err := wordInfo(c.vm.mgr, instr.Field.Type)
	if err != nil {
		return err
	}

	if instr.Op == OpLoadField {
		v, err := loadRegisterWord(ptr, word)
		if err != nil {
			return err
		}
		return frame.Regs.Set(instr.Dst, v)
	}

	src, err := frame.Regs.Get(instr.B)
	if err != nil {
		return err
	}
	return storeRegisterWord(ptr, word, src)
}

// wordSize is how many bytes of a field or element slot a Register's
// value occupies: the type's own natural size, at most 8 (a register
// cell). Value-typed fields and elements larger than 8 bytes do not fit
// this runtime's register model and report an error rather than
// silently truncating.
type wordSize struct {
	size  uintptr
	isRef bool
}

func wordInfo(mgr *typesystem.AssemblyManager, h *typesystem.MaybeUnloadedTypeHandle) (wordSize, error) {
	handle, err := h.Resolve(mgr)
	if err != nil {
		return wordSize{}, err
	}
	size, _, err := typesystem.SizeAlign(mgr, handle)
	if err != nil {
		return wordSize{}, err
	}
	k := handle.Kind()
	isRef := k == typesystem.HandleClass || k == typesystem.HandleInterface
	if size > 8 && !isRef {
		return wordSize{}, newError(TypeMismatch, "field/element type %s (%d bytes) does not fit in a register", handle.Name(), size)
	}
	return wordSize{size: size, isRef: isRef}, nil
}

func loadRegisterWord(ptr unsafe.Pointer, w wordSize) (Register, error) {
	if w.isRef {
		return FromRef(object.FromPointerBits(*(*uint64)(ptr))), nil
	}
	switch w.size {
	case 1:
		return FromBits(uint64(*(*uint8)(ptr))), nil
	case 2:
		return FromBits(uint64(*(*uint16)(ptr))), nil
	case 4:
		return FromBits(uint64(*(*uint32)(ptr))), nil
	case 8:
		return FromBits(*(*uint64)(ptr)), nil
	default:
		return Register{}, newError(TypeMismatch, "unsupported word size %d", w.size)
	}
}

func storeRegisterWord(ptr unsafe.Pointer, w wordSize, src Register) error {
	if w.isRef {
		*(*uint64)(ptr) = object.PointerBits(src.Ref)
		return nil
	}
	switch w.size {
	case 1:
		*(*uint8)(ptr) = uint8(src.Bits)
	case 2:
		*(*uint16)(ptr) = uint16(src.Bits)
	case 4:
		*(*uint32)(ptr) = uint32(src.Bits)
	case 8:
		*(*uint64)(ptr) = src.Bits
	default:
		return newError(TypeMismatch, "unsupported word size %d", w.size)
	}
	return nil
}

func (c *CPU) staticFieldOp(frame *Frame, instr Instruction) error {
	table := instr.Method.Table()
	staticObj, err := c.vm.StaticStorage(table)
	if err != nil {
		return err
	}

	acc, err := object.NewStaticFieldAccessor(c.vm.mgr, staticObj)
	if err != nil {
		return err
	}
	ptr, err := acc.Field(instr.Field)
	if err != nil {
		return err
	}
	word, err := wordInfo(c.vm.mgr, instr.Field.Type)
	if err != nil {
		return err
	}

	if instr.Op == OpLoadStaticField {
		v, err := loadRegisterWord(ptr, word)
		if err != nil {
			return err
		}
		return frame.Regs.Set(instr.Dst, v)
	}

	src, err := frame.Regs.Get(instr.A)
	if err != nil {
		return err
	}
	return storeRegisterWord(ptr, word, src)
}

func (c *CPU) newArray(frame *Frame, instr Instruction) error {
	handle, err := instr.Type.Resolve(c.vm.mgr)
	if err != nil {
		return err
	}
	size, _, err := typesystem.SizeAlign(c.vm.mgr, handle)
	if err != nil {
		return err
	}

	length, err := frame.Regs.Get(instr.A)
	if err != nil {
		return err
	}

	arrayTable, err := c.vm.mgr.GetCoreType(typesystem.CoreArray1)
	if err != nil {
		return err
	}

	elementIsRef := handle.Kind() == typesystem.HandleClass || handle.Kind() == typesystem.HandleInterface
	r, err := object.AllocArray(arrayTable.MethodTable(), size, int(length.Bits), elementIsRef)
	if err != nil {
		return err
	}
	c.RecordAllocation(r, typesystem.HandleClass)
	return frame.Regs.Set(instr.Dst, FromRef(r))
}

func (c *CPU) elementOp(frame *Frame, instr Instruction) error {
	arr, err := frame.Regs.Get(instr.A)
	if err != nil {
		return err
	}
	if !arr.IsRef() {
		return newError(NullDereference, "element access on a non-reference register")
	}

	handle, err := instr.Type.Resolve(c.vm.mgr)
	if err != nil {
		return err
	}
	size, _, err := typesystem.SizeAlign(c.vm.mgr, handle)
	if err != nil {
		return err
	}

	acc, err := object.NewArrayAccessor(arr.Ref, size)
	if err != nil {
		return err
	}

	index, err := frame.Regs.Get(instr.B)
	if err != nil {
		return err
	}
	ptr, err := acc.ElementPtr(int(index.Bits))
	if err != nil {
		return err
	}
	word, err := wordInfo(c.vm.mgr, instr.Type)
	if err != nil {
		return err
	}

	if instr.Op == OpLoadElement {
		v, err := loadRegisterWord(ptr, word)
		if err != nil {
			return err
		}
		return frame.Regs.Set(instr.Dst, v)
	}

	src, err := frame.Regs.Get(instr.Dst)
	if err != nil {
		return err
	}
	return storeRegisterWord(ptr, word, src)
}

func (c *CPU) arrayLen(frame *Frame, instr Instruction) error {
	arr, err := frame.Regs.Get(instr.A)
	if err != nil {
		return err
	}
	if !arr.IsRef() {
		return newError(NullDereference, "ArrayLen on a non-reference register")
	}
	acc, err := object.NewArrayAccessor(arr.Ref, 1)
	if err != nil {
		return err
	}
	n, err := acc.Len()
	if err != nil {
		return err
	}
	return frame.Regs.Set(instr.Dst, FromBits(uint64(n)))
}

func (c *CPU) box(frame *Frame, instr Instruction) error {
	handle, err := instr.Type.Resolve(c.vm.mgr)
	if err != nil {
		return err
	}
	table := handle.MethodTable()
	if table == nil {
		return newError(TypeMismatch, "Box target is not a value type")
	}
	size, _, err := typesystem.SizeAlign(c.vm.mgr, handle)
	if err != nil {
		return err
	}

	src, err := frame.Regs.Get(instr.A)
	if err != nil {
		return err
	}

	r, err := object.BoxStruct(table, size, unsafe.Pointer(&src.Bits))
	if err != nil {
		return err
	}
	c.RecordAllocation(r, handle.Kind())
	return frame.Regs.Set(instr.Dst, FromRef(r))
}

func (c *CPU) unbox(frame *Frame, instr Instruction) error {
	src, err := frame.Regs.Get(instr.A)
	if err != nil {
		return err
	}
	if !src.IsRef() {
		return newError(NullDereference, "Unbox on a non-reference register")
	}

	bits, err := object.UnboxBits(src.Ref)
	if err != nil {
		return err
	}
	return frame.Regs.Set(instr.Dst, FromBits(bits))
}

func (c *CPU) dispatchCall(frame *Frame, instr Instruction) (Register, error) {
	args := make([]Register, 0, int(instr.B)+1)
	for i := uint8(0); i <= instr.B; i++ {
		v, err := frame.Regs.Get(instr.A + i)
		if err != nil {
			return Register{}, err
		}
		args = append(args, v)
	}

	target := instr.Method
	if instr.Op == OpCallVirtual || instr.Op == OpCallInterface {
		if len(args) == 0 || !args[0].IsRef() {
			return Register{}, newError(NullDereference, "virtual call on a non-reference receiver")
		}
		table, err := args[0].Ref.MethodTable()
		if err != nil {
			return Register{}, err
		}
		target, err = table.Virtual(instr.Method.Slot())
		if err != nil {
			return Register{}, err
		}
	}

	return c.Call(target, args)
}
