package vm

import "github.com/PuraLingua/pura-lingua-sub001/typesystem"

// Opcode is the bytecode instruction set the CPU dispatches (§4.6).
// The set is deliberately small: arithmetic on primitives, object and
// array construction, field and element access, virtual/interface/
// static calls, and control flow. A real assembly compiler lowers
// everything else (loops, boxing conversions, string concatenation)
// onto these primitives.
type Opcode uint8

const (
	OpNop Opcode = iota
	OpLoadConst
	OpMove

	OpAdd
	OpSub
	OpMul
	OpDiv

	OpNewObject
	OpLoadField
	OpStoreField
	OpLoadStaticField
	OpStoreStaticField

	OpNewArray
	OpLoadElement
	OpStoreElement
	OpArrayLen

	OpBox
	OpUnbox

	OpCallStatic
	OpCallVirtual
	OpCallInterface
	OpCallNative

	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpReturn

	OpThrow
)

func (o Opcode) String() string {
	names := [...]string{
		"Nop", "LoadConst", "Move",
		"Add", "Sub", "Mul", "Div",
		"NewObject", "LoadField", "StoreField", "LoadStaticField", "StoreStaticField",
		"NewArray", "LoadElement", "StoreElement", "ArrayLen",
		"Box", "Unbox",
		"CallStatic", "CallVirtual", "CallInterface", "CallNative",
		"Jump", "JumpIfFalse", "JumpIfTrue", "Return",
		"Throw",
	}
	if int(o) < len(names) {
		return names[o]
	}
	return "Opcode(?)"
}

// Instruction is one bytecode operation. Not every field is used by
// every opcode; which ones apply is determined by each opcode's case in
// the CPU's dispatch loop rather than split into one struct per opcode, matching
// the flat, fixed-shape instruction record the original's
// `Instruction<TypeToken, MethodToken, u32>` type uses.
type Instruction struct {
	Op Opcode

	Dst uint8
	A   uint8
	B   uint8

	Imm    uint64
	Target JumpTarget

	Type   *typesystem.MaybeUnloadedTypeHandle
	Field  *typesystem.Field
	Method *typesystem.Method
}

// ExceptionHandler covers one bytecode try block. A thrown exception
// raised while the current frame's PC lies in [TryStart, TryEnd) is
// caught here when its runtime type is assignable to CatchType, or
// when CatchType is nil ("catch any"). Handling resumes execution at
// CatchPC with the exception reference written into CatchReg.
type ExceptionHandler struct {
	TryStart  int
	TryEnd    int
	CatchType *typesystem.MaybeUnloadedTypeHandle
	CatchPC   int
	CatchReg  uint8
}

// Bytecode is the MethodBody implementation for managed (interpreted)
// methods.
type Bytecode struct {
	Instructions []Instruction
	NumLocals    int
	Handlers     []ExceptionHandler
}

func (Bytecode) BodyKind() typesystem.BodyKind { return typesystem.BytecodeBody }
