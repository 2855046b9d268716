package vm

import "fmt"

// JumpKind tags how a JumpTarget's value is interpreted (§4.1, §4.6).
type JumpKind uint8

const (
	JumpAbsolute JumpKind = 0b00
	JumpForward  JumpKind = 0b01
	JumpBackward JumpKind = 0b10
	jumpUnknown  JumpKind = 0b11
)

func (k JumpKind) String() string {
	switch k {
	case JumpAbsolute:
		return "Absolute"
	case JumpForward:
		return "Forward"
	case JumpBackward:
		return "Backward"
	default:
		return "Unknown"
	}
}

// JumpTarget packs a 2-bit JumpKind and a 62-bit offset/address into a
// single word (§4.1 "JumpTarget"), matching the file format's bitfield
// exactly so instructions decode directly from the wire representation
// without an intermediate expansion pass.
type JumpTarget uint64

const jumpValueMask = (uint64(1) << 62) - 1

func NewJumpTarget(kind JumpKind, val uint64) JumpTarget {
	return JumpTarget(uint64(kind)&0b11 | (val&jumpValueMask)<<2)
}

func (t JumpTarget) Kind() JumpKind { return JumpKind(t & 0b11) }
func (t JumpTarget) Value() uint64  { return uint64(t) >> 2 }

func (t JumpTarget) String() string {
	return fmt.Sprintf("%s(%#x)", t.Kind(), t.Value())
}

// Resolve computes the absolute instruction index a jump target names,
// given the program counter it is relative to.
func (t JumpTarget) Resolve(pc int) (int, error) {
	switch t.Kind() {
	case JumpAbsolute:
		return int(t.Value()), nil
	case JumpForward:
		return pc + int(t.Value()), nil
	case JumpBackward:
		return pc - int(t.Value()), nil
	default:
		return 0, newError(InvalidJumpTarget, "%s", t)
	}
}
