package vm

import "github.com/PuraLingua/pura-lingua-sub001/object"

// Register is the CPU's uniform storage cell (§4.6). Reference-typed
// values (classes, boxed structs, arrays, strings) live in Ref; value
// types up to 8 bytes (every primitive the spec defines) are packed
// into Bits. A value type larger than 8 bytes is not held in a
// register: field and element accesses of such a type fail with
// TypeMismatch (see wordInfo).
type Register struct {
	Bits uint64
	Ref  object.ManagedReference
}

func FromBits(b uint64) Register               { return Register{Bits: b} }
func FromRef(r object.ManagedReference) Register { return Register{Ref: r} }

func (r Register) IsRef() bool { return !r.Ref.IsNull() }

// RegisterFile is one call frame's flat register bank, sized by the
// VM's Config.RegisterCount (default 255, mirroring the file format's
// 8-bit register-index field).
type RegisterFile struct {
	regs []Register
}

func NewRegisterFile(count int) *RegisterFile {
	return &RegisterFile{regs: make([]Register, count)}
}

func (f *RegisterFile) Get(i uint8) (Register, error) {
	if int(i) >= len(f.regs) {
		return Register{}, newError(InvalidRegister, "r%d (file has %d registers)", i, len(f.regs))
	}
	return f.regs[i], nil
}

func (f *RegisterFile) Set(i uint8, v Register) error {
	if int(i) >= len(f.regs) {
		return newError(InvalidRegister, "r%d (file has %d registers)", i, len(f.regs))
	}
	f.regs[i] = v
	return nil
}

func (f *RegisterFile) Len() int { return len(f.regs) }
