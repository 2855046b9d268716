package vm

import (
	"github.com/PuraLingua/pura-lingua-sub001/object"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

// MemoryRecord is one entry in a CPU's list of live allocations, used
// by the garbage collector's sweep phase to find objects nothing on
// the call stack still reaches (§4.7).
type MemoryRecord struct {
	Ref  object.ManagedReference
	Kind typesystem.HandleKind
}

// Frame is one call stack entry: the method being executed, its
// register file, and the program counter within its bytecode (§4.6).
type Frame struct {
	Method *typesystem.Method
	Regs   *RegisterFile
	PC     int
}

// CPU is one thread's execution context (§4.6 "CPU"): a call stack of
// frames, whose registers the garbage collector marks from, and the
// list of allocations it has made, which the collector sweeps.
type CPU struct {
	vm           *VM
	stack        []*Frame
	maxStack     int
	memRecords   []MemoryRecord
	registerSize int
}

// NewCPU creates a CPU bound to vm, with the given per-frame register
// count and maximum call depth.
func NewCPU(v *VM, registerSize, maxStack int) *CPU {
	return &CPU{vm: v, registerSize: registerSize, maxStack: maxStack}
}

func (c *CPU) VM() *VM { return c.vm }

// Roots returns every non-null managed reference held in a register of
// one of this CPU's live frames, the starting set for a mark-and-sweep
// collection (§4.7). Allocation records are not roots.
func (c *CPU) Roots() []object.ManagedReference {
	var roots []object.ManagedReference
	for _, f := range c.stack {
		for i := 0; i < f.Regs.Len(); i++ {
			if reg, err := f.Regs.Get(uint8(i)); err == nil && reg.IsRef() {
				roots = append(roots, reg.Ref)
			}
		}
	}
	return roots
}

// MemoryRecords returns every allocation this CPU has performed and
// not yet forgotten by a GC sweep.
func (c *CPU) MemoryRecords() []MemoryRecord { return c.memRecords }

// RecordAllocation appends a freshly-allocated object to this CPU's
// memory-record list.
func (c *CPU) RecordAllocation(r object.ManagedReference, kind typesystem.HandleKind) {
	c.memRecords = append(c.memRecords, MemoryRecord{Ref: r, Kind: kind})
}

// PruneRecords removes every record the predicate reports as no
// longer live, called by the garbage collector's sweep phase.
func (c *CPU) PruneRecords(keep func(object.ManagedReference) bool) {
	out := c.memRecords[:0]
	for _, r := range c.memRecords {
		if keep(r.Ref) {
			out = append(out, r)
		}
	}
	c.memRecords = out
}

func (c *CPU) pushFrame(m *typesystem.Method) (*Frame, error) {
	if len(c.stack) >= c.maxStack {
		return nil, newError(StackOverflow, "max depth %d", c.maxStack)
	}
	f := &Frame{Method: m, Regs: NewRegisterFile(c.registerSize)}
	c.stack = append(c.stack, f)
	return f, nil
}

func (c *CPU) popFrame() error {
	if len(c.stack) == 0 {
		return newError(StackUnderflow, "")
	}
	c.stack = c.stack[:len(c.stack)-1]
	return nil
}

// Call invokes m with args loaded into its fresh frame's first
// registers, dispatching bytecode, a foreign-call thunk, or a
// Go-native intrinsic depending on the method's body (§4.6).
func (c *CPU) Call(m *typesystem.Method, args []Register) (Register, error) {
	switch body := m.Body.(type) {
	case Bytecode:
		return c.callBytecode(m, body, args)
	case *NativeThunk:
		return body.Call(c, args)
	case Intrinsic:
		return body(c, m, args)
	default:
		return Register{}, newError(TypeMismatch, "method %s has no runnable body", m.Name)
	}
}

func (c *CPU) callBytecode(m *typesystem.Method, body Bytecode, args []Register) (Register, error) {
	frame, err := c.pushFrame(m)
	if err != nil {
		return Register{}, err
	}
	defer c.popFrame()

	for i, a := range args {
		if err := frame.Regs.Set(uint8(i), a); err != nil {
			return Register{}, err
		}
	}

	for frame.PC < len(body.Instructions) {
		instr := body.Instructions[frame.PC]
		next, ret, done, err := c.step(frame, instr)
		if err != nil {
			thrown, ok := err.(*ThrownException)
			if !ok {
				return Register{}, err
			}
			handled, herr := c.handleThrow(frame, body, thrown)
			if herr != nil {
				return Register{}, herr
			}
			if !handled {
				return Register{}, err
			}
			continue
		}
		if done {
			return ret, nil
		}
		frame.PC = next
	}

	return Register{}, nil
}

// handleThrow searches body's exception table for a handler covering
// frame's current PC that accepts thrown's runtime type. When one
// matches, it writes the exception reference into the handler's catch
// register, moves frame.PC to the handler, and reports true so the
// caller resumes the loop instead of propagating the exception.
func (c *CPU) handleThrow(frame *Frame, body Bytecode, thrown *ThrownException) (bool, error) {
	table, err := thrown.Ref.MethodTable()
	if err != nil {
		return false, err
	}

	handler, err := c.findHandler(body, frame.PC, table.Owner())
	if err != nil {
		return false, err
	}
	if handler == nil {
		return false, nil
	}

	if err := frame.Regs.Set(handler.CatchReg, FromRef(thrown.Ref)); err != nil {
		return false, err
	}
	frame.PC = handler.CatchPC
	return true, nil
}
