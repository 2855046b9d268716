package vm

import "github.com/PuraLingua/pura-lingua-sub001/typesystem"

// Intrinsic is the MethodBody implementation for a method implemented
// directly in Go rather than as bytecode or a foreign-call thunk,
// grounded on the original runtime's own default `System::Object`
// methods (`Destructor`, `ToString`), which take the calling CPU, the
// Method descriptor, and the argument list rather than going through
// any marshaling layer. args[0] is the receiver for an instance
// method.
type Intrinsic func(c *CPU, m *typesystem.Method, args []Register) (Register, error)

func (Intrinsic) BodyKind() typesystem.BodyKind { return typesystem.IntrinsicBody }
