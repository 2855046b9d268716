package vm

import (
	"strconv"

	"github.com/PuraLingua/pura-lingua-sub001/attrs"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

// NonPurusCallType distinguishes the two ways a foreign call's symbol
// is resolved (§C.3 supplemented feature, named after the original's
// "non-purus" — not managed — call classification).
type NonPurusCallType uint8

const (
	// CallBySymbol resolves Symbol in Library at bind time.
	CallBySymbol NonPurusCallType = iota
	// CallByOrdinal resolves an ordinal index rather than a name,
	// used on platforms (chiefly Windows) that export by ordinal.
	CallByOrdinal
)

// NonPurusCallConfiguration is the descriptor attached to a method
// whose body is a foreign call rather than bytecode: which library,
// which symbol or ordinal, and which calling convention to marshal
// arguments with.
type NonPurusCallConfiguration struct {
	Type       NonPurusCallType
	Library    string
	Symbol     string
	Ordinal    uint32
	Convention attrs.CallConvention
}

// ForeignCallDescriptor is the fully-typed signature of a foreign call,
// combining the NonPurusCallConfiguration with the managed parameter
// and return types the marshaler needs on either side of the call.
type ForeignCallDescriptor struct {
	Config     NonPurusCallConfiguration
	ParamTypes []*typesystem.MaybeUnloadedTypeHandle
	ReturnType *typesystem.MaybeUnloadedTypeHandle
}

// Invoker performs the actual foreign-ABI call once arguments have
// been marshaled into raw register-sized words. It is the seam a real
// platform trampoline (built with cgo, or an assembly calling-
// convention shim) would plug into: no dependency in the retrieval
// corpus provides cgo-free native calling, so this runtime ships the
// marshaling, errno/Win32 capture, and dispatch machinery around the
// call and leaves Invoker itself pluggable rather than fabricating
// one.
type Invoker func(addr uintptr, args []uint64, conv attrs.CallConvention) (ret uint64, errno int32, err error)

// NativeThunk is the MethodBody implementation for a method resolved
// to a foreign, non-managed entry point.
type NativeThunk struct {
	Descriptor ForeignCallDescriptor
	Address    uintptr
	Invoke     Invoker
}

func (NativeThunk) BodyKind() typesystem.BodyKind { return typesystem.NativeBody }

// Call marshals args into raw words, invokes the thunk, and throws one
// of the exception-hierarchy instances the standard library defines
// for foreign-call failures (§C.1): an ErrnoException on POSIX
// platforms under PlatformDefault/CDecl/SystemV, or a Win32Exception
// under Stdcall/Fastcall/Win64.
func (t *NativeThunk) Call(c *CPU, args []Register) (Register, error) {
	if t.Invoke == nil {
		return Register{}, newError(UnsupportedForeignCall, "%s!%s has no bound invoker", t.Descriptor.Config.Library, t.Descriptor.Config.Symbol)
	}

	raw := make([]uint64, len(args))
	for i, a := range args {
		raw[i] = a.Bits
	}

	ret, errno, err := t.Invoke(t.Address, raw, t.Descriptor.Config.Convention)
	if err != nil {
		return Register{}, wrapError(ForeignCallFailed, err, "%s!%s", t.Descriptor.Config.Library, t.Descriptor.Config.Symbol)
	}
	if errno != 0 {
		return throwPlatformError(c, t.Descriptor.Config.Convention, errno)
	}

	return FromBits(ret), nil
}

func nativeErrorMessage(conv attrs.CallConvention, code int32) string {
	if conv == attrs.Stdcall || conv == attrs.Fastcall || conv == attrs.Win64 {
		return errWin32Prefix(code)
	}
	return errErrnoPrefix(code)
}

func errWin32Prefix(code int32) string { return "Win32 error " + strconv.Itoa(int(code)) }
func errErrnoPrefix(code int32) string { return "errno " + strconv.Itoa(int(code)) }
