package vm

import (
	"github.com/PuraLingua/pura-lingua-sub001/attrs"
	"github.com/PuraLingua/pura-lingua-sub001/object"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

// ThrownException carries a managed exception instance up the call
// stack (§7 "errors from within a bytecode method become a thrown
// managed exception"). It is distinct from RuntimeError: a RuntimeError
// is an internal fault the CPU raises about itself, while a
// ThrownException wraps an object a try/catch handler can inspect and
// resume past.
type ThrownException struct {
	Ref object.ManagedReference
}

func (e *ThrownException) Error() string { return "vm: unhandled managed exception" }

// isAssignableTo reports whether instance's runtime type is target
// itself or derives from it, walking the class hierarchy the same way
// MethodTable.parentTable does internally.
func isAssignableTo(mgr *typesystem.AssemblyManager, instance, target typesystem.TypeHandle) bool {
	h := instance
	for {
		if h == target {
			return true
		}
		class, ok := h.Class()
		if !ok || class.Parent == nil {
			return false
		}
		parent, err := class.Parent.Resolve(mgr)
		if err != nil {
			return false
		}
		h = parent
	}
}

// findHandler searches body's exception table for an entry covering pc
// whose catch type accepts excType, the innermost-first linear search
// the file format's handler ordering is built to support.
func (c *CPU) findHandler(body Bytecode, pc int, excType typesystem.TypeHandle) (*ExceptionHandler, error) {
	for i := range body.Handlers {
		h := &body.Handlers[i]
		if pc < h.TryStart || pc >= h.TryEnd {
			continue
		}
		if h.CatchType == nil {
			return h, nil
		}
		catchType, err := h.CatchType.Resolve(c.vm.mgr)
		if err != nil {
			return nil, err
		}
		if isAssignableTo(c.vm.mgr, excType, catchType) {
			return h, nil
		}
	}
	return nil, nil
}

// findConstructor returns table's declared instance constructor, the
// only method subExceptionWithField-style stdlib types declare with
// MethodConstructor set.
func findConstructor(table *typesystem.MethodTable) (*typesystem.Method, error) {
	for _, m := range table.Methods() {
		if m.Attr.IsConstructor() {
			return m, nil
		}
	}
	return nil, newError(TypeMismatch, "%s has no constructor", table.Owner().Name())
}

// throwStdlibException allocates an instance of the standard-library
// exception type named by coreID, runs its constructor with message
// (and code, for the two-parameter Win32Exception/ErrnoException
// shape), and returns it wrapped ready to propagate as a thrown
// exception.
func throwStdlibException(c *CPU, coreID typesystem.CoreTypeId, message string, code int32) (*ThrownException, error) {
	excHandle, err := c.vm.mgr.GetCoreType(coreID)
	if err != nil {
		return nil, err
	}
	table := excHandle.MethodTable()
	if table == nil {
		return nil, newError(TypeMismatch, "stdlib exception type has no method table")
	}

	stringHandle, err := c.vm.mgr.GetCoreType(typesystem.CoreString)
	if err != nil {
		return nil, err
	}
	stringTable := stringHandle.MethodTable()
	if stringTable == nil {
		return nil, newError(TypeMismatch, "System::String has no method table")
	}

	msgRef, err := object.NewManagedString(stringTable, message)
	if err != nil {
		return nil, err
	}
	c.RecordAllocation(msgRef, typesystem.HandleClass)

	instance, err := object.CommonAlloc(c.vm.mgr, table, false)
	if err != nil {
		return nil, err
	}
	c.RecordAllocation(instance, excHandle.Kind())

	ctor, err := findConstructor(table)
	if err != nil {
		return nil, err
	}

	args := []Register{FromRef(instance), FromRef(msgRef)}
	if len(ctor.Parameters) > 1 {
		args = append(args, FromBits(uint64(uint32(code))))
	}
	if _, err := c.Call(ctor, args); err != nil {
		return nil, err
	}

	return &ThrownException{Ref: instance}, nil
}

// throwPlatformError builds the managed exception a failed foreign call
// surfaces as (§C.1): a Win32Exception under a Windows calling
// convention, an ErrnoException otherwise.
func throwPlatformError(c *CPU, conv attrs.CallConvention, code int32) (Register, error) {
	coreID := typesystem.CoreErrnoException
	if conv == attrs.Stdcall || conv == attrs.Fastcall || conv == attrs.Win64 {
		coreID = typesystem.CoreWin32Exception
	}
	thrown, err := throwStdlibException(c, coreID, nativeErrorMessage(conv, code), code)
	if err != nil {
		return Register{}, err
	}
	return Register{}, thrown
}
