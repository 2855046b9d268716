package vm_test

import (
	"testing"

	"github.com/PuraLingua/pura-lingua-sub001/attrs"
	"github.com/PuraLingua/pura-lingua-sub001/object"
	"github.com/PuraLingua/pura-lingua-sub001/stdlib"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
	"github.com/PuraLingua/pura-lingua-sub001/vm"
)

// A failed foreign call with a nonzero errno throws a managed
// System::ErrnoException carrying the errno value, not a bare
// RuntimeError (§C.1).
func TestNativeThunkThrowsErrnoExceptionOnFailure(t *testing.T) {
	mgr := typesystem.NewAssemblyManager()
	if _, err := stdlib.Build(mgr); err != nil {
		t.Fatalf("stdlib.Build: %v", err)
	}

	thunk := &vm.NativeThunk{
		Descriptor: vm.ForeignCallDescriptor{
			Config: vm.NonPurusCallConfiguration{
				Library:    "libc",
				Symbol:     "open",
				Convention: attrs.PlatformDefault,
			},
		},
		Invoke: func(addr uintptr, args []uint64, conv attrs.CallConvention) (uint64, int32, error) {
			return 0, 2, nil // ENOENT
		},
	}
	method := typesystem.NewMethod("open", attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic), attrs.PlatformDefault, nil, nil)
	method.Body = thunk

	v := vm.NewVM(mgr, vm.DefaultConfig())
	cpu := v.NewCPU()

	_, err := cpu.Call(method, nil)
	if err == nil {
		t.Fatal("open: want an error, got nil")
	}
	thrown, ok := err.(*vm.ThrownException)
	if !ok {
		t.Fatalf("open error = %T, want *vm.ThrownException", err)
	}

	errnoHandle, gerr := mgr.GetCoreType(typesystem.CoreErrnoException)
	if gerr != nil {
		t.Fatalf("GetCoreType(CoreErrnoException): %v", gerr)
	}
	table, terr := thrown.Ref.MethodTable()
	if terr != nil {
		t.Fatalf("MethodTable: %v", terr)
	}
	if table.Owner() != errnoHandle {
		t.Fatalf("thrown exception's type = %s, want %s", table.Owner().Name(), errnoHandle.Name())
	}

	class, ok := errnoHandle.Class()
	if !ok || len(class.Fields) != 1 {
		t.Fatalf("ErrnoException class shape unexpected: %+v", class)
	}
	errnoField := class.Fields[0]

	acc, err := object.NewFieldAccessor(mgr, thrown.Ref)
	if err != nil {
		t.Fatalf("NewFieldAccessor: %v", err)
	}
	ptr, err := acc.Field(errnoField)
	if err != nil {
		t.Fatalf("Field(Errno): %v", err)
	}
	if got := *(*int32)(ptr); got != 2 {
		t.Fatalf("Errno field = %d, want 2", got)
	}
}

// The same failure path selects System::Win32Exception instead when
// the foreign call uses a Windows calling convention.
func TestNativeThunkThrowsWin32ExceptionForWindowsConvention(t *testing.T) {
	mgr := typesystem.NewAssemblyManager()
	if _, err := stdlib.Build(mgr); err != nil {
		t.Fatalf("stdlib.Build: %v", err)
	}

	thunk := &vm.NativeThunk{
		Descriptor: vm.ForeignCallDescriptor{
			Config: vm.NonPurusCallConfiguration{
				Library:    "kernel32.dll",
				Symbol:     "CreateFileW",
				Convention: attrs.Stdcall,
			},
		},
		Invoke: func(addr uintptr, args []uint64, conv attrs.CallConvention) (uint64, int32, error) {
			return 0, 5, nil // ERROR_ACCESS_DENIED
		},
	}
	method := typesystem.NewMethod("CreateFileW", attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic), attrs.PlatformDefault, nil, nil)
	method.Body = thunk

	v := vm.NewVM(mgr, vm.DefaultConfig())
	cpu := v.NewCPU()

	_, err := cpu.Call(method, nil)
	thrown, ok := err.(*vm.ThrownException)
	if !ok {
		t.Fatalf("CreateFileW error = %T, want *vm.ThrownException", err)
	}

	win32Handle, gerr := mgr.GetCoreType(typesystem.CoreWin32Exception)
	if gerr != nil {
		t.Fatalf("GetCoreType(CoreWin32Exception): %v", gerr)
	}
	table, terr := thrown.Ref.MethodTable()
	if terr != nil {
		t.Fatalf("MethodTable: %v", terr)
	}
	if table.Owner() != win32Handle {
		t.Fatalf("thrown exception's type = %s, want %s", table.Owner().Name(), win32Handle.Name())
	}
}
