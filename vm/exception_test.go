package vm

import (
	"testing"

	"github.com/PuraLingua/pura-lingua-sub001/attrs"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

func newExceptionTestVM(t *testing.T) (*VM, *typesystem.Assembly, *typesystem.Class) {
	t.Helper()
	mgr := typesystem.NewAssemblyManager()
	core := typesystem.NewAssembly("core", true)
	if err := mgr.Add(core); err != nil {
		t.Fatalf("Add(core): %v", err)
	}

	obj := typesystem.NewClass("System::Object", attrs.NewTypeAttr(attrs.Public, 0), nil, nil, nil)
	core.AddType(typesystem.ClassHandle(obj))

	myError := typesystem.NewClass("MyError", attrs.NewTypeAttr(attrs.Public, 0), typesystem.NewLoaded(typesystem.ClassHandle(obj)), nil, nil)
	core.AddType(typesystem.ClassHandle(myError))

	return NewVM(mgr, DefaultConfig()), core, myError
}

// A throw within a try region whose handler's catch type matches the
// exception's own type resumes at the handler's catch PC with the
// exception reference written into the catch register.
func TestThrowCaughtByMatchingHandler(t *testing.T) {
	v, _, myError := newExceptionTestVM(t)
	errHandle := typesystem.NewLoaded(typesystem.ClassHandle(myError))

	guarded := typesystem.NewMethod("guarded", attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic), attrs.PlatformDefault, nil, nil)
	guarded.Body = Bytecode{
		Instructions: []Instruction{
			{Op: OpNewObject, Dst: 0, Type: errHandle},
			{Op: OpThrow, A: 0},
			{Op: OpLoadConst, Dst: 2, Imm: 0xDEAD}, // unreachable
			{Op: OpReturn, A: 2},                   // handler target
		},
		Handlers: []ExceptionHandler{
			{TryStart: 0, TryEnd: 2, CatchType: errHandle, CatchPC: 3, CatchReg: 2},
		},
	}

	cpu := v.NewCPU()
	got, err := cpu.Call(guarded, nil)
	if err != nil {
		t.Fatalf("guarded: %v", err)
	}
	if got.Ref.IsNull() {
		t.Fatal("caught register is null, want the thrown exception reference")
	}
	table, err := got.Ref.MethodTable()
	if err != nil {
		t.Fatalf("MethodTable: %v", err)
	}
	if table.Owner().Name() != "MyError" {
		t.Fatalf("caught object's type = %s, want MyError", table.Owner().Name())
	}
}

// A throw with no handler in scope propagates out of callBytecode as a
// *ThrownException, surviving unwinding through a nested call.
func TestThrowPropagatesThroughNestedCallsWhenUncaught(t *testing.T) {
	v, _, myError := newExceptionTestVM(t)
	errHandle := typesystem.NewLoaded(typesystem.ClassHandle(myError))

	inner := typesystem.NewMethod("inner", attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic), attrs.PlatformDefault, nil, nil)
	inner.Body = Bytecode{Instructions: []Instruction{
		{Op: OpNewObject, Dst: 0, Type: errHandle},
		{Op: OpThrow, A: 0},
	}}

	outer := typesystem.NewMethod("outer", attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic), attrs.PlatformDefault, nil, nil)
	outer.Body = Bytecode{Instructions: []Instruction{
		{Op: OpLoadConst, Dst: 0, Imm: 0},
		{Op: OpCallStatic, Dst: 1, A: 0, B: 0, Method: inner},
		{Op: OpReturn, A: 1},
	}}

	cpu := v.NewCPU()
	_, err := cpu.Call(outer, nil)
	if err == nil {
		t.Fatal("outer: want an error, got nil")
	}
	thrown, ok := err.(*ThrownException)
	if !ok {
		t.Fatalf("outer error = %T, want *ThrownException", err)
	}
	if thrown.Ref.IsNull() {
		t.Fatal("propagated exception reference is null")
	}
}

// A handler whose catch type does not match the thrown object's type
// does not intercept it: the exception keeps propagating.
func TestThrowSkipsNonMatchingHandler(t *testing.T) {
	v, core, myError := newExceptionTestVM(t)
	errHandle := typesystem.NewLoaded(typesystem.ClassHandle(myError))

	objectHandle, err := core.GetType(0)
	if err != nil {
		t.Fatalf("GetType(0): %v", err)
	}
	otherError := typesystem.NewClass("OtherError", attrs.NewTypeAttr(attrs.Public, 0), typesystem.NewLoaded(objectHandle), nil, nil)
	core.AddType(typesystem.ClassHandle(otherError))
	otherHandle := typesystem.NewLoaded(typesystem.ClassHandle(otherError))

	guarded := typesystem.NewMethod("guarded", attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic), attrs.PlatformDefault, nil, nil)
	guarded.Body = Bytecode{
		Instructions: []Instruction{
			{Op: OpNewObject, Dst: 0, Type: errHandle},
			{Op: OpThrow, A: 0},
			{Op: OpReturn, A: 2}, // unreachable handler target
		},
		Handlers: []ExceptionHandler{
			{TryStart: 0, TryEnd: 2, CatchType: otherHandle, CatchPC: 2, CatchReg: 2},
		},
	}

	cpu := v.NewCPU()
	_, err = cpu.Call(guarded, nil)
	if err == nil {
		t.Fatal("guarded: want an error, got nil")
	}
	if _, ok := err.(*ThrownException); !ok {
		t.Fatalf("guarded error = %T, want *ThrownException", err)
	}
}
