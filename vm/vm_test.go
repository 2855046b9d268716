package vm

import (
	"testing"

	"github.com/PuraLingua/pura-lingua-sub001/attrs"
	"github.com/PuraLingua/pura-lingua-sub001/object"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

func newTestVM(t *testing.T) (*VM, *typesystem.AssemblyManager, *typesystem.Assembly, *typesystem.Struct, *typesystem.Class) {
	t.Helper()
	mgr := typesystem.NewAssemblyManager()
	core := typesystem.NewAssembly("core", true)
	if err := mgr.Add(core); err != nil {
		t.Fatalf("Add(core): %v", err)
	}

	i32 := typesystem.NewPrimitiveStruct("System::Int32", attrs.NewTypeAttr(attrs.Public, attrs.TypeValueType), 4, 4, nil)
	core.AddType(typesystem.StructHandle(i32))

	obj := typesystem.NewClass("System::Object", attrs.NewTypeAttr(attrs.Public, 0), nil, nil, nil)
	core.AddType(typesystem.ClassHandle(obj))

	vm := NewVM(mgr, DefaultConfig())
	return vm, mgr, core, i32, obj
}

func int32Handle(i32 *typesystem.Struct) *typesystem.MaybeUnloadedTypeHandle {
	return typesystem.NewLoaded(typesystem.StructHandle(i32))
}

// S2: a static field survives across independent loads and stores
// issued from different call frames, and is shared by every CPU on the
// same VM.
func TestStaticFieldWriteThenRead(t *testing.T) {
	vm, _, core, i32, obj := newTestVM(t)

	counterField := typesystem.NewField("Counter", attrs.NewFieldAttr(attrs.Public, attrs.FieldStatic), int32Handle(i32))
	setMethod := typesystem.NewMethod("Set", attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic), attrs.PlatformDefault, nil, nil)
	getMethod := typesystem.NewMethod("Get", attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic), attrs.PlatformDefault, nil, int32Handle(i32))

	counter := typesystem.NewClass("Counter", attrs.NewTypeAttr(attrs.Public, 0), typesystem.NewLoaded(typesystem.ClassHandle(obj)),
		[]*typesystem.Field{counterField}, []*typesystem.Method{setMethod, getMethod})
	core.AddType(typesystem.ClassHandle(counter))

	setMethod.Body = Bytecode{Instructions: []Instruction{
		{Op: OpStoreStaticField, A: 0, Field: counterField, Method: setMethod},
		{Op: OpReturn, A: 0},
	}}
	getMethod.Body = Bytecode{Instructions: []Instruction{
		{Op: OpLoadStaticField, Dst: 0, Field: counterField, Method: getMethod},
		{Op: OpReturn, A: 0},
	}}

	cpu := vm.NewCPU()

	if _, err := cpu.Call(setMethod, []Register{FromBits(42)}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := cpu.Call(getMethod, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Bits != 42 {
		t.Fatalf("Counter = %d, want 42", got.Bits)
	}

	// A second CPU on the same VM must see the same static storage.
	cpu2 := vm.NewCPU()
	got2, err := cpu2.Call(getMethod, nil)
	if err != nil {
		t.Fatalf("Get (second CPU): %v", err)
	}
	if got2.Bits != 42 {
		t.Fatalf("Counter on second CPU = %d, want 42", got2.Bits)
	}
}

// S5 (continued end to end): calling a virtual method through a
// reference typed as the base class dispatches to the derived
// override, exercising CPU.Call -> dispatchCall -> MethodTable.Virtual.
func TestCallVirtualDispatchesToOverride(t *testing.T) {
	vm, mgr, core, _, obj := newTestVM(t)

	identify := typesystem.NewMethod("Identify", attrs.NewMethodAttr(attrs.Public, attrs.MethodVirtual), attrs.PlatformDefault, nil, nil)
	base := typesystem.NewClass("Base", attrs.NewTypeAttr(attrs.Public, 0), typesystem.NewLoaded(typesystem.ClassHandle(obj)), nil, []*typesystem.Method{identify})
	core.AddType(typesystem.ClassHandle(base))
	identify.Body = Bytecode{Instructions: []Instruction{
		{Op: OpLoadConst, Dst: 0, Imm: 1},
		{Op: OpReturn, A: 0},
	}}

	identifyOverride := typesystem.NewMethod("Identify", attrs.NewMethodAttr(attrs.Public, attrs.MethodVirtual|attrs.MethodOverride), attrs.PlatformDefault, nil, nil)
	derived := typesystem.NewClass("Derived", attrs.NewTypeAttr(attrs.Public, 0), typesystem.NewLoaded(typesystem.ClassHandle(base)), nil, []*typesystem.Method{identifyOverride})
	core.AddType(typesystem.ClassHandle(derived))
	identifyOverride.Body = Bytecode{Instructions: []Instruction{
		{Op: OpLoadConst, Dst: 0, Imm: 2},
		{Op: OpReturn, A: 0},
	}}

	instance, err := object.CommonAlloc(mgr, derived.Table(), false)
	if err != nil {
		t.Fatalf("allocate Derived: %v", err)
	}

	callSite := typesystem.NewMethod("call-site", attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic), attrs.PlatformDefault, nil, nil)
	callSite.Body = Bytecode{Instructions: []Instruction{
		{Op: OpCallVirtual, Dst: 1, A: 0, B: 0, Method: identify},
		{Op: OpReturn, A: 1},
	}}

	cpu := vm.NewCPU()
	got, err := cpu.Call(callSite, []Register{FromRef(instance)})
	if err != nil {
		t.Fatalf("call-site: %v", err)
	}
	if got.Bits != 2 {
		t.Fatalf("Identify() = %d, want 2 (the override's value)", got.Bits)
	}
}

// An array's elements round-trip through the same register-cell bit
// pattern StoreElement writes and LoadElement reads back.
func TestArrayStoreAndLoadElement(t *testing.T) {
	vm, mgr, core, i32, _ := newTestVM(t)

	arrayClass := typesystem.NewClass("System::Array`1", attrs.NewTypeAttr(attrs.Public, 0), nil, nil, nil)
	core.AddType(typesystem.ClassHandle(arrayClass))

	elemType := int32Handle(i32)
	arr, err := object.AllocArray(arrayClass.Table(), 4, 4, false)
	if err != nil {
		t.Fatalf("AllocArray: %v", err)
	}

	access := typesystem.NewMethod("access", attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic), attrs.PlatformDefault, nil, nil)
	access.Body = Bytecode{Instructions: []Instruction{
		{Op: OpLoadConst, Dst: 1, Imm: 99},
		{Op: OpLoadConst, Dst: 2, Imm: 0},
		{Op: OpStoreElement, Dst: 1, A: 0, B: 2, Type: elemType},
		{Op: OpLoadElement, Dst: 3, A: 0, B: 2, Type: elemType},
		{Op: OpReturn, A: 3},
	}}

	cpu := vm.NewCPU()
	got, err := cpu.Call(access, []Register{FromRef(arr)})
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	if got.Bits != 99 {
		t.Fatalf("element round-trip = %d, want 99", got.Bits)
	}

	_ = mgr
}
