package gc_test

import (
	"testing"

	"github.com/PuraLingua/pura-lingua-sub001/attrs"
	"github.com/PuraLingua/pura-lingua-sub001/gc"
	"github.com/PuraLingua/pura-lingua-sub001/stdlib"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
	"github.com/PuraLingua/pura-lingua-sub001/vm"
)

func newGCTestVM(t *testing.T) (*vm.VM, *typesystem.Assembly, *typesystem.Class) {
	t.Helper()
	mgr := typesystem.NewAssemblyManager()
	core := typesystem.NewAssembly("core", true)
	if err := mgr.Add(core); err != nil {
		t.Fatalf("Add(core): %v", err)
	}

	obj := typesystem.NewClass("System::Object", attrs.NewTypeAttr(attrs.Public, 0), nil, nil, nil)
	core.AddType(typesystem.ClassHandle(obj))

	node := typesystem.NewClass("Node", attrs.NewTypeAttr(attrs.Public, 0), typesystem.NewLoaded(typesystem.ClassHandle(obj)), nil, nil)
	core.AddType(typesystem.ClassHandle(node))

	return vm.NewVM(mgr, vm.DefaultConfig()), core, node
}

// S6: an object a CPU allocated but never stores into a register that
// outlives the call, and never publishes to a static field, is
// unreachable the moment the call returns, and Collect sweeps it.
func TestCollectSweepsUnreachableObject(t *testing.T) {
	v, _, node := newGCTestVM(t)
	nodeHandle := typesystem.NewLoaded(typesystem.ClassHandle(node))

	allocateOnly := typesystem.NewMethod("allocate-only", attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic), attrs.PlatformDefault, nil, nodeHandle)
	allocateOnly.Body = vm.Bytecode{Instructions: []vm.Instruction{
		{Op: vm.OpNewObject, Dst: 0, Type: nodeHandle},
		{Op: vm.OpReturn, A: 0},
	}}
	cpu := v.NewCPU()
	if _, err := cpu.Call(allocateOnly, nil); err != nil {
		t.Fatalf("allocate-only: %v", err)
	}
	if len(cpu.MemoryRecords()) != 1 {
		t.Fatalf("MemoryRecords = %d, want 1 before collection", len(cpu.MemoryRecords()))
	}

	stats, err := gc.Collect(v)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if stats.Marked != 0 {
		t.Fatalf("Marked = %d, want 0 (nothing reaches the allocated object)", stats.Marked)
	}
	if stats.Swept != 1 {
		t.Fatalf("Swept = %d, want 1", stats.Swept)
	}
	if len(cpu.MemoryRecords()) != 0 {
		t.Fatalf("MemoryRecords = %d, want 0 after collection", len(cpu.MemoryRecords()))
	}
}

// An object published to a static field survives collection, and stays
// readable afterward.
func TestCollectKeepsStaticRoot(t *testing.T) {
	v, core, node := newGCTestVM(t)
	nodeHandle := typesystem.NewLoaded(typesystem.ClassHandle(node))

	rootField := typesystem.NewField("Root", attrs.NewFieldAttr(attrs.Public, attrs.FieldStatic), nodeHandle)
	publish := typesystem.NewMethod("publish", attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic), attrs.PlatformDefault, nil, nil)
	readBack := typesystem.NewMethod("read-back", attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic), attrs.PlatformDefault, nil, nodeHandle)

	registry := typesystem.NewClass("Registry", attrs.NewTypeAttr(attrs.Public, 0), typesystem.NewLoaded(typesystem.ClassHandle(node)),
		[]*typesystem.Field{rootField}, []*typesystem.Method{publish, readBack})
	core.AddType(typesystem.ClassHandle(registry))

	publish.Body = vm.Bytecode{Instructions: []vm.Instruction{
		{Op: vm.OpNewObject, Dst: 0, Type: nodeHandle},
		{Op: vm.OpStoreStaticField, A: 0, Field: rootField, Method: publish},
		{Op: vm.OpReturn, A: 0},
	}}
	readBack.Body = vm.Bytecode{Instructions: []vm.Instruction{
		{Op: vm.OpLoadStaticField, Dst: 0, Field: rootField, Method: readBack},
		{Op: vm.OpReturn, A: 0},
	}}

	cpu := v.NewCPU()
	if _, err := cpu.Call(publish, nil); err != nil {
		t.Fatalf("publish: %v", err)
	}

	stats, err := gc.Collect(v)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if stats.Swept != 0 {
		t.Fatalf("Swept = %d, want 0 (the static field still reaches the object)", stats.Swept)
	}
	if stats.Marked == 0 {
		t.Fatalf("Marked = 0, want at least the static block and the published node")
	}

	got, err := cpu.Call(readBack, nil)
	if err != nil {
		t.Fatalf("read-back: %v", err)
	}
	if got.Ref.IsNull() {
		t.Fatalf("Root field is null after collection, want the published object")
	}
}

// newGCArrayTestVM builds its manager from the standard library rather
// than newGCTestVM's minimal hand-built assembly, since exercising
// OpNewArray needs a properly registered System::Array`1 at
// typesystem.CoreArray1's index.
func newGCArrayTestVM(t *testing.T) (*vm.VM, *typesystem.Assembly, *typesystem.Class) {
	t.Helper()
	mgr := typesystem.NewAssemblyManager()
	core, err := stdlib.Build(mgr)
	if err != nil {
		t.Fatalf("stdlib.Build: %v", err)
	}

	objectHandle, err := mgr.GetCoreType(typesystem.CoreObject)
	if err != nil {
		t.Fatalf("GetCoreType(CoreObject): %v", err)
	}

	node := typesystem.NewClass("Node", attrs.NewTypeAttr(attrs.Public, 0), typesystem.NewLoaded(objectHandle), nil, nil)
	core.AddType(typesystem.ClassHandle(node))

	return vm.NewVM(mgr, vm.DefaultConfig()), core, node
}

// An array reachable only through a static field keeps its
// reference-typed elements alive too, not just the array object
// itself: marking a CoreArray1 instance must recurse into elements
// AllocArray recorded as references.
func TestCollectKeepsArrayElementsReachableThroughArray(t *testing.T) {
	v, core, node := newGCArrayTestVM(t)
	nodeHandle := typesystem.NewLoaded(typesystem.ClassHandle(node))

	arrayCoreHandle, err := v.Manager().GetCoreType(typesystem.CoreArray1)
	if err != nil {
		t.Fatalf("GetCoreType(CoreArray1): %v", err)
	}
	arrayHandle := typesystem.NewLoaded(arrayCoreHandle)

	itemsField := typesystem.NewField("Items", attrs.NewFieldAttr(attrs.Public, attrs.FieldStatic), arrayHandle)
	publish := typesystem.NewMethod("publish", attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic), attrs.PlatformDefault, nil, nil)
	readBack := typesystem.NewMethod("read-back", attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic), attrs.PlatformDefault, nil, nodeHandle)

	registry := typesystem.NewClass("Registry", attrs.NewTypeAttr(attrs.Public, 0), typesystem.NewLoaded(typesystem.ClassHandle(node)),
		[]*typesystem.Field{itemsField}, []*typesystem.Method{publish, readBack})
	core.AddType(typesystem.ClassHandle(registry))

	publish.Body = vm.Bytecode{Instructions: []vm.Instruction{
		{Op: vm.OpLoadConst, Dst: 1, Imm: 1},
		{Op: vm.OpNewArray, Dst: 0, A: 1, Type: nodeHandle},
		{Op: vm.OpNewObject, Dst: 2, Type: nodeHandle},
		{Op: vm.OpLoadConst, Dst: 3, Imm: 0},
		{Op: vm.OpStoreElement, Dst: 2, A: 0, B: 3, Type: nodeHandle},
		{Op: vm.OpStoreStaticField, A: 0, Field: itemsField, Method: publish},
		{Op: vm.OpReturn, A: 0},
	}}
	readBack.Body = vm.Bytecode{Instructions: []vm.Instruction{
		{Op: vm.OpLoadStaticField, Dst: 0, Field: itemsField, Method: readBack},
		{Op: vm.OpLoadConst, Dst: 1, Imm: 0},
		{Op: vm.OpLoadElement, Dst: 2, A: 0, B: 1, Type: nodeHandle},
		{Op: vm.OpReturn, A: 2},
	}}

	cpu := v.NewCPU()
	if _, err := cpu.Call(publish, nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(cpu.MemoryRecords()) != 2 {
		t.Fatalf("MemoryRecords = %d, want 2 (the array and its one element)", len(cpu.MemoryRecords()))
	}

	stats, err := gc.Collect(v)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if stats.Swept != 0 {
		t.Fatalf("Swept = %d, want 0 (the array and its element are both reachable)", stats.Swept)
	}

	got, err := cpu.Call(readBack, nil)
	if err != nil {
		t.Fatalf("read-back: %v", err)
	}
	if got.Ref.IsNull() {
		t.Fatalf("array element is null after collection, want the published node")
	}
}
