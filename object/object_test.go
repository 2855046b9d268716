package object

import (
	"testing"

	"github.com/PuraLingua/pura-lingua-sub001/attrs"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

func newTestAssembly(t *testing.T) (*typesystem.AssemblyManager, *typesystem.Struct, *typesystem.MethodTable) {
	t.Helper()
	mgr := typesystem.NewAssemblyManager()
	core := typesystem.NewAssembly(typesystem.CoreAssemblyName, true)
	if err := mgr.Add(core); err != nil {
		t.Fatalf("Add(core): %v", err)
	}

	i32 := typesystem.NewPrimitiveStruct("System::Int32", attrs.NewTypeAttr(attrs.Public, attrs.TypeValueType), 4, 4, nil)
	core.AddType(typesystem.StructHandle(i32))

	object := typesystem.NewClass("System::Object", attrs.NewTypeAttr(attrs.Public, 0), nil, nil, nil)
	core.AddType(typesystem.ClassHandle(object))

	stringClass := typesystem.NewClass("System::String", attrs.NewTypeAttr(attrs.Public, 0), typesystem.NewLoaded(typesystem.ClassHandle(object)), nil, nil)
	stringClass.Table().SetCoreTypeID(typesystem.CoreString)
	core.AddType(typesystem.ClassHandle(stringClass))

	largeStringClass := typesystem.NewClass("System::LargeString", attrs.NewTypeAttr(attrs.Public, 0), typesystem.NewLoaded(typesystem.ClassHandle(object)), nil, nil)
	largeStringClass.Table().SetCoreTypeID(typesystem.CoreLargeString)
	core.AddType(typesystem.ClassHandle(largeStringClass))

	return mgr, i32, stringClass.Table()
}

// S3: a managed string round-trips through UTF-16 storage.
func TestManagedStringRoundTrip(t *testing.T) {
	_, _, stringTable := newTestAssembly(t)

	r, err := NewManagedString(stringTable, "hello, 世界")
	if err != nil {
		t.Fatalf("NewManagedString: %v", err)
	}

	acc, err := NewStringAccessor(r)
	if err != nil {
		t.Fatalf("NewStringAccessor: %v", err)
	}

	got, err := acc.String()
	if err != nil {
		t.Fatalf("String(): %v", err)
	}
	if got != "hello, 世界" {
		t.Fatalf("got %q, want %q", got, "hello, 世界")
	}
}

func TestLargeStringRoundTrip(t *testing.T) {
	mgr := typesystem.NewAssemblyManager()
	core := typesystem.NewAssembly(typesystem.CoreAssemblyName, true)
	if err := mgr.Add(core); err != nil {
		t.Fatalf("Add: %v", err)
	}
	object := typesystem.NewClass("System::Object", attrs.NewTypeAttr(attrs.Public, 0), nil, nil, nil)
	core.AddType(typesystem.ClassHandle(object))
	largeStringClass := typesystem.NewClass("System::LargeString", attrs.NewTypeAttr(attrs.Public, 0), typesystem.NewLoaded(typesystem.ClassHandle(object)), nil, nil)
	largeStringClass.Table().SetCoreTypeID(typesystem.CoreLargeString)
	core.AddType(typesystem.ClassHandle(largeStringClass))

	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	r, err := NewManagedLargeString(largeStringClass.Table(), string(payload))
	if err != nil {
		t.Fatalf("NewManagedLargeString: %v", err)
	}

	acc, err := NewLargeStringAccessor(r)
	if err != nil {
		t.Fatalf("NewLargeStringAccessor: %v", err)
	}

	got, err := acc.String()
	if err != nil {
		t.Fatalf("String(): %v", err)
	}
	if got != string(payload) {
		t.Fatal("large string payload mismatch")
	}
}

func TestFieldAccessorMatchesComputedLayout(t *testing.T) {
	mgr, i32, _ := newTestAssembly(t)

	fieldA := typesystem.NewField("a", attrs.NewFieldAttr(attrs.Public, 0), typesystem.NewLoaded(typesystem.StructHandle(i32)))
	fieldB := typesystem.NewField("b", attrs.NewFieldAttr(attrs.Public, 0), typesystem.NewLoaded(typesystem.StructHandle(i32)))
	point := typesystem.NewClass("Point", attrs.NewTypeAttr(attrs.Public, 0), nil, []*typesystem.Field{fieldA, fieldB}, nil)

	obj, err := CommonAlloc(mgr, point.Table(), false)
	if err != nil {
		t.Fatalf("CommonAlloc: %v", err)
	}

	acc, err := NewFieldAccessor(mgr, obj)
	if err != nil {
		t.Fatalf("NewFieldAccessor: %v", err)
	}

	pa, err := acc.Field(fieldA)
	if err != nil {
		t.Fatalf("Field(a): %v", err)
	}
	pb, err := acc.Field(fieldB)
	if err != nil {
		t.Fatalf("Field(b): %v", err)
	}

	*(*int32)(pa) = 10
	*(*int32)(pb) = 20

	if *(*int32)(pa) != 10 || *(*int32)(pb) != 20 {
		t.Fatal("field writes did not round trip")
	}
	if pa == pb {
		t.Fatal("fields a and b resolved to the same address")
	}
}

func TestArrayAllocationAndIndexing(t *testing.T) {
	mgr, i32, _ := newTestAssembly(t)
	_ = mgr

	arrClass := typesystem.NewClass("System::Array`1<System::Int32>", attrs.NewTypeAttr(attrs.Public, 0), nil, nil, nil)
	arrClass.Table().SetCoreTypeID(typesystem.CoreArray1)

	size, _, err := typesystem.SizeAlign(mgr, typesystem.StructHandle(i32))
	if err != nil {
		t.Fatalf("SizeAlign: %v", err)
	}

	r, err := AllocArray(arrClass.Table(), size, 4, false)
	if err != nil {
		t.Fatalf("AllocArray: %v", err)
	}

	acc, err := NewArrayAccessor(r, size)
	if err != nil {
		t.Fatalf("NewArrayAccessor: %v", err)
	}

	n, err := acc.Len()
	if err != nil || n != 4 {
		t.Fatalf("Len() = %d, %v, want 4", n, err)
	}

	for i := 0; i < 4; i++ {
		p, err := acc.ElementPtr(i)
		if err != nil {
			t.Fatalf("ElementPtr(%d): %v", i, err)
		}
		*(*int32)(p) = int32(i * 10)
	}

	for i := 0; i < 4; i++ {
		p, err := acc.ElementPtr(i)
		if err != nil {
			t.Fatalf("ElementPtr(%d): %v", i, err)
		}
		if got := *(*int32)(p); got != int32(i*10) {
			t.Fatalf("element %d = %d, want %d", i, got, i*10)
		}
	}

	if _, err := acc.ElementPtr(4); err == nil {
		t.Fatal("ElementPtr(4) succeeded on a length-4 array")
	}
}

func TestMarkBitRoundTrip(t *testing.T) {
	mgr, _, _ := newTestAssembly(t)
	object := typesystem.NewClass("System::Object", attrs.NewTypeAttr(attrs.Public, 0), nil, nil, nil)

	r, err := CommonAlloc(mgr, object.Table(), false)
	if err != nil {
		t.Fatalf("CommonAlloc: %v", err)
	}

	h, err := r.Header()
	if err != nil || h.Marked() {
		t.Fatalf("freshly allocated object is marked: %v, %v", h, err)
	}

	if err := r.SetMarked(true); err != nil {
		t.Fatalf("SetMarked: %v", err)
	}
	h, err = r.Header()
	if err != nil || !h.Marked() {
		t.Fatalf("SetMarked(true) did not stick: %v, %v", h, err)
	}
}
