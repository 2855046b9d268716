package main

import (
	"testing"

	"github.com/PuraLingua/pura-lingua-sub001/attrs"
	"github.com/PuraLingua/pura-lingua-sub001/stdlib"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

func TestDumpAssemblyCoversEveryCoreType(t *testing.T) {
	mgr := typesystem.NewAssemblyManager()
	core, err := stdlib.Build(mgr)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	dump := dumpAssembly(mgr, core)

	if dump.Name != core.Name() {
		t.Fatalf("dump.Name = %q, want %q", dump.Name, core.Name())
	}
	if len(dump.Types) != core.Len() {
		t.Fatalf("len(dump.Types) = %d, want %d", len(dump.Types), core.Len())
	}

	var object *typeDump
	for i := range dump.Types {
		if dump.Types[i].Name == "System::Object" {
			object = &dump.Types[i]
		}
	}
	if object == nil {
		t.Fatalf("dump has no System::Object entry")
	}
	if object.Kind != "class" {
		t.Fatalf("System::Object.Kind = %q, want %q", object.Kind, "class")
	}
	if object.Parent != "" {
		t.Fatalf("System::Object.Parent = %q, want empty", object.Parent)
	}

	var toString *methodDump
	for i := range object.Methods {
		if object.Methods[i].Name == "ToString" {
			toString = &object.Methods[i]
		}
	}
	if toString == nil {
		t.Fatalf("System::Object has no ToString method")
	}
	if toString.Body != typesystem.IntrinsicBody.String() {
		t.Fatalf("ToString.Body = %q, want %q", toString.Body, typesystem.IntrinsicBody.String())
	}
}

func TestFieldAttrStringReportsEveryFlag(t *testing.T) {
	a := attrs.NewFieldAttr(attrs.Private, attrs.FieldStatic|attrs.FieldReadOnly)
	got := fieldAttrString(a)
	want := "private static readonly"
	if got != want {
		t.Fatalf("fieldAttrString() = %q, want %q", got, want)
	}
}

func TestMethodAttrStringReportsEveryFlag(t *testing.T) {
	a := attrs.NewMethodAttr(attrs.Public, attrs.MethodStatic|attrs.MethodVirtual)
	got := methodAttrString(a)
	want := "public static virtual"
	if got != want {
		t.Fatalf("methodAttrString() = %q, want %q", got, want)
	}
}

func TestResolveTypeNameFallsBackToUnresolvedRef(t *testing.T) {
	mgr := typesystem.NewAssemblyManager()
	ref := typesystem.NewUnloaded(&typesystem.TypeRef{Assembly: "NotLoaded", Index: 3})

	got := resolveTypeName(mgr, ref)
	want := ref.String()
	if got != want {
		t.Fatalf("resolveTypeName() = %q, want %q", got, want)
	}
}
