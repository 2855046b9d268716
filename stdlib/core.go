// Package stdlib builds the standard library's core assembly: the
// fixed set of types every other assembly can assume exist without
// declaring a dependency on them (§4.9). Build registers every
// CoreTypeId position, in the exact order the typesystem package's
// CoreTypeId enumeration assigns them, since AssemblyManager.GetCoreType
// resolves a core type id by indexing straight into the core
// assembly's type table.
package stdlib

import (
	"sort"

	"github.com/PuraLingua/pura-lingua-sub001/attrs"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
	"github.com/PuraLingua/pura-lingua-sub001/vm"
)

// sizes of the host's fixed-width primitive leaves, in bytes.
const (
	size1 = 1
	size2 = 2
	size4 = 4
	size8 = 8
)

// Build constructs the core assembly, registers it under
// typesystem.CoreAssemblyName, and wires its default intrinsic method
// bodies (ToString, Finalize). Call this once per AssemblyManager
// before loading any other assembly, the way the original runtime
// loads its stdlib crate first (§4.9).
func Build(mgr *typesystem.AssemblyManager) (*typesystem.Assembly, error) {
	core := typesystem.NewAssembly(typesystem.CoreAssemblyName, true)
	if err := mgr.Add(core); err != nil {
		return nil, err
	}

	b := &builder{}
	b.build()

	sort.SliceStable(b.ordered, func(i, j int) bool { return b.ordered[i].id < b.ordered[j].id })
	for _, t := range b.ordered {
		core.AddType(t.handle)
		t.handle.MethodTable().SetCoreTypeID(t.id)
	}

	return core, nil
}

type coreType struct {
	id     typesystem.CoreTypeId
	handle typesystem.TypeHandle
}

// builder assembles every core type before any of them are registered
// into the assembly, so later types' fields can reference earlier
// types (and vice versa, since the Go object graph has no load-order
// constraint the way a sequential on-disk format would) without regard
// to their final CoreTypeId index.
type builder struct {
	ordered []coreType
}

func (b *builder) add(id typesystem.CoreTypeId, h typesystem.TypeHandle) typesystem.TypeHandle {
	b.ordered = append(b.ordered, coreType{id: id, handle: h})
	return h
}

func pub(flags attrs.TypeAttr) attrs.TypeAttr { return attrs.NewTypeAttr(attrs.Public, flags) }

func loaded(h typesystem.TypeHandle) *typesystem.MaybeUnloadedTypeHandle {
	return typesystem.NewLoaded(h)
}

func prim(name string, size, align uintptr) typesystem.TypeHandle {
	return typesystem.StructHandle(typesystem.NewPrimitiveStruct(name, pub(attrs.TypeValueType), size, align, nil))
}

func (b *builder) build() {
	object := typesystem.NewClass("System::Object", pub(0), nil, nil, []*typesystem.Method{
		typesystem.NewMethod("ToString", attrs.NewMethodAttr(attrs.Public, attrs.MethodVirtual), attrs.PlatformDefault, nil, nil),
		typesystem.NewMethod("Finalize", attrs.NewMethodAttr(attrs.Public, attrs.MethodVirtual), attrs.PlatformDefault, nil, nil),
	})
	objectHandle := b.add(typesystem.CoreObject, typesystem.ClassHandle(object))
	objectRef := loaded(objectHandle)

	if m, err := object.Table().FindVirtual("ToString"); err == nil {
		m.Body = vm.Intrinsic(objectToString)
	}
	if m, err := object.Table().FindVirtual("Finalize"); err == nil {
		m.Body = vm.Intrinsic(objectFinalize)
	}

	valueType := typesystem.NewClass("System::ValueType", pub(0), objectRef, nil, nil)
	b.add(typesystem.CoreValueType, typesystem.ClassHandle(valueType))

	b.add(typesystem.CoreVoid, prim("System::Void", 0, 1))

	boolean := prim("System::Boolean", size1, size1)
	b.add(typesystem.CoreBoolean, boolean)

	nullable := typesystem.NewStruct("System::Nullable`1", pub(attrs.TypeValueType), []*typesystem.Field{
		typesystem.NewField("HasValue", attrs.NewFieldAttr(attrs.Public, 0), loaded(boolean)),
		typesystem.NewField("Value", attrs.NewFieldAttr(attrs.Public, 0), typesystem.NewTypeVar(0)),
	}, nil)
	nullable.Bounds = &typesystem.GenericBounds{ParamCount: 1}
	b.add(typesystem.CoreNullable1, typesystem.StructHandle(nullable))

	u8 := prim("System::UInt8", size1, size1)
	u32 := prim("System::UInt32", size4, size4)

	b.add(typesystem.CoreUInt8, u8)
	b.add(typesystem.CoreUInt16, prim("System::UInt16", size2, size2))
	b.add(typesystem.CoreUInt32, u32)
	b.add(typesystem.CoreUInt64, prim("System::UInt64", size8, size8))
	b.add(typesystem.CoreUSize, prim("System::USize", size8, size8))

	b.add(typesystem.CoreInt8, prim("System::Int8", size1, size1))
	b.add(typesystem.CoreInt16, prim("System::Int16", size2, size2))
	i32 := prim("System::Int32", size4, size4)
	b.add(typesystem.CoreInt32, i32)
	b.add(typesystem.CoreInt64, prim("System::Int64", size8, size8))
	b.add(typesystem.CoreISize, prim("System::ISize", size8, size8))

	b.add(typesystem.CoreChar, prim("System::Char", size2, size2))
	b.add(typesystem.CorePointer, prim("System::Pointer", size8, size8))

	// System::String is built ahead of NonPurusCallConfiguration's fields
	// below even though its CoreTypeId comes later: the Go object graph
	// has no load-order constraint, only the final AddType sequence does.
	str := typesystem.NewClass("System::String", pub(0), objectRef, nil, nil)
	strHandle := typesystem.ClassHandle(str)

	nonPurusCallType := prim("System::NonPurusCallType", size1, size1)

	nonPurusCallConfig := typesystem.NewClass("System::NonPurusCallConfiguration", pub(0), objectRef, []*typesystem.Field{
		typesystem.NewField("Type", attrs.NewFieldAttr(attrs.Public, 0), loaded(nonPurusCallType)),
		typesystem.NewField("Library", attrs.NewFieldAttr(attrs.Public, 0), loaded(strHandle)),
		typesystem.NewField("Symbol", attrs.NewFieldAttr(attrs.Public, 0), loaded(strHandle)),
		typesystem.NewField("Ordinal", attrs.NewFieldAttr(attrs.Public, 0), loaded(u32)),
		typesystem.NewField("Convention", attrs.NewFieldAttr(attrs.Public, 0), loaded(u8)),
	}, nil)
	b.add(typesystem.CoreNonPurusCallConfiguration, typesystem.ClassHandle(nonPurusCallConfig))
	b.add(typesystem.CoreNonPurusCallType, nonPurusCallType)

	dynLib := typesystem.NewClass("System::DynamicLibrary", pub(0), objectRef, []*typesystem.Field{
		typesystem.NewField("Handle", attrs.NewFieldAttr(attrs.Public, 0), loaded(u32)),
		typesystem.NewField("Path", attrs.NewFieldAttr(attrs.Public, 0), loaded(strHandle)),
	}, nil)
	b.add(typesystem.CoreDynamicLibrary, typesystem.ClassHandle(dynLib))

	array := typesystem.NewClass("System::Array`1", pub(0), objectRef, nil, nil)
	array.Bounds = &typesystem.GenericBounds{ParamCount: 1}
	b.add(typesystem.CoreArray1, typesystem.ClassHandle(array))

	b.add(typesystem.CoreString, strHandle)

	largeString := typesystem.NewClass("System::LargeString", pub(0), objectRef, nil, nil)
	b.add(typesystem.CoreLargeString, typesystem.ClassHandle(largeString))

	messageField := typesystem.NewField("Message", attrs.NewFieldAttr(attrs.Public, 0), loaded(strHandle))
	exceptionCtor := typesystem.NewMethod(".ctor", attrs.NewMethodAttr(attrs.Public, attrs.MethodConstructor), attrs.PlatformDefault,
		[]typesystem.Parameter{{Type: loaded(strHandle)}}, nil)
	exceptionCtor.Body = vm.Bytecode{Instructions: []vm.Instruction{
		{Op: vm.OpStoreField, A: 0, B: 1, Field: messageField},
		{Op: vm.OpReturn, A: 0},
	}}
	exception := typesystem.NewClass("System::Exception", pub(0), objectRef,
		[]*typesystem.Field{messageField}, []*typesystem.Method{exceptionCtor})
	exceptionHandle := b.add(typesystem.CoreException, typesystem.ClassHandle(exception))
	exceptionRef := loaded(exceptionHandle)

	invalidEnum := subException("System::InvalidEnumException", exceptionRef, messageField, strHandle)
	b.add(typesystem.CoreInvalidEnumException, typesystem.ClassHandle(invalidEnum))

	win32 := subExceptionWithField("System::Win32Exception", exceptionRef, messageField, strHandle, "Code", loaded(i32))
	b.add(typesystem.CoreWin32Exception, typesystem.ClassHandle(win32))

	errnoExc := subExceptionWithField("System::ErrnoException", exceptionRef, messageField, strHandle, "Errno", loaded(i32))
	b.add(typesystem.CoreErrnoException, typesystem.ClassHandle(errnoExc))

	dlError := subException("System::DlErrorException", exceptionRef, messageField, strHandle)
	b.add(typesystem.CoreDlErrorException, typesystem.ClassHandle(dlError))
}

// subException builds one of the exception-hierarchy leaf classes that
// adds nothing beyond the inherited Message field, per
// original_source/runtime/src/stdlib/System/*.rs's simple constructor
// that stores a message string and defers everything else to Object.
func subException(name string, parent *typesystem.MaybeUnloadedTypeHandle, messageField *typesystem.Field, strHandle typesystem.TypeHandle) *typesystem.Class {
	ctor := typesystem.NewMethod(".ctor", attrs.NewMethodAttr(attrs.Public, attrs.MethodConstructor), attrs.PlatformDefault,
		[]typesystem.Parameter{{Type: loaded(strHandle)}}, nil)
	ctor.Body = vm.Bytecode{Instructions: []vm.Instruction{
		{Op: vm.OpStoreField, A: 0, B: 1, Field: messageField},
		{Op: vm.OpReturn, A: 0},
	}}
	return typesystem.NewClass(name, pub(0), parent, nil, []*typesystem.Method{ctor})
}

// subExceptionWithField builds an exception-hierarchy leaf that, beyond
// the inherited Message field, also stores one platform-error-code
// field (Win32Exception's Code, ErrnoException's Errno), per the
// supplemented Win32/errno exception wrapping feature.
func subExceptionWithField(name string, parent *typesystem.MaybeUnloadedTypeHandle, messageField *typesystem.Field, strHandle typesystem.TypeHandle, fieldName string, fieldType *typesystem.MaybeUnloadedTypeHandle) *typesystem.Class {
	codeField := typesystem.NewField(fieldName, attrs.NewFieldAttr(attrs.Public, 0), fieldType)
	ctor := typesystem.NewMethod(".ctor", attrs.NewMethodAttr(attrs.Public, attrs.MethodConstructor), attrs.PlatformDefault,
		[]typesystem.Parameter{{Type: loaded(strHandle)}, {Type: fieldType}}, nil)
	ctor.Body = vm.Bytecode{Instructions: []vm.Instruction{
		{Op: vm.OpStoreField, A: 0, B: 1, Field: messageField},
		{Op: vm.OpStoreField, A: 0, B: 2, Field: codeField},
		{Op: vm.OpReturn, A: 0},
	}}
	return typesystem.NewClass(name, pub(0), parent, []*typesystem.Field{codeField}, []*typesystem.Method{ctor})
}
