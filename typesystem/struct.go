package typesystem

import (
	"fmt"
	"sync"

	"github.com/PuraLingua/pura-lingua-sub001/attrs"
	"golang.org/x/sync/singleflight"
)

// Struct is a value type definition (§3 "Struct"). Struct values are
// embedded inline wherever they are used: as object fields, as array
// elements, and as local variables on the CPU's stack. A handful of
// structs are marked Primitive: these are the standard library's
// intrinsic leaves (System::Int32, System::Boolean, ...) whose size and
// alignment come directly from the host rather than from a Fields
// list.
type Struct struct {
	name   string
	attr   attrs.TypeAttr
	Fields []*Field
	Bounds *GenericBounds

	Primitive      bool
	PrimitiveSize  uintptr
	PrimitiveAlign uintptr

	table *MethodTable

	generics structGenericCache
}

// NewStruct builds a non-generic (or generic-definition) struct.
func NewStruct(name string, attr attrs.TypeAttr, fields []*Field, methods []*Method) *Struct {
	s := &Struct{name: name, attr: attr, Fields: fields}
	s.table = NewMethodTable(StructHandle(s), nil, methods)
	s.generics.group = &singleflight.Group{}
	s.generics.cache = make(map[string]*Struct)
	return s
}

// NewPrimitiveStruct builds one of the standard library's intrinsic
// value types, whose layout is fixed by the host rather than computed
// from a field list (§4.9).
func NewPrimitiveStruct(name string, attr attrs.TypeAttr, size, align uintptr, methods []*Method) *Struct {
	s := &Struct{name: name, attr: attr, Primitive: true, PrimitiveSize: size, PrimitiveAlign: align}
	s.table = NewMethodTable(StructHandle(s), nil, methods)
	return s
}

func (s *Struct) Name() string         { return s.name }
func (s *Struct) Attr() attrs.TypeAttr { return s.attr }
func (s *Struct) Table() *MethodTable  { return s.table }
func (s *Struct) IsGenericDefinition() bool { return s.Bounds.arity() > 0 }

// Instantiate produces the Struct object for this generic definition
// applied to args, memoized by argument identity so repeated
// instantiation returns the same object (§4.4 Invariant 4: "A Struct
// additionally holds a cache of generic instantiations").
func (s *Struct) Instantiate(mgr *AssemblyManager, args []TypeHandle) (*Struct, error) {
	if s.Bounds.arity() != len(args) {
		return nil, newError(IncompatibleGenericArity, "struct %s expects %d arguments, got %d", s.name, s.Bounds.arity(), len(args))
	}
	if len(args) == 0 {
		return s, nil
	}

	key := instantiationKey(args)
	v, err, _ := s.generics.group.Do(key, func() (any, error) {
		s.generics.mu.RLock()
		if existing, ok := s.generics.cache[key]; ok {
			s.generics.mu.RUnlock()
			return existing, nil
		}
		s.generics.mu.RUnlock()

		inst, err := substituteStruct(s, args)
		if err != nil {
			return nil, err
		}

		s.generics.mu.Lock()
		s.generics.cache[key] = inst
		s.generics.mu.Unlock()
		return inst, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Struct), nil
}

func substituteStruct(def *Struct, args []TypeHandle) (*Struct, error) {
	fields := make([]*Field, len(def.Fields))
	for i, f := range def.Fields {
		fields[i] = &Field{Name: f.Name, Attr: f.Attr, Type: substituteHandle(f.Type, args), CustomAttributes: f.CustomAttributes}
	}

	methods := make([]*Method, len(def.table.Methods()))
	for i, m := range def.table.Methods() {
		methods[i] = NewMethod(m.Name, m.Attr, m.Convention, substituteParams(m.Parameters, args), substituteHandle(m.ReturnType, args))
		methods[i].Body = m.Body
	}

	inst := &Struct{name: fmt.Sprintf("%s<%s>", def.name, genericArgsString(args)), attr: def.attr, Fields: fields}
	inst.table = NewMethodTable(StructHandle(inst), nil, methods)
	return inst, nil
}

type structGenericCache struct {
	group *singleflight.Group
	mu    sync.RWMutex
	cache map[string]*Struct
}
