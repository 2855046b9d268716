package typesystem

import (
	"fmt"
	"sync"

	"github.com/PuraLingua/pura-lingua-sub001/attrs"
	"golang.org/x/sync/singleflight"
)

// Class is a reference type definition (§3 "Class"): objects of a
// class live on the managed heap behind a ManagedReference and are
// collected by the mark-and-sweep garbage collector.
type Class struct {
	name   string
	attr   attrs.TypeAttr
	Parent *MaybeUnloadedTypeHandle
	Fields []*Field
	Bounds *GenericBounds

	StaticConstructor *Method
	MainMethod        *Method

	table *MethodTable

	generics genericCache
}

// NewClass builds a non-generic (or generic-definition) class. Pass a
// nil parent only for System::Object itself; every other class must
// eventually chain up to it.
func NewClass(name string, attr attrs.TypeAttr, parent *MaybeUnloadedTypeHandle, fields []*Field, methods []*Method) *Class {
	c := &Class{name: name, attr: attr, Parent: parent, Fields: fields}
	c.table = NewMethodTable(ClassHandle(c), baseTableOf(parent), methods)
	c.generics.group = &singleflight.Group{}
	c.generics.cache = make(map[string]*Class)
	return c
}

// baseTableOf returns the parent's vtable so a freshly-built class
// inherits its slots, when the parent handle is already resolved.
// Classes whose parent is still an unresolved TypeRef at construction
// time start from an empty base and do not inherit the parent's slots;
// this includes every class assemblyio decodes, since the decoder
// builds each parent handle as an unloaded TypeRef.
func baseTableOf(parent *MaybeUnloadedTypeHandle) *MethodTable {
	if parent == nil || !parent.Loaded() {
		return nil
	}
	h, err := parent.Resolve(nil)
	if err != nil {
		return nil
	}
	return h.MethodTable()
}

func (c *Class) Name() string         { return c.name }
func (c *Class) Attr() attrs.TypeAttr { return c.attr }
func (c *Class) Table() *MethodTable  { return c.table }
func (c *Class) IsGenericDefinition() bool { return c.Bounds.arity() > 0 }

// Instantiate produces the Class object for this generic definition
// applied to args, memoizing so that repeated instantiation with the
// same arguments (by handle identity) returns the identical object
// (§4.4, Invariant: "Struct additionally holds a cache of generic
// instantiations", applied here "in the same shape" to classes too).
func (c *Class) Instantiate(mgr *AssemblyManager, args []TypeHandle) (*Class, error) {
	if c.Bounds.arity() != len(args) {
		return nil, newError(IncompatibleGenericArity, "class %s expects %d arguments, got %d", c.name, c.Bounds.arity(), len(args))
	}
	if len(args) == 0 {
		return c, nil
	}

	key := instantiationKey(args)
	v, err, _ := c.generics.group.Do(key, func() (any, error) {
		c.generics.mu.RLock()
		if existing, ok := c.generics.cache[key]; ok {
			c.generics.mu.RUnlock()
			return existing, nil
		}
		c.generics.mu.RUnlock()

		inst, err := substituteClass(mgr, c, args)
		if err != nil {
			return nil, err
		}

		c.generics.mu.Lock()
		c.generics.cache[key] = inst
		c.generics.mu.Unlock()
		return inst, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Class), nil
}

func substituteClass(mgr *AssemblyManager, def *Class, args []TypeHandle) (*Class, error) {
	fields := make([]*Field, len(def.Fields))
	for i, f := range def.Fields {
		fields[i] = &Field{Name: f.Name, Attr: f.Attr, Type: substituteHandle(f.Type, args), CustomAttributes: f.CustomAttributes}
	}

	methods := make([]*Method, len(def.table.Methods()))
	for i, m := range def.table.Methods() {
		methods[i] = NewMethod(m.Name, m.Attr, m.Convention, substituteParams(m.Parameters, args), substituteHandle(m.ReturnType, args))
		methods[i].Body = m.Body
	}

	inst := &Class{name: fmt.Sprintf("%s<%s>", def.name, genericArgsString(args)), attr: def.attr, Parent: def.Parent, Fields: fields}
	// Base-class slots are inherited through Parent when the instance
	// layout and vtable are computed, not duplicated here.
	inst.table = NewMethodTable(ClassHandle(inst), baseTableOf(def.Parent), methods)
	return inst, nil
}

// genericCache memoizes generic instantiations keyed by the argument
// handles' identity, using a singleflight.Group so two goroutines
// racing to instantiate the same arguments perform the substitution
// exactly once (§9 Open Question: generic-instantiation thread
// safety).
type genericCache struct {
	group *singleflight.Group
	mu    sync.RWMutex
	cache map[string]*Class
}

func instantiationKey(args []TypeHandle) string {
	s := ""
	for _, a := range args {
		s += fmt.Sprintf("%p|", handleIdentity(a))
	}
	return s
}

func handleIdentity(h TypeHandle) any {
	switch h.kind {
	case HandleClass:
		return h.class
	case HandleStruct:
		return h.structure
	default:
		return h.iface
	}
}

func genericArgsString(args []TypeHandle) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += a.Name()
	}
	return s
}

// substituteHandle replaces a direct reference to one of the
// enclosing generic's type parameters with its instantiation
// argument. References nested inside another unresolved TypeRef (a
// field typed as a generic instantiation of an outer type parameter)
// are left for that TypeRef's own resolution to handle; this runtime
// does not attempt substitution through nested generic instantiation.
func substituteHandle(h *MaybeUnloadedTypeHandle, args []TypeHandle) *MaybeUnloadedTypeHandle {
	if h == nil {
		return nil
	}
	if idx, ok := h.TypeVarIndex(); ok {
		if idx < 0 || idx >= len(args) {
			return h
		}
		return NewLoaded(args[idx])
	}
	return h
}

func substituteParams(params []Parameter, args []TypeHandle) []Parameter {
	out := make([]Parameter, len(params))
	for i, p := range params {
		out[i] = Parameter{Type: substituteHandle(p.Type, args), Attr: p.Attr}
	}
	return out
}
