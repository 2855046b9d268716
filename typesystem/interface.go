package typesystem

import "github.com/PuraLingua/pura-lingua-sub001/attrs"

// Interface describes a contract a class or struct may satisfy (§3
// "Interface"). Interfaces contribute no storage and no vtable slots
// of their own. MethodTable keeps no interface-to-slot map: an
// OpCallInterface instruction dispatches through the vtable slot of
// the method it names, exactly like OpCallVirtual.
type Interface struct {
	name    string
	attr    attrs.TypeAttr
	methods []*Method
	extends []*MaybeUnloadedTypeHandle
	bounds  *GenericBounds
}

func NewInterface(name string, attr attrs.TypeAttr, methods []*Method, extends []*MaybeUnloadedTypeHandle) *Interface {
	return &Interface{name: name, attr: attr, methods: methods, extends: extends}
}

func (i *Interface) Name() string          { return i.name }
func (i *Interface) Attr() attrs.TypeAttr  { return i.attr }
func (i *Interface) Methods() []*Method    { return i.methods }
func (i *Interface) Extends() []*MaybeUnloadedTypeHandle { return i.extends }
