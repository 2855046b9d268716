package stdlib

import (
	"github.com/PuraLingua/pura-lingua-sub001/object"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
	"github.com/PuraLingua/pura-lingua-sub001/vm"
)

// objectToString is System::Object's default ToString, grounded
// directly on the original runtime's own implementation
// (original_source/runtime/src/stdlib/System/Object.rs): it builds a
// managed string out of the receiver's runtime type name, falling back
// to a placeholder when the receiver carries no method table (the null
// reference case, which the original treats identically).
func objectToString(c *vm.CPU, m *typesystem.Method, args []vm.Register) (vm.Register, error) {
	this := args[0].Ref

	name := "<UNKNOWN TYPE>"
	if !this.IsNull() {
		table, err := this.MethodTable()
		if err != nil {
			return vm.Register{}, err
		}
		name = table.Owner().Name()
	}

	strType, err := c.VM().Manager().GetCoreType(typesystem.CoreString)
	if err != nil {
		return vm.Register{}, err
	}

	ref, err := object.NewManagedString(strType.MethodTable(), name)
	if err != nil {
		return vm.Register{}, err
	}
	c.RecordAllocation(ref, typesystem.HandleClass)
	return vm.FromRef(ref), nil
}

// objectFinalize is System::Object's default Finalize: it does nothing,
// the same way the original's default Destructor is an empty stub that
// every type without its own cleanup logic inherits (Object.rs).
func objectFinalize(c *vm.CPU, m *typesystem.Method, args []vm.Register) (vm.Register, error) {
	return vm.Register{}, nil
}
