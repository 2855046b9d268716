// Package gc implements the runtime's stop-the-world mark-and-sweep
// collector (§4.7): one pass marks every object reachable from a
// CPU's live registers or a type's static fields, and a following pass
// reclaims every managed record that came up unmarked, running the
// owning type's destructor first.
package gc

import (
	"github.com/PuraLingua/pura-lingua-sub001/object"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
	"github.com/PuraLingua/pura-lingua-sub001/vm"
)

// destructorMethodName is the vtable slot every class's destructor is
// installed under. The spec names this only as "the vtable's
// destructor slot"; this runtime settles the open question by
// resolving it by name against System::Object's well-known virtual
// method, the same way `ToString`/`Equals` would be resolved.
const destructorMethodName = "Finalize"

// Stats reports how many objects a Collect pass visited.
type Stats struct {
	Marked int
	Swept  int
}

// Collect runs one full mark-and-sweep cycle over every CPU registered
// to v, plus v's static field roots (§4.7, §4.8 "get_static_field").
func Collect(v *vm.VM) (Stats, error) {
	mgr := v.Manager()
	cpus := v.CPUs()

	roots := append([]object.ManagedReference(nil), v.StaticRoots()...)
	for _, c := range cpus {
		roots = append(roots, c.Roots()...)
	}

	m := &marker{mgr: mgr}
	for _, r := range roots {
		if err := m.mark(r); err != nil {
			return Stats{}, err
		}
	}

	swept := 0
	for _, c := range cpus {
		n, err := sweep(mgr, c)
		if err != nil {
			return Stats{}, err
		}
		swept += n
	}

	// Static blocks are not in any CPU's memory records, so sweep does
	// not clear their mark bits; clear them here for the next cycle.
	for _, r := range v.StaticRoots() {
		if err := r.SetMarked(false); err != nil {
			return Stats{}, err
		}
	}

	return Stats{Marked: m.count, Swept: swept}, nil
}

func isReferenceHandle(h typesystem.TypeHandle) bool {
	k := h.Kind()
	return k == typesystem.HandleClass || k == typesystem.HandleInterface
}
