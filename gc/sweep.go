package gc

import (
	"github.com/PuraLingua/pura-lingua-sub001/object"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
	"github.com/PuraLingua/pura-lingua-sub001/vm"
)

// sweep drops every one of c's memory records whose object came up
// unmarked, running the owning type's destructor first if it declares
// one, then clears every surviving record's mark bit for the next
// cycle (§4.7 "finally, retain only non-dropped records and clear all
// mark bits").
func sweep(mgr *typesystem.AssemblyManager, c *vm.CPU) (int, error) {
	swept := 0

	for _, rec := range c.MemoryRecords() {
		h, err := rec.Ref.Header()
		if err != nil {
			return 0, err
		}
		if h.Marked() {
			continue
		}

		table, err := rec.Ref.MethodTable()
		if err != nil {
			return 0, err
		}
		if dtor, err := table.FindVirtual(destructorMethodName); err == nil {
			if _, err := c.Call(dtor, []vm.Register{vm.FromRef(rec.Ref)}); err != nil {
				return 0, err
			}
		}
	}

	c.PruneRecords(func(r object.ManagedReference) bool {
		h, err := r.Header()
		if err != nil {
			return false
		}
		if !h.Marked() {
			swept++
			return false
		}
		r.SetMarked(false)
		return true
	})

	return swept, nil
}
