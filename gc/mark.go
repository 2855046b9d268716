package gc

import (
	"github.com/PuraLingua/pura-lingua-sub001/object"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

// marker walks the object graph from a set of roots, setting each
// reached object's mark bit exactly once (§4.7 "marking recurses").
type marker struct {
	mgr   *typesystem.AssemblyManager
	seen  map[object.ManagedReference]bool
	count int
}

// mark visits r and, the first time it is reached, every reference-
// typed field it declares. Marking an already-marked object is a
// no-op, which is what keeps cyclic object graphs from recursing
// forever.
func (m *marker) mark(r object.ManagedReference) error {
	if r.IsNull() {
		return nil
	}
	if m.seen == nil {
		m.seen = make(map[object.ManagedReference]bool)
	}
	if m.seen[r] {
		return nil
	}
	m.seen[r] = true

	h, err := r.Header()
	if err != nil {
		return err
	}
	if h.Marked() {
		return nil
	}
	if err := r.SetMarked(true); err != nil {
		return err
	}
	m.count++

	table, err := r.MethodTable()
	if err != nil {
		return err
	}

	// Arrays all share one untyped element table tagged CoreArray1,
	// with no per-instance record of what generic argument built them.
	// Strings reuse the same length-prefixed layout but carry the
	// CoreString table, so they take the field path below instead.
	// AllocArray records whether the elements are references at
	// allocation time instead, which is all mark needs to decide
	// whether to recurse into them.
	if id, ok := table.CoreTypeID(); ok && id == typesystem.CoreArray1 {
		return m.markArrayElements(r)
	}

	// A type's static field block is laid out by its static layout, not
	// its instance layout, so its children are the type's static fields.
	var fields []*typesystem.Field
	newAccessor := object.NewFieldAccessor
	if h.IsStatic() {
		layout, err := table.StaticLayout(m.mgr)
		if err != nil {
			return err
		}
		for f := range layout.Offsets {
			fields = append(fields, f)
		}
		newAccessor = object.NewStaticFieldAccessor
	} else if fields, err = table.InstanceFields(m.mgr); err != nil {
		return err
	}

	for _, f := range fields {
		handle, err := f.Type.Resolve(m.mgr)
		if err != nil {
			return err
		}
		if !isReferenceHandle(handle) {
			continue
		}

		acc, err := newAccessor(m.mgr, r)
		if err != nil {
			return err
		}
		ptr, err := acc.Field(f)
		if err != nil {
			return err
		}

		child := object.FromPointerBits(*(*uint64)(ptr))
		if err := m.mark(child); err != nil {
			return err
		}
	}

	return nil
}

// markArrayElements recurses into r's elements when they were recorded
// as references at allocation time. Reference-typed elements are
// always stored as pointer-sized slots, the same convention
// wordInfo/loadRegisterWord use for reference fields, so the element
// size here is fixed rather than resolved from the array's (absent)
// generic argument.
func (m *marker) markArrayElements(r object.ManagedReference) error {
	acc, err := object.NewArrayAccessor(r, typesystem.PointerSize)
	if err != nil {
		return err
	}

	isRef, err := acc.ElementIsRef()
	if err != nil {
		return err
	}
	if !isRef {
		return nil
	}

	n, err := acc.Len()
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		ptr, err := acc.ElementPtr(i)
		if err != nil {
			return err
		}
		child := object.FromPointerBits(*(*uint64)(ptr))
		if err := m.mark(child); err != nil {
			return err
		}
	}

	return nil
}
