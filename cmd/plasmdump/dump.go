package main

import (
	"strconv"
	"strings"

	"github.com/PuraLingua/pura-lingua-sub001/attrs"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

// assemblyDump is the top-level shape written to --kind json.
type assemblyDump struct {
	Name  string     `json:"name"`
	Types []typeDump `json:"types"`
}

type typeDump struct {
	Kind    string       `json:"kind"`
	Name    string       `json:"name"`
	Attr    string       `json:"attr"`
	Parent  string       `json:"parent,omitempty"`
	Extends []string     `json:"extends,omitempty"`
	Fields  []fieldDump  `json:"fields,omitempty"`
	Methods []methodDump `json:"methods"`
}

type fieldDump struct {
	Name string `json:"name"`
	Attr string `json:"attr"`
	Type string `json:"type"`
}

type methodDump struct {
	Name       string         `json:"name"`
	Attr       string         `json:"attr"`
	Convention string         `json:"convention"`
	Slot       int            `json:"slot"`
	Params     []paramDump    `json:"params"`
	Return     string         `json:"return,omitempty"`
	Body       string         `json:"body"`
}

type paramDump struct {
	Type string `json:"type"`
	Attr string `json:"attr,omitempty"`
}

// dumpAssembly walks every type asm declares and renders it into the
// JSON-friendly shape above. Type references resolve best-effort
// against mgr: a cross-assembly reference to something nothing has
// loaded yet falls back to its unresolved ref string rather than
// failing the whole dump.
func dumpAssembly(mgr *typesystem.AssemblyManager, asm *typesystem.Assembly) assemblyDump {
	out := assemblyDump{Name: asm.Name()}

	for i := 0; i < asm.Len(); i++ {
		h, err := asm.GetType(uint32(i))
		if err != nil {
			continue
		}
		out.Types = append(out.Types, dumpType(mgr, h))
	}

	return out
}

func dumpType(mgr *typesystem.AssemblyManager, h typesystem.TypeHandle) typeDump {
	td := typeDump{Name: h.Name()}

	if class, ok := h.Class(); ok {
		td.Kind = "class"
		td.Attr = class.Attr().String()
		if class.Parent != nil {
			td.Parent = resolveTypeName(mgr, class.Parent)
		}
		td.Fields = dumpFields(mgr, class.Fields)
		td.Methods = dumpMethods(mgr, class.Table().Methods())
		return td
	}

	if s, ok := h.Struct(); ok {
		td.Kind = "struct"
		td.Attr = s.Attr().String()
		td.Fields = dumpFields(mgr, s.Fields)
		td.Methods = dumpMethods(mgr, s.Table().Methods())
		return td
	}

	iface, _ := h.Interface()
	td.Kind = "interface"
	td.Attr = iface.Attr().String()
	for _, e := range iface.Extends() {
		td.Extends = append(td.Extends, resolveTypeName(mgr, e))
	}
	td.Methods = dumpMethods(mgr, iface.Methods())
	return td
}

func dumpFields(mgr *typesystem.AssemblyManager, fields []*typesystem.Field) []fieldDump {
	out := make([]fieldDump, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldDump{
			Name: f.Name,
			Attr: fieldAttrString(f.Attr),
			Type: resolveTypeName(mgr, f.Type),
		})
	}
	return out
}

func dumpMethods(mgr *typesystem.AssemblyManager, methods []*typesystem.Method) []methodDump {
	out := make([]methodDump, 0, len(methods))
	for _, m := range methods {
		md := methodDump{
			Name:       m.Name,
			Attr:       methodAttrString(m.Attr),
			Convention: m.Convention.String(),
			Slot:       m.Slot(),
			Body:       bodyKindString(m),
		}
		for _, p := range m.Parameters {
			md.Params = append(md.Params, paramDump{
				Type: resolveTypeName(mgr, p.Type),
				Attr: paramAttrString(p.Attr),
			})
		}
		if m.ReturnType != nil {
			md.Return = resolveTypeName(mgr, m.ReturnType)
		}
		out = append(out, md)
	}
	return out
}

func bodyKindString(m *typesystem.Method) string {
	if m.Body == nil {
		return "none"
	}
	return m.Body.BodyKind().String()
}

// resolveTypeName resolves h against mgr for a friendly "Kind(Name)"
// string such as "Class(System::Object)", falling back to the handle's
// own unresolved-ref form (e.g. "![3]") when the referenced assembly
// has not been loaded.
func resolveTypeName(mgr *typesystem.AssemblyManager, h *typesystem.MaybeUnloadedTypeHandle) string {
	if idx, ok := h.TypeVarIndex(); ok {
		return typeVarName(idx)
	}
	if resolved, err := h.Resolve(mgr); err == nil {
		return resolved.String()
	}
	return h.String()
}

func typeVarName(index int) string {
	return "T" + strconv.Itoa(index)
}

func fieldAttrString(a attrs.FieldAttr) string {
	var b strings.Builder
	b.WriteString(a.Visibility().String())
	if a.IsStatic() {
		b.WriteString(" static")
	}
	if a.IsByRef() {
		b.WriteString(" byref")
	}
	if a.IsReadOnly() {
		b.WriteString(" readonly")
	}
	if a.IsLiteral() {
		b.WriteString(" literal")
	}
	return b.String()
}

func methodAttrString(a attrs.MethodAttr) string {
	var b strings.Builder
	b.WriteString(a.Visibility().String())
	if a.IsStatic() {
		b.WriteString(" static")
	}
	if a.IsVirtual() {
		b.WriteString(" virtual")
	}
	if a.IsOverride() {
		b.WriteString(" override")
	}
	if a.IsAbstract() {
		b.WriteString(" abstract")
	}
	if a.IsConstructor() {
		b.WriteString(" ctor")
	}
	if a.IsStaticConstructor() {
		b.WriteString(" cctor")
	}
	return b.String()
}

func paramAttrString(a attrs.ParameterAttr) string {
	var b strings.Builder
	if a.IsByRef() {
		b.WriteString("byref")
	}
	if a.IsOut() {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("out")
	}
	return b.String()
}
