package binaryfmt

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/crypto/cryptobyte"
)

func TestStringInternerRoundTrip(t *testing.T) {
	in := NewStringInterner()
	a := in.PositionOf("hello")
	b := in.PositionOf("world")
	c := in.PositionOf("hello")

	if a != c {
		t.Fatalf("PositionOf(hello) returned %d then %d, want equal", a, c)
	}
	if a == b {
		t.Fatalf("distinct strings got the same index %d", a)
	}

	wire := in.Bytes()
	if len(wire)%8 != 0 {
		t.Fatalf("interner bytes length %d is not 8-byte aligned", len(wire))
	}

	parsed, err := ParseStringInterner(wire)
	if err != nil {
		t.Fatalf("ParseStringInterner: %v", err)
	}

	for i := uint32(0); i < uint32(in.Len()); i++ {
		want, err := in.Get(i)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		got, err := parsed.Get(i)
		if err != nil {
			t.Fatalf("parsed Get(%d): %v", i, err)
		}
		if got != want {
			t.Fatalf("index %d: got %q, want %q", i, got, want)
		}
	}
}

func TestStringInternerEmptyImplicit(t *testing.T) {
	in := NewStringInterner()
	if idx := in.PositionOf(""); idx != 0 {
		t.Fatalf("empty string got index %d, want 0", idx)
	}
}

func TestCompressedU32RangeAndRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 1000, MaxCompressedU32}
	for _, v := range values {
		var b cryptobyte.Builder
		if err := WriteCompressedU32(&b, CompressedU32(v)); err != nil {
			t.Fatalf("WriteCompressedU32(%d): %v", v, err)
		}

		s := cryptobyte.String(b.BytesOrPanic())
		got, err := ReadCompressedU32(&s)
		if err != nil {
			t.Fatalf("ReadCompressedU32(%d): %v", v, err)
		}
		if uint32(got) != v {
			t.Fatalf("round trip %d: got %d", v, got)
		}
	}

	var b cryptobyte.Builder
	if err := WriteCompressedU32(&b, MaxCompressedU32+1); err == nil {
		t.Fatal("WriteCompressedU32(MAX+1) succeeded, want OutOfRange error")
	} else if e, ok := err.(*Error); !ok || e.Kind != OutOfRange {
		t.Fatalf("WriteCompressedU32(MAX+1): got %v, want OutOfRange", err)
	}
}

func TestLeafRoundTrip(t *testing.T) {
	var b cryptobyte.Builder
	WriteU8(&b, 0xAB)
	WriteU16(&b, 0xCAFE)
	WriteU32(&b, 0xDEADBEEF)
	WriteU64(&b, 0x0123456789ABCDEF)
	WriteBool(&b, true)
	WriteChar(&b, '本')

	s := cryptobyte.String(b.BytesOrPanic())

	u8, err := ReadU8(&s)
	if err != nil || u8 != 0xAB {
		t.Fatalf("u8: got %v, %v", u8, err)
	}
	u16, err := ReadU16(&s)
	if err != nil || u16 != 0xCAFE {
		t.Fatalf("u16: got %v, %v", u16, err)
	}
	u32, err := ReadU32(&s)
	if err != nil || u32 != 0xDEADBEEF {
		t.Fatalf("u32: got %v, %v", u32, err)
	}
	u64, err := ReadU64(&s)
	if err != nil || u64 != 0x0123456789ABCDEF {
		t.Fatalf("u64: got %v, %v", u64, err)
	}
	bl, err := ReadBool(&s)
	if err != nil || !bl {
		t.Fatalf("bool: got %v, %v", bl, err)
	}
	ch, err := ReadChar(&s)
	if err != nil || ch != '本' {
		t.Fatalf("char: got %v, %v", ch, err)
	}
}

func TestOptionSliceMap(t *testing.T) {
	var b cryptobyte.Builder
	WriteOption(&b, true, func(b *cryptobyte.Builder) { WriteU32(b, 42) })
	WriteOption(&b, false, func(b *cryptobyte.Builder) { WriteU32(b, 0) })
	WriteSlice(&b, []uint32{1, 2, 3}, WriteU32)
	WriteMap(&b, map[uint32]uint32{7: 70, 8: 80}, WriteU32, WriteU32, []uint32{8, 7})

	s := cryptobyte.String(b.BytesOrPanic())

	some, err := ReadOption(&s, ReadU32)
	if err != nil || some == nil || *some != 42 {
		t.Fatalf("Option(Some): got %v, %v", some, err)
	}
	none, err := ReadOption(&s, ReadU32)
	if err != nil || none != nil {
		t.Fatalf("Option(None): got %v, %v", none, err)
	}
	slice, err := ReadSlice(&s, ReadU32)
	if err != nil {
		t.Fatalf("ReadSlice: %v", err)
	}
	if diff := cmp.Diff([]uint32{1, 2, 3}, slice); diff != "" {
		t.Fatalf("slice mismatch (-want +got):\n%s", diff)
	}
	m, order, err := ReadMap(&s, ReadU32, ReadU32)
	if err != nil {
		t.Fatalf("ReadMap: %v", err)
	}
	if diff := cmp.Diff(map[uint32]uint32{7: 70, 8: 80}, m); diff != "" {
		t.Fatalf("map mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{8, 7}, order); diff != "" {
		t.Fatalf("map key order mismatch (-want +got):\n%s", diff)
	}
}

func TestItemTokenWireFormat(t *testing.T) {
	tok := NewItemToken(KindField, 0x123456)
	if tok.Kind() != KindField {
		t.Fatalf("Kind() = %s, want Field", tok.Kind())
	}
	if tok.Index() != 0x123456 {
		t.Fatalf("Index() = %#x, want 0x123456", tok.Index())
	}

	var b cryptobyte.Builder
	WriteItemToken(&b, tok)
	wire := b.BytesOrPanic()
	if len(wire) != 4 {
		t.Fatalf("item token wire length = %d, want 4", len(wire))
	}
	if wire[0] != uint8(KindField) {
		t.Fatalf("low byte = %#x, want kind tag %#x", wire[0], uint8(KindField))
	}

	s := cryptobyte.String(wire)
	got, err := ReadItemToken(&s)
	if err != nil {
		t.Fatalf("ReadItemToken: %v", err)
	}
	if got != tok {
		t.Fatalf("round trip: got %s, want %s", got, tok)
	}
}

func TestTypeTokenRejectsMethodKind(t *testing.T) {
	var b cryptobyte.Builder
	WriteItemToken(&b, NewItemToken(KindMethod, 3))
	s := cryptobyte.String(b.BytesOrPanic())
	if _, err := ReadTypeToken(&s); err == nil {
		t.Fatal("ReadTypeToken accepted a Method-kind token")
	}
}

func TestElementTypeRoundTrip(t *testing.T) {
	array := ElementType{Kind: ElemArray, Type: NewTypeToken(KindTypeDef, 7)}
	ptr := ElementType{Kind: ElemPointer, Elem: &array}
	inst := ElementType{
		Kind:        ElemGenericInst,
		Type:        NewTypeToken(KindTypeDef, 1),
		GenericArgs: []TypeToken{NewTypeToken(KindTypeDef, 2), NewTypeToken(KindTypeDef, 3)},
	}

	for _, e := range []ElementType{
		{Kind: ElemVoid},
		{Kind: ElemU32},
		{Kind: ElemTypeVar, Var: 2},
		array,
		ptr,
		inst,
	} {
		var b cryptobyte.Builder
		WriteElementType(&b, e)
		s := cryptobyte.String(b.BytesOrPanic())
		got, err := ReadElementType(&s)
		if err != nil {
			t.Fatalf("ReadElementType(%s): %v", e, err)
		}
		if got.String() != e.String() {
			t.Fatalf("round trip mismatch: got %s, want %s", got, e)
		}
	}
}

func TestFileRoundTrip(t *testing.T) {
	w := NewFileWriter()
	w.WriteString("Test::Test")
	WriteU32(w.Body(), 10)
	w.WriteString("Test::Test")

	data := w.Finish()

	f, err := ParseFile(data)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	name, err := f.ReadString()
	if err != nil || name != "Test::Test" {
		t.Fatalf("first string: got %q, %v", name, err)
	}
	v, err := ReadU32(f.Cursor())
	if err != nil || v != 10 {
		t.Fatalf("u32: got %v, %v", v, err)
	}
	name2, err := f.ReadString()
	if err != nil || name2 != "Test::Test" {
		t.Fatalf("second string: got %q, %v", name2, err)
	}
}
