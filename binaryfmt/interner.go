package binaryfmt

import (
	"bytes"
	"unicode/utf8"
)

// StringInterner is the shared, append-only string table backing the
// file-oriented serialization surface (§4.1). Strings are stored once
// and referenced elsewhere by their ordinal position.
type StringInterner struct {
	strings []string
	index   map[string]uint32
}

// NewStringInterner builds an empty interner, with the empty string
// implicitly occupying index 0.
func NewStringInterner() *StringInterner {
	in := &StringInterner{index: make(map[string]uint32)}
	in.PositionOf("")
	return in
}

// ParseStringInterner decodes the on-wire interner format: a sequence
// of UTF-8 strings separated by a single NUL, zero-padded to an
// 8-byte boundary. If the stream does not begin with NUL, the empty
// string is implicit at index 0 (§4.1).
func ParseStringInterner(data []byte) (*StringInterner, error) {
	in := &StringInterner{index: make(map[string]uint32)}

	trimmed := bytes.TrimRight(data, "\x00")
	if len(trimmed) == 0 {
		in.PositionOf("")
		return in, nil
	}

	if !bytes.HasPrefix(trimmed, []byte{0}) {
		in.PositionOf("")
	}

	for _, part := range bytes.Split(trimmed, []byte{0}) {
		if !utf8.Valid(part) {
			return nil, newError(InvalidUTF8, "interner entry %q", part)
		}
		in.PositionOf(string(part))
	}

	return in, nil
}

// PositionOf returns s's ordinal, interning it (appending to the end
// of the table) if it is not already present.
func (in *StringInterner) PositionOf(s string) uint32 {
	if idx, ok := in.index[s]; ok {
		return idx
	}
	idx := uint32(len(in.strings))
	in.strings = append(in.strings, s)
	in.index[s] = idx
	return idx
}

// Get returns the i-th interned string.
func (in *StringInterner) Get(i uint32) (string, error) {
	if int(i) >= len(in.strings) {
		return "", newError(StringNotFound, "index %d (table has %d entries)", i, len(in.strings))
	}
	return in.strings[i], nil
}

// Len reports the number of interned strings.
func (in *StringInterner) Len() int { return len(in.strings) }

// Bytes serializes the interner to its on-wire form: NUL-separated
// strings, zero-padded to an 8-byte boundary.
func (in *StringInterner) Bytes() []byte {
	var buf bytes.Buffer
	for i, s := range in.strings {
		if i > 0 {
			buf.WriteByte(0)
		}
		buf.WriteString(s)
	}

	out := buf.Bytes()
	if rem := len(out) % 8; rem != 0 {
		out = append(out, make([]byte, 8-rem)...)
	}
	return out
}
