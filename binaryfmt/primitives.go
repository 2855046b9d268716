package binaryfmt

import (
	"encoding/binary"
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
)

// Leaf-type codecs (§4.1). Every fixed-width numeric type serializes as
// little-endian bytes. cryptobyte's own Read/AddUintNN helpers are
// big-endian (they were built for TLS/ASN.1), so these wrap its
// bounds-checked cursor and length-prefix machinery while doing the byte
// ordering ourselves with encoding/binary.

func ReadU8(s *cryptobyte.String) (uint8, error) {
	var out []byte
	if !s.ReadBytes(&out, 1) {
		return 0, newError(Truncated, "u8")
	}
	return out[0], nil
}

func WriteU8(b *cryptobyte.Builder, v uint8) { b.AddBytes([]byte{v}) }

func ReadU16(s *cryptobyte.String) (uint16, error) {
	var out []byte
	if !s.ReadBytes(&out, 2) {
		return 0, newError(Truncated, "u16")
	}
	return binary.LittleEndian.Uint16(out), nil
}

func WriteU16(b *cryptobyte.Builder, v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	b.AddBytes(buf[:])
}

func ReadU32(s *cryptobyte.String) (uint32, error) {
	var out []byte
	if !s.ReadBytes(&out, 4) {
		return 0, newError(Truncated, "u32")
	}
	return binary.LittleEndian.Uint32(out), nil
}

func WriteU32(b *cryptobyte.Builder, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.AddBytes(buf[:])
}

func ReadU64(s *cryptobyte.String) (uint64, error) {
	var out []byte
	if !s.ReadBytes(&out, 8) {
		return 0, newError(Truncated, "u64")
	}
	return binary.LittleEndian.Uint64(out), nil
}

func WriteU64(b *cryptobyte.Builder, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	b.AddBytes(buf[:])
}

func ReadI8(s *cryptobyte.String) (int8, error) {
	v, err := ReadU8(s)
	return int8(v), err
}
func WriteI8(b *cryptobyte.Builder, v int8) { WriteU8(b, uint8(v)) }

func ReadI16(s *cryptobyte.String) (int16, error) {
	v, err := ReadU16(s)
	return int16(v), err
}
func WriteI16(b *cryptobyte.Builder, v int16) { WriteU16(b, uint16(v)) }

func ReadI32(s *cryptobyte.String) (int32, error) {
	v, err := ReadU32(s)
	return int32(v), err
}
func WriteI32(b *cryptobyte.Builder, v int32) { WriteU32(b, uint32(v)) }

func ReadI64(s *cryptobyte.String) (int64, error) {
	v, err := ReadU64(s)
	return int64(v), err
}
func WriteI64(b *cryptobyte.Builder, v int64) { WriteU64(b, uint64(v)) }

func ReadBool(s *cryptobyte.String) (bool, error) {
	v, err := ReadU8(s)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func WriteBool(b *cryptobyte.Builder, v bool) {
	if v {
		WriteU8(b, 1)
	} else {
		WriteU8(b, 0)
	}
}

// ReadChar reads a single Unicode scalar value, stored as its u32
// code point.
func ReadChar(s *cryptobyte.String) (rune, error) {
	v, err := ReadU32(s)
	if err != nil {
		return 0, err
	}
	r := rune(v)
	if r > utf8.MaxRune || !utf8.ValidRune(r) {
		return 0, newError(InvalidTag, "char code point %#x is not a valid rune", v)
	}
	return r, nil
}

func WriteChar(b *cryptobyte.Builder, r rune) { WriteU32(b, uint32(r)) }

// WriteOption writes the bool discriminator used by every Option<T>
// field (§4.1), then, if present, calls write to append T.
func WriteOption(b *cryptobyte.Builder, present bool, write func(*cryptobyte.Builder)) {
	WriteBool(b, present)
	if present {
		write(b)
	}
}

// ReadOption reads an Option<T> discriminator and, if present, calls
// read to decode T.
func ReadOption[T any](s *cryptobyte.String, read func(*cryptobyte.String) (T, error)) (*T, error) {
	present, err := ReadBool(s)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	v, err := read(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// WriteSlice writes the u64 length prefix shared by every Vec<T>
// field (§4.1), then calls write once per element, in order.
func WriteSlice[T any](b *cryptobyte.Builder, items []T, write func(*cryptobyte.Builder, T)) {
	WriteU64(b, uint64(len(items)))
	for _, item := range items {
		write(b, item)
	}
}

// ReadSlice reads a u64-length-prefixed sequence of T.
func ReadSlice[T any](s *cryptobyte.String, read func(*cryptobyte.String) (T, error)) ([]T, error) {
	n, err := ReadU64(s)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := read(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// WriteMap writes the u64-length-prefixed, alternating key/value
// sequence shared by every Map<K, V> field (§4.1).
func WriteMap[K, V any](b *cryptobyte.Builder, m map[K]V, writeKey func(*cryptobyte.Builder, K), writeVal func(*cryptobyte.Builder, V), order []K) {
	WriteU64(b, uint64(len(m)))
	for _, k := range order {
		writeKey(b, k)
		writeVal(b, m[k])
	}
}

// ReadMap reads a length-prefixed alternating key/value sequence back
// into a map, preserving insertion order in orderedKeys.
func ReadMap[K comparable, V any](s *cryptobyte.String, readKey func(*cryptobyte.String) (K, error), readVal func(*cryptobyte.String) (V, error)) (map[K]V, []K, error) {
	n, err := ReadU64(s)
	if err != nil {
		return nil, nil, err
	}
	m := make(map[K]V, n)
	order := make([]K, 0, n)
	for i := uint64(0); i < n; i++ {
		k, err := readKey(s)
		if err != nil {
			return nil, nil, err
		}
		v, err := readVal(s)
		if err != nil {
			return nil, nil, err
		}
		m[k] = v
		order = append(order, k)
	}
	return m, order, nil
}
