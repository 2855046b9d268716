package binaryfmt

import (
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
)

// Section is the section-oriented serialization surface (§4.1): the
// same leaf/Option/slice/map rules as File, but applied to a raw byte
// span with no shared interner — every string is written inline as a
// u64-length-prefixed UTF-8 payload. Used for nested compound records
// that live inside a larger file (custom attributes, method bodies,
// generic bounds, ...).

// WriteInlineString appends a u64 length prefix followed by s's UTF-8
// bytes.
func WriteInlineString(b *cryptobyte.Builder, s string) {
	WriteU64(b, uint64(len(s)))
	b.AddBytes([]byte(s))
}

// ReadInlineString reads a u64-length-prefixed UTF-8 string.
func ReadInlineString(s *cryptobyte.String) (string, error) {
	n, err := ReadU64(s)
	if err != nil {
		return "", wrapError(Truncated, err, "inline string length")
	}

	var raw []byte
	if !s.ReadBytes(&raw, int(n)) {
		return "", newError(Truncated, "inline string payload (%d bytes)", n)
	}

	if !utf8.Valid(raw) {
		return "", newError(InvalidUTF8, "inline string payload")
	}

	return string(raw), nil
}
