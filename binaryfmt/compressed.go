package binaryfmt

import "golang.org/x/crypto/cryptobyte"

// CompressedU32 is a 29-bit unsigned integer (§4.1, §8 property 3). The
// on-wire form is a plain little-endian 4-byte word with the top 3 bits
// always zero: this keeps encode/decode allocation-free and trivially
// ordering-preserving, at the cost of not being "compressed" in the
// variable-length sense — see DESIGN.md's Open Question decision.
type CompressedU32 uint32

// MaxCompressedU32 is the largest value representable: 2^29 - 1.
const MaxCompressedU32 = 1<<29 - 1

// Valid reports whether x fits in 29 bits.
func (x CompressedU32) Valid() bool { return x <= MaxCompressedU32 }

// WriteCompressedU32 appends the little-endian wire form of x, failing
// with OutOfRange if x exceeds 2^29-1.
func WriteCompressedU32(b *cryptobyte.Builder, x CompressedU32) error {
	if !x.Valid() {
		return newError(OutOfRange, "compressed u32 %d exceeds max %d", uint32(x), MaxCompressedU32)
	}
	WriteU32(b, uint32(x))
	return nil
}

// ReadCompressedU32 reads a CompressedU32 previously written by
// WriteCompressedU32, failing with OutOfRange if the stored value's top
// 3 bits are set (the stream was corrupted or never valid).
func ReadCompressedU32(s *cryptobyte.String) (CompressedU32, error) {
	raw, err := ReadU32(s)
	if err != nil {
		return 0, err
	}
	x := CompressedU32(raw)
	if !x.Valid() {
		return 0, newError(OutOfRange, "compressed u32 %d exceeds max %d", raw, MaxCompressedU32)
	}
	return x, nil
}
