package binaryfmt

import (
	"golang.org/x/crypto/cryptobyte"
)

// File is the file-oriented serialization surface (§4.1, §6): a shared
// StringInterner plus a seekable cursor over the remaining data. It is
// used for the top-level assembly file format.
type File struct {
	Interner *StringInterner
	cursor   cryptobyte.String
}

// ParseFile decodes the file header described in §6:
//
//	u64 interner_byte_length
//	u8[interner_byte_length] interner_payload
//	u8[...] data
func ParseFile(data []byte) (*File, error) {
	s := cryptobyte.String(data)

	length, err := ReadU64(&s)
	if err != nil {
		return nil, wrapError(Truncated, err, "file header: interner length")
	}

	if uint64(len(s)) < length {
		return nil, newError(Truncated, "file header: interner payload (want %d bytes, have %d)", length, len(s))
	}

	var internerBytes []byte
	if !s.ReadBytes(&internerBytes, int(length)) {
		return nil, newError(Truncated, "file header: interner payload")
	}

	interner, err := ParseStringInterner(internerBytes)
	if err != nil {
		return nil, err
	}

	return &File{Interner: interner, cursor: s}, nil
}

// Cursor returns the remaining, as-yet-undecoded data section.
func (f *File) Cursor() *cryptobyte.String { return &f.cursor }

// ReadString reads a u64 interner index and resolves it against the
// file's shared interner.
func (f *File) ReadString() (string, error) {
	idx, err := ReadU64(&f.cursor)
	if err != nil {
		return "", wrapError(Truncated, err, "string reference")
	}
	return f.Interner.Get(uint32(idx))
}

// FileWriter accumulates a data section against a StringInterner that
// grows as strings are referenced, then assembles the full file with
// Finish.
type FileWriter struct {
	Interner *StringInterner
	body     cryptobyte.Builder
}

// NewFileWriter starts a new file-oriented encode.
func NewFileWriter() *FileWriter {
	return &FileWriter{Interner: NewStringInterner()}
}

// Body returns the builder for the data section.
func (w *FileWriter) Body() *cryptobyte.Builder { return &w.body }

// WriteString interns s and appends its index as a u64.
func (w *FileWriter) WriteString(s string) {
	WriteU64(&w.body, uint64(w.Interner.PositionOf(s)))
}

// Finish assembles the complete file: the u64 interner length, the
// interner payload, then the accumulated data section.
func (w *FileWriter) Finish() []byte {
	var out cryptobyte.Builder
	interner := w.Interner.Bytes()
	WriteU64(&out, uint64(len(interner)))
	out.AddBytes(interner)
	out.AddBytes(w.body.BytesOrPanic())
	return out.BytesOrPanic()
}
