package binrec

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Writer mirrors Reader: every aligned write pads with zeros to the field
// width first.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the encoded bytes.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Align pads with zeros to the next multiple of width.
func (w *Writer) Align(width int) {
	for len(w.buf)%width != 0 {
		w.buf = append(w.buf, 0)
	}
}

// Write appends raw bytes.
func (w *Writer) Write(b []byte) {
	w.buf = append(w.buf, b...)
}

// U8 writes a byte.
func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

// U16 writes a 2-byte aligned unsigned integer.
func (w *Writer) U16(v uint16) {
	w.Align(2)
	w.RawU16(v)
}

// U32 writes a 4-byte aligned unsigned integer.
func (w *Writer) U32(v uint32) {
	w.Align(4)
	w.RawU32(v)
}

// U64 writes an 8-byte value aligned to 4.
func (w *Writer) U64(v uint64) {
	w.Align(4)
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// I16 writes a 2-byte aligned signed integer.
func (w *Writer) I16(v int16) { w.U16(uint16(v)) }

// I32 writes a 4-byte aligned signed integer.
func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

// RawU16 writes 2 bytes without aligning.
func (w *Writer) RawU16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// RawU32 writes 4 bytes without aligning.
func (w *Writer) RawU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// Color writes an aligned OLE_COLOR.
func (w *Writer) Color(c Color) { w.U32(uint32(c)) }

// Size writes an aligned fmSize.
func (w *Writer) Size(s Size) {
	w.I32(s.Width)
	w.I32(s.Height)
}

// Position writes an aligned fmPosition.
func (w *Writer) Position(p Position) {
	w.I32(p.Top)
	w.I32(p.Left)
}

// GUID writes 16 unaligned bytes in Windows layout.
func (w *Writer) GUID(u uuid.UUID) {
	w.Write(GUIDBytes(u))
}

// CCB writes an aligned length prefix.
func (w *Writer) CCB(c CCB) {
	w.U32(c.Value())
}

// String writes the characters of s, then aligns to 4.
func (w *Writer) String(s string, compressed bool) {
	if s == "" {
		return
	}
	w.Write(encodeString(s, compressed))
	w.Align(4)
}

// CCBString writes a length prefix, aligns to 4 and writes the string.
func (w *Writer) CCBString(s string, compressed bool) {
	w.CCB(CCBFor(s, compressed))
	if s == "" {
		return
	}
	w.Align(4)
	w.String(s, compressed)
}

// Reserve16 writes a placeholder u16 and returns its offset for Patch16.
func (w *Writer) Reserve16() int {
	w.Align(2)
	at := len(w.buf)
	w.RawU16(0)
	return at
}

// Patch16 overwrites the u16 at offset at.
func (w *Writer) Patch16(at int, v uint16) {
	binary.LittleEndian.PutUint16(w.buf[at:], v)
}

// Reserve32 writes a placeholder u32 and returns its offset for Patch32.
func (w *Writer) Reserve32() int {
	w.Align(4)
	at := len(w.buf)
	w.RawU32(0)
	return at
}

// Patch32 overwrites the u32 at offset at.
func (w *Writer) Patch32(at int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[at:], v)
}
