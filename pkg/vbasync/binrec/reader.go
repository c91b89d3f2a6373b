package binrec

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
)

// Reader is an alignment-aware cursor over a byte buffer.
type Reader struct {
	stream string
	path   string
	buf    []byte
	pos    int
	err    error
}

// NewReader creates a reader over buf. stream names the source in errors.
func NewReader(stream string, buf []byte) *Reader {
	return &Reader{stream: stream, buf: buf}
}

// Stream returns the stream name used in errors.
func (r *Reader) Stream() string { return r.stream }

// Path returns the nesting path of this reader.
func (r *Reader) Path() string { return r.path }

// Pos returns the current offset from the reader's base.
func (r *Reader) Pos() int { return r.pos }

// Len returns the total length of the underlying buffer.
func (r *Reader) Len() int { return len(r.buf) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Fail records err unless an earlier error is already recorded.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) childPath(name string) string {
	if r.path == "" {
		return name
	}
	return r.path + "/" + name
}

// Fork returns a reader over the unread bytes whose alignment base is the
// current position. The parent does not advance; call Advance with the
// child once it is done.
func (r *Reader) Fork(name string) *Reader {
	child := &Reader{stream: r.stream, path: r.childPath(name), err: r.err}
	if r.err == nil {
		child.buf = r.buf[r.pos:]
	}
	return child
}

// Advance moves the parent past everything the forked child consumed and
// adopts the child's error.
func (r *Reader) Advance(child *Reader) {
	if child.err != nil {
		r.Fail(child.err)
		return
	}
	r.Skip(child.pos)
}

// Sub returns a reader over the next n bytes and advances past them.
func (r *Reader) Sub(n int, name string) *Reader {
	child := &Reader{stream: r.stream, path: r.childPath(name)}
	b := r.take(n)
	if r.err != nil {
		child.err = r.err
		return child
	}
	child.buf = b
	return child
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.buf) {
		r.err = fmt.Errorf("%s: read of %d bytes at offset %d overruns %d-byte buffer: %w",
			r.where(), n, r.pos, len(r.buf), core.ErrSizeMismatch)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Reader) where() string {
	if r.path == "" {
		return r.stream
	}
	return r.stream + ":" + r.path
}

// Align seeks forward to the next multiple of width.
func (r *Reader) Align(width int) {
	if rem := r.pos % width; rem != 0 {
		r.take(width - rem)
	}
}

// Skip discards n bytes.
func (r *Reader) Skip(n int) {
	r.take(n)
}

// Bytes returns a copy of the next n bytes.
func (r *Reader) Bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// Rest returns a copy of all unread bytes.
func (r *Reader) Rest() []byte {
	return r.Bytes(r.Remaining())
}

// U8 reads a byte.
func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// U16 reads a 2-byte aligned unsigned integer.
func (r *Reader) U16() uint16 {
	r.Align(2)
	return r.RawU16()
}

// U32 reads a 4-byte aligned unsigned integer.
func (r *Reader) U32() uint32 {
	r.Align(4)
	return r.RawU32()
}

// U64 reads an 8-byte value aligned to 4, as MS Forms masks are.
func (r *Reader) U64() uint64 {
	r.Align(4)
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// I16 reads a 2-byte aligned signed integer.
func (r *Reader) I16() int16 { return int16(r.U16()) }

// I32 reads a 4-byte aligned signed integer.
func (r *Reader) I32() int32 { return int32(r.U32()) }

// RawU16 reads 2 bytes without aligning.
func (r *Reader) RawU16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// RawU32 reads 4 bytes without aligning.
func (r *Reader) RawU32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// Color reads an aligned OLE_COLOR.
func (r *Reader) Color() Color { return Color(r.U32()) }

// Size reads an aligned fmSize.
func (r *Reader) Size() Size {
	return Size{Width: r.I32(), Height: r.I32()}
}

// Position reads an aligned fmPosition.
func (r *Reader) Position() Position {
	return Position{Top: r.I32(), Left: r.I32()}
}

// GUID reads 16 unaligned bytes as a Windows GUID.
func (r *Reader) GUID() uuid.UUID {
	b := r.take(16)
	if b == nil {
		return uuid.Nil
	}
	return GUIDFromBytes(b)
}

// CCB reads an aligned length prefix.
func (r *Reader) CCB() CCB {
	return ParseCCB(r.U32())
}

// String reads the characters described by c, then aligns to 4. A zero
// count consumes nothing.
func (r *Reader) String(c CCB) string {
	if c.Count == 0 || r.err != nil {
		return ""
	}
	n := c.ByteLen()
	if n > r.Remaining() {
		r.Fail(fmt.Errorf("%s: string of %d bytes at offset %d exceeds %d remaining: %w",
			r.where(), n, r.pos, r.Remaining(), core.ErrMalformedCCB))
		return ""
	}
	s, err := decodeString(r.take(n), c.Compressed)
	if err != nil {
		r.Fail(fmt.Errorf("%s: %v: %w", r.where(), err, core.ErrMalformedCCB))
		return ""
	}
	r.Align(4)
	return s
}

// CCBString reads a length prefix, aligns to 4 and reads the string.
func (r *Reader) CCBString() (string, CCB) {
	c := r.CCB()
	if c.Count == 0 {
		return "", c
	}
	r.Align(4)
	return r.String(c), c
}

// AssertConsumed checks that exactly declared bytes were read since start.
func (r *Reader) AssertConsumed(declared, start int, what string) error {
	if r.err != nil {
		return r.err
	}
	if consumed := r.pos - start; consumed != declared {
		r.err = &core.SizeMismatchError{
			Stream:   r.stream,
			Path:     r.childPath(what),
			Declared: declared,
			Consumed: consumed,
		}
	}
	return r.err
}
