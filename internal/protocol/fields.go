package protocol

import (
	"encoding/binary"
	"fmt"
)

// FieldReader walks a little-endian payload one field at a time. The first
// short read is sticky: later reads return zero values and Err reports it.
type FieldReader struct {
	buf []byte
	off int
	err error
}

func NewFieldReader(payload []byte) *FieldReader {
	return &FieldReader{buf: payload}
}

func (r *FieldReader) take(n int, name string) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf)-r.off < n {
		r.err = fmt.Errorf("%w: field %s needs %d bytes at offset %d, have %d",
			ErrShortPayload, name, n, r.off, len(r.buf)-r.off)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *FieldReader) Uint8(name string) uint8 {
	b := r.take(1, name)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *FieldReader) Uint16(name string) uint16 {
	b := r.take(2, name)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// Bytes returns a view of the next n bytes; it aliases the payload.
func (r *FieldReader) Bytes(n int, name string) []byte {
	return r.take(n, name)
}

// Array reads a uint8 length prefix followed by that many bytes.
func (r *FieldReader) Array(name string) []byte {
	n := r.Uint8(name + ".len")
	return r.take(int(n), name)
}

func (r *FieldReader) Err() error {
	return r.err
}

// FieldWriter builds a little-endian command payload.
type FieldWriter struct {
	buf []byte
}

func NewFieldWriter(capacity int) *FieldWriter {
	return &FieldWriter{buf: make([]byte, 0, capacity)}
}

func (w *FieldWriter) Uint8(v uint8) *FieldWriter {
	w.buf = append(w.buf, v)
	return w
}

func (w *FieldWriter) Uint16(v uint16) *FieldWriter {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}

func (w *FieldWriter) Raw(b []byte) *FieldWriter {
	w.buf = append(w.buf, b...)
	return w
}

// Array writes a uint8 length prefix followed by b. Callers keep b under 256 bytes.
func (w *FieldWriter) Array(b []byte) *FieldWriter {
	w.buf = append(w.buf, uint8(len(b)))
	w.buf = append(w.buf, b...)
	return w
}

func (w *FieldWriter) Bytes() []byte {
	return w.buf
}
