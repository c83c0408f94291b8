package packet

import "encoding/binary"

// Writer builds a message. All multi-byte writes are little-endian and
// nothing is padded: the wire format is the packed field sequence.
type Writer struct {
	buf []byte
}

// NewWriterWithOpcode starts a message with its tag; size is a capacity hint.
func NewWriterWithOpcode(opcode byte, size int) *Writer {
	w := &Writer{buf: make([]byte, 0, size)}
	w.WriteC(opcode)
	return w
}

// WriteC writes 1 byte.
func (w *Writer) WriteC(v byte) {
	w.buf = append(w.buf, v)
}

// WriteH writes 2 bytes little-endian.
func (w *Writer) WriteH(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current length.
func (w *Writer) Len() int {
	return len(w.buf)
}
