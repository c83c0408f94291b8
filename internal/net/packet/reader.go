package packet

import "encoding/binary"

// Reader reads fixed-width fields from a complete message.
// Byte 0 is always the opcode.
type Reader struct {
	data []byte
	off  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, off: 1} // skip opcode byte
}

func (r *Reader) Opcode() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

// ReadH reads 2 bytes as little-endian uint16.
func (r *Reader) ReadH() uint16 {
	if r.off+2 > len(r.data) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

// ReadInto copies len(dst) bytes into dst. Missing bytes leave dst untouched.
func (r *Reader) ReadInto(dst []byte) int {
	n := copy(dst, r.data[r.off:])
	r.off += n
	return n
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}
