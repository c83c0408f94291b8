package net

import (
	"bytes"

	"github.com/pixelwall/server/internal/net/packet"
)

// Reassembler turns an arbitrarily fragmented byte stream into complete
// messages. There is no length prefix on the wire; the first byte of a
// message selects its size via packet.Size.
//
// While idle, a byte that is not a known tag is dropped on its own and the
// next byte is tried as a tag. Once a message is being filled there is no
// way to detect corruption, so a desynchronized stream stays desynchronized
// until the connection is reset.
type Reassembler struct {
	buf  []byte
	need int // 0 while idle
}

func NewReassembler() *Reassembler {
	return &Reassembler{buf: make([]byte, 0, packet.SizeWriteFrame)}
}

// Feed consumes chunk and returns every message it completed, in order,
// together with the number of bytes discarded as unknown tags. Returned
// packets are owned by the caller.
func (a *Reassembler) Feed(chunk []byte) (packets [][]byte, dropped int) {
	for len(chunk) > 0 {
		if a.need == 0 {
			size, err := packet.Size(chunk[0])
			if err != nil {
				dropped++
				chunk = chunk[1:]
				continue
			}
			a.need = size
		}

		n := min(a.need-len(a.buf), len(chunk))
		a.buf = append(a.buf, chunk[:n]...)
		chunk = chunk[n:]

		if len(a.buf) == a.need {
			packets = append(packets, bytes.Clone(a.buf))
			a.Reset()
		}
	}
	return packets, dropped
}

// Pending returns the number of bytes buffered for an incomplete message.
func (a *Reassembler) Pending() int {
	return len(a.buf)
}

// Reset discards any partial message.
func (a *Reassembler) Reset() {
	a.buf = a.buf[:0]
	a.need = 0
}
