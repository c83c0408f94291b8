package packet

import (
	"fmt"
	"time"
)

// Command is a decoded client message.
type Command interface {
	Opcode() byte
}

// ShowFull displays one 8-bit-per-channel frame immediately.
// Pixels are row-major RGB: cell (x, y) starts at (y*16+x)*3.
type ShowFull struct {
	Pixels [FrameSize]byte
}

// ShowHalf displays one 4-bit-per-channel frame immediately.
type ShowHalf struct {
	Packed [HalfFrameSize]byte
}

// WriteFrame persists one full-resolution frame at a store slot.
type WriteFrame struct {
	Slot   uint16
	Pixels [FrameSize]byte
}

// PlayRange starts autonomous playback of slots [Begin, End].
type PlayRange struct {
	Begin      uint16
	End        uint16
	IntervalMs uint16
}

func (*ShowFull) Opcode() byte   { return OpShowFull }
func (*ShowHalf) Opcode() byte   { return OpShowHalf }
func (*WriteFrame) Opcode() byte { return OpWriteFrame }
func (*PlayRange) Opcode() byte  { return OpPlayRange }

// Pixels expands the packed nibbles to a full-resolution frame.
func (c *ShowHalf) Pixels() [FrameSize]byte {
	return ExpandHalf(&c.Packed)
}

// Interval returns the tick period as a duration.
func (c *PlayRange) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// Decode parses a complete message. buf must be exactly Size(buf[0]) long;
// once that holds, decoding cannot fail because every field is fixed width.
func Decode(buf []byte) (Command, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrLength)
	}
	size, err := Size(buf[0])
	if err != nil {
		return nil, err
	}
	if len(buf) != size {
		return nil, fmt.Errorf("%w: %s wants %d bytes, got %d", ErrLength, Name(buf[0]), size, len(buf))
	}

	r := NewReader(buf)
	switch r.Opcode() {
	case OpShowFull:
		c := &ShowFull{}
		r.ReadInto(c.Pixels[:])
		return c, nil
	case OpShowHalf:
		c := &ShowHalf{}
		r.ReadInto(c.Packed[:])
		return c, nil
	case OpWriteFrame:
		c := &WriteFrame{Slot: r.ReadH()}
		r.ReadInto(c.Pixels[:])
		return c, nil
	default: // OpPlayRange, the only tag left after Size
		return &PlayRange{
			Begin:      r.ReadH(),
			End:        r.ReadH(),
			IntervalMs: r.ReadH(),
		}, nil
	}
}

// Encode serializes a command into its wire form.
func Encode(cmd Command) []byte {
	switch c := cmd.(type) {
	case *ShowFull:
		w := NewWriterWithOpcode(OpShowFull, SizeShowFull)
		w.WriteBytes(c.Pixels[:])
		return w.Bytes()
	case *ShowHalf:
		w := NewWriterWithOpcode(OpShowHalf, SizeShowHalf)
		w.WriteBytes(c.Packed[:])
		return w.Bytes()
	case *WriteFrame:
		w := NewWriterWithOpcode(OpWriteFrame, SizeWriteFrame)
		w.WriteH(c.Slot)
		w.WriteBytes(c.Pixels[:])
		return w.Bytes()
	case *PlayRange:
		w := NewWriterWithOpcode(OpPlayRange, SizePlayRange)
		w.WriteH(c.Begin)
		w.WriteH(c.End)
		w.WriteH(c.IntervalMs)
		return w.Bytes()
	default:
		panic(fmt.Sprintf("packet: cannot encode %T", cmd))
	}
}

// ExpandHalf unpacks 4-bit channels to 8 bits by shifting left 4.
//
// For cell i at byte o = i*3/2, even cells hold R=hi(o) G=lo(o) B=hi(o+1)
// and odd cells hold R=lo(o) G=hi(o+1) B=lo(o+1).
func ExpandHalf(packed *[HalfFrameSize]byte) [FrameSize]byte {
	var out [FrameSize]byte
	for i := 0; i < GridWidth*GridHeight; i++ {
		o := i * 3 / 2
		var r, g, b byte
		if i%2 == 0 {
			r = packed[o] >> 4
			g = packed[o] & 0x0f
			b = packed[o+1] >> 4
		} else {
			r = packed[o] & 0x0f
			g = packed[o+1] >> 4
			b = packed[o+1] & 0x0f
		}
		out[i*3+0] = r << 4
		out[i*3+1] = g << 4
		out[i*3+2] = b << 4
	}
	return out
}

// PackHalf is the inverse of ExpandHalf; the low nibble of every channel is
// discarded.
func PackHalf(pixels *[FrameSize]byte) [HalfFrameSize]byte {
	var out [HalfFrameSize]byte
	for i := 0; i < GridWidth*GridHeight; i++ {
		o := i * 3 / 2
		r := pixels[i*3+0] >> 4
		g := pixels[i*3+1] >> 4
		b := pixels[i*3+2] >> 4
		if i%2 == 0 {
			out[o] = r<<4 | g
			out[o+1] = b << 4
		} else {
			out[o] |= r
			out[o+1] = g<<4 | b
		}
	}
	return out
}
