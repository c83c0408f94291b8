package display

import (
	"fmt"
	"io"
	"strings"
)

// ChannelOrder selects the byte order of one LED on the wire.
type ChannelOrder uint8

const (
	OrderGRB ChannelOrder = iota // WS2812B native
	OrderRGB
)

// ParseChannelOrder parses "grb" or "rgb".
func ParseChannelOrder(s string) (ChannelOrder, error) {
	switch strings.ToLower(s) {
	case "grb", "":
		return OrderGRB, nil
	case "rgb":
		return OrderRGB, nil
	default:
		return 0, fmt.Errorf("unknown channel order %q", s)
	}
}

// StreamSink writes each frame to w in wiring order, prefixed with an
// Adalight header ("Ada", count-1 hi, count-1 lo, hi^lo^0x55) so a pixel
// driver board on the other end of a serial link can resynchronize.
type StreamSink struct {
	w     io.Writer
	index IndexFunc
	order ChannelOrder
	buf   [6 + FrameSize]byte
}

func NewStreamSink(w io.Writer, index IndexFunc, order ChannelOrder) *StreamSink {
	s := &StreamSink{w: w, index: index, order: order}
	n := Width*Height - 1
	hi, lo := byte(n>>8), byte(n)
	copy(s.buf[:], []byte{'A', 'd', 'a', hi, lo, hi ^ lo ^ 0x55})
	return s
}

func (s *StreamSink) Flush(f *Frame) error {
	px := s.buf[6:]
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			r, g, b := f.At(x, y)
			o := s.index(x, y) * Channels
			if s.order == OrderGRB {
				px[o], px[o+1], px[o+2] = g, r, b
			} else {
				px[o], px[o+1], px[o+2] = r, g, b
			}
		}
	}
	if _, err := s.w.Write(s.buf[:]); err != nil {
		return fmt.Errorf("write led stream: %w", err)
	}
	return nil
}
