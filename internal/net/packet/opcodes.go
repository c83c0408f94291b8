package packet

import (
	"errors"
	"fmt"
)

// Message type tags. The tag is always byte 0 of a message; there is no
// length prefix, so the tag alone determines how many bytes follow.
const (
	OpShowFull   byte = 0x01
	OpShowHalf   byte = 0x02
	OpWriteFrame byte = 0x03
	OpPlayRange  byte = 0x04
)

// Grid geometry.
const (
	GridWidth     = 16
	GridHeight    = 16
	Channels      = 3
	FrameSize     = GridWidth * GridHeight * Channels // 768
	HalfFrameSize = FrameSize / 2                     // 384
)

// Total message sizes, tag byte included. Fields are packed, little-endian.
const (
	SizeShowFull   = 1 + FrameSize
	SizeShowHalf   = 1 + HalfFrameSize
	SizeWriteFrame = 1 + 2 + FrameSize
	SizePlayRange  = 1 + 2 + 2 + 2
)

// AckMessage is written back once per successfully decoded message.
var AckMessage = [4]byte{'A', 'C', 'K', 0}

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrLength      = errors.New("message length mismatch")
)

// Size returns the total length of a message starting with tag.
func Size(tag byte) (int, error) {
	switch tag {
	case OpShowFull:
		return SizeShowFull, nil
	case OpShowHalf:
		return SizeShowHalf, nil
	case OpWriteFrame:
		return SizeWriteFrame, nil
	case OpPlayRange:
		return SizePlayRange, nil
	default:
		return 0, fmt.Errorf("%w: 0x%02X", ErrUnknownType, tag)
	}
}

// Name returns a short human-readable name for an opcode.
func Name(op byte) string {
	switch op {
	case OpShowFull:
		return "ShowFull"
	case OpShowHalf:
		return "ShowHalf"
	case OpWriteFrame:
		return "WriteFrame"
	case OpPlayRange:
		return "PlayRange"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", op)
	}
}
