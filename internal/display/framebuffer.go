package display

import "fmt"

// FrameBuffer is the single mutable image the core draws into. Nothing
// reaches the sink until Flush.
type FrameBuffer struct {
	pix        Frame
	out        Frame
	brightness Brightness
	sink       Sink
}

func NewFrameBuffer(sink Sink, brightness Brightness) *FrameBuffer {
	return &FrameBuffer{sink: sink, brightness: brightness}
}

// SetPixel sets one cell; out-of-range coordinates are ignored.
func (fb *FrameBuffer) SetPixel(x, y int, r, g, b byte) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	fb.pix.Set(x, y, r, g, b)
	return true
}

// Fill paints every cell the same color.
func (fb *FrameBuffer) Fill(r, g, b byte) {
	for i := 0; i < FrameSize; i += Channels {
		fb.pix[i], fb.pix[i+1], fb.pix[i+2] = r, g, b
	}
}

// Load replaces the whole image with a row-major RGB frame.
func (fb *FrameBuffer) Load(pixels []byte) error {
	if len(pixels) != FrameSize {
		return fmt.Errorf("load frame: got %d bytes, want %d", len(pixels), FrameSize)
	}
	copy(fb.pix[:], pixels)
	return nil
}

// Snapshot returns a copy of the unscaled image.
func (fb *FrameBuffer) Snapshot() Frame {
	return fb.pix
}

func (fb *FrameBuffer) Brightness() Brightness {
	return fb.brightness
}

func (fb *FrameBuffer) SetBrightness(b Brightness) {
	fb.brightness = b
}

// Flush scales the image by the brightness shift and hands it to the sink.
// The sink must not retain the frame after Flush returns.
func (fb *FrameBuffer) Flush() error {
	shift := uint8(fb.brightness)
	for i, v := range fb.pix {
		fb.out[i] = v >> shift
	}
	if err := fb.sink.Flush(&fb.out); err != nil {
		return fmt.Errorf("flush display: %w", err)
	}
	return nil
}
