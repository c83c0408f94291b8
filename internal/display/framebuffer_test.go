package display

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type captureSink struct {
	frames []Frame
}

func (c *captureSink) Flush(f *Frame) error {
	c.frames = append(c.frames, *f)
	return nil
}

func TestFrameBuffer_FlushAppliesBrightness(t *testing.T) {
	sink := &captureSink{}
	fb := NewFrameBuffer(sink, BrightnessQuarter)
	fb.Fill(0xFF, 0x80, 0x04)

	if err := fb.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	r, g, b := sink.frames[0].At(7, 9)
	if r != 0x3F || g != 0x20 || b != 0x01 {
		t.Errorf("flushed = %02X %02X %02X, want 3F 20 01", r, g, b)
	}

	// The unscaled image is untouched by Flush.
	snap := fb.Snapshot()
	if r, _, _ := snap.At(7, 9); r != 0xFF {
		t.Errorf("snapshot R = %02X, want FF", r)
	}
}

func TestFrameBuffer_LoadRowMajor(t *testing.T) {
	fb := NewFrameBuffer(Discard, BrightnessFull)
	pixels := make([]byte, FrameSize)
	o := (3*Width + 2) * Channels // (x=2, y=3)
	pixels[o], pixels[o+1], pixels[o+2] = 1, 2, 3

	if err := fb.Load(pixels); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	snap := fb.Snapshot()
	if r, g, b := snap.At(2, 3); r != 1 || g != 2 || b != 3 {
		t.Errorf("At(2,3) = %d %d %d, want 1 2 3", r, g, b)
	}
	if err := fb.Load(pixels[:10]); err == nil {
		t.Error("Load() with short frame succeeded")
	}
}

func TestFrameBuffer_SetPixelBounds(t *testing.T) {
	fb := NewFrameBuffer(Discard, BrightnessFull)
	if !fb.SetPixel(15, 15, 1, 1, 1) {
		t.Error("SetPixel(15,15) rejected")
	}
	if fb.SetPixel(16, 0, 1, 1, 1) || fb.SetPixel(0, -1, 1, 1, 1) {
		t.Error("SetPixel accepted out-of-range cell")
	}
}

func TestFrameBuffer_SinkError(t *testing.T) {
	boom := errors.New("boom")
	fb := NewFrameBuffer(SinkFunc(func(*Frame) error { return boom }), BrightnessFull)
	if err := fb.Flush(); !errors.Is(err, boom) {
		t.Errorf("Flush() error = %v, want %v", err, boom)
	}
}

func TestStreamSink_WiringOrderGRB(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStreamSink(&buf, Serpentine, OrderGRB)

	var f Frame
	f.Set(0, 0, 0x11, 0x22, 0x33) // wiring index 15
	f.Set(1, 0, 0x44, 0x55, 0x66) // wiring index 16
	if err := sink.Flush(&f); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	out := buf.Bytes()
	if len(out) != 6+FrameSize {
		t.Fatalf("stream length = %d, want %d", len(out), 6+FrameSize)
	}
	if !bytes.Equal(out[:6], []byte{'A', 'd', 'a', 0x00, 0xFF, 0xAA}) {
		t.Errorf("header = % X", out[:6])
	}
	px := out[6:]
	if !bytes.Equal(px[15*3:15*3+3], []byte{0x22, 0x11, 0x33}) {
		t.Errorf("led 15 = % X, want 22 11 33", px[15*3:15*3+3])
	}
	if !bytes.Equal(px[16*3:16*3+3], []byte{0x55, 0x44, 0x66}) {
		t.Errorf("led 16 = % X, want 55 44 66", px[16*3:16*3+3])
	}
}

func TestMultiSink_JoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	c := &captureSink{}
	m := MultiSink{SinkFunc(func(*Frame) error { return boom }), c}
	if err := m.Flush(&Frame{}); !errors.Is(err, boom) {
		t.Errorf("Flush() error = %v, want %v", err, boom)
	}
	if len(c.frames) != 1 {
		t.Error("second sink skipped after first failed")
	}
}

func TestTermSink_RendersRows(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTermSink(&buf, false)
	if err := sink.Flush(&Frame{}); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != Height {
		t.Errorf("rendered %d rows, want %d", n, Height)
	}
}
