// Package display holds the in-memory frame buffer and the sinks that
// push it to hardware or a terminal.
package display

import (
	"fmt"
	"strings"
)

// Grid geometry. (0, 0) is the lower-left cell.
const (
	Width     = 16
	Height    = 16
	Channels  = 3
	FrameSize = Width * Height * Channels
)

// Frame is a row-major RGB image: cell (x, y) starts at (y*Width+x)*3.
type Frame [FrameSize]byte

// At returns the color of cell (x, y).
func (f *Frame) At(x, y int) (r, g, b byte) {
	o := (y*Width + x) * Channels
	return f[o], f[o+1], f[o+2]
}

// Set stores the color of cell (x, y).
func (f *Frame) Set(x, y int, r, g, b byte) {
	o := (y*Width + x) * Channels
	f[o], f[o+1], f[o+2] = r, g, b
}

// IndexFunc maps a cell to its position in the LED wiring chain.
type IndexFunc func(x, y int) int

// Serpentine is the boustrophedon wiring of the 16x16 panel: columns
// alternate direction, odd columns run bottom-up and even columns top-down.
func Serpentine(x, y int) int {
	if x%2 == 1 {
		return x*Height + y
	}
	return x*Height + (Height - 1 - y)
}

// Brightness is a global right shift applied to every channel at flush.
type Brightness uint8

const (
	BrightnessFull    Brightness = iota // at least 8A at 5V
	BrightnessHalf                      // at least 4A at 5V
	BrightnessQuarter                   // at least 2A at 5V
	BrightnessEighth                    // at least 1A at 5V
)

func (b Brightness) String() string {
	switch b {
	case BrightnessFull:
		return "full"
	case BrightnessHalf:
		return "half"
	case BrightnessQuarter:
		return "quarter"
	case BrightnessEighth:
		return "eighth"
	default:
		return fmt.Sprintf("Brightness(%d)", uint8(b))
	}
}

// ParseBrightness parses "full", "half", "quarter" or "eighth".
func ParseBrightness(s string) (Brightness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full":
		return BrightnessFull, nil
	case "half", "":
		return BrightnessHalf, nil
	case "quarter":
		return BrightnessQuarter, nil
	case "eighth":
		return BrightnessEighth, nil
	default:
		return 0, fmt.Errorf("unknown brightness %q", s)
	}
}
