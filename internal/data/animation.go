// Package data loads animation manifests and frame images from disk.
package data

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pixelwall/server/internal/display"
	"github.com/pixelwall/server/internal/scripting"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FrameSource is one manifest entry. Exactly one of File or Script is set.
type FrameSource struct {
	File   string `yaml:"file"`   // .rgb, .png or .gif
	Script string `yaml:"script"` // Lua generator
	Count  int    `yaml:"count"`  // frames to render; 0 uses the script's FRAMES
}

// Manifest is the on-disk animation description.
type Manifest struct {
	Name       string        `yaml:"name"`
	Slot       int           `yaml:"slot"`
	IntervalMs int           `yaml:"interval_ms"`
	Frames     []FrameSource `yaml:"frames"`
}

// Animation is a manifest with every frame resolved to row-major RGB.
type Animation struct {
	Name     string
	Slot     int
	Interval time.Duration
	Frames   [][]byte
}

// End returns the last slot the animation occupies.
func (a *Animation) End() int {
	return a.Slot + len(a.Frames) - 1
}

// LoadAnimation reads a YAML manifest. Frame paths are relative to the
// manifest's directory.
func LoadAnimation(path string, log *zap.Logger) (*Animation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read animation: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse animation %s: %w", path, err)
	}
	if m.Slot < 0 {
		return nil, fmt.Errorf("animation %s: negative slot %d", path, m.Slot)
	}
	if m.IntervalMs <= 0 {
		m.IntervalMs = 100
	}

	dir := filepath.Dir(path)
	anim := &Animation{
		Name:     m.Name,
		Slot:     m.Slot,
		Interval: time.Duration(m.IntervalMs) * time.Millisecond,
	}
	if anim.Name == "" {
		anim.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	for i, src := range m.Frames {
		var frames [][]byte
		switch {
		case src.File != "" && src.Script != "":
			return nil, fmt.Errorf("animation %s: frame %d sets both file and script", path, i)
		case src.File != "":
			frames, err = LoadImage(filepath.Join(dir, src.File))
		case src.Script != "":
			frames, err = renderScript(filepath.Join(dir, src.Script), src.Count, log)
		default:
			return nil, fmt.Errorf("animation %s: frame %d has no source", path, i)
		}
		if err != nil {
			return nil, fmt.Errorf("animation %s: %w", path, err)
		}
		anim.Frames = append(anim.Frames, frames...)
	}
	if len(anim.Frames) == 0 {
		return nil, fmt.Errorf("animation %s: no frames", path)
	}

	log.Debug("animation loaded",
		zap.String("name", anim.Name),
		zap.Int("slot", anim.Slot),
		zap.Int("frames", len(anim.Frames)),
	)
	return anim, nil
}

func renderScript(path string, count int, log *zap.Logger) ([][]byte, error) {
	eng, err := scripting.NewEngine(path, log)
	if err != nil {
		return nil, err
	}
	defer eng.Close()

	if count <= 0 {
		count = eng.Frames()
	}
	if count <= 0 {
		return nil, fmt.Errorf("%s: frame count not set", path)
	}
	frames := make([][]byte, 0, count)
	for n := 0; n < count; n++ {
		f, err := eng.Render(n)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// ErrRawSize is returned for a .rgb file that is not a whole number of frames.
var ErrRawSize = errors.New("raw file is not a multiple of the frame size")

// LoadImage decodes a frame file. A .rgb file holds one or more raw
// row-major frames back to back; a .gif yields every frame.
func LoadImage(path string) ([][]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rgb", ".raw":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 || len(raw)%display.FrameSize != 0 {
			return nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrRawSize, len(raw))
		}
		var frames [][]byte
		for off := 0; off < len(raw); off += display.FrameSize {
			frames = append(frames, raw[off:off+display.FrameSize])
		}
		return frames, nil

	case ".png":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, err := png.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return [][]byte{ImageFrame(img)}, nil

	case ".gif":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		g, err := gif.DecodeAll(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return gifFrames(g), nil

	default:
		return nil, fmt.Errorf("%s: unsupported frame format", path)
	}
}

// gifFrames composites each GIF frame over the canvas the previous one
// left behind. A frame's disposal method applies after it is emitted.
func gifFrames(g *gif.GIF) [][]byte {
	canvas := image.NewRGBA(image.Rect(0, 0, g.Config.Width, g.Config.Height))
	saved := image.NewRGBA(canvas.Rect)
	frames := make([][]byte, 0, len(g.Image))
	for i, p := range g.Image {
		var disposal byte
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			copy(saved.Pix, canvas.Pix)
		}

		draw.Draw(canvas, p.Bounds(), p, p.Bounds().Min, draw.Over)
		frames = append(frames, ImageFrame(canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, p.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			copy(canvas.Pix, saved.Pix)
		}
	}
	return frames
}

// ImageFrame samples img onto the grid by nearest neighbor and returns a
// row-major RGB frame. The top image row lands on grid row Height-1.
func ImageFrame(img image.Image) []byte {
	b := img.Bounds()
	out := make([]byte, display.FrameSize)
	for y := 0; y < display.Height; y++ {
		sy := b.Min.Y + (display.Height-1-y)*b.Dy()/display.Height
		for x := 0; x < display.Width; x++ {
			sx := b.Min.X + x*b.Dx()/display.Width
			r, g, bl, _ := img.At(sx, sy).RGBA()
			i := (y*display.Width + x) * display.Channels
			out[i], out[i+1], out[i+2] = byte(r>>8), byte(g>>8), byte(bl>>8)
		}
	}
	return out
}
