// Package scripting renders procedural animation frames from Lua.
package scripting

import (
	"fmt"

	"github.com/pixelwall/server/internal/display"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding one generator script.
// Single-goroutine access only.
//
// A script defines a global function render(frame, x, y) returning r, g, b
// in 0..255. It may set FRAMES to the number of frames it wants rendered.
// WIDTH and HEIGHT are preset.
type Engine struct {
	vm   *lua.LState
	path string
	log  *zap.Logger
}

// NewEngine creates a Lua engine and loads the script at path.
func NewEngine(path string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("WIDTH", lua.LNumber(display.Width))
	vm.SetGlobal("HEIGHT", lua.LNumber(display.Height))

	if err := vm.DoFile(path); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if vm.GetGlobal("render").Type() != lua.LTFunction {
		vm.Close()
		return nil, fmt.Errorf("load %s: no render function", path)
	}
	log.Debug("loaded lua script", zap.String("file", path))
	return &Engine{vm: vm, path: path, log: log}, nil
}

// Frames returns the script's FRAMES global, or 0 when unset.
func (e *Engine) Frames() int {
	if n, ok := e.vm.GetGlobal("FRAMES").(lua.LNumber); ok && n > 0 {
		return int(n)
	}
	return 0
}

// Render calls render for every cell of frame n and returns a row-major
// RGB frame.
func (e *Engine) Render(n int) ([]byte, error) {
	fn := e.vm.GetGlobal("render")
	out := make([]byte, display.FrameSize)
	for y := 0; y < display.Height; y++ {
		for x := 0; x < display.Width; x++ {
			if err := e.vm.CallByParam(lua.P{
				Fn:      fn,
				NRet:    3,
				Protect: true,
			}, lua.LNumber(n), lua.LNumber(x), lua.LNumber(y)); err != nil {
				return nil, fmt.Errorf("%s: render(%d, %d, %d): %w", e.path, n, x, y, err)
			}
			i := (y*display.Width + x) * display.Channels
			out[i] = channel(e.vm.Get(-3))
			out[i+1] = channel(e.vm.Get(-2))
			out[i+2] = channel(e.vm.Get(-1))
			e.vm.Pop(3)
		}
	}
	return out, nil
}

// channel clamps a Lua value to a color byte. Non-numbers are 0.
func channel(v lua.LValue) byte {
	n, ok := v.(lua.LNumber)
	if !ok {
		return 0
	}
	switch {
	case n <= 0:
		return 0
	case n >= 255:
		return 255
	default:
		return byte(n)
	}
}

// Close releases the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
