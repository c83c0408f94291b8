package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TermSink renders frames as colored blocks in a terminal, top row first.
type TermSink struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	home     bool
	sb       strings.Builder
}

// NewTermSink renders to w. With home set, each frame redraws in place.
func NewTermSink(w io.Writer, home bool) *TermSink {
	return &TermSink{w: w, renderer: lipgloss.NewRenderer(w), home: home}
}

func (t *TermSink) Flush(f *Frame) error {
	t.sb.Reset()
	if t.home {
		t.sb.WriteString("\x1b[H")
	}
	for y := Height - 1; y >= 0; y-- {
		for x := 0; x < Width; x++ {
			r, g, b := f.At(x, y)
			hex := fmt.Sprintf("#%02x%02x%02x", r, g, b)
			t.sb.WriteString(t.renderer.NewStyle().Background(lipgloss.Color(hex)).Render("  "))
		}
		t.sb.WriteByte('\n')
	}
	if _, err := io.WriteString(t.w, t.sb.String()); err != nil {
		return fmt.Errorf("write terminal preview: %w", err)
	}
	return nil
}
