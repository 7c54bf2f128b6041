package display

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	clearScreen = "\x1b[2J\x1b[H"
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"

	// Fallback terminal size when the output is not a terminal.
	defaultWidth  = 80
	defaultHeight = 24
)

// SizeFunc returns the terminal width and height.
type SizeFunc func() (width, height int, err error)

// Frame is one screen of GPU state.
type Frame struct {
	// TempC is the temperature driving the fan curve.
	TempC int
	// Speed is the fan speed in percent.
	Speed int
	// Status describes what the last poll did.
	Status string
	// Details are extra lines, e.g. amdgpu junction and memory temperatures.
	Details []string
}

// Display draws frames on a terminal.
type Display struct {
	// out receives the escape sequences and frames.
	out io.Writer
	// renderer styles text for out.
	renderer *lipgloss.Renderer
	// size reports the terminal dimensions.
	size SizeFunc
}

// New returns a display drawing on the terminal f.
func New(f *os.File) *Display {
	return NewWithSize(f, func() (int, int, error) {
		return term.GetSize(int(f.Fd()))
	})
}

// NewWithSize returns a display drawing on out with a custom size source.
func NewWithSize(out io.Writer, size SizeFunc) *Display {
	return &Display{
		out:      out,
		renderer: lipgloss.NewRenderer(out),
		size:     size,
	}
}

// Start hides the cursor.
func (d *Display) Start() {
	_, _ = io.WriteString(d.out, hideCursor)
}

// Stop shows the cursor again.
func (d *Display) Stop() {
	_, _ = io.WriteString(d.out, showCursor)
}

// Draw clears the screen and prints frame centered.
func (d *Display) Draw(frame *Frame) error {
	width, height := d.dimensions()

	_, err := io.WriteString(d.out, clearScreen+d.Render(frame, width, height)+"\n")

	return err
}

// Render lays frame out centered in a width x height box.
func (d *Display) Render(frame *Frame, width, height int) string {
	lines := []string{
		d.renderer.NewStyle().Foreground(Colour(frame.TempC)).Render(fmt.Sprintf("GPU temp: %d°C", frame.TempC)),
		d.renderer.NewStyle().Foreground(Colour(frame.Speed)).Render(fmt.Sprintf("Current fan speed: %d%%", frame.Speed)),
	}

	lines = append(lines, frame.Details...)

	if frame.Status != "" {
		lines = append(lines, frame.Status)
	}

	body := lipgloss.JoinVertical(lipgloss.Center, lines...)

	return d.renderer.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}

// dimensions returns the terminal size or a fallback.
func (d *Display) dimensions() (int, int) {
	if d.size == nil {
		return defaultWidth, defaultHeight
	}

	width, height, err := d.size()
	if err != nil || width <= 0 || height <= 0 {
		return defaultWidth, defaultHeight
	}

	// Leave the last row for the trailing newline.
	return width, max(height-1, 1)
}
