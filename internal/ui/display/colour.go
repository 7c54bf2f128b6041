package display

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// RGB maps a temperature (or a fan speed on the same scale) to a colour:
// cool readings are blue-green, warm ones magenta and hot ones white.
//
//nolint:mnd // The bands are a lookup table.
func RGB(value int) (red, green, blue uint8) {
	t := max(value, 0)

	switch {
	case t <= 34:
		return 64, uint8(64 + t*3), uint8(206 - (35-t)*4)
	case t <= 44:
		return 201, 255, 206
	case t <= 59:
		return 206, 56, uint8(206 - (t-45)*4)
	case t == 60:
		return 206, 0, 197
	case t <= 69:
		return 206, 0, uint8(197 + (t-60)*3)
	default:
		return 255, 0, 255
	}
}

// Colour returns the lipgloss colour for value.
func Colour(value int) lipgloss.Color {
	red, green, blue := RGB(value)

	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", red, green, blue))
}
