package render

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestOverlay(t *testing.T) {
	rows := []string{"aaaaaaaa", "bbbbbbbb", "cc"}
	out := Overlay(rows, "XY\nZW\nQQ", 3, 1)
	assert.Equal(t, []string{"aaaaaaaa", "bbbXYbbb", "cc ZW"}, out)

	// negative x sticks to the left edge
	out = Overlay([]string{"abcd"}, "Z", -2, 0)
	assert.Equal(t, "Zbcd", out[0])

	styled := lipgloss.NewStyle().Bold(true).Render("styled row")
	out = Overlay([]string{styled}, "##", 2, 0)
	assert.Equal(t, "st##ed row", ansi.Strip(out[0]))
}
