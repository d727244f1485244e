package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultStyles_HaveColor(t *testing.T) {
	styles := DefaultStyles()

	// Spot-check that the accent styles carry a foreground color.
	assert.NotEqual(t, styles.Header.GetForeground(), styles.Dim.GetForeground())
}

func TestNoColorStyles_RenderPlain(t *testing.T) {
	styles := NoColorStyles()

	// Rendering adds no escape sequences.
	out := styles.Header.Render("plain")
	assert.Equal(t, "plain", out)
}

func TestGetStyles(t *testing.T) {
	// NoColor picks the unstyled set.
	noColor := GetStyles(true)
	assert.Equal(t, "x", noColor.Error.Render("x"))

	// Color keeps the palette.
	colored := GetStyles(false)
	assert.NotEqual(t, colored.Error.GetForeground(), colored.Dim.GetForeground())
}
