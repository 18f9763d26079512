package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders step text as markdown using
// glamour. The console channel falls back to the raw text when it errors.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Detect light/dark background
		glamour.WithWordWrap(76),
	)
	if err != nil {
		return func(string) (string, error) { return "", err }
	}
	return r.Render
}
