package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
)

// Mode represents the current UI state
type Mode int

const (
	ModeWorking Mode = iota
	ModeProposal
	ModeContinue
	ModeDone
)

// State contains all the data required to render the UI.
// This decouples the renderer from the main application logic.
type State struct {
	Mode      Mode
	Target    string
	Goal      string
	Iteration int
	MaxIter   int
	Status    string
	Feedback  string
	Outcome   string
	Err       string

	// Bubble Tea models
	Viewport viewport.Model
	Spinner  spinner.Model
}
