package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
)

func TestRenderContainsLogoAndTarget(t *testing.T) {
	styles := NewStyles()
	sp := spinner.New()

	state := State{
		Mode:      ModeWorking,
		Target:    "app.py",
		Iteration: 1,
		MaxIter:   5,
		Status:    "evaluating against goal",
		Spinner:   sp,
	}

	output := Render(state, styles)

	if !strings.Contains(output, "TARGET: app.py") {
		t.Errorf("Expected output to contain the target banner")
	}
	if !strings.Contains(output, "iteration 1/5") {
		t.Errorf("Expected output to contain the iteration counter")
	}
}

func TestRenderProposalShowsDiffAndKeys(t *testing.T) {
	styles := NewStyles()
	vp := viewport.New(80, 20)
	vp.SetContent("-old line\n+new line")

	state := State{
		Mode:      ModeProposal,
		Target:    "app.py",
		Iteration: 2,
		MaxIter:   5,
		Viewport:  vp,
	}

	output := Render(state, styles)

	if !strings.Contains(output, "Proposed change (iteration 2)") {
		t.Errorf("Expected proposal title, got:\n%s", output)
	}
	if !strings.Contains(output, "y: apply") {
		t.Errorf("Expected proposal key hints in footer")
	}
}

func TestRenderDoneOutcomes(t *testing.T) {
	styles := NewStyles()

	converged := Render(State{Mode: ModeDone, Outcome: "converged", Iteration: 3, MaxIter: 5}, styles)
	if !strings.Contains(converged, "Goal achieved after 3 iteration(s)") {
		t.Errorf("Expected converged banner, got:\n%s", converged)
	}

	exhausted := Render(State{Mode: ModeDone, Outcome: "exhausted", MaxIter: 5}, styles)
	if !strings.Contains(exhausted, "Budget of 5 iteration(s)") {
		t.Errorf("Expected exhausted banner, got:\n%s", exhausted)
	}
}
