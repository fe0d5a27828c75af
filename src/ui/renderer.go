package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

const Logo = `
███╗   ███╗ ██████╗ ██████╗ ██╗
████╗ ████║██╔═══██╗██╔══██╗██║
██╔████╔██║██║   ██║██████╔╝██║
██║╚██╔╝██║██║   ██║██╔══██╗██║
██║ ╚═╝ ██║╚██████╔╝██║  ██║██║
╚═╝     ╚═╝ ╚═════╝ ╚═╝  ╚═╝╚═╝
      G O A L  ·  C O N V E R G E N C E
`

// Render generates the full UI string based on the provided state.
func Render(s State, styles Styles) string {
	header := renderHeader(s, styles)
	body := renderBody(s, styles)
	footer := renderFooter(s, styles)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func renderHeader(s State, styles Styles) string {
	logoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#5F87FF")).Bold(true)
	styledLogo := logoStyle.Render(Logo)

	status := styles.Status.Render(fmt.Sprintf("TARGET: %s", s.Target))
	iter := styles.Subtitle.Render(fmt.Sprintf("iteration %d/%d", s.Iteration, s.MaxIter))

	return lipgloss.JoinVertical(lipgloss.Left, styledLogo,
		lipgloss.JoinHorizontal(lipgloss.Top, status, iter))
}

func renderFooter(s State, styles Styles) string {
	help := "ctrl+c: quit"
	switch s.Mode {
	case ModeProposal:
		help = "y: apply | n: reject | ctrl+c: quit"
	case ModeContinue:
		help = "y: keep trying | n: stop | ctrl+c: quit"
	case ModeDone:
		help = "q: quit"
	}
	return styles.Footer.Render(help)
}

func renderBody(s State, styles Styles) string {
	switch s.Mode {
	case ModeWorking:
		return renderWorking(s, styles)
	case ModeProposal:
		return renderProposal(s, styles)
	case ModeContinue:
		return renderContinue(s, styles)
	case ModeDone:
		return renderDone(s, styles)
	default:
		return ""
	}
}

func renderWorking(s State, styles Styles) string {
	line := s.Spinner.View() + " " + styles.Thinking.Render(s.Status)
	if s.Feedback != "" {
		line = lipgloss.JoinVertical(lipgloss.Left, line,
			styles.Subtle.Render("feedback: "+s.Feedback))
	}
	return line
}

func renderProposal(s State, styles Styles) string {
	title := styles.Accent.Render(fmt.Sprintf("Proposed change (iteration %d)", s.Iteration))
	return lipgloss.JoinVertical(lipgloss.Left, title, styles.DiffBox.Render(s.Viewport.View()))
}

func renderContinue(s State, styles Styles) string {
	title := styles.Accent.Render("Change rejected. Keep trying with a different approach?")
	if s.Feedback != "" {
		return lipgloss.JoinVertical(lipgloss.Left, title, styles.Subtle.Render(s.Feedback))
	}
	return title
}

func renderDone(s State, styles Styles) string {
	var line string
	switch {
	case s.Err != "":
		line = styles.Error.Render(s.Err)
	case s.Outcome == "converged":
		line = styles.Success.Render(fmt.Sprintf("Goal achieved after %d iteration(s)", s.Iteration))
	case s.Outcome == "exhausted":
		line = styles.Error.Render(fmt.Sprintf("Budget of %d iteration(s) spent without convergence", s.MaxIter))
	default:
		line = styles.Error.Render("Run stopped")
	}
	if s.Feedback != "" {
		return lipgloss.JoinVertical(lipgloss.Left, line, styles.Subtle.Render(s.Feedback))
	}
	return line
}
