package src

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Morteza-Rastgoo/mori-setup/src/ui"
)

// Messages the background loop sends into the TUI.
type (
	statusMsg    string
	iterationMsg struct{ n, max int }
	feedbackMsg  string
	proposalMsg  struct {
		iteration int
		diff      string
		reply     chan bool
	}
	continueMsg struct{ reply chan bool }
	doneMsg     struct {
		res *Result
		err error
	}
)

type tuiModel struct {
	state  ui.State
	styles ui.Styles
	cancel context.CancelFunc

	// pending is the loop's open question, answered by a keypress.
	pending chan bool

	res *Result
	err error
}

func newTUIModel(target, goal string, maxIter int, cancel context.CancelFunc) tuiModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	vp := viewport.New(100, 24)

	return tuiModel{
		state: ui.State{
			Mode:      ui.ModeWorking,
			Target:    target,
			Goal:      goal,
			Iteration: 1,
			MaxIter:   maxIter,
			Status:    "starting",
			Spinner:   sp,
			Viewport:  vp,
		},
		styles: ui.NewStyles(),
		cancel: cancel,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return m.state.Spinner.Tick
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.state.Viewport.Width = msg.Width - 4
		m.state.Viewport.Height = msg.Height - 14
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.state.Spinner, cmd = m.state.Spinner.Update(msg)
		return m, cmd

	case statusMsg:
		m.state.Status = string(msg)
		return m, nil

	case iterationMsg:
		m.state.Iteration = msg.n
		m.state.MaxIter = msg.max
		return m, nil

	case feedbackMsg:
		m.state.Feedback = string(msg)
		return m, nil

	case proposalMsg:
		m.state.Mode = ui.ModeProposal
		m.state.Iteration = msg.iteration
		m.state.Viewport.SetContent(msg.diff)
		m.state.Viewport.GotoTop()
		m.pending = msg.reply
		return m, nil

	case continueMsg:
		m.state.Mode = ui.ModeContinue
		m.pending = msg.reply
		return m, nil

	case doneMsg:
		m.res = msg.res
		m.err = msg.err
		m.state.Mode = ui.ModeDone
		if msg.err != nil {
			m.state.Err = msg.err.Error()
		} else {
			m.state.Outcome = msg.res.Outcome.String()
			m.state.Iteration = msg.res.Iterations
			m.state.Feedback = msg.res.Feedback
			if msg.res.Reason != "" {
				m.state.Err = msg.res.Reason
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.state.Viewport, cmd = m.state.Viewport.Update(msg)
	return m, cmd
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		// Unblock the loop before tearing it down.
		m.answer(false)
		m.cancel()
		return m, tea.Quit

	case "y":
		if m.pending != nil {
			m.answer(true)
			m.state.Mode = ui.ModeWorking
			return m, m.state.Spinner.Tick
		}

	case "n":
		if m.pending != nil {
			m.answer(false)
			m.state.Mode = ui.ModeWorking
			return m, m.state.Spinner.Tick
		}

	case "q":
		if m.state.Mode == ui.ModeDone {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.state.Viewport, cmd = m.state.Viewport.Update(msg)
	return m, cmd
}

func (m *tuiModel) answer(v bool) {
	if m.pending != nil {
		m.pending <- v
		m.pending = nil
	}
}

func (m tuiModel) View() string {
	return ui.Render(m.state, m.styles)
}

// tuiApprover bridges the loop's blocking questions to the TUI event
// loop: each question travels as a message carrying a reply channel.
type tuiApprover struct {
	program *tea.Program
}

func (a *tuiApprover) ApproveChange(iteration int, _, diff string) (bool, error) {
	reply := make(chan bool)
	a.program.Send(proposalMsg{iteration: iteration, diff: diff, reply: reply})
	return <-reply, nil
}

func (a *tuiApprover) ContinueAfterReject() (bool, error) {
	reply := make(chan bool)
	a.program.Send(continueMsg{reply: reply})
	return <-reply, nil
}

// RunInteractiveTUI drives the convergence loop behind a full-screen
// terminal UI. The loop runs in a background goroutine and everything it
// reports travels through Program.Send.
func (a *Agent) RunInteractiveTUI(ctx context.Context, path, goal string) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newTUIModel(path, goal, a.cfg.MaxIterations, cancel)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	approver := &tuiApprover{program: program}

	loop := &Loop{
		Gen:           a.Complete,
		Approve:       approver,
		Context:       a.scanner.FileContext,
		Lang:          FenceLangForFile(path),
		MaxIterations: a.cfg.MaxIterations,
		Log:           a.log,
		Hooks: Hooks{
			OnIteration: func(n, max int) { program.Send(iterationMsg{n: n, max: max}) },
			OnFeedback:  func(f string) { program.Send(feedbackMsg(f)) },
			OnStatus:    func(s string) { program.Send(statusMsg(s)) },
			OnApplied: func(_ int, backup string) {
				program.Send(statusMsg("applied, previous version saved to " + backup))
			},
		},
	}

	go func() {
		res, err := loop.Run(ctx, path, goal)
		program.Send(doneMsg{res: res, err: err})
	}()

	finalModel, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	m := finalModel.(tuiModel)
	if m.err != nil {
		return nil, m.err
	}
	if m.res == nil {
		return &Result{Outcome: Aborted, Reason: "interrupted"}, nil
	}
	return m.res, nil
}
