package src

import (
	"context"
	"fmt"
	"time"
)

// RunAutonomous drives the convergence loop without a human in the seat:
// every proposal is applied, and convergence additionally requires the
// file to execute cleanly. Progress goes to the console.
func (a *Agent) RunAutonomous(ctx context.Context, path, goal string, console *Console) (*Result, error) {
	exec := func(ctx context.Context, p string) (ExecResult, error) {
		return RunFile(ctx, p, a.cfg.ExecTimeout)
	}

	loop := &Loop{
		Gen:           a.Complete,
		Exec:          exec,
		Context:       a.scanner.FileContext,
		Lang:          FenceLangForFile(path),
		MaxIterations: a.cfg.MaxIterations,
		Log:           a.log,
		Hooks:         consoleHooks(console),
	}
	return loop.Run(ctx, path, goal)
}

// RunInteractiveConsole is the plain-terminal variant of the convergence
// loop: proposals are shown as diffs and the user approves each write.
func (a *Agent) RunInteractiveConsole(ctx context.Context, path, goal string, console *Console) (*Result, error) {
	loop := &Loop{
		Gen:           a.Complete,
		Approve:       &consoleApprover{console: console, lang: FenceLangForFile(path)},
		Context:       a.scanner.FileContext,
		Lang:          FenceLangForFile(path),
		MaxIterations: a.cfg.MaxIterations,
		Log:           a.log,
		Hooks:         consoleHooks(console),
	}
	return loop.Run(ctx, path, goal)
}

func consoleHooks(console *Console) Hooks {
	return Hooks{
		OnIteration: func(n, max int) {
			console.Header(fmt.Sprintf("Iteration %d/%d", n, max))
		},
		OnFeedback: func(feedback string) {
			if feedback != "" {
				console.Note("feedback: " + feedback)
			}
		},
		OnApplied: func(_ int, backup string) {
			console.Note("applied, previous version saved to " + backup)
		},
		OnStatus: func(msg string) {
			console.Note(msg)
		},
		OnFinalReport: func(eval EvaluationResult) {
			if eval.Achieved {
				console.Header("Final evaluation: goal achieved")
			} else {
				console.Header("Final evaluation: goal not achieved")
			}
			if eval.Feedback != "" {
				console.Note(eval.Feedback)
			}
		},
	}
}

// ReportResult prints the run's outcome in a compact closing block.
func ReportResult(console *Console, res *Result, started time.Time) {
	switch res.Outcome {
	case Converged:
		console.Header(fmt.Sprintf("Goal achieved after %d iteration(s) in %s",
			res.Iterations, time.Since(started).Round(time.Second)))
	case Exhausted:
		console.Header(fmt.Sprintf("Iteration budget (%d) spent without convergence", res.Iterations))
	case Aborted:
		console.Error("Run stopped: " + res.Reason)
	}
	if res.Feedback != "" {
		console.Note(res.Feedback)
	}
}
