package src

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GenerateFunc produces model output for a prompt. The loop only ever
// needs this one capability from the agent.
type GenerateFunc func(ctx context.Context, prompt string) (string, error)

// Approver answers the loop's two interactive questions. A nil Approver
// means every proposal is applied without asking.
type Approver interface {
	// ApproveChange decides whether the candidate replaces the current
	// code this iteration.
	ApproveChange(iteration int, candidate, diff string) (bool, error)
	// ContinueAfterReject decides whether a rejected iteration ends the
	// run or the loop tries again.
	ContinueAfterReject() (bool, error)
}

// Outcome is how a convergence run ended.
type Outcome int

const (
	// Converged means an evaluation answered yes within the budget.
	Converged Outcome = iota
	// Exhausted means the budget ran out without a yes.
	Exhausted
	// Aborted means the run stopped deliberately or on a hard error.
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// Result is the final report of one convergence run.
type Result struct {
	Outcome    Outcome
	Iterations int
	Feedback   string
	Reason     string
}

// Hooks let a front end observe the loop without the loop knowing about
// terminals or TUIs. All hooks are optional.
type Hooks struct {
	OnIteration   func(n, max int)
	OnFeedback    func(feedback string)
	OnProposal    func(iteration int, candidate, diff string)
	OnApplied     func(iteration int, backup string)
	OnStatus      func(msg string)
	OnFinalReport func(eval EvaluationResult)
}

func (h Hooks) status(msg string) {
	if h.OnStatus != nil {
		h.OnStatus(msg)
	}
}

// Loop drives a file toward a goal: evaluate, improve, apply, repeat,
// within a fixed iteration budget. One Loop value serves one run and is
// single-threaded.
type Loop struct {
	Gen           GenerateFunc
	Exec          ExecFunc
	Approve       Approver
	Context       func(path string) string
	Lang          string
	MaxIterations int
	Hooks         Hooks
	Log           *zap.SugaredLogger
}

type loopState struct {
	currentCode  string
	iteration    int
	lastFeedback string
}

// writeTargetFile is swapped out in tests to drive the write-failure
// recovery path.
var writeTargetFile = os.WriteFile

// Run executes the convergence loop against path. The returned error is
// non-nil only for hard failures (unreadable target, unrecoverable write);
// model refusals, failed evaluations, and rejections are reported through
// the Result.
func (l *Loop) Run(ctx context.Context, path, goal string) (*Result, error) {
	if l.MaxIterations < 1 {
		l.MaxIterations = 1
	}
	runID := uuid.NewString()
	log := l.Log.With("run_id", runID, "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read target: %w", err)
	}

	st := loopState{currentCode: string(data), iteration: 1}
	log.Infow("convergence run starting", "goal", goal, "max_iterations", l.MaxIterations)

	for st.iteration <= l.MaxIterations {
		if ctx.Err() != nil {
			return &Result{Outcome: Aborted, Iterations: st.iteration, Reason: "interrupted"}, nil
		}
		if l.Hooks.OnIteration != nil {
			l.Hooks.OnIteration(st.iteration, l.MaxIterations)
		}

		eval := l.evaluate(ctx, path, goal, st)
		if l.Hooks.OnFeedback != nil {
			l.Hooks.OnFeedback(eval.Feedback)
		}
		if eval.Achieved {
			log.Infow("goal achieved", "iteration", st.iteration)
			return &Result{Outcome: Converged, Iterations: st.iteration, Feedback: eval.Feedback}, nil
		}
		st.lastFeedback = eval.Feedback

		l.Hooks.status("generating improvement")
		candidate, genErr := l.improve(ctx, goal, st)
		if genErr != nil {
			log.Warnw("improvement generation failed", "iteration", st.iteration, "error", genErr)
			return &Result{
				Outcome:    Aborted,
				Iterations: st.iteration,
				Feedback:   st.lastFeedback,
				Reason:     "could not generate improvement",
			}, nil
		}

		if l.Approve != nil {
			diff := UnifiedDiff(path, st.currentCode, candidate, true)
			if l.Hooks.OnProposal != nil {
				l.Hooks.OnProposal(st.iteration, candidate, diff)
			}
			ok, err := l.Approve.ApproveChange(st.iteration, candidate, diff)
			if err != nil {
				return nil, fmt.Errorf("approval: %w", err)
			}
			if !ok {
				cont, err := l.Approve.ContinueAfterReject()
				if err != nil {
					return nil, fmt.Errorf("approval: %w", err)
				}
				if !cont {
					log.Infow("run stopped after rejection", "iteration", st.iteration)
					return &Result{
						Outcome:    Aborted,
						Iterations: st.iteration,
						Feedback:   st.lastFeedback,
						Reason:     "change rejected",
					}, nil
				}
				// A rejected proposal still spends an iteration; the
				// evaluation feedback carries into the next attempt and
				// the file stays untouched.
				st.iteration++
				continue
			}
		}

		backup, err := WriteBackup(path, st.iteration, st.currentCode)
		if err != nil {
			return nil, err
		}
		if err := writeTargetFile(path, []byte(candidate), 0o644); err != nil {
			if restoreErr := RestoreBackup(backup, path); restoreErr != nil {
				return nil, fmt.Errorf("write failed (%v) and restore failed: %w", err, restoreErr)
			}
			return nil, fmt.Errorf("write target: %w", err)
		}
		if l.Hooks.OnApplied != nil {
			l.Hooks.OnApplied(st.iteration, backup)
		}
		log.Infow("candidate applied", "iteration", st.iteration, "backup", backup)

		st.currentCode = candidate
		st.iteration++
	}

	// Budget spent. One last evaluation reports where the file ended up;
	// nothing is written and the outcome stays Exhausted regardless of
	// what it says.
	l.Hooks.status("budget exhausted, final evaluation")
	final := l.evaluate(ctx, path, goal, st)
	if l.Hooks.OnFinalReport != nil {
		l.Hooks.OnFinalReport(final)
	}
	log.Infow("budget exhausted", "iterations", l.MaxIterations, "final_achieved", final.Achieved)

	return &Result{Outcome: Exhausted, Iterations: l.MaxIterations, Feedback: final.Feedback}, nil
}

// evaluate asks the model whether the code meets the goal. When an
// executor is configured the file is also run and its output judged in a
// second evaluation; convergence requires both to answer yes.
func (l *Loop) evaluate(ctx context.Context, path, goal string, st loopState) EvaluationResult {
	var contextSummary string
	if l.Context != nil {
		contextSummary = l.Context(path)
	}

	l.Hooks.status("evaluating against goal")
	codeEval := l.askEvaluation(ctx, evaluatePrompt(goal, st.currentCode, st.lastFeedback, contextSummary))
	if l.Exec == nil {
		return codeEval
	}

	l.Hooks.status("running " + path)
	run, err := l.Exec(ctx, path)
	if err != nil {
		var te *ExecutionTimeout
		if errors.As(err, &te) {
			run.Stderr = te.Error()
		} else if run.Stderr == "" {
			run.Stderr = err.Error()
		}
		run.Succeeded = false
	}

	l.Hooks.status("evaluating run output")
	execEval := l.askEvaluation(ctx, evaluateRunPrompt(goal, run))

	combined := EvaluationResult{Achieved: codeEval.Achieved && execEval.Achieved}
	switch {
	case codeEval.Achieved && !execEval.Achieved:
		combined.Feedback = execEval.Feedback
	case !codeEval.Achieved && execEval.Achieved:
		combined.Feedback = codeEval.Feedback
	case codeEval.Feedback == execEval.Feedback:
		combined.Feedback = codeEval.Feedback
	default:
		combined.Feedback = strings.TrimSpace(codeEval.Feedback + "\n" + execEval.Feedback)
	}
	return combined
}

// askEvaluation sends one evaluation prompt and parses the answer.
// Transport failures degrade to the fail-closed result rather than
// ending the run.
func (l *Loop) askEvaluation(ctx context.Context, prompt string) EvaluationResult {
	resp, err := l.Gen(ctx, prompt)
	if err != nil {
		l.Log.Warnw("evaluation call failed", "error", err)
		resp = ""
	}
	return ParseEvaluation(resp)
}

// improve asks the model for a full replacement of the current code and
// extracts it. An empty extraction is a generation failure.
func (l *Loop) improve(ctx context.Context, goal string, st loopState) (string, error) {
	prompt := improveForGoalPrompt(goal, st.currentCode, st.lastFeedback, l.Lang)
	resp, err := l.Gen(ctx, prompt)
	if err != nil {
		return "", err
	}
	candidate := ExtractCode(resp, l.Lang)
	if strings.TrimSpace(candidate) == "" {
		return "", fmt.Errorf("model returned no code")
	}
	return candidate, nil
}
