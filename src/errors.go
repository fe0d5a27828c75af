package src

import (
	"fmt"
	"time"
)

// TransportError wraps a network or timeout failure while talking to the
// inference server. The convergence loop treats it the same as "no
// response": the current step is abandoned, the loop survives.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ollama %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolParseError reports a model response that does not follow the
// delimiter contract embedded in the prompt. Recoverable by the caller:
// log, drop the current step, keep the process alive.
type ProtocolParseError struct {
	Reason string
}

func (e *ProtocolParseError) Error() string { return e.Reason }

// ExecutionTimeout reports that the target program outlived the fixed
// wall-clock bound. The autonomous loop records it as a failed run and
// keeps iterating.
type ExecutionTimeout struct {
	Path  string
	Limit time.Duration
}

func (e *ExecutionTimeout) Error() string {
	return fmt.Sprintf("execution of %s timed out after %s", e.Path, e.Limit)
}
