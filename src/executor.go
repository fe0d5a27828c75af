package src

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"
)

// ExecResult is the outcome of running a candidate file.
type ExecResult struct {
	Succeeded bool
	Stdout    string
	Stderr    string
}

// ExecFunc runs a file and reports how it went. The convergence loop
// treats any ExecFunc failure as evidence the goal is not met, never as
// a fatal error.
type ExecFunc func(ctx context.Context, path string) (ExecResult, error)

var interpreters = map[string][]string{
	".py": {"python3"},
	".sh": {"bash"},
	".js": {"node"},
	".rb": {"ruby"},
	".pl": {"perl"},
}

// RunFile executes the file with the interpreter matching its extension,
// under the given wall-clock limit. A timeout is reported as a failed run
// carrying *ExecutionTimeout, not as success.
func RunFile(ctx context.Context, path string, limit time.Duration) (ExecResult, error) {
	argv, ok := interpreters[filepath.Ext(path)]
	if !ok {
		return ExecResult{}, fmt.Errorf("no interpreter known for %s", path)
	}

	runCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], append(argv[1:], path)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := ExecResult{
		Succeeded: err == nil,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.Succeeded = false
		return res, &ExecutionTimeout{Path: path, Limit: limit}
	}
	if err != nil {
		if res.Stderr == "" {
			res.Stderr = err.Error()
		}
		return res, nil
	}
	return res, nil
}
