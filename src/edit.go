package src

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// EditFile drives one structured edit of a file: send it to the model
// with an instruction, parse the delimited response, show it to the user,
// and apply on approval. approve may be nil for non-interactive use, in
// which case the edit is applied unconditionally.
func (a *Agent) EditFile(ctx context.Context, path, instruction string, approve func(EditProposal, string) (bool, error)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	current := string(data)

	prompt := editPrompt(path, current, a.scanner.FileContext(path), instruction)
	resp, err := a.Complete(ctx, prompt)
	if err != nil {
		return err
	}

	proposal, err := ParseEdit(resp)
	if err != nil {
		var pe *ProtocolParseError
		if errors.As(err, &pe) {
			return fmt.Errorf("model response did not follow the edit format: %w", err)
		}
		return err
	}

	if approve != nil {
		diff := UnifiedDiff(path, current, proposal.Code, true)
		ok, err := approve(proposal, diff)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	backup := path + ".backup"
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(backup, data, mode); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	if err := os.WriteFile(path, []byte(proposal.Code), mode); err != nil {
		if restoreErr := RestoreBackup(backup, path); restoreErr != nil {
			return fmt.Errorf("write failed (%v) and restore failed: %w", err, restoreErr)
		}
		return fmt.Errorf("write %s: %w", path, err)
	}

	// The tree changed; refresh so later commands see the new content.
	_ = a.scanner.Scan(false)
	a.log.Infow("edit applied", "path", path, "backup", backup)
	return nil
}

// AnalyzeCode returns the model's analysis of a file as markdown.
func (a *Agent) AnalyzeCode(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return a.Complete(ctx, analyzePrompt(path, string(data), a.scanner.FileContext(path)))
}

// SuggestImprovements returns improvement suggestions for a file.
func (a *Agent) SuggestImprovements(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return a.Complete(ctx, improvePrompt(path, string(data), a.scanner.FileContext(path)))
}

// ExplainCode returns a walkthrough of a file.
func (a *Agent) ExplainCode(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return a.Complete(ctx, explainPrompt(path, string(data), a.scanner.FileContext(path)))
}

// Ask sends a free-form question, with no file attached.
func (a *Agent) Ask(ctx context.Context, question string) (string, error) {
	return a.Complete(ctx, question)
}

// AskStream is Ask with the answer delivered token by token as it
// arrives; the assembled text is returned once the stream completes.
func (a *Agent) AskStream(ctx context.Context, question string, onToken func(string)) (string, error) {
	return a.GenerateStream(ctx, question, "", onToken)
}
