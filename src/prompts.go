package src

import "fmt"

// Prompt builders. The structured prompts spell out the exact response
// delimiters the codec parses; changing a delimiter here without changing
// the codec breaks the contract.

func editPrompt(path, code, context, instruction string) string {
	return fmt.Sprintf(`You are editing the file %s.

Project context:
%s

Current content:
%s

Instruction: %s

Respond in exactly this format:
%s
<a short explanation of the change>
%s
<the complete new file content, nothing else>
%s
<any caveats or follow-up notes, or "none">`,
		path, context, code, instruction,
		delimExplanation, delimCode, delimNotes)
}

func evaluatePrompt(goal, code, feedback, context string) string {
	var extra string
	if feedback != "" {
		extra += fmt.Sprintf("\nFeedback from the previous iteration: %s\n", feedback)
	}
	if context != "" {
		extra += fmt.Sprintf("\nProject context:\n%s\n", context)
	}
	return fmt.Sprintf(`Evaluate whether the following code achieves this goal.

Goal: %s
%s
Code:
%s

Respond in exactly this format:
%s
<yes or no>
%s
<if no, what specifically is missing or wrong; if yes, a short confirmation>`,
		goal, extra, code, delimAchieved, delimFeedback)
}

func evaluateRunPrompt(goal string, run ExecResult) string {
	status := "succeeded"
	if !run.Succeeded {
		status = "failed"
	}
	return fmt.Sprintf(`The program was executed and the run %s. Evaluate whether this
run shows the goal is achieved.

Goal: %s

Stdout:
%s

Stderr:
%s

Respond in exactly this format:
%s
<yes or no>
%s
<if no, what specifically is missing or wrong; if yes, a short confirmation>`,
		status, goal, run.Stdout, run.Stderr, delimAchieved, delimFeedback)
}

func improveForGoalPrompt(goal, code, feedback, lang string) string {
	return fmt.Sprintf(`Improve the following code so that it achieves this goal.

Goal: %s

Previous feedback: %s

Current code:
`+"```%s\n%s\n```"+`

Return ONLY the complete improved code without any additional text.`,
		goal, feedback, lang, code)
}

func analyzePrompt(path, code, context string) string {
	return fmt.Sprintf(`Analyze the file %s. Describe its structure, purpose, and any
notable issues.

Project context:
%s

Content:
%s`, path, context, code)
}

func improvePrompt(path, code, context string) string {
	return fmt.Sprintf(`Suggest concrete improvements for the file %s. Focus on
correctness, clarity, and maintainability.

Project context:
%s

Content:
%s`, path, context, code)
}

func explainPrompt(path, code, context string) string {
	return fmt.Sprintf(`Explain what the file %s does, step by step, for a developer
who has never seen it.

Project context:
%s

Content:
%s`, path, context, code)
}
