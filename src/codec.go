package src

import (
	"path/filepath"
	"strings"
)

// Section delimiters the prompt templates instruct the model to emit.
// Parsing is plain text splitting on these literals; a model that echoes
// a delimiter inside its prose breaks the split. That fragility is part
// of the wire contract, so everything here stays behind this file and a
// structured-output codec can replace it without touching the loop.
const (
	delimExplanation = "---EXPLANATION---"
	delimCode        = "---CODE---"
	delimNotes       = "---NOTES---"
	delimAchieved    = "---ACHIEVED---"
	delimFeedback    = "---FEEDBACK---"
)

const codeFence = "```"

// EditProposal is a parsed three-section edit response.
type EditProposal struct {
	Explanation string
	Code        string
	Notes       string
}

// EvaluationResult is a parsed goal evaluation. Achieved is true only
// when the model answered the literal token "yes".
type EvaluationResult struct {
	Achieved bool
	Feedback string
}

// failedEvaluation is the fail-closed value ParseEvaluation returns for
// anything it cannot split. Evaluation failures must never abort the
// outer loop, so this is a value, not an error.
var failedEvaluation = EvaluationResult{Achieved: false, Feedback: "Failed to parse evaluation"}

// ParseEdit splits a response on the three edit delimiters, in order.
// All three must be present or the response is rejected with a
// ProtocolParseError. The code section is passed through verbatim; no
// syntax validation happens here.
func ParseEdit(response string) (EditProposal, error) {
	_, afterExp, ok := strings.Cut(response, delimExplanation)
	if !ok {
		return EditProposal{}, &ProtocolParseError{Reason: "malformed edit response"}
	}
	explanation, _, _ := strings.Cut(afterExp, delimCode)

	_, afterCode, ok := strings.Cut(response, delimCode)
	if !ok {
		return EditProposal{}, &ProtocolParseError{Reason: "malformed edit response"}
	}
	code, _, _ := strings.Cut(afterCode, delimNotes)

	_, notes, ok := strings.Cut(response, delimNotes)
	if !ok {
		return EditProposal{}, &ProtocolParseError{Reason: "malformed edit response"}
	}

	return EditProposal{
		Explanation: strings.TrimSpace(explanation),
		Code:        strings.TrimSpace(code),
		Notes:       strings.TrimSpace(notes),
	}, nil
}

// ParseEvaluation splits a response on the two evaluation delimiters.
// Any response that cannot be split (including an empty one, which is
// how the loop reports "no response at all") yields the fail-closed
// result instead of an error.
func ParseEvaluation(response string) EvaluationResult {
	_, afterAchieved, ok := strings.Cut(response, delimAchieved)
	if !ok {
		return failedEvaluation
	}
	achieved, _, _ := strings.Cut(afterAchieved, delimFeedback)

	_, feedback, ok := strings.Cut(response, delimFeedback)
	if !ok {
		return failedEvaluation
	}

	return EvaluationResult{
		Achieved: strings.ToLower(strings.TrimSpace(achieved)) == "yes",
		Feedback: strings.TrimSpace(feedback),
	}
}

// ExtractCode pulls the replacement code out of an improvement response.
// Three tiers, strictly in this order: a fenced block tagged with lang,
// then any fenced block, then the whole trimmed response.
func ExtractCode(response, lang string) string {
	if lang != "" {
		tagged := codeFence + lang
		if strings.Contains(response, tagged) {
			_, rest, _ := strings.Cut(response, tagged)
			inner, _, _ := strings.Cut(rest, codeFence)
			return strings.TrimSpace(inner)
		}
	}
	if strings.Contains(response, codeFence) {
		_, rest, _ := strings.Cut(response, codeFence)
		inner, _, _ := strings.Cut(rest, codeFence)
		return strings.TrimSpace(inner)
	}
	return strings.TrimSpace(response)
}

// fenceLangFromExt maps a file extension to the fence tag the model is
// asked to use for that file.
func fenceLangFromExt(ext string) string {
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "go":
		return "go"
	case "py":
		return "python"
	case "js":
		return "javascript"
	case "ts", "tsx":
		return "ts"
	case "rs":
		return "rust"
	case "rb":
		return "ruby"
	case "java":
		return "java"
	case "c", "h":
		return "c"
	case "cpp", "hpp", "cc", "cxx":
		return "cpp"
	case "sh":
		return "bash"
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "md":
		return "md"
	default:
		return ""
	}
}

// FenceLangForFile returns the fence tag for a file path, "python" for
// foo.py and so on. Empty for unknown extensions, which drops ExtractCode
// straight to the generic-fence tier.
func FenceLangForFile(path string) string {
	return fenceLangFromExt(filepath.Ext(path))
}
