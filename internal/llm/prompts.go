package llm

import (
	_ "embed"

	"studyviz-backend/internal/visualizations"
)

var (
	//go:embed prompts/flowchart.txt
	promptFlowchart string
	//go:embed prompts/mindmap.txt
	promptMindmap string
	//go:embed prompts/cornell.txt
	promptCornell string
)

// MaxInputRunes bounds how much document text is sent to the provider.
const MaxInputRunes = 8000

// SystemPrompt returns the system prompt for a kind and whether the kind was recognized.
func SystemPrompt(kind visualizations.Kind) (string, bool) {
	switch kind {
	case visualizations.KindFlowchart:
		return promptFlowchart, true
	case visualizations.KindMindmap:
		return promptMindmap, true
	case visualizations.KindCornell:
		return promptCornell, true
	default:
		return "", false
	}
}

// UserPrompt wraps the (truncated) document text in the per-kind instruction.
func UserPrompt(kind visualizations.Kind, text string) string {
	text = Truncate(text, MaxInputRunes)
	switch kind {
	case visualizations.KindCornell:
		return "Create Cornell notes from this text:\n\n" + text
	default:
		return "Analyze this text and create a " + string(kind) + ":\n\n" + text
	}
}

// Truncate returns at most max runes of text.
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == max {
			return text[:i]
		}
		count++
	}
	return text
}
