package openai

import (
	"fmt"

	"studyviz-backend/internal/llm"
	"studyviz-backend/internal/visualizations"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

const systemPromptFixJSON = "You are a JSON repair tool. Return only valid JSON that matches the requested format exactly."

// BuildPrompt creates the chat messages for a generation request.
func BuildPrompt(kind visualizations.Kind, text string) ([]Message, error) {
	system, ok := llm.SystemPrompt(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", visualizations.ErrInvalidKind, kind)
	}
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: llm.UserPrompt(kind, text)},
	}, nil
}

func buildFixPrompt(kind visualizations.Kind, raw []byte) []Message {
	system, _ := llm.SystemPrompt(kind)
	return []Message{
		{Role: "system", Content: systemPromptFixJSON},
		{Role: "developer", Content: system},
		{Role: "user", Content: fmt.Sprintf("Fix this JSON to match the format exactly. Output JSON only:\n%s", string(raw))},
	}
}
