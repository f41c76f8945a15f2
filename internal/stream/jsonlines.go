package stream

import (
	"encoding/json"
	"strings"
)

// rawEvent is the shape of one line of stream-JSON output (spec §4.1,
// "Stream-JSON"). Type discriminates which other fields are meaningful;
// vendors that emit incremental delta events (type ending in "_delta") are
// tolerated and folded into an internal step rather than rejected.
type rawEvent struct {
	Type    string        `json:"type"`
	Subtype string        `json:"subtype,omitempty"`
	Message *rawMessage   `json:"message,omitempty"`
	Result  string        `json:"result,omitempty"`
	IsError bool          `json:"is_error,omitempty"`
	Usage   *rawUsage     `json:"usage,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type rawMessage struct {
	Role    string         `json:"role,omitempty"`
	Content []rawContent   `json:"content,omitempty"`
	Usage   *rawUsage      `json:"usage,omitempty"`
}

type rawContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}

type rawUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// IsJSONLinesFormat reports whether data looks like stream-JSON output.
// Some vendors emit a non-JSON preamble before their first event, so this
// scans every line (not just the first) for one whose top-level object
// carries a "type" field, per spec §4.1.
func IsJSONLinesFormat(data []byte) bool {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(line), &probe); err == nil && probe.Type != "" {
			return true
		}
		// A line that parses as JSON but has no "type" field is still
		// evidence this isn't plain vendor text; keep scanning regardless.
	}
	return false
}

// parseJSONLine decodes one line of stream-JSON into zero or more Steps. A
// malformed line never aborts parsing: per spec §4.1 it surfaces as a bare
// result step with no metadata.
func parseJSONLine(line string) []Step {
	var ev rawEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return []Step{{Kind: StepResult, Text: line}}
	}

	switch ev.Type {
	case "assistant":
		return contentSteps(ev.Message, false)
	case "user":
		return contentSteps(ev.Message, true)
	case "system":
		return []Step{{Kind: StepResult, Text: ev.Subtype, Meta: Meta{IsSystem: true}}}
	case "error":
		text := ev.Error
		if text == "" && ev.Message != nil {
			text = flattenText(ev.Message.Content)
		}
		return []Step{{Kind: StepError, Text: text}}
	case "result":
		return []Step{{
			Kind: StepResult,
			Text: ev.Result,
			Meta: Meta{IsFinalResponse: !ev.IsError},
		}}
	default:
		// Delta/incremental event types (message_delta, content_block_delta,
		// etc.) or any other vendor-specific type are folded in as internal
		// noise so the whole-message event that follows can be preferred
		// during final-response extraction.
		return []Step{{Kind: StepResult, Text: line, Meta: Meta{IsInternal: true}}}
	}
}

func contentSteps(msg *rawMessage, isUserMessage bool) []Step {
	if msg == nil {
		return nil
	}
	var steps []Step
	for _, block := range msg.Content {
		switch block.Type {
		case "thinking":
			steps = append(steps, Step{Kind: StepThinking, Text: block.Thinking})
		case "tool_use":
			steps = append(steps, Step{
				Kind:      StepToolUse,
				ToolName:  block.Name,
				ToolInput: block.Input,
				ToolID:    block.ID,
			})
		case "tool_result":
			steps = append(steps, Step{
				Kind: StepResult,
				Text: toolResultText(block.Content),
				Meta: Meta{IsToolResult: true, IsUserMessage: isUserMessage},
			})
		case "text":
			steps = append(steps, Step{
				Kind: StepResult,
				Text: block.Text,
				Meta: Meta{IsUserMessage: isUserMessage},
			})
		}
	}
	return steps
}

func toolResultText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s
	}
	return string(content)
}

func flattenText(blocks []rawContent) string {
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "")
}
