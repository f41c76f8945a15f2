package stream

import (
	"encoding/json"
	"strings"
)

// Parse converts a complete byte buffer from an engine child process into a
// Result, auto-detecting stream-JSON vs. plain text (spec §4.1).
func Parse(data []byte) Result {
	var steps []Step
	var tokens Tokens

	if IsJSONLinesFormat(data) {
		steps, tokens = parseJSONLinesFull(data)
	} else {
		steps = ParseText(data)
	}

	return Result{
		Steps:         steps,
		FinalResponse: ExtractFinalResponse(steps),
		Tokens:        tokens,
	}
}

// parseJSONLinesFull decodes every line of stream-JSON, accumulating token
// usage from any event carrying a usage object in addition to producing
// Steps.
func parseJSONLinesFull(data []byte) ([]Step, Tokens) {
	var steps []Step
	var tokens Tokens

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		steps = append(steps, parseJSONLine(line)...)

		var ev rawEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		if ev.Usage != nil {
			tokens.Input += ev.Usage.InputTokens
			tokens.Output += ev.Usage.OutputTokens
		}
		if ev.Message != nil && ev.Message.Usage != nil {
			tokens.Input += ev.Message.Usage.InputTokens
			tokens.Output += ev.Message.Usage.OutputTokens
		}
	}

	return steps, tokens
}

// ExtractFinalResponse scans result-typed steps right-to-left, skipping any
// flagged as an internal/tool-result/system/user-message record, and
// returns the last non-empty content (spec §4.1, "Final-response
// extraction"). A step explicitly flagged IsFinalResponse short-circuits
// the scan in its favor, since that is how a vendor's whole-message event
// is distinguished from the delta events that preceded it.
func ExtractFinalResponse(steps []Step) string {
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if s.Kind != StepResult {
			continue
		}
		if s.Meta.IsFinalResponse && strings.TrimSpace(s.Text) != "" {
			return s.Text
		}
	}
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if s.Kind != StepResult {
			continue
		}
		if s.Meta.IsToolResult || s.Meta.IsSystem || s.Meta.IsUserMessage || s.Meta.IsInternal {
			continue
		}
		if strings.TrimSpace(s.Text) != "" {
			return s.Text
		}
	}
	return ""
}
