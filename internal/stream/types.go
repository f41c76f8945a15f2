// Package stream normalizes engine child-process output — stream-JSON
// events or plain text — into an ordered sequence of typed Step records
// plus a Result summary carrying the extracted final response and token
// counts.
package stream

import "encoding/json"

// StepKind is the tag of the Step sum type (spec §4.1 "Step variant set").
type StepKind string

const (
	StepThinking StepKind = "thinking"
	StepToolUse  StepKind = "tool_use"
	StepResult   StepKind = "result"
	StepError    StepKind = "error"
)

// Meta flags an internal record so final-response extraction can skip it.
type Meta struct {
	IsToolResult    bool `json:"is_tool_result,omitempty"`
	IsSystem        bool `json:"is_system,omitempty"`
	IsUserMessage   bool `json:"is_user_message,omitempty"`
	IsInternal      bool `json:"is_internal,omitempty"`
	IsFinalResponse bool `json:"is_final_response,omitempty"`
}

// Step is one normalized unit of engine output. Only the fields relevant to
// Kind are populated; this mirrors a tagged union without reaching for a
// Go interface hierarchy, since the variant set is small and fixed.
type Step struct {
	Kind      StepKind        `json:"kind"`
	Text      string          `json:"text,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
	ToolID    string          `json:"tool_id,omitempty"`
	Meta      Meta            `json:"meta,omitempty"`
}

// Tokens aggregates token usage summed over every stream-JSON event that
// carries a usage object.
type Tokens struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Result is the parser's final output: every step produced plus the
// extracted final response and accumulated token counts.
type Result struct {
	Steps         []Step `json:"steps"`
	FinalResponse string `json:"final_response"`
	Tokens        Tokens `json:"tokens"`
}
