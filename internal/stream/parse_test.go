package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsJSONLinesFormat_DetectsTypeField(t *testing.T) {
	t.Parallel()

	assert.True(t, IsJSONLinesFormat([]byte(`{"type":"system","subtype":"init"}`+"\n"+`{"type":"result","result":"done"}`)))
	assert.False(t, IsJSONLinesFormat([]byte("Thinking: let me look at this\nResult: done\n")))
}

func TestIsJSONLinesFormat_SkipsVendorPreamble(t *testing.T) {
	t.Parallel()

	data := "Loading model...\n" + `{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"hi"}]}}`
	assert.True(t, IsJSONLinesFormat([]byte(data)))
}

func TestParse_JSONLines_ExtractsFinalResponse(t *testing.T) {
	t.Parallel()

	data := strings.Join([]string{
		`{"type":"system","subtype":"init"}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"thinking","thinking":"considering"}]}}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"grep","input":{"pattern":"foo"}}]}}`,
		`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"no matches"}]}}`,
		`{"type":"result","result":"the final answer","usage":{"input_tokens":100,"output_tokens":40}}`,
	}, "\n")

	result := Parse([]byte(data))
	assert.Equal(t, "the final answer", result.FinalResponse)
	assert.Equal(t, 100, result.Tokens.Input)
	assert.Equal(t, 40, result.Tokens.Output)

	var toolUseSeen, toolResultSeen bool
	for _, s := range result.Steps {
		if s.Kind == StepToolUse {
			toolUseSeen = true
		}
		if s.Kind == StepResult && s.Meta.IsToolResult {
			toolResultSeen = true
		}
	}
	assert.True(t, toolUseSeen)
	assert.True(t, toolResultSeen)
}

func TestParse_JSONLines_MalformedLineBecomesBareResult(t *testing.T) {
	t.Parallel()

	data := "{\"type\":\"system\"}\nnot json at all\n{\"type\":\"result\",\"result\":\"ok\"}"
	result := Parse([]byte(data))

	var bare bool
	for _, s := range result.Steps {
		if s.Kind == StepResult && s.Text == "not json at all" && s.Meta == (Meta{}) {
			bare = true
		}
	}
	assert.True(t, bare, "malformed line must surface as an unflagged result step")
}

func TestExtractFinalResponse_SkipsFlaggedSteps(t *testing.T) {
	t.Parallel()

	steps := []Step{
		{Kind: StepResult, Text: "tool output", Meta: Meta{IsToolResult: true}},
		{Kind: StepResult, Text: "internal delta", Meta: Meta{IsInternal: true}},
		{Kind: StepResult, Text: "the real answer"},
	}
	assert.Equal(t, "the real answer", ExtractFinalResponse(steps))
}

func TestExtractFinalResponse_PrefersFlaggedWholeMessage(t *testing.T) {
	t.Parallel()

	steps := []Step{
		{Kind: StepResult, Text: "partial delta 1", Meta: Meta{IsInternal: true}},
		{Kind: StepResult, Text: "partial delta 2", Meta: Meta{IsInternal: true}},
		{Kind: StepResult, Text: "the whole message", Meta: Meta{IsFinalResponse: true}},
	}
	assert.Equal(t, "the whole message", ExtractFinalResponse(steps))
}

func TestParseText_HeadingsAndBrackets(t *testing.T) {
	t.Parallel()

	data := "Thinking: planning the fix\nRunning: go build ./...\n[tool] grep foo\nResult: all good\n"
	steps := ParseText([]byte(data))

	require.Len(t, steps, 4)
	assert.Equal(t, StepThinking, steps[0].Kind)
	assert.Contains(t, steps[0].Text, "planning the fix")
	assert.Equal(t, StepToolUse, steps[1].Kind)
	assert.Equal(t, StepToolUse, steps[2].Kind)
	assert.Equal(t, StepResult, steps[3].Kind)
}

func TestParseText_MarkdownHeaders(t *testing.T) {
	t.Parallel()

	data := "## Thinking\nlet me consider this\n## Error\nsomething broke\n"
	steps := ParseText([]byte(data))

	require.Len(t, steps, 2)
	assert.Equal(t, StepThinking, steps[0].Kind)
	assert.Equal(t, StepError, steps[1].Kind)
	assert.Contains(t, steps[1].Text, "something broke")
}

func TestParseText_StripsANSICodes(t *testing.T) {
	t.Parallel()

	data := "Result: \x1b[32mgreen text\x1b[0m\n"
	steps := ParseText([]byte(data))
	require.Len(t, steps, 1)
	assert.NotContains(t, steps[0].Text, "\x1b")
}

func TestIncrementalParser_FeedAcrossChunkBoundaries(t *testing.T) {
	t.Parallel()

	p := NewIncrementalParser()
	var all []Step

	all = append(all, p.Feed([]byte(`{"type":"system","subtype":"init"}`+"\n"+`{"type":"res`))...)
	all = append(all, p.Feed([]byte(`ult","result":"done","usage":{"input_tokens":5,"output_tokens":2}}`+"\n"))...)
	all = append(all, p.Flush()...)

	require.Len(t, all, 2)
	assert.Equal(t, "done", all[1].Text)
	assert.Equal(t, 5, p.Tokens().Input)
}

func TestIncrementalParser_TextMode_NoDuplicateSteps(t *testing.T) {
	t.Parallel()

	p := NewIncrementalParser()
	var all []Step

	all = append(all, p.Feed([]byte("Thinking: step one\n"))...)
	all = append(all, p.Feed([]byte("Running: go test\n"))...)
	all = append(all, p.Flush()...)

	require.Len(t, all, 2)
	assert.Equal(t, StepThinking, all[0].Kind)
	assert.Equal(t, StepToolUse, all[1].Kind)
}
