package stream

import (
	"regexp"
	"strings"
)

// ansiPattern matches ANSI CSI escape sequences, mirroring the pattern the
// JSON extractor uses to clean AI CLI output before further processing.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[mGKHF]`)

var (
	reHeading     = regexp.MustCompile(`(?i)^(thinking|running|error|result)\s*:\s*(.*)$`)
	reBracket     = regexp.MustCompile(`^\[(tool|error)\]\s*(.*)$`)
	reMarkdownH2  = regexp.MustCompile(`^##\s+(.*)$`)
	reFenceOpen   = regexp.MustCompile("^```")
)

// headingKind maps a text-parser section keyword to a Step kind.
func headingKind(word string) StepKind {
	switch strings.ToLower(word) {
	case "thinking":
		return StepThinking
	case "running":
		return StepToolUse
	case "error":
		return StepError
	case "result":
		return StepResult
	default:
		return StepResult
	}
}

// ParseText runs the line-oriented best-effort parser over plain-text
// engine output (spec §4.1, "Text" mode): headings, bracket markers,
// markdown section headers, and fenced shell blocks each open a new Step;
// everything else is appended to the current step's text.
func ParseText(data []byte) []Step {
	clean := ansiPattern.ReplaceAllString(string(data), "")
	lines := strings.Split(clean, "\n")

	var steps []Step
	var current *Step
	inFence := false

	flush := func() {
		if current != nil {
			current.Text = strings.TrimRight(current.Text, "\n")
			steps = append(steps, *current)
			current = nil
		}
	}
	open := func(kind StepKind, initial string) {
		flush()
		current = &Step{Kind: kind, Text: initial}
	}
	appendLine := func(line string) {
		if current == nil {
			current = &Step{Kind: StepResult}
		}
		if current.Text != "" {
			current.Text += "\n"
		}
		current.Text += line
	}

	for _, line := range lines {
		if reFenceOpen.MatchString(strings.TrimSpace(line)) {
			if inFence {
				inFence = false
				appendLine(line)
				continue
			}
			inFence = true
			open(StepToolUse, "")
			appendLine(line)
			continue
		}
		if inFence {
			appendLine(line)
			continue
		}

		if m := reHeading.FindStringSubmatch(line); m != nil {
			open(headingKind(m[1]), m[2])
			continue
		}
		if m := reBracket.FindStringSubmatch(line); m != nil {
			kind := StepToolUse
			if strings.EqualFold(m[1], "error") {
				kind = StepError
			}
			open(kind, m[2])
			continue
		}
		if m := reMarkdownH2.FindStringSubmatch(line); m != nil {
			open(sectionKindFromTitle(m[1]), "")
			continue
		}
		appendLine(line)
	}
	flush()

	return steps
}

// sectionKindFromTitle maps a markdown "## <title>" header to a step kind
// by keyword match (spec §4.1: "map to thinking|tool_use|error|result by
// keyword"). Unrecognized titles default to result, matching headingKind.
func sectionKindFromTitle(title string) StepKind {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "think"):
		return StepThinking
	case strings.Contains(lower, "tool"), strings.Contains(lower, "run"):
		return StepToolUse
	case strings.Contains(lower, "error"), strings.Contains(lower, "fail"):
		return StepError
	default:
		return StepResult
	}
}
