package engine

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultMinPromptLength is the minimum acceptable prompt length in bytes.
const DefaultMinPromptLength = 100

var (
	reRoleHeader  = regexp.MustCompile(`(?im)^##\s*Role:\s*(.*)$`)
	reRoleCode    = regexp.MustCompile(`\(([A-Z]{2,3})\)`)
	reSectionHead = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	reFence       = "```"
)

// ValidationResult is the outcome of validating a prompt before dispatch
// (spec §4.2 "Prompt validation").
type ValidationResult struct {
	Valid    bool
	Issues   []string
	Warnings []string
}

// ValidatePrompt checks prompt against the fixed rule set: minimum length,
// presence of a "## Role:" section, expected-role match, no duplicate
// section headers, no empty sections, and balanced fenced code blocks.
// Every rule surfaces as a warning except a role conflict, which is a hard
// error: when one is found, Valid is false and the caller must not spawn
// the child process.
func ValidatePrompt(prompt string, expectedRole AgentRole) ValidationResult {
	var res ValidationResult
	res.Valid = true

	if len(prompt) < DefaultMinPromptLength {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"prompt is %d bytes, below the minimum of %d", len(prompt), DefaultMinPromptLength))
	}

	roleMatch := reRoleHeader.FindStringSubmatch(prompt)
	if roleMatch == nil {
		res.Warnings = append(res.Warnings, "prompt has no \"## Role:\" section")
	} else if codeMatch := reRoleCode.FindStringSubmatch(roleMatch[1]); codeMatch != nil {
		if expectedRole != "" && AgentRole(codeMatch[1]) != expectedRole {
			res.Valid = false
			res.Issues = append(res.Issues, fmt.Sprintf(
				"role conflict: prompt declares role %q but request expects %q", codeMatch[1], expectedRole))
		}
	}

	seenHeaders := make(map[string]bool)
	sections := reSectionHead.FindAllStringSubmatchIndex(prompt, -1)
	for i, m := range sections {
		title := strings.TrimSpace(prompt[m[4]:m[5]])
		key := strings.ToLower(title)
		if seenHeaders[key] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("duplicate section header %q", title))
		}
		seenHeaders[key] = true

		start := m[1]
		end := len(prompt)
		if i+1 < len(sections) {
			end = sections[i+1][0]
		}
		if strings.TrimSpace(prompt[start:end]) == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("section %q is empty", title))
		}
	}

	if strings.Count(prompt, reFence)%2 != 0 {
		res.Warnings = append(res.Warnings, "unbalanced fenced code block")
	}

	return res
}
