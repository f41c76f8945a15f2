package gates

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/state"
)

// codeExtensions is the set of source file extensions the placeholder gate
// inspects; declared files outside this set (docs, configs, fixtures) are
// skipped (spec §4.5.4 "placeholder gate").
var codeExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".go": true, ".rs": true, ".java": true,
	".kt": true, ".swift": true, ".c": true, ".cpp": true,
	".h": true, ".hpp": true,
}

// placeholderPatterns is the fixed set of stand-in-implementation markers
// the gate flags. Word-boundary patterns avoid matching identifiers that
// merely contain one of these words (spec §4.5.4).
var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bTODO\b`),
	regexp.MustCompile(`\bFIXME\b`),
	regexp.MustCompile(`\bHACK\b`),
	regexp.MustCompile(`\bXXX\b`),
	regexp.MustCompile(`\breturn\s+(true|false|null)\s*;?\s*$`),
	regexp.MustCompile("throw\\s+(new\\s+\\w+\\()?[\"'`]Not implemented"),
	regexp.MustCompile("[\"'`]TODO[\"'`]"),
	regexp.MustCompile(`\.skip\(`),
	regexp.MustCompile(`\.only\(`),
	regexp.MustCompile(`\bmock\(\)`),
	regexp.MustCompile(`\bstub\(\)`),
}

// RunPlaceholderGate scans every done task's declared files for
// placeholder-implementation markers. It passes iff zero matches are found
// across all declared files (spec §4.5.4).
func RunPlaceholderGate(workDir string, tasks []state.Task) Result {
	now := time.Now()
	var evidence []Evidence

	for _, t := range tasks {
		if t.Status != state.TaskDone {
			continue
		}
		for _, f := range t.Files {
			ext := strings.ToLower(filepath.Ext(f))
			if !codeExtensions[ext] {
				continue
			}
			matches, err := scanFileForPlaceholders(filepath.Join(workDir, f), now)
			if err != nil {
				continue
			}
			for _, m := range matches {
				m.File = f
				evidence = append(evidence, m)
			}
		}
	}

	if len(evidence) == 0 {
		return Result{Gate: GatePlaceholder, Passed: true, Message: "no placeholder markers found", Timestamp: now}
	}
	return Result{
		Gate:      GatePlaceholder,
		Passed:    false,
		Message:   fmt.Sprintf("%d placeholder marker(s) found", len(evidence)),
		Evidence:  evidence,
		Timestamp: now,
	}
}

func scanFileForPlaceholders(path string, now time.Time) ([]Evidence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var evidence []Evidence
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		for _, pat := range placeholderPatterns {
			if pat.MatchString(text) {
				evidence = append(evidence, Evidence{
					Type:      EvidenceFile,
					LineStart: line,
					LineEnd:   line,
					Output:    strings.TrimSpace(text),
					Timestamp: now,
				})
				break
			}
		}
	}
	return evidence, scanner.Err()
}
