package stream

import "strings"

// maxLineBuffer caps a single buffered line at 1MB, generous enough for
// large tool results without letting one runaway line exhaust memory.
const maxLineBuffer = 1 << 20

// IncrementalParser maintains a line buffer across chunk arrivals from a
// child process's stdout and emits Steps as each full line completes (spec
// §4.1, "Incremental parser"). Format detection (stream-JSON vs. text)
// happens lazily on the first complete line and is then fixed for the life
// of the parser, since a vendor never switches formats mid-stream.
type IncrementalParser struct {
	buf           strings.Builder
	detected      bool
	jsonLines     bool
	tokens        Tokens
	textLines     []string // buffered for the text-mode path, which re-parses per flush
	textEmitted   int      // count of text-mode Steps already returned to the caller
}

// NewIncrementalParser returns an empty IncrementalParser.
func NewIncrementalParser() *IncrementalParser {
	return &IncrementalParser{}
}

// Feed appends chunk to the internal buffer and returns any Steps produced
// by newly completed lines.
func (p *IncrementalParser) Feed(chunk []byte) []Step {
	p.buf.WriteString(string(chunk))
	data := p.buf.String()

	lastNewline := strings.LastIndexByte(data, '\n')
	if lastNewline < 0 {
		if p.buf.Len() <= maxLineBuffer {
			return nil
		}
		// Force a flush point so a single pathological line can't grow
		// the buffer unbounded; treat it as a completed line.
		p.buf.Reset()
		return p.consumeLines(data)
	}

	complete := data[:lastNewline]
	remainder := data[lastNewline+1:]
	p.buf.Reset()
	p.buf.WriteString(remainder)

	return p.consumeLines(complete)
}

// Flush processes any remaining buffered partial line and returns every
// Step not yet returned to the caller, including the one held back by
// consumeLines while it might still be accumulating. Call this once at EOF.
func (p *IncrementalParser) Flush() []Step {
	remainder := p.buf.String()
	p.buf.Reset()

	steps := p.consumeLines(remainder)
	if p.jsonLines || len(p.textLines) == 0 {
		return steps
	}

	all := ParseText([]byte(strings.Join(p.textLines, "\n")))
	remaining := all[p.textEmitted:]
	p.textEmitted = len(all)
	return append(steps, remaining...)
}

// Tokens returns the token usage accumulated so far from stream-JSON
// events; always zero in text mode.
func (p *IncrementalParser) Tokens() Tokens { return p.tokens }

func (p *IncrementalParser) consumeLines(block string) []Step {
	if block == "" {
		return nil
	}
	lines := strings.Split(block, "\n")

	if !p.detected {
		p.detected = true
		p.jsonLines = IsJSONLinesFormat([]byte(block))
	}

	var steps []Step
	if p.jsonLines {
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			lineSteps, tok := parseJSONLinesFull([]byte(line))
			steps = append(steps, lineSteps...)
			p.tokens.Input += tok.Input
			p.tokens.Output += tok.Output
		}
		return steps
	}

	for _, line := range lines {
		if line == "" {
			continue
		}
		p.textLines = append(p.textLines, line)
	}
	// Text mode re-parses the full accumulated buffer each flush since
	// section boundaries (markdown headers, fences) can only be resolved
	// once the enclosing lines are known; only the steps not already
	// returned to the caller are emitted here. The last step is held back
	// until Flush unless a new heading has since opened it, since it may
	// still be accumulating lines.
	all := ParseText([]byte(strings.Join(p.textLines, "\n")))
	stable := all
	if len(all) > 0 {
		stable = all[:len(all)-1]
	}
	if p.textEmitted > len(stable) {
		p.textEmitted = len(stable)
	}
	fresh := stable[p.textEmitted:]
	p.textEmitted = len(stable)
	return fresh
}
