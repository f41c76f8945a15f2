package state

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// base36Alphabet is used to render timestamps compactly in issue IDs.
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewRunID generates a run identifier of the form run-YYYYMMDD-HHMMSS-XXXX,
// where XXXX is four random hex characters (spec §3, Run identity).
func NewRunID(now time.Time) (string, error) {
	suffix, err := randomHex(2)
	if err != nil {
		return "", fmt.Errorf("state: generating run id: %w", err)
	}
	return fmt.Sprintf("run-%s-%s", now.UTC().Format("20060102-150405"), suffix), nil
}

// NewIssueID generates an issue identifier of the form
// P-<base36-timestamp>-<6-hex> (spec §3, Issue identity).
func NewIssueID(now time.Time) (string, error) {
	suffix, err := randomHex(3)
	if err != nil {
		return "", fmt.Errorf("state: generating issue id: %w", err)
	}
	return fmt.Sprintf("P-%s-%s", toBase36(now.UTC().Unix()), suffix), nil
}

// NewTaskID generates a task identifier of the form T-<issue-fragment>-<nn>
// for the nth task (1-based) under the given issue (spec §3, Task identity).
// Free-form stable task IDs supplied by the planner are also valid and are
// not generated here.
func NewTaskID(issueID string, n int) string {
	frag := issueID
	if idx := strings.LastIndexByte(issueID, '-'); idx >= 0 && idx+1 < len(issueID) {
		frag = issueID[idx+1:]
	}
	return fmt.Sprintf("T-%s-%02d", frag, n)
}

func toBase36(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var sb strings.Builder
	for v > 0 {
		sb.WriteByte(base36Alphabet[v%36])
		v /= 36
	}
	s := sb.String()
	// reverse
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	if neg {
		return "-" + string(b)
	}
	return string(b)
}

func randomHex(nBytes int) (string, error) {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// ParseBase36 is a small helper retained for tooling/tests that need to
// round-trip toBase36's output; it is not used on any hot path.
func ParseBase36(s string) (int64, error) {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	v, err := strconv.ParseInt(s, 36, 64)
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return v, nil
}
