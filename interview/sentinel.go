package interview

import "strings"

// The completion sentinel: a persona wraps its distilled answer in this marker
// pair once it has gathered enough. Presence means "advance".
const (
	SentinelOpen  = "[[CAPTURED]]"
	SentinelClose = "[[/CAPTURED]]"
)

// ScanSentinel looks for the completion sentinel in a model reply. It returns
// the captured block, the reply with the sentinel block removed, and whether
// the sentinel was present. An opening marker without a closing one still
// counts as a completion signal; everything after the marker is the capture.
func ScanSentinel(reply string) (captured string, cleaned string, found bool) {
	start := strings.Index(reply, SentinelOpen)
	if start < 0 {
		return "", reply, false
	}

	rest := reply[start+len(SentinelOpen):]
	end := strings.Index(rest, SentinelClose)
	if end < 0 {
		captured = strings.TrimSpace(rest)
		cleaned = strings.TrimSpace(reply[:start])
		return captured, cleaned, true
	}

	captured = strings.TrimSpace(rest[:end])
	cleaned = joinHalves(reply[:start], rest[end+len(SentinelClose):])
	return captured, cleaned, true
}

// joinHalves rejoins the text around a removed sentinel block with a single
// space, so stripping never leaves doubled whitespace behind.
func joinHalves(before, after string) string {
	before = strings.TrimSpace(before)
	after = strings.TrimSpace(after)
	switch {
	case before == "":
		return after
	case after == "":
		return before
	}
	return before + " " + after
}
