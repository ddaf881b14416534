package extractors

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/errsift/internal/schema"
)

// maxStackFrames bounds how many "at ..." frames a block extractor
// collects per failure.
const maxStackFrames = 3

// score accumulates additive detection confidence. Each structural
// marker contributes a fixed point value and a human-readable pattern
// name; the total is capped at schema.ConfidenceMax.
type score struct {
	confidence int
	patterns   []string
}

func (s *score) add(points int, pattern string) {
	s.confidence += points
	s.patterns = append(s.patterns, pattern)
}

func (s *score) result(tool string) schema.DetectionResult {
	confidence := s.confidence
	if confidence > schema.ConfidenceMax {
		confidence = schema.ConfidenceMax
	}
	patterns := s.patterns
	if patterns == nil {
		patterns = []string{}
	}
	reason := fmt.Sprintf("no %s markers found", tool)
	if len(patterns) > 0 {
		reason = fmt.Sprintf("matched %s markers: %s", tool, strings.Join(patterns, ", "))
	}
	return schema.DetectionResult{
		Confidence: confidence,
		Patterns:   patterns,
		Reason:     reason,
	}
}

// frameRe matches stack frame lines in both parenthesized and bare
// forms: "at fn (src/app.ts:10:5)" and "at src/app.ts:10:5".
var frameRe = regexp.MustCompile(`^\s+at\s+(?:.*\((.+?):(\d+)(?::\d+)?\)|(.+?):(\d+)(?::\d+)?)\s*$`)

// javaFrameRe matches JVM stack frames: "at com.example.Foo.bar(Foo.java:25)".
var javaFrameRe = regexp.MustCompile(`at\s+[\w.$]+\(([\w$]+\.\w+):(\d+)\)`)

// parseFrame extracts the source location from a stack frame line.
func parseFrame(line string) (file string, lineNo int, ok bool) {
	m := frameRe.FindStringSubmatch(line)
	if m == nil {
		return "", 0, false
	}
	if m[1] != "" {
		return m[1], atoi(m[2]), true
	}
	return m[3], atoi(m[4]), true
}

// isSourceFile reports whether a frame path points at project source
// rather than dependency or runtime internals.
func isSourceFile(path string) bool {
	if path == "" {
		return false
	}
	if strings.Contains(path, "node_modules") {
		return false
	}
	if strings.HasPrefix(path, "internal/") && strings.HasSuffix(path, ".js") {
		// node runtime frames like internal/process/task_queues.js
		return false
	}
	if strings.HasPrefix(path, "node:") {
		return false
	}
	return strings.ContainsRune(path, '.')
}

// atoi converts digit-only regex captures; invalid input yields 0.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// splitLines splits output on newlines, tolerating CRLF.
func splitLines(output string) []string {
	lines := strings.Split(output, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// clip truncates a message for use in context/summary fields.
func clip(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
