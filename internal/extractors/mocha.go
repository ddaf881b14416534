package extractors

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/errsift/internal/schema"
)

// mochaState names the parsing states of the mocha failure machine.
type mochaState int

const (
	// mochaScanning looks for a numbered failure header.
	mochaScanning mochaState = iota
	// mochaMessage waits for the error line under a header.
	mochaMessage
	// mochaFrames collects stack frames for the current failure.
	mochaFrames
)

// Mocha extracts failures from the mocha spec reporter: a numbered
// "N) suite title:" header per failure, the AssertionError/Error line,
// then an indented stack trace.
type Mocha struct {
	header  *regexp.Regexp
	errLine *regexp.Regexp
	failing *regexp.Regexp
	passing *regexp.Regexp
}

// NewMocha creates the mocha failure extractor.
func NewMocha() *Mocha {
	return &Mocha{
		header:  regexp.MustCompile(`^\s*(\d+)\)\s+(.+?):?\s*$`),
		errLine: regexp.MustCompile(`^\s*((?:\w+Error|Error)\b.*)$`),
		failing: regexp.MustCompile(`^\s*\d+ failing`),
		passing: regexp.MustCompile(`^\s*\d+ passing`),
	}
}

func (m *Mocha) Name() string  { return "mocha" }
func (m *Mocha) Priority() int { return 60 }

func (m *Mocha) Hints() schema.Hints {
	return schema.Hints{
		AnyOf: []string{") ", "failing", "AssertionError"},
	}
}

func (m *Mocha) Detect(output string) schema.DetectionResult {
	var s score
	var header, failing, passing, assertion bool
	for _, line := range splitLines(output) {
		switch {
		case !header && m.header.MatchString(line):
			header = true
			s.add(35, "numbered failure header")
		case !failing && m.failing.MatchString(line):
			failing = true
			s.add(25, "failing count summary")
		case !passing && m.passing.MatchString(line):
			passing = true
			s.add(20, "passing count summary")
		case !assertion && strings.Contains(line, "AssertionError"):
			assertion = true
			s.add(20, "assertion error")
		}
	}
	return s.result("mocha")
}

func (m *Mocha) Extract(output, command string) schema.ExtractionResult {
	var errs []schema.FormattedError
	var consumed int

	state := mochaScanning
	var current schema.FormattedError
	var frames int

	flush := func() {
		if current.Message != "" {
			errs = append(errs, current)
		}
		current = schema.FormattedError{}
		frames = 0
	}

	for _, line := range splitLines(output) {
		if h := m.header.FindStringSubmatch(line); h != nil && !m.failing.MatchString(line) && !m.passing.MatchString(line) {
			if state != mochaScanning {
				flush()
			}
			current = schema.FormattedError{
				Severity: schema.SeverityError,
				Context:  strings.TrimSpace(h[2]),
			}
			state = mochaMessage
			consumed++
			continue
		}

		switch state {
		case mochaMessage:
			if e := m.errLine.FindStringSubmatch(line); e != nil {
				current.Message = strings.TrimSpace(e[1])
				state = mochaFrames
				consumed++
			}
		case mochaFrames:
			file, lineNo, ok := parseFrame(line)
			if !ok {
				if strings.TrimSpace(line) == "" {
					continue
				}
				// Multi-line diff output under the assertion is ignored.
				continue
			}
			consumed++
			if frames >= maxStackFrames {
				continue
			}
			frames++
			if current.Line == 0 && isSourceFile(file) {
				current.File = file
				current.Line = lineNo
			}
		}
	}
	if state != mochaScanning {
		flush()
	}

	if len(errs) == 0 {
		return schema.NotMyFormat("mocha")
	}

	result := schema.Finalize(errs, mochaGuidance(errs), nil)
	result.Metadata = &schema.ResultMetadata{
		Completeness: schema.Completeness(output, consumed),
	}
	return result
}

func mochaGuidance(errs []schema.FormattedError) string {
	for _, e := range errs {
		if strings.HasPrefix(e.Message, "AssertionError") {
			return "Fix failing assertions: compare expected and actual values in each failure"
		}
		if strings.Contains(e.Message, "Timeout") || strings.Contains(e.Message, "timed out") {
			return "Resolve test timeouts: ensure async tests call done() or return promises"
		}
	}
	return "Inspect each failing test and align the implementation with the expected behavior"
}

func (m *Mocha) Samples() []schema.Sample {
	return []schema.Sample{
		{
			Name: "assertion failure",
			Input: "  Array\n" +
				"    #indexOf()\n" +
				"      ✓ returns -1 when the value is present\n" +
				"\n" +
				"  1 passing (15ms)\n" +
				"  1 failing\n" +
				"\n" +
				"  1) Array #indexOf() should return -1 when the value is not present:\n" +
				"\n" +
				"     AssertionError: expected -1 to equal 0\n" +
				"      at Context.<anonymous> (test/array.spec.js:9:35)\n" +
				"      at processImmediate (node:internal/timers:476:21)\n",
			Command:       "npx mocha test/",
			WantTool:      "mocha",
			MinConfidence: schema.ConfidenceHigh,
			WantTotal:     1,
			WantErrors: []schema.FormattedError{
				{
					File:     "test/array.spec.js",
					Line:     9,
					Severity: "error",
					Message:  "AssertionError: expected -1 to equal 0",
					Context:  "Array #indexOf() should return -1 when the value is not present",
				},
			},
		},
	}
}
