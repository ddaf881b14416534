package extractors

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/errsift/internal/schema"
)

// jestState names the parsing states of the jest failure machine.
type jestState int

const (
	// jestScanning looks for a failure bullet.
	jestScanning jestState = iota
	// jestMessage collects the first assertion/exception line after a
	// bullet.
	jestMessage
	// jestFrames collects "at ..." frames for the current failure.
	jestFrames
)

// Jest extracts failure reports from jest runs. The format is a
// block-style report: a "FAIL path" header per suite, a "●" bullet per
// failing test, the assertion message, then a stack trace. The first
// frame pointing at project source supplies file and line.
type Jest struct {
	fail    *regexp.Regexp
	bullet  *regexp.Regexp
	summary *regexp.Regexp
}

// NewJest creates the jest failure extractor.
func NewJest() *Jest {
	return &Jest{
		fail:    regexp.MustCompile(`^FAIL\s+(\S+)`),
		bullet:  regexp.MustCompile(`^\s*●\s+(.+?)\s*$`),
		summary: regexp.MustCompile(`^Tests:\s+.*\bfailed\b`),
	}
}

func (j *Jest) Name() string  { return "jest" }
func (j *Jest) Priority() int { return 65 }

func (j *Jest) Hints() schema.Hints {
	return schema.Hints{
		AnyOf: []string{"●", "FAIL", "expect("},
	}
}

func (j *Jest) Detect(output string) schema.DetectionResult {
	var s score
	var fail, bullet, summary, expect bool
	for _, line := range splitLines(output) {
		switch {
		case !fail && j.fail.MatchString(line):
			fail = true
			s.add(25, "FAIL suite header")
		case !bullet && j.bullet.MatchString(line):
			bullet = true
			s.add(30, "failure bullet")
		case !summary && j.summary.MatchString(line):
			summary = true
			s.add(25, "tests failed summary")
		case !expect && strings.Contains(line, "expect("):
			expect = true
			s.add(20, "expect assertion")
		}
	}
	return s.result("jest")
}

func (j *Jest) Extract(output, command string) schema.ExtractionResult {
	var errs []schema.FormattedError
	var consumed int

	state := jestScanning
	var suite string
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
		if m := j.fail.FindStringSubmatch(line); m != nil {
			if state != jestScanning {
				flush()
				state = jestScanning
			}
			suite = m[1]
			consumed++
			continue
		}
		if m := j.bullet.FindStringSubmatch(line); m != nil {
			if state != jestScanning {
				flush()
			}
			// Snapshot summary bullets are not failures.
			if strings.HasPrefix(m[1], "snapshot") {
				state = jestScanning
				continue
			}
			current = schema.FormattedError{
				Severity: schema.SeverityError,
				Context:  m[1],
				File:     suite,
			}
			state = jestMessage
			consumed++
			continue
		}

		switch state {
		case jestMessage:
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if file, lineNo, ok := parseFrame(line); ok {
				// Bullet followed directly by a trace.
				current.Message = "Test failed: " + current.Context
				j.applyFrame(&current, file, lineNo, &frames)
				state = jestFrames
				consumed++
				continue
			}
			current.Message = trimmed
			state = jestFrames
			consumed++
		case jestFrames:
			file, lineNo, ok := parseFrame(line)
			if !ok {
				// Expected/Received detail lines extend the message
				// context; anything else outside a trace is ignored.
				trimmed := strings.TrimSpace(line)
				if strings.HasPrefix(trimmed, "Expected") || strings.HasPrefix(trimmed, "Received") {
					current.Context = clip(current.Context+" | "+trimmed, 200)
					consumed++
				}
				continue
			}
			consumed++
			j.applyFrame(&current, file, lineNo, &frames)
		}

		if j.summary.MatchString(line) {
			consumed++
		}
	}
	if state != jestScanning {
		flush()
	}

	if len(errs) == 0 {
		return schema.NotMyFormat("jest")
	}

	result := schema.Finalize(errs, jestGuidance(errs), nil)
	result.Metadata = &schema.ResultMetadata{
		Completeness: schema.Completeness(output, consumed),
	}
	return result
}

// applyFrame records a stack frame, letting the first source-file frame
// override the suite-level location.
func (j *Jest) applyFrame(e *schema.FormattedError, file string, lineNo int, frames *int) {
	if *frames >= maxStackFrames {
		return
	}
	*frames++
	if e.Line == 0 && isSourceFile(file) {
		e.File = file
		e.Line = lineNo
	}
}

// jestGuidance derives remediation hints from the failure messages.
func jestGuidance(errs []schema.FormattedError) string {
	for _, e := range errs {
		if strings.Contains(e.Message, "expect(") || strings.Contains(e.Message, "Expected") {
			return "Fix failing assertions: compare expected and received values in each failure"
		}
		if strings.Contains(e.Message, "Cannot find module") {
			return "Install missing modules or fix import paths in the failing suites"
		}
	}
	return "Inspect each failing test and align the implementation with the expected behavior"
}

func (j *Jest) Samples() []schema.Sample {
	return []schema.Sample{
		{
			Name: "assertion failure",
			Input: "FAIL src/__tests__/app.test.ts\n" +
				"  ● App › renders the title\n" +
				"\n" +
				"    expect(received).toBe(expected) // Object.is equality\n" +
				"\n" +
				"    Expected: \"Hello\"\n" +
				"    Received: \"Goodbye\"\n" +
				"\n" +
				"      at Object.<anonymous> (src/__tests__/app.test.ts:12:19)\n" +
				"      at Promise.then.completed (node_modules/jest-circus/build/utils.js:391:28)\n" +
				"\n" +
				"Tests:       1 failed, 2 passed, 3 total\n",
			Command:       "npx jest",
			WantTool:      "jest",
			MinConfidence: schema.ConfidenceHigh,
			WantTotal:     1,
			WantErrors: []schema.FormattedError{
				{
					File:     "src/__tests__/app.test.ts",
					Line:     12,
					Severity: "error",
					Message:  "expect(received).toBe(expected) // Object.is equality",
					Context:  "App › renders the title | Expected: \"Hello\" | Received: \"Goodbye\"",
				},
			},
		},
		{
			Name: "two failing tests",
			Input: "FAIL src/math.test.js\n" +
				"  ● adds numbers\n" +
				"    expect(received).toBe(expected)\n" +
				"      at Object.<anonymous> (src/math.test.js:4:17)\n" +
				"  ● subtracts numbers\n" +
				"    TypeError: sub is not a function\n" +
				"      at Object.<anonymous> (src/math.test.js:9:15)\n" +
				"Tests:       2 failed, 0 passed, 2 total\n",
			Command:       "npx jest src/math.test.js",
			WantTool:      "jest",
			MinConfidence: schema.ConfidenceHigh,
			WantTotal:     2,
			WantErrors: []schema.FormattedError{
				{File: "src/math.test.js", Line: 4, Severity: "error", Message: "expect(received).toBe(expected)", Context: "adds numbers"},
				{File: "src/math.test.js", Line: 9, Severity: "error", Message: "TypeError: sub is not a function", Context: "subtracts numbers"},
			},
		},
	}
}
