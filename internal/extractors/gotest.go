package extractors

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/errsift/internal/schema"
)

// gotestState names the parsing states of the go test failure machine.
type gotestState int

const (
	// gotestScanning looks for a "--- FAIL:" header or a panic line.
	gotestScanning gotestState = iota
	// gotestInFail collects indented "file.go:line:" lines for the
	// current failing test.
	gotestInFail
)

// GoTest extracts failures from `go test` output: "--- FAIL: TestName"
// headers followed by indented "file_test.go:12: message" log lines,
// package-level "FAIL\tpkg" trailers, and panics.
type GoTest struct {
	fail    *regexp.Regexp
	logLine *regexp.Regexp
	trailer *regexp.Regexp
	panicRe *regexp.Regexp
}

// NewGoTest creates the go test failure extractor.
func NewGoTest() *GoTest {
	return &GoTest{
		fail:    regexp.MustCompile(`^\s*--- FAIL: (\S+)`),
		logLine: regexp.MustCompile(`^\s+([\w./-]+\.go):(\d+): (.*)$`),
		trailer: regexp.MustCompile(`^FAIL\s+(\S+)`),
		panicRe: regexp.MustCompile(`^panic: (.+)$`),
	}
}

func (g *GoTest) Name() string  { return "gotest" }
func (g *GoTest) Priority() int { return 50 }

func (g *GoTest) Hints() schema.Hints {
	return schema.Hints{
		AnyOf: []string{"--- FAIL", "FAIL\t", "panic:"},
	}
}

func (g *GoTest) Detect(output string) schema.DetectionResult {
	var s score
	var fail, trailer, logLine, panics bool
	for _, line := range splitLines(output) {
		switch {
		case !fail && g.fail.MatchString(line):
			fail = true
			s.add(45, "--- FAIL test header")
		case !trailer && g.trailer.MatchString(line):
			trailer = true
			s.add(20, "package FAIL trailer")
		case !logLine && g.logLine.MatchString(line):
			logLine = true
			s.add(15, "test log line")
		case !panics && g.panicRe.MatchString(line):
			panics = true
			s.add(15, "panic line")
		}
	}
	return s.result("go test")
}

func (g *GoTest) Extract(output, command string) schema.ExtractionResult {
	var errs []schema.FormattedError
	var consumed int

	state := gotestScanning
	var testName string

	for _, line := range splitLines(output) {
		if m := g.fail.FindStringSubmatch(line); m != nil {
			testName = m[1]
			state = gotestInFail
			consumed++
			continue
		}
		if m := g.panicRe.FindStringSubmatch(line); m != nil {
			consumed++
			errs = append(errs, schema.FormattedError{
				Severity: schema.SeverityError,
				Message:  "panic: " + m[1],
				Code:     "panic",
				Context:  testName,
			})
			state = gotestScanning
			continue
		}
		if g.trailer.MatchString(line) {
			state = gotestScanning
			consumed++
			continue
		}
		if state != gotestInFail {
			continue
		}
		if m := g.logLine.FindStringSubmatch(line); m != nil {
			consumed++
			msg := strings.TrimSpace(m[3])
			if msg == "" {
				msg = "test failure in " + testName
			}
			errs = append(errs, schema.FormattedError{
				File:     m[1],
				Line:     atoi(m[2]),
				Severity: schema.SeverityError,
				Message:  msg,
				Context:  testName,
			})
		}
	}

	if len(errs) == 0 {
		return schema.NotMyFormat("go test")
	}

	result := schema.Finalize(errs, gotestGuidance(errs), nil)
	result.Metadata = &schema.ResultMetadata{
		Completeness: schema.Completeness(output, consumed),
	}
	return result
}

func gotestGuidance(errs []schema.FormattedError) string {
	for _, e := range errs {
		if e.Code == "panic" {
			if strings.Contains(e.Message, "test timed out") {
				return "Resolve the test timeout: look for deadlocks or missing channel sends"
			}
			return "Fix the panic before addressing assertion failures"
		}
	}
	return "Fix failing assertions: compare got and want values in each test log line"
}

func (g *GoTest) Samples() []schema.Sample {
	return []schema.Sample{
		{
			Name: "assertion failures",
			Input: "--- FAIL: TestAdd (0.00s)\n" +
				"    math_test.go:12: got 3, want 4\n" +
				"    math_test.go:15: got 0, want 1\n" +
				"--- FAIL: TestSub (0.00s)\n" +
				"    math_test.go:22: unexpected error: overflow\n" +
				"FAIL\n" +
				"FAIL\texample.com/pkg/math\t0.012s\n",
			Command:       "go test ./...",
			WantTool:      "gotest",
			MinConfidence: schema.ConfidenceHigh,
			WantTotal:     3,
			WantErrors: []schema.FormattedError{
				{File: "math_test.go", Line: 12, Severity: "error", Message: "got 3, want 4", Context: "TestAdd"},
				{File: "math_test.go", Line: 15, Severity: "error", Message: "got 0, want 1", Context: "TestAdd"},
				{File: "math_test.go", Line: 22, Severity: "error", Message: "unexpected error: overflow", Context: "TestSub"},
			},
		},
		{
			Name: "panic",
			Input: "--- FAIL: TestIndex (0.01s)\n" +
				"panic: runtime error: index out of range [2] with length 2 [recovered]\n" +
				"FAIL\texample.com/pkg/list\t0.015s\n",
			Command:       "go test ./pkg/list",
			WantTool:      "gotest",
			MinConfidence: schema.ConfidenceHigh,
			WantTotal:     1,
			WantErrors: []schema.FormattedError{
				{Severity: "error", Message: "panic: runtime error: index out of range [2] with length 2 [recovered]", Code: "panic", Context: "TestIndex"},
			},
		},
	}
}
