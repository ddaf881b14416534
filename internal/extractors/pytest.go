package extractors

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/errsift/internal/schema"
)

// pytestState names the parsing states of the pytest failure machine.
type pytestState int

const (
	// pytestScanning looks for the FAILURES banner or summary lines.
	pytestScanning pytestState = iota
	// pytestInBlock is inside one test's failure block.
	pytestInBlock
)

// Pytest extracts failures from pytest output. The FAILURES section
// carries one underscored block per failing test with "E" assertion
// lines and a trailing "path:line: ExceptionType" location; the short
// test summary repeats each failure as "FAILED path::test - message".
// When the FAILURES section is present it is authoritative and the
// summary lines are ignored, so the same failure is never counted
// twice.
type Pytest struct {
	banner   *regexp.Regexp
	block    *regexp.Regexp
	errLine  *regexp.Regexp
	location *regexp.Regexp
	failed   *regexp.Regexp
	section  *regexp.Regexp
}

// NewPytest creates the pytest failure extractor.
func NewPytest() *Pytest {
	return &Pytest{
		banner:   regexp.MustCompile(`^=+ FAILURES =+$`),
		block:    regexp.MustCompile(`^_+ (.+?) _+$`),
		errLine:  regexp.MustCompile(`^E\s+(.+)$`),
		location: regexp.MustCompile(`^(\S+\.py):(\d+):\s*(\S.*)?$`),
		failed:   regexp.MustCompile(`^FAILED (\S+?)::(\S+?)(?: - (.+))?$`),
		section:  regexp.MustCompile(`^=+ .* =+$`),
	}
}

func (p *Pytest) Name() string  { return "pytest" }
func (p *Pytest) Priority() int { return 55 }

func (p *Pytest) Hints() schema.Hints {
	return schema.Hints{
		AnyOf: []string{"FAILED", "FAILURES", "short test summary"},
	}
}

func (p *Pytest) Detect(output string) schema.DetectionResult {
	var s score
	var banner, failed, errLines, sep, summary bool
	for _, line := range splitLines(output) {
		switch {
		case !banner && p.banner.MatchString(line):
			banner = true
			s.add(30, "FAILURES banner")
		case !failed && p.failed.MatchString(line):
			failed = true
			s.add(30, "FAILED summary line")
		case !errLines && p.errLine.MatchString(line):
			errLines = true
			s.add(20, "E assertion line")
		case !summary && strings.Contains(line, "short test summary info"):
			summary = true
			s.add(15, "short summary section")
		case !sep && strings.Contains(line, "::"):
			sep = true
			s.add(10, "node id separator")
		}
	}
	return s.result("pytest")
}

func (p *Pytest) Extract(output, command string) schema.ExtractionResult {
	lines := splitLines(output)

	errs, consumed := p.extractBlocks(lines)
	if len(errs) == 0 {
		errs, consumed = p.extractSummary(lines)
	}
	if len(errs) == 0 {
		return schema.NotMyFormat("pytest")
	}

	result := schema.Finalize(errs, pytestGuidance(errs), nil)
	result.Metadata = &schema.ResultMetadata{
		Completeness: schema.Completeness(output, consumed),
	}
	return result
}

// extractBlocks walks the FAILURES section.
func (p *Pytest) extractBlocks(lines []string) ([]schema.FormattedError, int) {
	var errs []schema.FormattedError
	var consumed int

	state := pytestScanning
	inFailures := false
	var current schema.FormattedError

	flush := func() {
		if current.Message != "" {
			errs = append(errs, current)
		}
		current = schema.FormattedError{}
	}

	for _, line := range lines {
		if p.banner.MatchString(line) {
			inFailures = true
			consumed++
			continue
		}
		if !inFailures {
			continue
		}
		// Any other ==== banner ends the FAILURES section.
		if p.section.MatchString(line) {
			if state == pytestInBlock {
				flush()
			}
			break
		}

		if b := p.block.FindStringSubmatch(line); b != nil {
			if state == pytestInBlock {
				flush()
			}
			current = schema.FormattedError{
				Severity: schema.SeverityError,
				Context:  strings.TrimSpace(b[1]),
			}
			state = pytestInBlock
			consumed++
			continue
		}
		if state != pytestInBlock {
			continue
		}

		if e := p.errLine.FindStringSubmatch(line); e != nil {
			consumed++
			if current.Message == "" {
				current.Message = strings.TrimSpace(e[1])
			}
			continue
		}
		if l := p.location.FindStringSubmatch(line); l != nil {
			consumed++
			if current.File == "" {
				current.File = l[1]
				current.Line = atoi(l[2])
				if current.Message == "" && l[3] != "" {
					current.Message = strings.TrimSpace(l[3])
				}
			}
		}
	}
	if state == pytestInBlock {
		flush()
	}
	return errs, consumed
}

// extractSummary parses "FAILED path::test - message" lines, used when
// the run produced no FAILURES section (e.g. pytest -q --no-header).
func (p *Pytest) extractSummary(lines []string) ([]schema.FormattedError, int) {
	var errs []schema.FormattedError
	var consumed int
	for _, line := range lines {
		m := p.failed.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		consumed++
		msg := m[3]
		if msg == "" {
			msg = "Test failed: " + m[2]
		}
		errs = append(errs, schema.FormattedError{
			File:     m[1],
			Severity: schema.SeverityError,
			Message:  msg,
			Context:  m[2],
		})
	}
	return errs, consumed
}

func pytestGuidance(errs []schema.FormattedError) string {
	for _, e := range errs {
		if strings.HasPrefix(e.Message, "assert") || strings.Contains(e.Message, "AssertionError") {
			return "Fix failing assertions: compare expected and actual values in each failure"
		}
		if strings.Contains(e.Message, "ImportError") || strings.Contains(e.Message, "ModuleNotFoundError") {
			return "Install missing packages or fix import paths in the failing tests"
		}
		if strings.Contains(e.Message, "fixture") {
			return "Define or register the missing pytest fixtures"
		}
	}
	return "Inspect each failing test and align the implementation with the expected behavior"
}

func (p *Pytest) Samples() []schema.Sample {
	return []schema.Sample{
		{
			Name: "failures section",
			Input: "=================================== FAILURES ===================================\n" +
				"_______________________________ test_addition ________________________________\n" +
				"\n" +
				"    def test_addition():\n" +
				">       assert add(1, 2) == 4\n" +
				"E       assert 3 == 4\n" +
				"E        +  where 3 = add(1, 2)\n" +
				"\n" +
				"tests/test_math.py:7: AssertionError\n" +
				"=========================== short test summary info ============================\n" +
				"FAILED tests/test_math.py::test_addition - assert 3 == 4\n" +
				"============================== 1 failed in 0.04s ===============================\n",
			Command:       "pytest",
			WantTool:      "pytest",
			MinConfidence: schema.ConfidenceHigh,
			WantTotal:     1,
			WantErrors: []schema.FormattedError{
				{File: "tests/test_math.py", Line: 7, Severity: "error", Message: "assert 3 == 4", Context: "test_addition"},
			},
		},
		{
			Name: "quiet summary only",
			Input: "FAILED tests/test_auth.py::test_login - KeyError: 'token'\n" +
				"FAILED tests/test_auth.py::test_logout - assert response.status == 204\n",
			Command:       "pytest -q",
			WantTool:      "pytest",
			MinConfidence: schema.ConfidencePossible,
			WantTotal:     2,
			WantErrors: []schema.FormattedError{
				{File: "tests/test_auth.py", Severity: "error", Message: "KeyError: 'token'", Context: "test_login"},
			},
		},
	}
}
